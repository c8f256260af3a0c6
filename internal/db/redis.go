package db

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the process-wide Redis client, set by InitRedis. It
// backs the non-authoritative read-through cache in internal/store;
// callers that can't reach it simply fall through to Mongo.
var RedisClient *redis.Client

// InitRedis dials addr and verifies connectivity with a bounded ping.
// Unlike InitMongo, a Redis outage at boot is non-fatal -- the cache
// layer degrades to always-miss rather than refusing to start.
func InitRedis(addr, password string, dbIndex int) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       dbIndex,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("Redis not reachable at %s, cache will always miss: %v", addr, err)
	} else {
		log.Println("connected to Redis")
	}

	RedisClient = client
	return client
}
