// Package db holds the process-level Mongo and Redis client
// initialization, kept separate from internal/store so the Store
// Adapter implementations never import a connection-bootstrap concern.
package db

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Client is the process-wide Mongo client, set by InitMongo.
var Client *mongo.Client

// InitMongo dials uri and verifies connectivity with a bounded ping,
// failing fast (log.Fatal) rather than letting the process start
// against a database it can't reach.
func InitMongo(uri string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		log.Fatalf("failed to connect to MongoDB: %v", err)
	}

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		log.Fatalf("failed to ping MongoDB: %v", err)
	}

	Client = client
	log.Println("connected to MongoDB")
}

// CloseMongo disconnects the process-wide client, best-effort.
func CloseMongo() {
	if Client == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := Client.Disconnect(ctx); err != nil {
		log.Printf("error disconnecting from MongoDB: %v", err)
	}
}
