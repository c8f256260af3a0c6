package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"adaptive-quiz-core/internal/clock"
	"adaptive-quiz-core/internal/db"
	"adaptive-quiz-core/internal/event"
	"adaptive-quiz-core/internal/handlers"
	"adaptive-quiz-core/internal/quizcore"
	"adaptive-quiz-core/internal/rng"
	"adaptive-quiz-core/internal/sessionmgr"
	"adaptive-quiz-core/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system env")
	}

	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		log.Fatal("MONGO_URI is required")
	}
	db.InitMongo(mongoURI)
	defer db.CloseMongo()

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	redisClient := db.InitRedis(redisAddr, os.Getenv("REDIS_PASSWORD"), 0)

	rabbitURL := os.Getenv("RABBITMQ_URI")
	eventExchange := os.Getenv("RABBITMQ_EXCHANGE")
	var publisher *event.EventPublisher
	if rabbitURL != "" && eventExchange != "" {
		var err error
		publisher, err = event.NewEventPublisher(rabbitURL, eventExchange)
		if err != nil {
			log.Fatalf("failed to connect to RabbitMQ: %v", err)
		}
		defer publisher.Close()
	} else {
		log.Println("RabbitMQ not configured, session_completed events will not be published")
	}

	database := db.Client.Database(dbNameOr("quiz_service"))
	indexCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := store.EnsureIndexes(indexCtx, database); err != nil {
		log.Fatalf("failed to ensure indexes: %v", err)
	}

	retryPolicy := store.DefaultRetryPolicy()
	mongoAdapter := store.NewMongoAdapter(database, retryPolicy)
	cache := store.NewCache(redisClient)
	adapter := store.NewCachingAdapter(mongoAdapter, cache)

	catalog := sessionmgr.NewStoreCatalog(adapter)
	seed := time.Now().UnixNano()
	engine := quizcore.New(adapter, catalog, clock.Real{}, rng.NewLocked(seed), quizcore.DefaultConfig(), publisher)

	sessionHandler := handlers.NewSessionHandler(engine)

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "https://evolvia.phrimp.io.vn"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Content-Length", "Accept-Encoding", "X-CSRF-Token", "Authorization", "accept", "origin", "Cache-Control", "X-Requested-With", "X-User-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	setupSessionRoutes(r, sessionHandler, publisher)

	r.Run(":6666")
}

func dbNameOr(fallback string) string {
	if name := os.Getenv("MONGO_DB"); name != "" {
		return name
	}
	return fallback
}

func setupSessionRoutes(r *gin.Engine, h *handlers.SessionHandler, publisher *event.EventPublisher) {
	sessions := r.Group("/sessions")

	sessions.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("[SESSION] %v | %3d | %13v | %15s | %-7s %#v\n%s",
			param.TimeStamp.Format("2006/01/02 - 15:04:05"),
			param.StatusCode,
			param.Latency,
			param.ClientIP,
			param.Method,
			param.Path,
			param.ErrorMessage,
		)
	}))

	sessions.Use(func(c *gin.Context) {
		c.Next()
		if len(c.Errors) > 0 && publisher != nil {
			err := c.Errors.Last()
			publisher.Publish("session.request_error", gin.H{
				"session_id": c.Param("id"),
				"user_id":    c.GetHeader("X-User-ID"),
				"error":      err.Error(),
				"path":       c.Request.URL.Path,
				"method":     c.Request.Method,
			})
		}
	})

	sessions.POST("", h.CreateSession)
	sessions.GET("/:id", h.GetSession)
	sessions.POST("/:id/next", h.NextQuestion)
	sessions.POST("/:id/answer", h.SubmitAnswer)
	sessions.GET("/:id/progress", h.Progress)
	sessions.POST("/:id/pause", h.Pause)
	sessions.POST("/:id/resume", h.Resume)
	sessions.POST("/:id/cancel", h.Cancel)
	sessions.POST("/:id/complete", h.Complete)
}
