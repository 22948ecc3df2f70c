package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"teamhealth/internal/app"
	"teamhealth/internal/config"
)

// @title Team Health Checker API
// @version 1.0
// @description Create team health checks, answer them topic by topic and read the aggregated results.
// @BasePath /v1
// @securityDefinitions.apikey ParticipantToken
// @in header
// @name Authorization
func main() {
	log.Println("started")
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// Redis connection
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	defer rdb.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := rdb.Ping(pingCtx).Result(); err != nil {
		log.Fatal("Failed to ping Redis:", err)
	}
	log.Println("Connected to Redis")

	a := app.New(cfg, rdb)
	defer a.Close()
	log.Println("Services initialized")

	router := a.Router()

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.HTTPPort)
		log.Printf("GraphQL backend: %s", cfg.GraphQLEndpoint)
		log.Printf("Share links: %s/check/{id}", cfg.PublicURL)
		log.Println("Endpoints:")
		log.Println("  GET  /  /check/{id}  /results/{id}")
		log.Println("  GET  /v1/topics")
		log.Println("  POST /v1/checks")
		log.Println("  GET  /v1/checks/{id}  /v1/checks/{id}/results")
		log.Println("  POST /v1/checks/{id}/sessions")
		log.Println("  GET  /v1/session")
		log.Println("  POST /v1/session/{begin,select,confirm,restart,submit}")
		log.Println("  WS   /v1/ws/checks/{id}/results")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("ListenAndServe:", err)
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
