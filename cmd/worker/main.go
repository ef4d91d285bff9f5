package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"attendboard/internal/attendance"
	"attendboard/internal/config"
	"attendboard/internal/queue"
	"attendboard/internal/store"
	"attendboard/internal/worker"
)

// Worker consumes check-in messages and records them as attendance events.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.QueueBackend == "memory" || cfg.StoreBackend == "memory" {
		log.Fatalf("worker needs shared backends; in-memory mode runs the worker inside the api")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()
	if !redisClient.Healthy(ctx) {
		log.Printf("WARNING: redis at %s not reachable, consumer will keep retrying", cfg.RedisAddr)
	}

	q := queue.NewRedisQueue(redisClient.Client, cfg.QueueKey)
	svc := attendance.NewService(attendance.NewRepository(db.Client), cfg.Location, cfg.DedupWindow)

	if err := worker.Run(ctx, q, svc); err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}
}
