package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"attendboard/internal/attendance"
	"attendboard/internal/auth"
	"attendboard/internal/config"
	"attendboard/internal/dashboard"
	"attendboard/internal/httpapi"
	"attendboard/internal/httpmiddleware"
	"attendboard/internal/metrics"
	"attendboard/internal/queue"
	"attendboard/internal/reconcile"
	"attendboard/internal/source"
	"attendboard/internal/store"
	"attendboard/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// Set Gin mode based on environment
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	health := map[string]httpapi.HealthCheck{}

	var st attendance.Store
	switch cfg.StoreBackend {
	case "memory":
		log.Println("using in-memory student store")
		st = attendance.NewMemoryStore()
	default:
		db, err := store.NewDB(ctx, cfg.DatabaseURL)
		switch {
		case db == nil:
			return err
		case err != nil:
			log.Printf("warning: db not reachable, schema not migrated: %v", err)
		default:
			if err := db.Migrate(ctx); err != nil {
				return err
			}
		}
		defer db.Close()
		health["db"] = db.Healthy
		st = attendance.NewRepository(db.Client)
	}

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		redisClient := store.NewRedis(cfg.RedisAddr)
		defer redisClient.Close()
		health["redis"] = redisClient.Healthy
		q = queue.NewRedisQueue(redisClient.Client, cfg.QueueKey)
	}

	svc := attendance.NewService(st, cfg.Location, cfg.DedupWindow)
	signer := auth.NewSigner(cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)

	// No separate worker process consumes an in-memory queue.
	if cfg.QueueBackend == "memory" {
		go func() {
			if err := worker.Run(ctx, q, svc); err != nil {
				log.Printf("in-process worker failed: %v", err)
			}
		}()
	}

	pipeline := reconcile.NewPipeline(cfg.Location, time.Now, func(field, value string, err error) {
		log.Printf("dropping unparseable %s %q: %v", field, value, err)
		metrics.ParseFailure(field)
	}).WithObserver(metrics.ObservePass)

	var fetcher source.Fetcher
	switch cfg.SourceBackend {
	case "upstream":
		var creds auth.CredentialProvider = auth.StaticToken(cfg.UpstreamToken)
		if cfg.UpstreamToken == "" {
			creds = auth.NewServiceToken(signer, "attendboard-api", cfg.AccessTTL)
		}
		log.Printf("reading attendance from %s", cfg.UpstreamURL)
		fetcher = source.NewUpstream(cfg.UpstreamURL, creds, cfg.UpstreamTimeout)
	default:
		fetcher = source.NewStore(st)
	}

	poller := dashboard.NewPoller(fetcher, pipeline, cfg.PollInterval)
	poller.OnStale = metrics.StaleResults.Inc
	poller.OnError = func(err error) {
		metrics.FetchErrors.WithLabelValues(source.Kind(err)).Inc()
	}
	go poller.Run(ctx)

	h := &httpapi.Handler{
		Service:  svc,
		Fetcher:  fetcher,
		Pipeline: pipeline,
		Poller:   poller,
		Queue:    q,
		Signer:   signer,
		AdminKey: cfg.AdminAPIKey,
		Health:   health,
	}
	limiter := httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
	r := httpapi.NewRouter(h, limiter)

	// Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s (timezone %s)", cfg.HTTPPort, cfg.Timezone)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")
	cancel()

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}
