package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"chatd/internal/blob"
	"chatd/internal/config"
	"chatd/internal/httpserver"
	"chatd/internal/push"
	"chatd/internal/security"
	redisstore "chatd/internal/store/redis"
	"chatd/internal/store/sqlite"
	"chatd/internal/ws"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Durable store
	db, err := sqlite.Open(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	if err := sqlite.Migrate(db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	// Ephemeral store (typing indicators, push tokens, notification inbox)
	rdb, err := redisstore.Open(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer rdb.Close()

	// Security components
	tokenSvc := security.NewTokenService(cfg.JWTSecret, time.Duration(cfg.AccessTokenMinutes)*time.Minute)
	passwordHasher := security.NewPasswordHasher(0)

	// Attachment storage
	var blobStore blob.Store
	switch cfg.UploadBackend {
	case "s3":
		blobStore, err = blob.NewS3Store(context.Background(), blob.S3Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			UseSSL:    cfg.S3UseSSL,
			Bucket:    cfg.S3Bucket,
			PublicURL: cfg.S3PublicURL,
		})
		if err != nil {
			log.Fatalf("failed to initialize s3 store: %v", err)
		}
	default:
		baseURL := fmt.Sprintf("http://%s/uploads", cfg.HTTPAddr())
		blobStore, err = blob.NewLocalStore(cfg.UploadDir, baseURL)
		if err != nil {
			log.Fatalf("failed to initialize upload dir: %v", err)
		}
	}

	// Notification fan-out; without a gateway URL deliveries only get logged
	pushRepo := redisstore.NewPushRepo(rdb)
	var pusher push.Pusher
	if cfg.PushGatewayURL != "" {
		pusher = push.NewWebhookPusher(cfg.PushGatewayURL)
	} else {
		pusher = push.LogPusher{}
	}
	dispatcher := push.NewDispatcher(pusher, pushRepo, pushRepo)

	hub := ws.NewHub()

	router := httpserver.NewRouter(cfg, db, rdb, hub, tokenSvc, passwordHasher, dispatcher, blobStore)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		log.Printf("Starting %s server on %s\n", cfg.AppName, cfg.HTTPAddr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
