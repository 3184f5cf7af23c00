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

	"payadmin/api/internal/app"
	"payadmin/api/internal/cache"
	"payadmin/api/internal/config"
	"payadmin/api/internal/session"
	"payadmin/api/internal/upstream"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	conventions, err := config.LoadConventions(cfg.ConventionsPath)
	if err != nil {
		log.Fatalf("conventions file invalid: %v", err)
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis url invalid: %v", err)
	}
	redisClient := redis.NewClient(opts)
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}

	sessions := session.NewRedisStoreWithClient(redisClient)
	queryCache := cache.New(redisClient, cfg.CacheTTL)
	upstreamClient := upstream.New(cfg.UpstreamURL, cfg.UpstreamTimeout)

	service := app.New(cfg, conventions, upstreamClient, sessions, queryCache)
	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("payadmin API listening on %s, upstream %s", cfg.Addr, cfg.UpstreamURL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
