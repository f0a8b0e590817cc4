package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"animanga/internal/api"
	"animanga/internal/cache"
	"animanga/internal/catalog/anilist"
	"animanga/internal/catalog/mangadex"
	"animanga/internal/config"
	"animanga/internal/discovery"
	"animanga/internal/enrich"
	"animanga/internal/library"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	// Catalog clients
	mdClient := mangadex.NewClient(mangadex.Options{
		BaseURL:    cfg.MangaDexAPIURL,
		UploadsURL: cfg.MangaDexUploadsURL,
		Timeout:    cfg.UpstreamTimeout,
	})
	alClient := anilist.NewClient(anilist.Options{
		APIURL:   cfg.AniListAPIURL,
		Timeout:  cfg.UpstreamTimeout,
		MinDelay: cfg.EnrichDelay,
	})

	enricher := enrich.New(mdClient, alClient, enrich.Options{
		Prefix:      cfg.EnrichPrefix,
		Concurrency: cfg.EnrichConcurrency,
	})

	// Query cache
	var store cache.Store
	if cfg.CacheBackend == "redis" {
		redisStore, err := cache.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.Fatalf("could not connect cache store: %v", err)
		}
		defer redisStore.Close()
		store = redisStore
	} else {
		store = cache.NewMemoryStore()
	}
	fetcher := cache.NewFetcher(store)

	svc := discovery.NewService(mdClient, alClient, enricher, fetcher, discovery.TTLs{
		Search:   cfg.TTLSearch,
		Detail:   cfg.TTLDetail,
		Feed:     cfg.TTLFeed,
		Trending: cfg.TTLTrending,
		Tags:     cfg.TTLTags,
	})

	// Library store, selected once at startup
	var libStore library.Store
	switch cfg.LibraryBackend {
	case "redis":
		redisLib, err := library.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.Fatalf("could not connect library store: %v", err)
		}
		defer redisLib.Close()
		libStore = redisLib
	case "postgres":
		libStore, err = library.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("could not connect library store: %v", err)
		}
	default:
		libStore, err = library.NewFileStore(cfg.LibraryPath)
		if err != nil {
			log.Fatalf("could not open library store: %v", err)
		}
	}

	syncer := library.NewSyncer(libStore, cfg.SyncDebounce)
	defer syncer.Close()

	auth := api.NewAuthenticator(cfg.RemoteMode(), cfg.JWTSecret, cfg.JWTExpiry)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.RouterConfig{
		Discovery:   svc,
		Library:     libStore,
		Syncer:      syncer,
		Auth:        auth,
		CORSOrigins: cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: router,
	}

	go func() {
		log.Printf("[Server] listening on %s (library backend: %s)", srv.Addr, cfg.LibraryBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown; deferred syncer.Close cancels pending writes.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("[Server] shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[Server] forced shutdown: %v", err)
	}
}
