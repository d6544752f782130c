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

	"inventra/backend/internal/blob"
	"inventra/backend/internal/cache"
	"inventra/backend/internal/catalog"
	"inventra/backend/internal/config"
	"inventra/backend/internal/httpapi"
	"inventra/backend/internal/ledger"
	"inventra/backend/internal/ocr"
	"inventra/backend/internal/reconcile"
	"inventra/backend/internal/store"
	"inventra/backend/internal/store/memory"
	pgstore "inventra/backend/internal/store/postgres"
)

func main() {
	cfg := config.Load()
	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatalf("invalid security configuration: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 3)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("postgres unavailable (%v) and DATABASE_URL is set; refusing to start with in-memory fallback", err)
		} else {
			repo = pg
			closers = append(closers, pg.Close)
			log.Println("repository: postgres")
		}
	} else {
		repo = memory.NewSeeded()
		log.Println("repository: in-memory")
	}

	lookupCache := cache.ProductLookupCache(cache.NoopProductLookupCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisProductLookupCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Printf("redis unavailable (%v), using noop cache", err)
		} else {
			lookupCache = redisCache
			closers = append(closers, redisCache.Close)
			log.Println("cache: redis")
		}
	} else {
		log.Println("cache: noop")
	}

	var engine ocr.Engine = ocr.DisabledEngine{}
	if cfg.GeminiAPIKey != "" {
		gemini, err := ocr.NewGeminiEngine(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Fatalf("gemini engine: %v", err)
		}
		engine = gemini
		closers = append(closers, gemini.Close)
		log.Printf("ocr engine: gemini (%s)", cfg.GeminiModel)
	} else {
		log.Println("ocr engine: disabled (set GEMINI_API_KEY to enable receipt processing)")
	}

	blobs, err := blob.NewLocalStorage(cfg.ReceiptStorageDir)
	if err != nil {
		log.Fatalf("receipt storage: %v", err)
	}

	matcher := catalog.NewMatcher(repo, lookupCache, time.Duration(cfg.LookupCacheTTLSeconds)*time.Second)
	updater := ledger.NewUpdater(repo)
	reconciler := reconcile.New(repo, engine, matcher, updater, blobs, cfg.OCRLanguage)
	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, repo)
	api := httpapi.New(reconciler, auth, cfg.AllowedOrigin, blobs.BasePath())

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("inventory backend listening on %s", cfg.Address())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Printf("close error: %v", err)
		}
	}

	log.Println("server stopped")
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	return nil
}
