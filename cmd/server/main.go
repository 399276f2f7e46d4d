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

	"wumikay/pos/internal/config"
	"wumikay/pos/internal/httpapi"
	"wumikay/pos/internal/kv"
	"wumikay/pos/internal/notify"
	"wumikay/pos/internal/service"
	"wumikay/pos/internal/state"
)

func main() {
	cfg := config.Load()
	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatalf("invalid security configuration: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, closers, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("storage unavailable: %v", err)
	}

	repo := state.NewRepo(store)
	notifier := notify.NewCenter()
	closers = append(closers, func() error {
		notifier.Stop()
		return nil
	})

	svc := service.New(repo, notifier)
	if err := svc.SeedUsers(ctx); err != nil {
		log.Fatalf("failed to seed users: %v", err)
	}

	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, repo)
	api := httpapi.New(svc, auth, cfg.AllowedOrigin)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("POS backend listening on %s", cfg.Address())
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

// openStore picks the storage backend: postgres when DATABASE_URL is set,
// redis when REDIS_ADDR is set, and the local file store otherwise. A
// configured backend that cannot be reached is a fatal error rather than a
// silent fallback.
func openStore(ctx context.Context, cfg config.Config) (kv.Store, []func() error, error) {
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		pg, err := kv.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres unavailable (%w) and DATABASE_URL is set", err)
		}
		closers = append(closers, pg.Close)
		log.Println("storage: postgres")
		return pg, closers, nil
	}

	if cfg.RedisAddr != "" {
		rds, err := kv.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, fmt.Errorf("redis unavailable (%w) and REDIS_ADDR is set", err)
		}
		closers = append(closers, rds.Close)
		log.Println("storage: redis")
		return rds, closers, nil
	}

	file, err := kv.NewFile(cfg.DataDir)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("storage: file (%s)", cfg.DataDir)
	return file, closers, nil
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	return nil
}
