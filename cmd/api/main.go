package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"casting.org/internal/agency"
	"casting.org/internal/auth"
	"casting.org/internal/config"
	"casting.org/internal/httpapi"
	"casting.org/internal/obs"
	"casting.org/internal/store/pg"
)

var version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("GIT_COMMIT"))

	// Roster backend: Postgres when a DSN is configured, otherwise in-memory.
	var (
		svc   agency.Service
		probe httpapi.ReadyProbe
	)
	if cfg.DatabaseURL != "" {
		store, err := pg.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer store.Close()
		svc = store
		probe = httpapi.ReadyProbe{DB: store.DB()}
	} else {
		log.Println("DATABASE_URL not set, using in-memory roster")
		svc = agency.NewInMemory()
	}

	keys := auth.NewJWKSCache(cfg.JWKSURL(), auth.WithFetchTimeout(cfg.JWKSTimeout))
	verifier := auth.NewVerifier(keys, cfg.APIAudience, cfg.Issuer())

	api := httpapi.New(probe, version, svc, verifier,
		httpapi.WithRateLimit(cfg.RateBurst, cfg.RatePerSecond))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting casting-api %s on %s", version, srv.Addr)

	// graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	log.Println("Stopped")
}
