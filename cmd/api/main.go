package main

import (
	"context"
	"crypto/rsa"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"authgrid.org/internal/config"
	"authgrid.org/internal/httpapi"
	"authgrid.org/internal/oauth2"
	"authgrid.org/internal/obs"
	"authgrid.org/internal/sessioncache"
	"authgrid.org/internal/store/pg"
	"authgrid.org/internal/token"
)

var version = "0.3.1"

func main() {
	obs.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.PGDSN == "" {
		log.Fatal("AUTHGRID_PG_DSN is required")
	}

	store, err := pg.Open(cfg.PGDSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}

	cache, err := sessioncache.Open(cfg.RedisURL)
	if err != nil {
		log.Fatalf("open session cache: %v", err)
	}

	key, err := loadSigningKey(cfg)
	if err != nil {
		log.Fatalf("load signing key: %v", err)
	}
	tokens, err := token.NewManager(key, cfg.Issuer, cfg.AccessTokenTTL)
	if err != nil {
		log.Fatalf("token manager: %v", err)
	}

	svc, err := oauth2.NewService(store, cache, tokens,
		oauth2.WithSessionTTL(cfg.SessionTTL),
		oauth2.WithRefreshTTL(cfg.RefreshTokenTTL),
		oauth2.WithCodeTTL(cfg.AuthCodeTTL),
	)
	if err != nil {
		log.Fatalf("oauth2 service: %v", err)
	}

	api := httpapi.New(
		httpapi.ReadyProbe{DB: store.DB(), Cache: cache},
		version,
		svc,
		tokens,
		httpapi.CookieConfig{Name: cfg.CookieName, Secure: cfg.CookieSecure},
	)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting authgrid-api %s on %s", version, srv.Addr)

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
	_ = cache.Close()
	_ = store.Close()
	log.Println("Stopped")
}

func loadSigningKey(cfg config.Config) (*rsa.PrivateKey, error) {
	if cfg.PrivateKeyPEM != "" {
		return token.LoadPrivateKey([]byte(cfg.PrivateKeyPEM))
	}
	return token.LoadPrivateKeyFile(cfg.PrivateKeyPath)
}
