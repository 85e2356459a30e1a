package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shopgate/internal/app"
	"shopgate/internal/authserver"
	"shopgate/internal/credentials"
	"shopgate/internal/tenancy"
	"shopgate/pkg/config"
	"shopgate/pkg/db"
	"shopgate/pkg/logger"
	"shopgate/pkg/metrics"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)

	if cfg.TenantSecret == "" || cfg.TokenSigningKey == "" {
		log.Fatalw("TENANT_SECRET and TOKEN_SIGNING_KEY are required outside dev", "env", cfg.Env)
	}
	catalog, err := config.LoadScopeCatalog(cfg.ScopeCatalogFile)
	if err != nil {
		log.Fatalw("scope catalog", "err", err)
	}

	schemas := tenancy.NewSchemaRouter(cfg.DefaultSchema, cfg.TenantSchemaPrefix)
	var stores app.Stores
	var memory *credentials.MemoryStore
	if pool := db.MustConnect(cfg, log); pool != nil {
		pg := credentials.NewPostgresStore(pool, schemas)
		stores.Staff, stores.Shoppers = pg, pg
	} else {
		memory = credentials.NewMemoryStore(schemas)
		stores.Staff, stores.Shoppers = memory, memory
	}
	if rdb := db.MustRedis(cfg, log); rdb != nil {
		stores.Codes = authserver.NewRedisCodeStore(rdb, cfg.AuthCodeValidity)
	} else {
		stores.Codes = authserver.NewMemoryCodeStore(cfg.AuthCodeValidity, nil)
	}

	a, err := app.New(context.Background(), cfg, log, catalog, stores, metrics.NewProm("shopgate", nil))
	if err != nil {
		log.Fatalw("app init", "err", err)
	}

	if cfg.CredentialsSeedFile != "" {
		if memory == nil {
			log.Warnw("credentials seed ignored with DATABASE_URL set", "file", cfg.CredentialsSeedFile)
		} else {
			seed, err := credentials.LoadSeed(cfg.CredentialsSeedFile)
			if err != nil {
				log.Fatalw("credentials seed", "err", err)
			}
			if err := seed.Apply(memory, a.SchemaOf, 0); err != nil {
				log.Fatalw("credentials seed", "err", err)
			}
			log.Infow("credentials seeded", "file", cfg.CredentialsSeedFile, "tenants", len(seed.Tenants))
		}
	}

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: a.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.Infow("auth-service listening", "addr", cfg.HTTPAddr, "issuer_prefix", cfg.IssuerPrefix)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("ListenAndServe", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	fmt.Println("auth-service stopped")
}
