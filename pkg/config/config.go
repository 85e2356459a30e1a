// pkg/config/config.go
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	HTTPAddr string

	// Tenancy
	TenantSecret       string // HMAC key for tenant identifiers
	TenantHeader       string
	DefaultSchema      string
	TenantSchemaPrefix string

	// Token issuance
	TokenSigningKey      string
	IssuerPrefix         string
	AccessTokenValidity  time.Duration
	RefreshTokenValidity time.Duration
	AuthCodeValidity     time.Duration
	ClientRedirectURIs   []string
	AuthoritiesClaimPath string // JMESPath into claims for non-shop principals

	// Optional files
	ScopeCatalogFile    string
	CredentialsSeedFile string

	// Redis & Postgres
	RedisURL    string
	DatabaseURL string

	// Tracing; empty disables the OTLP exporter
	OTLPEndpoint string
}

func Load() Config {
	_ = godotenv.Load()
	cfg := Config{
		Env:                  env("SHOPGATE_ENV", "dev"),
		HTTPAddr:             env("SHOPGATE_HTTP_ADDR", ":8080"),
		TenantSecret:         env("TENANT_SECRET", ""),
		TenantHeader:         env("TENANT_HEADER", "X-Tenant-ID"),
		DefaultSchema:        env("DEFAULT_SCHEMA", "public"),
		TenantSchemaPrefix:   env("TENANT_SCHEMA_PREFIX", "tenant_"),
		TokenSigningKey:      env("TOKEN_SIGNING_KEY", ""),
		IssuerPrefix:         env("TOKEN_ISSUER_PREFIX", "shopgate"),
		AccessTokenValidity:  envDur("ACCESS_TOKEN_VALIDITY_SEC", 3600) * time.Second,
		RefreshTokenValidity: envDur("REFRESH_TOKEN_VALIDITY_SEC", 30*24*3600) * time.Second,
		AuthCodeValidity:     envDur("AUTH_CODE_VALIDITY_SEC", 300) * time.Second,
		ClientRedirectURIs:   envList("CLIENT_REDIRECT_URIS"),
		AuthoritiesClaimPath: env("AUTHORITIES_CLAIM_PATH", "authorities"),
		ScopeCatalogFile:     env("SCOPE_CATALOG_FILE", ""),
		CredentialsSeedFile:  env("CREDENTIALS_SEED_FILE", ""),
		RedisURL:             env("REDIS_URL", ""),
		DatabaseURL:          env("DATABASE_URL", ""),
		OTLPEndpoint:         env("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
	}
	if cfg.Env == "dev" {
		if cfg.TenantSecret == "" {
			log.Println("[WARN] TENANT_SECRET not set; using an insecure dev secret")
			cfg.TenantSecret = "dev-tenant-secret"
		}
		if cfg.TokenSigningKey == "" {
			log.Println("[WARN] TOKEN_SIGNING_KEY not set; using an insecure dev key")
			cfg.TokenSigningKey = "dev-token-signing-key-change-me!!"
		}
	}
	if cfg.DatabaseURL == "" {
		log.Println("[WARN] DATABASE_URL not set; using in-memory credential stores")
	}
	return cfg
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envDur(k string, def int) time.Duration {
	if v := os.Getenv(k); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil || i <= 0 {
			log.Printf("[WARN] %s=%q is not a positive number of seconds; using %d", k, v, def)
			return time.Duration(def)
		}
		return time.Duration(i)
	}
	return time.Duration(def)
}

func envList(k string) []string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
