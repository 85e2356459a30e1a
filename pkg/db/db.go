// Package db opens the optional Postgres pool backing the credential stores
// and the optional Redis client backing authorization codes.
package db

import (
	"context"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"shopgate/pkg/config"
)

const connectTimeout = 10 * time.Second

// MustConnect returns nil when DATABASE_URL is unset; the service then runs
// on in-memory credential stores.
func MustConnect(cfg config.Config, log *zap.SugaredLogger) *pgxpool.Pool {
	if cfg.DatabaseURL == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalw("credential store: invalid database url", "dsn", redactDSN(cfg.DatabaseURL), "err", err)
	}
	if err := pool.Ping(ctx); err != nil {
		log.Fatalw("credential store: postgres unreachable", "dsn", redactDSN(cfg.DatabaseURL), "err", err)
	}
	log.Infow("credential store: postgres", "dsn", redactDSN(cfg.DatabaseURL), "max_conns", pool.Config().MaxConns)
	return pool
}

// MustRedis returns nil when REDIS_URL is unset; authorization codes are then
// kept in process memory.
func MustRedis(cfg config.Config, log *zap.SugaredLogger) *redis.Client {
	if cfg.RedisURL == "" {
		return nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalw("code store: invalid redis url", "err", err)
	}
	cli := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := cli.Ping(ctx).Err(); err != nil {
		log.Fatalw("code store: redis unreachable", "addr", opts.Addr, "db", opts.DB, "err", err)
	}
	log.Infow("code store: redis", "addr", opts.Addr, "db", opts.DB)
	return cli
}

// redactDSN hides the password of URL-style DSNs. Key/value DSNs are
// reduced to a placeholder since they may carry password=.
func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "<redacted>"
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
