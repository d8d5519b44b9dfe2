package resources

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marmos91/lazyhost/internal/logger"
)

func init() {
	Register(Kind{
		Name:        "pgxpool",
		Description: "PostgreSQL connection pool, closed with Close",
		Open:        openPool,
	})
}

// PoolOptions configures a pgxpool member.
type PoolOptions struct {
	// DSN is the PostgreSQL connection string.
	DSN string `mapstructure:"dsn"`

	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`

	// QueryTimeout becomes the session statement_timeout.
	QueryTimeout time.Duration `mapstructure:"query_timeout"`

	// ConnectTimeout bounds pool creation and the first ping.
	// Default: 10s
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

func (o PoolOptions) poolConfig() (*pgxpool.Config, error) {
	if o.DSN == "" {
		return nil, errors.New("dsn is required")
	}
	cfg, err := pgxpool.ParseConfig(o.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	if o.MaxConns > 0 {
		cfg.MaxConns = o.MaxConns
	}
	if o.MinConns > 0 {
		cfg.MinConns = o.MinConns
	}
	if o.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = o.MaxConnLifetime
	}
	if o.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = o.MaxConnIdleTime
	}
	if o.HealthCheckPeriod > 0 {
		cfg.HealthCheckPeriod = o.HealthCheckPeriod
	}
	if o.QueryTimeout > 0 {
		cfg.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprintf("%dms", o.QueryTimeout.Milliseconds())
	}
	return cfg, nil
}

func openPool(ctx context.Context, env Env) (any, error) {
	var opts PoolOptions
	if err := decodeOptions(env, &opts); err != nil {
		return nil, err
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}

	cfg, err := opts.poolConfig()
	if err != nil {
		return nil, fmt.Errorf("member %q: %w", env.Member, err)
	}

	ctx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	logger.Debug("Creating PostgreSQL connection pool",
		logger.KeyMember, env.Member,
		"host", cfg.ConnConfig.Host,
		"database", cfg.ConnConfig.Database,
		"max_conns", cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}
	return pool, nil
}
