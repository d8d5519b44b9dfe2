//go:build integration

package resources

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/marmos91/lazyhost/pkg/config"
	"github.com/marmos91/lazyhost/pkg/lazy"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("lazyhost_test"),
		tcpostgres.WithUsername("lazyhost_test"),
		tcpostgres.WithPassword("lazyhost_test"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(ctr) })

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func TestPostgresMembers(t *testing.T) {
	dsn := startPostgres(t)

	host, b := newBinder()
	declare(t, b, config.MemberConfig{
		Name: "pool",
		Kind: "pgxpool",
		Options: map[string]any{
			"dsn":             dsn,
			"max_conns":       4,
			"query_timeout":   "5s",
			"connect_timeout": "30s",
		},
	})
	declare(t, b, config.MemberConfig{
		Name:    "orm",
		Kind:    "gorm",
		Options: map[string]any{"driver": "postgres", "dsn": dsn},
	})

	pool, err := lazy.Get[*pgxpool.Pool](host, "pool")
	require.NoError(t, err)
	assert.Equal(t, int32(4), pool.Config().MaxConns)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var one int
	require.NoError(t, pool.QueryRow(ctx, "SELECT 1").Scan(&one))
	assert.Equal(t, 1, one)
	assert.NoError(t, Check(ctx, pool))

	db, err := lazy.Get[*Database](host, "orm")
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, db.Driver())
	require.NoError(t, db.AutoMigrate(&note{}))
	require.NoError(t, db.Create(&note{Body: "from gorm"}).Error)

	var body string
	require.NoError(t, pool.QueryRow(ctx, "SELECT body FROM notes LIMIT 1").Scan(&body))
	assert.Equal(t, "from gorm", body)

	require.NoError(t, b.Drain())
	assert.Error(t, db.Ping(ctx))
}
