package resources

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/marmos91/lazyhost/internal/logger"
)

func init() {
	Register(Kind{
		Name:        "gorm",
		Description: "GORM database handle on SQLite or PostgreSQL, closed with Close",
		Open:        openDatabase,
	})
}

// Database drivers accepted by the gorm kind.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DatabaseOptions configures a gorm member.
type DatabaseOptions struct {
	// Driver is "sqlite" or "postgres".
	// Default: "sqlite"
	Driver string `mapstructure:"driver"`

	// Path is the SQLite database file. ":memory:" keeps it in memory.
	Path string `mapstructure:"path"`

	// DSN is the PostgreSQL connection string.
	DSN string `mapstructure:"dsn"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`

	// LogLevel is the GORM log level: silent, error, warn or info.
	// Default: "silent"
	LogLevel string `mapstructure:"log_level"`
}

func (o *DatabaseOptions) applyDefaults() {
	o.Driver = strings.ToLower(strings.TrimSpace(o.Driver))
	if o.Driver == "" {
		o.Driver = DriverSQLite
	}
	if o.LogLevel == "" {
		o.LogLevel = "silent"
	}
}

func (o *DatabaseOptions) dialector() (gorm.Dialector, error) {
	switch o.Driver {
	case DriverSQLite:
		if o.Path == "" {
			return nil, errors.New("sqlite path is required")
		}
		if o.Path == ":memory:" {
			return sqlite.Open("file::memory:?cache=shared"), nil
		}
		if err := os.MkdirAll(filepath.Dir(o.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		return sqlite.Open(o.Path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"), nil
	case DriverPostgres:
		if o.DSN == "" {
			return nil, errors.New("postgres dsn is required")
		}
		return postgres.Open(o.DSN), nil
	}
	return nil, fmt.Errorf("unsupported database driver: %q", o.Driver)
}

func parseGormLogLevel(level string) (gormlogger.LogLevel, error) {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent, nil
	case "error":
		return gormlogger.Error, nil
	case "warn":
		return gormlogger.Warn, nil
	case "info":
		return gormlogger.Info, nil
	}
	return gormlogger.Silent, fmt.Errorf("invalid gorm log level: %q", level)
}

// Database is a GORM handle owned by one member.
type Database struct {
	*gorm.DB

	driver string
	sqlDB  *sql.DB
}

func openDatabase(ctx context.Context, env Env) (any, error) {
	var opts DatabaseOptions
	if err := decodeOptions(env, &opts); err != nil {
		return nil, err
	}
	opts.applyDefaults()

	level, err := parseGormLogLevel(opts.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("member %q: %w", env.Member, err)
	}
	dialector, err := opts.dialector()
	if err != nil {
		return nil, fmt.Errorf("member %q: %w", env.Member, err)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying database: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Debug("Database opened", logger.KeyMember, env.Member, logger.KeyDriver, opts.Driver)
	return &Database{DB: db, driver: opts.Driver, sqlDB: sqlDB}, nil
}

// Driver returns "sqlite" or "postgres".
func (d *Database) Driver() string {
	return d.driver
}

// Ping checks the connection.
func (d *Database) Ping(ctx context.Context) error {
	return d.sqlDB.PingContext(ctx)
}

// Close closes the connection pool.
func (d *Database) Close() error {
	return d.sqlDB.Close()
}
