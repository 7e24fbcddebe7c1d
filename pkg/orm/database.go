// Package orm persists and queries records and keeps their tables in sync
// with the declared models
package orm

import (
	"context"
	"database/sql"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/mizuchilabs/vegaorm/pkg/config"
	"github.com/mizuchilabs/vegaorm/pkg/dialect"
	"github.com/mizuchilabs/vegaorm/pkg/errors"
	"github.com/mizuchilabs/vegaorm/pkg/logging"
	"github.com/mizuchilabs/vegaorm/pkg/pool"
	"github.com/mizuchilabs/vegaorm/pkg/schema"
)

const (
	DefaultAcquireAttempts = 10
	DefaultAcquireDelay    = 100 * time.Millisecond

	sqliteBusyTimeout = "busy_timeout(5000)"
)

// Database is a client for one backend. It owns its connection provider;
// nothing is shared between Database values.
type Database struct {
	db       *sql.DB
	dialect  *dialect.Dialect
	provider pool.Provider
	logger   *slog.Logger
	attempts int
	delay    time.Duration
}

// Option configures a Database
type Option func(*Database)

// WithProvider replaces the default connection provider
func WithProvider(p pool.Provider) Option {
	return func(d *Database) { d.provider = p }
}

// WithRetry sets how often and how far apart a lease is attempted before
// giving up with a no_connection error
func WithRetry(attempts int, delay time.Duration) Option {
	return func(d *Database) {
		if attempts > 0 {
			d.attempts = attempts
		}
		if delay >= 0 {
			d.delay = delay
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(d *Database) {
		if l != nil {
			d.logger = l
		}
	}
}

// New wraps an open *sql.DB. Without WithProvider, SQLite gets a Direct
// provider and the server dialects a Bounded one with a single connection.
func New(db *sql.DB, d *dialect.Dialect, opts ...Option) *Database {
	database := &Database{
		db:       db,
		dialect:  d,
		logger:   logging.Discard(),
		attempts: DefaultAcquireAttempts,
		delay:    DefaultAcquireDelay,
	}
	for _, opt := range opts {
		opt(database)
	}

	if database.provider == nil {
		if d.Name() == dialect.SQLiteName {
			database.provider = pool.NewDirect(db)
		} else {
			database.provider = pool.NewBounded(db, 1, 1)
		}
	}
	return database
}

// Open connects to the configured backend and verifies the connection
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*Database, error) {
	d, err := dialect.ByName(cfg.Dialect)
	if err != nil {
		return nil, err
	}
	if cfg.DefaultStringLength > 0 {
		d = d.WithDefaultLength(schema.String, cfg.DefaultStringLength)
	}

	db, err := openDB(cfg, d)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, errors.ErrTypeDatabase, "connect to %s", d)
	}

	var provider pool.Provider
	if d.Name() == dialect.SQLiteName {
		provider = pool.NewDirect(db)
	} else {
		provider = pool.NewBounded(db, cfg.MinConn, cfg.MaxConn)
	}

	database := New(db, d,
		WithProvider(provider),
		WithRetry(cfg.AcquireAttempts, cfg.Delay()),
		WithLogger(logger),
	)
	database.logger.Debug("database opened", "dialect", d.Name(), "host", cfg.Host)
	return database, nil
}

func openDB(cfg config.DatabaseConfig, d *dialect.Dialect) (*sql.DB, error) {
	switch d.Name() {
	case dialect.SQLiteName:
		db, err := sql.Open(d.DriverName(), sqliteDSN(cfg.Host))
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeDatabase, "open sqlite database")
		}
		if isMemory(cfg.Host) {
			// Every connection to :memory: is its own database; keep one alive.
			db.SetMaxOpenConns(1)
			db.SetMaxIdleConns(1)
			db.SetConnMaxLifetime(0)
		}
		return db, nil

	case dialect.PostgresName:
		connConfig, err := pgx.ParseConfig(postgresURL(cfg))
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeConfig, "invalid postgres connection settings")
		}
		return stdlib.OpenDB(*connConfig), nil

	case dialect.MySQLName:
		connector, err := mysql.NewConnector(mysqlConfig(cfg))
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeConfig, "invalid mysql connection settings")
		}
		return sql.OpenDB(connector), nil
	}

	return nil, errors.Newf(errors.ErrTypeConfig, "unknown dialect %q", d.Name())
}

func isMemory(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}

func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=" + sqliteBusyTimeout
}

func postgresURL(cfg config.DatabaseConfig) string {
	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		Path:   "/" + cfg.Database,
	}
	if cfg.User != "" {
		if cfg.Password != "" {
			u.User = url.UserPassword(cfg.User, cfg.Password)
		} else {
			u.User = url.User(cfg.User)
		}
	}
	return u.String()
}

func mysqlConfig(cfg config.DatabaseConfig) *mysql.Config {
	port := cfg.Port
	if port == 0 {
		port = 3306
	}

	mc := mysql.NewConfig()
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(port))
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.DBName = cfg.Database
	return mc
}

// Dialect returns the backend dialect
func (d *Database) Dialect() *dialect.Dialect {
	return d.dialect
}

// DB returns the underlying *sql.DB
func (d *Database) DB() *sql.DB {
	return d.db
}

// Stats returns the connection provider's counters
func (d *Database) Stats() pool.Stats {
	return d.provider.Stats()
}

// Close closes the underlying *sql.DB
func (d *Database) Close() error {
	return d.db.Close()
}
