// Package sqlstore implements the repositories on database/sql for Postgres (lib/pq)
// and SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/egannguyen/ecommerce-orders/internal/repository"
)

// Options configures a Store.
type Options struct {
	Isolation    sql.IsolationLevel
	MaxOpenConns int
	Logger       *zap.Logger
}

// Option sets one Store option.
type Option func(opt *Options) error

// WithIsolation sets the isolation level of workflow transactions. SQLite ignores it.
func WithIsolation(level sql.IsolationLevel) Option {
	return func(opt *Options) error {
		opt.Isolation = level
		return nil
	}
}

// WithMaxOpenConns caps the Postgres pool size.
func WithMaxOpenConns(n int) Option {
	return func(opt *Options) error {
		if n <= 0 {
			return fmt.Errorf("max open connections must be positive, got %d", n)
		}
		opt.MaxOpenConns = n
		return nil
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(opt *Options) error {
		opt.Logger = logger
		return nil
	}
}

// ParseIsolation maps a configured name to an isolation level. Empty means the
// driver default.
func ParseIsolation(name string) (sql.IsolationLevel, error) {
	switch strings.ToLower(strings.ReplaceAll(name, " ", "_")) {
	case "", "default":
		return sql.LevelDefault, nil
	case "read_committed":
		return sql.LevelReadCommitted, nil
	case "repeatable_read":
		return sql.LevelRepeatableRead, nil
	case "serializable":
		return sql.LevelSerializable, nil
	default:
		return sql.LevelDefault, fmt.Errorf("unknown isolation level %q", name)
	}
}

// Store owns the connection pool and opens workflow transactions.
type Store struct {
	db        *sql.DB
	dialect   Dialect
	isolation sql.IsolationLevel
	logger    *zap.Logger
}

var _ repository.UnitOfWork = (*Store)(nil)

// Open connects, pings and migrates the database.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Store, error) {
	dialect, err := ParseDialect(driver)
	if err != nil {
		return nil, err
	}
	o := &Options{Logger: zap.NewNop()}
	for _, apply := range opts {
		if err := apply(o); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	switch {
	case dialect == SQLite:
		// one connection: in-memory databases are per-connection and SQLite has a
		// single writer anyway
		db.SetMaxOpenConns(1)
	case o.MaxOpenConns > 0:
		db.SetMaxOpenConns(o.MaxOpenConns)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if dialect == SQLite {
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}
	if err := ApplyMigrations(ctx, db, dialect); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	isolation := o.Isolation
	if dialect == SQLite {
		isolation = sql.LevelDefault
	}

	o.Logger.Info("Database connected and migrated",
		zap.String("dialect", dialect.String()),
		zap.String("schema_version", CurrentSchemaVersion),
		zap.String("isolation", isolation.String()),
	)
	return &Store{db: db, dialect: dialect, isolation: isolation, logger: o.Logger}, nil
}

func (s *Store) DB() *sql.DB          { return s.db }
func (s *Store) Dialect() Dialect     { return s.dialect }
func (s *Store) Close() error         { return s.db.Close() }
func (s *Store) Outbox() *OutboxStore { return &OutboxStore{c: conn{q: s.db, dialect: s.dialect}} }

// Begin opens a transaction with the configured isolation level.
func (s *Store) Begin(ctx context.Context) (repository.Tx, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: s.isolation})
	if err != nil {
		return nil, err
	}
	return &sqlTx{tx: tx, c: conn{q: tx, dialect: s.dialect}}, nil
}

type sqlTx struct {
	tx *sql.Tx
	c  conn
}

func (t *sqlTx) Customers() repository.CustomerRepository { return &customerRepository{c: t.c} }
func (t *sqlTx) Products() repository.ProductRepository   { return &productRepository{c: t.c} }
func (t *sqlTx) Orders() repository.OrderRepository       { return &orderRepository{c: t.c} }
func (t *sqlTx) Outbox() repository.EventOutbox           { return &outboxRepository{c: t.c} }

func (t *sqlTx) Commit() error {
	return translate(t.tx.Commit(), "commit transaction", "transaction", "")
}

func (t *sqlTx) Rollback() error {
	return t.tx.Rollback()
}
