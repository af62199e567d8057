package pg

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deicod/ermsearch/observability/tracing"
	"github.com/deicod/ermsearch/orm/runtime"
)

// Pool exposes the subset of pgxpool behaviour required to run search relations.
type Pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close()
}

// DB wraps a pool with observability hooks.
type DB struct {
	Pool     Pool
	Observer runtime.QueryObserver
}

// PoolConfig describes connection pool tuning knobs exposed via configuration.
type PoolConfig struct {
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

// Option configures pgx connections.
type Option func(*pgxpool.Config)

// Connect initialises a pgx pool with optional configuration overrides.
func Connect(ctx context.Context, url string, opts ...Option) (*DB, error) {
	cfg, err := newPoolConfig(url, opts...)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &DB{Pool: pool}, nil
}

// Close releases the underlying pool.
func (db *DB) Close() {
	if db == nil || db.Pool == nil {
		return
	}
	db.Pool.Close()
}

// UseObserver attaches a query observer to the database handle.
func (db *DB) UseObserver(observer runtime.QueryObserver) {
	if db == nil {
		return
	}
	db.Observer = observer
}

// Query runs an ad-hoc read statement.
func (db *DB) Query(ctx context.Context, table, sql string, args ...any) (pgx.Rows, error) {
	return db.query(ctx, runtime.OperationSelect, table, sql, args...)
}

// QueryRow runs a read statement returning a single row.
func (db *DB) QueryRow(ctx context.Context, table, sql string, args ...any) pgx.Row {
	return db.queryRow(ctx, runtime.OperationSelect, table, sql, args...)
}

// Select runs the relation's SELECT statement.
func (db *DB) Select(ctx context.Context, rel runtime.Relation) (pgx.Rows, error) {
	sql, args, err := rel.ToSQL()
	if err != nil {
		return nil, err
	}
	return db.query(ctx, runtime.OperationSelect, rel.Table(), sql, args...)
}

// First runs the relation limited to one row.
func (db *DB) First(ctx context.Context, rel runtime.Relation) pgx.Row {
	sql, args, err := rel.Limit(1).ToSQL()
	if err != nil {
		return errRow{err: err}
	}
	return db.queryRow(ctx, runtime.OperationFirst, rel.Table(), sql, args...)
}

// Count runs the relation's COUNT statement.
func (db *DB) Count(ctx context.Context, rel runtime.Relation) (int64, error) {
	sql, args, err := rel.CountSQL()
	if err != nil {
		return 0, err
	}
	var n int64
	if err := db.queryRow(ctx, runtime.OperationCount, rel.Table(), sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("pg: count %s: %w", rel.Table(), err)
	}
	return n, nil
}

func (db *DB) query(ctx context.Context, op runtime.QueryOperation, table, sql string, args ...any) (pgx.Rows, error) {
	obs := db.Observer.Observe(ctx, op, table, sql, args)
	if db.Pool == nil {
		err := fmt.Errorf("pg: pool unavailable")
		obs.End(err)
		return nil, err
	}
	rows, err := db.Pool.Query(obs.Context(), sql, args...)
	obs.End(err)
	return rows, err
}

func (db *DB) queryRow(ctx context.Context, op runtime.QueryOperation, table, sql string, args ...any) pgx.Row {
	obs := db.Observer.Observe(ctx, op, table, sql, args)
	if db.Pool == nil {
		err := fmt.Errorf("pg: pool unavailable")
		obs.End(err)
		return errRow{err: err}
	}
	return &observedRow{Row: db.Pool.QueryRow(obs.Context(), sql, args...), obs: obs}
}

// observedRow ends its observation once the row has been scanned.
type observedRow struct {
	pgx.Row
	obs  runtime.QueryObservation
	once sync.Once
}

func (r *observedRow) Scan(dest ...any) error {
	err := r.Row.Scan(dest...)
	r.once.Do(func() { r.obs.End(err) })
	return err
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

func newPoolConfig(url string, opts ...Option) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(cfg)
	}
	return cfg, nil
}

func applyDefaults(cfg *pgxpool.Config) {
	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnLifetime = time.Hour
}

// WithMaxConns sets the maximum pool size.
func WithMaxConns(n int32) Option {
	return func(cfg *pgxpool.Config) {
		cfg.MaxConns = n
	}
}

// WithMinConns sets the minimum pool size.
func WithMinConns(n int32) Option {
	return func(cfg *pgxpool.Config) {
		cfg.MinConns = n
	}
}

// WithPoolConfig applies a group of pool settings derived from configuration.
func WithPoolConfig(pc PoolConfig) Option {
	return func(cfg *pgxpool.Config) {
		if pc.MaxConns > 0 {
			cfg.MaxConns = pc.MaxConns
		}
		if pc.MinConns > 0 {
			cfg.MinConns = pc.MinConns
		}
		if pc.MaxConnLifetime > 0 {
			cfg.MaxConnLifetime = pc.MaxConnLifetime
		}
		if pc.MaxConnIdleTime > 0 {
			cfg.MaxConnIdleTime = pc.MaxConnIdleTime
		}
		if pc.HealthCheckPeriod > 0 {
			cfg.HealthCheckPeriod = pc.HealthCheckPeriod
		}
	}
}

// WithTracer enables pgx tracing using the provided tracer abstraction.
func WithTracer(tracer tracing.Tracer) Option {
	return func(cfg *pgxpool.Config) {
		if tracer == nil {
			cfg.ConnConfig.Tracer = nil
			return
		}
		cfg.ConnConfig.Tracer = newPGXTracer(tracer)
	}
}
