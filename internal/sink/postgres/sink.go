// Package postgressink upserts chart entries into a Postgres table keyed by
// link.
package postgressink

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/JakeFAU/sdvx-chart-sync/internal/chart"
	"github.com/JakeFAU/sdvx-chart-sync/internal/logging"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool and target table.
type Config struct {
	DSN      string
	Table    string
	MaxConns int32
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// Sink implements chart.Sink with INSERT ... ON CONFLICT (link).
type Sink struct {
	pool      execCloser
	table     string
	closeOnce sync.Once
	logger    *zap.Logger
}

var _ chart.Sink = (*Sink)(nil)

// New connects to Postgres and ensures the table exists.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Sink, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s, err := NewWithPool(pool, cfg.Table, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewWithPool constructs a sink from an existing pool (primarily for testing).
func NewWithPool(pool execCloser, table string, logger *zap.Logger) (*Sink, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "chart_entries"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Sink{pool: pool, table: table, logger: logging.Named(logger, "sink.postgres")}, nil
}

// EnsureSchema creates the entries table when it is missing.
func (s *Sink) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	link       TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	level      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// Accept inserts entry or refreshes the name and level of the existing row.
func (s *Sink) Accept(ctx context.Context, entry chart.Entry) error {
	query := fmt.Sprintf(`
INSERT INTO %s (link, name, level, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (link) DO UPDATE SET
	name = EXCLUDED.name,
	level = EXCLUDED.level,
	updated_at = EXCLUDED.updated_at`, s.table)

	tag, err := s.pool.Exec(ctx, query, entry.Link, entry.Name, entry.Level, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert %s: %w", entry.Link, err)
	}
	s.logger.Debug("entry upserted",
		zap.String("name", entry.Name),
		zap.String("level", entry.Level),
		zap.Int64("rows", tag.RowsAffected()),
	)
	return nil
}

// Finalize releases the pool.
func (s *Sink) Finalize(context.Context) error {
	return s.Close()
}

// Close releases the pool. It is safe to call more than once and after
// Finalize.
func (s *Sink) Close() error {
	s.closeOnce.Do(s.pool.Close)
	return nil
}
