package task

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresStoreConfig controls the Postgres connection pool backing the
// task store.
type PostgresStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// PostgresStore persists tasks in Postgres.
//
// Expected schema:
//
//	CREATE TABLE tasks (
//		id UUID PRIMARY KEY,
//		site TEXT NOT NULL,
//		comicid TEXT NOT NULL,
//		chapters TEXT NOT NULL,
//		params_hash TEXT NOT NULL,
//		status TEXT NOT NULL,
//		message TEXT NOT NULL DEFAULT '',
//		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
//	CREATE INDEX tasks_params_hash_idx ON tasks (params_hash, created_at DESC);
type PostgresStore struct {
	pool  pgxPool
	table string
}

// NewPostgresStore creates a Postgres-backed Store using the provided config.
func NewPostgresStore(ctx context.Context, cfg PostgresStoreConfig) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "tasks"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &PostgresStore{pool: pool, table: table}, nil
}

// NewPostgresStoreWithPool constructs a store from an existing pool
// (primarily for testing).
func NewPostgresStoreWithPool(pool pgxPool, table string) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "tasks"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &PostgresStore{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *PostgresStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Create inserts a new task.
func (s *PostgresStore) Create(ctx context.Context, t Task) error {
	if t.ID == "" {
		return fmt.Errorf("task id is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (id, site, comicid, chapters, params_hash, status, message)
VALUES ($1, $2, $3, $4, $5, $6, $7)`, s.table)
	if _, err := s.pool.Exec(ctx, query,
		t.ID, t.Site, t.ComicID, t.Chapters, t.ParamsHash, t.Status, t.Message,
	); err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// Get fetches a task by id.
func (s *PostgresStore) Get(ctx context.Context, id string) (Task, error) {
	query := fmt.Sprintf(`
SELECT id, site, comicid, chapters, params_hash, status, message, created_at, updated_at
FROM %s WHERE id = $1`, s.table)
	t, err := scanTask(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	if err != nil {
		return Task{}, fmt.Errorf("select task: %w", err)
	}
	return t, nil
}

// FindByHash returns the newest task with the given parameter hash.
func (s *PostgresStore) FindByHash(ctx context.Context, hash string) (Task, bool, error) {
	query := fmt.Sprintf(`
SELECT id, site, comicid, chapters, params_hash, status, message, created_at, updated_at
FROM %s WHERE params_hash = $1 ORDER BY created_at DESC LIMIT 1`, s.table)
	t, err := scanTask(s.pool.QueryRow(ctx, query, hash))
	if errors.Is(err, pgx.ErrNoRows) {
		return Task{}, false, nil
	}
	if err != nil {
		return Task{}, false, fmt.Errorf("select task by hash: %w", err)
	}
	return t, true, nil
}

// UpdateStatus moves a task to status, recording a message.
func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, status Status, message string) error {
	query := fmt.Sprintf(`
UPDATE %s SET status = $2, message = $3, updated_at = NOW() WHERE id = $1`, s.table)
	tag, err := s.pool.Exec(ctx, query, id, status, message)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns the newest tasks, capped at limit.
func (s *PostgresStore) List(ctx context.Context, limit int) ([]Task, error) {
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`
SELECT id, site, comicid, chapters, params_hash, status, message, created_at, updated_at
FROM %s ORDER BY created_at DESC LIMIT $1`, s.table)
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task row: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate task rows: %w", err)
	}
	return out, nil
}

func scanTask(row pgx.Row) (Task, error) {
	var t Task
	err := row.Scan(&t.ID, &t.Site, &t.ComicID, &t.Chapters, &t.ParamsHash,
		&t.Status, &t.Message, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}
