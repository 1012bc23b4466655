package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/itsChris/qrgen/internal/logging"
	_ "modernc.org/sqlite"
)

const slowQueryThreshold = 100 * time.Millisecond

// Store wraps a SQLite database holding the generation history.
type Store struct {
	conn    *sql.DB
	logger  *slog.Logger
	devMode bool
}

// Open opens a SQLite database and configures WAL mode and busy timeout.
// The parent directory of dsn must exist.
func Open(ctx context.Context, dsn string, logger *slog.Logger, devMode bool) (*Store, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", dsn, err)
	}

	// Single writer connection for SQLite.
	conn.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := conn.ExecContext(ctx, p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("history: exec %q: %w", p, err)
		}
	}

	logger.Debug("history_opened",
		"dsn", dsn,
		"component", "history",
	)

	return &Store{
		conn:    conn,
		logger:  logger,
		devMode: devMode,
	}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) execContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	result, err := s.conn.ExecContext(ctx, query, args...)
	s.logQuery(ctx, "exec", query, args, time.Since(start), err)
	return result, err
}

func (s *Store) queryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := s.conn.QueryContext(ctx, query, args...)
	s.logQuery(ctx, "query", query, args, time.Since(start), err)
	return rows, err
}

func (s *Store) queryRowScan(ctx context.Context, query string, args []any, dest ...any) error {
	start := time.Now()
	err := s.conn.QueryRowContext(ctx, query, args...).Scan(dest...)
	s.logQuery(ctx, "query_row", query, args, time.Since(start), err)
	return err
}

func (s *Store) logQuery(ctx context.Context, op, query string, args []any, duration time.Duration, err error) {
	runID := logging.RunID(ctx)

	if s.devMode {
		s.logger.Debug("sql_"+op,
			"run_id", runID,
			"query", query,
			"args", fmt.Sprintf("%v", args),
			"duration_ms", duration.Milliseconds(),
			"error", err,
			"component", "history",
		)
	}

	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		s.logger.Error("sql_"+op+"_failed",
			"run_id", runID,
			"query", query,
			"error", err,
			"error_type", fmt.Sprintf("%T", err),
			"duration_ms", duration.Milliseconds(),
			"component", "history",
		)
	}

	if duration > slowQueryThreshold {
		s.logger.Warn("slow_query",
			"run_id", runID,
			"query", query,
			"duration_ms", duration.Milliseconds(),
			"component", "history",
		)
	}
}
