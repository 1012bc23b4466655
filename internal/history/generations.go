package history

import (
	"context"
	"fmt"
	"time"

	"github.com/itsChris/qrgen/internal/logging"
)

// Entry represents a row in the generations table.
type Entry struct {
	ID         int64
	RunID      string
	Content    string
	OutputPath string
	Format     string
	Encoder    string
	Level      string
	Width      int
	Height     int
	Bytes      int64
	CreatedAt  time.Time
}

// Record inserts a generation entry and returns its ID. An empty RunID is
// taken from the context.
func (s *Store) Record(ctx context.Context, e *Entry) (int64, error) {
	runID := e.RunID
	if runID == "" {
		runID = logging.RunID(ctx)
	}
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	result, err := s.execContext(ctx, `
		INSERT INTO generations
			(run_id, content, output_path, format, encoder, level, width, height, bytes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, e.Content, e.OutputPath, e.Format, e.Encoder, e.Level,
		e.Width, e.Height, e.Bytes, createdAt.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("history: insert generation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("history: last insert id: %w", err)
	}
	return id, nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.queryContext(ctx, `
		SELECT id, run_id, content, output_path, format, encoder, level,
		       width, height, bytes, created_at
		FROM generations
		ORDER BY created_at DESC, id DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("history: list generations: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var ts int64
		if err := rows.Scan(&e.ID, &e.RunID, &e.Content, &e.OutputPath, &e.Format,
			&e.Encoder, &e.Level, &e.Width, &e.Height, &e.Bytes, &ts); err != nil {
			return nil, fmt.Errorf("history: scan generation: %w", err)
		}
		e.CreatedAt = time.Unix(ts, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of recorded generations.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.queryRowScan(ctx, "SELECT COUNT(*) FROM generations", nil, &n); err != nil {
		return 0, fmt.Errorf("history: count generations: %w", err)
	}
	return n, nil
}
