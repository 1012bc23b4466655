package history

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate runs all embedded SQL migration files against the store.
// Migrations are tracked in a _migrations table and only applied once.
func Migrate(ctx context.Context, s *Store, logger *slog.Logger) error {
	_, err := s.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS _migrations (
			filename TEXT PRIMARY KEY,
			applied_at INTEGER NOT NULL DEFAULT (unixepoch())
		)
	`)
	if err != nil {
		return fmt.Errorf("history: create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("history: read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		var count int
		err := s.conn.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM _migrations WHERE filename = ?",
			entry.Name(),
		).Scan(&count)
		if err != nil {
			return fmt.Errorf("history: check migration %s: %w", entry.Name(), err)
		}
		if count > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("history: read migration %s: %w", entry.Name(), err)
		}

		if _, err := s.conn.ExecContext(ctx, extractUpSection(string(content))); err != nil {
			return fmt.Errorf("history: apply migration %s: %w", entry.Name(), err)
		}

		if _, err := s.conn.ExecContext(ctx,
			"INSERT INTO _migrations (filename) VALUES (?)",
			entry.Name(),
		); err != nil {
			return fmt.Errorf("history: record migration %s: %w", entry.Name(), err)
		}

		logger.Debug("migration_applied",
			"filename", entry.Name(),
			"component", "history",
		)
	}

	return nil
}

// extractUpSection returns the goose "Up" part of a migration, or the
// whole file when it carries no goose directives.
func extractUpSection(sql string) string {
	upIdx := strings.Index(sql, "-- +goose Up")
	downIdx := strings.Index(sql, "-- +goose Down")

	if upIdx == -1 {
		return sql
	}

	start := upIdx + len("-- +goose Up")
	if downIdx == -1 {
		return strings.TrimSpace(sql[start:])
	}

	return strings.TrimSpace(sql[start:downIdx])
}
