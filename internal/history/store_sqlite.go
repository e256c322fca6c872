package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"gochat/internal/core"
)

// SQLite binds at most 999 parameters per statement; each record uses 5.
const (
	maxSQLiteParams    = 999
	columnsPerRecord   = 5
	maxRecordsPerBatch = maxSQLiteParams / columnsPerRecord
)

// timeLayout has fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Store for SQLite databases.
type SQLiteStore struct {
	db            *sql.DB
	retentionDays int
	stopCleanup   chan struct{}
	closeOnce     sync.Once
}

// NewSQLiteStore creates the chat_history table if needed and starts the
// retention cleanup when configured.
func NewSQLiteStore(db *sql.DB, retentionDays int) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS ` + TableName + ` (
			id TEXT PRIMARY KEY,
			question TEXT NOT NULL,
			answer TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			recorded_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s table: %w", TableName, err)
	}
	if _, err := db.Exec("CREATE INDEX IF NOT EXISTS idx_chat_history_created_at ON " + TableName + "(created_at)"); err != nil {
		slog.Warn("failed to create index", "error", err)
	}

	store := &SQLiteStore{
		db:            db,
		retentionDays: retentionDays,
		stopCleanup:   make(chan struct{}),
	}
	if retentionDays > 0 {
		go RunCleanupLoop(store.stopCleanup, store.cleanup)
	}
	return store, nil
}

// WriteBatch inserts records in chunks that fit the parameter limit.
func (s *SQLiteStore) WriteBatch(ctx context.Context, records []*Record) error {
	for i := 0; i < len(records); i += maxRecordsPerBatch {
		end := min(i+maxRecordsPerBatch, len(records))
		chunk := records[i:end]

		placeholders := make([]string, len(chunk))
		values := make([]any, 0, len(chunk)*columnsPerRecord)
		for j, r := range chunk {
			placeholders[j] = "(?, ?, ?, ?, ?)"
			values = append(values,
				r.ID,
				r.Question,
				r.Answer,
				r.CreatedAt.UTC().Format(timeLayout),
				r.RecordedAt.UTC().Format(timeLayout),
			)
		}

		query := `INSERT OR IGNORE INTO ` + TableName + ` (id, question, answer, created_at, recorded_at) VALUES ` +
			strings.Join(placeholders, ",")
		if _, err := s.db.ExecContext(ctx, query, values...); err != nil {
			return fmt.Errorf("failed to insert history batch %d: %w", i/maxRecordsPerBatch, err)
		}
	}
	return nil
}

// List returns the most recent exchanges, oldest first.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]core.Exchange, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, question, answer, created_at FROM "+TableName+" ORDER BY created_at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var out []core.Exchange
	for rows.Next() {
		var ex core.Exchange
		var created string
		if err := rows.Scan(&ex.ID, &ex.Question, &ex.Answer, &created); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		if ex.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			slog.Warn("invalid history timestamp", "id", ex.ID, "value", created)
		}
		out = append(out, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history: %w", err)
	}
	return reverse(out), nil
}

// Flush is a no-op for SQLite as writes are synchronous.
func (s *SQLiteStore) Flush(_ context.Context) error {
	return nil
}

// Close stops the cleanup goroutine. The DB is owned by the storage layer.
func (s *SQLiteStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopCleanup)
	})
	return nil
}

func (s *SQLiteStore) cleanup() {
	cutoff := time.Now().AddDate(0, 0, -s.retentionDays).UTC().Format(timeLayout)

	result, err := s.db.Exec("DELETE FROM "+TableName+" WHERE created_at < ?", cutoff)
	if err != nil {
		slog.Error("failed to clean up old history", "error", err)
		return
	}
	if n, err := result.RowsAffected(); err == nil && n > 0 {
		slog.Info("cleaned up old history", "deleted", n)
	}
}
