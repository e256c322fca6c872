// Package history persists finalized exchanges so conversations survive
// restarts. Writes are buffered and flushed in batches in the background.
package history

import (
	"context"
	"errors"
	"time"

	"gochat/internal/core"
)

// TableName is the SQL table and MongoDB collection holding history.
const TableName = "chat_history"

// ErrClosed is returned by Add after the recorder has been closed.
var ErrClosed = errors.New("history recorder is closed")

// ErrBufferFull is returned by Add when the pending queue is full and the
// exchange was dropped.
var ErrBufferFull = errors.New("history buffer full")

// Record is the persisted form of an exchange.
type Record struct {
	ID         string    `json:"id" bson:"_id"`
	Question   string    `json:"question" bson:"question"`
	Answer     string    `json:"answer" bson:"answer"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
	RecordedAt time.Time `json:"recorded_at" bson:"recorded_at"`
}

// NewRecord stamps an exchange with the current time.
func NewRecord(ex core.Exchange) *Record {
	return &Record{
		ID:         ex.ID,
		Question:   ex.Question,
		Answer:     ex.Answer,
		CreatedAt:  ex.CreatedAt.UTC(),
		RecordedAt: time.Now().UTC(),
	}
}

// Exchange converts the record back to a session exchange.
func (r *Record) Exchange() core.Exchange {
	return core.Exchange{
		ID:        r.ID,
		Question:  r.Question,
		Answer:    r.Answer,
		CreatedAt: r.CreatedAt,
	}
}

// Store is a history backend. Writing an ID that already exists is a no-op.
type Store interface {
	WriteBatch(ctx context.Context, records []*Record) error

	// List returns up to limit of the most recent exchanges, oldest first.
	// A limit <= 0 returns everything.
	List(ctx context.Context, limit int) ([]core.Exchange, error)

	Flush(ctx context.Context) error
	Close() error
}

// Config controls the recorder.
type Config struct {
	Enabled       bool
	BufferSize    int
	FlushInterval time.Duration
	// RetentionDays deletes records older than this many days (0 keeps everything).
	RetentionDays int
	// LoadOnStart is how many recent exchanges seed a new session (0 disables).
	LoadOnStart int
}

// DefaultConfig returns the recorder defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:       true,
		BufferSize:    1000,
		FlushInterval: 5 * time.Second,
		LoadOnStart:   20,
	}
}

// reverse flips newest-first query results into conversation order.
func reverse(exchanges []core.Exchange) []core.Exchange {
	for i, j := 0, len(exchanges)-1; i < j; i, j = i+1, j-1 {
		exchanges[i], exchanges[j] = exchanges[j], exchanges[i]
	}
	return exchanges
}
