package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gochat/config"
	"gochat/internal/storage"
)

// Result holds the recorder and the storage connection behind it.
// The caller must call Close during shutdown.
type Result struct {
	Recorder Interface
	Storage  storage.Storage
}

// Close releases the recorder and then the storage. Safe to call multiple times.
func (r *Result) Close() error {
	var errs []error
	if r.Recorder != nil {
		if err := r.Recorder.Close(); err != nil {
			errs = append(errs, fmt.Errorf("recorder close: %w", err))
		}
	}
	if r.Storage != nil {
		if err := r.Storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage close: %w", err))
		}
		r.Storage = nil
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %w", errors.Join(errs...))
	}
	return nil
}

// New opens storage and starts a recorder. Disabled history yields a
// NoopRecorder with no storage.
func New(ctx context.Context, cfg *config.Config) (*Result, error) {
	if !cfg.History.Enabled {
		return &Result{Recorder: NoopRecorder{}}, nil
	}

	conn, err := storage.New(ctx, buildStorageConfig(cfg.Storage))
	if err != nil {
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}

	store, err := NewStore(ctx, conn, cfg.History.RetentionDays)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &Result{
		Recorder: NewRecorder(store, buildRecorderConfig(cfg.History)),
		Storage:  conn,
	}, nil
}

// NewStore creates the history Store for an open storage connection.
func NewStore(ctx context.Context, conn storage.Storage, retentionDays int) (Store, error) {
	switch conn.Type() {
	case storage.TypeSQLite:
		return NewSQLiteStore(conn.SQLiteDB(), retentionDays)
	case storage.TypePostgreSQL:
		return NewPostgreSQLStore(ctx, conn.PostgreSQLPool(), retentionDays)
	case storage.TypeMongoDB:
		return NewMongoDBStore(ctx, conn.MongoDatabase(), retentionDays)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", conn.Type())
	}
}

func buildStorageConfig(cfg config.StorageConfig) storage.Config {
	out := storage.DefaultConfig()
	if cfg.Type != "" {
		out.Type = cfg.Type
	}
	if cfg.SQLite.Path != "" {
		out.SQLite.Path = cfg.SQLite.Path
	}
	out.PostgreSQL.URL = cfg.PostgreSQL.URL
	if cfg.PostgreSQL.MaxConns > 0 {
		out.PostgreSQL.MaxConns = cfg.PostgreSQL.MaxConns
	}
	out.MongoDB.URL = cfg.MongoDB.URL
	if cfg.MongoDB.Database != "" {
		out.MongoDB.Database = cfg.MongoDB.Database
	}
	return out
}

func buildRecorderConfig(cfg config.HistoryConfig) Config {
	out := Config{
		Enabled:       cfg.Enabled,
		BufferSize:    cfg.BufferSize,
		FlushInterval: time.Duration(cfg.FlushInterval) * time.Second,
		RetentionDays: cfg.RetentionDays,
		LoadOnStart:   cfg.LoadOnStart,
	}
	def := DefaultConfig()
	if out.BufferSize <= 0 {
		out.BufferSize = def.BufferSize
	}
	if out.FlushInterval <= 0 {
		out.FlushInterval = def.FlushInterval
	}
	return out
}
