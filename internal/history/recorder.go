package history

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"gochat/internal/core"
)

const batchSize = 100

// Recorder queues exchanges and writes them to a Store in batches, either
// when a batch fills or on every flush interval.
type Recorder struct {
	store  Store
	config Config
	buffer chan *Record
	flushc chan chan struct{}
	done   chan struct{}
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewRecorder starts the background flush loop.
func NewRecorder(store Store, cfg Config) *Recorder {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultConfig().BufferSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultConfig().FlushInterval
	}

	r := &Recorder{
		store:  store,
		config: cfg,
		buffer: make(chan *Record, cfg.BufferSize),
		flushc: make(chan chan struct{}),
		done:   make(chan struct{}),
	}

	r.wg.Add(1)
	go r.flushLoop()

	return r
}

// Add queues an exchange without blocking. A full buffer drops the exchange.
func (r *Recorder) Add(_ context.Context, ex core.Exchange) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ErrClosed
	}

	select {
	case r.buffer <- NewRecord(ex):
		return nil
	default:
		slog.Warn("history buffer full, dropping exchange", "exchange_id", ex.ID)
		return ErrBufferFull
	}
}

// Flush writes everything queued so far and waits for it to complete.
func (r *Recorder) Flush(ctx context.Context) error {
	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return nil
	}

	ack := make(chan struct{})
	select {
	case r.flushc <- ack:
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ack:
		return r.store.Flush(ctx)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// List flushes pending exchanges and returns the most recent ones, oldest first.
func (r *Recorder) List(ctx context.Context, limit int) ([]core.Exchange, error) {
	if err := r.Flush(ctx); err != nil {
		return nil, err
	}
	return r.store.List(ctx, limit)
}

// Config returns the recorder configuration
func (r *Recorder) Config() Config {
	return r.config
}

// Close drains the queue, flushes and closes the store. Safe to call more than once.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.done)
	r.mu.Unlock()

	r.wg.Wait()
	return r.store.Close()
}

func (r *Recorder) flushLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.FlushInterval)
	defer ticker.Stop()

	batch := make([]*Record, 0, batchSize)
	flush := func() {
		if len(batch) > 0 {
			r.writeBatch(batch)
			batch = make([]*Record, 0, batchSize)
		}
	}
	drain := func() {
		for {
			select {
			case rec := <-r.buffer:
				batch = append(batch, rec)
			default:
				return
			}
		}
	}

	for {
		select {
		case rec := <-r.buffer:
			batch = append(batch, rec)
			if len(batch) >= batchSize {
				flush()
			}

		case <-ticker.C:
			flush()

		case ack := <-r.flushc:
			drain()
			flush()
			close(ack)

		case <-r.done:
			// Add no longer sends once closed is set, so the buffer can be drained safely.
			drain()
			flush()
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := r.store.Flush(ctx); err != nil {
				slog.Error("failed to flush history store", "error", err)
			}
			cancel()
			return
		}
	}
}

func (r *Recorder) writeBatch(batch []*Record) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := r.store.WriteBatch(ctx, batch); err != nil {
		slog.Error("failed to write history batch",
			"error", err,
			"count", len(batch),
		)
	}
}

// NoopRecorder discards exchanges (used when history is disabled)
type NoopRecorder struct{}

func (NoopRecorder) Add(context.Context, core.Exchange) error { return nil }

func (NoopRecorder) List(context.Context, int) ([]core.Exchange, error) { return nil, nil }

func (NoopRecorder) Close() error { return nil }

// Interface is implemented by Recorder and NoopRecorder.
type Interface interface {
	Add(ctx context.Context, ex core.Exchange) error
	List(ctx context.Context, limit int) ([]core.Exchange, error)
	Close() error
}
