package history

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gochat/internal/core"
)

type memoryStore struct {
	mu      sync.Mutex
	records []*Record
	batches int
	closed  bool
	block   chan struct{}
}

func (m *memoryStore) WriteBatch(_ context.Context, records []*Record) error {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, records...)
	m.batches++
	return nil
}

func (m *memoryStore) List(_ context.Context, limit int) ([]core.Exchange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.Exchange, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r.Exchange())
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *memoryStore) Flush(context.Context) error { return nil }

func (m *memoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *memoryStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func TestRecorder_FlushesOnClose(t *testing.T) {
	store := &memoryStore{}
	r := NewRecorder(store, Config{FlushInterval: time.Hour})

	for i := 0; i < 5; i++ {
		require.NoError(t, r.Add(context.Background(), core.NewExchange(fmt.Sprint(i))))
	}
	require.NoError(t, r.Close())

	assert.Equal(t, 5, store.count())
	assert.True(t, store.closed)
}

func TestRecorder_FlushesFullBatch(t *testing.T) {
	store := &memoryStore{}
	r := NewRecorder(store, Config{FlushInterval: time.Hour})
	defer r.Close()

	for i := 0; i < batchSize; i++ {
		require.NoError(t, r.Add(context.Background(), core.NewExchange(fmt.Sprint(i))))
	}
	assert.Eventually(t, func() bool { return store.count() == batchSize }, 2*time.Second, 5*time.Millisecond)
}

func TestRecorder_FlushesOnInterval(t *testing.T) {
	store := &memoryStore{}
	r := NewRecorder(store, Config{FlushInterval: 10 * time.Millisecond})
	defer r.Close()

	require.NoError(t, r.Add(context.Background(), core.NewExchange("q")))
	assert.Eventually(t, func() bool { return store.count() == 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestRecorder_ListSeesPendingExchanges(t *testing.T) {
	store := &memoryStore{}
	r := NewRecorder(store, Config{FlushInterval: time.Hour})
	defer r.Close()

	ex := core.NewExchange("2+2?")
	ex.Answer = "4"
	require.NoError(t, r.Add(context.Background(), ex))

	list, err := r.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, ex.ID, list[0].ID)
	assert.Equal(t, "4", list[0].Answer)
}

func TestRecorder_BufferFull(t *testing.T) {
	store := &memoryStore{block: make(chan struct{})}
	r := NewRecorder(store, Config{BufferSize: 1, FlushInterval: time.Millisecond})

	assert.Eventually(t, func() bool {
		return errors.Is(r.Add(context.Background(), core.NewExchange("q")), ErrBufferFull)
	}, 2*time.Second, time.Millisecond)

	close(store.block)
	require.NoError(t, r.Close())
}

func TestRecorder_AddAfterClose(t *testing.T) {
	r := NewRecorder(&memoryStore{}, Config{})
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	err := r.Add(context.Background(), core.NewExchange("late"))
	assert.True(t, errors.Is(err, ErrClosed))
	assert.NoError(t, r.Flush(context.Background()))
}

func TestRecorder_ConcurrentAddAndClose(t *testing.T) {
	store := &memoryStore{}
	r := NewRecorder(store, Config{BufferSize: 10000, FlushInterval: time.Millisecond})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = r.Add(context.Background(), core.NewExchange("q"))
			}
		}()
	}
	time.Sleep(time.Millisecond)
	require.NoError(t, r.Close())
	wg.Wait()
}

func TestNoopRecorder(t *testing.T) {
	var r Interface = NoopRecorder{}
	require.NoError(t, r.Add(context.Background(), core.NewExchange("q")))
	list, err := r.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, list)
	require.NoError(t, r.Close())
}
