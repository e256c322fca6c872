package history

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"gochat/internal/core"
)

func createTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func exchangeAt(id string, at time.Time) core.Exchange {
	return core.Exchange{ID: id, Question: "q-" + id, Answer: "a-" + id, CreatedAt: at}
}

func TestSQLiteStore_WriteAndList(t *testing.T) {
	store, err := NewSQLiteStore(createTestDB(t), 0)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	records := []*Record{
		NewRecord(exchangeAt("b", base.Add(time.Second))),
		NewRecord(exchangeAt("a", base)),
		NewRecord(exchangeAt("c", base.Add(1500*time.Millisecond))),
	}
	require.NoError(t, store.WriteBatch(ctx, records))

	all, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"a", "b", "c"}, ids(all))
	assert.Equal(t, "a-a", all[0].Answer)
	assert.True(t, all[0].CreatedAt.Equal(base))

	recent, err := store.List(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, ids(recent))
}

func TestSQLiteStore_DuplicateIDsIgnored(t *testing.T) {
	store, err := NewSQLiteStore(createTestDB(t), 0)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	ex := exchangeAt("dup", time.Now())
	require.NoError(t, store.WriteBatch(ctx, []*Record{NewRecord(ex)}))
	ex.Answer = "changed"
	require.NoError(t, store.WriteBatch(ctx, []*Record{NewRecord(ex)}))

	all, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "a-dup", all[0].Answer)
}

func TestSQLiteStore_LargeBatchIsChunked(t *testing.T) {
	store, err := NewSQLiteStore(createTestDB(t), 0)
	require.NoError(t, err)
	defer store.Close()

	base := time.Now()
	records := make([]*Record, maxRecordsPerBatch*2+7)
	for i := range records {
		records[i] = NewRecord(exchangeAt(fmt.Sprintf("ex-%04d", i), base.Add(time.Duration(i)*time.Millisecond)))
	}
	require.NoError(t, store.WriteBatch(context.Background(), records))

	all, err := store.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, all, len(records))
	assert.Equal(t, "ex-0000", all[0].ID)
}

func TestSQLiteStore_Cleanup(t *testing.T) {
	db := createTestDB(t)
	store, err := NewSQLiteStore(db, 0)
	require.NoError(t, err)
	defer store.Close()
	store.retentionDays = 7

	ctx := context.Background()
	require.NoError(t, store.WriteBatch(ctx, []*Record{
		NewRecord(exchangeAt("old", time.Now().AddDate(0, 0, -30))),
		NewRecord(exchangeAt("new", time.Now())),
	}))

	store.cleanup()

	all, err := store.List(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, ids(all))
}

func TestSQLiteStore_CloseIsIdempotent(t *testing.T) {
	store, err := NewSQLiteStore(createTestDB(t), 1)
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}

func TestNewSQLiteStore_NilDB(t *testing.T) {
	_, err := NewSQLiteStore(nil, 0)
	require.Error(t, err)
}

func ids(exchanges []core.Exchange) []string {
	out := make([]string, len(exchanges))
	for i, ex := range exchanges {
		out[i] = ex.ID
	}
	return out
}
