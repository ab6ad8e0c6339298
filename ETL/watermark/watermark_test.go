package watermark

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LilVoxy/finance_etl/ETL/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sqlx.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	store, err := NewStore(db)
	require.NoError(t, err)
	store.now = func() time.Time { return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC) }
	return store
}

func day(s string) time.Time {
	ts, _ := time.Parse("2006-01-02", s)
	return ts
}

func TestStorePutGet(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, ok, err := store.Get(ctx, "silver_to_gold")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Put(ctx, "silver_to_gold", day("2014-06-01"), 10, "abc"))
	ts, ok, err := store.Get(ctx, "silver_to_gold")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, day("2014-06-01"), ts)

	mark, err := store.GetMark(ctx, "silver_to_gold")
	require.NoError(t, err)
	assert.Equal(t, "2014-06-01T00:00:00", mark.LastTimestamp)
	assert.Equal(t, 10, mark.Processed)
	assert.Equal(t, "2024-01-01T12:00:00", mark.UpdatedAt)

	t.Run("same timestamp is allowed", func(t *testing.T) {
		assert.NoError(t, store.Put(ctx, "silver_to_gold", day("2014-06-01"), 0, "abc"))
	})

	t.Run("regression is rejected", func(t *testing.T) {
		err := store.Put(ctx, "silver_to_gold", day("2014-01-01"), 5, "def")
		assert.ErrorIs(t, err, ErrRegression)
		ts, _, _ := store.Get(ctx, "silver_to_gold")
		assert.Equal(t, day("2014-06-01"), ts)
	})

	t.Run("reset clears the mark", func(t *testing.T) {
		require.NoError(t, store.Reset(ctx, "silver_to_gold"))
		_, ok, err := store.Get(ctx, "silver_to_gold")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestIncrementalDelta(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	incremental := NewIncremental(store, nil)

	records := []models.FinancialRecord{
		{Country: "Canada", Date: "2014-01-01"},
		{Country: "France", Date: "2014-02-01"},
		{Country: "Mexico", Date: "2014-03-01"},
	}

	delta, pending, err := incremental.Delta(ctx, "p", records)
	require.NoError(t, err)
	assert.Len(t, delta, 3)
	require.NotNil(t, pending)
	assert.Equal(t, day("2014-03-01"), pending.Timestamp)
	assert.Equal(t, 3, pending.Count)
	assert.Len(t, pending.Hash, 64)

	// Без фиксации водяной знак не двигается
	again, _, err := incremental.Delta(ctx, "p", records)
	require.NoError(t, err)
	assert.Len(t, again, 3)

	require.NoError(t, incremental.Commit(ctx, pending))

	records = append(records, models.FinancialRecord{Country: "Germany", Date: "2014-04-01"})
	delta, pending, err = incremental.Delta(ctx, "p", records)
	require.NoError(t, err)
	require.Len(t, delta, 1)
	assert.Equal(t, "Germany", delta[0].Country)
	require.NotNil(t, pending)
	require.NoError(t, incremental.Commit(ctx, pending))

	delta, pending, err = incremental.Delta(ctx, "p", records)
	require.NoError(t, err)
	assert.Empty(t, delta)
	assert.Nil(t, pending)
	assert.NoError(t, incremental.Commit(ctx, pending))

	marks, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, marks, 1)
	assert.Equal(t, "2014-04-01T00:00:00", marks[0].LastTimestamp)
}

func TestHashRecordsIsOrderSensitive(t *testing.T) {
	a := models.FinancialRecord{Country: "Canada"}
	b := models.FinancialRecord{Country: "France"}

	assert.Equal(t, HashRecords([]models.FinancialRecord{a, b}), HashRecords([]models.FinancialRecord{a, b}))
	assert.NotEqual(t, HashRecords([]models.FinancialRecord{a, b}), HashRecords([]models.FinancialRecord{b, a}))
}
