package database

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrew/scoutchat/internal/database/models"
	"github.com/andrew/scoutchat/internal/ledger"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "nested", "scoutchat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNew_IsReentrant(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scoutchat.db")

	first, err := New(path)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := New(path)
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

func TestLedgerStore(t *testing.T) {
	ctx := context.Background()
	store := NewLedgerStore(newTestDB(t))
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("missing record", func(t *testing.T) {
		rec, err := store.Get(ctx, "nobody")
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("put and get", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, &ledger.Record{
			Identity:      "kid",
			TotalTokens:   500,
			EstimatedCost: 0.42,
			RequestCount:  2,
			LastUsed:      now,
			Blocked:       true,
		}))

		rec, err := store.Get(ctx, "kid")
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, int64(500), rec.TotalTokens)
		assert.InDelta(t, 0.42, rec.EstimatedCost, 1e-12)
		assert.Equal(t, int64(2), rec.RequestCount)
		assert.True(t, rec.LastUsed.Equal(now))
		assert.True(t, rec.Blocked)
	})

	t.Run("update with nil result leaves row", func(t *testing.T) {
		rec, err := store.Update(ctx, "kid", func(current *ledger.Record) (*ledger.Record, error) {
			require.NotNil(t, current)
			return nil, nil
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), rec.RequestCount)
	})

	t.Run("list", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, &ledger.Record{Identity: "later", LastUsed: now.Add(time.Hour)}))

		records, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "later", records[0].Identity)
		assert.Equal(t, "kid", records[1].Identity)
	})
}

func TestLedgerStore_ConcurrentRecordUsage(t *testing.T) {
	ctx := context.Background()
	l := ledger.New(NewLedgerStore(newTestDB(t)), ledger.Config{})

	const writers = 25
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.RecordUsage(ctx, "shared", 100, 10)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	summary, err := l.Summarize(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, int64(writers), summary.RequestCount)
	assert.InDelta(t, l.CalculateCost(100*writers, 10*writers), summary.Used, 1e-9)
}

func TestUsageEvents(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	errMsg := "provider timeout"
	events := []*models.UsageEvent{
		{Identity: "kid", Timestamp: base, Model: "claude", InputTokens: 100, OutputTokens: 20, UsageReported: true, Cost: 0.0006, Outcome: models.OutcomeOK},
		{Identity: "kid", Timestamp: base.Add(time.Minute), Model: "claude", Outcome: models.OutcomeFallback, ErrorMessage: &errMsg},
		{Identity: "kid", Timestamp: base.Add(2 * time.Minute), Outcome: models.OutcomeBlocked},
		{Identity: "other", Timestamp: base, Model: "claude", InputTokens: 5, Outcome: models.OutcomeOK},
	}
	for _, e := range events {
		require.NoError(t, db.CreateUsageEvent(ctx, e))
		assert.NotZero(t, e.ID)
	}

	t.Run("list newest first", func(t *testing.T) {
		got, err := db.GetUsageEvents(ctx, "kid", 10, 0, nil, nil)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, models.OutcomeBlocked, got[0].Outcome)
		assert.Equal(t, models.OutcomeOK, got[2].Outcome)
		require.NotNil(t, got[1].ErrorMessage)
		assert.Equal(t, errMsg, *got[1].ErrorMessage)
		assert.True(t, got[2].UsageReported)
	})

	t.Run("time filter", func(t *testing.T) {
		start := base.Add(30 * time.Second)
		got, err := db.GetUsageEvents(ctx, "kid", 10, 0, &start, nil)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("stats", func(t *testing.T) {
		stats, err := db.GetUsageStats(ctx, "kid", nil, nil)
		require.NoError(t, err)
		assert.Equal(t, 3, stats.TotalRequests)
		assert.Equal(t, int64(100), stats.InputTokens)
		assert.Equal(t, int64(20), stats.OutputTokens)
		assert.InDelta(t, 0.0006, stats.TotalCost, 1e-12)
		assert.Equal(t, 1, stats.ByOutcome[models.OutcomeFallback])
		assert.Equal(t, 2, stats.ByModel["claude"])
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, db.DeleteUsageEventsByIdentity(ctx, "kid"))
		got, err := db.GetUsageEvents(ctx, "kid", 10, 0, nil, nil)
		require.NoError(t, err)
		assert.Empty(t, got)

		other, err := db.GetUsageEvents(ctx, "other", 10, 0, nil, nil)
		require.NoError(t, err)
		assert.Len(t, other, 1)
	})
}
