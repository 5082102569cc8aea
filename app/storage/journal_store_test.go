package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/IamSpotted/ITSF-Agent/app/domains"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJournal(t *testing.T) *JournalStore {
	t.Helper()
	store, err := NewJournalStore(filepath.Join(t.TempDir(), "journal", "agent.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestJournalRecordAndList(t *testing.T) {
	ctx := context.Background()
	store := newJournal(t)

	base := time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)
	_, err := store.RecordAttempt(ctx, domains.SyncAttempt{
		RunID:      uuid.NewString(),
		Hostname:   "WS-01",
		Outcome:    domains.OutcomeInserted,
		StartedAt:  base,
		FinishedAt: base.Add(time.Second),
	})
	require.NoError(t, err)

	msg := "repository: connection refused"
	_, err = store.RecordAttempt(ctx, domains.SyncAttempt{
		RunID:      uuid.NewString(),
		Hostname:   "WS-01",
		Outcome:    domains.OutcomeUpdated,
		Changes:    []domains.FieldChange{{Field: "total_ram_gb", Old: float64(16), New: float64(32)}},
		Error:      &msg,
		StartedAt:  base.Add(time.Hour),
		FinishedAt: base.Add(time.Hour + time.Second),
	})
	require.NoError(t, err)

	attempts, err := store.ListAttempts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, attempts, 2)

	assert.Equal(t, domains.OutcomeUpdated, attempts[0].Outcome)
	require.Len(t, attempts[0].Changes, 1)
	assert.Equal(t, "total_ram_gb", attempts[0].Changes[0].Field)
	assert.Equal(t, float64(32), attempts[0].Changes[0].New)
	require.NotNil(t, attempts[0].Error)
	assert.Equal(t, msg, *attempts[0].Error)
	assert.True(t, attempts[0].StartedAt.Equal(base.Add(time.Hour)))

	assert.Equal(t, domains.OutcomeInserted, attempts[1].Outcome)
	assert.Nil(t, attempts[1].Error)
	assert.Empty(t, attempts[1].Changes)
}

func TestJournalListLimit(t *testing.T) {
	ctx := context.Background()
	store := newJournal(t)

	now := time.Now()
	for i := 0; i < 5; i++ {
		_, err := store.RecordAttempt(ctx, domains.SyncAttempt{
			RunID: uuid.NewString(), Hostname: "WS-01", Outcome: domains.OutcomeTouched,
			StartedAt: now.Add(time.Duration(i) * time.Minute), FinishedAt: now,
		})
		require.NoError(t, err)
	}

	attempts, err := store.ListAttempts(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, attempts, 3)
}

func TestJournalRejectsUnknownOutcome(t *testing.T) {
	store := newJournal(t)
	_, err := store.RecordAttempt(context.Background(), domains.SyncAttempt{
		RunID: uuid.NewString(), Hostname: "WS-01", Outcome: "exploded",
		StartedAt: time.Now(), FinishedAt: time.Now(),
	})
	require.Error(t, err)
}

func TestJournalCleanup(t *testing.T) {
	ctx := context.Background()
	store := newJournal(t)

	now := time.Now()
	for _, age := range []time.Duration{40 * 24 * time.Hour, 31 * 24 * time.Hour, time.Hour} {
		_, err := store.RecordAttempt(ctx, domains.SyncAttempt{
			RunID: uuid.NewString(), Hostname: "WS-01", Outcome: domains.OutcomeTouched,
			StartedAt: now.Add(-age), FinishedAt: now.Add(-age),
		})
		require.NoError(t, err)
	}

	removed, err := store.CleanupAttempts(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	attempts, err := store.ListAttempts(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, attempts, 1)
}
