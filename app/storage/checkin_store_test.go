package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/IamSpotted/ITSF-Agent/app/domains"
	"github.com/IamSpotted/ITSF-Agent/app/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCheckInStore(t *testing.T) *CheckInStore {
	t.Helper()
	store, err := NewCheckInStore(t.TempDir(), logger.NewTestLogger())
	require.NoError(t, err)
	return store
}

func TestCheckInStoreLoadMissing(t *testing.T) {
	store := newCheckInStore(t)
	assert.Nil(t, store.Load())
}

func TestCheckInStoreRoundTrip(t *testing.T) {
	store := newCheckInStore(t)
	ts := time.Date(2024, 5, 1, 9, 30, 0, 0, time.FixedZone("CEST", 2*3600))

	require.NoError(t, store.Save(domains.CheckIn{LastCheckIn: &ts, Hostname: "WS-01", AgentVersion: "1.2.0"}))

	got := store.Load()
	require.NotNil(t, got)
	require.NotNil(t, got.LastCheckIn)
	assert.True(t, got.LastCheckIn.Equal(ts))
	assert.Equal(t, time.UTC, got.LastCheckIn.Location())
	assert.Equal(t, "WS-01", got.Hostname)
	assert.Equal(t, "1.2.0", got.AgentVersion)
}

func TestCheckInStoreFileFormat(t *testing.T) {
	store := newCheckInStore(t)
	ts := time.Date(2024, 5, 1, 7, 30, 0, 0, time.UTC)
	require.NoError(t, store.Save(domains.CheckIn{LastCheckIn: &ts, Hostname: "WS-01", AgentVersion: "1.0.0"}))

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.JSONEq(t, `{"lastCheckIn":"2024-05-01T07:30:00Z","hostname":"WS-01","agentVersion":"1.0.0"}`, string(raw))
}

func TestCheckInStoreCorruptFileIsNeverCheckedIn(t *testing.T) {
	store := newCheckInStore(t)
	require.NoError(t, os.WriteFile(store.Path(), []byte(`{"lastCheckIn": "2024-05-01T07:3`), 0o600))

	assert.Nil(t, store.Load())
}

func TestCheckInStoreFutureTimestampIsNeverCheckedIn(t *testing.T) {
	store := newCheckInStore(t)
	future := time.Now().Add(48 * time.Hour)
	require.NoError(t, store.Save(domains.CheckIn{LastCheckIn: &future, Hostname: "WS-01"}))

	assert.Nil(t, store.Load())
}

func TestCheckInStoreInterruptedWriteKeepsPreviousValue(t *testing.T) {
	store := newCheckInStore(t)
	first := time.Date(2024, 5, 1, 7, 30, 0, 0, time.UTC)
	require.NoError(t, store.Save(domains.CheckIn{LastCheckIn: &first, Hostname: "WS-01"}))

	// a crash between temp write and rename leaves only a stray temp file behind
	dir := filepath.Dir(store.Path())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "."+StateFileName+".123.tmp"), []byte(`{"lastCheck`), 0o600))

	got := store.Load()
	require.NotNil(t, got)
	assert.True(t, got.LastCheckIn.Equal(first))

	second := first.Add(24 * time.Hour)
	require.NoError(t, store.Save(domains.CheckIn{LastCheckIn: &second, Hostname: "WS-01"}))
	got = store.Load()
	require.NotNil(t, got)
	assert.True(t, got.LastCheckIn.Equal(second))
}

func TestCheckInStoreSaveLeavesNoTempFiles(t *testing.T) {
	store := newCheckInStore(t)
	ts := time.Now().UTC()
	require.NoError(t, store.Save(domains.CheckIn{LastCheckIn: &ts}))

	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, StateFileName, entries[0].Name())
}

func TestCheckInStoreClear(t *testing.T) {
	store := newCheckInStore(t)
	ts := time.Now().UTC()
	require.NoError(t, store.Save(domains.CheckIn{LastCheckIn: &ts}))

	require.NoError(t, store.Clear())
	assert.Nil(t, store.Load())
	require.NoError(t, store.Clear())
}
