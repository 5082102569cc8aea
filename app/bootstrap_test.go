package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/IamSpotted/ITSF-Agent/app/domains"
	"github.com/IamSpotted/ITSF-Agent/app/handlers"
	"github.com/IamSpotted/ITSF-Agent/app/services"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func agentConfig(dir, extra string) string {
	return fmt.Sprintf(`state_dir: %s
trigger_path: %s
journal_retention_days: 1
status:
  listen_addr: "127.0.0.1:0"
  jwt_secret: test-secret
logging:
  output: stderr
  level: error
%s`, filepath.Join(dir, "state"), filepath.Join(dir, services.TriggerFileName), extra)
}

func newTestApp(t *testing.T) (*App, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	path := filepath.Join(dir, "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(agentConfig(dir, "")), 0o600))

	src, err := NewConfigSource(path)
	require.NoError(t, err)

	a, err := New(src)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a, dir
}

func TestNewWiresComponentsWithoutRemote(t *testing.T) {
	a, dir := newTestApp(t)

	require.NotNil(t, a.Server)
	require.NotNil(t, a.Journal)
	assert.Equal(t, services.StateNeverCheckedIn, a.Sync.State())
	assert.Equal(t, filepath.Join(dir, services.TriggerFileName), a.Trigger.Path())
	assert.Error(t, a.ready())
}

func TestReloadAppliesConfiguration(t *testing.T) {
	a, dir := newTestApp(t)

	extra := "remote:\n  dsn: postgres://itsf:pw@db:5432/inventory\npoll_ceiling: 10m\ncheck_in_interval_days: 2\n"
	require.NoError(t, os.WriteFile(a.Config.Path(), []byte(agentConfig(dir, extra)), 0o600))
	require.NoError(t, a.Config.Reload())

	assert.NoError(t, a.ready())
	assert.Equal(t, 2*24*time.Hour, a.Sync.Status().Interval)
}

func TestApplyConfigKeepsDiffPolicyOnInvalidFields(t *testing.T) {
	a, dir := newTestApp(t)

	extra := "diff:\n  fields: [serial_number, model]\n"
	require.NoError(t, os.WriteFile(a.Config.Path(), []byte(agentConfig(dir, extra)), 0o600))
	require.NoError(t, a.Config.Reload())
	require.Len(t, a.Sync.DiffPolicy().Fields, 2)

	cfg := *a.Config.Current()
	cfg.Diff.Fields = []string{"favourite_colour"}
	cfg.CheckInIntervalDays = 4
	a.applyConfig(&cfg)

	assert.Len(t, a.Sync.DiffPolicy().Fields, 2)
	assert.Equal(t, 4*24*time.Hour, a.Sync.Status().Interval)
}

func TestRouterServesHealthAndMetrics(t *testing.T) {
	a, _ := newTestApp(t)

	router := NewRouter(RouterDeps{
		Health:   handlers.NewHealthHandler(nil),
		Status:   a.Status,
		JWT:      services.NewJWTService("test-secret", time.Hour),
		Gatherer: a.Registry,
		Log:      a.Log,
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/status", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"state":"never_checked_in"`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/sync", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCleanupJournalHonoursRetention(t *testing.T) {
	a, _ := newTestApp(t)
	ctx := context.Background()

	old := time.Now().Add(-72 * time.Hour)
	recent := time.Now().Add(-time.Hour)
	for _, started := range []time.Time{old, recent} {
		_, err := a.Journal.RecordAttempt(ctx, domains.SyncAttempt{
			RunID:      started.String(),
			Hostname:   "WS-01",
			Outcome:    domains.OutcomeTouched,
			StartedAt:  started,
			FinishedAt: started.Add(time.Second),
		})
		require.NoError(t, err)
	}

	a.cleanupJournal(ctx)

	attempts, err := a.Journal.ListAttempts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.True(t, attempts[0].StartedAt.Equal(recent))
}
