package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/IamSpotted/ITSF-Agent/app/domains"
	"github.com/IamSpotted/ITSF-Agent/app/dto"
	"github.com/IamSpotted/ITSF-Agent/app/logger"
	"github.com/IamSpotted/ITSF-Agent/app/services"
	"github.com/IamSpotted/ITSF-Agent/app/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSync struct {
	status   services.Status
	pingErr  error
	clearErr error
	cleared  int
}

func (s *stubSync) Status() services.Status              { return s.status }
func (s *stubSync) TestConnection(context.Context) error { return s.pingErr }
func (s *stubSync) ClearState() error {
	s.cleared++
	return s.clearErr
}

type stubEvents []logger.Event

func (s stubEvents) Events() []logger.Event { return s }

type stubHistory struct {
	attempts []domains.SyncAttempt
	limit    int
}

func (s *stubHistory) ListAttempts(_ context.Context, limit int) ([]domains.SyncAttempt, error) {
	s.limit = limit
	return s.attempts, nil
}

type stubTrigger struct {
	armed int
	err   error
}

func (s *stubTrigger) Arm() error {
	s.armed++
	return s.err
}

type stubWaker struct{ woken int }

func (s *stubWaker) Wake() { s.woken++ }

type harness struct {
	router  *gin.Engine
	sync    *stubSync
	history *stubHistory
	trigger *stubTrigger
	waker   *stubWaker
	jwt     *services.JWTService
}

func newHarness(t *testing.T, secret string) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := &harness{
		sync:    &stubSync{},
		history: &stubHistory{},
		trigger: &stubTrigger{},
		waker:   &stubWaker{},
		jwt:     services.NewJWTService(secret, time.Hour),
	}
	tz, err := utils.NewTimeZone("UTC")
	require.NoError(t, err)

	events := stubEvents{
		{Time: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC), Level: "info", Component: "sync", Message: "device sync completed"},
		{Time: time.Date(2024, 3, 1, 8, 1, 0, 0, time.UTC), Level: "error", Component: "sync", Message: "device sync failed"},
	}
	handler := NewStatusHandler(h.sync, events, h.history, h.trigger, h.waker, tz, logger.NewTestLogger())
	handler.SetRemote("postgres://itsf:xxxxx@db:5432/inventory")

	router := gin.New()
	router.GET("/v1/status", handler.Status)
	router.GET("/v1/events", handler.Events)
	router.GET("/v1/history", handler.History)
	ops := router.Group("/v1", RequireOperator(h.jwt))
	ops.POST("/sync", handler.RequestSync)
	ops.DELETE("/state", handler.ResetState)
	ops.POST("/connection/test", handler.TestConnection)
	h.router = router
	return h
}

func (h *harness) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func (h *harness) token(t *testing.T) string {
	t.Helper()
	token, err := h.jwt.GenerateToken("helpdesk")
	require.NoError(t, err)
	return token
}

func TestStatusEndpoint(t *testing.T) {
	h := newHarness(t, "secret")
	last := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	next := last.Add(7 * 24 * time.Hour)
	h.sync.status = services.Status{
		State:         services.StateWaiting,
		LastCheckIn:   &last,
		NextCheckIn:   &next,
		TimeUntilNext: 6 * 24 * time.Hour,
		Hostname:      "WS-01",
		AgentVersion:  "1.2.3",
		Interval:      7 * 24 * time.Hour,
		LastResult: &services.SyncResult{
			RunID:    "run-1",
			Hostname: "WS-01",
			Outcome:  domains.OutcomeFailed,
			Err:      errors.New("sync find WS-01: repository error: refused"),
		},
	}

	w := h.do(t, http.MethodGet, "/v1/status", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "waiting", resp.State)
	assert.Equal(t, "2024-03-01 08:00:00 UTC", resp.LastCheckIn)
	assert.Equal(t, "2024-03-01T08:00:00Z", resp.LastCheckInUTC)
	assert.Equal(t, "2024-03-08 08:00:00 UTC", resp.NextCheckIn)
	assert.Equal(t, int64(6*24*3600), resp.TimeUntilNextSeconds)
	assert.Equal(t, 7.0, resp.CheckInIntervalDays)
	require.NotNil(t, resp.LastSync)
	assert.Equal(t, "failed", resp.LastSync.Outcome)
	assert.Contains(t, resp.LastSync.Error, "repository error")
}

func TestEventsEndpointFiltersByLevel(t *testing.T) {
	h := newHarness(t, "secret")

	w := h.do(t, http.MethodGet, "/v1/events?level=error", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.EventsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Events, 1)
	assert.Equal(t, "device sync failed", resp.Events[0].Message)

	w = h.do(t, http.MethodGet, "/v1/events?level=loud", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistoryEndpoint(t *testing.T) {
	h := newHarness(t, "secret")
	h.history.attempts = []domains.SyncAttempt{{
		ID:       3,
		RunID:    "run-3",
		Hostname: "WS-01",
		Outcome:  domains.OutcomeUpdated,
		Changes:  []domains.FieldChange{{Field: "total_ram_gb", Old: 16.0, New: 32.0}},
	}}

	w := h.do(t, http.MethodGet, "/v1/history", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, defaultHistoryLimit, h.history.limit)

	var resp dto.HistoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Attempts, 1)
	assert.Equal(t, "updated", resp.Attempts[0].Outcome)
	assert.Equal(t, "total_ram_gb", resp.Attempts[0].Changes[0].Field)

	w = h.do(t, http.MethodGet, "/v1/history?limit=5000", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOperatorRoutesRequireToken(t *testing.T) {
	h := newHarness(t, "secret")

	w := h.do(t, http.MethodPost, "/v1/sync", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(t, http.MethodPost, "/v1/sync", "", "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 0, h.trigger.armed)

	disabled := newHarness(t, "")
	w = disabled.do(t, http.MethodDelete, "/v1/state", "", "anything")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 0, disabled.sync.cleared)
}

func TestRequestSyncArmsTriggerAndWakes(t *testing.T) {
	h := newHarness(t, "secret")

	w := h.do(t, http.MethodPost, "/v1/sync", `{"reason":"hardware swap"}`, h.token(t))
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 1, h.trigger.armed)
	assert.Equal(t, 1, h.waker.woken)

	h.trigger.err = errors.New("read-only file system")
	w = h.do(t, http.MethodPost, "/v1/sync", "", h.token(t))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 1, h.waker.woken)
}

func TestResetState(t *testing.T) {
	h := newHarness(t, "secret")

	w := h.do(t, http.MethodDelete, "/v1/state", "", h.token(t))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, h.sync.cleared)
	assert.Equal(t, 1, h.waker.woken)
}

func TestConnectionTest(t *testing.T) {
	h := newHarness(t, "secret")

	w := h.do(t, http.MethodPost, "/v1/connection/test", "", h.token(t))
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.ConnectionTestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.NotContains(t, resp.Remote, "secret")

	h.sync.pingErr = &services.SyncError{Kind: services.ErrConfiguration, Op: "ping", Err: errors.New("no dsn")}
	w = h.do(t, http.MethodPost, "/v1/connection/test", "", h.token(t))
	assert.Equal(t, http.StatusConflict, w.Code)

	h.sync.pingErr = &services.SyncError{Kind: services.ErrRepository, Op: "ping", Err: errors.New("refused")}
	w = h.do(t, http.MethodPost, "/v1/connection/test", "", h.token(t))
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestHealthEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ready := errors.New("state directory not writable")
	handler := NewHealthHandler(func() error { return ready })

	router := gin.New()
	router.GET("/health", handler.Health)
	router.GET("/ready", handler.Ready)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	ready = nil
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
