package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/IamSpotted/ITSF-Agent/app/domains"
	"github.com/IamSpotted/ITSF-Agent/app/dto"
	"github.com/IamSpotted/ITSF-Agent/app/logger"
	"github.com/IamSpotted/ITSF-Agent/app/services"
	"github.com/IamSpotted/ITSF-Agent/app/utils"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const defaultHistoryLimit = 50

// respondJSON sends a JSON response
func respondJSON(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

// respondError sends an error response
func respondError(c *gin.Context, status int, message string, details map[string]string) {
	c.JSON(status, dto.ErrorResponse{
		Error:   message,
		Details: details,
	})
}

// SyncController is the part of the sync service exposed over HTTP.
type SyncController interface {
	Status() services.Status
	TestConnection(ctx context.Context) error
	ClearState() error
}

// EventSource returns retained log events, oldest first.
type EventSource interface {
	Events() []logger.Event
}

// HistorySource lists journaled sync attempts.
type HistorySource interface {
	ListAttempts(ctx context.Context, limit int) ([]domains.SyncAttempt, error)
}

// SyncRequester arms a forced sync.
type SyncRequester interface {
	Arm() error
}

// Waker interrupts the scheduler's sleep.
type Waker interface {
	Wake()
}

// StatusHandler serves the agent's status and operator actions
type StatusHandler struct {
	sync    SyncController
	events  EventSource
	history HistorySource
	trigger SyncRequester
	waker   Waker
	tz      atomic.Pointer[utils.TimeZone]
	remote  atomic.Value
	log     zerolog.Logger
}

// NewStatusHandler creates a new status handler. events and history may be nil.
func NewStatusHandler(
	sync SyncController,
	events EventSource,
	history HistorySource,
	trigger SyncRequester,
	waker Waker,
	tz *utils.TimeZone,
	log logger.Logger,
) *StatusHandler {
	h := &StatusHandler{
		sync:    sync,
		events:  events,
		history: history,
		trigger: trigger,
		waker:   waker,
		log:     log.WithComponent("status-api"),
	}
	h.SetTimeZone(tz)
	h.SetRemote("")
	return h
}

// SetTimeZone changes the zone used to render timestamps.
func (h *StatusHandler) SetTimeZone(tz *utils.TimeZone) {
	if tz == nil {
		tz, _ = utils.NewTimeZone("")
	}
	h.tz.Store(tz)
}

// SetRemote sets the masked remote store description shown by connection tests.
func (h *StatusHandler) SetRemote(masked string) {
	h.remote.Store(masked)
}

// Status returns the current scheduling state
func (h *StatusHandler) Status(c *gin.Context) {
	st := h.sync.Status()
	tz := h.tz.Load()

	resp := dto.StatusResponse{
		State:                st.State.String(),
		Hostname:             st.Hostname,
		AgentVersion:         st.AgentVersion,
		TimeZone:             tz.Name(),
		TimeUntilNext:        st.TimeUntilNext.Round(time.Second).String(),
		TimeUntilNextSeconds: int64(st.TimeUntilNext / time.Second),
		CheckInIntervalDays:  st.Interval.Hours() / 24,
	}
	if st.LastCheckIn != nil {
		resp.LastCheckIn = tz.Format(*st.LastCheckIn)
		resp.LastCheckInUTC = st.LastCheckIn.UTC().Format(time.RFC3339)
	}
	if st.NextCheckIn != nil {
		resp.NextCheckIn = tz.Format(*st.NextCheckIn)
	}
	if st.LastResult != nil {
		resp.LastSync = h.resultResponse(*st.LastResult)
	}

	respondJSON(c, http.StatusOK, resp)
}

// Events returns recent log events
func (h *StatusHandler) Events(c *gin.Context) {
	var q dto.EventsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, http.StatusBadRequest, "invalid query", nil)
		return
	}
	if err := utils.ValidateStruct(&q); err != nil {
		respondError(c, http.StatusBadRequest, "validation failed", map[string]string{"error": err.Error()})
		return
	}

	resp := dto.EventsResponse{Events: []dto.EventResponse{}}
	if h.events == nil {
		respondJSON(c, http.StatusOK, resp)
		return
	}

	tz := h.tz.Load()
	for _, ev := range h.events.Events() {
		if q.Level != "" && !strings.EqualFold(ev.Level, q.Level) {
			continue
		}
		resp.Events = append(resp.Events, dto.EventResponse{
			Time:      tz.Format(ev.Time),
			Level:     ev.Level,
			Component: ev.Component,
			Message:   ev.Message,
			Fields:    ev.Fields,
		})
	}
	if q.Limit > 0 && len(resp.Events) > q.Limit {
		resp.Events = resp.Events[len(resp.Events)-q.Limit:]
	}

	respondJSON(c, http.StatusOK, resp)
}

// History returns journaled sync attempts
func (h *StatusHandler) History(c *gin.Context) {
	var q dto.HistoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, http.StatusBadRequest, "invalid query", nil)
		return
	}
	if err := utils.ValidateStruct(&q); err != nil {
		respondError(c, http.StatusBadRequest, "validation failed", map[string]string{"error": err.Error()})
		return
	}
	if q.Limit == 0 {
		q.Limit = defaultHistoryLimit
	}

	if h.history == nil {
		respondError(c, http.StatusNotFound, "sync journal is disabled", nil)
		return
	}

	attempts, err := h.history.ListAttempts(c.Request.Context(), q.Limit)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list sync attempts")
		respondError(c, http.StatusInternalServerError, "failed to list sync history", nil)
		return
	}

	resp := dto.HistoryResponse{Attempts: make([]dto.SyncResultResponse, 0, len(attempts))}
	for _, a := range attempts {
		resp.Attempts = append(resp.Attempts, *h.attemptResponse(a))
	}
	respondJSON(c, http.StatusOK, resp)
}

// RequestSync arms a forced sync and wakes the scheduler
func (h *StatusHandler) RequestSync(c *gin.Context) {
	var req dto.SyncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request body", nil)
			return
		}
		if err := utils.ValidateStruct(&req); err != nil {
			respondError(c, http.StatusBadRequest, "validation failed", map[string]string{"error": err.Error()})
			return
		}
	}

	if err := h.trigger.Arm(); err != nil {
		h.log.Error().Err(err).Msg("failed to arm forced sync")
		respondError(c, http.StatusInternalServerError, "failed to request sync", nil)
		return
	}
	h.waker.Wake()

	h.log.Info().Str("operator", operatorFrom(c)).Str("reason", req.Reason).Msg("forced sync requested")
	respondJSON(c, http.StatusAccepted, dto.ActionResponse{OK: true, Message: "sync requested"})
}

// ResetState clears the local check-in so the next evaluation is due
func (h *StatusHandler) ResetState(c *gin.Context) {
	if err := h.sync.ClearState(); err != nil {
		h.log.Error().Err(err).Msg("failed to clear check-in state")
		respondError(c, http.StatusInternalServerError, "failed to reset state", nil)
		return
	}
	h.waker.Wake()

	h.log.Info().Str("operator", operatorFrom(c)).Msg("check-in state reset")
	respondJSON(c, http.StatusOK, dto.ActionResponse{OK: true, Message: "state cleared"})
}

// TestConnection checks the remote store with the current settings
func (h *StatusHandler) TestConnection(c *gin.Context) {
	remote, _ := h.remote.Load().(string)
	resp := dto.ConnectionTestResponse{OK: true, Remote: remote}

	if err := h.sync.TestConnection(c.Request.Context()); err != nil {
		resp.OK = false
		resp.Error = err.Error()

		status := http.StatusBadGateway
		if errors.Is(err, services.ErrConfiguration) {
			status = http.StatusConflict
		}
		respondJSON(c, status, resp)
		return
	}

	respondJSON(c, http.StatusOK, resp)
}

func (h *StatusHandler) resultResponse(r services.SyncResult) *dto.SyncResultResponse {
	attempt := domains.SyncAttempt{
		RunID:      r.RunID,
		Hostname:   r.Hostname,
		Outcome:    r.Outcome,
		Changes:    r.Changes,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
	if r.Err != nil {
		msg := r.Err.Error()
		attempt.Error = &msg
	}
	return h.attemptResponse(attempt)
}

func (h *StatusHandler) attemptResponse(a domains.SyncAttempt) *dto.SyncResultResponse {
	tz := h.tz.Load()
	resp := &dto.SyncResultResponse{
		ID:         a.ID,
		RunID:      a.RunID,
		Hostname:   a.Hostname,
		Outcome:    string(a.Outcome),
		StartedAt:  tz.Format(a.StartedAt),
		FinishedAt: tz.Format(a.FinishedAt),
	}
	if a.Error != nil {
		resp.Error = *a.Error
	}
	for _, ch := range a.Changes {
		resp.Changes = append(resp.Changes, dto.FieldChangeResponse{Field: ch.Field, Old: ch.Old, New: ch.New})
	}
	return resp
}
