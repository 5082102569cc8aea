package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/IamSpotted/ITSF-Agent/app/clients"
	"github.com/IamSpotted/ITSF-Agent/app/domains"
	"github.com/IamSpotted/ITSF-Agent/app/logger"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

//go:generate mockgen -destination=mock_provider.go -package=services github.com/IamSpotted/ITSF-Agent/app/services InfoProvider

const (
	DefaultCheckInInterval = 7 * 24 * time.Hour
	DefaultRemoteTimeout   = 30 * time.Second
)

var errNoRowsAffected = errors.New("no rows affected")

// InfoProvider collects a snapshot of the local device.
type InfoProvider interface {
	Collect(ctx context.Context) (domains.Snapshot, error)
}

// CheckInStore persists the time of the last confirmed sync.
type CheckInStore interface {
	Load() *domains.CheckIn
	Save(state domains.CheckIn) error
	Clear() error
}

// AttemptRecorder journals finished reconciliations.
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, attempt domains.SyncAttempt) (int64, error)
}

// CheckInState is the scheduling state derived from the persisted check-in.
type CheckInState int

const (
	StateNeverCheckedIn CheckInState = iota
	StateWaiting
	StateDue
)

func (s CheckInState) String() string {
	switch s {
	case StateNeverCheckedIn:
		return "never_checked_in"
	case StateWaiting:
		return "waiting"
	case StateDue:
		return "due"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// SyncOptions are the tunables of a SyncService.
type SyncOptions struct {
	Interval      time.Duration
	RemoteTimeout time.Duration
	AgentVersion  string
}

func (o SyncOptions) withDefaults() SyncOptions {
	if o.Interval <= 0 {
		o.Interval = DefaultCheckInInterval
	}
	if o.RemoteTimeout <= 0 {
		o.RemoteTimeout = DefaultRemoteTimeout
	}
	return o
}

// SyncResult describes the most recent reconciliation.
type SyncResult struct {
	RunID      string
	Hostname   string
	Outcome    domains.SyncOutcome
	Changes    []domains.FieldChange
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Status is a point-in-time view of the sync engine for status readers.
type Status struct {
	State         CheckInState
	LastCheckIn   *time.Time
	NextCheckIn   *time.Time
	TimeUntilNext time.Duration
	Hostname      string
	AgentVersion  string
	Interval      time.Duration
	LastResult    *SyncResult
}

// SyncService decides when the device must be reconciled with the remote
// store and performs the reconciliation.
type SyncService struct {
	provider InfoProvider
	repo     clients.Repository
	state    CheckInStore
	journal  AttemptRecorder
	metrics  *SyncMetrics
	log      zerolog.Logger
	now      func() time.Time
	newRunID func() string

	// mu serialises reconciliations and state resets
	mu sync.Mutex

	cfgMu sync.RWMutex
	opts  SyncOptions
	diff  *DiffEngine
	last  *SyncResult
}

// NewSyncService creates a new sync service. journal and metrics may be nil.
func NewSyncService(
	provider InfoProvider,
	repo clients.Repository,
	state CheckInStore,
	diff *DiffEngine,
	journal AttemptRecorder,
	metrics *SyncMetrics,
	opts SyncOptions,
	log logger.Logger,
) *SyncService {
	if diff == nil {
		diff = NewDiffEngine(DefaultDiffPolicy())
	}
	return &SyncService{
		provider: provider,
		repo:     repo,
		state:    state,
		journal:  journal,
		metrics:  metrics,
		log:      log.WithComponent("sync"),
		now:      time.Now,
		newRunID: uuid.NewString,
		opts:     opts.withDefaults(),
		diff:     diff,
	}
}

// Reconfigure replaces the options and diff engine used by later calls.
func (s *SyncService) Reconfigure(opts SyncOptions, diff *DiffEngine) {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()

	s.opts = opts.withDefaults()
	if diff != nil {
		s.diff = diff
	}
	s.log.Info().Dur("interval", s.opts.Interval).Dur("remote_timeout", s.opts.RemoteTimeout).Msg("sync options updated")
}

// DiffPolicy returns the policy of the active diff engine
func (s *SyncService) DiffPolicy() DiffPolicy {
	_, diff := s.options()
	return diff.Policy()
}

func (s *SyncService) options() (SyncOptions, *DiffEngine) {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.opts, s.diff
}

// TimeUntilNextCheckIn returns how long until the next check-in is due. It is
// zero when the device has never checked in or the interval has elapsed.
func (s *SyncService) TimeUntilNextCheckIn() time.Duration {
	return s.timeUntil(s.state.Load())
}

func (s *SyncService) timeUntil(ci *domains.CheckIn) time.Duration {
	if ci == nil || ci.LastCheckIn == nil {
		return 0
	}
	opts, _ := s.options()

	elapsed := s.now().Sub(*ci.LastCheckIn)
	if elapsed < 0 {
		elapsed = 0
	}
	if remaining := opts.Interval - elapsed; remaining > 0 {
		return remaining
	}
	return 0
}

// State evaluates the scheduling state from the persisted check-in.
func (s *SyncService) State() CheckInState {
	return s.stateOf(s.state.Load())
}

func (s *SyncService) stateOf(ci *domains.CheckIn) CheckInState {
	if ci == nil || ci.LastCheckIn == nil {
		return StateNeverCheckedIn
	}
	if s.timeUntil(ci) == 0 {
		return StateDue
	}
	return StateWaiting
}

// Status returns the current scheduling view without side effects.
func (s *SyncService) Status() Status {
	ci := s.state.Load()
	opts, _ := s.options()

	st := Status{
		State:         s.stateOf(ci),
		TimeUntilNext: s.timeUntil(ci),
		AgentVersion:  opts.AgentVersion,
		Interval:      opts.Interval,
		LastResult:    s.LastResult(),
	}
	if ci != nil && ci.LastCheckIn != nil {
		last := *ci.LastCheckIn
		next := last.Add(opts.Interval)
		st.LastCheckIn = &last
		st.NextCheckIn = &next
		st.Hostname = ci.Hostname
	}
	return st
}

// LastResult returns a copy of the most recent reconciliation, or nil if none
// ran since start.
func (s *SyncService) LastResult() *SyncResult {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	if s.last == nil {
		return nil
	}
	res := *s.last
	return &res
}

// SyncDevice reconciles the device with the remote store regardless of the
// schedule.
func (s *SyncService) SyncDevice(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.reconcile(ctx)
}

// SyncIfDue reconciles only when the device has never checked in or the
// interval has elapsed. It reports whether a reconciliation ran.
func (s *SyncService) SyncIfDue(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ci := s.state.Load()
	if state := s.stateOf(ci); state == StateWaiting {
		s.log.Info().
			Time("last_check_in", *ci.LastCheckIn).
			Dur("time_until_next", s.timeUntil(ci)).
			Msg("check-in not due, skipping sync")
		return false, nil
	}
	return true, s.reconcile(ctx)
}

// TestConnection verifies the remote store is reachable with the current settings.
func (s *SyncService) TestConnection(ctx context.Context) error {
	opts, _ := s.options()
	ctx, cancel := context.WithTimeout(ctx, opts.RemoteTimeout)
	defer cancel()

	if err := s.repo.Ping(ctx); err != nil {
		return s.remoteError("ping", "", err)
	}
	return nil
}

// ClearState forgets the last check-in so the next evaluation is due.
func (s *SyncService) ClearState() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.state.Clear(); err != nil {
		return newSyncError(ErrState, "clear-state", "", err)
	}
	s.metrics.SetLastCheckIn(nil)
	return nil
}

func (s *SyncService) reconcile(ctx context.Context) error {
	res := SyncResult{RunID: s.newRunID(), StartedAt: s.now().UTC()}
	log := s.log.With().Str("run_id", res.RunID).Logger()
	log.Info().Msg("starting device sync")

	err := s.run(ctx, &res, log)
	res.FinishedAt = s.now().UTC()
	if err != nil {
		res.Outcome = domains.OutcomeFailed
		res.Err = err
		log.Error().Err(err).Str("hostname", res.Hostname).Msg("device sync failed")
	} else {
		log.Info().
			Str("hostname", res.Hostname).
			Str("outcome", string(res.Outcome)).
			Dur("duration", res.FinishedAt.Sub(res.StartedAt)).
			Msg("device sync completed")
	}

	s.finish(ctx, res, log)
	return err
}

func (s *SyncService) run(ctx context.Context, res *SyncResult, log zerolog.Logger) error {
	opts, diff := s.options()

	snap, err := s.provider.Collect(ctx)
	if err != nil {
		return newSyncError(ErrCollection, "collect", "", err)
	}
	host := snap.Hostname
	res.Hostname = host

	existing, err := callRemote(ctx, opts.RemoteTimeout, func(ctx context.Context) (*domains.Record, error) {
		return s.repo.FindByKey(ctx, host)
	})
	if err != nil {
		return s.remoteError("find", host, err)
	}

	var (
		op      string
		outcome domains.SyncOutcome
		write   func(context.Context) (bool, error)
	)

	switch {
	case existing == nil:
		op, outcome = "insert", domains.OutcomeInserted
		write = func(ctx context.Context) (bool, error) { return s.repo.Insert(ctx, snap) }
		log.Info().Str("hostname", host).Msg("device not found, inserting new record")
	default:
		changes := diff.Compare(snap, *existing)
		if len(changes) > 0 {
			op, outcome = "update", domains.OutcomeUpdated
			res.Changes = changes
			updated := existing.Replace(snap)
			write = func(ctx context.Context) (bool, error) { return s.repo.Update(ctx, updated) }
			logChanges(log, host, existing.ID, changes)
		} else {
			op, outcome = "touch", domains.OutcomeTouched
			write = func(ctx context.Context) (bool, error) { return s.repo.TouchDiscovered(ctx, host) }
			log.Debug().Str("hostname", host).Int64("device_id", existing.ID).Msg("no changes detected, updating last discovered")
		}
	}

	ok, err := callRemote(ctx, opts.RemoteTimeout, write)
	if err != nil {
		return s.remoteError(op, host, err)
	}
	if !ok {
		return newSyncError(ErrRepository, op, host, errNoRowsAffected)
	}
	res.Outcome = outcome

	now := s.now().UTC()
	if err := s.state.Save(domains.CheckIn{LastCheckIn: &now, Hostname: host, AgentVersion: opts.AgentVersion}); err != nil {
		return newSyncError(ErrState, "save-state", host, err)
	}
	s.metrics.SetLastCheckIn(&now)
	return nil
}

func (s *SyncService) finish(ctx context.Context, res SyncResult, log zerolog.Logger) {
	s.cfgMu.Lock()
	s.last = &res
	s.cfgMu.Unlock()

	s.metrics.ObserveResult(res)

	if s.journal == nil {
		return
	}

	attempt := domains.SyncAttempt{
		RunID:      res.RunID,
		Hostname:   res.Hostname,
		Outcome:    res.Outcome,
		Changes:    res.Changes,
		StartedAt:  res.StartedAt,
		FinishedAt: res.FinishedAt,
	}
	if res.Err != nil {
		msg := res.Err.Error()
		attempt.Error = &msg
	}

	jctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if _, err := s.journal.RecordAttempt(jctx, attempt); err != nil {
		log.Warn().Err(err).Msg("failed to journal sync attempt")
	}
}

func (s *SyncService) remoteError(op, host string, err error) *SyncError {
	if errors.Is(err, clients.ErrNotConfigured) {
		return newSyncError(ErrConfiguration, op, host, err)
	}
	return newSyncError(ErrRepository, op, host, err)
}

func logChanges(log zerolog.Logger, host string, id int64, changes []domains.FieldChange) {
	log.Info().Str("hostname", host).Int64("device_id", id).Int("changes", len(changes)).Msg("changes detected, updating record")
	for _, c := range changes {
		log.Info().
			Str("field", c.Field).
			Interface("old", c.Old).
			Interface("new", c.New).
			Msg("field changed")
	}
}

// callRemote bounds a single repository call with timeout.
func callRemote[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(ctx)
}
