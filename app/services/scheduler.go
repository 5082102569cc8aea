package services

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/IamSpotted/ITSF-Agent/app/logger"
	"github.com/rs/zerolog"
)

const (
	DefaultPollCeiling    = time.Hour
	DefaultAttemptTimeout = 5 * time.Minute
	minPollInterval       = time.Minute
)

// Syncer is the part of SyncService the scheduler drives.
type Syncer interface {
	SyncDevice(ctx context.Context) error
	SyncIfDue(ctx context.Context) (bool, error)
	TimeUntilNextCheckIn() time.Duration
}

// Trigger is a one-shot forced-sync request.
type Trigger interface {
	Consume() bool
}

// Scheduler runs the check-in loop until its context is cancelled.
type Scheduler struct {
	syncer         Syncer
	trigger        Trigger
	metrics        *SyncMetrics
	pollCeiling    atomic.Int64
	attemptTimeout time.Duration
	wake           chan struct{}
	log            zerolog.Logger
}

// NewScheduler creates a scheduler. trigger and metrics may be nil.
func NewScheduler(syncer Syncer, trigger Trigger, metrics *SyncMetrics, pollCeiling time.Duration, log logger.Logger) *Scheduler {
	s := &Scheduler{
		syncer:         syncer,
		trigger:        trigger,
		metrics:        metrics,
		attemptTimeout: DefaultAttemptTimeout,
		wake:           make(chan struct{}, 1),
		log:            log.WithComponent("scheduler"),
	}
	s.SetPollCeiling(pollCeiling)
	return s
}

// SetPollCeiling changes the longest sleep between evaluations.
func (s *Scheduler) SetPollCeiling(d time.Duration) {
	if d <= 0 {
		d = DefaultPollCeiling
	}
	s.pollCeiling.Store(int64(d))
}

func (s *Scheduler) ceiling() time.Duration {
	return time.Duration(s.pollCeiling.Load())
}

// Wake interrupts the current sleep so the loop re-evaluates immediately.
func (s *Scheduler) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run performs the startup check and then loops until ctx is cancelled. A
// sync in progress when ctx ends is allowed to finish.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info().Dur("poll_ceiling", s.ceiling()).Msg("scheduler starting, performing startup sync check")

	var delay time.Duration
	err := s.attempt(ctx, "startup", func(ctx context.Context) error {
		_, err := s.syncer.SyncIfDue(ctx)
		return err
	})
	if err != nil {
		delay = s.ceiling()
	}

	for s.sleep(ctx, delay) {
		delay = s.Tick(ctx)
	}
	s.log.Info().Msg("scheduler stopped")
}

// Tick runs one evaluation and returns how long to sleep before the next.
func (s *Scheduler) Tick(ctx context.Context) time.Duration {
	if s.trigger != nil && s.trigger.Consume() {
		s.metrics.TriggerConsumed()
		s.log.Info().Msg("forced sync requested, performing immediate sync")
		if err := s.attempt(ctx, "forced", s.syncer.SyncDevice); err != nil {
			return s.ceiling()
		}
		return 0
	}

	wait := s.syncer.TimeUntilNextCheckIn()
	if wait == 0 {
		s.log.Info().Msg("check-in is due, performing sync")
		if err := s.attempt(ctx, "scheduled", s.syncer.SyncDevice); err != nil {
			return s.ceiling()
		}
		wait = s.syncer.TimeUntilNextCheckIn()
	}

	next := s.nextSleep(wait)
	s.log.Info().
		Time("next_check", time.Now().UTC().Add(next)).
		Dur("wait", next).
		Msg("next check scheduled")
	return next
}

func (s *Scheduler) nextSleep(wait time.Duration) time.Duration {
	if wait <= 0 {
		return minPollInterval
	}
	if c := s.ceiling(); wait > c {
		return c
	}
	return wait
}

// attempt runs fn on a context that survives cancellation of ctx and is
// bounded by the attempt timeout.
func (s *Scheduler) attempt(ctx context.Context, kind string, fn func(context.Context) error) error {
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.attemptTimeout)
	defer cancel()

	err := fn(actx)
	if err == nil {
		return nil
	}

	ev := s.log.Error().Err(err).Str("kind", kind).Dur("retry_in", s.ceiling())
	var syncErr *SyncError
	if errors.As(err, &syncErr) {
		ev = ev.Bool("retryable", syncErr.Retryable())
	}
	ev.Msg("device sync failed, will retry")
	return err
}

// sleep waits for d, a wake-up, or cancellation. It reports false once ctx is done.
func (s *Scheduler) sleep(ctx context.Context, d time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-s.wake:
		s.log.Debug().Msg("scheduler woken")
		return true
	case <-timer.C:
		return true
	}
}
