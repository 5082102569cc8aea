package storage

import (
	"fmt"
	"time"

	"github.com/IamSpotted/ITSF-Agent/app/domains"
	"github.com/IamSpotted/ITSF-Agent/app/logger"
	"github.com/rs/zerolog"
)

// StateFileName is the name of the check-in state file inside the state directory.
const StateFileName = "agent-state.json"

// CheckInStore persists the time of the last confirmed sync.
type CheckInStore struct {
	fs  *FSStore
	log zerolog.Logger
	now func() time.Time
}

// NewCheckInStore creates a check-in store rooted at dir.
func NewCheckInStore(dir string, log logger.Logger) (*CheckInStore, error) {
	fs, err := NewFSStore(dir)
	if err != nil {
		return nil, err
	}

	return &CheckInStore{
		fs:  fs,
		log: log.WithComponent("checkin-store"),
		now: time.Now,
	}, nil
}

// Path returns the state file location.
func (s *CheckInStore) Path() string {
	return s.fs.Path(StateFileName)
}

// Load returns the persisted check-in, or nil when the agent has never checked
// in. Unreadable, undecodable and future-dated state is reported as nil so the
// next cycle re-syncs.
func (s *CheckInStore) Load() *domains.CheckIn {
	var state domains.CheckIn
	found, err := s.fs.LoadJSON(StateFileName, &state)
	if err != nil {
		s.log.Warn().Err(err).Str("path", s.Path()).Msg("state file unreadable, treating as first run")
		return nil
	}
	if !found || state.LastCheckIn == nil {
		return nil
	}

	if state.LastCheckIn.After(s.now().Add(time.Minute)) {
		s.log.Warn().Time("last_check_in", *state.LastCheckIn).Msg("state file is dated in the future, treating as first run")
		return nil
	}

	utc := state.LastCheckIn.UTC()
	state.LastCheckIn = &utc
	return &state
}

// Save replaces the persisted check-in atomically.
func (s *CheckInStore) Save(state domains.CheckIn) error {
	if state.LastCheckIn != nil {
		utc := state.LastCheckIn.UTC()
		state.LastCheckIn = &utc
	}

	if err := s.fs.SaveJSON(StateFileName, state); err != nil {
		return fmt.Errorf("failed to save check-in state: %w", err)
	}

	s.log.Debug().Interface("state", state).Msg("check-in state saved")
	return nil
}

// Clear removes the persisted check-in so the next cycle is due.
func (s *CheckInStore) Clear() error {
	if err := s.fs.Delete(StateFileName); err != nil {
		return fmt.Errorf("failed to clear check-in state: %w", err)
	}
	s.log.Info().Msg("check-in state cleared")
	return nil
}
