package services

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/IamSpotted/ITSF-Agent/app/logger"
	"github.com/rs/zerolog"
)

// TriggerFileName is the marker file that requests an immediate sync.
const TriggerFileName = "force_sync.trigger"

// FileTrigger is a forced-sync request expressed as the presence of a marker
// file. Consuming removes the file, so a trigger fires at most once.
type FileTrigger struct {
	path string
	log  zerolog.Logger
}

// NewFileTrigger creates a trigger watching path
func NewFileTrigger(path string, log logger.Logger) *FileTrigger {
	return &FileTrigger{
		path: path,
		log:  log.WithComponent("trigger"),
	}
}

// DefaultTriggerPath returns the marker location next to the running executable.
func DefaultTriggerPath() string {
	exe, err := os.Executable()
	if err != nil {
		return TriggerFileName
	}
	return filepath.Join(filepath.Dir(exe), TriggerFileName)
}

// Path returns the marker location.
func (t *FileTrigger) Path() string {
	return t.path
}

// Consume reports whether the marker was present and removes it. Only the
// caller whose removal succeeds sees true.
func (t *FileTrigger) Consume() bool {
	err := os.Remove(t.path)
	if err == nil {
		t.log.Info().Str("path", t.path).Msg("forced sync trigger consumed")
		return true
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.log.Warn().Err(err).Str("path", t.path).Msg("error checking forced sync trigger")
	}
	return false
}

// Arm creates the marker so the next scheduler pass syncs immediately.
func (t *FileTrigger) Arm() error {
	stamp := time.Now().UTC().Format(time.RFC3339) + "\n"
	if err := os.WriteFile(t.path, []byte(stamp), 0o644); err != nil {
		return fmt.Errorf("failed to create trigger file: %w", err)
	}
	t.log.Info().Str("path", t.path).Msg("forced sync trigger armed")
	return nil
}
