// Package logger provides JSON structured logging using zerolog, with
// pluggable sinks that receive every emitted event.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Config controls log level and output.
type Config struct {
	Level  string `yaml:"level" json:"level"`
	Debug  bool   `yaml:"debug" json:"debug"`
	Output string `yaml:"output" json:"output"`
}

// Logger is the logging surface handed to every component.
type Logger interface {
	Debug() *zerolog.Event
	Info() *zerolog.Event
	Warn() *zerolog.Event
	Error() *zerolog.Event
	With() zerolog.Context
	WithComponent(component string) zerolog.Logger
	SetLevel(level zerolog.Level)
	SetDebug(debug bool)
}

// levelGate filters events by a level shared with every logger derived
// through WithComponent, so SetLevel reaches them too.
type levelGate struct {
	w     zerolog.LevelWriter
	level atomic.Int32
}

func (g *levelGate) Write(p []byte) (int, error) {
	return g.w.Write(p)
}

func (g *levelGate) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < zerolog.Level(g.level.Load()) {
		return len(p), nil
	}
	return g.w.WriteLevel(level, p)
}

type zerologLogger struct {
	zl   zerolog.Logger
	gate *levelGate
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
}

// New creates a Logger writing JSON lines to the configured output and to
// every sink.
func New(cfg Config, sinks ...Sink) (Logger, error) {
	level, err := LevelOf(cfg)
	if err != nil {
		return nil, err
	}

	var output io.Writer = os.Stdout

	switch cfg.Output {
	case "", "stdout":
	case "stderr":
		output = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log output: %w", err)
		}
		output = f
	}

	return NewWithWriter(output, level, sinks...), nil
}

// LevelOf returns the level selected by cfg. Debug wins over Level.
func LevelOf(cfg Config) (zerolog.Level, error) {
	switch {
	case cfg.Debug:
		return zerolog.DebugLevel, nil
	case cfg.Level == "":
		return zerolog.InfoLevel, nil
	}
	return zerolog.ParseLevel(cfg.Level)
}

// NewWithWriter creates a Logger writing to w at the given level.
func NewWithWriter(w io.Writer, level zerolog.Level, sinks ...Sink) Logger {
	writers := make([]io.Writer, 0, len(sinks)+1)
	writers = append(writers, w)
	for _, s := range sinks {
		writers = append(writers, &sinkWriter{sink: s})
	}

	gate := &levelGate{w: zerolog.MultiLevelWriter(writers...)}
	gate.level.Store(int32(level))

	zl := zerolog.New(gate).
		Level(zerolog.TraceLevel).
		With().
		Timestamp().
		Logger()

	return &zerologLogger{zl: zl, gate: gate}
}

func (l *zerologLogger) Debug() *zerolog.Event { return l.zl.Debug() }
func (l *zerologLogger) Info() *zerolog.Event  { return l.zl.Info() }
func (l *zerologLogger) Warn() *zerolog.Event  { return l.zl.Warn() }
func (l *zerologLogger) Error() *zerolog.Event { return l.zl.Error() }
func (l *zerologLogger) With() zerolog.Context { return l.zl.With() }

func (l *zerologLogger) WithComponent(component string) zerolog.Logger {
	return l.zl.With().Str("component", component).Logger()
}

func (l *zerologLogger) SetLevel(level zerolog.Level) {
	l.gate.level.Store(int32(level))
}

func (l *zerologLogger) SetDebug(debug bool) {
	if debug {
		l.SetLevel(zerolog.DebugLevel)
		return
	}
	l.SetLevel(zerolog.InfoLevel)
}

// NewTestLogger creates a no-op logger for testing that discards all output
func NewTestLogger() Logger {
	gate := &levelGate{w: zerolog.MultiLevelWriter(io.Discard)}
	gate.level.Store(int32(zerolog.Disabled))
	return &zerologLogger{zl: zerolog.New(gate).Level(zerolog.Disabled), gate: gate}
}
