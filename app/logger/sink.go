package logger

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Event is a decoded log line delivered to sinks.
type Event struct {
	Time      time.Time      `json:"time"`
	Level     string         `json:"level"`
	Component string         `json:"component,omitempty"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Sink receives every event the logger emits.
type Sink interface {
	Emit(Event)
}

// sinkWriter adapts a Sink to the zerolog writer chain.
type sinkWriter struct {
	sink Sink
}

func (w *sinkWriter) Write(p []byte) (int, error) {
	var raw map[string]any
	if err := json.Unmarshal(p, &raw); err != nil {
		// unparseable lines are dropped for sinks but still reach the main output
		return len(p), nil
	}

	ev := Event{Fields: raw}
	if v, ok := raw[zerolog.TimestampFieldName].(string); ok {
		if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
			ev.Time = ts
		}
		delete(raw, zerolog.TimestampFieldName)
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	if v, ok := raw[zerolog.LevelFieldName].(string); ok {
		ev.Level = v
		delete(raw, zerolog.LevelFieldName)
	}
	if v, ok := raw[zerolog.MessageFieldName].(string); ok {
		ev.Message = v
		delete(raw, zerolog.MessageFieldName)
	}
	if v, ok := raw["component"].(string); ok {
		ev.Component = v
		delete(raw, "component")
	}
	if len(raw) == 0 {
		ev.Fields = nil
	}

	w.sink.Emit(ev)
	return len(p), nil
}

// DefaultRingSize is how many events a RingSink keeps when no size is given.
const DefaultRingSize = 100

// RingSink keeps the most recent events in memory.
type RingSink struct {
	mu     sync.RWMutex
	events []Event
	next   int
	full   bool
}

// NewRingSink creates a RingSink holding up to size events.
func NewRingSink(size int) *RingSink {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &RingSink{events: make([]Event, size)}
}

// Emit stores ev, evicting the oldest event when full.
func (r *RingSink) Emit(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events[r.next] = ev
	r.next = (r.next + 1) % len(r.events)
	if r.next == 0 {
		r.full = true
	}
}

// Events returns the retained events, oldest first.
func (r *RingSink) Events() []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.full {
		out := make([]Event, r.next)
		copy(out, r.events[:r.next])
		return out
	}

	out := make([]Event, 0, len(r.events))
	out = append(out, r.events[r.next:]...)
	out = append(out, r.events[:r.next]...)
	return out
}
