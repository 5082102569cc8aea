package utils

import (
	"fmt"
	"time"
)

// TimeZone converts UTC timestamps to a configured display zone.
type TimeZone struct {
	loc *time.Location
}

// NewTimeZone resolves an IANA zone name. An empty name uses the host's local zone.
func NewTimeZone(name string) (*TimeZone, error) {
	if name == "" || name == "Local" {
		return &TimeZone{loc: time.Local}, nil
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return &TimeZone{loc: time.Local}, fmt.Errorf("unknown time zone %q: %w", name, err)
	}
	return &TimeZone{loc: loc}, nil
}

// Name returns the zone name.
func (tz *TimeZone) Name() string {
	return tz.loc.String()
}

// Convert returns t in the display zone.
func (tz *TimeZone) Convert(t time.Time) time.Time {
	return t.In(tz.loc)
}

// Format renders t in the display zone with its abbreviation, e.g. "2024-03-01 08:00:00 CET".
func (tz *TimeZone) Format(t time.Time) string {
	return t.In(tz.loc).Format("2006-01-02 15:04:05 MST")
}
