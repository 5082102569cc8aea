package dto

// StatusResponse represents the agent's scheduling state
type StatusResponse struct {
	State                string              `json:"state"`
	Hostname             string              `json:"hostname,omitempty"`
	AgentVersion         string              `json:"agent_version"`
	TimeZone             string              `json:"time_zone"`
	LastCheckIn          string              `json:"last_check_in,omitempty"`
	LastCheckInUTC       string              `json:"last_check_in_utc,omitempty"`
	NextCheckIn          string              `json:"next_check_in,omitempty"`
	TimeUntilNext        string              `json:"time_until_next"`
	TimeUntilNextSeconds int64               `json:"time_until_next_seconds"`
	CheckInIntervalDays  float64             `json:"check_in_interval_days"`
	LastSync             *SyncResultResponse `json:"last_sync,omitempty"`
}

// SyncResultResponse represents the outcome of a sync attempt
type SyncResultResponse struct {
	ID         int64                 `json:"id,omitempty"`
	RunID      string                `json:"run_id"`
	Hostname   string                `json:"hostname,omitempty"`
	Outcome    string                `json:"outcome"`
	Changes    []FieldChangeResponse `json:"changes,omitempty"`
	Error      string                `json:"last_error,omitempty"`
	StartedAt  string                `json:"started_at"`
	FinishedAt string                `json:"finished_at"`
}

// FieldChangeResponse represents one changed field
type FieldChangeResponse struct {
	Field string `json:"field"`
	Old   any    `json:"old"`
	New   any    `json:"new"`
}

// HistoryResponse represents journaled sync attempts, newest first
type HistoryResponse struct {
	Attempts []SyncResultResponse `json:"attempts"`
}

// EventResponse represents a retained log event
type EventResponse struct {
	Time      string         `json:"time"`
	Level     string         `json:"level"`
	Component string         `json:"component,omitempty"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// EventsResponse represents recent log events, oldest first
type EventsResponse struct {
	Events []EventResponse `json:"events"`
}

// ActionResponse represents the result of a mutating request
type ActionResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// ConnectionTestResponse represents a remote store connectivity check
type ConnectionTestResponse struct {
	OK     bool   `json:"ok"`
	Remote string `json:"remote,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}
