package domains

import "time"

// CheckIn is the locally persisted marker of the last confirmed sync.
type CheckIn struct {
	LastCheckIn  *time.Time `json:"lastCheckIn,omitempty"`
	Hostname     string     `json:"hostname"`
	AgentVersion string     `json:"agentVersion"`
}

// SyncOutcome names what a reconciliation did to the remote store.
type SyncOutcome string

const (
	OutcomeInserted SyncOutcome = "inserted"
	OutcomeUpdated  SyncOutcome = "updated"
	OutcomeTouched  SyncOutcome = "touched"
	OutcomeFailed   SyncOutcome = "failed"
)

// FieldChange describes one compared field that differs.
type FieldChange struct {
	Field string `json:"field"`
	Old   any    `json:"old"`
	New   any    `json:"new"`
}

// SyncAttempt is one journaled reconciliation.
type SyncAttempt struct {
	ID         int64         `json:"id"`
	RunID      string        `json:"run_id"`
	Hostname   string        `json:"hostname"`
	Outcome    SyncOutcome   `json:"outcome"`
	Changes    []FieldChange `json:"changes,omitempty"`
	Error      *string       `json:"error,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}
