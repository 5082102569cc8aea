package domains

import "time"

// Record is a stored device row: the last snapshot written plus the
// store-assigned identity and timestamps.
type Record struct {
	Snapshot
	ID             int64      `db:"device_id" json:"device_id"`
	CreatedAt      *time.Time `db:"created_at" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `db:"updated_at" json:"updated_at,omitempty"`
	LastDiscovered *time.Time `db:"last_discovered" json:"last_discovered,omitempty"`
}

// Replace returns a record carrying snap's contents under r's identity and
// creation time.
func (r Record) Replace(snap Snapshot) Record {
	return Record{
		Snapshot:       snap,
		ID:             r.ID,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
		LastDiscovered: r.LastDiscovered,
	}
}
