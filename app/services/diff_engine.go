package services

import (
	"fmt"
	"strings"

	"github.com/IamSpotted/ITSF-Agent/app/domains"
)

// DefaultDiffFields are the columns whose change warrants a full record update.
var DefaultDiffFields = []string{
	"serial_number",
	"primary_ip",
	"primary_mac",
	"domain_name",
	"is_domain_joined",
	"manufacturer",
	"model",
	"cpu_info",
	"total_ram_gb",
	"ram_type",
	"storage_info",
	"bios_version",
	"os_name",
	"os_version",
	"os_architecture",
}

// DefaultRAMToleranceGB absorbs rounding differences in reported memory size.
const DefaultRAMToleranceGB = 1

// DiffPolicy selects the compared fields and the tolerance for integer fields.
type DiffPolicy struct {
	Fields       []domains.Field
	IntTolerance map[string]int
}

// NewDiffPolicy builds a policy from field names. An empty list selects DefaultDiffFields.
func NewDiffPolicy(names []string, ramToleranceGB int) (DiffPolicy, error) {
	if len(names) == 0 {
		names = DefaultDiffFields
	}
	if ramToleranceGB < 0 {
		return DiffPolicy{}, fmt.Errorf("ram tolerance must not be negative, got %d", ramToleranceGB)
	}

	policy := DiffPolicy{IntTolerance: map[string]int{"total_ram_gb": ramToleranceGB}}
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		f, err := domains.LookupField(name)
		if err != nil {
			return DiffPolicy{}, err
		}
		if f.Kind == domains.KindTime {
			return DiffPolicy{}, fmt.Errorf("field %q cannot be compared", f.Name)
		}
		if seen[f.Name] {
			continue
		}
		seen[f.Name] = true
		policy.Fields = append(policy.Fields, f)
	}
	return policy, nil
}

// DefaultDiffPolicy returns the built-in policy.
func DefaultDiffPolicy() DiffPolicy {
	policy, err := NewDiffPolicy(DefaultDiffFields, DefaultRAMToleranceGB)
	if err != nil {
		panic(err)
	}
	return policy
}

// DiffEngine compares a fresh snapshot against the stored record.
type DiffEngine struct {
	policy DiffPolicy
}

// NewDiffEngine creates a diff engine for policy
func NewDiffEngine(policy DiffPolicy) *DiffEngine {
	return &DiffEngine{policy: policy}
}

// Policy returns the active policy.
func (d *DiffEngine) Policy() DiffPolicy {
	return d.policy
}

// Compare returns the policy fields whose values differ. An empty result means
// the stored record is current.
func (d *DiffEngine) Compare(current domains.Snapshot, existing domains.Record) []domains.FieldChange {
	var changes []domains.FieldChange

	for _, f := range d.policy.Fields {
		switch f.Kind {
		case domains.KindText:
			cur, old := f.Text(&current), f.Text(&existing.Snapshot)
			if !textEqual(cur, old) {
				changes = append(changes, domains.FieldChange{Field: f.Name, Old: deref(old), New: deref(cur)})
			}
		case domains.KindInt:
			cur, old := f.Int(&current), f.Int(&existing.Snapshot)
			if !intEqual(cur, old, d.policy.IntTolerance[f.Name]) {
				changes = append(changes, domains.FieldChange{Field: f.Name, Old: deref(old), New: deref(cur)})
			}
		case domains.KindBool:
			cur, old := f.Bool(&current), f.Bool(&existing.Snapshot)
			if !boolEqual(cur, old) {
				changes = append(changes, domains.FieldChange{Field: f.Name, Old: deref(old), New: deref(cur)})
			}
		}
	}

	return changes
}

func textEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return strings.EqualFold(*a, *b)
}

// intEqual treats an unknown value as zero.
func intEqual(a, b *int, tolerance int) bool {
	var x, y int
	if a != nil {
		x = *a
	}
	if b != nil {
		y = *b
	}
	diff := x - y
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance
}

func boolEqual(a, b *bool) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
