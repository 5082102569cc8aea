package services

import (
	"testing"

	"github.com/IamSpotted/ITSF-Agent/app/domains"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseSnapshot() domains.Snapshot {
	return domains.Snapshot{
		Hostname:       "WS-01",
		SerialNumber:   domains.Ptr("SN123"),
		PrimaryIP:      domains.Ptr("10.0.0.5"),
		PrimaryMAC:     domains.Ptr("AA:BB:CC:DD:EE:FF"),
		DomainName:     domains.Ptr("corp.example.com"),
		IsDomainJoined: domains.Ptr(true),
		Manufacturer:   domains.Ptr("Dell Inc."),
		Model:          domains.Ptr("Latitude 7420"),
		CPUInfo:        domains.Ptr("Intel i7 (4 cores, 8 threads)"),
		TotalRAMGB:     domains.Ptr(16),
		RAMType:        domains.Ptr("DDR4"),
		StorageInfo:    domains.Ptr("512GB NVMe"),
		BIOSVersion:    domains.Ptr("1.2.0"),
		OSName:         domains.Ptr("Windows 11 Pro"),
		OSVersion:      domains.Ptr("23H2"),
		OSArchitecture: domains.Ptr("X64"),
	}
}

func recordOf(s domains.Snapshot) domains.Record {
	return domains.Record{Snapshot: s, ID: 7}
}

func TestCompareIdenticalIsEmpty(t *testing.T) {
	engine := NewDiffEngine(DefaultDiffPolicy())
	snap := baseSnapshot()

	assert.Empty(t, engine.Compare(snap, recordOf(snap)))
}

func TestCompareTextIsCaseInsensitive(t *testing.T) {
	engine := NewDiffEngine(DefaultDiffPolicy())
	stored := baseSnapshot()
	current := baseSnapshot()
	current.Manufacturer = domains.Ptr("DELL INC.")
	current.PrimaryMAC = domains.Ptr("aa:bb:cc:dd:ee:ff")

	assert.Empty(t, engine.Compare(current, recordOf(stored)))
}

func TestCompareUnknownVersusKnownText(t *testing.T) {
	engine := NewDiffEngine(DefaultDiffPolicy())
	stored := baseSnapshot()
	current := baseSnapshot()
	current.BIOSVersion = nil

	changes := engine.Compare(current, recordOf(stored))
	require.Len(t, changes, 1)
	assert.Equal(t, domains.FieldChange{Field: "bios_version", Old: "1.2.0", New: nil}, changes[0])

	stored.BIOSVersion = nil
	assert.Empty(t, engine.Compare(current, recordOf(stored)))
}

func TestCompareEmptyStringIsKnown(t *testing.T) {
	engine := NewDiffEngine(DefaultDiffPolicy())
	stored := baseSnapshot()
	stored.DomainName = nil
	current := baseSnapshot()
	current.DomainName = domains.Ptr("")

	changes := engine.Compare(current, recordOf(stored))
	require.Len(t, changes, 1)
	assert.Equal(t, "domain_name", changes[0].Field)
}

func TestCompareRAMTolerance(t *testing.T) {
	engine := NewDiffEngine(DefaultDiffPolicy())

	tests := []struct {
		name    string
		stored  *int
		current *int
		changed bool
	}{
		{"one gigabyte apart", domains.Ptr(16), domains.Ptr(17), false},
		{"one gigabyte below", domains.Ptr(16), domains.Ptr(15), false},
		{"four gigabytes apart", domains.Ptr(16), domains.Ptr(20), true},
		{"unknown against one", nil, domains.Ptr(1), false},
		{"unknown against eight", nil, domains.Ptr(8), true},
		{"both unknown", nil, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stored := baseSnapshot()
			stored.TotalRAMGB = tt.stored
			current := baseSnapshot()
			current.TotalRAMGB = tt.current

			changes := engine.Compare(current, recordOf(stored))
			if !tt.changed {
				assert.Empty(t, changes)
				return
			}
			require.Len(t, changes, 1)
			assert.Equal(t, "total_ram_gb", changes[0].Field)
		})
	}
}

func TestCompareRAMReportsValues(t *testing.T) {
	engine := NewDiffEngine(DefaultDiffPolicy())
	stored := baseSnapshot()
	current := baseSnapshot()
	current.TotalRAMGB = domains.Ptr(20)

	changes := engine.Compare(current, recordOf(stored))
	require.Len(t, changes, 1)
	assert.Equal(t, 16, changes[0].Old)
	assert.Equal(t, 20, changes[0].New)
}

func TestCompareBooleans(t *testing.T) {
	engine := NewDiffEngine(DefaultDiffPolicy())
	stored := baseSnapshot()

	current := baseSnapshot()
	current.IsDomainJoined = domains.Ptr(false)
	assert.Len(t, engine.Compare(current, recordOf(stored)), 1)

	current.IsDomainJoined = nil
	assert.Len(t, engine.Compare(current, recordOf(stored)), 1)
}

func TestCompareIgnoresFieldsOutsidePolicy(t *testing.T) {
	engine := NewDiffEngine(DefaultDiffPolicy())
	stored := baseSnapshot()
	current := baseSnapshot()
	current.AdditionalNotes = domains.Ptr("moved to line 3")
	current.Area = domains.Ptr("B")
	current.PrimaryDNS = domains.Ptr("10.0.0.1")

	assert.Empty(t, engine.Compare(current, recordOf(stored)))
}

func TestNewDiffPolicy(t *testing.T) {
	policy, err := NewDiffPolicy([]string{"Model", "model", "area"}, 2)
	require.NoError(t, err)
	require.Len(t, policy.Fields, 2)
	assert.Equal(t, "model", policy.Fields[0].Name)
	assert.Equal(t, 2, policy.IntTolerance["total_ram_gb"])

	engine := NewDiffEngine(policy)
	stored := baseSnapshot()
	current := baseSnapshot()
	current.Area = domains.Ptr("B")
	current.SerialNumber = domains.Ptr("other")
	changes := engine.Compare(current, recordOf(stored))
	require.Len(t, changes, 1)
	assert.Equal(t, "area", changes[0].Field)

	_, err = NewDiffPolicy([]string{"no_such_field"}, 1)
	assert.Error(t, err)

	_, err = NewDiffPolicy([]string{"os_install_date"}, 1)
	assert.Error(t, err)

	_, err = NewDiffPolicy(nil, -1)
	assert.Error(t, err)

	def, err := NewDiffPolicy(nil, DefaultRAMToleranceGB)
	require.NoError(t, err)
	assert.Len(t, def.Fields, len(DefaultDiffFields))
}
