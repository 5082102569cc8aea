package identity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/IamSpotted/ITSF-Agent/app/utils"
)

type cimMemory struct {
	SMBIOSMemoryType int     `json:"SMBIOSMemoryType"`
	Speed            *int    `json:"Speed"`
	Manufacturer     *string `json:"Manufacturer"`
}

type cimDisk struct {
	Model         *string `json:"Model"`
	Size          *uint64 `json:"Size"`
	InterfaceType *string `json:"InterfaceType"`
}

// decodeCIM decodes ConvertTo-Json output, which is a bare object for a single
// result and an array otherwise.
func decodeCIM[T any](output string) ([]T, error) {
	data := bytes.TrimSpace([]byte(output))
	if len(data) == 0 {
		return nil, nil
	}

	if data[0] == '[' {
		var items []T
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("failed to parse CIM output: %w", err)
		}
		return items, nil
	}

	var item T
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("failed to parse CIM output: %w", err)
	}
	return []T{item}, nil
}

// ParseCIMMemory reads the first Win32_PhysicalMemory entry.
func ParseCIMMemory(output string) (MemoryModule, bool) {
	items, err := decodeCIM[cimMemory](output)
	if err != nil || len(items) == 0 {
		return MemoryModule{}, false
	}

	first := items[0]
	m := MemoryModule{Type: utils.MemoryType(first.SMBIOSMemoryType)}
	if first.Speed != nil && *first.Speed > 0 {
		m.Speed = fmt.Sprintf("%d MHz", *first.Speed)
	}
	if first.Manufacturer != nil {
		m.Manufacturer = utils.CleanValue(*first.Manufacturer)
	}
	return m, true
}

// ParseCIMDisks reads Win32_DiskDrive entries.
func ParseCIMDisks(output string) ([]Disk, error) {
	items, err := decodeCIM[cimDisk](output)
	if err != nil {
		return nil, err
	}

	disks := make([]Disk, 0, len(items))
	for i, item := range items {
		d := Disk{Name: fmt.Sprintf("Drive %d", i+1)}
		if item.Model != nil {
			d.Model = strings.TrimSpace(*item.Model)
		}
		if item.Size != nil {
			d.SizeBytes = *item.Size
		}
		if item.InterfaceType != nil {
			d.Interface = strings.TrimSpace(*item.InterfaceType)
		}
		disks = append(disks, d)
	}
	return disks, nil
}
