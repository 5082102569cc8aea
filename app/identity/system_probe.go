package identity

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/IamSpotted/ITSF-Agent/app/domains"
	"github.com/IamSpotted/ITSF-Agent/app/logger"
	"github.com/IamSpotted/ITSF-Agent/app/utils"
	"github.com/rs/zerolog"
)

// SystemProbe reads firmware, OS, memory module and disk details using the
// facilities of the current platform.
type SystemProbe struct {
	runner Runner
	root   string
	log    zerolog.Logger
}

// NewSystemProbe creates a new system probe
func NewSystemProbe(runner Runner, log logger.Logger) *SystemProbe {
	return &SystemProbe{
		runner: runner,
		root:   "/",
		log:    log.WithComponent("system-probe"),
	}
}

// MemoryModule is the first populated memory device reported by firmware.
type MemoryModule struct {
	Type         string
	Speed        string
	Manufacturer string
}

// Disk is a physical disk as reported by the OS.
type Disk struct {
	Name      string
	SizeBytes uint64
	Model     string
	Interface string
}

// ParseOSRelease parses an os-release file into a key/value map.
func ParseOSRelease(data string) map[string]string {
	out := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		if unquoted, err := strconv.Unquote(value); err == nil {
			value = unquoted
		} else {
			value = strings.Trim(value, `"'`)
		}
		out[key] = value
	}
	return out
}

// ParseDmidecodeMemory returns the first installed module from `dmidecode -t memory` output.
func ParseDmidecodeMemory(output string) (MemoryModule, bool) {
	var (
		current MemoryModule
		inDev   bool
		empty   bool
	)

	flush := func() (MemoryModule, bool) {
		if inDev && !empty && current.Type != "" {
			return current, true
		}
		return MemoryModule{}, false
	}

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "Memory Device" {
			if m, ok := flush(); ok {
				return m, true
			}
			current, inDev, empty = MemoryModule{}, true, false
			continue
		}
		if !inDev {
			continue
		}

		key, value, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)

		switch key {
		case "Size":
			if strings.HasPrefix(value, "No Module") {
				empty = true
			}
		case "Type":
			if value != "Unknown" && value != "Other" {
				current.Type = value
			}
		case "Speed":
			if value != "Unknown" {
				current.Speed = strings.Replace(value, "MT/s", "MHz", 1)
			}
		case "Manufacturer":
			current.Manufacturer = utils.CleanValue(value)
		}
	}

	return flush()
}

type lsblkOutput struct {
	BlockDevices []struct {
		Name  string          `json:"name"`
		Size  json.RawMessage `json:"size"`
		Model *string         `json:"model"`
		Tran  *string         `json:"tran"`
		Type  string          `json:"type"`
	} `json:"blockdevices"`
}

// ParseLsblk parses `lsblk -J -d -b -o NAME,SIZE,MODEL,TRAN,TYPE` output into disks.
func ParseLsblk(output string) ([]Disk, error) {
	var parsed lsblkOutput
	if err := json.Unmarshal([]byte(output), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse lsblk output: %w", err)
	}

	var disks []Disk
	for _, dev := range parsed.BlockDevices {
		if dev.Type != "disk" {
			continue
		}

		// size is a number in newer util-linux and a string in older releases
		raw := strings.Trim(string(dev.Size), `"`)
		size, _ := strconv.ParseUint(raw, 10, 64)

		d := Disk{Name: dev.Name, SizeBytes: size}
		if dev.Model != nil {
			d.Model = strings.TrimSpace(*dev.Model)
		}
		if dev.Tran != nil {
			d.Interface = strings.ToUpper(strings.TrimSpace(*dev.Tran))
		}
		disks = append(disks, d)
	}
	return disks, nil
}

// ApplyDisks maps up to four disks onto the snapshot's storage columns.
func ApplyDisks(snap *domains.Snapshot, disks []Disk) {
	slots := []struct{ name, capacity, typ, model **string }{
		{nil, &snap.StorageInfo, &snap.StorageType, &snap.StorageModel},
		{&snap.Drive2Name, &snap.Drive2Capacity, &snap.Drive2Type, &snap.Drive2Model},
		{&snap.Drive3Name, &snap.Drive3Capacity, &snap.Drive3Type, &snap.Drive3Model},
		{&snap.Drive4Name, &snap.Drive4Capacity, &snap.Drive4Type, &snap.Drive4Model},
	}

	for i, d := range disks {
		if i == len(slots) {
			break
		}
		slot := slots[i]

		if i == 0 {
			*slot.capacity = domains.Ptr(strings.TrimSpace(fmt.Sprintf("%s %s", utils.FormatCapacity(d.SizeBytes), d.Model)))
		} else {
			*slot.name = domains.Ptr(fmt.Sprintf("Drive %d", i+1))
			*slot.capacity = domains.Ptr(utils.FormatCapacity(d.SizeBytes))
		}
		if d.Interface != "" {
			*slot.typ = domains.Ptr(d.Interface)
		}
		if d.Model != "" {
			*slot.model = domains.Ptr(d.Model)
		}
	}
}

func setIfKnown(dst **string, v string) {
	if v = utils.CleanValue(v); v != "" {
		*dst = domains.Ptr(v)
	}
}
