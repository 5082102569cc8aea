package utils

import (
	"fmt"
	"strings"
)

// NormalizeArch normalizes architecture name to the labels used in inventory
func NormalizeArch(arch string) string {
	switch strings.ToLower(strings.TrimSpace(arch)) {
	case "x86_64", "amd64", "x64":
		return "X64"
	case "aarch64", "arm64":
		return "Arm64"
	case "i386", "i686", "x86", "386":
		return "X86"
	case "armv7l", "arm":
		return "Arm"
	default:
		return arch
	}
}

// MemoryType maps an SMBIOS memory type code to its marketing name
func MemoryType(code int) string {
	switch code {
	case 20:
		return "DDR"
	case 21:
		return "DDR2"
	case 24:
		return "DDR3"
	case 26:
		return "DDR4"
	case 34:
		return "DDR5"
	default:
		return "Unknown"
	}
}

// BytesToGB converts bytes to whole gibibytes, truncating.
func BytesToGB(b uint64) int {
	return int(b / (1024 * 1024 * 1024))
}

// FormatCapacity renders a size in bytes as "<n>GB".
func FormatCapacity(b uint64) string {
	return fmt.Sprintf("%dGB", BytesToGB(b))
}

// CPUDescription renders a processor summary such as "Intel Core i7 (8 cores, 16 threads)".
func CPUDescription(model string, cores, threads int) string {
	model = strings.TrimSpace(model)
	if cores <= 0 && threads <= 0 {
		return model
	}
	return fmt.Sprintf("%s (%d cores, %d threads)", model, cores, threads)
}

// CleanValue trims whitespace and maps firmware placeholder strings to empty.
func CleanValue(v string) string {
	v = strings.TrimSpace(v)
	switch strings.ToLower(v) {
	case "to be filled by o.e.m.", "default string", "not specified", "none", "system serial number", "no asset information", "0":
		return ""
	}
	return v
}
