//go:build windows

package identity

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/IamSpotted/ITSF-Agent/app/domains"
	"golang.org/x/sys/windows/registry"
)

const (
	biosKeyPath    = `HARDWARE\DESCRIPTION\System\BIOS`
	currentVerPath = `SOFTWARE\Microsoft\Windows NT\CurrentVersion`
)

// Probe reads firmware and OS facts from the registry and the remaining
// details through CIM queries.
func (p *SystemProbe) Probe(ctx context.Context, snap *domains.Snapshot) {
	p.probeRegistry(snap)
	p.probeComputerSystem(ctx, snap)
	p.probeSerial(ctx, snap)
	p.probeMemory(ctx, snap)
	p.probeStorage(ctx, snap)
	p.probeDNS(ctx, snap)
}

func (p *SystemProbe) probeRegistry(snap *domains.Snapshot) {
	if k, err := registry.OpenKey(registry.LOCAL_MACHINE, biosKeyPath, registry.QUERY_VALUE); err == nil {
		setIfKnown(&snap.Manufacturer, stringValue(k, "SystemManufacturer"))
		setIfKnown(&snap.Model, stringValue(k, "SystemProductName"))
		setIfKnown(&snap.BIOSVersion, stringValue(k, "BIOSVersion"))
		k.Close()
	} else {
		p.log.Warn().Err(err).Msg("error reading BIOS registry key")
	}

	k, err := registry.OpenKey(registry.LOCAL_MACHINE, currentVerPath, registry.QUERY_VALUE)
	if err != nil {
		p.log.Warn().Err(err).Msg("error reading OS registry key")
		return
	}
	defer k.Close()

	setIfKnown(&snap.OSName, stringValue(k, "ProductName"))
	if build := stringValue(k, "CurrentBuild"); build != "" {
		version := "10.0." + build
		if display := stringValue(k, "DisplayVersion"); display != "" {
			version += " (" + display + ")"
		}
		snap.OSVersion = domains.Ptr(version)
	}
	if installed, _, err := k.GetIntegerValue("InstallDate"); err == nil && installed > 0 {
		snap.OSInstallDate = domains.Ptr(time.Unix(int64(installed), 0).UTC())
	}
}

func stringValue(k registry.Key, name string) string {
	v, _, err := k.GetStringValue(name)
	if err != nil {
		return ""
	}
	return v
}

func (p *SystemProbe) powershell(ctx context.Context, script string) (string, error) {
	return p.runner.Output(ctx, "powershell.exe", "-NoProfile", "-NonInteractive", "-Command", script)
}

func (p *SystemProbe) probeComputerSystem(ctx context.Context, snap *domains.Snapshot) {
	out, err := p.powershell(ctx, "Get-CimInstance Win32_ComputerSystem | Select-Object Domain,PartOfDomain | ConvertTo-Json -Compress")
	if err != nil {
		p.log.Warn().Err(err).Msg("error getting domain info")
		return
	}

	var cs struct {
		Domain       string `json:"Domain"`
		PartOfDomain bool   `json:"PartOfDomain"`
	}
	if err := json.Unmarshal([]byte(out), &cs); err != nil {
		p.log.Warn().Err(err).Msg("error parsing domain info")
		return
	}

	if cs.Domain != "" {
		snap.DomainName = domains.Ptr(cs.Domain)
	}
	snap.IsDomainJoined = domains.Ptr(cs.PartOfDomain)
}

func (p *SystemProbe) probeSerial(ctx context.Context, snap *domains.Snapshot) {
	out, err := p.powershell(ctx, "Get-CimInstance Win32_BIOS | Select-Object -ExpandProperty SerialNumber")
	if err != nil {
		p.log.Warn().Err(err).Msg("error getting BIOS serial")
		return
	}
	setIfKnown(&snap.SerialNumber, out)
}

func (p *SystemProbe) probeMemory(ctx context.Context, snap *domains.Snapshot) {
	out, err := p.powershell(ctx, "Get-CimInstance Win32_PhysicalMemory | Select-Object SMBIOSMemoryType,Speed,Manufacturer | ConvertTo-Json -Compress")
	if err != nil {
		p.log.Warn().Err(err).Msg("error getting memory module info")
		return
	}

	module, ok := ParseCIMMemory(out)
	if !ok {
		return
	}
	setIfKnown(&snap.RAMType, module.Type)
	setIfKnown(&snap.RAMSpeed, module.Speed)
	setIfKnown(&snap.RAMManufacturer, module.Manufacturer)
}

func (p *SystemProbe) probeStorage(ctx context.Context, snap *domains.Snapshot) {
	out, err := p.powershell(ctx, "Get-CimInstance Win32_DiskDrive | Where-Object MediaType -eq 'Fixed hard disk media' | Select-Object Model,Size,InterfaceType | ConvertTo-Json -Compress")
	if err != nil {
		p.log.Warn().Err(err).Msg("error getting storage info")
		return
	}

	disks, err := ParseCIMDisks(out)
	if err != nil {
		p.log.Warn().Err(err).Msg("error getting storage info")
		return
	}
	ApplyDisks(snap, disks)
}

func (p *SystemProbe) probeDNS(ctx context.Context, snap *domains.Snapshot) {
	out, err := p.powershell(ctx, "Get-DnsClientServerAddress -AddressFamily IPv4 | Select-Object -ExpandProperty ServerAddresses")
	if err != nil {
		return
	}

	var servers []string
	for _, line := range strings.Split(out, "\n") {
		if s := strings.TrimSpace(line); s != "" {
			servers = append(servers, s)
		}
	}
	if len(servers) > 0 {
		snap.PrimaryDNS = domains.Ptr(servers[0])
	}
	if len(servers) > 1 {
		snap.SecondaryDNS = domains.Ptr(servers[1])
	}
}
