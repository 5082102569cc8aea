//go:build linux

package identity

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/IamSpotted/ITSF-Agent/app/domains"
	"github.com/IamSpotted/ITSF-Agent/app/utils"
)

// Probe reads DMI data from sysfs, os-release, dmidecode and lsblk.
func (p *SystemProbe) Probe(ctx context.Context, snap *domains.Snapshot) {
	p.probeFirmware(snap)
	p.probeOS(ctx, snap)
	p.probeDomain(ctx, snap)
	p.probeMemory(ctx, snap)
	p.probeStorage(ctx, snap)
	p.probeDNS(snap)
}

func (p *SystemProbe) readFile(rel string) string {
	data, err := os.ReadFile(filepath.Join(p.root, rel))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (p *SystemProbe) probeFirmware(snap *domains.Snapshot) {
	const dmi = "sys/class/dmi/id"

	setIfKnown(&snap.Manufacturer, p.readFile(filepath.Join(dmi, "sys_vendor")))
	setIfKnown(&snap.Model, p.readFile(filepath.Join(dmi, "product_name")))
	setIfKnown(&snap.BIOSVersion, p.readFile(filepath.Join(dmi, "bios_version")))
	// product_serial is root-only on most distributions
	setIfKnown(&snap.SerialNumber, p.readFile(filepath.Join(dmi, "product_serial")))
	setIfKnown(&snap.AssetTag, p.readFile(filepath.Join(dmi, "chassis_asset_tag")))
}

func (p *SystemProbe) probeOS(ctx context.Context, snap *domains.Snapshot) {
	release := ParseOSRelease(p.readFile("etc/os-release"))
	if name := release["PRETTY_NAME"]; name != "" {
		snap.OSName = domains.Ptr(name)
	}

	version := release["VERSION_ID"]
	if kernel, err := p.runner.Output(ctx, "uname", "-r"); err == nil && kernel != "" {
		version = strings.TrimSpace(fmt.Sprintf("%s (Kernel: %s)", version, kernel))
	}
	if version != "" {
		snap.OSVersion = domains.Ptr(version)
	}

	if birth, err := p.runner.Output(ctx, "stat", "-c", "%W", "/"); err == nil {
		if ts, err := strconv.ParseInt(birth, 10, 64); err == nil && ts > 0 {
			snap.OSInstallDate = domains.Ptr(time.Unix(ts, 0).UTC())
		}
	}
}

func (p *SystemProbe) probeDomain(ctx context.Context, snap *domains.Snapshot) {
	if snap.DomainName != nil {
		return
	}
	for _, cmd := range [][]string{{"hostname", "-d"}, {"dnsdomainname"}} {
		out, err := p.runner.Output(ctx, cmd[0], cmd[1:]...)
		if err == nil && out != "" {
			snap.DomainName = domains.Ptr(out)
			return
		}
	}
}

func (p *SystemProbe) probeMemory(ctx context.Context, snap *domains.Snapshot) {
	out, err := p.runner.Output(ctx, "dmidecode", "-t", "memory")
	if err != nil {
		p.log.Debug().Err(err).Msg("memory module details unavailable")
		return
	}

	module, ok := ParseDmidecodeMemory(out)
	if !ok {
		return
	}
	setIfKnown(&snap.RAMType, module.Type)
	setIfKnown(&snap.RAMSpeed, module.Speed)
	setIfKnown(&snap.RAMManufacturer, module.Manufacturer)
}

func (p *SystemProbe) probeStorage(ctx context.Context, snap *domains.Snapshot) {
	out, err := p.runner.Output(ctx, "lsblk", "-J", "-d", "-b", "-o", "NAME,SIZE,MODEL,TRAN,TYPE")
	if err != nil {
		p.log.Warn().Err(err).Msg("error getting storage info")
		return
	}

	disks, err := ParseLsblk(out)
	if err != nil {
		p.log.Warn().Err(err).Msg("error getting storage info")
		return
	}
	ApplyDisks(snap, disks)
}

func (p *SystemProbe) probeDNS(snap *domains.Snapshot) {
	servers, err := utils.NameServers(filepath.Join(p.root, "etc/resolv.conf"))
	if err != nil {
		return
	}
	if len(servers) > 0 {
		snap.PrimaryDNS = domains.Ptr(servers[0])
	}
	if len(servers) > 1 {
		snap.SecondaryDNS = domains.Ptr(servers[1])
	}
}
