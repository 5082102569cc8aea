package identity

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/IamSpotted/ITSF-Agent/app/domains"
	"github.com/IamSpotted/ITSF-Agent/app/logger"
	"github.com/IamSpotted/ITSF-Agent/app/utils"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	psnet "github.com/shirou/gopsutil/v3/net"
)

const (
	DeviceTypeComputer    = "Computer"
	DiscoveryMethodAgent  = "Agent"
	DefaultDeviceStatus   = "Active"
	maxNetworkInterfaces  = 4
	defaultCommandTimeout = 15 * time.Second
)

// SiteInfo is operator-supplied location and asset metadata that cannot be
// discovered from the host.
type SiteInfo struct {
	AssetTag        string `yaml:"asset_tag"`
	EquipmentGroup  string `yaml:"equipment_group"`
	DeviceStatus    string `yaml:"device_status"`
	Area            string `yaml:"area"`
	Zone            string `yaml:"zone"`
	Line            string `yaml:"line"`
	Pitch           string `yaml:"pitch"`
	Floor           string `yaml:"floor"`
	Pillar          string `yaml:"pillar"`
	WebInterfaceURL string `yaml:"web_interface_url" validate:"omitempty,url"`
	AdditionalNotes string `yaml:"additional_notes"`
}

// Probe fills the platform-specific parts of a snapshot. Probes never fail the
// collection: values they cannot determine stay nil.
type Probe interface {
	Probe(ctx context.Context, snap *domains.Snapshot)
}

// Collector gathers a device snapshot from the local host
type Collector struct {
	probe Probe
	mu    sync.RWMutex
	site  SiteInfo
	log   zerolog.Logger
	now   func() time.Time

	hostname      func() (string, error)
	hostInfo      func(context.Context) (*host.InfoStat, error)
	cpuInfo       func(context.Context) ([]cpu.InfoStat, error)
	cpuCounts     func(context.Context, bool) (int, error)
	virtualMemory func(context.Context) (*mem.VirtualMemoryStat, error)
	interfaces    func(context.Context) (psnet.InterfaceStatList, error)
}

// NewCollector creates a collector using the probe for the current platform
func NewCollector(site SiteInfo, log logger.Logger) *Collector {
	return NewCollectorWithProbe(NewSystemProbe(NewCommandRunner(defaultCommandTimeout), log), site, log)
}

// NewCollectorWithProbe creates a collector with an explicit platform probe
func NewCollectorWithProbe(probe Probe, site SiteInfo, log logger.Logger) *Collector {
	return &Collector{
		probe:         probe,
		site:          site,
		log:           log.WithComponent("collector"),
		now:           time.Now,
		hostname:      os.Hostname,
		hostInfo:      host.InfoWithContext,
		cpuInfo:       cpu.InfoWithContext,
		cpuCounts:     cpu.CountsWithContext,
		virtualMemory: mem.VirtualMemoryWithContext,
		interfaces:    psnet.InterfacesWithContext,
	}
}

// SetSite replaces the operator-supplied metadata used for future snapshots
func (c *Collector) SetSite(site SiteInfo) {
	c.mu.Lock()
	c.site = site
	c.mu.Unlock()
}

// Collect gathers a snapshot. Only a missing hostname fails the collection.
func (c *Collector) Collect(ctx context.Context) (domains.Snapshot, error) {
	name, err := c.hostname()
	if err != nil {
		return domains.Snapshot{}, fmt.Errorf("failed to determine hostname: %w", err)
	}
	short, domain := splitHostname(name)
	if short == "" {
		return domains.Snapshot{}, errors.New("failed to determine hostname: empty name")
	}

	snap := domains.Snapshot{
		Hostname:        short,
		DeviceType:      domains.Ptr(DeviceTypeComputer),
		DiscoveryMethod: domains.Ptr(DiscoveryMethodAgent),
		DeviceStatus:    domains.Ptr(DefaultDeviceStatus),
	}
	if domain != "" {
		snap.DomainName = domains.Ptr(domain)
	}

	c.collectHost(ctx, &snap)
	c.collectCPU(ctx, &snap)
	c.collectMemory(ctx, &snap)
	c.collectNetwork(ctx, &snap)

	if c.probe != nil {
		c.probe.Probe(ctx, &snap)
	}

	if snap.IsDomainJoined == nil {
		joined := snap.DomainName != nil && *snap.DomainName != "" &&
			!strings.EqualFold(*snap.DomainName, "WORKGROUP")
		snap.IsDomainJoined = &joined
	}

	c.applySite(&snap)

	if err := ctx.Err(); err != nil {
		return domains.Snapshot{}, err
	}
	if err := utils.ValidateStruct(snap); err != nil {
		return domains.Snapshot{}, err
	}

	snap.CollectedAt = c.now().UTC()
	c.log.Debug().Str("hostname", snap.Hostname).Msg("snapshot collected")
	return snap, nil
}

func (c *Collector) collectHost(ctx context.Context, snap *domains.Snapshot) {
	info, err := c.hostInfo(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("error getting host info")
		return
	}

	if info.KernelArch != "" {
		snap.OSArchitecture = domains.Ptr(utils.NormalizeArch(info.KernelArch))
	}
	if info.Platform != "" {
		snap.OSName = domains.Ptr(info.Platform)
	}
	if info.PlatformVersion != "" {
		snap.OSVersion = domains.Ptr(info.PlatformVersion)
	}
}

func (c *Collector) collectCPU(ctx context.Context, snap *domains.Snapshot) {
	infos, err := c.cpuInfo(ctx)
	if err != nil || len(infos) == 0 {
		c.log.Warn().Err(err).Msg("error getting processor info")
		return
	}

	cores, err := c.cpuCounts(ctx, false)
	if err != nil {
		cores = 0
	}
	threads, err := c.cpuCounts(ctx, true)
	if err != nil {
		threads = 0
	}

	snap.CPUInfo = domains.Ptr(utils.CPUDescription(infos[0].ModelName, cores, threads))
}

func (c *Collector) collectMemory(ctx context.Context, snap *domains.Snapshot) {
	vm, err := c.virtualMemory(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("error getting memory info")
		return
	}
	snap.TotalRAMGB = domains.Ptr(roundGB(vm.Total))
}

func (c *Collector) collectNetwork(ctx context.Context, snap *domains.Snapshot) {
	ifaces, err := c.interfaces(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("error getting network info")
		return
	}

	type nic struct{ name, ip, mac, subnet string }
	var nics []nic
	for _, iface := range ifaces {
		if !hasFlag(iface.Flags, "up") || hasFlag(iface.Flags, "loopback") {
			continue
		}

		addrs := make([]string, 0, len(iface.Addrs))
		for _, a := range iface.Addrs {
			addrs = append(addrs, a.Addr)
		}
		ip, subnet, ok := utils.FirstIPv4(addrs)
		if !ok {
			continue
		}

		nics = append(nics, nic{name: iface.Name, ip: ip, mac: utils.FormatMAC(iface.HardwareAddr), subnet: subnet})
		if len(nics) == maxNetworkInterfaces {
			break
		}
	}

	if len(nics) == 0 {
		if ip, err := utils.GetPrimaryIP(); err == nil {
			snap.PrimaryIP = domains.Ptr(ip)
		}
		return
	}

	slots := []struct{ name, ip, mac, subnet **string }{
		{nil, &snap.PrimaryIP, &snap.PrimaryMAC, &snap.PrimarySubnet},
		{&snap.NIC2Name, &snap.NIC2IP, &snap.NIC2MAC, &snap.NIC2Subnet},
		{&snap.NIC3Name, &snap.NIC3IP, &snap.NIC3MAC, &snap.NIC3Subnet},
		{&snap.NIC4Name, &snap.NIC4IP, &snap.NIC4MAC, &snap.NIC4Subnet},
	}
	for i, n := range nics {
		slot := slots[i]
		if slot.name != nil {
			*slot.name = domains.Ptr(n.name)
		}
		*slot.ip = domains.Ptr(n.ip)
		*slot.mac = domains.Ptr(n.mac)
		*slot.subnet = domains.Ptr(n.subnet)
	}
}

func (c *Collector) applySite(snap *domains.Snapshot) {
	c.mu.RLock()
	site := c.site
	c.mu.RUnlock()

	set := func(dst **string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = domains.Ptr(v)
		}
	}

	set(&snap.AssetTag, site.AssetTag)
	set(&snap.EquipmentGroup, site.EquipmentGroup)
	set(&snap.DeviceStatus, site.DeviceStatus)
	set(&snap.Area, site.Area)
	set(&snap.Zone, site.Zone)
	set(&snap.Line, site.Line)
	set(&snap.Pitch, site.Pitch)
	set(&snap.Floor, site.Floor)
	set(&snap.Pillar, site.Pillar)
	set(&snap.WebInterfaceURL, site.WebInterfaceURL)
	set(&snap.AdditionalNotes, site.AdditionalNotes)
}

func splitHostname(name string) (short, domain string) {
	name = strings.TrimSuffix(strings.TrimSpace(name), ".")
	short, domain, _ = strings.Cut(name, ".")
	return short, domain
}

func hasFlag(flags []string, want string) bool {
	for _, f := range flags {
		if strings.EqualFold(f, want) {
			return true
		}
	}
	return false
}

// roundGB converts bytes to the nearest whole gibibyte.
func roundGB(b uint64) int {
	const gib = 1024 * 1024 * 1024
	return int((b + gib/2) / gib)
}
