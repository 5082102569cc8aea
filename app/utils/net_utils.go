package utils

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strings"
)

// GetPrimaryIP returns the source address the host would use for outbound traffic.
// No packets are sent; the UDP socket is only connected to pick a route.
func GetPrimaryIP() (string, error) {
	conn, err := net.Dial("udp4", "192.0.2.1:9")
	if err == nil {
		defer conn.Close()
		if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok && !addr.IP.IsUnspecified() {
			return addr.IP.String(), nil
		}
	}

	interfaces, err := net.Interfaces()
	if err != nil {
		return "", fmt.Errorf("failed to get interfaces: %w", err)
	}

	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					return ipnet.IP.String(), nil
				}
			}
		}
	}

	return "", fmt.Errorf("could not determine IP address")
}

// FormatMAC renders a hardware address as bare upper-case hex, e.g. 001A2B3C4D5E.
func FormatMAC(mac string) string {
	r := strings.NewReplacer(":", "", "-", "", ".", "")
	return strings.ToUpper(r.Replace(strings.TrimSpace(mac)))
}

// FirstIPv4 returns the first IPv4 address in CIDR notation from addrs, which
// may be plain addresses or CIDR strings.
func FirstIPv4(addrs []string) (ip string, cidr string, ok bool) {
	for _, a := range addrs {
		if parsed, ipnet, err := net.ParseCIDR(a); err == nil {
			if v4 := parsed.To4(); v4 != nil {
				ones, _ := ipnet.Mask.Size()
				return v4.String(), fmt.Sprintf("%s/%d", v4, ones), true
			}
			continue
		}
		if parsed := net.ParseIP(a); parsed != nil && parsed.To4() != nil {
			return parsed.String(), parsed.String() + "/32", true
		}
	}
	return "", "", false
}

// NameServers returns IPv4 nameservers listed in a resolv.conf style file.
func NameServers(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var servers []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 || fields[0] != "nameserver" {
			continue
		}
		if ip := net.ParseIP(fields[1]); ip != nil && ip.To4() != nil {
			servers = append(servers, ip.String())
		}
	}
	return servers, scanner.Err()
}
