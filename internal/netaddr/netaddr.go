// Package netaddr picks the address a listen server advertises to joiners.
package netaddr

import (
	"net"
	"strconv"

	psnet "github.com/shirou/gopsutil/v3/net"
)

const fallbackIP = "127.0.0.1"

// Lister enumerates network interfaces.
type Lister func() (psnet.InterfaceStatList, error)

// System lists the host's interfaces.
func System() Lister {
	return psnet.Interfaces
}

// LocalIPv4 returns the first IPv4 address of an interface that is up and
// not loopback, or 127.0.0.1 when there is none.
func LocalIPv4(list Lister) string {
	ifaces, err := list()
	if err != nil {
		return fallbackIP
	}
	for _, iface := range ifaces {
		if !hasFlag(iface.Flags, "up") || hasFlag(iface.Flags, "loopback") {
			continue
		}
		for _, a := range iface.Addrs {
			ip := parseIP(a.Addr)
			if ip == nil || ip.IsLoopback() || ip.IsLinkLocalUnicast() {
				continue
			}
			if v4 := ip.To4(); v4 != nil {
				return v4.String()
			}
		}
	}
	return fallbackIP
}

// Advertise returns host:port for a listen server on port. A non-empty
// override wins over discovery.
func Advertise(list Lister, override string, port int) string {
	host := override
	if host == "" {
		host = LocalIPv4(list)
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func parseIP(addr string) net.IP {
	if ip, _, err := net.ParseCIDR(addr); err == nil {
		return ip
	}
	return net.ParseIP(addr)
}

func hasFlag(flags []string, want string) bool {
	for _, f := range flags {
		if f == want {
			return true
		}
	}
	return false
}
