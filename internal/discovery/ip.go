// Package discovery makes the hub reachable on the local network: it picks
// the LAN address to print and advertises the service over mDNS.
package discovery

import "net"

// LocalIPv4 returns the first non-loopback private IPv4 address, or
// "localhost" when none is up. Good enough for printing a reachable URL on a
// home network.
func LocalIPv4() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "localhost"
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if ip := privateIPv4(addr); ip != "" {
				return ip
			}
		}
	}
	return "localhost"
}

func privateIPv4(addr net.Addr) string {
	ipNet, ok := addr.(*net.IPNet)
	if !ok {
		return ""
	}
	ip4 := ipNet.IP.To4()
	if ip4 == nil || !ip4.IsPrivate() {
		return ""
	}
	return ip4.String()
}
