package discovery

import (
	"fmt"
	"net"

	"github.com/pion/mdns/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

// Advertiser answers mDNS queries for "<instance>.local" so LAN clients can
// find the hub without knowing its address.
type Advertiser struct {
	conn *mdns.Conn
}

// Advertise starts answering for instance (without the .local suffix).
func Advertise(instance string) (*Advertiser, error) {
	addr4, err := net.ResolveUDPAddr("udp4", mdns.DefaultAddressIPv4)
	if err != nil {
		return nil, fmt.Errorf("resolve mdns v4 addr: %w", err)
	}
	l4, err := net.ListenUDP("udp4", addr4)
	if err != nil {
		return nil, fmt.Errorf("listen mdns v4: %w", err)
	}

	addr6, err := net.ResolveUDPAddr("udp6", mdns.DefaultAddressIPv6)
	if err != nil {
		l4.Close()
		return nil, fmt.Errorf("resolve mdns v6 addr: %w", err)
	}
	// v6 is best effort; plenty of LANs have it disabled.
	var pc6 *ipv6.PacketConn
	if l6, err := net.ListenUDP("udp6", addr6); err == nil {
		pc6 = ipv6.NewPacketConn(l6)
	} else {
		log.Warn().Err(err).Str("module", "discovery").Msg("mdns v6 unavailable")
	}

	name := instance + ".local"
	conn, err := mdns.Server(ipv4.NewPacketConn(l4), pc6, &mdns.Config{
		LocalNames: []string{name},
	})
	if err != nil {
		l4.Close()
		return nil, fmt.Errorf("start mdns server: %w", err)
	}
	log.Info().Str("module", "discovery").Str("name", name).Msg("mdns advertisement started")
	return &Advertiser{conn: conn}, nil
}

func (a *Advertiser) Close() error {
	if a == nil || a.conn == nil {
		return nil
	}
	return a.conn.Close()
}
