package discovery

import (
	"net"
	"testing"
)

func TestPrivateIPv4Selection(t *testing.T) {
	cases := []struct {
		cidr string
		want string
	}{
		{"192.168.1.42/24", "192.168.1.42"},
		{"10.0.0.7/8", "10.0.0.7"},
		{"172.16.5.1/12", "172.16.5.1"},
		{"8.8.8.8/32", ""},       // public
		{"127.0.0.1/8", ""},      // loopback is not private
		{"fd00::1/64", ""},       // v6
		{"169.254.10.10/16", ""}, // link-local
	}
	for _, tc := range cases {
		ip, ipNet, err := net.ParseCIDR(tc.cidr)
		if err != nil {
			t.Fatalf("parse %s: %v", tc.cidr, err)
		}
		ipNet.IP = ip
		if got := privateIPv4(ipNet); got != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.cidr, tc.want, got)
		}
	}
}

func TestLocalIPv4NeverEmpty(t *testing.T) {
	if LocalIPv4() == "" {
		t.Fatal("expected an address or the localhost fallback")
	}
}
