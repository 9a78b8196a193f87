// Package clientip resolves the peer address used to key rate limits.
package clientip

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// RealClientIP returns the client address of r in canonical form. Only
// r.RemoteAddr is trusted; forwarding headers are ignored because the API is
// reached directly rather than through a CDN.
//
// IPv4-mapped IPv6 addresses are unmapped and zones dropped so one client
// never ends up with two limiter buckets.
func RealClientIP(r *http.Request) string {
	remote := strings.TrimSpace(r.RemoteAddr)
	host := remote
	if h, _, err := net.SplitHostPort(remote); err == nil {
		host = h
	}

	addr, err := netip.ParseAddr(host)
	if err != nil {
		return host
	}
	return addr.Unmap().WithZone("").String()
}
