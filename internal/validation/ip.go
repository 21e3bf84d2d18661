package validation

import (
	"net/netip"
	"strings"
)

// CanonicalIP reduces a client address to a stable rate-limit key. Ports and
// IPv6 brackets are dropped and IPv4-mapped IPv6 addresses are unmapped, so
// "::ffff:10.0.0.1" and "10.0.0.1:5123" both yield "10.0.0.1". Values that
// are not IP literals are returned trimmed; an empty value yields "unknown".
func CanonicalIP(raw string) string {
	host := strings.TrimSpace(raw)
	if host == "" {
		return "unknown"
	}

	if addrPort, err := netip.ParseAddrPort(host); err == nil {
		return canonical(addrPort.Addr())
	}

	host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	if i := strings.IndexByte(host, '%'); i >= 0 {
		host = host[:i]
	}

	addr, err := netip.ParseAddr(host)
	if err != nil {
		return host
	}
	return canonical(addr)
}

func canonical(addr netip.Addr) string {
	if addr.Is4In6() {
		addr = netip.AddrFrom4(addr.As4())
	}
	return addr.WithZone("").String()
}
