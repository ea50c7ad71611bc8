package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIPExtractor resolves the address of the caller. X-Forwarded-For
// is only honored when the direct peer is a trusted proxy.
type ClientIPExtractor struct {
	trusted []netip.Prefix
}

// NewClientIPExtractor accepts CIDRs and bare addresses. Entries that
// parse as neither are ignored; config validation reports them.
func NewClientIPExtractor(trustedProxies []string) *ClientIPExtractor {
	e := &ClientIPExtractor{trusted: make([]netip.Prefix, 0, len(trustedProxies))}
	for _, entry := range trustedProxies {
		if p, err := netip.ParsePrefix(entry); err == nil {
			e.trusted = append(e.trusted, p.Masked())
			continue
		}
		if addr, err := netip.ParseAddr(entry); err == nil {
			e.trusted = append(e.trusted, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
		}
	}
	return e
}

// Extract returns the client address of r. Behind trusted proxies the
// forwarded chain is read from the right and the first hop that is not a
// trusted proxy wins. A nil extractor returns the peer address.
func (e *ClientIPExtractor) Extract(r *http.Request) string {
	peer := hostOnly(r.RemoteAddr)
	if e == nil || len(e.trusted) == 0 || !e.trustedAddr(peer) {
		return peer
	}

	hops := forwardedHops(r.Header.Values(HeaderXForwardedFor))
	for i := len(hops) - 1; i >= 0; i-- {
		if !e.trustedAddr(hops[i]) {
			return hops[i]
		}
	}
	return peer
}

func (e *ClientIPExtractor) trustedAddr(s string) bool {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range e.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// forwardedHops flattens repeated X-Forwarded-For lines in order.
func forwardedHops(lines []string) []string {
	var hops []string
	for _, line := range lines {
		for _, hop := range strings.Split(line, ",") {
			if hop = strings.TrimSpace(hop); hop != "" {
				hops = append(hops, hop)
			}
		}
	}
	return hops
}

func hostOnly(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
