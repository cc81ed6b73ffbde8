package handler

import (
	"net/netip"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// clientAddress returns the caller's network address. With trustProxy it prefers the
// first X-Forwarded-For hop, then X-Real-IP, before the socket address. A header value
// that is not an IP address is ignored. trustProxy is only safe behind a proxy that
// overwrites these headers; otherwise callers choose their own address.
func clientAddress(c *fiber.Ctx, trustProxy bool) string {
	if trustProxy {
		if fwd := c.Get(fiber.HeaderXForwardedFor); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if addr, ok := parseAddress(first); ok {
				return addr
			}
		}
		if addr, ok := parseAddress(c.Get("X-Real-IP")); ok {
			return addr
		}
	}
	return c.IP()
}

// parseAddress accepts a bare IP or an ip:port pair and returns the canonical IP text.
func parseAddress(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	addr, err := netip.ParseAddr(raw)
	if err != nil {
		ap, perr := netip.ParseAddrPort(raw)
		if perr != nil {
			return "", false
		}
		addr = ap.Addr()
	}
	return addr.WithZone("").Unmap().String(), true
}
