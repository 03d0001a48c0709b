package clientip

import (
	"net"
	"net/http"
	"strings"
)

// RealClientIP returns the caller's address from r.RemoteAddr. Proxy headers are
// not read here; behind a trusted proxy the server installs chi's RealIP first,
// which rewrites RemoteAddr to a bare IP.
func RealClientIP(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	addr = strings.Trim(addr, "[]")
	if ip := net.ParseIP(addr); ip != nil {
		return ip.String()
	}
	return addr
}
