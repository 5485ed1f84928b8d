// Package identity extracts caller identity signals from a request.
// All extractions are pure: malformed or absent headers degrade to
// sentinel values, never to errors.
package identity

import (
	"net"
	"net/http"
	"strings"

	"github.com/embedchat/embedchat-gateway/internal/domain"
)

const (
	// LicenseKeyHeader carries the caller's license key.
	LicenseKeyHeader = "x-license-key"
	// UpstreamKeyHeader carries a caller-supplied upstream API key
	// for the custom-key access mode.
	UpstreamKeyHeader = "x-api-key"

	// Unknown is the sentinel used when a signal cannot be derived.
	Unknown = "unknown"
)

// Identity is the set of caller signals the gatekeeper operates on.
type Identity struct {
	ClientIP    string
	Origin      string
	UserAgent   string
	LicenseKey  string
	UpstreamKey string
	Mode        domain.AccessMode
}

// Resolve derives the caller identity from request headers.
// The access mode is resolved exactly once here: free mode is a server
// configuration choice, custom-key mode is selected by presenting an
// upstream API key, everything else requires a license.
func Resolve(r *http.Request, defaultMode domain.AccessMode) Identity {
	id := Identity{
		ClientIP:    clientIP(r),
		Origin:      origin(r),
		UserAgent:   r.Header.Get("User-Agent"),
		LicenseKey:  strings.TrimSpace(r.Header.Get(LicenseKeyHeader)),
		UpstreamKey: strings.TrimSpace(r.Header.Get(UpstreamKeyHeader)),
	}

	switch {
	case defaultMode == domain.AccessModeFree:
		id.Mode = domain.AccessModeFree
	case id.UpstreamKey != "":
		id.Mode = domain.AccessModeCustomKey
	default:
		id.Mode = domain.AccessModeLicensed
	}

	return id
}

// clientIP takes the first forwarded-for hop if present, then the
// transport peer address, then the unknown sentinel.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if r.RemoteAddr != "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			return host
		}
		return r.RemoteAddr
	}
	return Unknown
}

// origin prefers the referrer since browsers always send it from the
// embedding page, falling back to the Origin header.
func origin(r *http.Request) string {
	if ref := r.Header.Get("Referer"); ref != "" {
		return ref
	}
	if o := r.Header.Get("Origin"); o != "" {
		return o
	}
	return Unknown
}
