package license

import "strings"

// OriginAllowed reports whether a request origin satisfies a license's
// domain lock. An empty allow list accepts any origin.
//
// Matching is done on host labels after normalization: the origin host
// must equal an allowed domain or be a subdomain of it. A bare
// substring check would let "notexample.com" redeem a license locked
// to "example.com", so label boundaries are enforced.
func OriginAllowed(origin string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}

	host := NormalizeDomain(origin)
	if host == "" {
		return false
	}

	for _, d := range allowed {
		want := NormalizeDomain(d)
		if want == "" {
			continue
		}
		if host == want || strings.HasSuffix(host, "."+want) {
			return true
		}
	}

	return false
}

// NormalizeDomain reduces an origin or configured domain to a bare
// lowercase host: scheme, path, port and trailing slash are stripped.
func NormalizeDomain(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))

	if _, rest, ok := strings.Cut(s, "://"); ok {
		s = rest
	}
	if host, _, ok := strings.Cut(s, "/"); ok {
		s = host
	}
	if host, _, ok := strings.Cut(s, ":"); ok {
		s = host
	}

	return strings.TrimSuffix(s, ".")
}
