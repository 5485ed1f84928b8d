package domain

import "errors"

// Sentinel errors for the gatekeeper pipeline. Handlers map these to
// HTTP status codes at the boundary; everything unrecognized becomes a
// generic upstream failure.
var (
	ErrMissingLicense   = errors.New("license key required")
	ErrInvalidLicense   = errors.New("invalid or inactive license key")
	ErrDomainNotAllowed = errors.New("domain not permitted for this license")
	ErrRateLimited      = errors.New("too many requests")
)
