package domain

import "time"

// LicenseStatus is the lifecycle state of a license.
type LicenseStatus string

const (
	LicenseActive   LicenseStatus = "active"
	LicenseInactive LicenseStatus = "inactive"
)

// License is a long-lived credential permitting use of the gateway,
// optionally locked to a set of caller origins. The key is immutable
// once issued; status is the only field expected to change.
type License struct {
	Key             string        `json:"key"`
	Email           string        `json:"email"`
	Status          LicenseStatus `json:"status"`
	Plan            string        `json:"plan"`
	AllowedDomains  []string      `json:"allowed_domains"`
	StripeSessionID string        `json:"stripe_session_id"`
	CreatedAt       time.Time     `json:"created_at"`
}

// Restricted reports whether the license is domain-locked.
// An empty allowed-domains list means any origin is accepted.
func (l *License) Restricted() bool {
	return len(l.AllowedDomains) > 0
}

// AccessMode discriminates how a request is authorized. It is resolved
// once per request from the presented headers and server configuration.
type AccessMode string

const (
	// AccessModeFree serves requests without any license check.
	AccessModeFree AccessMode = "free"
	// AccessModeCustomKey forwards the caller's own upstream API key.
	AccessModeCustomKey AccessMode = "custom_key"
	// AccessModeLicensed requires a valid license key.
	AccessModeLicensed AccessMode = "licensed"
)

// InteractionStatus is the outcome of an upstream call attempt.
type InteractionStatus string

const (
	InteractionSuccess InteractionStatus = "success"
	InteractionError   InteractionStatus = "error"
)

// Interaction is one append-only audit record per upstream call attempt
// that reached the logging stage, successful or not.
type Interaction struct {
	ID               string            `json:"id"`
	Model            string            `json:"model"`
	UsageType        AccessMode        `json:"usage_type"`
	LicenseKey       string            `json:"license_key,omitempty"`
	Duration         time.Duration     `json:"duration_ms"`
	PromptTokens     int               `json:"prompt_tokens"`
	CompletionTokens int               `json:"completion_tokens"`
	TotalTokens      int               `json:"total_tokens"`
	ClientIP         string            `json:"client_ip"`
	ClientOrigin     string            `json:"client_origin"`
	ClientUserAgent  string            `json:"client_user_agent"`
	Status           InteractionStatus `json:"status"`
	ErrorMessage     string            `json:"error_message,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
}

// DenialReason classifies why the gatekeeper rejected a request.
type DenialReason string

const (
	DenialMissingKey       DenialReason = "missing_key"
	DenialInvalidKey       DenialReason = "invalid_key"
	DenialDomainNotAllowed DenialReason = "domain_not_allowed"
)

// Denial is an append-only record of a licensing rejection. It is
// written on the denial path only; successes are recorded later as
// Interactions once the upstream call completes.
type Denial struct {
	ID         string       `json:"id"`
	Status     string       `json:"status"` // "denied" or "blocked"
	Reason     DenialReason `json:"reason"`
	LicenseKey string       `json:"license_key,omitempty"`
	Origin     string       `json:"origin"`
	ClientIP   string       `json:"client_ip"`
	CreatedAt  time.Time    `json:"created_at"`
}

// Message is a single turn of the caller-supplied conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
