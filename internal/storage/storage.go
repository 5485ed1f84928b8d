// Package storage defines the durable stores the gateway depends on.
// The durability layer is the single source of truth for rate limiting
// and license state: multiple process instances may run concurrently
// and no in-memory counters are kept.
package storage

import (
	"context"
	"errors"

	"github.com/embedchat/embedchat-gateway/internal/domain"
)

// ErrNotFound is returned when a lookup matches no record.
var ErrNotFound = errors.New("record not found")

// LicenseStore is the read and write path for license records.
// Reads are correctness-critical and fail closed.
type LicenseStore interface {
	// CreateLicense persists a new license. The key must be unique.
	CreateLicense(ctx context.Context, lic *domain.License) error
	// GetLicense fetches a license by key. Returns ErrNotFound when
	// the key was never issued.
	GetLicense(ctx context.Context, key string) (*domain.License, error)
	// GetLicenseBySessionID fetches the license minted for a checkout
	// session, for the post-payment poll endpoint. Returns ErrNotFound
	// while issuance is still pending.
	GetLicenseBySessionID(ctx context.Context, sessionID string) (*domain.License, error)
}

// AuditStore is the append-only event log. Writes here are best-effort
// from the caller's perspective; reads back the latest interaction per
// client IP for the single-slot rate limiter.
type AuditStore interface {
	SaveInteraction(ctx context.Context, rec *domain.Interaction) error
	// LatestInteractionByIP returns the most recent interaction for a
	// client IP, or ErrNotFound if the IP has never been seen.
	LatestInteractionByIP(ctx context.Context, clientIP string) (*domain.Interaction, error)
	SaveDenial(ctx context.Context, rec *domain.Denial) error
}

// Store is the full durability surface backed by a single database.
type Store interface {
	LicenseStore
	AuditStore
	Close() error
}
