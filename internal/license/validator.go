package license

import (
	"context"
	"errors"
	"fmt"

	"github.com/embedchat/embedchat-gateway/internal/domain"
	"github.com/embedchat/embedchat-gateway/internal/storage"
)

// Validator runs the license admission state machine for a request:
// missing key, unknown or inactive key, and domain lock. Lookups are
// correctness-critical and fail closed: a storage failure here is an
// error, never a silent admit.
type Validator struct {
	store storage.LicenseStore
}

func NewValidator(store storage.LicenseStore) *Validator {
	return &Validator{store: store}
}

// Outcome is the result of validating a presented key against an origin.
type Outcome struct {
	License *domain.License
	// Denial is populated on every rejection so the caller can write
	// the denial audit record before responding.
	Denial *domain.Denial
}

// Validate checks the presented key and origin. On rejection it returns
// a sentinel error from the domain package plus a pre-filled denial
// record; on storage failure it returns the wrapped storage error.
func (v *Validator) Validate(ctx context.Context, key, origin, clientIP string) (*Outcome, error) {
	if key == "" {
		return &Outcome{Denial: &domain.Denial{
			Status:   "denied",
			Reason:   domain.DenialMissingKey,
			Origin:   origin,
			ClientIP: clientIP,
		}}, domain.ErrMissingLicense
	}

	lic, err := v.store.GetLicense(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &Outcome{Denial: &domain.Denial{
				Status:     "denied",
				Reason:     domain.DenialInvalidKey,
				LicenseKey: key,
				Origin:     origin,
				ClientIP:   clientIP,
			}}, domain.ErrInvalidLicense
		}
		return nil, fmt.Errorf("license lookup failed: %w", err)
	}

	if lic.Status != domain.LicenseActive {
		return &Outcome{Denial: &domain.Denial{
			Status:     "denied",
			Reason:     domain.DenialInvalidKey,
			LicenseKey: key,
			Origin:     origin,
			ClientIP:   clientIP,
		}}, domain.ErrInvalidLicense
	}

	if lic.Restricted() && !OriginAllowed(origin, lic.AllowedDomains) {
		return &Outcome{License: lic, Denial: &domain.Denial{
			Status:     "blocked",
			Reason:     domain.DenialDomainNotAllowed,
			LicenseKey: key,
			Origin:     origin,
			ClientIP:   clientIP,
		}}, domain.ErrDomainNotAllowed
	}

	return &Outcome{License: lic}, nil
}
