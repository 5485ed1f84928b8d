// Package billing turns completed payments into active licenses.
// Webhook verification is the one hard-fail path in the gateway: an
// unverified event must never mint a license.
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/webhook"

	"github.com/embedchat/embedchat-gateway/internal/domain"
	"github.com/embedchat/embedchat-gateway/internal/license"
	"github.com/embedchat/embedchat-gateway/internal/storage"
)

// MetadataTargetDomain is the checkout metadata key carrying the domain
// the buyer wants the license locked to.
const MetadataTargetDomain = "target_domain"

// MetadataPlan optionally carries the purchased plan name.
const MetadataPlan = "plan"

// localDomains are pre-seeded into every issued license so buyers can
// develop against the widget locally without a second license.
var localDomains = []string{"localhost", "127.0.0.1"}

// ErrIgnoredEvent marks webhook events that verified fine but carry no
// issuance work (event types we do not handle).
var ErrIgnoredEvent = errors.New("event type not handled")

// Issuer consumes verified payment-completion events and persists new
// active licenses.
type Issuer struct {
	store         storage.LicenseStore
	webhookSecret string
	logger        *slog.Logger
}

func NewIssuer(store storage.LicenseStore, webhookSecret string, logger *slog.Logger) *Issuer {
	return &Issuer{store: store, webhookSecret: webhookSecret, logger: logger}
}

// VerifyEvent checks the payload signature against the shared webhook
// secret. Failure here must surface as a 400 to the payment provider.
func (i *Issuer) VerifyEvent(payload []byte, signatureHeader string) (stripe.Event, error) {
	event, err := webhook.ConstructEvent(payload, signatureHeader, i.webhookSecret)
	if err != nil {
		return stripe.Event{}, fmt.Errorf("webhook signature verification failed: %w", err)
	}
	return event, nil
}

// HandleEvent processes a verified event. Only completed checkouts mint
// a license; everything else returns ErrIgnoredEvent.
func (i *Issuer) HandleEvent(ctx context.Context, event stripe.Event) (*domain.License, error) {
	if event.Type != "checkout.session.completed" {
		return nil, ErrIgnoredEvent
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("failed to parse checkout session: %w", err)
	}

	return i.IssueFromSession(ctx, &sess)
}

// IssueFromSession mints and persists a license for a completed
// checkout session. Issuance is idempotent per session id: a replayed
// webhook returns the already-issued license instead of minting twice.
func (i *Issuer) IssueFromSession(ctx context.Context, sess *stripe.CheckoutSession) (*domain.License, error) {
	if sess.ID == "" {
		return nil, fmt.Errorf("checkout session has no id")
	}

	if existing, err := i.store.GetLicenseBySessionID(ctx, sess.ID); err == nil {
		i.logger.Info("license already issued for session",
			slog.String("session_id", sess.ID),
			slog.String("key", existing.Key))
		return existing, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("issuance lookup failed: %w", err)
	}

	key, err := license.NewKey()
	if err != nil {
		return nil, err
	}

	target := license.NormalizeDomain(sess.Metadata[MetadataTargetDomain])
	allowed := make([]string, 0, len(localDomains)+1)
	if target != "" {
		allowed = append(allowed, target)
	}
	allowed = append(allowed, localDomains...)

	plan := sess.Metadata[MetadataPlan]
	if plan == "" {
		plan = "standard"
	}

	var email string
	if sess.CustomerDetails != nil {
		email = sess.CustomerDetails.Email
	}

	lic := &domain.License{
		Key:             key,
		Email:           email,
		Status:          domain.LicenseActive,
		Plan:            plan,
		AllowedDomains:  allowed,
		StripeSessionID: sess.ID,
	}

	if err := i.store.CreateLicense(ctx, lic); err != nil {
		return nil, fmt.Errorf("failed to persist license: %w", err)
	}

	i.logger.Info("license issued",
		slog.String("session_id", sess.ID),
		slog.String("key", lic.Key),
		slog.String("domain", target))

	return lic, nil
}
