package billing

import (
	"fmt"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"

	"github.com/embedchat/embedchat-gateway/internal/license"
)

// Checkout creates hosted payment sessions. The target domain is
// normalized before it is stored in the session metadata so issuance
// reads back a clean host.
type Checkout struct {
	api        *client.API
	successURL string
	cancelURL  string
}

func NewCheckout(secretKey, successURL, cancelURL string) (*Checkout, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("stripe secret key is required")
	}

	api := &client.API{}
	api.Init(secretKey, nil)

	return &Checkout{
		api:        api,
		successURL: successURL,
		cancelURL:  cancelURL,
	}, nil
}

// CreateSession creates a checkout session for the given price and
// target domain and returns the hosted payment page URL.
func (c *Checkout) CreateSession(targetDomain, priceID string) (string, error) {
	if priceID == "" {
		return "", fmt.Errorf("priceId is required")
	}
	normalized := license.NormalizeDomain(targetDomain)
	if normalized == "" {
		return "", fmt.Errorf("domain is required")
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(c.successURL),
		CancelURL:  stripe.String(c.cancelURL),
	}
	params.AddMetadata(MetadataTargetDomain, normalized)

	sess, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}

	return sess.URL, nil
}
