// Package billing exposes the payment-side endpoints: checkout session
// creation, the payment webhook driving license issuance, and the poll
// endpoint clients use to fetch their license after paying.
package billing

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/embedchat/embedchat-gateway/internal/billing"
	"github.com/embedchat/embedchat-gateway/internal/server"
	"github.com/embedchat/embedchat-gateway/internal/storage"
)

// maxWebhookBody bounds the raw payload read for signature verification.
const maxWebhookBody = 1 << 16

type checkoutRequest struct {
	Domain  string `json:"domain"`
	PriceID string `json:"priceId"`
}

type checkoutResponse struct {
	URL string `json:"url"`
}

type licenseResponse struct {
	Key     string   `json:"key"`
	Domains []string `json:"domains"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type Handler struct {
	handle   *storage.Handle
	checkout *billing.Checkout
	issuer   *billing.Issuer
	logger   *slog.Logger
}

func NewHandler(handle *storage.Handle, checkout *billing.Checkout, issuer *billing.Issuer, logger *slog.Logger) *Handler {
	return &Handler{handle: handle, checkout: checkout, issuer: issuer, logger: logger}
}

// HandleCreateCheckout is the POST checkout-session endpoint.
func (h *Handler) HandleCreateCheckout(w http.ResponseWriter, r *http.Request) {
	if h.checkout == nil {
		writeError(w, http.StatusInternalServerError, "billing is not configured")
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	url, err := h.checkout.CreateSession(req.Domain, req.PriceID)
	if err != nil {
		server.AddError(r.Context(), err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, checkoutResponse{URL: url})
}

// HandleWebhook is the POST payment webhook. The raw body is required
// for signature verification; an unverifiable payload is the one
// hard-fail path and returns 400 without minting anything.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read payload")
		return
	}

	event, err := h.issuer.VerifyEvent(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		server.AddError(r.Context(), err)
		writeError(w, http.StatusBadRequest, "webhook signature verification failed")
		return
	}

	if _, err := h.issuer.HandleEvent(r.Context(), event); err != nil {
		if errors.Is(err, billing.ErrIgnoredEvent) {
			w.WriteHeader(http.StatusOK)
			return
		}
		server.AddError(r.Context(), err)
		writeError(w, http.StatusInternalServerError, "license issuance failed")
		return
	}

	w.WriteHeader(http.StatusOK)
}

// HandleLicenseLookup is the GET poll endpoint keyed by checkout
// session id. 404 means issuance has not completed yet; clients poll
// until the webhook lands.
func (h *Handler) HandleLicenseLookup(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	store, err := h.handle.Get(r.Context())
	if err != nil {
		h.handle.Invalidate()
		server.AddError(r.Context(), err)
		writeError(w, http.StatusInternalServerError, "service temporarily unavailable")
		return
	}

	lic, err := store.GetLicenseBySessionID(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "license not issued yet")
			return
		}
		server.AddError(r.Context(), err)
		writeError(w, http.StatusInternalServerError, "service temporarily unavailable")
		return
	}

	writeJSON(w, http.StatusOK, licenseResponse{Key: lic.Key, Domains: lic.AllowedDomains})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
