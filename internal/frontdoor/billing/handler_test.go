package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	stripe "github.com/stripe/stripe-go/v74"

	"github.com/embedchat/embedchat-gateway/internal/billing"
	"github.com/embedchat/embedchat-gateway/internal/license"
	"github.com/embedchat/embedchat-gateway/internal/storage"
	"github.com/embedchat/embedchat-gateway/internal/storage/sqlite"
)

const testWebhookSecret = "whsec_test_secret"

func newBillingHandler(t *testing.T) (*Handler, *storage.Handle) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	handle := storage.NewHandle(func(ctx context.Context) (storage.Store, error) {
		return sqlite.New(dbPath)
	}, time.Second)
	t.Cleanup(func() { handle.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	issuer := billing.NewIssuer(handle.Lazy(), testWebhookSecret, logger)
	return NewHandler(handle, nil, issuer, logger), handle
}

// signPayload produces a Stripe-Signature header the way Stripe's CLI
// signs test events.
func signPayload(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func checkoutCompletedPayload(sessionID, targetDomain string) []byte {
	payload := fmt.Sprintf(`{
		"id": "evt_test_1",
		"object": "event",
		"api_version": %q,
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": %q,
				"object": "checkout.session",
				"metadata": {"target_domain": %q},
				"customer_details": {"email": "buyer@example.com"}
			}
		}
	}`, stripe.APIVersion, sessionID, targetDomain)
	return []byte(payload)
}

func postWebhook(t *testing.T, h *Handler, payload []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest("POST", "/v1/stripe/webhook", strings.NewReader(string(payload)))
	if signature != "" {
		r.Header.Set("Stripe-Signature", signature)
	}
	rec := httptest.NewRecorder()
	h.HandleWebhook(rec, r)
	return rec
}

func getLicense(t *testing.T, h *Handler, sessionID string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest("GET", "/v1/license?session_id="+sessionID, nil)
	rec := httptest.NewRecorder()
	h.HandleLicenseLookup(rec, r)
	return rec
}

func TestWebhookRejectsMissingSignature(t *testing.T) {
	h, handle := newBillingHandler(t)
	payload := checkoutCompletedPayload("cs_test_unsigned", "shop.example")

	rec := postWebhook(t, h, payload, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	store, err := handle.Get(context.Background())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	if _, err := store.GetLicenseBySessionID(context.Background(), "cs_test_unsigned"); err == nil {
		t.Fatal("license was minted from an unsigned event")
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	h, _ := newBillingHandler(t)
	payload := checkoutCompletedPayload("cs_test_forged", "shop.example")

	sig := signPayload(payload, "whsec_wrong_secret", time.Now())
	if rec := postWebhook(t, h, payload, sig); rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestWebhookRejectsStaleSignature(t *testing.T) {
	h, _ := newBillingHandler(t)
	payload := checkoutCompletedPayload("cs_test_stale", "shop.example")

	sig := signPayload(payload, testWebhookSecret, time.Now().Add(-time.Hour))
	if rec := postWebhook(t, h, payload, sig); rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestWebhookIssuesLicense(t *testing.T) {
	h, handle := newBillingHandler(t)
	payload := checkoutCompletedPayload("cs_test_ok", "https://Shop.Example/")

	sig := signPayload(payload, testWebhookSecret, time.Now())
	if rec := postWebhook(t, h, payload, sig); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", rec.Code, rec.Body.String())
	}

	store, err := handle.Get(context.Background())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	lic, err := store.GetLicenseBySessionID(context.Background(), "cs_test_ok")
	if err != nil {
		t.Fatalf("license not issued: %v", err)
	}
	if !license.ValidKeyFormat(lic.Key) {
		t.Errorf("issued key %q has invalid format", lic.Key)
	}
	if lic.Email != "buyer@example.com" {
		t.Errorf("email = %q", lic.Email)
	}
	// Domain is normalized from the raw metadata, plus local dev hosts.
	want := []string{"shop.example", "localhost", "127.0.0.1"}
	if len(lic.AllowedDomains) != len(want) {
		t.Fatalf("allowed domains = %v, want %v", lic.AllowedDomains, want)
	}
	for i := range want {
		if lic.AllowedDomains[i] != want[i] {
			t.Errorf("allowed domains = %v, want %v", lic.AllowedDomains, want)
			break
		}
	}
}

func TestWebhookIdempotentReplay(t *testing.T) {
	h, handle := newBillingHandler(t)
	payload := checkoutCompletedPayload("cs_test_replay", "shop.example")

	sig := signPayload(payload, testWebhookSecret, time.Now())
	if rec := postWebhook(t, h, payload, sig); rec.Code != http.StatusOK {
		t.Fatalf("first delivery: status = %d", rec.Code)
	}

	store, err := handle.Get(context.Background())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	first, err := store.GetLicenseBySessionID(context.Background(), "cs_test_replay")
	if err != nil {
		t.Fatalf("license not issued: %v", err)
	}

	sig = signPayload(payload, testWebhookSecret, time.Now())
	if rec := postWebhook(t, h, payload, sig); rec.Code != http.StatusOK {
		t.Fatalf("replay: status = %d, want 200", rec.Code)
	}

	second, err := store.GetLicenseBySessionID(context.Background(), "cs_test_replay")
	if err != nil {
		t.Fatalf("lookup after replay: %v", err)
	}
	if second.Key != first.Key {
		t.Errorf("replay minted a second key: %q then %q", first.Key, second.Key)
	}
}

func TestWebhookIgnoresOtherEvents(t *testing.T) {
	h, _ := newBillingHandler(t)
	payload := []byte(fmt.Sprintf(`{
		"id": "evt_test_2",
		"object": "event",
		"api_version": %q,
		"type": "invoice.paid",
		"data": {"object": {"id": "in_test_1"}}
	}`, stripe.APIVersion))

	sig := signPayload(payload, testWebhookSecret, time.Now())
	if rec := postWebhook(t, h, payload, sig); rec.Code != http.StatusOK {
		t.Fatalf("unhandled event type: status = %d, want 200 ack", rec.Code)
	}
}

func TestLicenseLookup(t *testing.T) {
	h, _ := newBillingHandler(t)

	if rec := getLicense(t, h, ""); rec.Code != http.StatusBadRequest {
		t.Errorf("missing session_id: status = %d, want 400", rec.Code)
	}

	if rec := getLicense(t, h, "cs_test_pending"); rec.Code != http.StatusNotFound {
		t.Errorf("pending issuance: status = %d, want 404", rec.Code)
	}

	payload := checkoutCompletedPayload("cs_test_pending", "shop.example")
	sig := signPayload(payload, testWebhookSecret, time.Now())
	if rec := postWebhook(t, h, payload, sig); rec.Code != http.StatusOK {
		t.Fatalf("webhook: status = %d", rec.Code)
	}

	rec := getLicense(t, h, "cs_test_pending")
	if rec.Code != http.StatusOK {
		t.Fatalf("after issuance: status = %d, want 200", rec.Code)
	}
	var resp licenseResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if !license.ValidKeyFormat(resp.Key) {
		t.Errorf("key = %q, want EC- formatted key", resp.Key)
	}
	if len(resp.Domains) == 0 || resp.Domains[0] != "shop.example" {
		t.Errorf("domains = %v", resp.Domains)
	}
}

func TestCheckoutUnconfigured(t *testing.T) {
	h, _ := newBillingHandler(t)

	r := httptest.NewRequest("POST", "/v1/checkout", strings.NewReader(`{"domain":"shop.example","priceId":"price_1"}`))
	rec := httptest.NewRecorder()
	h.HandleCreateCheckout(rec, r)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 when billing is not configured", rec.Code)
	}
}
