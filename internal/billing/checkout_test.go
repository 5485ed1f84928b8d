package billing

import "testing"

func TestNewCheckoutRequiresKey(t *testing.T) {
	if _, err := NewCheckout("", "https://ok", "https://cancel"); err == nil {
		t.Fatal("expected error for empty secret key")
	}
	if _, err := NewCheckout("sk_test_123", "https://ok", "https://cancel"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateSessionValidation(t *testing.T) {
	c, err := NewCheckout("sk_test_123", "https://ok", "https://cancel")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := c.CreateSession("shop.example", ""); err == nil {
		t.Error("expected error for missing price id")
	}
	if _, err := c.CreateSession("", "price_1"); err == nil {
		t.Error("expected error for missing domain")
	}
	if _, err := c.CreateSession("https:///", "price_1"); err == nil {
		t.Error("expected error for domain that normalizes to empty")
	}
}
