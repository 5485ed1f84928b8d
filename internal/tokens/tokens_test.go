package tokens

import (
	"testing"

	"github.com/embedchat/embedchat-gateway/internal/upstream/openai"
)

func TestEstimateText(t *testing.T) {
	e := NewEstimator()

	short := e.EstimateText("gpt-4o-mini", "Hello there")
	if short == 0 {
		t.Fatal("estimate for non-empty text must be positive")
	}

	long := e.EstimateText("gpt-4o-mini", "Hello there, this is a considerably longer message about houseplants and watering schedules.")
	if long <= short {
		t.Errorf("longer text estimated %d tokens, shorter %d", long, short)
	}

	if got := e.EstimateText("gpt-4o-mini", ""); got != 0 {
		t.Errorf("empty text = %d tokens, want 0", got)
	}
}

func TestEstimateMessages(t *testing.T) {
	e := NewEstimator()

	msgs := []openai.ChatMessage{
		{Role: "system", Content: "You are a helpful assistant."},
		{Role: "user", Content: "What plants do you sell?"},
	}

	total := e.EstimateMessages("gpt-4o-mini", msgs)
	// Framing alone is 3 + 4 per message.
	if total <= 11 {
		t.Errorf("estimate = %d, want more than framing overhead", total)
	}

	one := e.EstimateMessages("gpt-4o-mini", msgs[:1])
	if total <= one {
		t.Errorf("two messages estimated %d tokens, one message %d", total, one)
	}
}

func TestEstimateUnknownModelFallsBack(t *testing.T) {
	e := NewEstimator()
	if got := e.EstimateText("some-future-model", "Hello there"); got == 0 {
		t.Error("unknown model should fall back to a default encoding")
	}
}
