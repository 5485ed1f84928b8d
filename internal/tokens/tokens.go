// Package tokens estimates token counts with tiktoken for audit
// records when the upstream response omits a usage block.
package tokens

import (
	"strings"
	"sync"

	"github.com/tiktoken-go/tokenizer"

	"github.com/embedchat/embedchat-gateway/internal/upstream/openai"
)

// Estimator counts tokens for OpenAI-family models.
type Estimator struct {
	mu    sync.RWMutex
	cache map[tokenizer.Encoding]tokenizer.Codec
}

func NewEstimator() *Estimator {
	return &Estimator{cache: make(map[tokenizer.Encoding]tokenizer.Codec)}
}

// EstimateMessages approximates the prompt token count of a message
// list: per-message framing overhead plus the encoded content length.
func (e *Estimator) EstimateMessages(model string, msgs []openai.ChatMessage) int {
	codec, err := e.codec(model)
	if err != nil {
		return 0
	}

	// 3 tokens of framing per message plus 1 for the role, plus 3 for
	// assistant priming, per OpenAI's chat format documentation.
	total := 3
	for _, msg := range msgs {
		total += 4
		ids, _, err := codec.Encode(msg.Content)
		if err != nil {
			continue
		}
		total += len(ids)
	}
	return total
}

// EstimateText approximates the token count of a single string.
func (e *Estimator) EstimateText(model, text string) int {
	codec, err := e.codec(model)
	if err != nil {
		return 0
	}
	ids, _, err := codec.Encode(text)
	if err != nil {
		return 0
	}
	return len(ids)
}

func (e *Estimator) codec(model string) (tokenizer.Codec, error) {
	if codec, err := tokenizer.ForModel(tokenizer.Model(model)); err == nil {
		return codec, nil
	}

	encoding := modelEncoding(model)

	e.mu.RLock()
	if cached, ok := e.cache[encoding]; ok {
		e.mu.RUnlock()
		return cached, nil
	}
	e.mu.RUnlock()

	codec, err := tokenizer.Get(encoding)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.cache[encoding] = codec
	e.mu.Unlock()

	return codec, nil
}

// modelEncoding maps model families to their fallback encodings.
func modelEncoding(model string) tokenizer.Encoding {
	model = strings.ToLower(model)
	switch {
	case strings.HasPrefix(model, "gpt-5"),
		strings.HasPrefix(model, "gpt-4.1"),
		strings.HasPrefix(model, "gpt-4o"),
		strings.HasPrefix(model, "o1"), strings.HasPrefix(model, "o3"), strings.HasPrefix(model, "o4"):
		return tokenizer.O200kBase
	case strings.HasPrefix(model, "gpt-4"), strings.HasPrefix(model, "gpt-3.5"):
		return tokenizer.Cl100kBase
	default:
		return tokenizer.O200kBase
	}
}
