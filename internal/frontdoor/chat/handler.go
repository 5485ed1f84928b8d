// Package chat is the gatekeeper frontdoor: every inbound chat request
// passes identity resolution, rate limiting, license validation and
// content filtering before any upstream cost is incurred.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/embedchat/embedchat-gateway/internal/audit"
	"github.com/embedchat/embedchat-gateway/internal/content"
	"github.com/embedchat/embedchat-gateway/internal/domain"
	"github.com/embedchat/embedchat-gateway/internal/identity"
	"github.com/embedchat/embedchat-gateway/internal/license"
	"github.com/embedchat/embedchat-gateway/internal/prompt"
	"github.com/embedchat/embedchat-gateway/internal/ratelimit"
	"github.com/embedchat/embedchat-gateway/internal/server"
	"github.com/embedchat/embedchat-gateway/internal/storage"
	"github.com/embedchat/embedchat-gateway/internal/tokens"
	"github.com/embedchat/embedchat-gateway/internal/upstream/openai"
)

// RefusalMessage is returned with a 200 when the content validator
// soft-declines the input. No tokens are spent on this path.
const RefusalMessage = "Sorry, I couldn't make sense of that message. Could you rephrase it?"

// Request is the chat endpoint's body.
type Request struct {
	Messages     []domain.Message `json:"messages"`
	SystemPrompt string           `json:"systemPrompt,omitempty"`
}

// Response is the chat endpoint's success body.
type Response struct {
	Content string `json:"content"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler runs the gatekeeper pipeline for one chat request.
type Handler struct {
	handle        *storage.Handle
	upstream      *openai.Client
	estimator     *tokens.Estimator
	model         string
	defaultMode   domain.AccessMode
	rateThreshold time.Duration
	logger        *slog.Logger
}

func NewHandler(
	handle *storage.Handle,
	upstream *openai.Client,
	model string,
	defaultMode domain.AccessMode,
	rateThreshold time.Duration,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		handle:        handle,
		upstream:      upstream,
		estimator:     tokens.NewEstimator(),
		model:         model,
		defaultMode:   defaultMode,
		rateThreshold: rateThreshold,
		logger:        logger,
	}
}

// HandleChat is the POST chat endpoint.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages is required")
		return
	}

	id := identity.Resolve(r, h.defaultMode)
	server.AddLogField(ctx, "client_ip", id.ClientIP)
	server.AddLogField(ctx, "access_mode", string(id.Mode))

	store, storeErr := h.handle.Get(ctx)
	if storeErr != nil {
		// Rate limiting and audit fail open without storage; license
		// validation fails closed below when it is actually needed.
		h.logger.Error("storage unavailable", slog.String("error", storeErr.Error()))
	}

	// Rate limit strictly before license validation so key guessing is
	// throttled like everything else.
	if store != nil {
		decision := ratelimit.New(store, h.rateThreshold, h.logger).Check(ctx, id.ClientIP)
		if !decision.Allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(decision.RetryAfter.Seconds())+1))
			writeError(w, http.StatusTooManyRequests, domain.ErrRateLimited.Error())
			return
		}
	}

	var lic *domain.License
	if id.Mode == domain.AccessModeLicensed {
		if store == nil {
			h.handle.Invalidate()
			writeError(w, http.StatusInternalServerError, "service temporarily unavailable")
			return
		}

		outcome, err := license.NewValidator(store).Validate(ctx, id.LicenseKey, id.Origin, id.ClientIP)
		if err != nil {
			if outcome != nil && outcome.Denial != nil {
				audit.NewRecorder(store, h.logger).Denial(ctx, outcome.Denial)
			}
			switch {
			case errors.Is(err, domain.ErrMissingLicense):
				writeError(w, http.StatusUnauthorized, err.Error())
			case errors.Is(err, domain.ErrInvalidLicense), errors.Is(err, domain.ErrDomainNotAllowed):
				writeError(w, http.StatusForbidden, err.Error())
			default:
				server.AddError(ctx, err)
				writeError(w, http.StatusInternalServerError, "service temporarily unavailable")
			}
			return
		}
		lic = outcome.License
	}

	// Content filtering runs after licensing so quota is never spent on
	// unauthorized callers, and soft-declines without an upstream call.
	latest, ok := latestUserMessage(req.Messages)
	if !ok {
		writeError(w, http.StatusBadRequest, "messages must include a user message")
		return
	}
	if ok, reason := content.Validate(latest); !ok {
		server.AddLogField(ctx, "content_rejected", string(reason))
		writeJSON(w, http.StatusOK, Response{Content: RefusalMessage})
		return
	}

	upstreamReq := h.buildUpstreamRequest(&req)

	var opts *openai.RequestOptions
	if id.Mode == domain.AccessModeCustomKey {
		opts = &openai.RequestOptions{APIKey: id.UpstreamKey}
	}

	start := time.Now()
	resp, err := h.upstream.CreateChatCompletion(ctx, upstreamReq, opts)
	duration := time.Since(start)

	rec := &domain.Interaction{
		Model:           h.model,
		UsageType:       id.Mode,
		Duration:        duration,
		ClientIP:        id.ClientIP,
		ClientOrigin:    id.Origin,
		ClientUserAgent: id.UserAgent,
	}
	if lic != nil {
		rec.LicenseKey = lic.Key
	}

	if err != nil {
		server.AddError(ctx, err)
		rec.Status = domain.InteractionError
		rec.ErrorMessage = err.Error()
		rec.PromptTokens = h.estimator.EstimateMessages(h.model, upstreamReq.Messages)
		rec.TotalTokens = rec.PromptTokens
		h.record(ctx, store, rec)
		writeError(w, http.StatusInternalServerError, "upstream completion failed")
		return
	}

	rec.Status = domain.InteractionSuccess
	h.fillUsage(rec, resp, upstreamReq)
	h.record(ctx, store, rec)

	writeJSON(w, http.StatusOK, Response{Content: resp.Text()})
}

// buildUpstreamRequest composes the system message and forwards the
// caller's non-system history after it.
func (h *Handler) buildUpstreamRequest(req *Request) *openai.ChatCompletionRequest {
	msgs := make([]openai.ChatMessage, 0, len(req.Messages)+1)
	msgs = append(msgs, openai.ChatMessage{
		Role:    "system",
		Content: prompt.Compose(req.SystemPrompt),
	})
	for _, m := range req.Messages {
		if m.Role == "system" {
			continue
		}
		msgs = append(msgs, openai.ChatMessage{Role: m.Role, Content: m.Content})
	}
	return &openai.ChatCompletionRequest{Model: h.model, Messages: msgs}
}

// fillUsage copies upstream token counters, estimating with tiktoken
// when the provider omitted the usage block.
func (h *Handler) fillUsage(rec *domain.Interaction, resp *openai.ChatCompletionResponse, req *openai.ChatCompletionRequest) {
	if resp.Usage != nil {
		rec.PromptTokens = resp.Usage.PromptTokens
		rec.CompletionTokens = resp.Usage.CompletionTokens
		rec.TotalTokens = resp.Usage.TotalTokens
		return
	}
	rec.PromptTokens = h.estimator.EstimateMessages(h.model, req.Messages)
	rec.CompletionTokens = h.estimator.EstimateText(h.model, resp.Text())
	rec.TotalTokens = rec.PromptTokens + rec.CompletionTokens
}

// record appends the interaction best-effort; without storage the
// attempt is logged and dropped.
func (h *Handler) record(ctx context.Context, store storage.Store, rec *domain.Interaction) {
	if store == nil {
		h.logger.Warn("interaction not recorded, storage unavailable",
			slog.String("status", string(rec.Status)))
		return
	}
	audit.NewRecorder(store, h.logger).Interaction(ctx, rec)
}

func latestUserMessage(msgs []domain.Message) (string, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "user" {
			return msgs[i].Content, true
		}
	}
	return "", false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
