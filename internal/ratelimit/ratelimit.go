// Package ratelimit implements the single-slot per-IP limiter. It only
// remembers the most recent interaction per client IP, read back from
// durable storage so multiple process instances share one view.
package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/embedchat/embedchat-gateway/internal/storage"
)

// Decision is the limiter's verdict. FailedOpen marks decisions made
// without storage: availability of the chat outweighs strict
// throttling, so a storage failure admits the request.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
	FailedOpen bool
}

// Limiter bounds request frequency per client IP using the most recent
// recorded interaction. It is advisory, not a hard quota: two
// near-simultaneous requests may both pass if their reads interleave.
type Limiter struct {
	store     storage.AuditStore
	threshold time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

func New(store storage.AuditStore, threshold time.Duration, logger *slog.Logger) *Limiter {
	return &Limiter{
		store:     store,
		threshold: threshold,
		logger:    logger,
		now:       time.Now,
	}
}

// Check decides whether a request from clientIP may proceed.
func (l *Limiter) Check(ctx context.Context, clientIP string) Decision {
	if l.threshold <= 0 || clientIP == "" {
		return Decision{Allowed: true}
	}

	last, err := l.store.LatestInteractionByIP(ctx, clientIP)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Decision{Allowed: true}
		}
		l.logger.Warn("rate limit check failed, admitting request",
			slog.String("client_ip", clientIP),
			slog.String("error", err.Error()))
		return Decision{Allowed: true, FailedOpen: true}
	}

	elapsed := l.now().Sub(last.CreatedAt)
	if elapsed < l.threshold {
		return Decision{Allowed: false, RetryAfter: l.threshold - elapsed}
	}

	return Decision{Allowed: true}
}
