// Package audit appends interaction and denial records. Writes are
// fire-and-forget relative to the caller-visible outcome: a logging
// failure is swallowed into a warning, never surfaced to the end user
// and never allowed to mask a primary error.
package audit

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/embedchat/embedchat-gateway/internal/domain"
	"github.com/embedchat/embedchat-gateway/internal/storage"
)

type Recorder struct {
	store  storage.AuditStore
	logger *slog.Logger
}

func NewRecorder(store storage.AuditStore, logger *slog.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

// Interaction appends an interaction record, assigning an ID if unset.
func (r *Recorder) Interaction(ctx context.Context, rec *domain.Interaction) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if err := r.store.SaveInteraction(ctx, rec); err != nil {
		r.logger.Warn("failed to record interaction",
			slog.String("id", rec.ID),
			slog.String("status", string(rec.Status)),
			slog.String("error", err.Error()))
	}
}

// Denial appends an access denial record, assigning an ID if unset.
func (r *Recorder) Denial(ctx context.Context, rec *domain.Denial) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if err := r.store.SaveDenial(ctx, rec); err != nil {
		r.logger.Warn("failed to record denial",
			slog.String("id", rec.ID),
			slog.String("reason", string(rec.Reason)),
			slog.String("error", err.Error()))
	}
}
