package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/embedchat/embedchat-gateway/internal/domain"
	"github.com/embedchat/embedchat-gateway/internal/storage"
)

// SaveInteraction appends an interaction record.
func (s *Store) SaveInteraction(ctx context.Context, rec *domain.Interaction) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	var licenseKey, errorMessage sql.NullString
	if rec.LicenseKey != "" {
		licenseKey = sql.NullString{String: rec.LicenseKey, Valid: true}
	}
	if rec.ErrorMessage != "" {
		errorMessage = sql.NullString{String: rec.ErrorMessage, Valid: true}
	}

	query := `INSERT INTO interactions (
		id, model, usage_type, license_key, duration_ms,
		prompt_tokens, completion_tokens, total_tokens,
		client_ip, client_origin, client_user_agent,
		status, error_message, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.Model, string(rec.UsageType), licenseKey, rec.Duration.Milliseconds(),
		rec.PromptTokens, rec.CompletionTokens, rec.TotalTokens,
		rec.ClientIP, rec.ClientOrigin, rec.ClientUserAgent,
		string(rec.Status), errorMessage, rec.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to save interaction: %w", err)
	}

	return nil
}

// LatestInteractionByIP returns the most recent interaction record for
// a client IP. The single-slot rate limiter only ever needs this one row.
func (s *Store) LatestInteractionByIP(ctx context.Context, clientIP string) (*domain.Interaction, error) {
	query := `SELECT id, model, usage_type, license_key, duration_ms,
		prompt_tokens, completion_tokens, total_tokens,
		client_ip, client_origin, client_user_agent,
		status, error_message, created_at
	FROM interactions WHERE client_ip = ?
	ORDER BY created_at DESC LIMIT 1`

	var rec domain.Interaction
	var usageType, status string
	var durationMS int64
	var licenseKey, errorMessage sql.NullString

	err := s.db.QueryRowContext(ctx, query, clientIP).Scan(
		&rec.ID, &rec.Model, &usageType, &licenseKey, &durationMS,
		&rec.PromptTokens, &rec.CompletionTokens, &rec.TotalTokens,
		&rec.ClientIP, &rec.ClientOrigin, &rec.ClientUserAgent,
		&status, &errorMessage, &rec.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest interaction: %w", err)
	}

	rec.UsageType = domain.AccessMode(usageType)
	rec.Status = domain.InteractionStatus(status)
	rec.Duration = time.Duration(durationMS) * time.Millisecond
	if licenseKey.Valid {
		rec.LicenseKey = licenseKey.String
	}
	if errorMessage.Valid {
		rec.ErrorMessage = errorMessage.String
	}

	return &rec, nil
}

// SaveDenial appends an access denial record.
func (s *Store) SaveDenial(ctx context.Context, rec *domain.Denial) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	var licenseKey sql.NullString
	if rec.LicenseKey != "" {
		licenseKey = sql.NullString{String: rec.LicenseKey, Valid: true}
	}

	query := `INSERT INTO denials (id, status, reason, license_key, origin, client_ip, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.Status, string(rec.Reason), licenseKey, rec.Origin, rec.ClientIP, rec.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to save denial: %w", err)
	}

	return nil
}
