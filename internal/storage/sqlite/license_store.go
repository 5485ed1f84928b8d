package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/embedchat/embedchat-gateway/internal/domain"
	"github.com/embedchat/embedchat-gateway/internal/storage"
)

// CreateLicense persists a new license record.
func (s *Store) CreateLicense(ctx context.Context, lic *domain.License) error {
	if lic.CreatedAt.IsZero() {
		lic.CreatedAt = time.Now()
	}

	domains, err := json.Marshal(lic.AllowedDomains)
	if err != nil {
		return fmt.Errorf("failed to marshal allowed domains: %w", err)
	}

	// Manually issued licenses have no checkout session; a NULL keeps
	// them out of the UNIQUE constraint on stripe_session_id.
	var sessionID sql.NullString
	if lic.StripeSessionID != "" {
		sessionID = sql.NullString{String: lic.StripeSessionID, Valid: true}
	}

	query := `INSERT INTO licenses (key, email, status, plan, allowed_domains, stripe_session_id, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		lic.Key, lic.Email, string(lic.Status), lic.Plan, string(domains),
		sessionID, lic.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create license: %w", err)
	}

	return nil
}

// GetLicense fetches a license by key.
func (s *Store) GetLicense(ctx context.Context, key string) (*domain.License, error) {
	query := `SELECT key, email, status, plan, allowed_domains, stripe_session_id, created_at
	          FROM licenses WHERE key = ?`

	return s.scanLicense(s.db.QueryRowContext(ctx, query, key))
}

// GetLicenseBySessionID fetches the license minted for a checkout session.
func (s *Store) GetLicenseBySessionID(ctx context.Context, sessionID string) (*domain.License, error) {
	query := `SELECT key, email, status, plan, allowed_domains, stripe_session_id, created_at
	          FROM licenses WHERE stripe_session_id = ?`

	return s.scanLicense(s.db.QueryRowContext(ctx, query, sessionID))
}

func (s *Store) scanLicense(row *sql.Row) (*domain.License, error) {
	var lic domain.License
	var status string
	var plan, domainsJSON, sessionID sql.NullString

	err := row.Scan(&lic.Key, &lic.Email, &status, &plan, &domainsJSON, &sessionID, &lic.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get license: %w", err)
	}

	lic.Status = domain.LicenseStatus(status)
	if plan.Valid {
		lic.Plan = plan.String
	}
	if sessionID.Valid {
		lic.StripeSessionID = sessionID.String
	}
	if domainsJSON.Valid && domainsJSON.String != "" {
		if err := json.Unmarshal([]byte(domainsJSON.String), &lic.AllowedDomains); err != nil {
			return nil, fmt.Errorf("failed to unmarshal allowed domains: %w", err)
		}
	}

	return &lic, nil
}
