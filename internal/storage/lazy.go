package storage

import (
	"context"

	"github.com/embedchat/embedchat-gateway/internal/domain"
)

// LazyStore adapts a Handle to the Store interface: every call opens
// the shared store on demand and propagates the open failure, which
// keeps the fail-open/fail-closed decision at the call site.
type LazyStore struct {
	h *Handle
}

// Lazy returns a Store view of the handle.
func (h *Handle) Lazy() *LazyStore {
	return &LazyStore{h: h}
}

var _ Store = (*LazyStore)(nil)

func (s *LazyStore) CreateLicense(ctx context.Context, lic *domain.License) error {
	st, err := s.h.Get(ctx)
	if err != nil {
		return err
	}
	return st.CreateLicense(ctx, lic)
}

func (s *LazyStore) GetLicense(ctx context.Context, key string) (*domain.License, error) {
	st, err := s.h.Get(ctx)
	if err != nil {
		return nil, err
	}
	return st.GetLicense(ctx, key)
}

func (s *LazyStore) GetLicenseBySessionID(ctx context.Context, sessionID string) (*domain.License, error) {
	st, err := s.h.Get(ctx)
	if err != nil {
		return nil, err
	}
	return st.GetLicenseBySessionID(ctx, sessionID)
}

func (s *LazyStore) SaveInteraction(ctx context.Context, rec *domain.Interaction) error {
	st, err := s.h.Get(ctx)
	if err != nil {
		return err
	}
	return st.SaveInteraction(ctx, rec)
}

func (s *LazyStore) LatestInteractionByIP(ctx context.Context, clientIP string) (*domain.Interaction, error) {
	st, err := s.h.Get(ctx)
	if err != nil {
		return nil, err
	}
	return st.LatestInteractionByIP(ctx, clientIP)
}

func (s *LazyStore) SaveDenial(ctx context.Context, rec *domain.Denial) error {
	st, err := s.h.Get(ctx)
	if err != nil {
		return err
	}
	return st.SaveDenial(ctx, rec)
}

func (s *LazyStore) Close() error {
	return s.h.Close()
}
