package storage

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Handle owns the process-lifetime store connection. It is initialized
// lazily on first use, is safe under concurrent first-use, and does not
// cache a failed open: a later Get retries instead of returning the
// same broken handle forever.
type Handle struct {
	open    func(ctx context.Context) (Store, error)
	timeout time.Duration

	mu    sync.Mutex
	store Store
}

// NewHandle wraps an open function. The open call is bounded by the
// given timeout so a hung database cannot hold requests open forever.
func NewHandle(open func(ctx context.Context) (Store, error), timeout time.Duration) *Handle {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Handle{open: open, timeout: timeout}
}

// Get returns the shared store, opening it on first use.
func (h *Handle) Get(ctx context.Context) (Store, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.store != nil {
		return h.store, nil
	}

	openCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	store, err := h.open(openCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	h.store = store
	return h.store, nil
}

// Invalidate drops the cached store after a failure so the next Get
// reconnects. The broken store is closed best-effort.
func (h *Handle) Invalidate() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.store != nil {
		_ = h.store.Close()
		h.store = nil
	}
}

// Close releases the underlying store if it was ever opened.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.store == nil {
		return nil
	}
	err := h.store.Close()
	h.store = nil
	return err
}
