package app

import (
	"context"
	"sync"
)

// DirectiveHost is a BrowserHost for a remote browser: instead of acting on
// downloads it records what the browser side should do and answers
// active-tab lookups from what the caller reported.
type DirectiveHost struct {
	mu           sync.Mutex
	activeTabURL string
	cancelled    []string
	erased       []string
}

// NewDirectiveHost creates a host that reports activeTabURL
func NewDirectiveHost(activeTabURL string) *DirectiveHost {
	return &DirectiveHost{activeTabURL: activeTabURL}
}

// CancelDownload implements domain.BrowserHost
func (h *DirectiveHost) CancelDownload(ctx context.Context, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cancelled = append(h.cancelled, id)
	return nil
}

// EraseDownload implements domain.BrowserHost
func (h *DirectiveHost) EraseDownload(ctx context.Context, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.erased = append(h.erased, id)
	return nil
}

// ActiveTabURL implements domain.BrowserHost
func (h *DirectiveHost) ActiveTabURL(ctx context.Context) (string, error) {
	return h.activeTabURL, nil
}

// Cancelled returns the IDs the browser must cancel
func (h *DirectiveHost) Cancelled() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.cancelled...)
}

// Erased returns the IDs the browser must erase
func (h *DirectiveHost) Erased() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.erased...)
}
