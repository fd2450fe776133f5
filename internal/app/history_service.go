package app

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lastdm/ldm-bridge/internal/domain"
)

// HistoryService records submissions and keeps the aggregate counters
type HistoryService struct {
	repo       domain.HistoryRepository
	maxEntries int
	mu         sync.Mutex
	now        func() time.Time
	logger     *zap.Logger
}

// NewHistoryService creates a new history service
func NewHistoryService(repo domain.HistoryRepository, maxEntries int, logger *zap.Logger) *HistoryService {
	if maxEntries < 1 {
		maxEntries = domain.DefaultHistoryLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryService{
		repo:       repo,
		maxEntries: maxEntries,
		now:        time.Now,
		logger:     logger,
	}
}

// Record appends one submission and, when it succeeded, counts it
func (h *HistoryService) Record(url, referer string, source domain.Source, size int64, result *domain.SubmitResult) (*domain.HistoryEntry, error) {
	entry := domain.NewHistoryEntry(url, referer, source, size, result)
	entry.CreatedAt = h.now()

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.repo.Append(entry, h.maxEntries); err != nil {
		return nil, fmt.Errorf("failed to append history: %w", err)
	}
	if !entry.Success {
		return entry, nil
	}

	stats, err := h.repo.GetStats()
	if err != nil {
		return entry, fmt.Errorf("failed to load stats: %w", err)
	}
	stats.Record(size, entry.CreatedAt)
	if err := h.repo.SaveStats(stats); err != nil {
		return entry, fmt.Errorf("failed to save stats: %w", err)
	}
	return entry, nil
}

// Recent returns up to limit entries, newest first
func (h *HistoryService) Recent(limit int) ([]*domain.HistoryEntry, error) {
	if limit <= 0 || limit > h.maxEntries {
		limit = h.maxEntries
	}
	entries, err := h.repo.Recent(limit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []*domain.HistoryEntry{}
	}
	return entries, nil
}

// Clear removes all history entries. Stats are kept.
func (h *HistoryService) Clear() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.repo.Clear()
}

// Stats returns the counters as of now
func (h *HistoryService) Stats() (domain.Stats, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	stats, err := h.repo.GetStats()
	if err != nil {
		return domain.Stats{}, err
	}
	return stats.Rollover(h.now()), nil
}

// ResetStats zeroes every counter
func (h *HistoryService) ResetStats() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.logger.Info("Resetting download stats")
	return h.repo.SaveStats(&domain.Stats{})
}
