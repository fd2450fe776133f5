package app

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/lastdm/ldm-bridge/internal/domain"
)

// mockRepo implements domain.HistoryRepository and domain.SettingsRepository for testing
type mockRepo struct {
	mu       sync.Mutex
	entries  []*domain.HistoryEntry
	stats    *domain.Stats
	settings *domain.Settings
	saves    int
	failSave bool
}

func newMockRepo() *mockRepo {
	return &mockRepo{}
}

func (m *mockRepo) Append(entry *domain.HistoryEntry, max int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	sort.SliceStable(m.entries, func(i, j int) bool {
		return m.entries[i].CreatedAt.After(m.entries[j].CreatedAt)
	})
	if len(m.entries) > max {
		m.entries = m.entries[:max]
	}
	return nil
}

func (m *mockRepo) Recent(limit int) ([]*domain.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > len(m.entries) {
		limit = len(m.entries)
	}
	return append([]*domain.HistoryEntry(nil), m.entries[:limit]...), nil
}

func (m *mockRepo) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	return nil
}

func (m *mockRepo) Count() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.entries)), nil
}

func (m *mockRepo) GetStats() (*domain.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stats == nil {
		return &domain.Stats{ID: 1}, nil
	}
	s := *m.stats
	return &s, nil
}

func (m *mockRepo) SaveStats(stats *domain.Stats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := *stats
	m.stats = &s
	return nil
}

func (m *mockRepo) LoadSettings() (*domain.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settings == nil {
		return nil, nil
	}
	return m.settings.Clone(), nil
}

func (m *mockRepo) SaveSettings(settings *domain.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return errors.New("disk full")
	}
	m.settings = settings.Clone()
	m.saves++
	return nil
}

// mockLDM implements domain.LDMService and Pinger for testing
type mockLDM struct {
	mu       sync.Mutex
	online   bool
	result   *domain.SubmitResult
	submits  []domain.SubmitRequest
	pings    int
	tokens   int
	tokenErr error
}

func (m *mockLDM) Ping(ctx context.Context) (*domain.PingInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pings++
	if !m.online {
		return nil, domain.ErrNotRunning
	}
	return &domain.PingInfo{App: "LDM", Version: "1.2.0"}, nil
}

func (m *mockLDM) Submit(ctx context.Context, url, referer string) *domain.SubmitResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submits = append(m.submits, domain.SubmitRequest{URL: url, Referer: referer})
	if m.result != nil {
		return m.result
	}
	return &domain.SubmitResult{Success: true, Data: map[string]interface{}{"status": "ok"}}
}

func (m *mockLDM) StatusOrEmpty(ctx context.Context) *domain.StatusReport {
	return domain.EmptyStatus()
}

func (m *mockLDM) FetchToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens++
	return "tok", m.tokenErr
}

func (m *mockLDM) Submits() []domain.SubmitRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.SubmitRequest(nil), m.submits...)
}

func (m *mockLDM) Tokens() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens
}

// mockNotifier records notifications
type mockNotifier struct {
	mu        sync.Mutex
	submitted []string
	failed    []string
}

func (m *mockNotifier) NotifySubmitted(settings *domain.Settings, url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitted = append(m.submitted, url)
}

func (m *mockNotifier) NotifyFailed(settings *domain.Settings, url string, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed = append(m.failed, url+": "+reason)
}

// failingHost is a BrowserHost whose calls all fail
type failingHost struct{}

func (failingHost) CancelDownload(ctx context.Context, id string) error {
	return errors.New("no such download")
}

func (failingHost) EraseDownload(ctx context.Context, id string) error {
	return errors.New("no such download")
}

func (failingHost) ActiveTabURL(ctx context.Context) (string, error) {
	return "", errors.New("no active tab")
}

func testSettings() *domain.Settings {
	return &domain.Settings{
		InterceptEnabled:  true,
		IgnoredExtensions: []string{"html", "php"},
		MinFileSizeKB:     0,
	}
}
