package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/lastdm/ldm-bridge/internal/domain"
)

// SettingsStore holds the published settings. Readers get an immutable
// snapshot; updates replace it wholesale.
type SettingsStore struct {
	current  atomic.Pointer[domain.Settings]
	defaults *domain.Settings
	repo     domain.SettingsRepository
	writeMu  sync.Mutex
	logger   *zap.Logger
}

// ErrInvalidSettingsFile is returned by Import for payloads without settings
var ErrInvalidSettingsFile = errors.New("invalid settings file")

// NewSettingsStore loads the persisted settings, seeding repo with initial
// when nothing was saved yet
func NewSettingsStore(repo domain.SettingsRepository, initial *domain.Settings, logger *zap.Logger) (*SettingsStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if initial == nil {
		initial = domain.DefaultSettings()
	}
	s := &SettingsStore{repo: repo, defaults: initial.Clone(), logger: logger}

	stored, err := repo.LoadSettings()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if stored == nil {
		if _, err := s.Replace(initial); err != nil {
			return nil, err
		}
		logger.Info("Seeded settings from configuration")
		return s, nil
	}

	stored.Normalize()
	s.current.Store(stored)
	return s, nil
}

// Load returns the current settings. Callers must not mutate the result.
func (s *SettingsStore) Load() *domain.Settings {
	return s.current.Load()
}

// Replace normalizes, persists and publishes next
func (s *SettingsStore) Replace(next *domain.Settings) (*domain.Settings, error) {
	if next == nil {
		return nil, fmt.Errorf("settings are required")
	}
	published := next.Clone()
	published.Normalize()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.repo.SaveSettings(published); err != nil {
		return nil, fmt.Errorf("failed to save settings: %w", err)
	}
	s.current.Store(published)

	s.logger.Info("Settings updated",
		zap.Bool("intercept", published.InterceptEnabled),
		zap.Strings("ignored_extensions", published.IgnoredExtensions),
		zap.Int64("min_file_size_kb", published.MinFileSizeKB),
		zap.Int("allowlist", len(published.DomainAllowlist)),
		zap.Int("denylist", len(published.DomainDenylist)))
	return published, nil
}

// Reload republishes whatever the repository holds
func (s *SettingsStore) Reload() (*domain.Settings, error) {
	stored, err := s.repo.LoadSettings()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if stored == nil {
		return s.Load(), nil
	}
	stored.Normalize()
	s.current.Store(stored)
	return stored, nil
}

// Merge applies JSON patches over the current settings and publishes the
// result. Fields a patch omits keep their current value.
func (s *SettingsStore) Merge(patches ...json.RawMessage) (*domain.Settings, error) {
	next := s.Load().Clone()
	for _, patch := range patches {
		if !gjson.ValidBytes(patch) || !gjson.ParseBytes(patch).IsObject() {
			return nil, fmt.Errorf("settings must be a JSON object")
		}
		if err := json.Unmarshal(patch, next); err != nil {
			return nil, fmt.Errorf("failed to decode settings: %w", err)
		}
	}
	return s.Replace(next)
}

// Reset publishes the settings the store was seeded with
func (s *SettingsStore) Reset() (*domain.Settings, error) {
	return s.Replace(s.defaults)
}

// Export snapshots the current settings for backup
func (s *SettingsStore) Export(now time.Time) *domain.SettingsExport {
	return &domain.SettingsExport{
		Version:   domain.SettingsExportVersion,
		Timestamp: now.UTC(),
		Settings:  s.Load().Clone(),
	}
}

// Import merges a backup over the current settings. It reads the
// "settings" object of an export, or the "sync" and "local" sections
// written by the browser options page.
func (s *SettingsStore) Import(data []byte) (*domain.Settings, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidSettingsFile
	}
	doc := gjson.ParseBytes(data)

	var patches []json.RawMessage
	if exported := doc.Get("settings"); exported.IsObject() {
		patches = append(patches, json.RawMessage(exported.Raw))
	} else {
		if synced := doc.Get("sync"); synced.IsObject() {
			patches = append(patches, json.RawMessage(synced.Raw))
		}
		if sound := doc.Get("local.soundEnabled"); sound.Type == gjson.True || sound.Type == gjson.False {
			patches = append(patches, json.RawMessage(fmt.Sprintf(`{"soundEnabled":%t}`, sound.Bool())))
		}
	}
	if len(patches) == 0 {
		return nil, ErrInvalidSettingsFile
	}
	return s.Merge(patches...)
}
