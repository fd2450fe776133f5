package domain

import (
	"strings"
	"time"
)

// Settings is the user-tunable interception context. A Settings value is
// treated as immutable once published; updates replace it wholesale.
type Settings struct {
	ID                   uint      `json:"-" gorm:"primaryKey"`
	InterceptEnabled     bool      `json:"interceptAll"`
	IgnoredExtensions    []string  `json:"ignoredExtensions" gorm:"serializer:json"`
	MinFileSizeKB        int64     `json:"minFileSize"`
	DomainAllowlist      []string  `json:"domainWhitelist" gorm:"serializer:json"`
	DomainDenylist       []string  `json:"domainBlacklist" gorm:"serializer:json"`
	StrictHostnames      bool      `json:"strictHostnames"`
	NotificationsEnabled bool      `json:"notificationsEnabled"`
	SoundEnabled         bool      `json:"soundEnabled"`
	UpdatedAt            time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

// DefaultSettings returns the settings used when nothing has been persisted
func DefaultSettings() *Settings {
	return DefaultConfig().Interception.InitialSettings()
}

// Normalize cleans every list the same way the options page does: trimmed,
// lower-cased, without a leading dot, without blanks or duplicates.
func (s *Settings) Normalize() {
	s.IgnoredExtensions = normalizeList(s.IgnoredExtensions)
	s.DomainAllowlist = normalizeList(s.DomainAllowlist)
	s.DomainDenylist = normalizeList(s.DomainDenylist)
	if s.MinFileSizeKB < 0 {
		s.MinFileSizeKB = 0
	}
}

// Clone returns a deep copy
func (s *Settings) Clone() *Settings {
	c := *s
	c.IgnoredExtensions = append([]string(nil), s.IgnoredExtensions...)
	c.DomainAllowlist = append([]string(nil), s.DomainAllowlist...)
	c.DomainDenylist = append([]string(nil), s.DomainDenylist...)
	return &c
}

// IsIgnoredExtension reports whether ext (any case, with or without dot) is ignored
func (s *Settings) IsIgnoredExtension(ext string) bool {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if ext == "" {
		return false
	}
	for _, e := range s.IgnoredExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, v := range in {
		v = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(v)), ".")
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// SettingsExportVersion tags settings backups
const SettingsExportVersion = "3.0"

// SettingsExport is a settings backup
type SettingsExport struct {
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Settings  *Settings `json:"settings"`
}
