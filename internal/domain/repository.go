package domain

// HistoryRepository defines the interface for history persistence
type HistoryRepository interface {
	// Append stores an entry and trims the log to the newest max entries
	Append(entry *HistoryEntry, max int) error

	// Recent returns up to limit entries, newest first
	Recent(limit int) ([]*HistoryEntry, error)

	// Clear removes every history entry
	Clear() error

	// Count returns the number of stored entries
	Count() (int64, error)

	// GetStats returns the aggregate counters
	GetStats() (*Stats, error)

	// SaveStats persists the aggregate counters
	SaveStats(stats *Stats) error
}

// SettingsRepository persists the interception settings
type SettingsRepository interface {
	// LoadSettings returns the stored settings, or nil when none were saved
	LoadSettings() (*Settings, error)

	// SaveSettings replaces the stored settings
	SaveSettings(settings *Settings) error
}
