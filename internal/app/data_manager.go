package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/lastdm/ldm-bridge/internal/domain"
	"github.com/lastdm/ldm-bridge/pkg/logger"
)

// DataManager owns operations that span every persisted store
type DataManager struct {
	settings *SettingsStore
	history  *HistoryService
	logs     *logger.LoggerAdapter
}

// NewDataManager creates a new data manager
func NewDataManager(settings *SettingsStore, history *HistoryService, logs *logger.LoggerAdapter) *DataManager {
	if logs == nil {
		logs = logger.NewSingleLoggerAdapter(zap.NewNop())
	}
	return &DataManager{
		settings: settings,
		history:  history,
		logs:     logs,
	}
}

// ResetAll restores the seeded settings, clears history and zeroes stats.
// It stops at the first failure.
func (d *DataManager) ResetAll() (*domain.Settings, error) {
	settings, err := d.settings.Reset()
	if err != nil {
		return nil, err
	}
	if err := d.history.Clear(); err != nil {
		d.logs.LogError(logger.CategoryError, "Failed to clear history", zap.Error(err))
		return nil, fmt.Errorf("failed to clear history: %w", err)
	}
	if err := d.history.ResetStats(); err != nil {
		d.logs.LogError(logger.CategoryError, "Failed to reset stats", zap.Error(err))
		return nil, fmt.Errorf("failed to reset stats: %w", err)
	}

	d.logs.General().Info("All data reset to defaults")
	return settings, nil
}
