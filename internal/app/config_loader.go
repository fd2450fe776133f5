package app

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/lastdm/ldm-bridge/internal/domain"
)

// LoadConfig loads configuration from file and environment
func LoadConfig(configPath string) (*domain.Config, error) {
	config := domain.DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.ldm-bridge")
		v.AddConfigPath("/etc/ldm-bridge")
	}

	// LDMBRIDGE_LDM_BASE_URL overrides ldm.base_url
	v.SetEnvPrefix("LDMBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config = expandPaths(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// bindEnvKeys registers the scalar keys so AutomaticEnv also applies to
// keys absent from the config file
func bindEnvKeys(v *viper.Viper) {
	for _, key := range []string{
		"server.host", "server.port",
		"ldm.base_url", "ldm.request_timeout", "ldm.ping_timeout", "ldm.token_ttl",
		"ldm.token_refresh_schedule", "ldm.connection_check_interval", "ldm.status_poll_interval",
		"interception.enabled", "interception.min_file_size_kb", "interception.strict_hostnames",
		"scanner.user_agent", "scanner.fetch_timeout", "scanner.use_browser_cookies",
		"history.database_path", "history.max_entries",
		"notification.method",
		"logging.level", "logging.format", "logging.output_path", "logging.logs_dir",
	} {
		_ = v.BindEnv(key)
	}
}

// expandPaths expands environment variables in path configurations
func expandPaths(config *domain.Config) *domain.Config {
	config.History.DatabasePath = expandPath(config.History.DatabasePath)
	config.Logging.LogsDir = expandPath(config.Logging.LogsDir)

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" {
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}

	return config
}

// expandPath expands environment variables and ~ in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	if strings.Contains(path, "$HOME") {
		if home, err := os.UserHomeDir(); err == nil {
			path = strings.ReplaceAll(path, "$HOME", home)
		}
	}

	return os.ExpandEnv(path)
}

// validateConfig validates the configuration
func validateConfig(config *domain.Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	u, err := url.Parse(config.LDM.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid LDM base URL: %q", config.LDM.BaseURL)
	}

	if config.LDM.RequestTimeout < 0 || config.LDM.PingTimeout < 0 {
		return fmt.Errorf("timeouts cannot be negative")
	}

	if config.LDM.TokenRefreshSchedule != "" {
		if _, err := cron.ParseStandard(config.LDM.TokenRefreshSchedule); err != nil {
			return fmt.Errorf("invalid token refresh schedule %q: %w", config.LDM.TokenRefreshSchedule, err)
		}
	}

	if config.Interception.MinFileSizeKB < 0 {
		return fmt.Errorf("minimum file size cannot be negative")
	}

	if config.History.DatabasePath == "" {
		return fmt.Errorf("history database path not configured")
	}

	if config.History.MaxEntries < 1 {
		config.History.MaxEntries = domain.DefaultHistoryLimit
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	return nil
}

// toSettingsMap flattens config into maps keyed by the mapstructure tags so
// the written file loads back through LoadConfig
func toSettingsMap(config *domain.Config) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	if err := mapstructure.Decode(config, &out); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return stringifyDurations(out).(map[string]interface{}), nil
}

func stringifyDurations(value interface{}) interface{} {
	switch v := value.(type) {
	case time.Duration:
		return v.String()
	case map[string]interface{}:
		for key, inner := range v {
			v[key] = stringifyDurations(inner)
		}
		return v
	default:
		return v
	}
}

// SaveConfig saves configuration to file
func SaveConfig(config *domain.Config, path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	sections, err := toSettingsMap(config)
	if err != nil {
		return err
	}
	for key, value := range sections {
		v.Set(key, value)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
