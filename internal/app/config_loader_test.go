package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 50000
ldm:
  base_url: http://127.0.0.1:46000
  request_timeout: 3s
  token_refresh_schedule: "@every 5m"
interception:
  ignored_extensions: [exe, msi]
  min_file_size_kb: 256
  domain_denylist: [ads.example.com]
history:
  database_path: /tmp/ldm-bridge-test/bridge.db
  max_entries: 0
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 50000, config.Server.Port)
	assert.Equal(t, "127.0.0.1", config.Server.Host)
	assert.Equal(t, "http://127.0.0.1:46000", config.LDM.BaseURL)
	assert.Equal(t, 3*time.Second, config.LDM.RequestTimeout)
	assert.Equal(t, 2*time.Second, config.LDM.PingTimeout)
	assert.Equal(t, []string{"exe", "msi"}, config.Interception.IgnoredExtensions)
	assert.Equal(t, int64(256), config.Interception.MinFileSizeKB)
	assert.Equal(t, []string{"ads.example.com"}, config.Interception.DomainDenylist)
	assert.Equal(t, "/tmp/ldm-bridge-test/bridge.db", config.History.DatabasePath)
	assert.Equal(t, 50, config.History.MaxEntries)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 50001\n")
	t.Setenv("LDMBRIDGE_LDM_BASE_URL", "http://localhost:47000")
	t.Setenv("LDMBRIDGE_SERVER_PORT", "50002")

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:47000", config.LDM.BaseURL)
	assert.Equal(t, 50002, config.Server.Port)
}

func TestLoadConfig_ExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	config, err := LoadConfig(writeConfig(t, "history:\n  database_path: ~/bridge/bridge.db\n"))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "bridge", "bridge.db"), config.History.DatabasePath)
	assert.Equal(t, filepath.Join(home, ".ldm-bridge", "logs"), config.Logging.LogsDir)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"port out of range", "server:\n  port: 70000\n"},
		{"bad base url", "ldm:\n  base_url: localhost\n"},
		{"negative timeout", "ldm:\n  request_timeout: -1s\n"},
		{"bad schedule", "ldm:\n  token_refresh_schedule: sometimes\n"},
		{"negative min size", "interception:\n  min_file_size_kb: -5\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	original, err := LoadConfig(writeConfig(t, `
ldm:
  request_timeout: 7s
interception:
  domain_allowlist: [cdn.example.com]
history:
  database_path: /tmp/ldm-bridge-test/round.db
`))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, SaveConfig(original, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 7*time.Second, loaded.LDM.RequestTimeout)
	assert.Equal(t, original.LDM.TokenRefreshSchedule, loaded.LDM.TokenRefreshSchedule)
	assert.Equal(t, []string{"cdn.example.com"}, loaded.Interception.DomainAllowlist)
	assert.Equal(t, "/tmp/ldm-bridge-test/round.db", loaded.History.DatabasePath)
	assert.Equal(t, original.Scanner.ExtractorSites, loaded.Scanner.ExtractorSites)
}
