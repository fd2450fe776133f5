package logger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "bridge.log")

	l, err := New(Config{Level: "debug", Format: "json", OutputPath: path})
	require.NoError(t, err)
	l.Info("hello", zap.String("k", "v"))
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, string(data), `"k":"v"`)
}

func TestMultiLogger_WritesAndReadsCategories(t *testing.T) {
	dir := t.TempDir()
	ml, err := NewMultiLogger(MultiLoggerConfig{Level: "info", LogsDir: dir}, nil)
	require.NoError(t, err)

	adapter := NewLoggerAdapter(ml)
	adapter.LogIntercept("download_intercepted", zap.String("url", "https://example.com/a.zip"))
	adapter.LogIntercept("download_skipped", zap.String("reason", "disabled"))
	adapter.LogError(CategoryIntercept, "submit failed", zap.String("error", "HTTP 500"))
	require.NoError(t, ml.Close())

	reader := NewLogReader(dir)

	entries, err := reader.ReadLogs(CategoryIntercept, time.Now(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "download_intercepted", entries[0].Message)
	assert.Equal(t, "info", entries[0].Level)
	assert.Equal(t, "https://example.com/a.zip", entries[0].Fields["url"])
	assert.NotEmpty(t, entries[0].Timestamp)

	last, err := reader.ReadLogs(CategoryIntercept, time.Now(), 1)
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, "download_skipped", last[0].Message)

	errs, err := reader.ReadLogs(CategoryError, time.Now(), 10)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "error", errs[0].Level)
	assert.Equal(t, "intercept", errs[0].Fields["category"])

	found, err := reader.SearchLogs(CategoryIntercept, time.Now(), "DISABLED", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "download_skipped", found[0].Message)
}

func TestMultiLogger_RotatesOnNewDay(t *testing.T) {
	dir := t.TempDir()
	ml, err := NewMultiLogger(MultiLoggerConfig{Level: "info", LogsDir: dir}, nil)
	require.NoError(t, err)
	defer ml.Close()

	tomorrow := time.Now().AddDate(0, 0, 1)
	ml.now = func() time.Time { return tomorrow }
	ml.LogIntercept("next_day")
	require.NoError(t, ml.Sync())

	entries, err := NewLogReader(dir).ReadLogs(CategoryIntercept, tomorrow, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "next_day", entries[0].Message)
}

func TestLogReader_MissingFile(t *testing.T) {
	entries, err := NewLogReader(t.TempDir()).ReadLogs(CategoryError, time.Now(), 10)

	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestParseEntry_PlainText(t *testing.T) {
	entry := parseEntry(CategoryError, "not json")

	assert.Equal(t, "not json", entry.Message)
	assert.Equal(t, "info", entry.Level)
}

func TestValidCategory(t *testing.T) {
	assert.True(t, ValidCategory(CategoryIntercept))
	assert.False(t, ValidCategory("queue"))
}
