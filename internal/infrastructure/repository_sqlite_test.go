package infrastructure

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lastdm/ldm-bridge/internal/domain"
)

func setupTestRepo(t *testing.T) (*SQLiteRepository, func()) {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "repo-test-*")
	require.NoError(t, err)

	dbPath := filepath.Join(tmpDir, "nested", "test.db")
	repo, err := NewSQLiteRepository(dbPath)
	require.NoError(t, err)

	cleanup := func() {
		repo.Close()
		os.RemoveAll(tmpDir)
	}
	return repo, cleanup
}

func entryAt(url string, at time.Time) *domain.HistoryEntry {
	e := domain.NewHistoryEntry(url, "", domain.SourceManual, 0, &domain.SubmitResult{Success: true})
	e.CreatedAt = at
	return e
}

func TestAppend_TrimsToNewestEntries(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 55; i++ {
		e := entryAt(fmt.Sprintf("https://example.com/%d.zip", i), start.Add(time.Duration(i)*time.Second))
		require.NoError(t, repo.Append(e, domain.DefaultHistoryLimit))
	}

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(50), count)

	recent, err := repo.Recent(0)
	require.NoError(t, err)
	require.Len(t, recent, 50)
	assert.Equal(t, "https://example.com/54.zip", recent[0].URL)
	assert.Equal(t, "https://example.com/5.zip", recent[49].URL)
}

func TestRecent_LimitsAndOrders(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Append(entryAt("https://a", start), 50))
	require.NoError(t, repo.Append(entryAt("https://b", start.Add(time.Minute)), 50))
	require.NoError(t, repo.Append(entryAt("https://c", start.Add(2*time.Minute)), 50))

	recent, err := repo.Recent(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "https://c", recent[0].URL)
	assert.Equal(t, "https://b", recent[1].URL)
	assert.Equal(t, domain.SourceManual, recent[0].Source)
	assert.True(t, recent[0].Success)
}

func TestClear_RemovesAllEntries(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	require.NoError(t, repo.Append(entryAt("https://a", time.Now()), 50))
	require.NoError(t, repo.Clear())

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestStats_RoundTrip(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	stats, err := repo.GetStats()
	require.NoError(t, err)
	assert.Zero(t, stats.TotalDownloads)

	stats.Record(2048, time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC))
	require.NoError(t, repo.SaveStats(stats))
	stats.Record(1024, time.Date(2026, 3, 4, 11, 0, 0, 0, time.UTC))
	require.NoError(t, repo.SaveStats(stats))

	loaded, err := repo.GetStats()
	require.NoError(t, err)
	assert.Equal(t, int64(2), loaded.TotalDownloads)
	assert.Equal(t, int64(2), loaded.TodayDownloads)
	assert.Equal(t, int64(3072), loaded.TotalBytes)
	assert.Equal(t, "2026-03-04", loaded.LastDate)
}

func TestSettings_RoundTrip(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	loaded, err := repo.LoadSettings()
	require.NoError(t, err)
	assert.Nil(t, loaded)

	s := domain.DefaultSettings()
	s.MinFileSizeKB = 250
	s.DomainDenylist = []string{"ads.example.com"}
	require.NoError(t, repo.SaveSettings(s))

	s.InterceptEnabled = false
	s.SoundEnabled = false
	require.NoError(t, repo.SaveSettings(s))

	loaded, err = repo.LoadSettings()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.False(t, loaded.InterceptEnabled)
	assert.False(t, loaded.SoundEnabled)
	assert.Equal(t, int64(250), loaded.MinFileSizeKB)
	assert.Equal(t, []string{"ads.example.com"}, loaded.DomainDenylist)
	assert.Equal(t, s.IgnoredExtensions, loaded.IgnoredExtensions)
}
