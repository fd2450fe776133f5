package app

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lastdm/ldm-bridge/internal/domain"
)

func newTestHistory(repo *mockRepo, max int, start time.Time) (*HistoryService, *time.Time) {
	clock := start
	h := NewHistoryService(repo, max, nil)
	h.now = func() time.Time { return clock }
	return h, &clock
}

func TestHistoryService_RecordSuccessCountsStats(t *testing.T) {
	repo := newMockRepo()
	h, _ := newTestHistory(repo, 50, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	entry, err := h.Record("https://example.com/a.zip", "https://example.com/", domain.SourceIntercept, 2048,
		&domain.SubmitResult{Success: true})
	require.NoError(t, err)
	assert.True(t, entry.Success)
	assert.Equal(t, domain.SourceIntercept, entry.Source)

	stats, err := h.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalDownloads)
	assert.Equal(t, int64(1), stats.TodayDownloads)
	assert.Equal(t, int64(2048), stats.TotalBytes)
	assert.Equal(t, "2026-03-01", stats.LastDate)
}

func TestHistoryService_RecordFailureSkipsStats(t *testing.T) {
	repo := newMockRepo()
	h, _ := newTestHistory(repo, 50, time.Now())

	entry, err := h.Record("https://example.com/a.zip", "", domain.SourceManual, 0,
		domain.FailedSubmit(domain.ErrNotRunning))
	require.NoError(t, err)
	assert.False(t, entry.Success)
	assert.Equal(t, domain.ErrNotRunning.Error(), entry.Error)

	stats, err := h.Stats()
	require.NoError(t, err)
	assert.Zero(t, stats.TotalDownloads)

	count, _ := repo.Count()
	assert.Equal(t, int64(1), count)
}

func TestHistoryService_TrimsToMaxEntries(t *testing.T) {
	repo := newMockRepo()
	h, clock := newTestHistory(repo, 3, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	for i := 0; i < 5; i++ {
		*clock = clock.Add(time.Minute)
		_, err := h.Record(fmt.Sprintf("https://example.com/%d.zip", i), "", domain.SourceManual, 0,
			&domain.SubmitResult{Success: true})
		require.NoError(t, err)
	}

	entries, err := h.Recent(0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "https://example.com/4.zip", entries[0].URL)
	assert.Equal(t, "https://example.com/2.zip", entries[2].URL)

	stats, err := h.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(5), stats.TotalDownloads)
}

func TestHistoryService_TodayRollsOver(t *testing.T) {
	repo := newMockRepo()
	h, clock := newTestHistory(repo, 50, time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC))

	_, err := h.Record("https://example.com/a.zip", "", domain.SourceManual, 10, &domain.SubmitResult{Success: true})
	require.NoError(t, err)

	*clock = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	stats, err := h.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalDownloads)
	assert.Zero(t, stats.TodayDownloads)

	_, err = h.Record("https://example.com/b.zip", "", domain.SourceManual, 10, &domain.SubmitResult{Success: true})
	require.NoError(t, err)
	stats, err = h.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalDownloads)
	assert.Equal(t, int64(1), stats.TodayDownloads)
	assert.Equal(t, int64(20), stats.TotalBytes)
}

func TestHistoryService_ClearKeepsStats(t *testing.T) {
	repo := newMockRepo()
	h, _ := newTestHistory(repo, 50, time.Now())

	_, err := h.Record("https://example.com/a.zip", "", domain.SourceManual, 0, &domain.SubmitResult{Success: true})
	require.NoError(t, err)

	require.NoError(t, h.Clear())

	entries, err := h.Recent(10)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)

	stats, err := h.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalDownloads)

	require.NoError(t, h.ResetStats())
	stats, err = h.Stats()
	require.NoError(t, err)
	assert.Zero(t, stats.TotalDownloads)
}
