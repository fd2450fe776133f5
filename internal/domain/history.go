package domain

import (
	"time"

	"github.com/google/uuid"
)

// HistoryEntry records one submission to LDM
type HistoryEntry struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	URL       string    `json:"url" gorm:"not null"`
	Referer   string    `json:"referer,omitempty"`
	Source    Source    `json:"source" gorm:"not null"`
	Success   bool      `json:"success" gorm:"index"`
	Error     string    `json:"error,omitempty"`
	Size      int64     `json:"size,omitempty"`
	CreatedAt time.Time `json:"timestamp" gorm:"index"`
}

// NewHistoryEntry builds an entry from a submission result
func NewHistoryEntry(url, referer string, source Source, size int64, result *SubmitResult) *HistoryEntry {
	e := &HistoryEntry{
		ID:        uuid.New().String(),
		URL:       url,
		Referer:   referer,
		Source:    source,
		Size:      size,
		CreatedAt: time.Now(),
	}
	if result != nil {
		e.Success = result.Success
		e.Error = result.Error
	}
	return e
}

// Stats holds aggregate submission counters
type Stats struct {
	ID             uint   `json:"-" gorm:"primaryKey"`
	TotalDownloads int64  `json:"totalDownloads"`
	TodayDownloads int64  `json:"todayDownloads"`
	TotalBytes     int64  `json:"totalBytes"`
	LastDate       string `json:"lastDate,omitempty"` // YYYY-MM-DD
}

// Record counts one successful submission at now
func (s *Stats) Record(bytes int64, now time.Time) {
	today := now.Format("2006-01-02")
	if s.LastDate != today {
		s.TodayDownloads = 0
		s.LastDate = today
	}
	s.TotalDownloads++
	s.TodayDownloads++
	if bytes > 0 {
		s.TotalBytes += bytes
	}
}

// Rollover returns the stats as seen at now, zeroing the daily counter when the
// last recorded day is in the past
func (s Stats) Rollover(now time.Time) Stats {
	if s.LastDate != "" && s.LastDate != now.Format("2006-01-02") {
		s.TodayDownloads = 0
	}
	return s
}
