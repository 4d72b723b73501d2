package model

import "time"

// ProgressRecord is the backend row for one synced item, keyed by
// (user, platform:title). Repeated syncs of the same item merge into
// the existing row, so redelivery of a batch is safe.
type ProgressRecord struct {
	ID          uint64    `gorm:"primaryKey" json:"-"`
	UserID      string    `gorm:"size:64;uniqueIndex:idx_user_item;index" json:"-"`
	ItemKey     string    `gorm:"size:512;uniqueIndex:idx_user_item" json:"-"`
	Title       string    `gorm:"size:512" json:"title"`
	Episode     string    `gorm:"size:128" json:"episode"`
	Time        float64   `json:"time"`
	Duration    float64   `json:"duration"`
	Liked       bool      `json:"liked"`
	Cover       string    `gorm:"size:1024" json:"cover"`
	URL         string    `gorm:"size:1024" json:"url"`
	Platform    string    `gorm:"size:128" json:"platform"`
	LastUpdated int64     `json:"lastUpdated"`
	LastSynced  int64     `json:"lastSynced"` // server-side stamp, ms since epoch
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}

// RecordFromEntry builds the row a synced entry upserts into.
func RecordFromEntry(userID string, entry ProgressEntry, syncedAt int64) ProgressRecord {
	return ProgressRecord{
		UserID:      userID,
		ItemKey:     ItemKey(entry.Platform, entry.Title),
		Title:       entry.Title,
		Episode:     entry.Episode,
		Time:        entry.Time,
		Duration:    entry.Duration,
		Liked:       entry.Liked,
		Cover:       entry.Cover,
		URL:         entry.URL,
		Platform:    entry.Platform,
		LastUpdated: entry.LastUpdated,
		LastSynced:  syncedAt,
	}
}
