package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"watchtrail/model"
)

// ProgressRepository defines the backend store for synced progress
// records. UpsertItems must be idempotent per (user, item key): the
// agent retries whole batches and relies on redelivery being safe.
type ProgressRepository interface {
	UpsertItems(userID string, items []model.ProgressEntry) (int, error)
	GetUserRecords(userID string) (map[string]model.ProgressRecord, error)
}

// gormProgressRepository implements ProgressRepository on GORM/MySQL.
type gormProgressRepository struct {
	db *gorm.DB
}

// NewGormProgressRepository creates a new gormProgressRepository.
func NewGormProgressRepository(db *gorm.DB) ProgressRepository {
	return &gormProgressRepository{db: db}
}

// UpsertItems merges each entry into the user's record for its item
// key, stamping the server-side lastSynced time. Entries without a
// title are skipped. Returns the number of records written.
func (r *gormProgressRepository) UpsertItems(userID string, items []model.ProgressEntry) (int, error) {
	syncedAt := time.Now().UnixMilli()
	stored := 0

	for _, entry := range items {
		if entry.Title == "" {
			continue
		}
		record := model.RecordFromEntry(userID, entry, syncedAt)

		err := r.db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "item_key"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title", "episode", "time", "duration", "liked",
				"cover", "url", "platform", "last_updated", "last_synced",
			}),
		}).Create(&record).Error
		if err != nil {
			return stored, fmt.Errorf("failed to upsert progress record %s: %w", record.ItemKey, err)
		}
		stored++
	}

	return stored, nil
}

// GetUserRecords returns all records for a user keyed by item key.
func (r *gormProgressRepository) GetUserRecords(userID string) (map[string]model.ProgressRecord, error) {
	var records []model.ProgressRecord
	if err := r.db.Where("user_id = ?", userID).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load progress records for user %s: %w", userID, err)
	}

	out := make(map[string]model.ProgressRecord, len(records))
	for _, rec := range records {
		out[rec.ItemKey] = rec
	}
	return out, nil
}
