package database

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ledger is the durable record of which tracks have been pushed through the
// pipeline, so reruns skip finished work.
type Ledger struct {
	db *gorm.DB
}

// OpenLedger opens (and migrates) the processed-tracks ledger at path.
func OpenLedger(path string) (*Ledger, error) {
	db, err := open(path)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&ProcessedTrack{}); err != nil {
		return nil, fmt.Errorf("migrate ledger schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Close releases the underlying connection.
func (l *Ledger) Close() error { return closeDB(l.db) }

// MarkProcessed upserts a ledger row. Reprocessing a track overwrites its
// previous status and error.
func (l *Ledger) MarkProcessed(source string, trackID int64, status, errorMessage string) error {
	if status == "" {
		status = StatusSuccess
	}
	row := ProcessedTrack{
		Source:       source,
		TrackID:      trackID,
		Status:       status,
		ErrorMessage: errorMessage,
		ProcessedAt:  time.Now().UTC(),
	}
	err := l.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source"}, {Name: "track_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "error_message", "processed_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	return nil
}

// IsProcessed reports whether a track has a successful ledger entry.
func (l *Ledger) IsProcessed(source string, trackID int64) (bool, error) {
	var count int64
	err := l.db.Model(&ProcessedTrack{}).
		Where("source = ? AND track_id = ? AND status = ?", source, trackID, StatusSuccess).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check processed: %w", err)
	}
	return count > 0, nil
}

// ProcessedIDs returns track ids with ledger entries for a source. With
// includeFailed, failed and skipped tracks count too, so they are not
// retried.
func (l *Ledger) ProcessedIDs(source string, includeFailed bool) (map[int64]bool, error) {
	q := l.db.Model(&ProcessedTrack{}).Where("source = ?", source)
	if !includeFailed {
		q = q.Where("status = ?", StatusSuccess)
	}

	var ids []int64
	if err := q.Pluck("track_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list processed ids: %w", err)
	}

	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// FailedIDs returns track ids whose last run failed or was skipped.
func (l *Ledger) FailedIDs(source string) ([]int64, error) {
	var ids []int64
	err := l.db.Model(&ProcessedTrack{}).
		Where("source = ? AND status IN ?", source, []string{StatusFailed, StatusSkipped}).
		Pluck("track_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list failed ids: %w", err)
	}
	return ids, nil
}

// Count counts ledger rows. Empty source or status means no filter.
func (l *Ledger) Count(source, status string) (int64, error) {
	q := l.db.Model(&ProcessedTrack{})
	if source != "" {
		q = q.Where("source = ?", source)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count processed: %w", err)
	}
	return count, nil
}

// ClearFailed deletes failed and skipped rows for a source so they retry.
func (l *Ledger) ClearFailed(source string) (int64, error) {
	res := l.db.Where("source = ? AND status IN ?", source, []string{StatusFailed, StatusSkipped}).
		Delete(&ProcessedTrack{})
	if res.Error != nil {
		return 0, fmt.Errorf("clear failed: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ClearProcessed deletes every ledger row for a source.
func (l *Ledger) ClearProcessed(source string) (int64, error) {
	res := l.db.Where("source = ?", source).Delete(&ProcessedTrack{})
	if res.Error != nil {
		return 0, fmt.Errorf("clear processed: %w", res.Error)
	}
	return res.RowsAffected, nil
}
