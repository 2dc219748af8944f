package database

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/timernudge/timernudge/internal/models"
)

// Repository handles all database operations
type Repository struct {
	db *DB
}

// NewRepository creates a new repository instance
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// CreateCheck inserts a completed check cycle
func (r *Repository) CreateCheck(record *models.CheckRecord) error {
	if record.FrontmostApp == "" {
		record.FrontmostApp = "-"
	}
	result := r.db.Create(record)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert check record")
	}
	return nil
}

// GetChecksSince retrieves check records since a given time, newest first
func (r *Repository) GetChecksSince(since time.Time, limit int) ([]*models.CheckRecord, error) {
	var records []*models.CheckRecord
	query := r.db.Where("timestamp >= ?", since).Order("timestamp DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if result := query.Find(&records); result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query check records")
	}

	return records, nil
}

// GetLatestCheck retrieves the most recent check record, nil if none
func (r *Repository) GetLatestCheck() (*models.CheckRecord, error) {
	var record models.CheckRecord
	result := r.db.Order("timestamp DESC").First(&record)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(result.Error, "failed to get latest check")
	}
	return &record, nil
}

// CountDecisionsSince aggregates decisions since a given time
func (r *Repository) CountDecisionsSince(since time.Time) ([]models.DecisionCount, error) {
	var counts []models.DecisionCount

	result := r.db.Model(&models.CheckRecord{}).
		Select("decision, COUNT(*) as count").
		Where("timestamp >= ? AND decision <> ''", since).
		Group("decision").
		Order("count DESC").
		Scan(&counts)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to count decisions")
	}

	return counts, nil
}

// CountErrorsSince counts failed checks since a given time
func (r *Repository) CountErrorsSince(since time.Time) (int64, error) {
	var n int64
	result := r.db.Model(&models.CheckRecord{}).
		Where("timestamp >= ? AND error_code <> ''", since).
		Count(&n)
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to count failed checks")
	}
	return n, nil
}

// CountNotificationsSince counts delivered reminders since a given time
func (r *Repository) CountNotificationsSince(since time.Time) (int64, error) {
	var n int64
	result := r.db.Model(&models.CheckRecord{}).
		Where("timestamp >= ? AND notified = ?", since, true).
		Count(&n)
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to count notifications")
	}
	return n, nil
}

// DeleteChecksBefore permanently removes check records older than before
func (r *Repository) DeleteChecksBefore(before time.Time) (int64, error) {
	result := r.db.Unscoped().Where("timestamp < ?", before).Delete(&models.CheckRecord{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to delete old check records")
	}
	return result.RowsAffected, nil
}

// DeleteErrorLogsBefore permanently removes error logs older than before
func (r *Repository) DeleteErrorLogsBefore(before time.Time) (int64, error) {
	result := r.db.Unscoped().Where("timestamp < ?", before).Delete(&models.ErrorLog{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to delete old error logs")
	}
	return result.RowsAffected, nil
}

// CreateErrorLog inserts a new error log into the database
func (r *Repository) CreateErrorLog(errorLog *models.ErrorLog) error {
	result := r.db.Create(errorLog)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert error log")
	}
	return nil
}

// GetCredential returns the secret stored under name; ok is false when absent
func (r *Repository) GetCredential(name string) (secret string, ok bool, err error) {
	var cred models.Credential
	result := r.db.Where("name = ?", name).First(&cred)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, errors.Wrap(result.Error, "failed to read credential")
	}
	return cred.Secret, true, nil
}

// PutCredential inserts or replaces the secret stored under name
func (r *Repository) PutCredential(name, secret string) error {
	cred := &models.Credential{Name: name, Secret: secret}
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"secret", "updated_at"}),
	}).Create(cred)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to store credential")
	}
	return nil
}

// DeleteCredential removes the secret stored under name
func (r *Repository) DeleteCredential(name string) error {
	result := r.db.Where("name = ?", name).Delete(&models.Credential{})
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to delete credential")
	}
	return nil
}

// Clear removes all check records and error logs
func (r *Repository) Clear() error {
	if err := r.db.Exec("DELETE FROM check_records").Error; err != nil {
		return errors.Wrap(err, "failed to clear check records")
	}
	if err := r.db.Exec("DELETE FROM error_logs").Error; err != nil {
		return errors.Wrap(err, "failed to clear error logs")
	}
	return nil
}
