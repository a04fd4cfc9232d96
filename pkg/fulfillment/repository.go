package fulfillment

import (
	"context"
	"errors"
	"time"

	"github.com/systechdigital/redemption-platform/pkg/common/models"
	"gorm.io/gorm"
)

// settingsRowID pins the automation settings to a single row.
const settingsRowID = 1

type SettingsModel struct {
	ID              int  `gorm:"primaryKey"`
	IsEnabled       bool `gorm:"not null"`
	IntervalMinutes int  `gorm:"not null"`
	NextRun         *time.Time
	LastRun         *time.Time
	TotalRuns       int64 `gorm:"not null;default:0"`
	IsRunning       bool  `gorm:"not null;default:false"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (SettingsModel) TableName() string {
	return "automation_settings"
}

// SettingsRepository persists the automation control singleton in Postgres.
type SettingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

func (r *SettingsRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&SettingsModel{})
}

// EnsureDefaults creates the singleton row if missing.
func (r *SettingsRepository) EnsureDefaults(ctx context.Context, enabled bool, intervalMinutes int) error {
	if !models.ValidSweepInterval(intervalMinutes) {
		intervalMinutes = 5
	}
	var existing SettingsModel
	err := r.db.WithContext(ctx).First(&existing, "id = ?", settingsRowID).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	row := defaultSettingsRow(enabled, intervalMinutes, time.Now().UTC())
	return r.db.WithContext(ctx).Create(&row).Error
}

// defaultSettingsRow builds the seed row for a fresh install. next_run is
// seeded so the scheduler waits one full interval instead of firing on its
// first tick.
func defaultSettingsRow(enabled bool, intervalMinutes int, now time.Time) SettingsModel {
	next := now.Add(time.Duration(intervalMinutes) * time.Minute)
	return SettingsModel{
		ID:              settingsRowID,
		IsEnabled:       enabled,
		IntervalMinutes: intervalMinutes,
		NextRun:         &next,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (r *SettingsRepository) Get(ctx context.Context) (models.AutomationSettings, error) {
	var row SettingsModel
	if err := r.db.WithContext(ctx).First(&row, "id = ?", settingsRowID).Error; err != nil {
		return models.AutomationSettings{}, err
	}
	return models.AutomationSettings{
		IsEnabled:       row.IsEnabled,
		IntervalMinutes: row.IntervalMinutes,
		NextRun:         row.NextRun,
		LastRun:         row.LastRun,
		TotalRuns:       row.TotalRuns,
		IsRunning:       row.IsRunning,
	}, nil
}

func (r *SettingsRepository) Update(ctx context.Context, s models.AutomationSettings) error {
	return r.db.WithContext(ctx).Model(&SettingsModel{}).
		Where("id = ?", settingsRowID).
		Updates(map[string]interface{}{
			"is_enabled":       s.IsEnabled,
			"interval_minutes": s.IntervalMinutes,
			"updated_at":       time.Now().UTC(),
		}).Error
}

func (r *SettingsRepository) SetRunning(ctx context.Context, running bool) error {
	return r.db.WithContext(ctx).Model(&SettingsModel{}).
		Where("id = ?", settingsRowID).
		Updates(map[string]interface{}{
			"is_running": running,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *SettingsRepository) RecordRun(ctx context.Context, lastRun, nextRun time.Time) (int64, error) {
	err := r.db.WithContext(ctx).Model(&SettingsModel{}).
		Where("id = ?", settingsRowID).
		Updates(map[string]interface{}{
			"last_run":   lastRun,
			"next_run":   nextRun,
			"total_runs": gorm.Expr("total_runs + 1"),
			"updated_at": time.Now().UTC(),
		}).Error
	if err != nil {
		return 0, err
	}
	var row SettingsModel
	if err := r.db.WithContext(ctx).Select("total_runs").First(&row, "id = ?", settingsRowID).Error; err != nil {
		return 0, err
	}
	return row.TotalRuns, nil
}
