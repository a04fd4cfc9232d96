package notifier

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type LogEntry struct {
	Recipient string
	Template  string
	Channel   string
	Data      map[string]interface{}
	SentAt    time.Time
	Success   bool
	Error     string
}

type NotificationLogModel struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	Recipient string `gorm:"index"`
	Template  string `gorm:"index"`
	Channel   string
	Data      datatypes.JSONMap `gorm:"type:jsonb"`
	Success   bool
	Error     string
	SentAt    time.Time
	CreatedAt time.Time
}

func (NotificationLogModel) TableName() string {
	return "notification_log"
}

// LogRepository persists an audit trail of every outbound notification.
type LogRepository struct {
	db *gorm.DB
}

func NewLogRepository(db *gorm.DB) *LogRepository {
	return &LogRepository{db: db}
}

func (r *LogRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&NotificationLogModel{})
}

func (r *LogRepository) Record(ctx context.Context, entry LogEntry) error {
	row := NotificationLogModel{
		ID:        uuid.New().String(),
		Recipient: entry.Recipient,
		Template:  entry.Template,
		Channel:   entry.Channel,
		Data:      entry.Data,
		Success:   entry.Success,
		Error:     entry.Error,
		SentAt:    entry.SentAt,
		CreatedAt: time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *LogRepository) ListRecent(ctx context.Context, limit int) ([]NotificationLogModel, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var rows []NotificationLogModel
	err := r.db.WithContext(ctx).Order("sent_at DESC").Limit(limit).Find(&rows).Error
	return rows, err
}
