package inventory

import (
	"time"

	"github.com/systechdigital/redemption-platform/pkg/common/models"
)

type SalesRecordModel struct {
	ID                 uint   `gorm:"primaryKey"`
	ActivationCode     string `gorm:"uniqueIndex;not null"`
	Product            string
	ProductSubCategory string
	Status             string `gorm:"index;not null;default:available"`
	ClaimedBy          string
	ClaimedAt          *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (SalesRecordModel) TableName() string {
	return "sales_records"
}

type KeyModel struct {
	ID             string `gorm:"type:uuid;primaryKey"`
	ActivationCode string `gorm:"uniqueIndex;not null"`
	Product        string `gorm:"index"`
	Status         string `gorm:"index;not null;default:available"`
	AssignedEmail  string
	AssignedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (KeyModel) TableName() string {
	return "ott_keys"
}

func mapSalesModel(m SalesRecordModel) models.SalesRecord {
	return models.SalesRecord{
		ActivationCode:     m.ActivationCode,
		Product:            m.Product,
		ProductSubCategory: m.ProductSubCategory,
		Status:             models.SalesStatus(m.Status),
		ClaimedBy:          m.ClaimedBy,
		ClaimedAt:          m.ClaimedAt,
	}
}

func mapKeyModel(m KeyModel) models.Key {
	return models.Key{
		ID:             m.ID,
		ActivationCode: m.ActivationCode,
		Product:        m.Product,
		Status:         models.KeyStatus(m.Status),
		AssignedEmail:  m.AssignedEmail,
		AssignedAt:     m.AssignedAt,
	}
}
