package claims

import (
	"time"

	"github.com/systechdigital/redemption-platform/pkg/common/models"
	"gorm.io/datatypes"
)

type ClaimModel struct {
	ClaimID        string `gorm:"type:uuid;primaryKey"`
	Name           string
	Email          string `gorm:"index;not null"`
	Phone          string
	ActivationCode string `gorm:"index;not null"`
	PaymentStatus  string `gorm:"index;not null;default:pending"`
	OTTStatus      string `gorm:"index;not null;default:not_started"`
	OTTCode        string
	Platform       string
	PaymentOrderID string `gorm:"uniqueIndex"`
	PaymentID      string
	AmountPaise    int64
	Metadata       datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (ClaimModel) TableName() string {
	return "claims"
}

func mapClaimModel(m ClaimModel) models.Claim {
	return models.Claim{
		ClaimID:        m.ClaimID,
		Name:           m.Name,
		Email:          m.Email,
		Phone:          m.Phone,
		ActivationCode: m.ActivationCode,
		PaymentStatus:  models.ClaimPaymentStatus(m.PaymentStatus),
		OTTStatus:      models.ClaimOTTStatus(m.OTTStatus),
		OTTCode:        m.OTTCode,
		Platform:       m.Platform,
		PaymentOrderID: m.PaymentOrderID,
		PaymentID:      m.PaymentID,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}
