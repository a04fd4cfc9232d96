package claims

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/systechdigital/redemption-platform/pkg/common/models"
	"github.com/systechdigital/redemption-platform/pkg/fulfillment"
	"gorm.io/gorm"
)

var ErrOrderNotFound = errors.New("no claim for payment order")

// Repository is the Postgres claims collection. It satisfies
// fulfillment.ClaimStore.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&ClaimModel{})
}

type CreateClaimInput struct {
	ClaimID        string
	Name           string
	Email          string
	Phone          string
	ActivationCode string
	PaymentOrderID string
	AmountPaise    int64
	Metadata       map[string]interface{}
}

func (r *Repository) Create(ctx context.Context, input CreateClaimInput) (models.Claim, error) {
	now := time.Now().UTC()
	row := ClaimModel{
		ClaimID:        input.ClaimID,
		Name:           strings.TrimSpace(input.Name),
		Email:          strings.ToLower(strings.TrimSpace(input.Email)),
		Phone:          strings.TrimSpace(input.Phone),
		ActivationCode: strings.TrimSpace(input.ActivationCode),
		PaymentStatus:  string(models.PaymentPending),
		OTTStatus:      string(models.OTTNotStarted),
		PaymentOrderID: input.PaymentOrderID,
		AmountPaise:    input.AmountPaise,
		Metadata:       input.Metadata,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.Claim{}, err
	}
	return mapClaimModel(row), nil
}

func (r *Repository) Get(ctx context.Context, claimID string) (models.Claim, error) {
	var row ClaimModel
	err := r.db.WithContext(ctx).First(&row, "claim_id = ?", claimID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Claim{}, fulfillment.ErrClaimNotFound
	}
	if err != nil {
		return models.Claim{}, err
	}
	return mapClaimModel(row), nil
}

func (r *Repository) GetByOrderID(ctx context.Context, orderID string) (models.Claim, error) {
	var row ClaimModel
	err := r.db.WithContext(ctx).First(&row, "payment_order_id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Claim{}, ErrOrderNotFound
	}
	if err != nil {
		return models.Claim{}, err
	}
	return mapClaimModel(row), nil
}

// MarkPaid records payment verification and arms the claim for the next
// sweep. The status guard makes a replayed webhook a no-op.
func (r *Repository) MarkPaid(ctx context.Context, claimID, paymentID string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&ClaimModel{}).
		Where("claim_id = ? AND payment_status = ?", claimID, string(models.PaymentPending)).
		Updates(map[string]interface{}{
			"payment_status": string(models.PaymentPaid),
			"ott_status":     string(models.OTTPending),
			"payment_id":     paymentID,
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *Repository) MarkPaymentFailed(ctx context.Context, claimID string) error {
	return r.db.WithContext(ctx).Model(&ClaimModel{}).
		Where("claim_id = ? AND payment_status = ?", claimID, string(models.PaymentPending)).
		Updates(map[string]interface{}{
			"payment_status": string(models.PaymentFailed),
			"updated_at":     time.Now().UTC(),
		}).Error
}

// ListEligible implements the sweep selection predicate.
func (r *Repository) ListEligible(ctx context.Context, limit int) ([]models.Claim, error) {
	var rows []ClaimModel
	err := r.db.WithContext(ctx).
		Where("payment_status = ?", string(models.PaymentPaid)).
		Where("ott_status IN ?", []string{string(models.OTTPending), string(models.OTTCodeNotFound)}).
		Order("created_at").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]models.Claim, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapClaimModel(row))
	}
	return out, nil
}

func (r *Repository) SetStatus(ctx context.Context, claimID string, status models.ClaimOTTStatus) error {
	res := r.db.WithContext(ctx).Model(&ClaimModel{}).
		Where("claim_id = ?", claimID).
		Updates(map[string]interface{}{
			"ott_status": string(status),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fulfillment.ErrClaimNotFound
	}
	return nil
}

func (r *Repository) MarkDelivered(ctx context.Context, claimID, ottCode, platform string) error {
	res := r.db.WithContext(ctx).Model(&ClaimModel{}).
		Where("claim_id = ?", claimID).
		Updates(map[string]interface{}{
			"ott_status": string(models.OTTDelivered),
			"ott_code":   ottCode,
			"platform":   platform,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fulfillment.ErrClaimNotFound
	}
	return nil
}

type ListFilter struct {
	PaymentStatus string
	OTTStatus     string
	Email         string
	Limit         int
	Offset        int
}

func (r *Repository) List(ctx context.Context, filter ListFilter) ([]models.Claim, int64, error) {
	q := r.db.WithContext(ctx).Model(&ClaimModel{})
	if filter.PaymentStatus != "" {
		q = q.Where("payment_status = ?", filter.PaymentStatus)
	}
	if filter.OTTStatus != "" {
		q = q.Where("ott_status = ?", filter.OTTStatus)
	}
	if filter.Email != "" {
		q = q.Where("email = ?", strings.ToLower(strings.TrimSpace(filter.Email)))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var rows []ClaimModel
	if err := q.Order("created_at DESC").Limit(limit).Offset(filter.Offset).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]models.Claim, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapClaimModel(row))
	}
	return out, total, nil
}

// Delete removes a claim. Explicit admin action only; the orchestrator never
// deletes.
func (r *Repository) Delete(ctx context.Context, claimID string) error {
	res := r.db.WithContext(ctx).Delete(&ClaimModel{}, "claim_id = ?", claimID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fulfillment.ErrClaimNotFound
	}
	return nil
}
