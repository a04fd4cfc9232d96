package inventory

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/systechdigital/redemption-platform/pkg/common/models"
	"github.com/systechdigital/redemption-platform/pkg/fulfillment"
	"gorm.io/gorm"
)

// SalesRepository is the Postgres proof-of-purchase ledger. It satisfies
// fulfillment.SalesStore.
type SalesRepository struct {
	db *gorm.DB
}

func NewSalesRepository(db *gorm.DB) *SalesRepository {
	return &SalesRepository{db: db}
}

func (r *SalesRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&SalesRecordModel{})
}

func (r *SalesRepository) FindExact(ctx context.Context, code string) (models.SalesRecord, error) {
	var row SalesRecordModel
	err := r.db.WithContext(ctx).Where("activation_code = ?", code).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.SalesRecord{}, fulfillment.ErrCodeNotFound
	}
	if err != nil {
		return models.SalesRecord{}, err
	}
	return mapSalesModel(row), nil
}

func (r *SalesRepository) FindFold(ctx context.Context, code string) (models.SalesRecord, error) {
	var row SalesRecordModel
	err := r.db.WithContext(ctx).Where("UPPER(activation_code) = ?", strings.ToUpper(code)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.SalesRecord{}, fulfillment.ErrCodeNotFound
	}
	if err != nil {
		return models.SalesRecord{}, err
	}
	return mapSalesModel(row), nil
}

func (r *SalesRepository) All(ctx context.Context) ([]models.SalesRecord, error) {
	var rows []SalesRecordModel
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.SalesRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapSalesModel(row))
	}
	return out, nil
}

// Claim flips available -> claimed with a status-equality guard, never
// read-then-write. RowsAffected == 0 means another claimant got there first.
func (r *SalesRepository) Claim(ctx context.Context, code, email string) (bool, error) {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&SalesRecordModel{}).
		Where("activation_code = ? AND status = ?", code, string(models.SalesAvailable)).
		Updates(map[string]interface{}{
			"status":     string(models.SalesClaimed),
			"claimed_by": email,
			"claimed_at": now,
			"updated_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *SalesRepository) Release(ctx context.Context, code string) error {
	res := r.db.WithContext(ctx).Model(&SalesRecordModel{}).
		Where("activation_code = ? AND status = ?", code, string(models.SalesClaimed)).
		Updates(map[string]interface{}{
			"status":     string(models.SalesAvailable),
			"claimed_by": "",
			"claimed_at": nil,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fulfillment.ErrCodeNotFound
	}
	return nil
}

func (r *SalesRepository) List(ctx context.Context, limit, offset int) ([]models.SalesRecord, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&SalesRecordModel{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []SalesRecordModel
	if err := r.db.WithContext(ctx).Order("id").Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]models.SalesRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapSalesModel(row))
	}
	return out, total, nil
}

// ReplaceAll wholesale-replaces the ledger inside one transaction, the bulk
// import contract.
func (r *SalesRepository) ReplaceAll(ctx context.Context, records []models.SalesRecord) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&SalesRecordModel{}).Error; err != nil {
			return err
		}
		now := time.Now().UTC()
		for _, rec := range records {
			row := SalesRecordModel{
				ActivationCode:     rec.ActivationCode,
				Product:            rec.Product,
				ProductSubCategory: rec.ProductSubCategory,
				Status:             string(models.SalesAvailable),
				CreatedAt:          now,
				UpdatedAt:          now,
			}
			if rec.Status == models.SalesClaimed {
				row.Status = string(models.SalesClaimed)
				row.ClaimedBy = rec.ClaimedBy
				row.ClaimedAt = rec.ClaimedAt
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// KeyRepository is the Postgres key inventory. It satisfies
// fulfillment.KeyStore.
type KeyRepository struct {
	db *gorm.DB
}

func NewKeyRepository(db *gorm.DB) *KeyRepository {
	return &KeyRepository{db: db}
}

func (r *KeyRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&KeyModel{})
}

// Reserve selects a candidate and compare-and-swaps its status. Losing the
// swap to a concurrent caller just means picking the next candidate; after
// a few straight losses the contention is reported as retryable rather than
// spinning.
func (r *KeyRepository) Reserve(ctx context.Context, product, email string) (models.Key, error) {
	const maxAttempts = 5

	for attempt := 0; attempt < maxAttempts; attempt++ {
		var row KeyModel
		q := r.db.WithContext(ctx).Where("status = ?", string(models.KeyAvailable))
		if product != "" {
			// Product names come from two separately imported sheets whose
			// casing is not coordinated; compare case-insensitively.
			q = q.Where("UPPER(product) = UPPER(?)", product)
		}
		err := q.Order("created_at").First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Key{}, fulfillment.ErrExhausted
		}
		if err != nil {
			return models.Key{}, err
		}

		now := time.Now().UTC()
		res := r.db.WithContext(ctx).Model(&KeyModel{}).
			Where("id = ? AND status = ?", row.ID, string(models.KeyAvailable)).
			Updates(map[string]interface{}{
				"status":         string(models.KeyAssigned),
				"assigned_email": email,
				"assigned_at":    now,
				"updated_at":     now,
			})
		if res.Error != nil {
			return models.Key{}, res.Error
		}
		if res.RowsAffected == 1 {
			row.Status = string(models.KeyAssigned)
			row.AssignedEmail = email
			row.AssignedAt = &now
			return mapKeyModel(row), nil
		}
		// Another caller won this key; try the next one.
	}

	return models.Key{}, errors.New("key reservation contention, giving up after retries")
}

func (r *KeyRepository) Release(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&KeyModel{}).
		Where("id = ? AND status = ?", id, string(models.KeyAssigned)).
		Updates(map[string]interface{}{
			"status":         string(models.KeyAvailable),
			"assigned_email": "",
			"assigned_at":    nil,
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("key not found or not assigned")
	}
	return nil
}

func (r *KeyRepository) CountAvailable(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&KeyModel{}).
		Where("status = ?", string(models.KeyAvailable)).Count(&count).Error
	return count, err
}

func (r *KeyRepository) List(ctx context.Context, limit, offset int) ([]models.Key, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&KeyModel{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []KeyModel
	if err := r.db.WithContext(ctx).Order("created_at").Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]models.Key, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapKeyModel(row))
	}
	return out, total, nil
}

func (r *KeyRepository) ReplaceAll(ctx context.Context, keys []models.Key) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&KeyModel{}).Error; err != nil {
			return err
		}
		now := time.Now().UTC()
		for _, k := range keys {
			row := KeyModel{
				ID:             k.ID,
				ActivationCode: k.ActivationCode,
				Product:        k.Product,
				Status:         string(models.KeyAvailable),
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			if row.ID == "" {
				row.ID = uuid.New().String()
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
