package admin

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/systechdigital/redemption-platform/pkg/admin/auth"
	"github.com/systechdigital/redemption-platform/pkg/claims"
	"github.com/systechdigital/redemption-platform/pkg/common/logger"
	"github.com/systechdigital/redemption-platform/pkg/common/models"
	"github.com/systechdigital/redemption-platform/pkg/inventory"
	"github.com/systechdigital/redemption-platform/pkg/notifier"
	"github.com/systechdigital/redemption-platform/pkg/observability/metrics"
)

type Service struct {
	credentials *auth.CredentialChecker
	jwt         *auth.JWTManager

	claims        *claims.Repository
	sales         *inventory.SalesRepository
	keys          *inventory.KeyRepository
	notifications *notifier.LogRepository
}

func NewService(credentials *auth.CredentialChecker, jwt *auth.JWTManager, claimRepo *claims.Repository, sales *inventory.SalesRepository, keys *inventory.KeyRepository, notifications *notifier.LogRepository) *Service {
	return &Service{
		credentials:   credentials,
		jwt:           jwt,
		claims:        claimRepo,
		sales:         sales,
		keys:          keys,
		notifications: notifications,
	}
}

func (s *Service) Login(email, password string) (models.LoginResponse, error) {
	if err := s.credentials.Verify(email, password); err != nil {
		return models.LoginResponse{}, err
	}
	return s.issueToken(email)
}

// issueToken is shared by password login and the OIDC callback.
func (s *Service) issueToken(email string) (models.LoginResponse, error) {
	token, expiresAt, err := s.jwt.IssueToken(email)
	if err != nil {
		return models.LoginResponse{}, fmt.Errorf("issuing token: %w", err)
	}
	return models.LoginResponse{Token: token, ExpiresAt: expiresAt}, nil
}

// ImportSales replaces the proof-of-purchase ledger with the uploaded sheet.
func (s *Service) ImportSales(ctx context.Context, sheet io.Reader) (models.ImportResult, error) {
	records, err := inventory.ParseSalesCSV(sheet)
	if err != nil {
		return models.ImportResult{}, err
	}
	if err := s.sales.ReplaceAll(ctx, records); err != nil {
		return models.ImportResult{}, fmt.Errorf("replacing sales records: %w", err)
	}
	logger.Log.WithField("count", len(records)).Info("sales ledger imported")
	return models.ImportResult{Success: true, Count: len(records)}, nil
}

// ImportKeys replaces the key inventory with the uploaded sheet.
func (s *Service) ImportKeys(ctx context.Context, sheet io.Reader) (models.ImportResult, error) {
	keys, err := inventory.ParseKeysCSV(sheet)
	if err != nil {
		return models.ImportResult{}, err
	}
	if err := s.keys.ReplaceAll(ctx, keys); err != nil {
		return models.ImportResult{}, fmt.Errorf("replacing keys: %w", err)
	}

	if available, err := s.keys.CountAvailable(ctx); err == nil {
		metrics.ObserveKeysAvailable(available)
	}
	logger.Log.WithField("count", len(keys)).Info("key inventory imported")
	return models.ImportResult{Success: true, Count: len(keys)}, nil
}

func (s *Service) ListClaims(ctx context.Context, filter claims.ListFilter) ([]models.Claim, int64, error) {
	return s.claims.List(ctx, filter)
}

func (s *Service) DeleteClaim(ctx context.Context, claimID string) error {
	return s.claims.Delete(ctx, claimID)
}

func (s *Service) ListSales(ctx context.Context, limit, offset int) ([]models.SalesRecord, int64, error) {
	return s.sales.List(ctx, limit, offset)
}

func (s *Service) ListKeys(ctx context.Context, limit, offset int) ([]models.Key, int64, error) {
	return s.keys.List(ctx, limit, offset)
}

func (s *Service) ListNotifications(ctx context.Context, limit int) ([]notifier.NotificationLogModel, error) {
	return s.notifications.ListRecent(ctx, limit)
}

// ExportClaims streams the full claim ledger as CSV for offline reporting.
func (s *Service) ExportClaims(ctx context.Context, w io.Writer) error {
	writer := csv.NewWriter(w)
	header := []string{"claim_id", "name", "email", "phone", "activation_code", "payment_status", "ott_status", "ott_code", "platform", "payment_order_id", "created_at"}
	if err := writer.Write(header); err != nil {
		return err
	}

	const pageSize = 500
	for offset := 0; ; offset += pageSize {
		page, _, err := s.claims.List(ctx, claims.ListFilter{Limit: pageSize, Offset: offset})
		if err != nil {
			return fmt.Errorf("listing claims: %w", err)
		}
		if len(page) == 0 {
			break
		}
		for _, c := range page {
			record := []string{
				c.ClaimID,
				c.Name,
				c.Email,
				c.Phone,
				c.ActivationCode,
				string(c.PaymentStatus),
				string(c.OTTStatus),
				c.OTTCode,
				c.Platform,
				c.PaymentOrderID,
				c.CreatedAt.Format(time.RFC3339),
			}
			if err := writer.Write(record); err != nil {
				return err
			}
		}
		if len(page) < pageSize {
			break
		}
	}

	writer.Flush()
	return writer.Error()
}

type DashboardStats struct {
	TotalClaims   int64 `json:"total_claims"`
	PaidClaims    int64 `json:"paid_claims"`
	Delivered     int64 `json:"delivered"`
	KeysAvailable int64 `json:"keys_available"`
	SalesRecords  int64 `json:"sales_records"`
}

func (s *Service) Dashboard(ctx context.Context) (DashboardStats, error) {
	var stats DashboardStats

	_, total, err := s.claims.List(ctx, claims.ListFilter{Limit: 1})
	if err != nil {
		return stats, err
	}
	stats.TotalClaims = total

	_, paid, err := s.claims.List(ctx, claims.ListFilter{PaymentStatus: string(models.PaymentPaid), Limit: 1})
	if err != nil {
		return stats, err
	}
	stats.PaidClaims = paid

	_, delivered, err := s.claims.List(ctx, claims.ListFilter{OTTStatus: string(models.OTTDelivered), Limit: 1})
	if err != nil {
		return stats, err
	}
	stats.Delivered = delivered

	stats.KeysAvailable, err = s.keys.CountAvailable(ctx)
	if err != nil {
		return stats, err
	}

	_, salesTotal, err := s.sales.List(ctx, 1, 0)
	if err != nil {
		return stats, err
	}
	stats.SalesRecords = salesTotal

	return stats, nil
}

func parsePositive(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
