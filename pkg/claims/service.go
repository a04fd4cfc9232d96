package claims

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/systechdigital/redemption-platform/pkg/common/logger"
	"github.com/systechdigital/redemption-platform/pkg/common/models"
	"github.com/systechdigital/redemption-platform/pkg/observability/metrics"
	"github.com/systechdigital/redemption-platform/pkg/otp"
	"github.com/systechdigital/redemption-platform/pkg/payments"
)

var (
	ErrInvalidInput     = errors.New("invalid claim input")
	ErrOTPRequired      = errors.New("otp verification failed")
	ErrInvalidSignature = errors.New("payment signature verification failed")
)

type Notifier interface {
	Send(ctx context.Context, to string, template string, data map[string]interface{}) error
}

type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

type Service struct {
	repo      *Repository
	gateway   *payments.Client
	otp       *otp.Service
	notifier  Notifier
	publisher EventPublisher

	feePaise   int64
	currency   string
	otpMinutes int
}

func NewService(repo *Repository, gateway *payments.Client, otpSvc *otp.Service, notifier Notifier, publisher EventPublisher, feePaise int64, currency string, otpMinutes int) *Service {
	if otpMinutes <= 0 {
		otpMinutes = 5
	}
	return &Service{
		repo:       repo,
		gateway:    gateway,
		otp:        otpSvc,
		notifier:   notifier,
		publisher:  publisher,
		feePaise:   feePaise,
		currency:   currency,
		otpMinutes: otpMinutes,
	}
}

// RequestOTP issues a verification code and mails it to the customer.
func (s *Service) RequestOTP(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}

	code, err := s.otp.Issue(ctx, email)
	if err != nil {
		return fmt.Errorf("issuing otp: %w", err)
	}

	return s.notifier.Send(ctx, email, "otp_verification", map[string]interface{}{
		"code":        code,
		"ttl_minutes": s.otpMinutes,
	})
}

// Submit validates the request, checks the OTP, opens a payment order and
// records the claim with payment pending. Fulfillment starts only after the
// gateway confirms payment.
func (s *Service) Submit(ctx context.Context, req models.SubmitClaimRequest) (models.SubmitClaimResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return models.SubmitClaimResponse{}, fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}
	if strings.TrimSpace(req.Name) == "" {
		return models.SubmitClaimResponse{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if strings.TrimSpace(req.ActivationCode) == "" {
		return models.SubmitClaimResponse{}, fmt.Errorf("%w: activation code is required", ErrInvalidInput)
	}
	if strings.TrimSpace(req.Phone) == "" {
		return models.SubmitClaimResponse{}, fmt.Errorf("%w: phone is required", ErrInvalidInput)
	}

	if err := s.otp.Verify(ctx, email, strings.TrimSpace(req.OTP)); err != nil {
		if errors.Is(err, otp.ErrTooManyAttempts) {
			return models.SubmitClaimResponse{}, fmt.Errorf("%w: %v", ErrOTPRequired, err)
		}
		return models.SubmitClaimResponse{}, fmt.Errorf("%w: code invalid or expired", ErrOTPRequired)
	}

	claimID := uuid.New().String()
	order, err := s.gateway.CreateOrder(ctx, s.feePaise, s.currency, claimID)
	if err != nil {
		return models.SubmitClaimResponse{}, fmt.Errorf("creating payment order: %w", err)
	}

	claim, err := s.repo.Create(ctx, CreateClaimInput{
		ClaimID:        claimID,
		Name:           req.Name,
		Email:          email,
		Phone:          req.Phone,
		ActivationCode: req.ActivationCode,
		PaymentOrderID: order.ID,
		AmountPaise:    order.AmountPaise,
	})
	if err != nil {
		return models.SubmitClaimResponse{}, fmt.Errorf("persisting claim: %w", err)
	}

	metrics.IncClaimsSubmitted()
	logger.Log.WithFields(map[string]interface{}{
		"claim_id": claim.ClaimID,
		"order_id": order.ID,
	}).Info("claim submitted, awaiting payment")

	return models.SubmitClaimResponse{
		ClaimID:        claim.ClaimID,
		PaymentOrderID: order.ID,
		AmountPaise:    order.AmountPaise,
		Currency:       s.currency,
	}, nil
}

// ConfirmPayment handles the checkout callback: verify the gateway
// signature, flip the claim to paid and announce it on the event bus so the
// fulfillment service picks it up immediately instead of waiting for the
// next sweep.
func (s *Service) ConfirmPayment(ctx context.Context, req models.PaymentWebhookRequest) (models.Claim, error) {
	if !s.gateway.VerifyPaymentSignature(req.OrderID, req.PaymentID, req.Signature) {
		return models.Claim{}, ErrInvalidSignature
	}

	claim, err := s.repo.GetByOrderID(ctx, req.OrderID)
	if err != nil {
		return models.Claim{}, err
	}

	updated, err := s.repo.MarkPaid(ctx, claim.ClaimID, req.PaymentID)
	if err != nil {
		return models.Claim{}, fmt.Errorf("marking claim paid: %w", err)
	}
	if !updated {
		// Replayed callback; the claim is already past pending.
		logger.Log.WithField("claim_id", claim.ClaimID).Info("payment callback replay ignored")
		return s.repo.Get(ctx, claim.ClaimID)
	}

	metrics.IncClaimsPaid()

	if s.publisher != nil {
		err := s.publisher.PublishEvent(ctx, models.EventTypePaymentVerified, "claims", map[string]interface{}{
			"claim_id": claim.ClaimID,
			"order_id": req.OrderID,
		})
		if err != nil {
			// The periodic sweep is the safety net when the bus is down.
			logger.Log.WithError(err).WithField("claim_id", claim.ClaimID).
				Warn("failed to publish payment event, claim will be picked up by the next sweep")
		}
	}

	return s.repo.Get(ctx, claim.ClaimID)
}

// Status returns the claim as the customer may see it.
func (s *Service) Status(ctx context.Context, claimID string) (models.Claim, error) {
	return s.repo.Get(ctx, claimID)
}
