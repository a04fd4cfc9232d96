package models

import (
	"time"
)

// Claim lifecycle enums. One canonical lower-case value set per entity;
// imports and gateway callbacks are normalized into these on the way in.
type ClaimPaymentStatus string

const (
	PaymentPending ClaimPaymentStatus = "pending"
	PaymentPaid    ClaimPaymentStatus = "paid"
	PaymentFailed  ClaimPaymentStatus = "failed"
)

type ClaimOTTStatus string

const (
	OTTNotStarted     ClaimOTTStatus = "not_started"
	OTTPending        ClaimOTTStatus = "pending"
	OTTDelivered      ClaimOTTStatus = "delivered"
	OTTFailed         ClaimOTTStatus = "failed"
	OTTCodeNotFound   ClaimOTTStatus = "activation_code_not_found"
	OTTAlreadyClaimed ClaimOTTStatus = "already_claimed"
	OTTNoKeyAvailable ClaimOTTStatus = "no_key_available"
)

// Terminal reports whether no further automated transition applies.
// activation_code_not_found stays retry-eligible: a later sales import can
// make the code matchable.
func (s ClaimOTTStatus) Terminal() bool {
	switch s {
	case OTTDelivered, OTTAlreadyClaimed, OTTNoKeyAvailable:
		return true
	}
	return false
}

type SalesStatus string

const (
	SalesAvailable SalesStatus = "available"
	SalesClaimed   SalesStatus = "claimed"
)

type KeyStatus string

const (
	KeyAvailable KeyStatus = "available"
	KeyAssigned  KeyStatus = "assigned"
	KeyUsed      KeyStatus = "used"
)

// Claim is a customer's request to redeem an OTT subscription against a
// purchase. ClaimID is externally visible and unique.
type Claim struct {
	ClaimID        string             `json:"claim_id"`
	Name           string             `json:"name"`
	Email          string             `json:"email"`
	Phone          string             `json:"phone"`
	ActivationCode string             `json:"activation_code"`
	PaymentStatus  ClaimPaymentStatus `json:"payment_status"`
	OTTStatus      ClaimOTTStatus     `json:"ott_status"`
	OTTCode        string             `json:"ott_code,omitempty"`
	Platform       string             `json:"platform,omitempty"`
	PaymentOrderID string             `json:"payment_order_id,omitempty"`
	PaymentID      string             `json:"payment_id,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// Eligible reports whether the claim may enter a fulfillment sweep:
// paid, and either never attempted or retry-eligible after a missing code.
func (c Claim) Eligible() bool {
	if c.PaymentStatus != PaymentPaid {
		return false
	}
	return c.OTTStatus == OTTPending || c.OTTStatus == OTTCodeNotFound
}

// SalesRecord is one row of the proof-of-purchase ledger.
type SalesRecord struct {
	ActivationCode     string      `json:"activation_code"`
	Product            string      `json:"product"`
	ProductSubCategory string      `json:"product_sub_category,omitempty"`
	Status             SalesStatus `json:"status"`
	ClaimedBy          string      `json:"claimed_by,omitempty"`
	ClaimedAt          *time.Time  `json:"claimed_at,omitempty"`
}

// Key is a redeemable OTT credential drawn from inventory.
type Key struct {
	ID             string     `json:"id"`
	ActivationCode string     `json:"activation_code"`
	Product        string     `json:"product"`
	Status         KeyStatus  `json:"status"`
	AssignedEmail  string     `json:"assigned_email,omitempty"`
	AssignedAt     *time.Time `json:"assigned_at,omitempty"`
}

// AutomationSettings is the singleton control document for the sweep
// scheduler. IsRunning is advisory; the distributed lock is the hard guard.
type AutomationSettings struct {
	IsEnabled       bool       `json:"is_enabled"`
	IntervalMinutes int        `json:"interval_minutes"`
	NextRun         *time.Time `json:"next_run,omitempty"`
	LastRun         *time.Time `json:"last_run,omitempty"`
	TotalRuns       int64      `json:"total_runs"`
	IsRunning       bool       `json:"is_running"`
}

// AllowedSweepIntervals are the supported sweep cadences, in minutes.
var AllowedSweepIntervals = []int{1, 5, 30, 60, 360, 1440}

func ValidSweepInterval(minutes int) bool {
	for _, m := range AllowedSweepIntervals {
		if m == minutes {
			return true
		}
	}
	return false
}

// Event bus models
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

const (
	EventTypePaymentVerified   = "claim.payment.verified"
	EventTypeFulfillmentResult = "fulfillment.result"
)

// Customer API payloads
type RequestOTPRequest struct {
	Email string `json:"email"`
}

type SubmitClaimRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	ActivationCode string `json:"activation_code"`
	OTP            string `json:"otp"`
}

type SubmitClaimResponse struct {
	ClaimID        string `json:"claim_id"`
	PaymentOrderID string `json:"payment_order_id"`
	AmountPaise    int64  `json:"amount_paise"`
	Currency       string `json:"currency"`
}

type PaymentWebhookRequest struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

// Admin API payloads
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type ImportResult struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`
}

type UpdateSettingsRequest struct {
	IsEnabled       *bool `json:"is_enabled,omitempty"`
	IntervalMinutes *int  `json:"interval_minutes,omitempty"`
}
