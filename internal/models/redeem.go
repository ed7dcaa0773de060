package models

import (
	"github.com/shopspring/decimal"
)

// RedeemStatus is the redeem lifecycle.
type RedeemStatus string

const (
	RedeemPending             RedeemStatus = "pending"
	RedeemVerificationPending RedeemStatus = "verification_pending"
	RedeemVerificationFailed  RedeemStatus = "verification_failed"
	RedeemQueued              RedeemStatus = "queued"
	RedeemQueuedPartiallyPaid RedeemStatus = "queued_partially_paid"
	RedeemCompleted           RedeemStatus = "completed"
	RedeemRejected            RedeemStatus = "rejected"
	RedeemCancelled           RedeemStatus = "cancel"
)

// RedeemAction is an operator action on a redeem.
type RedeemAction string

const (
	RedeemActionApprove            RedeemAction = "approve"
	RedeemActionSendToVerification RedeemAction = "send_to_verification"
	RedeemActionVerify             RedeemAction = "verify"
	RedeemActionFailVerification   RedeemAction = "fail_verification"
	RedeemActionPay                RedeemAction = "pay"
	RedeemActionReject             RedeemAction = "reject"
	RedeemActionCancel             RedeemAction = "cancel"
)

// Redeem is a withdrawal request paid down by assigned recharges.
type Redeem struct {
	RequestBase
	Status            RedeemStatus    `db:"status" json:"status"`
	TotalAmount       decimal.Decimal `db:"total_amount" json:"total_amount"`
	AmountPaid        decimal.Decimal `db:"amount_paid" json:"amount_paid"`
	AmountHold        decimal.Decimal `db:"amount_hold" json:"amount_hold"`
	GamePlatform      string          `db:"game_platform" json:"game_platform"`
	GameUsername      string          `db:"game_username" json:"game_username"`
	PaymentMethods    PaymentMethods  `db:"payment_methods" json:"payment_methods"`
	VerificationNotes *string         `db:"verification_notes" json:"verification_notes,omitempty"`
}

// Type implements Request.
func (r *Redeem) Type() RequestType { return RequestTypeRedeem }

// CurrentStatus implements Request.
func (r *Redeem) CurrentStatus() string { return string(r.Status) }

// Remaining is the amount neither paid nor reserved.
func (r *Redeem) Remaining() decimal.Decimal {
	return r.TotalAmount.Sub(r.AmountPaid).Sub(r.AmountHold)
}
