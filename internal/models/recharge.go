package models

import (
	"github.com/shopspring/decimal"
)

// RechargeStatus is the recharge lifecycle.
type RechargeStatus string

const (
	RechargePending     RechargeStatus = "pending"
	RechargeAssigned    RechargeStatus = "assigned"
	RechargeSCSubmitted RechargeStatus = "sc_submitted"
	RechargeSCProcessed RechargeStatus = "sc_processed"
	RechargeSCRejected  RechargeStatus = "sc_rejected"
	RechargeDisputed    RechargeStatus = "disputed"
	RechargeCompleted   RechargeStatus = "completed"
	RechargeVerified    RechargeStatus = "verified"
	RechargeCancelled   RechargeStatus = "cancel"
)

// RechargeAction is an operator action on a recharge.
type RechargeAction string

const (
	RechargeActionAssign           RechargeAction = "assign"
	RechargeActionSubmitScreenshot RechargeAction = "submit_screenshot"
	RechargeActionProcess          RechargeAction = "process"
	RechargeActionReject           RechargeAction = "reject"
	RechargeActionComplete         RechargeAction = "complete"
	RechargeActionDispute          RechargeAction = "dispute"
	RechargeActionResolve          RechargeAction = "resolve"
	RechargeActionCancel           RechargeAction = "cancel"
)

// RejectReason is the closed set of screenshot rejection reasons.
type RejectReason string

const (
	RejectAmountMismatch      RejectReason = "amount_mismatch"
	RejectInvalidScreenshot   RejectReason = "invalid_screenshot"
	RejectDuplicateScreenshot RejectReason = "duplicate_screenshot"
	RejectPaymentNotReceived  RejectReason = "payment_not_received"
	RejectWrongRecipient      RejectReason = "wrong_recipient"
	RejectOther               RejectReason = "other"
)

// DisputeOutcome decides how a disputed recharge resolves.
type DisputeOutcome string

const (
	OutcomeVerified  DisputeOutcome = "verified"
	OutcomeCompleted DisputeOutcome = "completed"
	OutcomeBan       DisputeOutcome = "ban"
)

// DepositStatus mirrors the payment transaction attached to a recharge.
type DepositStatus string

const (
	DepositPending   DepositStatus = "pending"
	DepositDeposited DepositStatus = "deposited"
)

// Recharge is a deposit request.
type Recharge struct {
	RequestBase
	Status           RechargeStatus  `db:"status" json:"status"`
	Amount           decimal.Decimal `db:"amount" json:"amount"`
	BonusAmount      decimal.Decimal `db:"bonus_amount" json:"bonus_amount"`
	PromoCode        *string         `db:"promo_code" json:"promo_code,omitempty"`
	GamePlatform     string          `db:"game_platform" json:"game_platform"`
	GameUsername     string          `db:"game_username" json:"game_username"`
	PaymentMethod    PaymentMethod   `db:"payment_method" json:"payment_method"`
	ScreenshotURL    *string         `db:"screenshot_url" json:"screenshot_url,omitempty"`
	Identifier       *string         `db:"identifier" json:"identifier,omitempty"`
	RejectReason     *RejectReason   `db:"reject_reason" json:"reject_reason,omitempty"`
	AssignedRedeemID *string         `db:"assigned_redeem_id" json:"assigned_redeem_id,omitempty"`
	DepositStatus    DepositStatus   `db:"deposit_status" json:"deposit_status"`
	DisputeReason    *string         `db:"dispute_reason" json:"dispute_reason,omitempty"`
}

// Type implements Request.
func (r *Recharge) Type() RequestType { return RequestTypeRecharge }

// CurrentStatus implements Request.
func (r *Recharge) CurrentStatus() string { return string(r.Status) }

// Total is the amount credited to the game account.
func (r *Recharge) Total() decimal.Decimal { return r.Amount.Add(r.BonusAmount) }
