package dto

import (
	"github.com/shopspring/decimal"

	"github.com/therafiali/internal-app-sub000/internal/models"
)

// CreateRechargeRequest registers a deposit.
type CreateRechargeRequest struct {
	PlayerRef
	Amount        decimal.Decimal      `json:"amount" validate:"gt=0,lte=100000"`
	PromoCode     string               `json:"promo_code" validate:"omitempty,max=32"`
	GamePlatform  string               `json:"game_platform" validate:"required,max=64"`
	GameUsername  string               `json:"game_username" validate:"required,max=64"`
	PaymentMethod models.PaymentMethod `json:"payment_method"`
	Notes         string               `json:"notes" validate:"omitempty,max=1000"`
}

// AssignRechargeRequest moves a recharge to assigned, optionally against a redeem.
type AssignRechargeRequest struct {
	RedeemID string `json:"redeem_id" validate:"omitempty,uuid"`
	Notes    string `json:"notes" validate:"omitempty,max=1000"`
}

// ProcessRechargeRequest verifies the deposit with a unique proof identifier.
type ProcessRechargeRequest struct {
	Identifier string `json:"identifier" validate:"required,min=3,max=128"`
	Notes      string `json:"notes" validate:"omitempty,max=1000"`
}

// RejectRechargeRequest rejects a submitted screenshot.
type RejectRechargeRequest struct {
	Reason models.RejectReason `json:"reason" validate:"required,oneof=amount_mismatch invalid_screenshot duplicate_screenshot payment_not_received wrong_recipient other"`
	Notes  string              `json:"notes" validate:"required,max=1000"`
}

// ResolveDisputeRequest closes a dispute.
type ResolveDisputeRequest struct {
	Outcome models.DisputeOutcome `json:"outcome" validate:"required,oneof=verified completed ban"`
	Notes   string                `json:"notes" validate:"omitempty,max=1000"`
}

// ScreenshotUpload describes a stored proof image.
type ScreenshotUpload struct {
	Filename    string
	ContentType string
	Size        int64
}

// RechargeView is the list/detail shape of a recharge.
type RechargeView struct {
	*models.Recharge
	Elapsed string `json:"elapsed"`
}
