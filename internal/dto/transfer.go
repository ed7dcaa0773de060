package dto

import (
	"github.com/shopspring/decimal"

	"github.com/therafiali/internal-app-sub000/internal/models"
)

// CreateTransferRequest moves balance between game accounts.
type CreateTransferRequest struct {
	PlayerRef
	Amount       decimal.Decimal `json:"amount" validate:"gt=0"`
	FromPlatform string          `json:"from_platform" validate:"required,max=64"`
	FromUsername string          `json:"from_username" validate:"required,max=64"`
	ToPlatform   string          `json:"to_platform" validate:"required,max=64"`
	ToUsername   string          `json:"to_username" validate:"required,max=64"`
	Notes        string          `json:"notes" validate:"omitempty,max=1000"`
}

// TransferView is the list/detail shape of a transfer.
type TransferView struct {
	*models.Transfer
	Elapsed string `json:"elapsed"`
}
