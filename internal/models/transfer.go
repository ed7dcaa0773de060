package models

import "github.com/shopspring/decimal"

// ReviewStatus is the single-step lifecycle shared by transfers and password resets.
type ReviewStatus string

const (
	ReviewPending   ReviewStatus = "pending"
	ReviewCompleted ReviewStatus = "completed"
	ReviewRejected  ReviewStatus = "rejected"
	ReviewCancelled ReviewStatus = "cancel"
)

// ReviewAction is an operator action on a transfer or password reset.
type ReviewAction string

const (
	ReviewActionProcess ReviewAction = "process"
	ReviewActionReject  ReviewAction = "reject"
	ReviewActionCancel  ReviewAction = "cancel"
)

// Transfer moves balance between two game accounts of the same player.
type Transfer struct {
	RequestBase
	Status       ReviewStatus    `db:"status" json:"status"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	FromPlatform string          `db:"from_platform" json:"from_platform"`
	FromUsername string          `db:"from_username" json:"from_username"`
	ToPlatform   string          `db:"to_platform" json:"to_platform"`
	ToUsername   string          `db:"to_username" json:"to_username"`
}

// Type implements Request.
func (t *Transfer) Type() RequestType { return RequestTypeTransfer }

// CurrentStatus implements Request.
func (t *Transfer) CurrentStatus() string { return string(t.Status) }
