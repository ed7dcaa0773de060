package models

import "time"

// RechargeIdentifier records a payment proof token; identifiers are globally unique.
type RechargeIdentifier struct {
	Identifier string    `db:"identifier" json:"identifier"`
	RechargeID string    `db:"recharge_id" json:"recharge_id"`
	CreatedBy  string    `db:"created_by" json:"created_by"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
