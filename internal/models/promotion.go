package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// PromotionType controls how the bonus is computed.
type PromotionType string

const (
	PromotionFixed      PromotionType = "fixed"
	PromotionPercentage PromotionType = "percentage"
)

// Promotion is read-only reference data consumed by recharge creation.
type Promotion struct {
	ID        string          `db:"id" json:"id"`
	Code      string          `db:"code" json:"code"`
	Type      PromotionType   `db:"type" json:"type"`
	Value     decimal.Decimal `db:"value" json:"value"`
	TeamCodes pq.StringArray  `db:"team_codes" json:"team_codes"`
	Active    bool            `db:"active" json:"active"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// AppliesTo reports whether the promotion is active for team.
func (p Promotion) AppliesTo(team string) bool {
	if !p.Active {
		return false
	}
	if len(p.TeamCodes) == 0 {
		return true
	}
	for _, code := range p.TeamCodes {
		if code == team {
			return true
		}
	}
	return false
}

// Bonus computes the bonus for a recharge amount, rounded to cents.
func (p Promotion) Bonus(amount decimal.Decimal) decimal.Decimal {
	switch p.Type {
	case PromotionPercentage:
		return amount.Mul(p.Value).Div(decimal.NewFromInt(100)).Round(2)
	default:
		return p.Value.Round(2)
	}
}
