package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// GameLimits maps a game platform to the amount redeemed on it in the current window.
type GameLimits map[string]decimal.Decimal

// Value implements driver.Valuer (JSONB column).
func (g GameLimits) Value() (driver.Value, error) {
	if g == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]decimal.Decimal(g))
}

// Scan implements sql.Scanner.
func (g *GameLimits) Scan(src interface{}) error {
	return scanJSON(src, g)
}

// Player is the subject of requests, keyed by VIP code.
type Player struct {
	VIPCode       string          `db:"vip_code" json:"vip_code"`
	PlayerName    string          `db:"player_name" json:"player_name"`
	MessengerID   *string         `db:"messenger_id" json:"messenger_id,omitempty"`
	TeamCode      string          `db:"team_code" json:"team_code"`
	Banned        bool            `db:"banned" json:"banned"`
	BannedAt      *time.Time      `db:"banned_at" json:"banned_at,omitempty"`
	BanReason     *string         `db:"ban_reason" json:"ban_reason,omitempty"`
	TotalRedeemed decimal.Decimal `db:"total_redeemed" json:"total_redeemed"`
	GameLimits    GameLimits      `db:"game_limits" json:"game_limits"`
	LastResetTime *time.Time      `db:"last_reset_time" json:"last_reset_time,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}
