package service

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/therafiali/internal-app-sub000/internal/models"
	appErrors "github.com/therafiali/internal-app-sub000/pkg/errors"
)

// RedeemLimits caps how much a player may redeem inside the rolling window.
type RedeemLimits struct {
	DailyCap decimal.Decimal
	GameCap  decimal.Decimal
	Window   time.Duration
}

// DefaultRedeemLimits are $2000 overall and $500 per game every 24 hours.
func DefaultRedeemLimits() RedeemLimits {
	return RedeemLimits{DailyCap: decimal.NewFromInt(2000), GameCap: decimal.NewFromInt(500), Window: 24 * time.Hour}
}

// redeemCounters is the player's window after accepting a redeem.
type redeemCounters struct {
	Total     decimal.Decimal
	Games     models.GameLimits
	LastReset time.Time
}

// evaluateRedeemLimits applies amount on platform to the player's window.
// The window restarts when it is at least limits.Window old. The caller must
// hold the player row lock so the reset and the check are atomic.
func evaluateRedeemLimits(p *models.Player, platform string, amount decimal.Decimal, limits RedeemLimits, now time.Time) (redeemCounters, error) {
	if limits.Window <= 0 {
		limits.Window = 24 * time.Hour
	}

	counters := redeemCounters{Total: p.TotalRedeemed, Games: models.GameLimits{}}
	for game, used := range p.GameLimits {
		counters.Games[game] = used
	}
	if p.LastResetTime == nil || now.Sub(*p.LastResetTime) >= limits.Window {
		counters.Total = decimal.Zero
		counters.Games = models.GameLimits{}
		counters.LastReset = now
	} else {
		counters.LastReset = *p.LastResetTime
	}

	if limits.DailyCap.IsPositive() && counters.Total.Add(amount).GreaterThan(limits.DailyCap) {
		remaining := decimal.Max(limits.DailyCap.Sub(counters.Total), decimal.Zero)
		return redeemCounters{}, limitError("daily", remaining, limits.DailyCap)
	}
	used := counters.Games[platform]
	if limits.GameCap.IsPositive() && used.Add(amount).GreaterThan(limits.GameCap) {
		remaining := decimal.Max(limits.GameCap.Sub(used), decimal.Zero)
		return redeemCounters{}, limitError(platform, remaining, limits.GameCap)
	}

	counters.Total = counters.Total.Add(amount)
	counters.Games[platform] = used.Add(amount)
	return counters, nil
}

func limitError(scope string, remaining, limit decimal.Decimal) error {
	msg := fmt.Sprintf("%s redeem limit of $%s reached: remaining allowance is $%s", scope, limit.StringFixed(2), remaining.StringFixed(2))
	return appErrors.WithDetails(appErrors.Clone(appErrors.ErrLimitExceeded, msg), map[string]interface{}{
		"scope":     scope,
		"limit":     limit.StringFixed(2),
		"remaining": remaining.StringFixed(2),
	})
}
