package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/therafiali/internal-app-sub000/internal/models"
)

const playerColumns = `vip_code, player_name, messenger_id, team_code, banned, banned_at, ban_reason,
total_redeemed, game_limits, last_reset_time, created_at, updated_at`

// PlayerRepository persists players and their redeem counters.
type PlayerRepository struct {
	db *sqlx.DB
}

// NewPlayerRepository constructs the repository.
func NewPlayerRepository(db *sqlx.DB) *PlayerRepository {
	return &PlayerRepository{db: db}
}

// ErrPlayerTeamMismatch is returned by Ensure when the player is registered under another team.
var ErrPlayerTeamMismatch = errors.New("repository: player belongs to another team")

// Ensure creates the player on first sight and refreshes the display fields otherwise.
// The stored team_code is never rewritten.
func (r *PlayerRepository) Ensure(ctx context.Context, p *models.Player) error {
	const query = `INSERT INTO players (vip_code, player_name, messenger_id, team_code, total_redeemed, game_limits)
	VALUES ($1, $2, $3, $4, 0, '{}')
	ON CONFLICT (vip_code) DO UPDATE SET player_name = EXCLUDED.player_name,
	  messenger_id = COALESCE(EXCLUDED.messenger_id, players.messenger_id), updated_at = NOW()
	RETURNING team_code`
	var team string
	if err := conn(ctx, r.db).QueryRowxContext(ctx, query, p.VIPCode, p.PlayerName, p.MessengerID, p.TeamCode).Scan(&team); err != nil {
		return fmt.Errorf("ensure player: %w", err)
	}
	if p.TeamCode != "" && team != p.TeamCode {
		return fmt.Errorf("ensure player %s: %w", p.VIPCode, ErrPlayerTeamMismatch)
	}
	return nil
}

// FindByVIPCode loads a player.
func (r *PlayerRepository) FindByVIPCode(ctx context.Context, vipCode string) (*models.Player, error) {
	return r.find(ctx, vipCode, false)
}

// GetForUpdate loads and row-locks a player for the current transaction.
func (r *PlayerRepository) GetForUpdate(ctx context.Context, vipCode string) (*models.Player, error) {
	return r.find(ctx, vipCode, true)
}

func (r *PlayerRepository) find(ctx context.Context, vipCode string, forUpdate bool) (*models.Player, error) {
	query := "SELECT " + playerColumns + " FROM players WHERE vip_code = $1"
	if forUpdate {
		query += " FOR UPDATE"
	}
	var p models.Player
	if err := conn(ctx, r.db).GetContext(ctx, &p, query, vipCode); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find player: %w", err)
	}
	return &p, nil
}

// UpdateRedeemCounters stores the rolling redeem window.
func (r *PlayerRepository) UpdateRedeemCounters(ctx context.Context, vipCode string, total decimal.Decimal, limits models.GameLimits, lastReset time.Time) error {
	const query = `UPDATE players SET total_redeemed = $2, game_limits = $3, last_reset_time = $4, updated_at = NOW() WHERE vip_code = $1`
	if _, err := conn(ctx, r.db).ExecContext(ctx, query, vipCode, total, limits, lastReset); err != nil {
		return fmt.Errorf("update redeem counters: %w", err)
	}
	return nil
}

// Ban marks a player as banned.
func (r *PlayerRepository) Ban(ctx context.Context, vipCode, reason string, at time.Time) error {
	const query = `UPDATE players SET banned = TRUE, banned_at = $2, ban_reason = $3, updated_at = $2 WHERE vip_code = $1`
	result, err := conn(ctx, r.db).ExecContext(ctx, query, vipCode, at, reason)
	if err != nil {
		return fmt.Errorf("ban player: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check ban rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
