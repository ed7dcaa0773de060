package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/therafiali/internal-app-sub000/internal/models"
)

const redeemColumns = `total_amount, amount_paid, amount_hold, game_platform, game_username, payment_methods, verification_notes`

// RedeemRepository persists withdrawal requests.
type RedeemRepository struct {
	store requestStore
}

// NewRedeemRepository constructs the repository.
func NewRedeemRepository(db *sqlx.DB) *RedeemRepository {
	return &RedeemRepository{store: requestStore{
		db:      db,
		table:   models.RequestTypeRedeem.Table(),
		columns: redeemColumns,
		mutable: columnSet("notes", "amount_paid", "amount_hold", "verification_notes"),
	}}
}

// Create inserts a redeem.
func (r *RedeemRepository) Create(ctx context.Context, red *models.Redeem) error {
	if red.ID == "" {
		red.ID = uuid.NewString()
	}
	if red.Status == "" {
		red.Status = models.RedeemPending
	}
	red.ProcessingState = models.IdleState()

	const query = `INSERT INTO redeem_requests
	(id, vip_code, player_name, messenger_id, team_code, status, created_by, notes, processing_status, processing_modal,
	 total_amount, amount_paid, amount_hold, game_platform, game_username, payment_methods)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	RETURNING display_id, created_at, updated_at`
	err := conn(ctx, r.store.db).QueryRowxContext(ctx, query,
		red.ID, red.VIPCode, red.PlayerName, red.MessengerID, red.TeamCode, red.Status, red.CreatedBy, red.Notes,
		red.ProcessingState.Status, red.ProcessingState.Modal,
		red.TotalAmount, red.AmountPaid, red.AmountHold, red.GamePlatform, red.GameUsername, red.PaymentMethods,
	).Scan(&red.DisplayID, &red.CreatedAt, &red.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create redeem: %w", err)
	}
	return nil
}

// GetByID fetches a redeem.
func (r *RedeemRepository) GetByID(ctx context.Context, id string) (*models.Redeem, error) {
	var red models.Redeem
	if err := r.store.get(ctx, &red, id, false); err != nil {
		return nil, err
	}
	return &red, nil
}

// GetForUpdate fetches a redeem and row-locks it for the current transaction.
func (r *RedeemRepository) GetForUpdate(ctx context.Context, id string) (*models.Redeem, error) {
	var red models.Redeem
	if err := r.store.get(ctx, &red, id, true); err != nil {
		return nil, err
	}
	return &red, nil
}

// List returns redeems visible under filter.
func (r *RedeemRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.Redeem, int, error) {
	var reds []models.Redeem
	total, err := r.store.list(ctx, &reds, filter)
	if err != nil {
		return nil, 0, err
	}
	return reds, total, nil
}

// UpdateStatus applies a guarded status transition.
func (r *RedeemRepository) UpdateStatus(ctx context.Context, u StatusUpdate) error {
	return r.store.updateStatus(ctx, u)
}

// AdjustHold moves delta into (positive) or out of (negative) amount_hold.
// The statement refuses a hold below zero or above the unpaid balance and
// reports that as ErrStale.
func (r *RedeemRepository) AdjustHold(ctx context.Context, id string, delta decimal.Decimal) error {
	const query = `UPDATE redeem_requests SET amount_hold = amount_hold + $2, updated_at = NOW()
	WHERE id = $1 AND amount_hold + $2 >= 0 AND amount_paid + amount_hold + $2 <= total_amount`
	result, err := conn(ctx, r.store.db).ExecContext(ctx, query, id, delta)
	if err != nil {
		return fmt.Errorf("adjust redeem hold: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check redeem hold rows: %w", err)
	}
	if rows == 0 {
		return ErrStale
	}
	return nil
}
