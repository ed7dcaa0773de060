package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/therafiali/internal-app-sub000/internal/models"
)

const rechargeColumns = `amount, bonus_amount, promo_code, game_platform, game_username, payment_method,
screenshot_url, identifier, reject_reason, assigned_redeem_id, deposit_status, dispute_reason`

// RechargeRepository persists deposit requests.
type RechargeRepository struct {
	store requestStore
}

// NewRechargeRepository constructs the repository.
func NewRechargeRepository(db *sqlx.DB) *RechargeRepository {
	return &RechargeRepository{store: requestStore{
		db:      db,
		table:   models.RequestTypeRecharge.Table(),
		columns: rechargeColumns,
		mutable: columnSet("notes", "bonus_amount", "screenshot_url", "identifier", "reject_reason",
			"assigned_redeem_id", "deposit_status", "dispute_reason"),
	}}
}

// Create inserts a recharge. The database assigns display_id and timestamps.
func (r *RechargeRepository) Create(ctx context.Context, rec *models.Recharge) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Status == "" {
		rec.Status = models.RechargePending
	}
	if rec.DepositStatus == "" {
		rec.DepositStatus = models.DepositPending
	}
	rec.ProcessingState = models.IdleState()

	const query = `INSERT INTO recharge_requests
	(id, vip_code, player_name, messenger_id, team_code, status, created_by, notes, processing_status, processing_modal,
	 amount, bonus_amount, promo_code, game_platform, game_username, payment_method, deposit_status)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	RETURNING display_id, created_at, updated_at`
	err := conn(ctx, r.store.db).QueryRowxContext(ctx, query,
		rec.ID, rec.VIPCode, rec.PlayerName, rec.MessengerID, rec.TeamCode, rec.Status, rec.CreatedBy, rec.Notes,
		rec.ProcessingState.Status, rec.ProcessingState.Modal,
		rec.Amount, rec.BonusAmount, rec.PromoCode, rec.GamePlatform, rec.GameUsername, rec.PaymentMethod, rec.DepositStatus,
	).Scan(&rec.DisplayID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create recharge: %w", err)
	}
	return nil
}

// GetByID fetches a recharge.
func (r *RechargeRepository) GetByID(ctx context.Context, id string) (*models.Recharge, error) {
	var rec models.Recharge
	if err := r.store.get(ctx, &rec, id, false); err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetForUpdate fetches a recharge and row-locks it for the current transaction.
func (r *RechargeRepository) GetForUpdate(ctx context.Context, id string) (*models.Recharge, error) {
	var rec models.Recharge
	if err := r.store.get(ctx, &rec, id, true); err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns recharges visible under filter, newest first, with the total count.
func (r *RechargeRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.Recharge, int, error) {
	var recs []models.Recharge
	total, err := r.store.list(ctx, &recs, filter)
	if err != nil {
		return nil, 0, err
	}
	return recs, total, nil
}

// UpdateStatus applies a guarded status transition.
func (r *RechargeRepository) UpdateStatus(ctx context.Context, u StatusUpdate) error {
	return r.store.updateStatus(ctx, u)
}
