package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/therafiali/internal-app-sub000/internal/models"
)

const transferColumns = `amount, from_platform, from_username, to_platform, to_username`

// TransferRepository persists account transfer requests.
type TransferRepository struct {
	store requestStore
}

// NewTransferRepository constructs the repository.
func NewTransferRepository(db *sqlx.DB) *TransferRepository {
	return &TransferRepository{store: requestStore{
		db:      db,
		table:   models.RequestTypeTransfer.Table(),
		columns: transferColumns,
		mutable: columnSet("notes"),
	}}
}

// Create inserts a transfer.
func (r *TransferRepository) Create(ctx context.Context, tr *models.Transfer) error {
	if tr.ID == "" {
		tr.ID = uuid.NewString()
	}
	if tr.Status == "" {
		tr.Status = models.ReviewPending
	}
	tr.ProcessingState = models.IdleState()

	const query = `INSERT INTO transfer_requests
	(id, vip_code, player_name, messenger_id, team_code, status, created_by, notes, processing_status, processing_modal,
	 amount, from_platform, from_username, to_platform, to_username)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	RETURNING display_id, created_at, updated_at`
	err := conn(ctx, r.store.db).QueryRowxContext(ctx, query,
		tr.ID, tr.VIPCode, tr.PlayerName, tr.MessengerID, tr.TeamCode, tr.Status, tr.CreatedBy, tr.Notes,
		tr.ProcessingState.Status, tr.ProcessingState.Modal,
		tr.Amount, tr.FromPlatform, tr.FromUsername, tr.ToPlatform, tr.ToUsername,
	).Scan(&tr.DisplayID, &tr.CreatedAt, &tr.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create transfer: %w", err)
	}
	return nil
}

// GetByID fetches a transfer.
func (r *TransferRepository) GetByID(ctx context.Context, id string) (*models.Transfer, error) {
	var tr models.Transfer
	if err := r.store.get(ctx, &tr, id, false); err != nil {
		return nil, err
	}
	return &tr, nil
}

// List returns transfers visible under filter.
func (r *TransferRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.Transfer, int, error) {
	var trs []models.Transfer
	total, err := r.store.list(ctx, &trs, filter)
	if err != nil {
		return nil, 0, err
	}
	return trs, total, nil
}

// UpdateStatus applies a guarded status transition.
func (r *TransferRepository) UpdateStatus(ctx context.Context, u StatusUpdate) error {
	return r.store.updateStatus(ctx, u)
}
