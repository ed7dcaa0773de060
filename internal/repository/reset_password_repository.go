package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/therafiali/internal-app-sub000/internal/models"
)

const resetPasswordColumns = `game_platform, game_username, suggested_username, new_password`

// PasswordResetRepository persists password reset requests.
type PasswordResetRepository struct {
	store requestStore
}

// NewPasswordResetRepository constructs the repository.
func NewPasswordResetRepository(db *sqlx.DB) *PasswordResetRepository {
	return &PasswordResetRepository{store: requestStore{
		db:      db,
		table:   models.RequestTypeResetPassword.Table(),
		columns: resetPasswordColumns,
		mutable: columnSet("notes", "new_password"),
	}}
}

// Create inserts a password reset request.
func (r *PasswordResetRepository) Create(ctx context.Context, pr *models.PasswordReset) error {
	if pr.ID == "" {
		pr.ID = uuid.NewString()
	}
	if pr.Status == "" {
		pr.Status = models.ReviewPending
	}
	pr.ProcessingState = models.IdleState()

	const query = `INSERT INTO reset_password_requests
	(id, vip_code, player_name, messenger_id, team_code, status, created_by, notes, processing_status, processing_modal,
	 game_platform, game_username, suggested_username)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	RETURNING display_id, created_at, updated_at`
	err := conn(ctx, r.store.db).QueryRowxContext(ctx, query,
		pr.ID, pr.VIPCode, pr.PlayerName, pr.MessengerID, pr.TeamCode, pr.Status, pr.CreatedBy, pr.Notes,
		pr.ProcessingState.Status, pr.ProcessingState.Modal,
		pr.GamePlatform, pr.GameUsername, pr.SuggestedUsername,
	).Scan(&pr.DisplayID, &pr.CreatedAt, &pr.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create password reset: %w", err)
	}
	return nil
}

// GetByID fetches a password reset request.
func (r *PasswordResetRepository) GetByID(ctx context.Context, id string) (*models.PasswordReset, error) {
	var pr models.PasswordReset
	if err := r.store.get(ctx, &pr, id, false); err != nil {
		return nil, err
	}
	return &pr, nil
}

// List returns password resets visible under filter.
func (r *PasswordResetRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.PasswordReset, int, error) {
	var prs []models.PasswordReset
	total, err := r.store.list(ctx, &prs, filter)
	if err != nil {
		return nil, 0, err
	}
	return prs, total, nil
}

// UpdateStatus applies a guarded status transition.
func (r *PasswordResetRepository) UpdateStatus(ctx context.Context, u StatusUpdate) error {
	return r.store.updateStatus(ctx, u)
}
