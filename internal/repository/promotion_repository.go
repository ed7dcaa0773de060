package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/therafiali/internal-app-sub000/internal/models"
)

// PromotionRepository reads promotion reference data.
type PromotionRepository struct {
	db *sqlx.DB
}

// NewPromotionRepository constructs the repository.
func NewPromotionRepository(db *sqlx.DB) *PromotionRepository {
	return &PromotionRepository{db: db}
}

// ListActive returns every active promotion ordered by code.
func (r *PromotionRepository) ListActive(ctx context.Context) ([]models.Promotion, error) {
	const query = `SELECT id, code, type, value, team_codes, active, created_at FROM promotions WHERE active = TRUE ORDER BY code`
	var promos []models.Promotion
	if err := conn(ctx, r.db).SelectContext(ctx, &promos, query); err != nil {
		return nil, fmt.Errorf("list promotions: %w", err)
	}
	return promos, nil
}

// FindByCode returns a promotion by its case-insensitive code.
func (r *PromotionRepository) FindByCode(ctx context.Context, code string) (*models.Promotion, error) {
	const query = `SELECT id, code, type, value, team_codes, active, created_at FROM promotions WHERE UPPER(code) = UPPER($1) LIMIT 1`
	var promo models.Promotion
	if err := conn(ctx, r.db).GetContext(ctx, &promo, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find promotion: %w", err)
	}
	return &promo, nil
}
