package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/therafiali/internal-app-sub000/internal/models"
)

// IdentifierRepository stores recharge proof identifiers. The identifier
// column is the primary key, so the database decides uniqueness.
type IdentifierRepository struct {
	db *sqlx.DB
}

// NewIdentifierRepository constructs the repository.
func NewIdentifierRepository(db *sqlx.DB) *IdentifierRepository {
	return &IdentifierRepository{db: db}
}

// Insert records an identifier, returning ErrDuplicate when it was used before.
func (r *IdentifierRepository) Insert(ctx context.Context, ident *models.RechargeIdentifier) error {
	if ident.CreatedAt.IsZero() {
		ident.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO recharge_identifiers (identifier, recharge_id, created_by, created_at) VALUES (:identifier, :recharge_id, :created_by, :created_at)`
	if _, err := conn(ctx, r.db).NamedExecContext(ctx, query, ident); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert identifier: %w", err)
	}
	return nil
}
