package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/therafiali/internal-app-sub000/internal/models"
)

// SweptLock is a lock released by Sweep.
type SweptLock struct {
	Type     models.RequestType
	ID       string `db:"id"`
	TeamCode string `db:"team_code"`
	Status   string `db:"status"`
}

// LockRepository implements the processing lock as a compare-and-set on the
// processing_* columns of every request table.
type LockRepository struct {
	db *sqlx.DB
}

// NewLockRepository constructs the repository.
func NewLockRepository(db *sqlx.DB) *LockRepository {
	return &LockRepository{db: db}
}

// TryAcquire takes the lock when the row is idle. It reports false, without
// error, when another operator got there first.
func (r *LockRepository) TryAcquire(ctx context.Context, t models.RequestType, id, operatorID string, modal models.ModalType, at time.Time) (bool, error) {
	query := fmt.Sprintf(`UPDATE %s SET processing_status = 'in_progress', processing_by = $2, processing_modal = $3, processing_locked_at = $4
	WHERE id = $1 AND processing_status = 'idle'`, t.Table())
	result, err := conn(ctx, r.db).ExecContext(ctx, query, id, operatorID, modal, at)
	if err != nil {
		return false, fmt.Errorf("acquire %s lock: %w", t, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check %s lock rows: %w", t, err)
	}
	return rows == 1, nil
}

// Renew restamps a lock still held by operatorID and switches its modal. It
// reports false when the lock was released or taken over in the meantime.
func (r *LockRepository) Renew(ctx context.Context, t models.RequestType, id, operatorID string, modal models.ModalType, at time.Time) (bool, error) {
	query := fmt.Sprintf(`UPDATE %s SET processing_locked_at = $4, processing_modal = $3
	WHERE id = $1 AND processing_status = 'in_progress' AND processing_by = $2`, t.Table())
	result, err := conn(ctx, r.db).ExecContext(ctx, query, id, operatorID, modal, at)
	if err != nil {
		return false, fmt.Errorf("renew %s lock: %w", t, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check %s lock rows: %w", t, err)
	}
	return rows == 1, nil
}

// Release resets the lock to idle regardless of holder.
func (r *LockRepository) Release(ctx context.Context, t models.RequestType, id string) error {
	query := fmt.Sprintf(`UPDATE %s SET processing_status = 'idle', processing_by = NULL, processing_modal = 'none', processing_locked_at = NULL
	WHERE id = $1`, t.Table())
	if _, err := conn(ctx, r.db).ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("release %s lock: %w", t, err)
	}
	return nil
}

// Ref loads the tenant, status and lock of a request.
func (r *LockRepository) Ref(ctx context.Context, t models.RequestType, id string) (*models.RequestRef, error) {
	query := fmt.Sprintf(`SELECT id, team_code, status, processing_status, processing_by, processing_modal, processing_locked_at
	FROM %s WHERE id = $1`, t.Table())
	var ref models.RequestRef
	if err := conn(ctx, r.db).GetContext(ctx, &ref, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("load %s ref: %w", t, err)
	}
	return &ref, nil
}

// Sweep releases every lock taken before olderThan across all request tables.
func (r *LockRepository) Sweep(ctx context.Context, olderThan time.Time) ([]SweptLock, error) {
	var released []SweptLock
	for _, t := range models.RequestTypes {
		query := fmt.Sprintf(`UPDATE %s SET processing_status = 'idle', processing_by = NULL, processing_modal = 'none', processing_locked_at = NULL
		WHERE processing_status = 'in_progress' AND processing_locked_at < $1
		RETURNING id, team_code, status`, t.Table())
		var rows []SweptLock
		if err := conn(ctx, r.db).SelectContext(ctx, &rows, query, olderThan); err != nil {
			return released, fmt.Errorf("sweep %s locks: %w", t, err)
		}
		for i := range rows {
			rows[i].Type = t
		}
		released = append(released, rows...)
	}
	return released, nil
}
