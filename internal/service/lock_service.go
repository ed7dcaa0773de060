package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/therafiali/internal-app-sub000/internal/dto"
	"github.com/therafiali/internal-app-sub000/internal/models"
	"github.com/therafiali/internal-app-sub000/internal/repository"
	appErrors "github.com/therafiali/internal-app-sub000/pkg/errors"
)

type lockStore interface {
	TryAcquire(ctx context.Context, t models.RequestType, id, operatorID string, modal models.ModalType, at time.Time) (bool, error)
	Renew(ctx context.Context, t models.RequestType, id, operatorID string, modal models.ModalType, at time.Time) (bool, error)
	Release(ctx context.Context, t models.RequestType, id string) error
	Ref(ctx context.Context, t models.RequestType, id string) (*models.RequestRef, error)
	Sweep(ctx context.Context, olderThan time.Time) ([]repository.SweptLock, error)
}

// RequestLoader loads any request by type for change events.
type RequestLoader func(ctx context.Context, t models.RequestType, id string) (models.Request, error)

// NewRequestLoader dispatches to the per-type repositories.
func NewRequestLoader(recharges rechargeStore, redeems redeemStore, transfers transferStore, resets passwordResetStore) RequestLoader {
	return func(ctx context.Context, t models.RequestType, id string) (models.Request, error) {
		switch t {
		case models.RequestTypeRecharge:
			return recharges.GetByID(ctx, id)
		case models.RequestTypeRedeem:
			return redeems.GetByID(ctx, id)
		case models.RequestTypeTransfer:
			return transfers.GetByID(ctx, id)
		case models.RequestTypeResetPassword:
			return resets.GetByID(ctx, id)
		}
		return nil, fmt.Errorf("unknown request type %q", t)
	}
}

// LockService manages the per-record processing lock operators take when
// they open an action dialog.
type LockService struct {
	locks lockStore
	load  RequestLoader
	ttl   time.Duration
	deps  *FlowDeps
}

// NewLockService constructs the service. Locks older than ttl are released by Sweep.
func NewLockService(locks lockStore, load RequestLoader, ttl time.Duration, deps FlowDeps) *LockService {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &LockService{locks: locks, load: load, ttl: ttl, deps: deps.withDefaults()}
}

// Acquire tries to take the lock for modal. Losing the race is reported in
// the result, not as an error.
func (s *LockService) Acquire(ctx context.Context, actor *models.JWTClaims, t models.RequestType, id string, req dto.AcquireLockRequest) (*dto.LockResult, error) {
	if err := s.deps.validate(req, "invalid lock payload"); err != nil {
		return nil, err
	}
	ref, err := s.ref(ctx, actor, t, id)
	if err != nil {
		return nil, err
	}
	if IsTerminal(t, ref.Status) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("request is %s and can no longer be processed", ref.Status))
	}

	var acquired bool
	if ref.ProcessingState.HeldBy(actor.UserID) {
		// the holder reopening a modal restarts the expiry clock
		acquired, err = s.locks.Renew(ctx, t, id, actor.UserID, req.ModalType, s.deps.Now())
		if err != nil {
			return nil, internalError(err, "failed to renew lock")
		}
	}
	if !acquired {
		acquired, err = s.locks.TryAcquire(ctx, t, id, actor.UserID, req.ModalType, s.deps.Now())
		if err != nil {
			return nil, internalError(err, "failed to acquire lock")
		}
	}
	s.deps.Metrics.RecordLockAttempt(t, acquired)

	current, err := s.locks.Ref(ctx, t, id)
	if err != nil {
		return nil, loadError(err, string(t))
	}
	result := &dto.LockResult{Acquired: acquired, RequestType: t, RequestID: id, ProcessingState: current.ProcessingState}
	if !acquired {
		result.Message = "request is currently being processed by another operator"
		return result, nil
	}
	s.publish(ctx, t, id)
	return result, nil
}

// Release returns the lock to idle. Operators may release their own lock;
// Admin may release anyone's.
func (s *LockService) Release(ctx context.Context, actor *models.JWTClaims, t models.RequestType, id string) (*dto.LockResult, error) {
	ref, err := s.ref(ctx, actor, t, id)
	if err != nil {
		return nil, err
	}
	state := ref.ProcessingState
	if state.Status == models.ProcessingIdle {
		return &dto.LockResult{RequestType: t, RequestID: id, ProcessingState: models.IdleState()}, nil
	}
	forced := !state.HeldBy(actor.UserID)
	if forced && actor.Department != models.DepartmentAdmin {
		return nil, lockHeldError(state)
	}

	if err := s.locks.Release(ctx, t, id); err != nil {
		return nil, internalError(err, "failed to release lock")
	}
	if forced {
		s.auditLock(ctx, actor, models.AuditActionLockRelease, t.Table(), &id, state)
	}
	s.publish(ctx, t, id)
	return &dto.LockResult{RequestType: t, RequestID: id, ProcessingState: models.IdleState()}, nil
}

// Sweep releases locks older than the configured ttl. actor is nil for the
// background sweeper.
func (s *LockService) Sweep(ctx context.Context, actor *models.JWTClaims) (*dto.SweepResult, error) {
	if actor != nil && actor.Department != models.DepartmentAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only Admin can sweep locks")
	}
	olderThan := s.deps.Now().Add(-s.ttl)
	swept, err := s.locks.Sweep(ctx, olderThan)
	if err != nil {
		return nil, internalError(err, "failed to sweep locks")
	}

	result := &dto.SweepResult{Released: len(swept), ByType: map[models.RequestType][]string{}, OlderThan: olderThan}
	for _, lock := range swept {
		result.ByType[lock.Type] = append(result.ByType[lock.Type], lock.ID)
		s.publish(ctx, lock.Type, lock.ID)
	}
	for t, ids := range result.ByType {
		s.deps.Metrics.RecordLocksSwept(t, len(ids))
	}
	if len(swept) > 0 {
		s.deps.Logger.Info("released expired processing locks", zap.Int("count", len(swept)), zap.Time("older_than", olderThan))
		if actor != nil {
			s.auditLock(ctx, actor, models.AuditActionLockSweep, "processing_locks", nil, result)
		}
	}
	return result, nil
}

// RunSweeper sweeps every interval until ctx is cancelled.
func (s *LockService) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx, nil); err != nil {
				s.deps.Logger.Warn("lock sweep failed", zap.Error(err))
			}
		}
	}
}

func (s *LockService) ref(ctx context.Context, actor *models.JWTClaims, t models.RequestType, id string) (*models.RequestRef, error) {
	if !t.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown request type %q", t))
	}
	if err := ensurePermission(actor, t, ActionLock); err != nil {
		return nil, err
	}
	ref, err := s.locks.Ref(ctx, t, id)
	if err != nil {
		return nil, loadError(err, string(t))
	}
	if err := ensureTeamAccess(actor, ref.TeamCode); err != nil {
		return nil, err
	}
	return ref, nil
}

func (s *LockService) publish(ctx context.Context, t models.RequestType, id string) {
	if s.load == nil || s.deps.Events == nil {
		return
	}
	req, err := s.load(ctx, t, id)
	if err != nil {
		s.deps.Logger.Warn("failed to reload request for lock event", zap.String("type", string(t)), zap.String("id", id), zap.Error(err))
		return
	}
	s.deps.publish(ctx, models.ChangeUpdate, req)
}

func (s *LockService) auditLock(ctx context.Context, actor *models.JWTClaims, action, resource string, resourceID *string, payload interface{}) {
	if s.deps.Audit == nil {
		return
	}
	raw, _ := json.Marshal(payload)
	if err := s.deps.Audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		OldValues:  raw,
	}); err != nil {
		s.deps.Logger.Warn("failed to record lock audit log", zap.String("action", action), zap.Error(err))
	}
}
