package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/therafiali/internal-app-sub000/internal/dto"
	"github.com/therafiali/internal-app-sub000/internal/models"
	"github.com/therafiali/internal-app-sub000/internal/repository"
	appErrors "github.com/therafiali/internal-app-sub000/pkg/errors"
)

// Transactor runs fn atomically; repository calls made with the callback's
// context join the transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher fans change events out to live subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, event models.ChangeEvent) error
}

// AuditLogger records audit trail entries.
type AuditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// Notifier delivers player notifications without blocking the caller.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

type statusUpdater interface {
	UpdateStatus(ctx context.Context, u repository.StatusUpdate) error
}

// FlowDeps bundles the collaborators every request service shares.
type FlowDeps struct {
	Tx        Transactor
	Audit     AuditLogger
	Events    EventPublisher
	Notifier  Notifier
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
	Now       func() time.Time
}

func (d FlowDeps) withDefaults() *FlowDeps {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Validator == nil {
		d.Validator = dto.NewValidator()
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	if d.Tx == nil {
		d.Tx = directTx{}
	}
	return &d
}

// directTx runs callbacks without a transaction.
type directTx struct{}

func (directTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// transition describes one guarded status change.
type transition struct {
	Action string
	From   string
	To     string
	Fields map[string]interface{}
	// Effects run inside the transaction before the status update.
	Effects func(ctx context.Context) error
}

// execute runs the shared mutation pipeline: tenant, department and lock
// checks, the transactional compare-and-set, then event, audit and metrics.
func execute[T models.Request](ctx context.Context, d *FlowDeps, actor *models.JWTClaims, current T, store statusUpdater, tr transition, reload func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	reqType := current.Type()
	if err := d.guard(actor, current, tr.Action); err != nil {
		d.Metrics.RecordTransition(reqType, tr.Action, "denied")
		return zero, err
	}

	base := current.Base()
	err := d.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if tr.Effects != nil {
			if err := tr.Effects(ctx); err != nil {
				return err
			}
		}
		return store.UpdateStatus(ctx, repository.StatusUpdate{
			ID:          base.ID,
			From:        tr.From,
			To:          tr.To,
			Actor:       actor.UserID,
			At:          d.Now(),
			Fields:      tr.Fields,
			RequireLock: true,
			ReleaseLock: true,
		})
	})
	if err != nil {
		d.Metrics.RecordTransition(reqType, tr.Action, "failed")
		if errors.Is(err, repository.ErrStale) {
			return zero, d.staleError(ctx, actor, tr.From, func(ctx context.Context) (models.Request, error) { return reload(ctx) })
		}
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return zero, appErr
		}
		return zero, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to %s %s", tr.Action, reqType))
	}
	d.Metrics.RecordTransition(reqType, tr.Action, "ok")

	updated, err := reload(ctx)
	if err != nil {
		return zero, loadError(err, string(reqType))
	}
	d.publish(ctx, models.ChangeUpdate, updated)
	d.audit(ctx, actor, updated, tr.Action, tr.From)
	return updated, nil
}

// guard checks tenant, department and lock ownership before a mutation.
func (d *FlowDeps) guard(actor *models.JWTClaims, req models.Request, action string) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	base := req.Base()
	if err := ensureTeamAccess(actor, base.TeamCode); err != nil {
		return err
	}
	if err := ensurePermission(actor, req.Type(), action); err != nil {
		return err
	}
	state := base.ProcessingState
	if state.Status == models.ProcessingInProgress && !state.HeldBy(actor.UserID) {
		return lockHeldError(state)
	}
	return nil
}

// staleError explains why a guarded update matched no row.
func (d *FlowDeps) staleError(ctx context.Context, actor *models.JWTClaims, expected string, reload func(ctx context.Context) (models.Request, error)) error {
	fresh, err := reload(ctx)
	if err != nil {
		return loadError(err, "request")
	}
	state := fresh.Base().ProcessingState
	if state.Status == models.ProcessingInProgress && !state.HeldBy(actor.UserID) {
		return lockHeldError(state)
	}
	if fresh.CurrentStatus() != expected {
		return appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("request moved to %s in the meantime", fresh.CurrentStatus()))
	}
	return appErrors.Clone(appErrors.ErrConflict, "request changed concurrently, reload and retry")
}

func lockHeldError(state models.ProcessingState) error {
	details := map[string]interface{}{"modal_type": state.Modal}
	if state.By != nil {
		details["processed_by"] = *state.By
	}
	return appErrors.WithDetails(appErrors.Clone(appErrors.ErrLockHeld, "request is currently being processed by another operator"), details)
}

func (d *FlowDeps) publish(ctx context.Context, change models.ChangeType, req models.Request) {
	if d.Events == nil {
		return
	}
	event, err := models.NewChangeEvent(change, req)
	if err != nil {
		d.Logger.Warn("failed to encode change event", zap.String("id", req.Base().ID), zap.Error(err))
		return
	}
	if err := d.Events.Publish(ctx, event); err != nil {
		d.Logger.Warn("failed to publish change event", zap.String("table", event.Table), zap.String("id", event.ID), zap.Error(err))
	}
}

func (d *FlowDeps) audit(ctx context.Context, actor *models.JWTClaims, req models.Request, action, from string) {
	if d.Audit == nil || actor == nil {
		return
	}
	id := req.Base().ID
	oldValues, _ := json.Marshal(map[string]string{"status": from})
	newValues, _ := json.Marshal(map[string]string{"status": req.CurrentStatus()})
	if err := d.Audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.RequestAuditAction(req.Type(), action),
		Resource:   req.Type().Table(),
		ResourceID: &id,
		OldValues:  oldValues,
		NewValues:  newValues,
	}); err != nil {
		d.Logger.Warn("failed to record request audit log", zap.String("id", id), zap.String("action", action), zap.Error(err))
	}
}

func (d *FlowDeps) notify(ctx context.Context, req models.Request, template string, fields map[string]string) {
	base := req.Base()
	if d.Notifier == nil || base.MessengerID == nil || *base.MessengerID == "" {
		return
	}
	d.Notifier.Notify(ctx, Notification{
		SubscriberID: *base.MessengerID,
		TeamCode:     base.TeamCode,
		Template:     template,
		Fields:       fields,
	})
}

func (d *FlowDeps) validate(payload interface{}, message string) error {
	if err := d.Validator.Struct(payload); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
	}
	return nil
}

func validateMoney(field string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return appErrors.Clone(appErrors.ErrValidation, field+" must be positive")
	}
	if !amount.Equal(amount.Round(2)) {
		return appErrors.Clone(appErrors.ErrValidation, field+" must have at most two decimals")
	}
	return nil
}

func loadError(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, what+" not found")
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load "+what)
}

func internalError(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// ensurePlayer registers the player a new request refers to. A player already
// registered under another team cannot be filed against ref.TeamCode.
func ensurePlayer(ctx context.Context, players playerStore, ref dto.PlayerRef) error {
	err := players.Ensure(ctx, playerFromRef(ref))
	if errors.Is(err, repository.ErrPlayerTeamMismatch) {
		return appErrors.Clone(appErrors.ErrTenantDenied, fmt.Sprintf("player %s belongs to another team", ref.VIPCode))
	}
	return err
}

// playerFromRef builds the player record a new request refers to.
func playerFromRef(ref dto.PlayerRef) *models.Player {
	return &models.Player{
		VIPCode:     ref.VIPCode,
		PlayerName:  ref.PlayerName,
		MessengerID: optionalString(ref.MessengerID),
		TeamCode:    ref.TeamCode,
	}
}

func baseFromRef(ref dto.PlayerRef, actor *models.JWTClaims, notes string) models.RequestBase {
	return models.RequestBase{
		VIPCode:     ref.VIPCode,
		PlayerName:  ref.PlayerName,
		MessengerID: optionalString(ref.MessengerID),
		TeamCode:    ref.TeamCode,
		CreatedBy:   &actor.UserID,
		Notes:       optionalString(notes),
	}
}
