package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/therafiali/internal-app-sub000/internal/dto"
	"github.com/therafiali/internal-app-sub000/internal/models"
	"github.com/therafiali/internal-app-sub000/internal/repository"
	appErrors "github.com/therafiali/internal-app-sub000/pkg/errors"
)

type rechargeStore interface {
	Create(ctx context.Context, rec *models.Recharge) error
	GetByID(ctx context.Context, id string) (*models.Recharge, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.Recharge, int, error)
	UpdateStatus(ctx context.Context, u repository.StatusUpdate) error
}

type redeemLedger interface {
	GetByID(ctx context.Context, id string) (*models.Redeem, error)
	GetForUpdate(ctx context.Context, id string) (*models.Redeem, error)
	AdjustHold(ctx context.Context, id string, delta decimal.Decimal) error
	UpdateStatus(ctx context.Context, u repository.StatusUpdate) error
}

type identifierStore interface {
	Insert(ctx context.Context, ident *models.RechargeIdentifier) error
}

type playerStore interface {
	Ensure(ctx context.Context, p *models.Player) error
	FindByVIPCode(ctx context.Context, vipCode string) (*models.Player, error)
	GetForUpdate(ctx context.Context, vipCode string) (*models.Player, error)
	UpdateRedeemCounters(ctx context.Context, vipCode string, total decimal.Decimal, limits models.GameLimits, lastReset time.Time) error
	Ban(ctx context.Context, vipCode, reason string, at time.Time) error
}

type promotionResolver interface {
	Resolve(ctx context.Context, code, team string) (*models.Promotion, error)
}

// Notification templates.
const (
	TemplateRechargeProcessed = "recharge_processed"
	TemplateRechargeRejected  = "recharge_rejected"
	TemplateRechargeCompleted = "recharge_completed"
	TemplateRedeemQueued      = "redeem_queued"
	TemplateRedeemPaid        = "redeem_paid"
	TemplateRedeemCompleted   = "redeem_completed"
	TemplateRedeemRejected    = "redeem_rejected"
	TemplateTransferCompleted = "transfer_completed"
	TemplatePasswordReset     = "password_reset"
	TemplateRequestRejected   = "request_rejected"
)

// RechargeService runs the deposit workflow.
type RechargeService struct {
	recharges   rechargeStore
	redeems     redeemLedger
	identifiers identifierStore
	players     playerStore
	promotions  promotionResolver
	deps        *FlowDeps
}

// NewRechargeService constructs the service.
func NewRechargeService(recharges rechargeStore, redeems redeemLedger, identifiers identifierStore, players playerStore, promotions promotionResolver, deps FlowDeps) *RechargeService {
	return &RechargeService{
		recharges:   recharges,
		redeems:     redeems,
		identifiers: identifiers,
		players:     players,
		promotions:  promotions,
		deps:        deps.withDefaults(),
	}
}

// Create registers a deposit for a player, applying an optional promotion.
func (s *RechargeService) Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateRechargeRequest) (*models.Recharge, error) {
	if err := s.deps.validate(req, "invalid recharge payload"); err != nil {
		return nil, err
	}
	if err := validateMoney("amount", req.Amount); err != nil {
		return nil, err
	}
	if err := ensurePermission(actor, models.RequestTypeRecharge, ActionCreate); err != nil {
		return nil, err
	}
	if err := ensureTeamAccess(actor, req.TeamCode); err != nil {
		return nil, err
	}

	rec := &models.Recharge{
		RequestBase:   baseFromRef(req.PlayerRef, actor, req.Notes),
		Amount:        req.Amount,
		BonusAmount:   decimal.Zero,
		GamePlatform:  req.GamePlatform,
		GameUsername:  req.GameUsername,
		PaymentMethod: req.PaymentMethod,
	}
	if req.PromoCode != "" && s.promotions != nil {
		promo, err := s.promotions.Resolve(ctx, req.PromoCode, req.TeamCode)
		if err != nil {
			return nil, err
		}
		rec.PromoCode = &promo.Code
		rec.BonusAmount = promo.Bonus(req.Amount)
	}

	err := s.deps.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := ensurePlayer(ctx, s.players, req.PlayerRef); err != nil {
			return err
		}
		player, err := s.players.FindByVIPCode(ctx, req.VIPCode)
		if err != nil {
			return err
		}
		if player.Banned {
			return appErrors.Clone(appErrors.ErrPlayerBanned, fmt.Sprintf("player %s is banned", req.VIPCode))
		}
		return s.recharges.Create(ctx, rec)
	})
	if err != nil {
		return nil, internalError(err, "failed to create recharge")
	}

	s.deps.Metrics.RecordTransition(models.RequestTypeRecharge, ActionCreate, "ok")
	s.deps.publish(ctx, models.ChangeInsert, rec)
	s.deps.audit(ctx, actor, rec, ActionCreate, "")
	return rec, nil
}

// List returns the recharges visible to the operator.
func (s *RechargeService) List(ctx context.Context, actor *models.JWTClaims, query dto.RequestQuery) ([]dto.RechargeView, int, error) {
	filter := toFilter(query)
	if err := scopeFilter(actor, &filter); err != nil {
		return nil, 0, err
	}
	recs, total, err := s.recharges.List(ctx, filter)
	if err != nil {
		return nil, 0, internalError(err, "failed to list recharges")
	}
	return rechargeViews(recs, s.deps.Now()), total, nil
}

// Get returns one recharge when the operator may see its team.
func (s *RechargeService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*dto.RechargeView, error) {
	rec, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ensureTeamAccess(actor, rec.TeamCode); err != nil {
		return nil, err
	}
	return &dto.RechargeView{Recharge: rec, Elapsed: FormatElapsed(rec.CreatedAt, s.deps.Now())}, nil
}

// Assign accepts a pending recharge, optionally reserving its amount on a queued redeem.
func (s *RechargeService) Assign(ctx context.Context, actor *models.JWTClaims, id string, req dto.AssignRechargeRequest) (*models.Recharge, error) {
	if err := s.deps.validate(req, "invalid assign payload"); err != nil {
		return nil, err
	}
	rec, next, err := s.prepare(ctx, id, models.RechargeActionAssign)
	if err != nil {
		return nil, err
	}

	tr := transition{Action: string(models.RechargeActionAssign), From: string(rec.Status), To: string(next), Fields: notesField(req.Notes)}
	if req.RedeemID != "" {
		tr.Fields["assigned_redeem_id"] = req.RedeemID
		tr.Effects = func(ctx context.Context) error {
			return s.reserveHold(ctx, actor, rec, req.RedeemID)
		}
	}

	updated, err := execute(ctx, s.deps, actor, rec, s.recharges, tr, s.reloader(id))
	if err != nil {
		return nil, err
	}
	if req.RedeemID != "" {
		s.publishRedeem(ctx, req.RedeemID)
	}
	return updated, nil
}

func (s *RechargeService) reserveHold(ctx context.Context, actor *models.JWTClaims, rec *models.Recharge, redeemID string) error {
	red, err := s.redeems.GetForUpdate(ctx, redeemID)
	if err != nil {
		return loadError(err, "redeem")
	}
	if err := ensureTeamAccess(actor, red.TeamCode); err != nil {
		return err
	}
	if red.TeamCode != rec.TeamCode {
		return appErrors.Clone(appErrors.ErrValidation, "recharge and redeem belong to different teams")
	}
	if red.Status != models.RedeemQueued && red.Status != models.RedeemQueuedPartiallyPaid {
		return appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("redeem %s is %s and cannot receive payments", red.DisplayID, red.Status))
	}
	if err := s.redeems.AdjustHold(ctx, red.ID, rec.Amount); err != nil {
		if errors.Is(err, repository.ErrStale) {
			return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("redeem %s only has $%s left to fill", red.DisplayID, red.Remaining().StringFixed(2)))
		}
		return err
	}
	return nil
}

// SubmitScreenshot attaches the payment proof URL.
func (s *RechargeService) SubmitScreenshot(ctx context.Context, actor *models.JWTClaims, id, url string) (*models.Recharge, error) {
	rec, next, err := s.prepare(ctx, id, models.RechargeActionSubmitScreenshot)
	if err != nil {
		return nil, err
	}
	tr := transition{
		Action: string(models.RechargeActionSubmitScreenshot),
		From:   string(rec.Status),
		To:     string(next),
		Fields: map[string]interface{}{"screenshot_url": url, "reject_reason": nil},
	}
	return execute(ctx, s.deps, actor, rec, s.recharges, tr, s.reloader(id))
}

// CheckScreenshotAllowed verifies the operator could submit a screenshot now,
// before anything is written to storage.
func (s *RechargeService) CheckScreenshotAllowed(ctx context.Context, actor *models.JWTClaims, id string) error {
	rec, _, err := s.prepare(ctx, id, models.RechargeActionSubmitScreenshot)
	if err != nil {
		return err
	}
	return s.deps.guard(actor, rec, string(models.RechargeActionSubmitScreenshot))
}

// Process verifies the deposit. The identifier insert, the status change and,
// for assigned recharges, the redeem payment commit together.
func (s *RechargeService) Process(ctx context.Context, actor *models.JWTClaims, id string, req dto.ProcessRechargeRequest) (*models.Recharge, error) {
	if err := s.deps.validate(req, "invalid process payload"); err != nil {
		return nil, err
	}
	rec, next, err := s.prepare(ctx, id, models.RechargeActionProcess)
	if err != nil {
		return nil, err
	}

	identifier := strings.TrimSpace(req.Identifier)
	fields := notesField(req.Notes)
	fields["identifier"] = identifier
	fields["deposit_status"] = models.DepositDeposited

	tr := transition{
		Action: string(models.RechargeActionProcess),
		From:   string(rec.Status),
		To:     string(next),
		Fields: fields,
		Effects: func(ctx context.Context) error {
			err := s.identifiers.Insert(ctx, &models.RechargeIdentifier{Identifier: identifier, RechargeID: rec.ID, CreatedBy: actor.UserID})
			if errors.Is(err, repository.ErrDuplicate) {
				return appErrors.Clone(appErrors.ErrDuplicateIdentifier, fmt.Sprintf("identifier %s was already used", identifier))
			}
			if err != nil {
				return err
			}
			if rec.AssignedRedeemID != nil {
				return s.payRedeem(ctx, *rec.AssignedRedeemID, rec.Amount)
			}
			return nil
		},
	}

	updated, err := execute(ctx, s.deps, actor, rec, s.recharges, tr, s.reloader(id))
	if err != nil {
		return nil, err
	}
	s.deps.notify(ctx, updated, TemplateRechargeProcessed, map[string]string{
		"recharge_id": updated.DisplayID,
		"amount":      updated.Total().StringFixed(2),
	})
	if updated.AssignedRedeemID != nil {
		s.afterRedeemPayment(ctx, *updated.AssignedRedeemID)
	}
	return updated, nil
}

// payRedeem converts the recharge's hold on a redeem into a payment.
func (s *RechargeService) payRedeem(ctx context.Context, redeemID string, amount decimal.Decimal) error {
	red, err := s.redeems.GetForUpdate(ctx, redeemID)
	if err != nil {
		return loadError(err, "redeem")
	}
	payment, err := applyRedeemPayment(red, amount)
	if err != nil {
		return err
	}
	return s.redeems.UpdateStatus(ctx, repository.StatusUpdate{
		ID:   red.ID,
		From: string(red.Status),
		To:   string(payment.Status),
		At:   s.deps.Now(),
		Fields: map[string]interface{}{
			"amount_paid": payment.AmountPaid,
			"amount_hold": payment.AmountHold,
		},
	})
}

func (s *RechargeService) afterRedeemPayment(ctx context.Context, redeemID string) {
	red, err := s.redeems.GetByID(ctx, redeemID)
	if err != nil {
		s.deps.Logger.Warn("failed to reload paid redeem", zap.String("redeem_id", redeemID), zap.Error(err))
		return
	}
	s.deps.Metrics.RecordTransition(models.RequestTypeRedeem, string(models.RedeemActionPay), "ok")
	s.deps.publish(ctx, models.ChangeUpdate, red)
	template := TemplateRedeemPaid
	if red.Status == models.RedeemCompleted {
		template = TemplateRedeemCompleted
	}
	s.deps.notify(ctx, red, template, map[string]string{
		"redeem_id": red.DisplayID,
		"paid":      red.AmountPaid.StringFixed(2),
		"total":     red.TotalAmount.StringFixed(2),
	})
}

// Reject turns down a submitted screenshot and resets the deposit to pending.
func (s *RechargeService) Reject(ctx context.Context, actor *models.JWTClaims, id string, req dto.RejectRechargeRequest) (*models.Recharge, error) {
	if err := s.deps.validate(req, "invalid reject payload"); err != nil {
		return nil, err
	}
	rec, next, err := s.prepare(ctx, id, models.RechargeActionReject)
	if err != nil {
		return nil, err
	}
	fields := notesField(req.Notes)
	fields["reject_reason"] = req.Reason
	fields["deposit_status"] = models.DepositPending

	tr := transition{Action: string(models.RechargeActionReject), From: string(rec.Status), To: string(next), Fields: fields}
	updated, err := execute(ctx, s.deps, actor, rec, s.recharges, tr, s.reloader(id))
	if err != nil {
		return nil, err
	}
	s.deps.notify(ctx, updated, TemplateRechargeRejected, map[string]string{
		"recharge_id": updated.DisplayID,
		"reason":      string(req.Reason),
	})
	return updated, nil
}

// Complete closes a processed recharge.
func (s *RechargeService) Complete(ctx context.Context, actor *models.JWTClaims, id string, req dto.NoteRequest) (*models.Recharge, error) {
	rec, next, err := s.prepare(ctx, id, models.RechargeActionComplete)
	if err != nil {
		return nil, err
	}
	tr := transition{Action: string(models.RechargeActionComplete), From: string(rec.Status), To: string(next), Fields: notesField(req.Notes)}
	updated, err := execute(ctx, s.deps, actor, rec, s.recharges, tr, s.reloader(id))
	if err != nil {
		return nil, err
	}
	s.deps.notify(ctx, updated, TemplateRechargeCompleted, map[string]string{
		"recharge_id": updated.DisplayID,
		"amount":      updated.Total().StringFixed(2),
	})
	return updated, nil
}

// Dispute flags a processed recharge for verification review.
func (s *RechargeService) Dispute(ctx context.Context, actor *models.JWTClaims, id string, req dto.ReasonRequest) (*models.Recharge, error) {
	if err := s.deps.validate(req, "invalid dispute payload"); err != nil {
		return nil, err
	}
	rec, next, err := s.prepare(ctx, id, models.RechargeActionDispute)
	if err != nil {
		return nil, err
	}
	tr := transition{
		Action: string(models.RechargeActionDispute),
		From:   string(rec.Status),
		To:     string(next),
		Fields: map[string]interface{}{"dispute_reason": req.Reason},
	}
	return execute(ctx, s.deps, actor, rec, s.recharges, tr, s.reloader(id))
}

// Resolve closes a dispute. The ban outcome bans the player and completes the recharge.
func (s *RechargeService) Resolve(ctx context.Context, actor *models.JWTClaims, id string, req dto.ResolveDisputeRequest) (*models.Recharge, error) {
	if err := s.deps.validate(req, "invalid resolve payload"); err != nil {
		return nil, err
	}
	rec, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	target := models.RechargeCompleted
	if req.Outcome == models.OutcomeVerified {
		target = models.RechargeVerified
	}
	if err := RechargeMachine.Check(rec.Status, models.RechargeActionResolve, target); err != nil {
		return nil, err
	}

	tr := transition{Action: string(models.RechargeActionResolve), From: string(rec.Status), To: string(target), Fields: notesField(req.Notes)}
	if req.Outcome == models.OutcomeBan {
		tr.Effects = func(ctx context.Context) error {
			reason := "dispute on " + rec.DisplayID
			if req.Notes != "" {
				reason += ": " + req.Notes
			}
			if err := s.players.Ban(ctx, rec.VIPCode, reason, s.deps.Now()); err != nil {
				return loadError(err, "player")
			}
			return nil
		}
	}

	updated, err := execute(ctx, s.deps, actor, rec, s.recharges, tr, s.reloader(id))
	if err != nil {
		return nil, err
	}
	if req.Outcome == models.OutcomeBan && s.deps.Audit != nil {
		vip := rec.VIPCode
		if err := s.deps.Audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &actor.UserID,
			Action:     models.AuditActionPlayerBan,
			Resource:   "players",
			ResourceID: &vip,
			NewValues:  []byte(`{"banned":true}`),
		}); err != nil {
			s.deps.Logger.Warn("failed to record ban audit log", zap.String("vip_code", vip), zap.Error(err))
		}
	}
	return updated, nil
}

// Cancel withdraws a recharge and returns any unconsumed redeem hold.
func (s *RechargeService) Cancel(ctx context.Context, actor *models.JWTClaims, id string, req dto.NoteRequest) (*models.Recharge, error) {
	rec, next, err := s.prepare(ctx, id, models.RechargeActionCancel)
	if err != nil {
		return nil, err
	}
	tr := transition{Action: string(models.RechargeActionCancel), From: string(rec.Status), To: string(next), Fields: notesField(req.Notes)}

	releasesHold := rec.AssignedRedeemID != nil && holdOutstanding(rec.Status)
	if releasesHold {
		redeemID := *rec.AssignedRedeemID
		tr.Effects = func(ctx context.Context) error {
			if err := s.redeems.AdjustHold(ctx, redeemID, rec.Amount.Neg()); err != nil {
				if errors.Is(err, repository.ErrStale) {
					return appErrors.Clone(appErrors.ErrConflict, "redeem hold is already released")
				}
				return err
			}
			return nil
		}
	}

	updated, err := execute(ctx, s.deps, actor, rec, s.recharges, tr, s.reloader(id))
	if err != nil {
		return nil, err
	}
	if releasesHold {
		s.publishRedeem(ctx, *rec.AssignedRedeemID)
	}
	return updated, nil
}

// holdOutstanding reports whether a recharge in status still holds redeem funds.
func holdOutstanding(status models.RechargeStatus) bool {
	switch status {
	case models.RechargeAssigned, models.RechargeSCSubmitted, models.RechargeSCRejected:
		return true
	}
	return false
}

func (s *RechargeService) prepare(ctx context.Context, id string, action models.RechargeAction) (*models.Recharge, models.RechargeStatus, error) {
	rec, err := s.load(ctx, id)
	if err != nil {
		return nil, "", err
	}
	next, err := RechargeMachine.Next(rec.Status, action)
	if err != nil {
		return nil, "", err
	}
	return rec, next, nil
}

func (s *RechargeService) load(ctx context.Context, id string) (*models.Recharge, error) {
	rec, err := s.recharges.GetByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "recharge")
	}
	return rec, nil
}

func (s *RechargeService) reloader(id string) func(ctx context.Context) (*models.Recharge, error) {
	return func(ctx context.Context) (*models.Recharge, error) {
		return s.recharges.GetByID(ctx, id)
	}
}

func (s *RechargeService) publishRedeem(ctx context.Context, redeemID string) {
	red, err := s.redeems.GetByID(ctx, redeemID)
	if err != nil {
		s.deps.Logger.Warn("failed to reload redeem for change event", zap.String("redeem_id", redeemID), zap.Error(err))
		return
	}
	s.deps.publish(ctx, models.ChangeUpdate, red)
}

func notesField(notes string) map[string]interface{} {
	fields := map[string]interface{}{}
	if notes != "" {
		fields["notes"] = notes
	}
	return fields
}
