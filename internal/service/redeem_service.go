package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/therafiali/internal-app-sub000/internal/dto"
	"github.com/therafiali/internal-app-sub000/internal/models"
	"github.com/therafiali/internal-app-sub000/internal/repository"
	appErrors "github.com/therafiali/internal-app-sub000/pkg/errors"
)

type redeemStore interface {
	Create(ctx context.Context, red *models.Redeem) error
	GetByID(ctx context.Context, id string) (*models.Redeem, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.Redeem, int, error)
	UpdateStatus(ctx context.Context, u repository.StatusUpdate) error
}

// RedeemService runs the withdrawal workflow.
type RedeemService struct {
	redeems redeemStore
	players playerStore
	limits  RedeemLimits
	deps    *FlowDeps
}

// NewRedeemService constructs the service.
func NewRedeemService(redeems redeemStore, players playerStore, limits RedeemLimits, deps FlowDeps) *RedeemService {
	return &RedeemService{redeems: redeems, players: players, limits: limits, deps: deps.withDefaults()}
}

// Create submits a withdrawal after checking the player's rolling redeem limits.
// The counters are read and written under the player's row lock.
func (s *RedeemService) Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateRedeemRequest) (*models.Redeem, error) {
	if err := s.deps.validate(req, "invalid redeem payload"); err != nil {
		return nil, err
	}
	if err := validateMoney("total_amount", req.TotalAmount); err != nil {
		return nil, err
	}
	if err := ensurePermission(actor, models.RequestTypeRedeem, ActionCreate); err != nil {
		return nil, err
	}
	if err := ensureTeamAccess(actor, req.TeamCode); err != nil {
		return nil, err
	}

	red := &models.Redeem{
		RequestBase:    baseFromRef(req.PlayerRef, actor, req.Notes),
		TotalAmount:    req.TotalAmount,
		AmountPaid:     decimal.Zero,
		AmountHold:     decimal.Zero,
		GamePlatform:   req.GamePlatform,
		GameUsername:   req.GameUsername,
		PaymentMethods: req.PaymentMethods,
	}

	err := s.deps.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := ensurePlayer(ctx, s.players, req.PlayerRef); err != nil {
			return err
		}
		player, err := s.players.GetForUpdate(ctx, req.VIPCode)
		if err != nil {
			return err
		}
		if player.Banned {
			return appErrors.Clone(appErrors.ErrPlayerBanned, fmt.Sprintf("player %s is banned", req.VIPCode))
		}
		counters, err := evaluateRedeemLimits(player, req.GamePlatform, req.TotalAmount, s.limits, s.deps.Now())
		if err != nil {
			return err
		}
		if err := s.players.UpdateRedeemCounters(ctx, player.VIPCode, counters.Total, counters.Games, counters.LastReset); err != nil {
			return err
		}
		return s.redeems.Create(ctx, red)
	})
	if err != nil {
		s.deps.Metrics.RecordTransition(models.RequestTypeRedeem, ActionCreate, "failed")
		return nil, internalError(err, "failed to create redeem")
	}

	s.deps.Metrics.RecordTransition(models.RequestTypeRedeem, ActionCreate, "ok")
	s.deps.publish(ctx, models.ChangeInsert, red)
	s.deps.audit(ctx, actor, red, ActionCreate, "")
	return red, nil
}

// List returns the redeems visible to the operator.
func (s *RedeemService) List(ctx context.Context, actor *models.JWTClaims, query dto.RequestQuery) ([]dto.RedeemView, int, error) {
	filter := toFilter(query)
	if err := scopeFilter(actor, &filter); err != nil {
		return nil, 0, err
	}
	reds, total, err := s.redeems.List(ctx, filter)
	if err != nil {
		return nil, 0, internalError(err, "failed to list redeems")
	}
	return redeemViews(reds, s.deps.Now()), total, nil
}

// Get returns one redeem when the operator may see its team.
func (s *RedeemService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*dto.RedeemView, error) {
	red, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ensureTeamAccess(actor, red.TeamCode); err != nil {
		return nil, err
	}
	view := redeemView(red, s.deps.Now())
	return &view, nil
}

// Approve queues a pending redeem for payment without verification.
func (s *RedeemService) Approve(ctx context.Context, actor *models.JWTClaims, id string, req dto.NoteRequest) (*models.Redeem, error) {
	red, err := s.act(ctx, actor, id, models.RedeemActionApprove, notesField(req.Notes))
	if err != nil {
		return nil, err
	}
	s.notifyQueued(ctx, red)
	return red, nil
}

// SendToVerification hands the redeem to the verification department.
func (s *RedeemService) SendToVerification(ctx context.Context, actor *models.JWTClaims, id string, req dto.NoteRequest) (*models.Redeem, error) {
	return s.act(ctx, actor, id, models.RedeemActionSendToVerification, notesField(req.Notes))
}

// Verify passes verification and queues the redeem.
func (s *RedeemService) Verify(ctx context.Context, actor *models.JWTClaims, id string, req dto.NoteRequest) (*models.Redeem, error) {
	red, err := s.act(ctx, actor, id, models.RedeemActionVerify, verificationFields(req.Notes))
	if err != nil {
		return nil, err
	}
	s.notifyQueued(ctx, red)
	return red, nil
}

// FailVerification returns the redeem to operations with the verifier's notes.
func (s *RedeemService) FailVerification(ctx context.Context, actor *models.JWTClaims, id string, req dto.ReasonRequest) (*models.Redeem, error) {
	if err := s.deps.validate(req, "invalid verification payload"); err != nil {
		return nil, err
	}
	return s.act(ctx, actor, id, models.RedeemActionFailVerification, verificationFields(req.Reason))
}

// Reject closes the redeem. Redeems with funds on hold must have their
// assigned recharges cancelled first.
func (s *RedeemService) Reject(ctx context.Context, actor *models.JWTClaims, id string, req dto.ReasonRequest) (*models.Redeem, error) {
	if err := s.deps.validate(req, "invalid reject payload"); err != nil {
		return nil, err
	}
	red, err := s.act(ctx, actor, id, models.RedeemActionReject, map[string]interface{}{"notes": req.Reason})
	if err != nil {
		return nil, err
	}
	s.deps.notify(ctx, red, TemplateRedeemRejected, map[string]string{
		"redeem_id": red.DisplayID,
		"reason":    req.Reason,
	})
	return red, nil
}

// Cancel withdraws the redeem under the same hold rule as Reject.
func (s *RedeemService) Cancel(ctx context.Context, actor *models.JWTClaims, id string, req dto.NoteRequest) (*models.Redeem, error) {
	return s.act(ctx, actor, id, models.RedeemActionCancel, notesField(req.Notes))
}

func (s *RedeemService) act(ctx context.Context, actor *models.JWTClaims, id string, action models.RedeemAction, fields map[string]interface{}) (*models.Redeem, error) {
	red, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := RedeemMachine.Next(red.Status, action)
	if err != nil {
		return nil, err
	}
	if (next == models.RedeemRejected || next == models.RedeemCancelled) && red.AmountHold.IsPositive() {
		return nil, appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("redeem %s has $%s reserved by assigned recharges", red.DisplayID, red.AmountHold.StringFixed(2))),
			map[string]interface{}{"amount_hold": red.AmountHold.StringFixed(2)},
		)
	}
	tr := transition{Action: string(action), From: string(red.Status), To: string(next), Fields: fields}
	return execute(ctx, s.deps, actor, red, s.redeems, tr, s.reloader(id))
}

func (s *RedeemService) notifyQueued(ctx context.Context, red *models.Redeem) {
	s.deps.notify(ctx, red, TemplateRedeemQueued, map[string]string{
		"redeem_id": red.DisplayID,
		"total":     red.TotalAmount.StringFixed(2),
	})
}

func (s *RedeemService) load(ctx context.Context, id string) (*models.Redeem, error) {
	red, err := s.redeems.GetByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "redeem")
	}
	return red, nil
}

func (s *RedeemService) reloader(id string) func(ctx context.Context) (*models.Redeem, error) {
	return func(ctx context.Context) (*models.Redeem, error) {
		return s.redeems.GetByID(ctx, id)
	}
}

func verificationFields(notes string) map[string]interface{} {
	fields := map[string]interface{}{}
	if notes != "" {
		fields["verification_notes"] = notes
	}
	return fields
}
