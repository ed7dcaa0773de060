package service

import (
	"context"
	"fmt"

	"github.com/therafiali/internal-app-sub000/internal/dto"
	"github.com/therafiali/internal-app-sub000/internal/models"
	"github.com/therafiali/internal-app-sub000/internal/repository"
	appErrors "github.com/therafiali/internal-app-sub000/pkg/errors"
)

type transferStore interface {
	Create(ctx context.Context, tr *models.Transfer) error
	GetByID(ctx context.Context, id string) (*models.Transfer, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.Transfer, int, error)
	UpdateStatus(ctx context.Context, u repository.StatusUpdate) error
}

// TransferService handles balance moves between a player's game accounts.
type TransferService struct {
	transfers transferStore
	players   playerStore
	deps      *FlowDeps
}

// NewTransferService constructs the service.
func NewTransferService(transfers transferStore, players playerStore, deps FlowDeps) *TransferService {
	return &TransferService{transfers: transfers, players: players, deps: deps.withDefaults()}
}

// Create submits a transfer.
func (s *TransferService) Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateTransferRequest) (*models.Transfer, error) {
	if err := s.deps.validate(req, "invalid transfer payload"); err != nil {
		return nil, err
	}
	if err := validateMoney("amount", req.Amount); err != nil {
		return nil, err
	}
	if req.FromPlatform == req.ToPlatform && req.FromUsername == req.ToUsername {
		return nil, appErrors.Clone(appErrors.ErrValidation, "source and destination accounts must differ")
	}
	if err := ensurePermission(actor, models.RequestTypeTransfer, ActionCreate); err != nil {
		return nil, err
	}
	if err := ensureTeamAccess(actor, req.TeamCode); err != nil {
		return nil, err
	}

	tr := &models.Transfer{
		RequestBase:  baseFromRef(req.PlayerRef, actor, req.Notes),
		Amount:       req.Amount,
		FromPlatform: req.FromPlatform,
		FromUsername: req.FromUsername,
		ToPlatform:   req.ToPlatform,
		ToUsername:   req.ToUsername,
	}
	err := s.deps.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := ensurePlayer(ctx, s.players, req.PlayerRef); err != nil {
			return err
		}
		return s.transfers.Create(ctx, tr)
	})
	if err != nil {
		return nil, internalError(err, "failed to create transfer")
	}

	s.deps.Metrics.RecordTransition(models.RequestTypeTransfer, ActionCreate, "ok")
	s.deps.publish(ctx, models.ChangeInsert, tr)
	s.deps.audit(ctx, actor, tr, ActionCreate, "")
	return tr, nil
}

// List returns the transfers visible to the operator.
func (s *TransferService) List(ctx context.Context, actor *models.JWTClaims, query dto.RequestQuery) ([]dto.TransferView, int, error) {
	filter := toFilter(query)
	if err := scopeFilter(actor, &filter); err != nil {
		return nil, 0, err
	}
	trs, total, err := s.transfers.List(ctx, filter)
	if err != nil {
		return nil, 0, internalError(err, "failed to list transfers")
	}
	return transferViews(trs, s.deps.Now()), total, nil
}

// Get returns one transfer when the operator may see its team.
func (s *TransferService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*dto.TransferView, error) {
	tr, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ensureTeamAccess(actor, tr.TeamCode); err != nil {
		return nil, err
	}
	return &dto.TransferView{Transfer: tr, Elapsed: FormatElapsed(tr.CreatedAt, s.deps.Now())}, nil
}

// Process marks the transfer done.
func (s *TransferService) Process(ctx context.Context, actor *models.JWTClaims, id string, req dto.NoteRequest) (*models.Transfer, error) {
	tr, err := s.act(ctx, actor, id, models.ReviewActionProcess, notesField(req.Notes))
	if err != nil {
		return nil, err
	}
	s.deps.notify(ctx, tr, TemplateTransferCompleted, map[string]string{
		"transfer_id": tr.DisplayID,
		"amount":      tr.Amount.StringFixed(2),
		"from":        fmt.Sprintf("%s (%s)", tr.FromUsername, tr.FromPlatform),
		"to":          fmt.Sprintf("%s (%s)", tr.ToUsername, tr.ToPlatform),
	})
	return tr, nil
}

// Reject closes the transfer with a reason.
func (s *TransferService) Reject(ctx context.Context, actor *models.JWTClaims, id string, req dto.ReasonRequest) (*models.Transfer, error) {
	if err := s.deps.validate(req, "invalid reject payload"); err != nil {
		return nil, err
	}
	tr, err := s.act(ctx, actor, id, models.ReviewActionReject, map[string]interface{}{"notes": req.Reason})
	if err != nil {
		return nil, err
	}
	s.deps.notify(ctx, tr, TemplateRequestRejected, map[string]string{"request_id": tr.DisplayID, "reason": req.Reason})
	return tr, nil
}

// Cancel withdraws the transfer.
func (s *TransferService) Cancel(ctx context.Context, actor *models.JWTClaims, id string, req dto.NoteRequest) (*models.Transfer, error) {
	return s.act(ctx, actor, id, models.ReviewActionCancel, notesField(req.Notes))
}

func (s *TransferService) act(ctx context.Context, actor *models.JWTClaims, id string, action models.ReviewAction, fields map[string]interface{}) (*models.Transfer, error) {
	tr, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := ReviewMachine.Next(tr.Status, action)
	if err != nil {
		return nil, err
	}
	return execute(ctx, s.deps, actor, tr, s.transfers,
		transition{Action: string(action), From: string(tr.Status), To: string(next), Fields: fields},
		func(ctx context.Context) (*models.Transfer, error) { return s.transfers.GetByID(ctx, id) })
}

func (s *TransferService) load(ctx context.Context, id string) (*models.Transfer, error) {
	tr, err := s.transfers.GetByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "transfer")
	}
	return tr, nil
}
