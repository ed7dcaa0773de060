package service

import (
	"context"

	"github.com/therafiali/internal-app-sub000/internal/dto"
	"github.com/therafiali/internal-app-sub000/internal/models"
	"github.com/therafiali/internal-app-sub000/internal/repository"
)

type passwordResetStore interface {
	Create(ctx context.Context, pr *models.PasswordReset) error
	GetByID(ctx context.Context, id string) (*models.PasswordReset, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.PasswordReset, int, error)
	UpdateStatus(ctx context.Context, u repository.StatusUpdate) error
}

// PasswordResetService handles game account password resets.
type PasswordResetService struct {
	resets  passwordResetStore
	players playerStore
	deps    *FlowDeps
}

// NewPasswordResetService constructs the service.
func NewPasswordResetService(resets passwordResetStore, players playerStore, deps FlowDeps) *PasswordResetService {
	return &PasswordResetService{resets: resets, players: players, deps: deps.withDefaults()}
}

// Create submits a reset request.
func (s *PasswordResetService) Create(ctx context.Context, actor *models.JWTClaims, req dto.CreatePasswordResetRequest) (*models.PasswordReset, error) {
	if err := s.deps.validate(req, "invalid password reset payload"); err != nil {
		return nil, err
	}
	if err := ensurePermission(actor, models.RequestTypeResetPassword, ActionCreate); err != nil {
		return nil, err
	}
	if err := ensureTeamAccess(actor, req.TeamCode); err != nil {
		return nil, err
	}

	pr := &models.PasswordReset{
		RequestBase:       baseFromRef(req.PlayerRef, actor, req.Notes),
		GamePlatform:      req.GamePlatform,
		GameUsername:      req.GameUsername,
		SuggestedUsername: optionalString(req.SuggestedUsername),
	}
	err := s.deps.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := ensurePlayer(ctx, s.players, req.PlayerRef); err != nil {
			return err
		}
		return s.resets.Create(ctx, pr)
	})
	if err != nil {
		return nil, internalError(err, "failed to create password reset")
	}

	s.deps.Metrics.RecordTransition(models.RequestTypeResetPassword, ActionCreate, "ok")
	s.deps.publish(ctx, models.ChangeInsert, pr)
	s.deps.audit(ctx, actor, pr, ActionCreate, "")
	return pr, nil
}

// List returns the resets visible to the operator.
func (s *PasswordResetService) List(ctx context.Context, actor *models.JWTClaims, query dto.RequestQuery) ([]dto.PasswordResetView, int, error) {
	filter := toFilter(query)
	if err := scopeFilter(actor, &filter); err != nil {
		return nil, 0, err
	}
	prs, total, err := s.resets.List(ctx, filter)
	if err != nil {
		return nil, 0, internalError(err, "failed to list password resets")
	}
	return passwordResetViews(prs, s.deps.Now()), total, nil
}

// Get returns one reset when the operator may see its team.
func (s *PasswordResetService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*dto.PasswordResetView, error) {
	pr, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ensureTeamAccess(actor, pr.TeamCode); err != nil {
		return nil, err
	}
	return &dto.PasswordResetView{PasswordReset: pr, Elapsed: FormatElapsed(pr.CreatedAt, s.deps.Now())}, nil
}

// Process records the new password and tells the player.
func (s *PasswordResetService) Process(ctx context.Context, actor *models.JWTClaims, id string, req dto.ProcessPasswordResetRequest) (*models.PasswordReset, error) {
	if err := s.deps.validate(req, "invalid password reset payload"); err != nil {
		return nil, err
	}
	fields := notesField(req.Notes)
	fields["new_password"] = req.NewPassword
	pr, err := s.act(ctx, actor, id, models.ReviewActionProcess, fields)
	if err != nil {
		return nil, err
	}
	s.deps.notify(ctx, pr, TemplatePasswordReset, map[string]string{
		"username":     pr.GameUsername,
		"platform":     pr.GamePlatform,
		"new_password": req.NewPassword,
	})
	return pr, nil
}

// Reject closes the reset with a reason.
func (s *PasswordResetService) Reject(ctx context.Context, actor *models.JWTClaims, id string, req dto.ReasonRequest) (*models.PasswordReset, error) {
	if err := s.deps.validate(req, "invalid reject payload"); err != nil {
		return nil, err
	}
	pr, err := s.act(ctx, actor, id, models.ReviewActionReject, map[string]interface{}{"notes": req.Reason})
	if err != nil {
		return nil, err
	}
	s.deps.notify(ctx, pr, TemplateRequestRejected, map[string]string{"request_id": pr.DisplayID, "reason": req.Reason})
	return pr, nil
}

// Cancel withdraws the reset.
func (s *PasswordResetService) Cancel(ctx context.Context, actor *models.JWTClaims, id string, req dto.NoteRequest) (*models.PasswordReset, error) {
	return s.act(ctx, actor, id, models.ReviewActionCancel, notesField(req.Notes))
}

func (s *PasswordResetService) act(ctx context.Context, actor *models.JWTClaims, id string, action models.ReviewAction, fields map[string]interface{}) (*models.PasswordReset, error) {
	pr, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := ReviewMachine.Next(pr.Status, action)
	if err != nil {
		return nil, err
	}
	return execute(ctx, s.deps, actor, pr, s.resets,
		transition{Action: string(action), From: string(pr.Status), To: string(next), Fields: fields},
		func(ctx context.Context) (*models.PasswordReset, error) { return s.resets.GetByID(ctx, id) })
}

func (s *PasswordResetService) load(ctx context.Context, id string) (*models.PasswordReset, error) {
	pr, err := s.resets.GetByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "password reset")
	}
	return pr, nil
}
