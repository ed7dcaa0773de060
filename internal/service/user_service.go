package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/therafiali/internal-app-sub000/internal/dto"
	"github.com/therafiali/internal-app-sub000/internal/models"
	"github.com/therafiali/internal-app-sub000/internal/repository"
	appErrors "github.com/therafiali/internal-app-sub000/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

var knownDepartments = map[models.Department]struct{}{
	models.DepartmentSupport:      {},
	models.DepartmentOperations:   {},
	models.DepartmentVerification: {},
	models.DepartmentFinance:      {},
	models.DepartmentAdmin:        {},
	models.DepartmentAudit:        {},
}

// UserService manages back-office operators.
type UserService struct {
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = dto.NewValidator()
	}
	return &UserService{repo: repo, validator: validate, logger: logger}
}

// List returns one page of operators and the total count. Filtering by a team
// requires access to that team.
func (s *UserService) List(ctx context.Context, actor *models.JWTClaims, filter models.UserFilter) ([]models.User, int, error) {
	if actor == nil {
		return nil, 0, appErrors.ErrUnauthorized
	}
	if filter.Department != nil {
		if _, ok := knownDepartments[*filter.Department]; !ok {
			return nil, 0, appErrors.Clone(appErrors.ErrValidation, "unknown department "+string(*filter.Department))
		}
	}
	if filter.Team != "" {
		filter.Team = normalizeTeam(filter.Team)
		if err := ensureTeamAccess(actor, filter.Team); err != nil {
			return nil, 0, err
		}
	}
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, internalError(err, "failed to list users")
	}
	return users, total, nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	case err != nil:
		return nil, internalError(err, "failed to load user")
	}
	return user, nil
}

// Create provisions an operator. Only Admin may do this, and an operator
// without all_teams needs at least one team.
func (s *UserService) Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateUserRequest, meta models.LoginRequest) (*models.User, error) {
	if actor == nil || actor.Department != models.DepartmentAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only Admin can create users")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid create user payload")
	}
	teams := normalizeTeams(req.TeamAccess)
	if !req.AllTeams && len(teams) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "team_access is required unless all_teams is set")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	_, err := s.repo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
	case !errors.Is(err, sql.ErrNoRows):
		return nil, internalError(err, "failed to check email uniqueness")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, internalError(err, "failed to hash password")
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(req.FullName),
		Department:   req.Department,
		Role:         req.Role,
		TeamAccess:   teams,
		AllTeams:     req.AllTeams,
		Active:       req.Active == nil || *req.Active,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
		}
		return nil, internalError(err, "failed to create user")
	}

	s.recordCreate(ctx, actor, user, meta)
	return user, nil
}

func (s *UserService) recordCreate(ctx context.Context, actor *models.JWTClaims, user *models.User, meta models.LoginRequest) {
	snapshot, _ := json.Marshal(map[string]interface{}{
		"id":          user.ID,
		"email":       user.Email,
		"department":  user.Department,
		"role":        user.Role,
		"team_access": user.TeamAccess,
		"all_teams":   user.AllTeams,
		"active":      user.Active,
	})
	entry := &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionUserCreate,
		Resource:   "users",
		ResourceID: &user.ID,
		NewValues:  snapshot,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}
	if err := s.repo.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("user create audit failed", zap.String("user_id", user.ID), zap.Error(err))
	}
}

func normalizeTeam(team string) string {
	return strings.ToUpper(strings.TrimSpace(team))
}

// normalizeTeams upper-cases team codes and drops blanks and repeats.
func normalizeTeams(teams []string) []string {
	out := make([]string, 0, len(teams))
	seen := make(map[string]struct{}, len(teams))
	for _, t := range teams {
		t = normalizeTeam(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
