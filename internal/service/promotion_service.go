package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/therafiali/internal-app-sub000/internal/models"
	appErrors "github.com/therafiali/internal-app-sub000/pkg/errors"
)

const promotionsCacheKey = "promotions:active"

type promotionRepository interface {
	ListActive(ctx context.Context) ([]models.Promotion, error)
	FindByCode(ctx context.Context, code string) (*models.Promotion, error)
}

// PromotionService serves the promotion catalogue from cache when possible.
type PromotionService struct {
	repo   promotionRepository
	cache  *CacheService
	logger *zap.Logger
}

// NewPromotionService constructs the service. cache may be nil.
func NewPromotionService(repo promotionRepository, cache *CacheService, logger *zap.Logger) *PromotionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PromotionService{repo: repo, cache: cache, logger: logger}
}

// ListForTeam returns the active promotions applicable to team.
func (s *PromotionService) ListForTeam(ctx context.Context, actor *models.JWTClaims, team string) ([]models.Promotion, error) {
	if team != "" {
		if err := ensureTeamAccess(actor, team); err != nil {
			return nil, err
		}
	}
	all, err := s.active(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]models.Promotion, 0, len(all))
	for _, promo := range all {
		if team == "" || promo.AppliesTo(team) {
			result = append(result, promo)
		}
	}
	return result, nil
}

// Resolve looks up code and checks it applies to team.
func (s *PromotionService) Resolve(ctx context.Context, code, team string) (*models.Promotion, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	all, err := s.active(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if strings.EqualFold(all[i].Code, code) {
			if !all[i].AppliesTo(team) {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("promo code %s does not apply to team %s", code, team))
			}
			return &all[i], nil
		}
	}

	promo, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown promo code %s", code))
		}
		return nil, internalError(err, "failed to load promotion")
	}
	if !promo.AppliesTo(team) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("promo code %s is not active for team %s", code, team))
	}
	// active in the table but missing from the snapshot
	s.logger.Debug("promotion snapshot stale", zap.String("code", code))
	s.cache.Forget(ctx, promotionsCacheKey)
	return promo, nil
}

func (s *PromotionService) active(ctx context.Context) ([]models.Promotion, error) {
	promos, err := Remember(ctx, s.cache, promotionsCacheKey, s.repo.ListActive)
	if err != nil {
		return nil, internalError(err, "failed to list promotions")
	}
	return promos, nil
}
