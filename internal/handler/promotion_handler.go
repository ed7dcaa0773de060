package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/therafiali/internal-app-sub000/internal/models"
	"github.com/therafiali/internal-app-sub000/pkg/response"
)

type promotionLister interface {
	ListForTeam(ctx context.Context, actor *models.JWTClaims, team string) ([]models.Promotion, error)
}

// PromotionHandler lists promo codes.
type PromotionHandler struct {
	service promotionLister
}

// NewPromotionHandler constructs the handler.
func NewPromotionHandler(svc promotionLister) *PromotionHandler {
	return &PromotionHandler{service: svc}
}

// List godoc
// @Summary List active promotions
// @Tags Promotions
// @Produce json
// @Param team_code query string false "Only promotions applicable to this team"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /promotions [get]
func (h *PromotionHandler) List(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	team := strings.ToUpper(strings.TrimSpace(c.Query("team_code")))
	promos, err := h.service.ListForTeam(c.Request.Context(), actor, team)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, promos)
}
