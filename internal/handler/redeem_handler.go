package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/therafiali/internal-app-sub000/internal/dto"
	"github.com/therafiali/internal-app-sub000/internal/models"
)

type redeemService interface {
	Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateRedeemRequest) (*models.Redeem, error)
	List(ctx context.Context, actor *models.JWTClaims, query dto.RequestQuery) ([]dto.RedeemView, int, error)
	Get(ctx context.Context, actor *models.JWTClaims, id string) (*dto.RedeemView, error)
	Approve(ctx context.Context, actor *models.JWTClaims, id string, req dto.NoteRequest) (*models.Redeem, error)
	SendToVerification(ctx context.Context, actor *models.JWTClaims, id string, req dto.NoteRequest) (*models.Redeem, error)
	Verify(ctx context.Context, actor *models.JWTClaims, id string, req dto.NoteRequest) (*models.Redeem, error)
	FailVerification(ctx context.Context, actor *models.JWTClaims, id string, req dto.ReasonRequest) (*models.Redeem, error)
	Reject(ctx context.Context, actor *models.JWTClaims, id string, req dto.ReasonRequest) (*models.Redeem, error)
	Cancel(ctx context.Context, actor *models.JWTClaims, id string, req dto.NoteRequest) (*models.Redeem, error)
}

// RedeemHandler exposes the withdrawal workflow.
type RedeemHandler struct {
	service redeemService
}

// NewRedeemHandler constructs the handler.
func NewRedeemHandler(svc redeemService) *RedeemHandler {
	return &RedeemHandler{service: svc}
}

// List godoc
// @Summary List redeems
// @Tags Redeems
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param team_code query string false "Team"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /redeems [get]
func (h *RedeemHandler) List(c *gin.Context) {
	list(c, h.service.List)
}

// Create godoc
// @Summary Create redeem
// @Description Registers a withdrawal subject to the player's rolling 24h limits
// @Tags Redeems
// @Accept json
// @Produce json
// @Param payload body dto.CreateRedeemRequest true "Redeem"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /redeems [post]
func (h *RedeemHandler) Create(c *gin.Context) {
	create(c, "invalid redeem payload", h.service.Create)
}

// Get godoc
// @Summary Get redeem
// @Tags Redeems
// @Produce json
// @Param id path string true "Redeem ID"
// @Success 200 {object} response.Envelope
// @Router /redeems/{id} [get]
func (h *RedeemHandler) Get(c *gin.Context) {
	get(c, h.service.Get)
}

// Approve godoc
// @Summary Approve redeem
// @Tags Redeems
// @Accept json
// @Produce json
// @Param id path string true "Redeem ID"
// @Param payload body dto.NoteRequest false "Notes"
// @Success 200 {object} response.Envelope
// @Router /redeems/{id}/approve [post]
func (h *RedeemHandler) Approve(c *gin.Context) {
	act(c, true, "invalid payload", h.service.Approve)
}

// SendToVerification godoc
// @Summary Send redeem to verification
// @Tags Redeems
// @Accept json
// @Produce json
// @Param id path string true "Redeem ID"
// @Param payload body dto.NoteRequest false "Notes"
// @Success 200 {object} response.Envelope
// @Router /redeems/{id}/send-to-verification [post]
func (h *RedeemHandler) SendToVerification(c *gin.Context) {
	act(c, true, "invalid payload", h.service.SendToVerification)
}

// Verify godoc
// @Summary Verify redeem
// @Tags Redeems
// @Accept json
// @Produce json
// @Param id path string true "Redeem ID"
// @Param payload body dto.NoteRequest false "Notes"
// @Success 200 {object} response.Envelope
// @Router /redeems/{id}/verify [post]
func (h *RedeemHandler) Verify(c *gin.Context) {
	act(c, true, "invalid payload", h.service.Verify)
}

// FailVerification godoc
// @Summary Fail redeem verification
// @Tags Redeems
// @Accept json
// @Produce json
// @Param id path string true "Redeem ID"
// @Param payload body dto.ReasonRequest true "Reason"
// @Success 200 {object} response.Envelope
// @Router /redeems/{id}/fail-verification [post]
func (h *RedeemHandler) FailVerification(c *gin.Context) {
	act(c, false, "invalid payload", h.service.FailVerification)
}

// Reject godoc
// @Summary Reject redeem
// @Tags Redeems
// @Accept json
// @Produce json
// @Param id path string true "Redeem ID"
// @Param payload body dto.ReasonRequest true "Reason"
// @Success 200 {object} response.Envelope
// @Router /redeems/{id}/reject [post]
func (h *RedeemHandler) Reject(c *gin.Context) {
	act(c, false, "invalid payload", h.service.Reject)
}

// Cancel godoc
// @Summary Cancel redeem
// @Tags Redeems
// @Accept json
// @Produce json
// @Param id path string true "Redeem ID"
// @Param payload body dto.NoteRequest false "Notes"
// @Success 200 {object} response.Envelope
// @Router /redeems/{id}/cancel [post]
func (h *RedeemHandler) Cancel(c *gin.Context) {
	act(c, true, "invalid payload", h.service.Cancel)
}
