package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/therafiali/internal-app-sub000/internal/dto"
	"github.com/therafiali/internal-app-sub000/internal/models"
)

type transferService interface {
	Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateTransferRequest) (*models.Transfer, error)
	List(ctx context.Context, actor *models.JWTClaims, query dto.RequestQuery) ([]dto.TransferView, int, error)
	Get(ctx context.Context, actor *models.JWTClaims, id string) (*dto.TransferView, error)
	Process(ctx context.Context, actor *models.JWTClaims, id string, req dto.NoteRequest) (*models.Transfer, error)
	Reject(ctx context.Context, actor *models.JWTClaims, id string, req dto.ReasonRequest) (*models.Transfer, error)
	Cancel(ctx context.Context, actor *models.JWTClaims, id string, req dto.NoteRequest) (*models.Transfer, error)
}

type passwordResetService interface {
	Create(ctx context.Context, actor *models.JWTClaims, req dto.CreatePasswordResetRequest) (*models.PasswordReset, error)
	List(ctx context.Context, actor *models.JWTClaims, query dto.RequestQuery) ([]dto.PasswordResetView, int, error)
	Get(ctx context.Context, actor *models.JWTClaims, id string) (*dto.PasswordResetView, error)
	Process(ctx context.Context, actor *models.JWTClaims, id string, req dto.ProcessPasswordResetRequest) (*models.PasswordReset, error)
	Reject(ctx context.Context, actor *models.JWTClaims, id string, req dto.ReasonRequest) (*models.PasswordReset, error)
	Cancel(ctx context.Context, actor *models.JWTClaims, id string, req dto.NoteRequest) (*models.PasswordReset, error)
}

// TransferHandler exposes account transfers.
type TransferHandler struct {
	service transferService
}

// NewTransferHandler constructs the handler.
func NewTransferHandler(svc transferService) *TransferHandler {
	return &TransferHandler{service: svc}
}

// List godoc
// @Summary List transfers
// @Tags Transfers
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Success 200 {object} response.Envelope
// @Router /transfers [get]
func (h *TransferHandler) List(c *gin.Context) { list(c, h.service.List) }

// Create godoc
// @Summary Create transfer
// @Tags Transfers
// @Accept json
// @Produce json
// @Param payload body dto.CreateTransferRequest true "Transfer"
// @Success 201 {object} response.Envelope
// @Router /transfers [post]
func (h *TransferHandler) Create(c *gin.Context) {
	create(c, "invalid transfer payload", h.service.Create)
}

// Get godoc
// @Summary Get transfer
// @Tags Transfers
// @Produce json
// @Param id path string true "Transfer ID"
// @Success 200 {object} response.Envelope
// @Router /transfers/{id} [get]
func (h *TransferHandler) Get(c *gin.Context) { get(c, h.service.Get) }

// Process godoc
// @Summary Process transfer
// @Tags Transfers
// @Param id path string true "Transfer ID"
// @Param payload body dto.NoteRequest false "Notes"
// @Success 200 {object} response.Envelope
// @Router /transfers/{id}/process [post]
func (h *TransferHandler) Process(c *gin.Context) {
	act(c, true, "invalid payload", h.service.Process)
}

// Reject godoc
// @Summary Reject transfer
// @Tags Transfers
// @Param id path string true "Transfer ID"
// @Param payload body dto.ReasonRequest true "Reason"
// @Success 200 {object} response.Envelope
// @Router /transfers/{id}/reject [post]
func (h *TransferHandler) Reject(c *gin.Context) {
	act(c, false, "invalid payload", h.service.Reject)
}

// Cancel godoc
// @Summary Cancel transfer
// @Tags Transfers
// @Param id path string true "Transfer ID"
// @Param payload body dto.NoteRequest false "Notes"
// @Success 200 {object} response.Envelope
// @Router /transfers/{id}/cancel [post]
func (h *TransferHandler) Cancel(c *gin.Context) {
	act(c, true, "invalid payload", h.service.Cancel)
}

// PasswordResetHandler exposes game password resets.
type PasswordResetHandler struct {
	service passwordResetService
}

// NewPasswordResetHandler constructs the handler.
func NewPasswordResetHandler(svc passwordResetService) *PasswordResetHandler {
	return &PasswordResetHandler{service: svc}
}

// List godoc
// @Summary List password resets
// @Tags PasswordResets
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Success 200 {object} response.Envelope
// @Router /password-resets [get]
func (h *PasswordResetHandler) List(c *gin.Context) { list(c, h.service.List) }

// Create godoc
// @Summary Create password reset
// @Tags PasswordResets
// @Accept json
// @Produce json
// @Param payload body dto.CreatePasswordResetRequest true "Password reset"
// @Success 201 {object} response.Envelope
// @Router /password-resets [post]
func (h *PasswordResetHandler) Create(c *gin.Context) {
	create(c, "invalid password reset payload", h.service.Create)
}

// Get godoc
// @Summary Get password reset
// @Tags PasswordResets
// @Produce json
// @Param id path string true "Password reset ID"
// @Success 200 {object} response.Envelope
// @Router /password-resets/{id} [get]
func (h *PasswordResetHandler) Get(c *gin.Context) { get(c, h.service.Get) }

// Process godoc
// @Summary Process password reset
// @Tags PasswordResets
// @Param id path string true "Password reset ID"
// @Param payload body dto.ProcessPasswordResetRequest true "New password"
// @Success 200 {object} response.Envelope
// @Router /password-resets/{id}/process [post]
func (h *PasswordResetHandler) Process(c *gin.Context) {
	act(c, false, "invalid payload", h.service.Process)
}

// Reject godoc
// @Summary Reject password reset
// @Tags PasswordResets
// @Param id path string true "Password reset ID"
// @Param payload body dto.ReasonRequest true "Reason"
// @Success 200 {object} response.Envelope
// @Router /password-resets/{id}/reject [post]
func (h *PasswordResetHandler) Reject(c *gin.Context) {
	act(c, false, "invalid payload", h.service.Reject)
}

// Cancel godoc
// @Summary Cancel password reset
// @Tags PasswordResets
// @Param id path string true "Password reset ID"
// @Param payload body dto.NoteRequest false "Notes"
// @Success 200 {object} response.Envelope
// @Router /password-resets/{id}/cancel [post]
func (h *PasswordResetHandler) Cancel(c *gin.Context) {
	act(c, true, "invalid payload", h.service.Cancel)
}
