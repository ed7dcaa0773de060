package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/therafiali/internal-app-sub000/internal/dto"
	"github.com/therafiali/internal-app-sub000/internal/models"
	appErrors "github.com/therafiali/internal-app-sub000/pkg/errors"
	"github.com/therafiali/internal-app-sub000/pkg/response"
)

type lockService interface {
	Acquire(ctx context.Context, actor *models.JWTClaims, t models.RequestType, id string, req dto.AcquireLockRequest) (*dto.LockResult, error)
	Release(ctx context.Context, actor *models.JWTClaims, t models.RequestType, id string) (*dto.LockResult, error)
	Sweep(ctx context.Context, actor *models.JWTClaims) (*dto.SweepResult, error)
}

// LockHandler exposes the processing lock used while a modal is open.
type LockHandler struct {
	service lockService
}

// NewLockHandler constructs the handler.
func NewLockHandler(svc lockService) *LockHandler {
	return &LockHandler{service: svc}
}

func requestTypeParam(c *gin.Context) (models.RequestType, bool) {
	t, err := models.ParseRequestType(c.Param("type"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return "", false
	}
	return t, true
}

// Acquire godoc
// @Summary Acquire processing lock
// @Description Takes the lock for a modal. Losing the race returns 200 with acquired=false and the current holder.
// @Tags Locks
// @Accept json
// @Produce json
// @Param type path string true "recharges, redeems, transfers or password-resets"
// @Param id path string true "Request ID"
// @Param payload body dto.AcquireLockRequest true "Modal"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /locks/{type}/{id} [post]
func (h *LockHandler) Acquire(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	t, ok := requestTypeParam(c)
	if !ok {
		return
	}
	var req dto.AcquireLockRequest
	if !bindJSON(c, &req, false, "invalid lock payload") {
		return
	}
	res, err := h.service.Acquire(c.Request.Context(), actor, t, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

// Release godoc
// @Summary Release processing lock
// @Tags Locks
// @Produce json
// @Param type path string true "Request type"
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /locks/{type}/{id} [delete]
func (h *LockHandler) Release(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	t, ok := requestTypeParam(c)
	if !ok {
		return
	}
	res, err := h.service.Release(c.Request.Context(), actor, t, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

// Sweep godoc
// @Summary Release expired locks
// @Tags Locks
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /locks/sweep [post]
func (h *LockHandler) Sweep(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	res, err := h.service.Sweep(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}
