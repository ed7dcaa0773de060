package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/therafiali/internal-app-sub000/internal/dto"
	"github.com/therafiali/internal-app-sub000/internal/models"
	appErrors "github.com/therafiali/internal-app-sub000/pkg/errors"
	"github.com/therafiali/internal-app-sub000/pkg/response"
)

type rechargeService interface {
	Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateRechargeRequest) (*models.Recharge, error)
	List(ctx context.Context, actor *models.JWTClaims, query dto.RequestQuery) ([]dto.RechargeView, int, error)
	Get(ctx context.Context, actor *models.JWTClaims, id string) (*dto.RechargeView, error)
	Assign(ctx context.Context, actor *models.JWTClaims, id string, req dto.AssignRechargeRequest) (*models.Recharge, error)
	Process(ctx context.Context, actor *models.JWTClaims, id string, req dto.ProcessRechargeRequest) (*models.Recharge, error)
	Reject(ctx context.Context, actor *models.JWTClaims, id string, req dto.RejectRechargeRequest) (*models.Recharge, error)
	Complete(ctx context.Context, actor *models.JWTClaims, id string, req dto.NoteRequest) (*models.Recharge, error)
	Dispute(ctx context.Context, actor *models.JWTClaims, id string, req dto.ReasonRequest) (*models.Recharge, error)
	Resolve(ctx context.Context, actor *models.JWTClaims, id string, req dto.ResolveDisputeRequest) (*models.Recharge, error)
	Cancel(ctx context.Context, actor *models.JWTClaims, id string, req dto.NoteRequest) (*models.Recharge, error)
}

type screenshotUploader interface {
	Upload(ctx context.Context, actor *models.JWTClaims, rechargeID string, meta dto.ScreenshotUpload, body io.Reader) (*models.Recharge, error)
}

// multipart framing allowance on top of the image limit
const uploadOverhead = 64 << 10

// RechargeHandler exposes the deposit workflow.
type RechargeHandler struct {
	service     rechargeService
	screenshots screenshotUploader
	maxUpload   int64
}

// NewRechargeHandler constructs the handler. maxUpload bounds screenshot bodies.
func NewRechargeHandler(svc rechargeService, screenshots screenshotUploader, maxUpload int64) *RechargeHandler {
	return &RechargeHandler{service: svc, screenshots: screenshots, maxUpload: maxUpload}
}

// List godoc
// @Summary List recharges
// @Description Lists recharges visible to the operator's teams
// @Tags Recharges
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param team_code query string false "Team"
// @Param vip_code query string false "Player VIP code"
// @Param search query string false "Search term"
// @Param from query string false "Created from (RFC3339 or YYYY-MM-DD)"
// @Param to query string false "Created to (RFC3339 or YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /recharges [get]
func (h *RechargeHandler) List(c *gin.Context) {
	list(c, h.service.List)
}

// Create godoc
// @Summary Create recharge
// @Tags Recharges
// @Accept json
// @Produce json
// @Param payload body dto.CreateRechargeRequest true "Recharge"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /recharges [post]
func (h *RechargeHandler) Create(c *gin.Context) {
	create(c, "invalid recharge payload", h.service.Create)
}

// Get godoc
// @Summary Get recharge
// @Tags Recharges
// @Produce json
// @Param id path string true "Recharge ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /recharges/{id} [get]
func (h *RechargeHandler) Get(c *gin.Context) {
	get(c, h.service.Get)
}

// Assign godoc
// @Summary Assign recharge
// @Description Assigns a pending recharge, optionally against a queued redeem whose hold is reserved
// @Tags Recharges
// @Accept json
// @Produce json
// @Param id path string true "Recharge ID"
// @Param payload body dto.AssignRechargeRequest false "Assignment"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /recharges/{id}/assign [post]
func (h *RechargeHandler) Assign(c *gin.Context) {
	act(c, true, "invalid assign payload", h.service.Assign)
}

// UploadScreenshot godoc
// @Summary Upload payment screenshot
// @Description Stores the proof image and moves the recharge to sc_submitted
// @Tags Recharges
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Recharge ID"
// @Param file formData file true "PNG, JPEG or WebP image"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /recharges/{id}/screenshot [post]
func (h *RechargeHandler) UploadScreenshot(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	if h.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+uploadOverhead)
	}
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unable to read file"))
		return
	}
	defer file.Close()

	meta := dto.ScreenshotUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
	}
	rec, err := h.screenshots.Upload(c.Request.Context(), actor, c.Param("id"), meta, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, rec)
}

// Process godoc
// @Summary Process recharge
// @Description Verifies the deposit with a globally unique identifier and pays any assigned redeem
// @Tags Recharges
// @Accept json
// @Produce json
// @Param id path string true "Recharge ID"
// @Param payload body dto.ProcessRechargeRequest true "Identifier"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /recharges/{id}/process [post]
func (h *RechargeHandler) Process(c *gin.Context) {
	act(c, false, "invalid process payload", h.service.Process)
}

// Reject godoc
// @Summary Reject screenshot
// @Tags Recharges
// @Accept json
// @Produce json
// @Param id path string true "Recharge ID"
// @Param payload body dto.RejectRechargeRequest true "Reason"
// @Success 200 {object} response.Envelope
// @Router /recharges/{id}/reject [post]
func (h *RechargeHandler) Reject(c *gin.Context) {
	act(c, false, "invalid reject payload", h.service.Reject)
}

// Complete godoc
// @Summary Complete recharge
// @Tags Recharges
// @Accept json
// @Produce json
// @Param id path string true "Recharge ID"
// @Param payload body dto.NoteRequest false "Notes"
// @Success 200 {object} response.Envelope
// @Router /recharges/{id}/complete [post]
func (h *RechargeHandler) Complete(c *gin.Context) {
	act(c, true, "invalid payload", h.service.Complete)
}

// Dispute godoc
// @Summary Dispute recharge
// @Tags Recharges
// @Accept json
// @Produce json
// @Param id path string true "Recharge ID"
// @Param payload body dto.ReasonRequest true "Reason"
// @Success 200 {object} response.Envelope
// @Router /recharges/{id}/dispute [post]
func (h *RechargeHandler) Dispute(c *gin.Context) {
	act(c, false, "invalid dispute payload", h.service.Dispute)
}

// Resolve godoc
// @Summary Resolve dispute
// @Tags Recharges
// @Accept json
// @Produce json
// @Param id path string true "Recharge ID"
// @Param payload body dto.ResolveDisputeRequest true "Outcome"
// @Success 200 {object} response.Envelope
// @Router /recharges/{id}/resolve [post]
func (h *RechargeHandler) Resolve(c *gin.Context) {
	act(c, false, "invalid resolve payload", h.service.Resolve)
}

// Cancel godoc
// @Summary Cancel recharge
// @Tags Recharges
// @Accept json
// @Produce json
// @Param id path string true "Recharge ID"
// @Param payload body dto.NoteRequest false "Notes"
// @Success 200 {object} response.Envelope
// @Router /recharges/{id}/cancel [post]
func (h *RechargeHandler) Cancel(c *gin.Context) {
	act(c, true, "invalid payload", h.service.Cancel)
}
