package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/therafiali/internal-app-sub000/internal/models"
	"github.com/therafiali/internal-app-sub000/internal/realtime"
	"github.com/therafiali/internal-app-sub000/internal/service"
	appErrors "github.com/therafiali/internal-app-sub000/pkg/errors"
	"github.com/therafiali/internal-app-sub000/pkg/response"
)

// EventHandler streams request changes as Server-Sent Events.
type EventHandler struct {
	hub       *realtime.Hub
	keepAlive time.Duration
	logger    *zap.Logger
}

// NewEventHandler constructs the handler.
func NewEventHandler(hub *realtime.Hub, keepAlive time.Duration, logger *zap.Logger) *EventHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventHandler{hub: hub, keepAlive: keepAlive, logger: logger}
}

// Stream godoc
// @Summary Stream request changes
// @Description Server-Sent Events of insert, update and delete changes on one collection, limited to the operator's teams. Resume with Last-Event-ID.
// @Tags Events
// @Produce text/event-stream
// @Param table query string true "recharges, redeems, transfers or password-resets (table names accepted)"
// @Param status query string false "Comma separated statuses"
// @Success 200 {string} string "event stream"
// @Failure 400 {object} response.Envelope
// @Router /events [get]
func (h *EventHandler) Stream(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	t, err := models.ParseRequestType(c.Query("table"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "table must name a request collection"))
		return
	}

	filter := realtime.Filter{
		Table:    t.Table(),
		Statuses: splitStatuses(c.QueryArray("status")),
		Allow: func(team string) bool {
			return service.HasTeamAccess(actor, team)
		},
	}
	lastID := c.GetHeader("Last-Event-ID")
	if lastID == "" {
		lastID = c.Query("last_event_id")
	}

	sub := h.hub.Subscribe(filter, lastID)
	defer h.hub.Unsubscribe(sub)

	if err := realtime.Stream(c.Request.Context(), c.Writer, sub, h.keepAlive); err != nil {
		h.logger.Debug("event stream ended", zap.String("operator_id", actor.UserID), zap.Error(err))
	}
}
