package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/therafiali/internal-app-sub000/internal/dto"
	"github.com/therafiali/internal-app-sub000/internal/models"
	"github.com/therafiali/internal-app-sub000/pkg/response"
)

// act binds the body, runs a workflow action on the :id request and renders
// the updated record.
func act[Req any, T any](c *gin.Context, optionalBody bool, message string, fn func(ctx context.Context, actor *models.JWTClaims, id string, req Req) (T, error)) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req Req
	if !bindJSON(c, &req, optionalBody, message) {
		return
	}
	res, err := fn(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

func create[Req any, T any](c *gin.Context, message string, fn func(ctx context.Context, actor *models.JWTClaims, req Req) (T, error)) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req Req
	if !bindJSON(c, &req, false, message) {
		return
	}
	res, err := fn(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

func list[V any](c *gin.Context, fn func(ctx context.Context, actor *models.JWTClaims, q dto.RequestQuery) ([]V, int, error)) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	q, err := parseRequestQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, total, err := fn(c.Request.Context(), actor, q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, paged(q, total))
}

func get[V any](c *gin.Context, fn func(ctx context.Context, actor *models.JWTClaims, id string) (V, error)) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	item, err := fn(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}
