package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/therafiali/internal-app-sub000/internal/dto"
	"github.com/therafiali/internal-app-sub000/internal/middleware"
	"github.com/therafiali/internal-app-sub000/internal/models"
	appErrors "github.com/therafiali/internal-app-sub000/pkg/errors"
	"github.com/therafiali/internal-app-sub000/pkg/response"
)

const (
	defaultPageSize = 20
	maxPageSize     = 200
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.CurrentUser(c)
	if !ok {
		return nil
	}
	return claims
}

// actorOrAbort returns the session or renders 401.
func actorOrAbort(c *gin.Context) (*models.JWTClaims, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, false
	}
	return claims, true
}

// bindJSON decodes the body into dst. An empty body leaves dst untouched when
// optional is set, so simple actions accept a bare POST.
func bindJSON(c *gin.Context, dst interface{}, optional bool, message string) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}
	response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
	return false
}

// parseRequestQuery reads the list filters shared by every request collection.
// status accepts a comma separated list or repeated parameters.
func parseRequestQuery(c *gin.Context) (dto.RequestQuery, error) {
	q := dto.RequestQuery{
		TeamCode: strings.ToUpper(strings.TrimSpace(c.Query("team_code"))),
		VIPCode:  strings.TrimSpace(c.Query("vip_code")),
		Search:   strings.TrimSpace(c.Query("search")),
		Page:     1,
		PageSize: defaultPageSize,
	}
	q.Status = splitStatuses(c.QueryArray("status"))

	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return q, appErrors.Clone(appErrors.ErrValidation, "page must be a positive integer")
		}
		q.Page = page
	}
	if raw := c.Query("page_size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 {
			return q, appErrors.Clone(appErrors.ErrValidation, "page_size must be a positive integer")
		}
		if size > maxPageSize {
			size = maxPageSize
		}
		q.PageSize = size
	}

	for param, dst := range map[string]**time.Time{"from": &q.From, "to": &q.To} {
		raw := c.Query(param)
		if raw == "" {
			continue
		}
		ts, err := parseTime(raw)
		if err != nil {
			return q, appErrors.Clone(appErrors.ErrValidation, param+" must be RFC3339 or YYYY-MM-DD")
		}
		*dst = &ts
	}
	return q, nil
}

func splitStatuses(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func parseTime(raw string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts.UTC(), nil
	}
	return time.Parse("2006-01-02", raw)
}

func paged(q dto.RequestQuery, total int) *response.Pagination {
	return &response.Pagination{Page: q.Page, PageSize: q.PageSize, TotalCount: total}
}
