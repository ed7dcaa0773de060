package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/therafiali/internal-app-sub000/internal/models"
	"github.com/therafiali/internal-app-sub000/internal/realtime"
	appErrors "github.com/therafiali/internal-app-sub000/pkg/errors"
)

type tokenTable map[string]*models.JWTClaims

func (t tokenTable) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := t[token]; ok {
		return claims, nil
	}
	return nil, appErrors.ErrUnauthorized
}

type stubUsers struct{ userService }

func (stubUsers) List(context.Context, *models.JWTClaims, models.UserFilter) ([]models.User, int, error) {
	return []models.User{{ID: "u1"}}, 1, nil
}

type stubPromotions struct{}

func (stubPromotions) ListForTeam(context.Context, *models.JWTClaims, string) ([]models.Promotion, error) {
	return nil, nil
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	Register(r, Handlers{
		Auth:       NewAuthHandler(nil),
		Users:      NewUserHandler(stubUsers{}),
		Promotions: NewPromotionHandler(stubPromotions{}),
		Recharges:  NewRechargeHandler(&stubRecharges{}, nil, 0),
		Locks:      NewLockHandler(&stubLocks{acquired: true}),
		Events:     NewEventHandler(realtime.NewHub(0, nil, nil), 0, nil),
		Exports:    NewExportHandler(&stubExporter{}),
		Files:      NewFileHandler(nil),
		Metrics:    NewMetricsHandler(nil, nil),
	}, RouteOptions{
		Tokens: tokenTable{
			"ops":   opsClaims,
			"admin": {UserID: "adm-1", Department: models.DepartmentAdmin, AllTeams: true},
			"audit": {UserID: "aud-1", Department: models.DepartmentAudit, AllTeams: true},
		},
	})
	return r
}

func TestRoutes(t *testing.T) {
	r := newTestRouter()
	cases := []struct {
		name   string
		method string
		path   string
		token  string
		status int
	}{
		{"health is public", http.MethodGet, "/health", "", http.StatusOK},
		{"requests need a session", http.MethodGet, "/api/v1/recharges", "", http.StatusUnauthorized},
		{"operator lists recharges", http.MethodGet, "/api/v1/recharges", "ops", http.StatusOK},
		{"users are admin only", http.MethodGet, "/api/v1/users", "ops", http.StatusForbidden},
		{"admin lists users", http.MethodGet, "/api/v1/users", "admin", http.StatusOK},
		{"sweep is admin only", http.MethodPost, "/api/v1/locks/sweep", "ops", http.StatusForbidden},
		{"admin sweeps", http.MethodPost, "/api/v1/locks/sweep", "admin", http.StatusOK},
		{"lock release", http.MethodDelete, "/api/v1/locks/recharges/r1", "ops", http.StatusOK},
		{"exports need audit", http.MethodGet, "/api/v1/exports/recharges", "ops", http.StatusForbidden},
		{"audit exports", http.MethodGet, "/api/v1/exports/recharges", "audit", http.StatusOK},
		{"promotions", http.MethodGet, "/api/v1/promotions", "ops", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

