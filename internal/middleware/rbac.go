package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/therafiali/internal-app-sub000/internal/models"
	appErrors "github.com/therafiali/internal-app-sub000/pkg/errors"
	"github.com/therafiali/internal-app-sub000/pkg/response"
)

// RequireDepartments gates a route to operators of the given departments.
// Admin passes every gate.
func RequireDepartments(allowed ...models.Department) gin.HandlerFunc {
	set := make(map[models.Department]struct{}, len(allowed))
	names := make([]string, 0, len(allowed))
	for _, d := range allowed {
		set[d] = struct{}{}
		names = append(names, string(d))
	}
	message := fmt.Sprintf("requires one of: %s", strings.Join(names, ", "))

	return func(c *gin.Context) {
		claims, ok := CurrentUser(c)
		if !ok {
			response.Abort(c, appErrors.ErrUnauthorized)
			return
		}
		if claims.Department == models.DepartmentAdmin {
			c.Next()
			return
		}
		if _, ok := set[claims.Department]; ok {
			c.Next()
			return
		}
		response.Abort(c, appErrors.Clone(appErrors.ErrForbidden, message))
	}
}

// RequireRoles gates a route by seniority, independent of department.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	set := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims, ok := CurrentUser(c)
		if !ok {
			response.Abort(c, appErrors.ErrUnauthorized)
			return
		}
		if _, ok := set[claims.Role]; !ok {
			response.Abort(c, appErrors.ErrForbidden)
			return
		}
		c.Next()
	}
}
