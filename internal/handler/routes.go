package handler

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/therafiali/internal-app-sub000/internal/middleware"
	"github.com/therafiali/internal-app-sub000/internal/models"
)

// Handlers groups every HTTP handler the API serves.
type Handlers struct {
	Auth           *AuthHandler
	Users          *UserHandler
	Promotions     *PromotionHandler
	Recharges      *RechargeHandler
	Redeems        *RedeemHandler
	Transfers      *TransferHandler
	PasswordResets *PasswordResetHandler
	Locks          *LockHandler
	Events         *EventHandler
	Exports        *ExportHandler
	Files          *FileHandler
	Metrics        *MetricsHandler
}

// RouteOptions carries the cross-cutting pieces routes are wrapped with.
type RouteOptions struct {
	Prefix       string
	Tokens       middleware.TokenValidator
	Audit        middleware.AuditWriter
	LoginLimiter *middleware.RateLimiter
	EnableDocs   bool
	Logger       *zap.Logger
}

// Register mounts the API on r.
func Register(r *gin.Engine, h Handlers, opts RouteOptions) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	if opts.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "/api/v1"
	}
	api := r.Group(prefix)

	auth := api.Group("/auth")
	if opts.LoginLimiter != nil {
		auth.POST("/login", opts.LoginLimiter.Handler(), h.Auth.Login)
	} else {
		auth.POST("/login", h.Auth.Login)
	}
	auth.POST("/refresh", h.Auth.Refresh)

	api.GET("/files/:token", h.Files.Download)

	secured := api.Group("")
	secured.Use(middleware.JWT(opts.Tokens))

	secured.POST("/auth/logout", h.Auth.Logout)
	secured.GET("/auth/me", h.Auth.Me)

	admin := middleware.RequireDepartments(models.DepartmentAdmin)
	users := secured.Group("/users", admin)
	users.GET("", h.Users.List)
	users.POST("", h.Users.Create)
	users.GET("/:id", h.Users.Get)

	secured.GET("/promotions", h.Promotions.List)

	view := func(t models.RequestType) gin.HandlerFunc {
		if opts.Audit == nil {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.Audit(opts.Audit, opts.Logger, models.RequestAuditAction(t, "view"), t.Table())
	}

	rch := secured.Group("/recharges")
	rch.GET("", h.Recharges.List)
	rch.POST("", h.Recharges.Create)
	rch.GET("/:id", view(models.RequestTypeRecharge), h.Recharges.Get)
	rch.POST("/:id/assign", h.Recharges.Assign)
	rch.POST("/:id/screenshot", h.Recharges.UploadScreenshot)
	rch.POST("/:id/process", h.Recharges.Process)
	rch.POST("/:id/reject", h.Recharges.Reject)
	rch.POST("/:id/complete", h.Recharges.Complete)
	rch.POST("/:id/dispute", h.Recharges.Dispute)
	rch.POST("/:id/resolve", h.Recharges.Resolve)
	rch.POST("/:id/cancel", h.Recharges.Cancel)

	rdm := secured.Group("/redeems")
	rdm.GET("", h.Redeems.List)
	rdm.POST("", h.Redeems.Create)
	rdm.GET("/:id", view(models.RequestTypeRedeem), h.Redeems.Get)
	rdm.POST("/:id/approve", h.Redeems.Approve)
	rdm.POST("/:id/send-to-verification", h.Redeems.SendToVerification)
	rdm.POST("/:id/verify", h.Redeems.Verify)
	rdm.POST("/:id/fail-verification", h.Redeems.FailVerification)
	rdm.POST("/:id/reject", h.Redeems.Reject)
	rdm.POST("/:id/cancel", h.Redeems.Cancel)

	trf := secured.Group("/transfers")
	trf.GET("", h.Transfers.List)
	trf.POST("", h.Transfers.Create)
	trf.GET("/:id", view(models.RequestTypeTransfer), h.Transfers.Get)
	trf.POST("/:id/process", h.Transfers.Process)
	trf.POST("/:id/reject", h.Transfers.Reject)
	trf.POST("/:id/cancel", h.Transfers.Cancel)

	rst := secured.Group("/password-resets")
	rst.GET("", h.PasswordResets.List)
	rst.POST("", h.PasswordResets.Create)
	rst.GET("/:id", view(models.RequestTypeResetPassword), h.PasswordResets.Get)
	rst.POST("/:id/process", h.PasswordResets.Process)
	rst.POST("/:id/reject", h.PasswordResets.Reject)
	rst.POST("/:id/cancel", h.PasswordResets.Cancel)

	locks := secured.Group("/locks")
	locks.POST("/sweep", admin, h.Locks.Sweep)
	locks.POST("/:type/:id", h.Locks.Acquire)
	locks.DELETE("/:type/:id", h.Locks.Release)

	secured.GET("/events", h.Events.Stream)
	if h.Exports != nil {
		secured.GET("/exports/:type", middleware.RequireDepartments(models.DepartmentAudit), h.Exports.Export)
	}
}
