package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/muchasmas/scholarship-api/internal/handler"
	"github.com/muchasmas/scholarship-api/internal/middleware"
	"github.com/muchasmas/scholarship-api/internal/models"
	"github.com/muchasmas/scholarship-api/pkg/config"
)

type routeHandlers struct {
	auth     *handler.AuthHandler
	scholars *handler.ScholarHandler
	logbook  *handler.LogbookHandler
	users    *handler.UserHandler
	catalogs *handler.CatalogHandler
	reports  *handler.ReportHandler
	files    *handler.FileHandler
	metrics  *handler.MetricsHandler
}

var (
	staff        = rolesOf(models.StaffRoles...)
	scholarEdit  = rolesOf(models.RoleAdmin, models.RoleSPC, models.RoleSPCA)
	reportAccess = rolesOf(models.RoleAdmin, models.RoleSPC, models.RoleFinance)
	adminOnly    = rolesOf(models.RoleAdmin)
	staffOrSelf  = append(rolesOf(models.StaffRoles...), middleware.Self)
)

func registerRoutes(r *gin.Engine, cfg *config.Config, h routeHandlers, authenticate gin.HandlerFunc) {
	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/sign-in", h.auth.SignIn)
	auth.POST("/password/reset-request", h.auth.RequestPasswordReset)
	auth.POST("/password/reset", h.auth.ResetPassword)
	auth.POST("/password", authenticate, h.auth.ChangePassword)
	auth.POST("/sign-up", authenticate, middleware.RBAC(adminOnly...), h.users.SignUp)
	auth.GET("/me", authenticate, h.users.Me)

	api.GET("/files/:token", h.files.Serve)

	secured := api.Group("", authenticate)
	secured.GET("/metrics/summary", middleware.RBAC(adminOnly...), h.metrics.Summary)

	scholars := secured.Group("/scholars")
	scholars.GET("", middleware.RBAC(staff...), h.scholars.List)
	scholars.POST("", middleware.RBAC(scholarEdit...), h.scholars.Create)
	scholars.GET("/by-account/:accountId", middleware.RBAC(staffOrSelf...), h.scholars.GetByAccount)
	scholars.PATCH("/by-email/:email", middleware.RBAC(scholarEdit...), h.scholars.UpdateByEmail)
	scholars.GET("/:id", middleware.RBAC(staff...), h.scholars.Get)
	scholars.PATCH("/:id", middleware.RBAC(scholarEdit...), h.scholars.Update)
	scholars.DELETE("/:id/phone-numbers/:phoneId", middleware.RBAC(scholarEdit...), h.scholars.RemovePhoneNumber)
	scholars.GET("/:id/logbook", middleware.RBAC(staff...), h.logbook.ListByScholar)
	scholars.POST("/:id/logbook", middleware.RBAC(staff...), h.logbook.Create)
	if cfg.Dev.EndpointsEnabled {
		scholars.DELETE("/:id", middleware.RBAC(adminOnly...), h.scholars.Delete)
		scholars.DELETE("", middleware.RBAC(adminOnly...), h.scholars.DeleteAll)
	}

	logbook := secured.Group("/logbook", middleware.RBAC(staff...))
	logbook.GET("", h.logbook.List)
	logbook.DELETE("/:id", middleware.RBAC(scholarEdit...), h.logbook.Delete)

	users := secured.Group("/users")
	users.GET("", middleware.RBAC(adminOnly...), h.users.List)
	users.GET("/:id", middleware.RBAC(string(models.RoleAdmin), middleware.Self), h.users.Get)
	users.PATCH("/:id", middleware.RBAC(string(models.RoleAdmin), middleware.Self), h.users.Update)
	users.PUT("/:id/roles", middleware.RBAC(adminOnly...), h.users.UpdateRoles)
	users.POST("/:id/profile-image", middleware.RBAC(string(models.RoleAdmin), middleware.Self), h.users.UploadProfileImage)
	users.DELETE("/:id", middleware.RBAC(adminOnly...), h.users.Delete)

	catalogs := secured.Group("/catalogs")
	catalogs.GET("/departments", h.catalogs.Departments)
	catalogs.GET("/municipalities", h.catalogs.Municipalities)
	catalogs.GET("/districts", h.catalogs.Districts)
	catalogs.GET("/banks", h.catalogs.Banks)
	catalogs.POST("/banks", middleware.RBAC(adminOnly...), h.catalogs.CreateBank)
	catalogs.PATCH("/banks/:id", middleware.RBAC(adminOnly...), h.catalogs.UpdateBank)
	catalogs.DELETE("/banks/:id", middleware.RBAC(adminOnly...), h.catalogs.DeleteBank)
	catalogs.POST("/refresh", middleware.RBAC(adminOnly...), h.catalogs.Refresh)

	reports := secured.Group("/reports", middleware.RBAC(reportAccess...))
	reports.GET("/scholars", h.reports.Scholars)
	reports.GET("/users", h.reports.Users)
}

func rolesOf(roles ...models.Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}
