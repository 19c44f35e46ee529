package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	_ "github.com/bhoomash/publicwayservice-sub000/api/swagger"
	"github.com/bhoomash/publicwayservice-sub000/internal/handler"
	"github.com/bhoomash/publicwayservice-sub000/internal/middleware"
	"github.com/bhoomash/publicwayservice-sub000/internal/models"
	"github.com/bhoomash/publicwayservice-sub000/internal/service"
	"github.com/bhoomash/publicwayservice-sub000/pkg/config"
	"github.com/bhoomash/publicwayservice-sub000/pkg/logger"
	corsmiddleware "github.com/bhoomash/publicwayservice-sub000/pkg/middleware/cors"
	reqidmiddleware "github.com/bhoomash/publicwayservice-sub000/pkg/middleware/requestid"
)

// Config carries the cross-cutting pieces the router needs.
type Config struct {
	Env            string
	APIPrefix      string
	ServiceName    string
	AllowedOrigins []string
	Logger         *zap.Logger
	Metrics        *service.MetricsService
	Auth           middleware.TokenValidator
}

// Handlers groups the HTTP handlers mounted by New.
type Handlers struct {
	Complaints *handler.ComplaintHandler
	Admin      *handler.AdminHandler
	Health     *handler.MetricsHandler
}

// New builds the gin engine with middleware and routes.
func New(cfg Config, h Handlers) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "grievance-api"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(logger.GinMiddleware(cfg.Logger))
	r.Use(corsmiddleware.New(cfg.AllowedOrigins))
	r.Use(middleware.Metrics(cfg.Metrics))

	r.GET("/health", h.Health.Health)
	r.GET("/ready", h.Health.Ready)
	r.GET("/metrics", h.Health.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix, middleware.JWT(cfg.Auth))
	{
		complaints := api.Group("/complaints")
		complaints.POST("", h.Complaints.Submit)
		complaints.POST("/documents", h.Complaints.SubmitDocument)
		complaints.POST("/similar", h.Complaints.Similar)
		complaints.GET("", h.Complaints.List)
		complaints.GET("/:id", h.Complaints.Get)
		complaints.GET("/:id/export", h.Complaints.Export)
		complaints.DELETE("/:id", h.Complaints.Delete)

		admin := api.Group("/admin/complaints", middleware.RequireRoles(models.RoleAdmin, models.RoleCollector))
		admin.PATCH("/:id/status", h.Admin.UpdateStatus)
		admin.POST("/:id/reopen", h.Admin.Reopen)
		admin.PUT("/:id/department", h.Admin.AssignDepartment)
		admin.POST("/:id/notes", h.Admin.AddNote)
	}

	return r
}
