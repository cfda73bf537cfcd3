package http

import (
	"github.com/EternisAI/panoptes/internal/api/http/handler"
	"github.com/EternisAI/panoptes/internal/api/http/middleware"
	"github.com/EternisAI/panoptes/internal/auth"
	"github.com/EternisAI/panoptes/internal/credentials"
	"github.com/EternisAI/panoptes/internal/history"
	"github.com/EternisAI/panoptes/internal/monitor"
	"github.com/EternisAI/panoptes/internal/plume"
	"github.com/EternisAI/panoptes/internal/reports"
	"github.com/EternisAI/panoptes/internal/token"
	"github.com/gin-gonic/gin"
)

type Services struct {
	Store       *credentials.Store
	Tokens      *token.Manager
	Client      *plume.Client
	Reports     *reports.Service
	Monitor     *monitor.Monitor
	History     history.Recorder
	JWT         auth.JWTConfig
	AdminAPIKey string
}

func SetupRoute(engine *gin.Engine, srvs *Services) {
	engine.Use(middleware.RequestLogger())

	healthHandler := handler.NewHealthHandler()
	engine.GET("/health", healthHandler.Check)

	adminHandler := handler.NewAdminHandler(srvs.JWT)
	admin := engine.Group("/admin", middleware.APIKeyAuth(srvs.AdminAPIKey))
	admin.POST("/principals/:id/token", adminHandler.IssueToken)

	v1 := engine.Group("/api/v1", middleware.JWTAuth(srvs.JWT.Secret))

	credentialsHandler := handler.NewCredentialsHandler(srvs.Store, srvs.Tokens, srvs.Monitor)
	v1.PUT("/credentials", credentialsHandler.Put)
	v1.GET("/credentials", credentialsHandler.Get)
	v1.DELETE("/credentials", credentialsHandler.Delete)

	locationHandler := handler.NewLocationHandler(srvs.Reports, srvs.Client, srvs.History)
	location := v1.Group("/customers/:customer_id/locations/:location_id")
	location.GET("/health", locationHandler.Health)
	location.GET("/wan", locationHandler.Wan)
	location.GET("/online-stats", locationHandler.OnlineStats)
	location.GET("/nodes", locationHandler.Nodes)
	location.GET("/devices", locationHandler.Devices)
	location.GET("/wifi-networks", locationHandler.WifiNetworks)
	location.GET("/history", locationHandler.History)

	watchHandler := handler.NewWatchHandler(srvs.Monitor)
	v1.GET("/watches", watchHandler.List)
	v1.POST("/watches", watchHandler.Add)
	v1.DELETE("/watches/:customer_id/:location_id", watchHandler.Remove)
}
