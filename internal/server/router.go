package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/recoveryplus/recoveryplus-backend/internal/handlers"
	"github.com/recoveryplus/recoveryplus-backend/internal/middleware"
)

type RouterConfig struct {
	AuthHandler         *handlers.AuthHandler
	AuthMiddleware      *middleware.AuthMiddleware
	IngestHandler       *handlers.IngestHandler
	SurveyHandler       *handlers.SurveyHandler
	DashboardHandler    *handlers.DashboardHandler
	PrescriptionHandler *handlers.PrescriptionHandler
	AdminHandler        *handlers.AdminHandler
	JobsHandler         *handlers.JobsHandler
	SSEHandler          *handlers.SSEHandler
	AllowedOrigins      []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-Webhook-Token"},
		AllowCredentials: true,
	}))

	// Public
	router.GET("/healthcheck", handlers.HealthCheck)
	router.POST("/register", cfg.AuthHandler.Register)
	router.POST("/login", cfg.AuthHandler.Login)
	router.POST("/webhooks/metrics", cfg.IngestHandler.Webhook)

	// Protected
	protected := router.Group("/api")
	protected.Use(cfg.AuthMiddleware.RequireAuth())

	protected.POST("/surveys", cfg.SurveyHandler.Submit)
	protected.GET("/surveys", cfg.SurveyHandler.History)

	protected.GET("/dashboard/snapshot", cfg.DashboardHandler.Snapshot)
	protected.GET("/dashboard/trends", cfg.DashboardHandler.Trends)

	protected.GET("/prescriptions", cfg.PrescriptionHandler.GetByDate)
	protected.POST("/prescriptions/items/:itemId/complete", cfg.PrescriptionHandler.CompleteItem)

	protected.GET("/jobs/:id", cfg.JobsHandler.GetStatus)
	protected.GET("/sse/stream", cfg.SSEHandler.Stream)

	// Admin
	admin := protected.Group("/admin")
	admin.Use(cfg.AuthMiddleware.RequireAdmin())

	admin.GET("/rules", cfg.AdminHandler.ListRules)
	admin.POST("/rules", cfg.AdminHandler.CreateRule)
	admin.PUT("/rules/:id", cfg.AdminHandler.UpdateRule)
	admin.DELETE("/rules/:id", cfg.AdminHandler.DeleteRule)

	admin.GET("/protocols", cfg.AdminHandler.ListProtocols)
	admin.POST("/protocols", cfg.AdminHandler.CreateProtocol)
	admin.PUT("/protocols/:id", cfg.AdminHandler.UpdateProtocol)

	admin.GET("/flags", cfg.AdminHandler.ListFlags)
	admin.PUT("/flags", cfg.AdminHandler.SetFlag)

	return router
}
