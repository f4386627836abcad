package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"omr-audit-backend/internal/config"
	handler "omr-audit-backend/internal/handlers"
	"omr-audit-backend/internal/locks"
	"omr-audit-backend/internal/middleware"
	"omr-audit-backend/internal/services/audit"
	"omr-audit-backend/internal/storage"
)

func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg *config.Config, paths *storage.Paths) {
	registry := locks.NewRegistry()
	auditService := audit.NewService(db, paths, registry)
	auditHandler := handler.NewAuditHandler(auditService, paths)

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	audits := api.Group("/audits", middleware.TokenAuth(cfg.AuditToken))
	audits.GET("", auditHandler.List)
	audits.GET("/export", auditHandler.Export)
	audits.POST("/cleanup", auditHandler.Cleanup)
	audits.POST("/ingest", auditHandler.Ingest)
	audits.GET("/:id", auditHandler.Get)
	audits.POST("/:id/decision", auditHandler.Decision)

	// Batch-scoped public assets (original and marked sheet images)
	r.Static("/static", paths.PublicDir())
}
