package main

import (
	"fmt"
	"log"
	"time"

	"omr-audit-backend/internal/config"
	"omr-audit-backend/internal/middleware"
	"omr-audit-backend/internal/models"
	"omr-audit-backend/internal/routes"
	"omr-audit-backend/internal/storage"
	"omr-audit-backend/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on system env")
	}

	cfg := config.Load()
	logger.Init(&logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	db := config.InitDB()

	db.AutoMigrate(
		&models.Batch{},
		&models.Item{},
		&models.Response{},
	)

	paths := storage.NewPaths(cfg.StorageRoot)
	if err := paths.EnsureDirs(); err != nil {
		log.Fatalf("failed to create storage directories: %v", err)
	}

	r := gin.New()
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestLogger())
	// CORS config
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Audit-Token", "X-Audit-User"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, db, cfg, paths)

	r.Run(fmt.Sprintf(":%d", cfg.Port))
}
