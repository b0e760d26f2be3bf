package main

import (
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	v1 "github.com/agari-platform/folio/api/v1"
	"github.com/agari-platform/folio/config"
	"github.com/agari-platform/folio/database"
	"github.com/agari-platform/folio/lib/keycloak"
	"github.com/agari-platform/folio/logger"
	"github.com/agari-platform/folio/repositories"
	"github.com/agari-platform/folio/services"
)

func main() {
	// Load configuration
	config.LoadEnv()
	cfg := config.Load()

	appLogger, err := logger.New(cfg.Mode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	// Database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		appLogger.Fatal("failed to connect to database", "error", err)
	}
	if err := database.Migrate(db, cfg.SlugReuse); err != nil {
		appLogger.Fatal("failed to run migrations", "error", err)
	}

	// Identity provider
	kc, err := keycloak.NewClient(cfg.Keycloak, appLogger)
	if err != nil {
		appLogger.Fatal("failed to configure keycloak client", "error", err)
	}

	// Repositories
	pathogenRepo := repositories.NewPathogenRepository(db)
	projectRepo := repositories.NewProjectRepository(db)
	studyRepo := repositories.NewStudyRepository(db)
	viewRepo := repositories.NewViewRepository(db)

	// Services
	provisioning := services.NewProvisioningService(kc, cfg.AppName, appLogger)
	pathogens := services.NewPathogenService(pathogenRepo, appLogger)
	projects := services.NewProjectService(projectRepo, pathogenRepo, viewRepo, provisioning, appLogger)
	studies := services.NewStudyService(studyRepo, projectRepo, viewRepo, appLogger)

	// Set Gin mode
	if cfg.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize router
	router := gin.Default()

	// CORS configuration
	router.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	}))

	// Register API routes
	apiV1 := router.Group("/api/v1")
	v1.RegisterRoutes(apiV1, v1.Dependencies{
		Pathogens:    pathogens,
		Projects:     projects,
		Studies:      studies,
		Provisioning: provisioning,
		Keycloak:     kc,
		AppName:      cfg.AppName,
		Log:          appLogger,
	})

	// Start server
	appLogger.Info("folio starting", "port", cfg.Port, "mode", cfg.Mode, "slugReusePolicy", string(cfg.SlugReuse))
	if err := router.Run(":" + cfg.Port); err != nil {
		appLogger.Fatal("failed to start server", "error", err)
	}
}
