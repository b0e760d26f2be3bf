package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/agari-platform/folio/lib/keycloak"
	"github.com/agari-platform/folio/logger"
	"github.com/agari-platform/folio/middleware"
	"github.com/agari-platform/folio/services"
)

// Dependencies carries the wired services and clients the v1 API needs.
type Dependencies struct {
	Pathogens    *services.PathogenService
	Projects     *services.ProjectService
	Studies      *services.StudyService
	Provisioning *services.ProvisioningService
	Keycloak     *keycloak.Client
	AppName      string
	Log          *logger.Logger
}

// RegisterRoutes registers all v1 API routes. Every route except the health
// check sits behind token authentication; reads additionally demand the READ
// scope on the application resource and mutations the WRITE scope.
func RegisterRoutes(router *gin.RouterGroup, deps Dependencies) {
	// Health check endpoint
	router.GET("/health", HealthCheck)

	authn := middleware.AuthMiddleware(deps.Keycloak, deps.Log)
	read := middleware.RequireScopes(deps.AppName, keycloak.ScopeRead)
	write := middleware.RequireScopes(deps.AppName, keycloak.ScopeWrite)

	// Auth self-test endpoints
	authGroup := router.Group("/auth")
	authGroup.Use(authn)
	{
		authGroup.GET("/test", TestAuth)
		authGroup.GET("/test/read", read, TestReadAccess)
		authGroup.GET("/test/write", write, TestWriteAccess)
		authGroup.POST("/test/admin", read, write, TestAdminAccess)
	}

	// Pathogen endpoints
	pathogenController := NewPathogenController(deps.Pathogens)
	pathogenGroup := router.Group("/pathogens")
	pathogenGroup.Use(authn)
	{
		pathogenGroup.GET("", read, pathogenController.ListPathogens)
		pathogenGroup.POST("", write, pathogenController.CreatePathogen)
		pathogenGroup.GET("/:id", read, pathogenController.GetPathogen)
		pathogenGroup.PUT("/:id", write, pathogenController.UpdatePathogen)
		pathogenGroup.DELETE("/:id", write, pathogenController.DeletePathogen)
		pathogenGroup.POST("/:id/restore", write, pathogenController.RestorePathogen)
	}

	// Project endpoints, including the authorization group passthroughs
	projectController := NewProjectController(deps.Projects, deps.Provisioning)
	projectGroup := router.Group("/projects")
	projectGroup.Use(authn)
	{
		projectGroup.GET("", read, projectController.ListProjects)
		projectGroup.GET("/summaries", read, projectController.ListProjectSummaries)
		projectGroup.POST("", write, projectController.CreateProject)
		projectGroup.GET("/:id", read, projectController.GetProject)
		projectGroup.PUT("/:id", write, projectController.UpdateProject)
		projectGroup.DELETE("/:id", write, projectController.DeleteProject)
		projectGroup.POST("/:id/restore", write, projectController.RestoreProject)
		projectGroup.GET("/:id/group/members", read, projectController.ListGroupMembers)
		projectGroup.POST("/:id/group/members/:username", write, projectController.AddGroupMember)
		projectGroup.DELETE("/:id/group/members/:username", write, projectController.RemoveGroupMember)
	}

	// Study endpoints
	studyController := NewStudyController(deps.Studies)
	studyGroup := router.Group("/studies")
	studyGroup.Use(authn)
	{
		studyGroup.GET("", read, studyController.ListStudies)
		studyGroup.GET("/details", read, studyController.ListStudyDetails)
		studyGroup.POST("", write, studyController.CreateStudy)
		studyGroup.GET("/:id", read, studyController.GetStudy)
		studyGroup.PUT("/:id", write, studyController.UpdateStudy)
		studyGroup.DELETE("/:id", write, studyController.DeleteStudy)
		studyGroup.POST("/:id/restore", write, studyController.RestoreStudy)
	}
}
