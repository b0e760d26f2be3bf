package v1

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/agari-platform/folio/dto"
	"github.com/agari-platform/folio/middleware"
	"github.com/agari-platform/folio/services"
)

// ProjectController handles project related endpoints, including the
// authorization group passthroughs backed by the provisioning service.
type ProjectController struct {
	projects     *services.ProjectService
	provisioning *services.ProvisioningService
}

// NewProjectController creates a new project controller instance
func NewProjectController(projects *services.ProjectService, provisioning *services.ProvisioningService) *ProjectController {
	return &ProjectController{projects: projects, provisioning: provisioning}
}

// ListProjects godoc
// @Summary List projects with pagination and filtering
// @Description Get a paginated list of projects
// @Tags projects
// @Accept json
// @Produce json
// @Param organisationId query string false "Filter by organisation"
// @Param userId query string false "Filter by creating user"
// @Param privacy query string false "Filter by privacy (public, private)"
// @Param pathogenId query string false "Filter by pathogen"
// @Param search query string false "Search term for slug/name/description"
// @Param includeDeleted query boolean false "Include soft-deleted projects"
// @Param sortBy query string false "Field to sort by (created_at, updated_at, name, slug)"
// @Param sortOrder query string false "Sort order (asc or desc)"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} dto.ProjectListResponse
// @Router /projects [get]
func (p *ProjectController) ListProjects(c *gin.Context) {
	// Parse query parameters
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	pageSize, err := strconv.Atoi(c.DefaultQuery("pageSize", "10"))
	if err != nil || pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}

	// Build filter
	filter := dto.ProjectFilter{
		OrganisationID: c.Query("organisationId"),
		UserID:         c.Query("userId"),
		Privacy:        c.Query("privacy"),
		PathogenID:     c.Query("pathogenId"),
		Search:         c.Query("search"),
		IncludeDeleted: c.Query("includeDeleted") == "true",
		SortBy:         c.DefaultQuery("sortBy", "created_at"),
		SortOrder:      c.DefaultQuery("sortOrder", "desc"),
		Page:           page,
		PageSize:       pageSize,
	}

	// Call service
	response, err := p.projects.ListProjects(filter)
	if err != nil {
		respondError(c, err, "Failed to retrieve projects")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   response,
	})
}

// ListProjectSummaries godoc
// @Summary List project summary rows
// @Description Get denormalised project rows with pathogen names and study counts
// @Tags projects
// @Produce json
// @Param organisationId query string false "Filter by organisation"
// @Success 200 {object} map[string]interface{}
// @Router /projects/summaries [get]
func (p *ProjectController) ListProjectSummaries(c *gin.Context) {
	summaries, err := p.projects.ProjectSummaries(c.Query("organisationId"))
	if err != nil {
		respondError(c, err, "Failed to retrieve project summaries")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   summaries,
	})
}

// GetProject godoc
// @Summary Get a project by ID
// @Description Get details of a project, optionally with its studies preloaded
// @Tags projects
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param includeDeleted query boolean false "Include soft-deleted projects"
// @Param withStudies query boolean false "Preload the project's studies"
// @Success 200 {object} dto.ProjectResponse
// @Router /projects/{id} [get]
func (p *ProjectController) GetProject(c *gin.Context) {
	projectID := c.Param("id")
	includeDeleted := c.Query("includeDeleted") == "true"

	if c.Query("withStudies") == "true" {
		project, err := p.projects.GetProjectWithStudies(projectID)
		if err != nil {
			respondError(c, err, "Failed to retrieve project")
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status": "success",
			"data":   project,
		})
		return
	}

	project, err := p.projects.GetProject(projectID, includeDeleted)
	if err != nil {
		respondError(c, err, "Failed to retrieve project")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   dto.ToProjectResponse(&project),
	})
}

// CreateProject godoc
// @Summary Create a new project
// @Description Create a project and provision its authorization resources in one atomic operation
// @Tags projects
// @Accept json
// @Produce json
// @Param project body dto.CreateProjectRequest true "Project Data"
// @Success 201 {object} dto.ProjectResponse
// @Router /projects [post]
func (p *ProjectController) CreateProject(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "User not authenticated"})
		return
	}

	// Parse request body to DTO first
	var req dto.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data: "+err.Error())
		return
	}

	project, err := p.projects.CreateProject(c.Request.Context(), req, user.Username)
	if err != nil {
		respondError(c, err, "Failed to create project")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status": "success",
		"data":   dto.ToProjectResponse(&project),
	})
}

// UpdateProject godoc
// @Summary Update an existing project
// @Description Update project details; the slug is immutable
// @Tags projects
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param project body dto.UpdateProjectRequest true "Project Data"
// @Success 200 {object} dto.ProjectResponse
// @Router /projects/{id} [put]
func (p *ProjectController) UpdateProject(c *gin.Context) {
	projectID := c.Param("id")

	// Parse request body to DTO
	var req dto.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data: "+err.Error())
		return
	}

	project, err := p.projects.UpdateProject(projectID, req)
	if err != nil {
		respondError(c, err, "Failed to update project")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   dto.ToProjectResponse(&project),
	})
}

// DeleteProject godoc
// @Summary Delete a project
// @Description Soft-delete a project and its active studies; authorization resources are kept for restore
// @Tags projects
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} map[string]interface{}
// @Router /projects/{id} [delete]
func (p *ProjectController) DeleteProject(c *gin.Context) {
	projectID := c.Param("id")

	if err := p.projects.DeleteProject(projectID); err != nil {
		respondError(c, err, "Failed to delete project")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Project deleted successfully",
	})
}

// RestoreProject godoc
// @Summary Restore a deleted project
// @Description Clear the soft-delete mark on a project; its studies stay deleted until restored individually
// @Tags projects
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} map[string]interface{}
// @Router /projects/{id}/restore [post]
func (p *ProjectController) RestoreProject(c *gin.Context) {
	projectID := c.Param("id")

	if err := p.projects.RestoreProject(projectID); err != nil {
		respondError(c, err, "Failed to restore project")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Project restored successfully",
	})
}

// ListGroupMembers godoc
// @Summary List the members of a project's admin group
// @Tags projects
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} map[string]interface{}
// @Router /projects/{id}/group/members [get]
func (p *ProjectController) ListGroupMembers(c *gin.Context) {
	project, err := p.projects.GetProject(c.Param("id"), false)
	if err != nil {
		respondError(c, err, "Failed to retrieve project")
		return
	}

	members, err := p.provisioning.GroupMembers(c.Request.Context(), project.Slug)
	if err != nil {
		respondError(c, err, "Failed to retrieve group members")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   members,
	})
}

// AddGroupMember godoc
// @Summary Add a user to a project's admin group
// @Tags projects
// @Produce json
// @Param id path string true "Project ID"
// @Param username path string true "Username to add"
// @Success 200 {object} map[string]interface{}
// @Router /projects/{id}/group/members/{username} [post]
func (p *ProjectController) AddGroupMember(c *gin.Context) {
	project, err := p.projects.GetProject(c.Param("id"), false)
	if err != nil {
		respondError(c, err, "Failed to retrieve project")
		return
	}

	username := c.Param("username")
	if err := p.provisioning.AddGroupMember(c.Request.Context(), project.Slug, username); err != nil {
		respondError(c, err, "Failed to add group member")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "User " + username + " added to project group",
	})
}

// RemoveGroupMember godoc
// @Summary Remove a user from a project's admin group
// @Tags projects
// @Produce json
// @Param id path string true "Project ID"
// @Param username path string true "Username to remove"
// @Success 200 {object} map[string]interface{}
// @Router /projects/{id}/group/members/{username} [delete]
func (p *ProjectController) RemoveGroupMember(c *gin.Context) {
	project, err := p.projects.GetProject(c.Param("id"), false)
	if err != nil {
		respondError(c, err, "Failed to retrieve project")
		return
	}

	username := c.Param("username")
	if err := p.provisioning.RemoveGroupMember(c.Request.Context(), project.Slug, username); err != nil {
		respondError(c, err, "Failed to remove group member")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "User " + username + " removed from project group",
	})
}
