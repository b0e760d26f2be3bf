package v1

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/agari-platform/folio/dto"
	"github.com/agari-platform/folio/services"
)

// PathogenController handles pathogen related endpoints
type PathogenController struct {
	pathogens *services.PathogenService
}

// NewPathogenController creates a new pathogen controller instance
func NewPathogenController(pathogens *services.PathogenService) *PathogenController {
	return &PathogenController{pathogens: pathogens}
}

// ListPathogens returns a paginated list of pathogens
// @Summary List pathogens
// @Description Get a paginated list of pathogens with filtering and sorting
// @Tags pathogens
// @Produce json
// @Param search query string false "Search in name and scientific name"
// @Param includeDeleted query boolean false "Include soft-deleted pathogens"
// @Param sortBy query string false "Sort field (created_at, updated_at, name, scientific_name)"
// @Param sortOrder query string false "Sort direction (asc, desc)"
// @Param page query int false "Page number (default: 1)"
// @Param pageSize query int false "Items per page (default: 10)"
// @Success 200 {object} map[string]interface{}
// @Router /pathogens [get]
func (p *PathogenController) ListPathogens(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("pageSize", "10"))
	if err != nil || pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}

	filter := dto.PathogenFilter{
		Search:         c.Query("search"),
		IncludeDeleted: c.Query("includeDeleted") == "true",
		SortBy:         c.DefaultQuery("sortBy", "name"),
		SortOrder:      c.DefaultQuery("sortOrder", "asc"),
		Page:           page,
		PageSize:       pageSize,
	}

	result, err := p.pathogens.ListPathogens(filter)
	if err != nil {
		respondError(c, err, "Failed to retrieve pathogens")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   result,
	})
}

// CreatePathogen registers a new pathogen
// @Summary Create a pathogen
// @Tags pathogens
// @Accept json
// @Produce json
// @Param pathogen body dto.CreatePathogenRequest true "Pathogen details"
// @Success 201 {object} map[string]interface{}
// @Router /pathogens [post]
func (p *PathogenController) CreatePathogen(c *gin.Context) {
	var req dto.CreatePathogenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	pathogen, err := p.pathogens.CreatePathogen(req)
	if err != nil {
		respondError(c, err, "Failed to create pathogen")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status":  "success",
		"message": "Pathogen created successfully",
		"data":    dto.ToPathogenResponse(&pathogen),
	})
}

// GetPathogen returns a single pathogen by ID
// @Summary Get a pathogen
// @Tags pathogens
// @Produce json
// @Param id path string true "Pathogen ID"
// @Param includeDeleted query boolean false "Include soft-deleted pathogens"
// @Success 200 {object} map[string]interface{}
// @Router /pathogens/{id} [get]
func (p *PathogenController) GetPathogen(c *gin.Context) {
	id := c.Param("id")
	includeDeleted := c.Query("includeDeleted") == "true"

	pathogen, err := p.pathogens.GetPathogen(id, includeDeleted)
	if err != nil {
		respondError(c, err, "Failed to retrieve pathogen")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   dto.ToPathogenResponse(&pathogen),
	})
}

// UpdatePathogen applies a partial update to a pathogen
// @Summary Update a pathogen
// @Tags pathogens
// @Accept json
// @Produce json
// @Param id path string true "Pathogen ID"
// @Param pathogen body dto.UpdatePathogenRequest true "Fields to update"
// @Success 200 {object} map[string]interface{}
// @Router /pathogens/{id} [put]
func (p *PathogenController) UpdatePathogen(c *gin.Context) {
	id := c.Param("id")

	var req dto.UpdatePathogenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	pathogen, err := p.pathogens.UpdatePathogen(id, req)
	if err != nil {
		respondError(c, err, "Failed to update pathogen")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Pathogen updated successfully",
		"data":    dto.ToPathogenResponse(&pathogen),
	})
}

// DeletePathogen soft-deletes a pathogen together with its active projects
// and their studies
// @Summary Delete a pathogen
// @Tags pathogens
// @Produce json
// @Param id path string true "Pathogen ID"
// @Success 200 {object} map[string]interface{}
// @Router /pathogens/{id} [delete]
func (p *PathogenController) DeletePathogen(c *gin.Context) {
	id := c.Param("id")

	if err := p.pathogens.DeletePathogen(id); err != nil {
		respondError(c, err, "Failed to delete pathogen")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Pathogen deleted successfully",
	})
}

// RestorePathogen clears the soft-delete mark on a pathogen
// @Summary Restore a deleted pathogen
// @Tags pathogens
// @Produce json
// @Param id path string true "Pathogen ID"
// @Success 200 {object} map[string]interface{}
// @Router /pathogens/{id}/restore [post]
func (p *PathogenController) RestorePathogen(c *gin.Context) {
	id := c.Param("id")

	if err := p.pathogens.RestorePathogen(id); err != nil {
		respondError(c, err, "Failed to restore pathogen")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Pathogen restored successfully",
	})
}
