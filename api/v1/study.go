package v1

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/agari-platform/folio/dto"
	"github.com/agari-platform/folio/services"
)

// StudyController handles study related endpoints
type StudyController struct {
	studies *services.StudyService
}

// NewStudyController creates a new study controller instance
func NewStudyController(studies *services.StudyService) *StudyController {
	return &StudyController{studies: studies}
}

// ListStudies godoc
// @Summary List studies with pagination and filtering
// @Tags studies
// @Produce json
// @Param projectId query string false "Filter by project"
// @Param search query string false "Search in study identifier and name"
// @Param includeDeleted query boolean false "Include soft-deleted studies"
// @Param sortBy query string false "Field to sort by (created_at, updated_at, name, study_id, start_date)"
// @Param sortOrder query string false "Sort order (asc or desc)"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} dto.StudyListResponse
// @Router /studies [get]
func (s *StudyController) ListStudies(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	pageSize, err := strconv.Atoi(c.DefaultQuery("pageSize", "10"))
	if err != nil || pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}

	filter := dto.StudyFilter{
		ProjectID:      c.Query("projectId"),
		Search:         c.Query("search"),
		IncludeDeleted: c.Query("includeDeleted") == "true",
		SortBy:         c.DefaultQuery("sortBy", "created_at"),
		SortOrder:      c.DefaultQuery("sortOrder", "desc"),
		Page:           page,
		PageSize:       pageSize,
	}

	response, err := s.studies.ListStudies(filter)
	if err != nil {
		respondError(c, err, "Failed to retrieve studies")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   response,
	})
}

// ListStudyDetails godoc
// @Summary List study detail rows
// @Description Get denormalised study rows joined with their project and pathogen
// @Tags studies
// @Produce json
// @Param projectId query string false "Filter by project"
// @Success 200 {object} map[string]interface{}
// @Router /studies/details [get]
func (s *StudyController) ListStudyDetails(c *gin.Context) {
	details, err := s.studies.StudyDetails(c.Query("projectId"))
	if err != nil {
		respondError(c, err, "Failed to retrieve study details")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   details,
	})
}

// CreateStudy godoc
// @Summary Create a new study
// @Description Create a study under an active project
// @Tags studies
// @Accept json
// @Produce json
// @Param study body dto.CreateStudyRequest true "Study Data"
// @Success 201 {object} dto.StudyResponse
// @Router /studies [post]
func (s *StudyController) CreateStudy(c *gin.Context) {
	var req dto.CreateStudyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data: "+err.Error())
		return
	}

	study, err := s.studies.CreateStudy(req)
	if err != nil {
		respondError(c, err, "Failed to create study")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status": "success",
		"data":   dto.ToStudyResponse(&study),
	})
}

// GetStudy godoc
// @Summary Get a study by ID
// @Tags studies
// @Produce json
// @Param id path string true "Study ID"
// @Param includeDeleted query boolean false "Include soft-deleted studies"
// @Success 200 {object} dto.StudyResponse
// @Router /studies/{id} [get]
func (s *StudyController) GetStudy(c *gin.Context) {
	id := c.Param("id")
	includeDeleted := c.Query("includeDeleted") == "true"

	study, err := s.studies.GetStudy(id, includeDeleted)
	if err != nil {
		respondError(c, err, "Failed to retrieve study")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   dto.ToStudyResponse(&study),
	})
}

// UpdateStudy godoc
// @Summary Update an existing study
// @Description Update study details; the study identifier and project association are immutable
// @Tags studies
// @Accept json
// @Produce json
// @Param id path string true "Study ID"
// @Param study body dto.UpdateStudyRequest true "Study Data"
// @Success 200 {object} dto.StudyResponse
// @Router /studies/{id} [put]
func (s *StudyController) UpdateStudy(c *gin.Context) {
	id := c.Param("id")

	var req dto.UpdateStudyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data: "+err.Error())
		return
	}

	study, err := s.studies.UpdateStudy(id, req)
	if err != nil {
		respondError(c, err, "Failed to update study")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   dto.ToStudyResponse(&study),
	})
}

// DeleteStudy godoc
// @Summary Delete a study
// @Tags studies
// @Produce json
// @Param id path string true "Study ID"
// @Success 200 {object} map[string]interface{}
// @Router /studies/{id} [delete]
func (s *StudyController) DeleteStudy(c *gin.Context) {
	if err := s.studies.DeleteStudy(c.Param("id")); err != nil {
		respondError(c, err, "Failed to delete study")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Study deleted successfully",
	})
}

// RestoreStudy godoc
// @Summary Restore a deleted study
// @Description Clear the soft-delete mark on a study; refused while its project is deleted
// @Tags studies
// @Produce json
// @Param id path string true "Study ID"
// @Success 200 {object} map[string]interface{}
// @Router /studies/{id}/restore [post]
func (s *StudyController) RestoreStudy(c *gin.Context) {
	if err := s.studies.RestoreStudy(c.Param("id")); err != nil {
		respondError(c, err, "Failed to restore study")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Study restored successfully",
	})
}
