package dto

import (
	"time"

	"github.com/agari-platform/folio/models"
)

// StudyFilter represents filter criteria for studies
type StudyFilter struct {
	ProjectID      string
	Search         string
	IncludeDeleted bool
	SortBy         string
	SortOrder      string
	Page           int
	PageSize       int
}

// StudyListResponse represents paginated study list response
type StudyListResponse struct {
	Studies    []models.Study `json:"studies"`
	TotalCount int64          `json:"totalCount"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
}

// CreateStudyRequest represents the request payload for creating a study.
// StudyID is optional; when omitted a short identifier is generated.
type CreateStudyRequest struct {
	StudyID     string     `json:"studyId"`
	Name        string     `json:"name" binding:"required"`
	ProjectID   string     `json:"projectId" binding:"required"`
	Description *string    `json:"description"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
}

// UpdateStudyRequest represents the request payload for updating a study.
// The study identifier and project association are immutable. Nil fields
// are left unchanged.
type UpdateStudyRequest struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
}

// StudyResponse represents the standard response format for a study
type StudyResponse struct {
	ID          string     `json:"id"`
	StudyID     string     `json:"studyId"`
	Name        string     `json:"name"`
	Description *string    `json:"description,omitempty"`
	ProjectID   string     `json:"projectId"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
}

// ToStudyResponse converts a study model to its response form
func ToStudyResponse(study *models.Study) StudyResponse {
	resp := StudyResponse{
		ID:          study.ID,
		StudyID:     study.StudyID,
		Name:        study.Name,
		Description: study.Description,
		ProjectID:   study.ProjectID,
		StartDate:   study.StartDate,
		EndDate:     study.EndDate,
		CreatedAt:   study.CreatedAt,
		UpdatedAt:   study.UpdatedAt,
	}
	if study.DeletedAt.Valid {
		t := study.DeletedAt.Time
		resp.DeletedAt = &t
	}
	return resp
}
