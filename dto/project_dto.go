package dto

import (
	"time"

	"github.com/agari-platform/folio/models"
)

// ProjectFilter represents filter criteria for projects
type ProjectFilter struct {
	OrganisationID string
	UserID         string
	Privacy        string
	PathogenID     string
	Search         string
	IncludeDeleted bool
	SortBy         string
	SortOrder      string
	Page           int
	PageSize       int
}

// ProjectListResponse represents paginated project list response
type ProjectListResponse struct {
	Projects   []models.Project `json:"projects"`
	TotalCount int64            `json:"totalCount"`
	Page       int              `json:"page"`
	PageSize   int              `json:"pageSize"`
	TotalPages int              `json:"totalPages"`
}

// ProjectSummaryListResponse represents paginated rows from the
// project_summaries view
type ProjectSummaryListResponse struct {
	Projects   []models.ProjectSummary `json:"projects"`
	TotalCount int64                   `json:"totalCount"`
	Page       int                     `json:"page"`
	PageSize   int                     `json:"pageSize"`
	TotalPages int                     `json:"totalPages"`
}

// CreateProjectRequest represents the request payload for creating a new project.
// The slug becomes the project's permanent identifier in the authorization
// server and cannot be changed afterwards.
type CreateProjectRequest struct {
	Slug           string  `json:"slug" binding:"required"`
	Name           string  `json:"name" binding:"required"`
	Description    *string `json:"description"`
	OrganisationID string  `json:"organisationId" binding:"required"`
	Privacy        string  `json:"privacy"`
	PathogenID     *string `json:"pathogenId"`
}

// UpdateProjectRequest represents the request payload for updating an existing
// project. The slug is immutable and deliberately absent. Nil fields are left
// unchanged; an empty pathogenId clears the association.
type UpdateProjectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Privacy     *string `json:"privacy"`
	PathogenID  *string `json:"pathogenId"`
}

// ProjectResponse represents the standard response format for a project
type ProjectResponse struct {
	ID             string     `json:"id"`
	Slug           string     `json:"slug"`
	Name           string     `json:"name"`
	Description    *string    `json:"description,omitempty"`
	OrganisationID string     `json:"organisationId"`
	UserID         string     `json:"userId"`
	Privacy        string     `json:"privacy"`
	PathogenID     *string    `json:"pathogenId,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	DeletedAt      *time.Time `json:"deletedAt,omitempty"`
}

// ToProjectResponse converts a project model to its response form
func ToProjectResponse(project *models.Project) ProjectResponse {
	resp := ProjectResponse{
		ID:             project.ID,
		Slug:           project.Slug,
		Name:           project.Name,
		Description:    project.Description,
		OrganisationID: project.OrganisationID,
		UserID:         project.UserID,
		Privacy:        string(project.Privacy),
		PathogenID:     project.PathogenID,
		CreatedAt:      project.CreatedAt,
		UpdatedAt:      project.UpdatedAt,
	}
	if project.DeletedAt.Valid {
		t := project.DeletedAt.Time
		resp.DeletedAt = &t
	}
	return resp
}
