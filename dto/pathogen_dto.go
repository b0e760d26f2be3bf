package dto

import (
	"time"

	"github.com/agari-platform/folio/models"
)

// PathogenFilter represents filter criteria for pathogens
type PathogenFilter struct {
	Search         string
	IncludeDeleted bool
	SortBy         string
	SortOrder      string
	Page           int
	PageSize       int
}

// PathogenListResponse represents paginated pathogen list response
type PathogenListResponse struct {
	Pathogens  []models.Pathogen `json:"pathogens"`
	TotalCount int64             `json:"totalCount"`
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
	TotalPages int               `json:"totalPages"`
}

// CreatePathogenRequest represents the request payload for registering a pathogen
type CreatePathogenRequest struct {
	Name           string  `json:"name" binding:"required"`
	ScientificName *string `json:"scientificName"`
	Description    *string `json:"description"`
}

// UpdatePathogenRequest represents the request payload for updating a pathogen.
// Nil fields are left unchanged.
type UpdatePathogenRequest struct {
	Name           *string `json:"name"`
	ScientificName *string `json:"scientificName"`
	Description    *string `json:"description"`
}

// PathogenResponse represents the standard response format for a pathogen
type PathogenResponse struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	ScientificName *string    `json:"scientificName,omitempty"`
	Description    *string    `json:"description,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	DeletedAt      *time.Time `json:"deletedAt,omitempty"`
}

// ToPathogenResponse converts a pathogen model to its response form
func ToPathogenResponse(pathogen *models.Pathogen) PathogenResponse {
	resp := PathogenResponse{
		ID:             pathogen.ID,
		Name:           pathogen.Name,
		ScientificName: pathogen.ScientificName,
		Description:    pathogen.Description,
		CreatedAt:      pathogen.CreatedAt,
		UpdatedAt:      pathogen.UpdatedAt,
	}
	if pathogen.DeletedAt.Valid {
		t := pathogen.DeletedAt.Time
		resp.DeletedAt = &t
	}
	return resp
}
