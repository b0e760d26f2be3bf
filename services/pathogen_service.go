package services

import (
	"fmt"
	"strings"

	"github.com/agari-platform/folio/dto"
	"github.com/agari-platform/folio/logger"
	"github.com/agari-platform/folio/models"
	"github.com/agari-platform/folio/repositories"
)

// PathogenService handles business logic for pathogens
type PathogenService struct {
	pathogenRepo *repositories.PathogenRepository
	log          *logger.Logger
}

// NewPathogenService creates a new pathogen service instance
func NewPathogenService(pathogenRepo *repositories.PathogenRepository, log *logger.Logger) *PathogenService {
	return &PathogenService{
		pathogenRepo: pathogenRepo,
		log:          log.With("component", "pathogens"),
	}
}

// CreatePathogen registers a pathogen. Names are unique; a duplicate
// returns models.ErrConflict.
func (s *PathogenService) CreatePathogen(req dto.CreatePathogenRequest) (models.Pathogen, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return models.Pathogen{}, fmt.Errorf("pathogen name is required: %w", models.ErrInvalidInput)
	}

	pathogen := models.Pathogen{
		Name:           name,
		ScientificName: req.ScientificName,
		Description:    req.Description,
	}
	if err := s.pathogenRepo.Create(&pathogen); err != nil {
		return models.Pathogen{}, err
	}

	s.log.Info("registered pathogen", "name", pathogen.Name, "id", pathogen.ID)
	return pathogen, nil
}

// GetPathogen retrieves a pathogen by ID
func (s *PathogenService) GetPathogen(id string, includeDeleted bool) (models.Pathogen, error) {
	return s.pathogenRepo.FindByID(id, includeDeleted)
}

// ListPathogens retrieves pathogens with pagination, filtering and sorting
func (s *PathogenService) ListPathogens(filter dto.PathogenFilter) (dto.PathogenListResponse, error) {
	var response dto.PathogenListResponse

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 10
	}
	if filter.SortBy == "" {
		filter.SortBy = "name"
	}
	if filter.SortOrder != "asc" && filter.SortOrder != "desc" {
		filter.SortOrder = "asc"
	}

	validSortColumns := map[string]bool{
		"created_at":      true,
		"updated_at":      true,
		"name":            true,
		"scientific_name": true,
	}
	if !validSortColumns[filter.SortBy] {
		filter.SortBy = "name"
	}

	pathogens, totalCount, err := s.pathogenRepo.FindWithPagination(filter)
	if err != nil {
		return response, err
	}

	totalPages := int(totalCount) / filter.PageSize
	if int(totalCount)%filter.PageSize > 0 {
		totalPages++
	}

	response = dto.PathogenListResponse{
		Pathogens:  pathogens,
		TotalCount: totalCount,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: totalPages,
	}
	return response, nil
}

// UpdatePathogen applies the non-nil request fields to an active pathogen
func (s *PathogenService) UpdatePathogen(id string, req dto.UpdatePathogenRequest) (models.Pathogen, error) {
	pathogen, err := s.pathogenRepo.FindByID(id, false)
	if err != nil {
		return models.Pathogen{}, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return models.Pathogen{}, fmt.Errorf("pathogen name is required: %w", models.ErrInvalidInput)
		}
		pathogen.Name = name
	}
	if req.ScientificName != nil {
		pathogen.ScientificName = req.ScientificName
	}
	if req.Description != nil {
		pathogen.Description = req.Description
	}

	if err := s.pathogenRepo.Update(&pathogen); err != nil {
		return models.Pathogen{}, err
	}
	return pathogen, nil
}

// DeletePathogen soft-deletes a pathogen, its non-deleted projects, and
// their non-deleted studies in one transaction. A partial cascade is never
// visible: either everything is marked or nothing is.
func (s *PathogenService) DeletePathogen(id string) error {
	if err := s.pathogenRepo.Delete(id); err != nil {
		return err
	}
	s.log.Info("soft-deleted pathogen and its dependents", "id", id)
	return nil
}

// RestorePathogen clears the soft-delete mark on the pathogen row only.
// Projects and studies deleted by the cascade stay deleted until restored
// individually.
func (s *PathogenService) RestorePathogen(id string) error {
	return s.pathogenRepo.Restore(id)
}
