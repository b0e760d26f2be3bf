package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/agari-platform/folio/dto"
	"github.com/agari-platform/folio/logger"
	"github.com/agari-platform/folio/models"
	"github.com/agari-platform/folio/repositories"
	"github.com/agari-platform/folio/utils"
)

// StudyService handles business logic for studies
type StudyService struct {
	studyRepo   *repositories.StudyRepository
	projectRepo *repositories.ProjectRepository
	viewRepo    *repositories.ViewRepository
	log         *logger.Logger
}

// NewStudyService creates a new study service instance
func NewStudyService(
	studyRepo *repositories.StudyRepository,
	projectRepo *repositories.ProjectRepository,
	viewRepo *repositories.ViewRepository,
	log *logger.Logger,
) *StudyService {
	return &StudyService{
		studyRepo:   studyRepo,
		projectRepo: projectRepo,
		viewRepo:    viewRepo,
		log:         log.With("component", "studies"),
	}
}

// CreateStudy creates a study under an active project. When the request
// carries no study identifier a short one is generated. A duplicate
// identifier returns models.ErrConflict.
func (s *StudyService) CreateStudy(req dto.CreateStudyRequest) (models.Study, error) {
	if _, err := s.projectRepo.FindByID(req.ProjectID, false); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.Study{}, fmt.Errorf("project %s: %w", req.ProjectID, models.ErrInvalidReference)
		}
		return models.Study{}, err
	}

	if err := validateDateRange(req.StartDate, req.EndDate); err != nil {
		return models.Study{}, err
	}

	studyID := req.StudyID
	if studyID == "" {
		studyID = utils.GenerateStudyID()
	}

	study := models.Study{
		StudyID:     studyID,
		Name:        req.Name,
		Description: req.Description,
		ProjectID:   req.ProjectID,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	}
	if err := s.studyRepo.Create(&study); err != nil {
		return models.Study{}, err
	}

	s.log.Info("created study", "studyId", study.StudyID, "project", study.ProjectID)
	return study, nil
}

// GetStudy retrieves a study by ID
func (s *StudyService) GetStudy(id string, includeDeleted bool) (models.Study, error) {
	return s.studyRepo.FindByID(id, includeDeleted)
}

// GetStudyByStudyID retrieves a study by its externally-visible identifier
func (s *StudyService) GetStudyByStudyID(studyID string, includeDeleted bool) (models.Study, error) {
	return s.studyRepo.FindByStudyID(studyID, includeDeleted)
}

// ListStudies retrieves studies with pagination, filtering and sorting
func (s *StudyService) ListStudies(filter dto.StudyFilter) (dto.StudyListResponse, error) {
	var response dto.StudyListResponse

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 10
	}
	if filter.SortBy == "" {
		filter.SortBy = "created_at"
	}
	if filter.SortOrder != "asc" && filter.SortOrder != "desc" {
		filter.SortOrder = "desc"
	}

	validSortColumns := map[string]bool{
		"created_at": true,
		"updated_at": true,
		"name":       true,
		"study_id":   true,
		"start_date": true,
	}
	if !validSortColumns[filter.SortBy] {
		filter.SortBy = "created_at"
	}

	studies, totalCount, err := s.studyRepo.FindWithPagination(filter)
	if err != nil {
		return response, err
	}

	totalPages := int(totalCount) / filter.PageSize
	if int(totalCount)%filter.PageSize > 0 {
		totalPages++
	}

	response = dto.StudyListResponse{
		Studies:    studies,
		TotalCount: totalCount,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: totalPages,
	}
	return response, nil
}

// StudyDetails reads the study_details reporting view, optionally
// restricted to one project
func (s *StudyService) StudyDetails(projectID string) ([]models.StudyDetail, error) {
	return s.viewRepo.StudyDetails(projectID)
}

// UpdateStudy applies the non-nil request fields to an active study. The
// study identifier and project association are immutable.
func (s *StudyService) UpdateStudy(id string, req dto.UpdateStudyRequest) (models.Study, error) {
	study, err := s.studyRepo.FindByID(id, false)
	if err != nil {
		return models.Study{}, err
	}

	if req.Name != nil {
		study.Name = *req.Name
	}
	if req.Description != nil {
		study.Description = req.Description
	}
	if req.StartDate != nil {
		study.StartDate = req.StartDate
	}
	if req.EndDate != nil {
		study.EndDate = req.EndDate
	}
	if err := validateDateRange(study.StartDate, study.EndDate); err != nil {
		return models.Study{}, err
	}

	if err := s.studyRepo.Update(&study); err != nil {
		return models.Study{}, err
	}
	return study, nil
}

// DeleteStudy soft-deletes a single study. The project and sibling studies
// are untouched.
func (s *StudyService) DeleteStudy(id string) error {
	return s.studyRepo.Delete(id)
}

// RestoreStudy clears the soft-delete mark, but never resurrects a study
// whose project is itself still deleted: the project must be restored
// first.
func (s *StudyService) RestoreStudy(id string) error {
	study, err := s.studyRepo.FindByID(id, true)
	if err != nil {
		return err
	}
	if !study.DeletedAt.Valid {
		return nil
	}

	if _, err := s.projectRepo.FindByID(study.ProjectID, false); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("project %s is deleted, restore it first: %w",
				study.ProjectID, models.ErrInvalidReference)
		}
		return err
	}

	return s.studyRepo.Restore(id)
}

func validateDateRange(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return fmt.Errorf("end date precedes start date: %w", models.ErrInvalidInput)
	}
	return nil
}
