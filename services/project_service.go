package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/agari-platform/folio/dto"
	"github.com/agari-platform/folio/logger"
	"github.com/agari-platform/folio/models"
	"github.com/agari-platform/folio/repositories"
	"github.com/agari-platform/folio/utils"
)

// Provisioner keeps an external authorization graph aligned with project
// rows. A nil Provisioner disables the integration, which is how the admin
// CLI and most tests run.
type Provisioner interface {
	Provision(ctx context.Context, slug, username string) error
	Deprovision(ctx context.Context, slug string) error
}

// ProjectService handles business logic for projects
type ProjectService struct {
	projectRepo  *repositories.ProjectRepository
	pathogenRepo *repositories.PathogenRepository
	viewRepo     *repositories.ViewRepository
	provisioner  Provisioner
	log          *logger.Logger
}

// NewProjectService creates a new project service instance
func NewProjectService(
	projectRepo *repositories.ProjectRepository,
	pathogenRepo *repositories.PathogenRepository,
	viewRepo *repositories.ViewRepository,
	provisioner Provisioner,
	log *logger.Logger,
) *ProjectService {
	return &ProjectService{
		projectRepo:  projectRepo,
		pathogenRepo: pathogenRepo,
		viewRepo:     viewRepo,
		provisioner:  provisioner,
		log:          log.With("component", "projects"),
	}
}

// CreateProject validates the request, reserves the slug by inserting the
// project row, and then builds the authorization graph. The insert comes
// first so that of two concurrent creations with the same slug exactly one
// reaches the authorization server; the loser gets models.ErrConflict
// straight from the unique index. If provisioning fails, the reserved row
// is removed again: a stored project always implies a complete graph.
func (s *ProjectService) CreateProject(ctx context.Context, req dto.CreateProjectRequest, userID string) (models.Project, error) {
	if !utils.IsValidSlug(req.Slug) {
		return models.Project{}, fmt.Errorf("slug %q must be lowercase alphanumeric with single hyphens: %w",
			req.Slug, models.ErrInvalidInput)
	}

	privacy, err := normalizePrivacy(req.Privacy)
	if err != nil {
		return models.Project{}, err
	}

	pathogenID, err := s.resolvePathogenID(req.PathogenID)
	if err != nil {
		return models.Project{}, err
	}

	project := models.Project{
		Slug:           req.Slug,
		Name:           req.Name,
		Description:    req.Description,
		OrganisationID: req.OrganisationID,
		UserID:         userID,
		Privacy:        privacy,
		PathogenID:     pathogenID,
	}

	if err := s.projectRepo.Create(&project); err != nil {
		return models.Project{}, err
	}

	if s.provisioner != nil {
		if err := s.provisioner.Provision(ctx, project.Slug, userID); err != nil {
			// Release the slug reservation; the graph never came up.
			if derr := s.projectRepo.HardDelete(project.ID); derr != nil {
				s.log.Error("could not release project row after failed provisioning",
					"slug", project.Slug, "error", derr)
			}
			return models.Project{}, err
		}
	}

	s.log.Info("created project", "slug", project.Slug, "organisation", project.OrganisationID)
	return project, nil
}

// GetProject retrieves a project by ID
func (s *ProjectService) GetProject(id string, includeDeleted bool) (models.Project, error) {
	return s.projectRepo.FindByID(id, includeDeleted)
}

// GetProjectBySlug retrieves a project by its slug
func (s *ProjectService) GetProjectBySlug(slug string, includeDeleted bool) (models.Project, error) {
	return s.projectRepo.FindBySlug(slug, includeDeleted)
}

// GetProjectWithStudies retrieves a project together with its active studies
func (s *ProjectService) GetProjectWithStudies(id string) (models.Project, error) {
	return s.projectRepo.FindWithStudies(id)
}

// ListProjects retrieves projects with pagination, filtering and sorting
func (s *ProjectService) ListProjects(filter dto.ProjectFilter) (dto.ProjectListResponse, error) {
	var response dto.ProjectListResponse

	// Set defaults if not provided
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

	// Valid sort columns (whitelist approach for security)
	validSortColumns := map[string]bool{
		"created_at": true,
		"updated_at": true,
		"name":       true,
		"slug":       true,
	}
	if !validSortColumns[filter.SortBy] {
		filter.SortBy = "created_at"
	}

	projects, totalCount, err := s.projectRepo.FindWithPagination(filter)
	if err != nil {
		return response, err
	}

	totalPages := int(totalCount) / filter.PageSize
	if int(totalCount)%filter.PageSize > 0 {
		totalPages++
	}

	response = dto.ProjectListResponse{
		Projects:   projects,
		TotalCount: totalCount,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: totalPages,
	}
	return response, nil
}

// ProjectSummaries reads the project_summaries reporting view, optionally
// restricted to one organisation. Projects whose pathogen is soft-deleted
// do not appear here even while their own row is active.
func (s *ProjectService) ProjectSummaries(organisationID string) ([]models.ProjectSummary, error) {
	return s.viewRepo.ProjectSummaries(organisationID)
}

// UpdateProject applies the non-nil request fields to an active project.
// The slug is immutable: it names the resource and group in the
// authorization server, so there is deliberately no way to change it.
func (s *ProjectService) UpdateProject(id string, req dto.UpdateProjectRequest) (models.Project, error) {
	project, err := s.projectRepo.FindByID(id, false)
	if err != nil {
		return models.Project{}, err
	}

	if req.Name != nil {
		project.Name = *req.Name
	}
	if req.Description != nil {
		project.Description = req.Description
	}
	if req.Privacy != nil {
		privacy, err := normalizePrivacy(*req.Privacy)
		if err != nil {
			return models.Project{}, err
		}
		project.Privacy = privacy
	}
	if req.PathogenID != nil {
		pathogenID, err := s.resolvePathogenID(req.PathogenID)
		if err != nil {
			return models.Project{}, err
		}
		project.PathogenID = pathogenID
	}

	if err := s.projectRepo.Update(&project); err != nil {
		return models.Project{}, err
	}
	return project, nil
}

// DeleteProject soft-deletes a project and its studies. The authorization
// graph stays up so a later restore finds it intact; it is only torn down
// when the row is purged.
func (s *ProjectService) DeleteProject(id string) error {
	return s.projectRepo.Delete(id)
}

// RestoreProject clears the soft-delete mark on the project row. This is a
// row-level operation: it succeeds even while the project's pathogen is
// still deleted, in which case primary listings show the project again but
// the reporting views keep hiding it until the pathogen returns.
func (s *ProjectService) RestoreProject(id string) error {
	return s.projectRepo.Restore(id)
}

// PurgeProject hard-deletes a single soft-deleted project and tears down
// its authorization graph. Purging an active project is refused.
func (s *ProjectService) PurgeProject(ctx context.Context, id string) error {
	project, err := s.projectRepo.FindByID(id, true)
	if err != nil {
		return err
	}
	if !project.DeletedAt.Valid {
		return fmt.Errorf("project %s is still active: %w", id, models.ErrPurgeBlocked)
	}

	if err := s.projectRepo.HardDelete(id); err != nil {
		return err
	}

	if s.provisioner != nil {
		if err := s.provisioner.Deprovision(ctx, project.Slug); err != nil {
			s.log.Warn("authorization graph teardown incomplete", "slug", project.Slug, "error", err)
		}
	}
	return nil
}

func normalizePrivacy(raw string) (models.Privacy, error) {
	switch models.Privacy(raw) {
	case "":
		return models.PrivacyPrivate, nil
	case models.PrivacyPublic:
		return models.PrivacyPublic, nil
	case models.PrivacyPrivate:
		return models.PrivacyPrivate, nil
	default:
		return "", fmt.Errorf("privacy must be %q or %q: %w",
			models.PrivacyPublic, models.PrivacyPrivate, models.ErrInvalidInput)
	}
}

// resolvePathogenID validates a pathogen reference. An empty string clears
// the association; a non-empty ID must name an active pathogen.
func (s *ProjectService) resolvePathogenID(id *string) (*string, error) {
	if id == nil || *id == "" {
		return nil, nil
	}
	if _, err := s.pathogenRepo.FindByID(*id, false); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("pathogen %s: %w", *id, models.ErrInvalidReference)
		}
		return nil, err
	}
	return id, nil
}
