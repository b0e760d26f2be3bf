package services

import (
	"context"
	"fmt"

	"github.com/agari-platform/folio/dto"
	"github.com/agari-platform/folio/logger"
	"github.com/agari-platform/folio/models"
	"github.com/agari-platform/folio/repositories"
)

// CleanupService drives the operator maintenance surface: row counts,
// deleted-row listings, organisation- and user-wide soft deletes, purging,
// the gated full wipe, and storage maintenance.
type CleanupService struct {
	cleanupRepo *repositories.CleanupRepository
	provisioner Provisioner
	log         *logger.Logger
}

// NewCleanupService creates a new cleanup service instance. The
// provisioner may be nil, in which case purged projects keep their
// authorization graphs.
func NewCleanupService(cleanupRepo *repositories.CleanupRepository, provisioner Provisioner, log *logger.Logger) *CleanupService {
	return &CleanupService{
		cleanupRepo: cleanupRepo,
		provisioner: provisioner,
		log:         log.With("component", "cleanup"),
	}
}

// Counts reports active, deleted, and total rows per entity table
func (s *CleanupService) Counts() (dto.DatabaseCounts, error) {
	return s.cleanupRepo.Counts()
}

// DeletedPathogens lists soft-deleted pathogens
func (s *CleanupService) DeletedPathogens() ([]models.Pathogen, error) {
	return s.cleanupRepo.DeletedPathogens()
}

// DeletedProjects lists soft-deleted projects
func (s *CleanupService) DeletedProjects() ([]models.Project, error) {
	return s.cleanupRepo.DeletedProjects()
}

// DeletedStudies lists soft-deleted studies
func (s *CleanupService) DeletedStudies() ([]models.Study, error) {
	return s.cleanupRepo.DeletedStudies()
}

// DeleteByOrganisation soft-deletes every active project of the
// organisation and their studies. It returns the affected project and
// study counts.
func (s *CleanupService) DeleteByOrganisation(organisationID string) (int64, int64, error) {
	if organisationID == "" {
		return 0, 0, fmt.Errorf("organisation id is required: %w", models.ErrInvalidInput)
	}
	projects, studies, err := s.cleanupRepo.SoftDeleteByOrganisation(organisationID)
	if err != nil {
		return 0, 0, err
	}
	s.log.Info("soft-deleted organisation data",
		"organisation", organisationID, "projects", projects, "studies", studies)
	return projects, studies, nil
}

// DeleteByUser soft-deletes every active project created by the user and
// their studies. It returns the affected project and study counts.
func (s *CleanupService) DeleteByUser(userID string) (int64, int64, error) {
	if userID == "" {
		return 0, 0, fmt.Errorf("user id is required: %w", models.ErrInvalidInput)
	}
	projects, studies, err := s.cleanupRepo.SoftDeleteByUser(userID)
	if err != nil {
		return 0, 0, err
	}
	s.log.Info("soft-deleted user data", "user", userID, "projects", projects, "studies", studies)
	return projects, studies, nil
}

// PurgePreview reports what Purge would remove for the filter, without
// deleting anything
func (s *CleanupService) PurgePreview(filter dto.CleanupFilter) (dto.PurgeResult, error) {
	if err := validateCleanupFilter(filter); err != nil {
		return dto.PurgeResult{}, err
	}
	return s.cleanupRepo.CountPurgeable(filter)
}

// Purge hard-deletes the soft-deleted rows matched by the filter. A filter
// naming an organisation or user whose data is not yet fully soft-deleted
// fails with models.ErrPurgeBlocked and removes nothing. Purged projects
// get a best-effort authorization-graph teardown afterwards; teardown
// failures are logged, never fatal.
func (s *CleanupService) Purge(ctx context.Context, filter dto.CleanupFilter) (dto.PurgeResult, error) {
	if err := validateCleanupFilter(filter); err != nil {
		return dto.PurgeResult{}, err
	}

	result, err := s.cleanupRepo.Purge(filter)
	if err != nil {
		return dto.PurgeResult{}, err
	}

	if s.provisioner != nil {
		for _, slug := range result.ProjectSlugs {
			if err := s.provisioner.Deprovision(ctx, slug); err != nil {
				s.log.Warn("authorization graph teardown incomplete", "slug", slug, "error", err)
			}
		}
	}

	s.log.Info("purged soft-deleted rows",
		"pathogens", result.Pathogens, "projects", result.Projects, "studies", result.Studies)
	return result, nil
}

// Wipe hard-deletes every row in dependency order. It runs only when the
// confirmation argument is exactly models.WipeConfirmationPhrase; a forced
// or scripted invocation without the phrase changes nothing.
func (s *CleanupService) Wipe(confirmation string) (dto.WipeResult, error) {
	if confirmation != models.WipeConfirmationPhrase {
		return dto.WipeResult{}, models.ErrConfirmationRequired
	}

	result, err := s.cleanupRepo.Wipe()
	if err != nil {
		return dto.WipeResult{}, err
	}
	s.log.Warn("wiped all data",
		"pathogens", result.Pathogens, "projects", result.Projects, "studies", result.Studies)
	return result, nil
}

// Vacuum reclaims storage and refreshes planner statistics
func (s *CleanupService) Vacuum() error {
	return s.cleanupRepo.Vacuum()
}

func validateCleanupFilter(filter dto.CleanupFilter) error {
	switch filter.Entity {
	case "", dto.EntityPathogens, dto.EntityProjects, dto.EntityStudies:
		return nil
	default:
		return fmt.Errorf("entity must be one of %s, %s, %s: %w",
			dto.EntityPathogens, dto.EntityProjects, dto.EntityStudies, models.ErrInvalidInput)
	}
}
