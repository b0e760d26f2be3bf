package repositories

import (
	"gorm.io/gorm"

	"github.com/agari-platform/folio/dto"
	"github.com/agari-platform/folio/models"
)

// CleanupRepository handles the cross-entity maintenance operations behind
// the admin surface: counts, organisation- and user-wide soft deletes,
// purging soft-deleted rows, and the full wipe.
type CleanupRepository struct {
	db *gorm.DB
}

// NewCleanupRepository creates a new cleanup repository instance
func NewCleanupRepository(db *gorm.DB) *CleanupRepository {
	return &CleanupRepository{db: db}
}

// Counts reports active, deleted, and total rows for every entity table
func (r *CleanupRepository) Counts() (dto.DatabaseCounts, error) {
	var counts dto.DatabaseCounts
	var err error

	if counts.Pathogens, err = tableCounts(r.db, &models.Pathogen{}); err != nil {
		return counts, err
	}
	if counts.Projects, err = tableCounts(r.db, &models.Project{}); err != nil {
		return counts, err
	}
	counts.Studies, err = tableCounts(r.db, &models.Study{})
	return counts, err
}

// DeletedPathogens lists soft-deleted pathogens
func (r *CleanupRepository) DeletedPathogens() ([]models.Pathogen, error) {
	var pathogens []models.Pathogen
	err := r.db.Unscoped().Where("deleted_at IS NOT NULL").Order("name asc").Find(&pathogens).Error
	return pathogens, translateError(err)
}

// DeletedProjects lists soft-deleted projects
func (r *CleanupRepository) DeletedProjects() ([]models.Project, error) {
	var projects []models.Project
	err := r.db.Unscoped().Where("deleted_at IS NOT NULL").Order("slug asc").Find(&projects).Error
	return projects, translateError(err)
}

// DeletedStudies lists soft-deleted studies
func (r *CleanupRepository) DeletedStudies() ([]models.Study, error) {
	var studies []models.Study
	err := r.db.Unscoped().Where("deleted_at IS NOT NULL").Order("study_id asc").Find(&studies).Error
	return studies, translateError(err)
}

// SoftDeleteByOrganisation soft-deletes every active project of the
// organisation and their active studies in one transaction. It returns the
// affected project and study counts.
func (r *CleanupRepository) SoftDeleteByOrganisation(organisationID string) (int64, int64, error) {
	return r.softDeleteProjectsWhere("organisation_id = ?", organisationID)
}

// SoftDeleteByUser soft-deletes every active project created by the user
// and their active studies in one transaction. It returns the affected
// project and study counts.
func (r *CleanupRepository) SoftDeleteByUser(userID string) (int64, int64, error) {
	return r.softDeleteProjectsWhere("user_id = ?", userID)
}

func (r *CleanupRepository) softDeleteProjectsWhere(cond string, arg string) (int64, int64, error) {
	var projects, studies int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		matched := tx.Model(&models.Project{}).Select("id").Where(cond, arg)
		studyResult := tx.Where("project_id IN (?)", matched).Delete(&models.Study{})
		if studyResult.Error != nil {
			return studyResult.Error
		}
		studies = studyResult.RowsAffected

		projectResult := tx.Where(cond, arg).Delete(&models.Project{})
		if projectResult.Error != nil {
			return projectResult.Error
		}
		projects = projectResult.RowsAffected
		return nil
	})
	return projects, studies, translateError(err)
}

// Purge hard-deletes the soft-deleted rows matched by the filter, in
// dependency order. When the filter names an organisation or user, any
// active row still matching it blocks the whole purge with
// models.ErrPurgeBlocked. Purged pathogens release their projects'
// references; purged projects take their remaining study rows with them.
func (r *CleanupRepository) Purge(filter dto.CleanupFilter) (dto.PurgeResult, error) {
	var result dto.PurgeResult

	err := r.db.Transaction(func(tx *gorm.DB) error {
		scoped := filter.OrganisationID != "" || filter.UserID != ""
		if scoped {
			active, err := countActiveMatches(tx, filter)
			if err != nil {
				return err
			}
			if active > 0 {
				return models.ErrPurgeBlocked
			}
		}

		if includesKind(filter, dto.EntityStudies) {
			n, err := purgeStudies(tx, filter)
			if err != nil {
				return err
			}
			result.Studies = n
		}

		if includesKind(filter, dto.EntityProjects) {
			projects, dependents, slugs, err := purgeProjects(tx, filter)
			if err != nil {
				return err
			}
			result.Projects = projects
			result.Studies += dependents
			result.ProjectSlugs = slugs
		}

		// Pathogens carry no organisation or user, so scoped purges skip them.
		if includesKind(filter, dto.EntityPathogens) && !scoped {
			n, err := purgePathogens(tx)
			if err != nil {
				return err
			}
			result.Pathogens = n
		}

		return nil
	})
	if err != nil {
		return dto.PurgeResult{}, translateError(err)
	}
	return result, nil
}

func includesKind(filter dto.CleanupFilter, kind string) bool {
	return filter.Entity == "" || filter.Entity == kind
}

// countActiveMatches counts active projects and studies still matching an
// organisation- or user-scoped filter.
func countActiveMatches(tx *gorm.DB, filter dto.CleanupFilter) (int64, error) {
	var total int64

	projects := tx.Model(&models.Project{})
	if filter.OrganisationID != "" {
		projects = projects.Where("organisation_id = ?", filter.OrganisationID)
	}
	if filter.UserID != "" {
		projects = projects.Where("user_id = ?", filter.UserID)
	}
	var activeProjects int64
	if err := projects.Count(&activeProjects).Error; err != nil {
		return 0, err
	}
	total += activeProjects

	studies := tx.Model(&models.Study{}).
		Joins("JOIN projects ON projects.id = studies.project_id")
	if filter.OrganisationID != "" {
		studies = studies.Where("projects.organisation_id = ?", filter.OrganisationID)
	}
	if filter.UserID != "" {
		studies = studies.Where("projects.user_id = ?", filter.UserID)
	}
	var activeStudies int64
	if err := studies.Count(&activeStudies).Error; err != nil {
		return 0, err
	}
	total += activeStudies

	return total, nil
}

func projectScope(tx *gorm.DB, filter dto.CleanupFilter) *gorm.DB {
	scope := tx.Unscoped().Model(&models.Project{})
	if filter.OrganisationID != "" {
		scope = scope.Where("organisation_id = ?", filter.OrganisationID)
	}
	if filter.UserID != "" {
		scope = scope.Where("user_id = ?", filter.UserID)
	}
	return scope
}

func purgeStudies(tx *gorm.DB, filter dto.CleanupFilter) (int64, error) {
	db := tx.Unscoped().Where("deleted_at IS NOT NULL")
	if filter.OrganisationID != "" || filter.UserID != "" {
		db = db.Where("project_id IN (?)", projectScope(tx, filter).Select("id"))
	}
	result := db.Delete(&models.Study{})
	return result.RowsAffected, result.Error
}

func purgeProjects(tx *gorm.DB, filter dto.CleanupFilter) (int64, int64, []string, error) {
	type target struct {
		ID   string
		Slug string
	}
	var targets []target
	if err := projectScope(tx, filter).Select("id, slug").
		Where("deleted_at IS NOT NULL").Find(&targets).Error; err != nil {
		return 0, 0, nil, err
	}
	if len(targets) == 0 {
		return 0, 0, nil, nil
	}

	ids := make([]string, len(targets))
	slugs := make([]string, len(targets))
	for i, t := range targets {
		ids[i] = t.ID
		slugs[i] = t.Slug
	}

	dependents := tx.Unscoped().Where("project_id IN ?", ids).Delete(&models.Study{})
	if dependents.Error != nil {
		return 0, 0, nil, dependents.Error
	}

	projects := tx.Unscoped().Delete(&models.Project{}, "id IN ?", ids)
	if projects.Error != nil {
		return 0, 0, nil, projects.Error
	}

	return projects.RowsAffected, dependents.RowsAffected, slugs, nil
}

func purgePathogens(tx *gorm.DB) (int64, error) {
	var ids []string
	if err := tx.Unscoped().Model(&models.Pathogen{}).
		Where("deleted_at IS NOT NULL").Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	if err := tx.Unscoped().Model(&models.Project{}).Where("pathogen_id IN ?", ids).
		Update("pathogen_id", nil).Error; err != nil {
		return 0, err
	}

	result := tx.Unscoped().Delete(&models.Pathogen{}, "id IN ?", ids)
	return result.RowsAffected, result.Error
}

// CountPurgeable reports what Purge would remove for the same filter,
// without deleting anything. The active-row block is not evaluated here;
// a preview of a purge that would be blocked still shows its candidates.
func (r *CleanupRepository) CountPurgeable(filter dto.CleanupFilter) (dto.PurgeResult, error) {
	var result dto.PurgeResult
	scoped := filter.OrganisationID != "" || filter.UserID != ""

	if includesKind(filter, dto.EntityStudies) {
		db := r.db.Unscoped().Model(&models.Study{}).Where("deleted_at IS NOT NULL")
		if scoped {
			db = db.Where("project_id IN (?)", projectScope(r.db, filter).Select("id"))
		}
		if err := db.Count(&result.Studies).Error; err != nil {
			return dto.PurgeResult{}, translateError(err)
		}
	}

	if includesKind(filter, dto.EntityProjects) {
		type target struct {
			ID   string
			Slug string
		}
		var targets []target
		if err := projectScope(r.db, filter).Select("id, slug").
			Where("deleted_at IS NOT NULL").Find(&targets).Error; err != nil {
			return dto.PurgeResult{}, translateError(err)
		}
		result.Projects = int64(len(targets))
		ids := make([]string, len(targets))
		for i, t := range targets {
			ids[i] = t.ID
			result.ProjectSlugs = append(result.ProjectSlugs, t.Slug)
		}

		// Dependent studies go with their project. Soft-deleted ones are
		// already in the studies count when that kind is included.
		if len(ids) > 0 {
			dependents := r.db.Unscoped().Model(&models.Study{}).Where("project_id IN ?", ids)
			if includesKind(filter, dto.EntityStudies) {
				dependents = dependents.Where("deleted_at IS NULL")
			}
			var n int64
			if err := dependents.Count(&n).Error; err != nil {
				return dto.PurgeResult{}, translateError(err)
			}
			result.Studies += n
		}
	}

	if includesKind(filter, dto.EntityPathogens) && !scoped {
		if err := r.db.Unscoped().Model(&models.Pathogen{}).
			Where("deleted_at IS NOT NULL").Count(&result.Pathogens).Error; err != nil {
			return dto.PurgeResult{}, translateError(err)
		}
	}

	return result, nil
}

// Wipe hard-deletes every row in dependency order inside one transaction.
// Callers gate this behind the confirmation phrase; the repository just
// executes it.
func (r *CleanupRepository) Wipe() (dto.WipeResult, error) {
	var result dto.WipeResult

	err := r.db.Transaction(func(tx *gorm.DB) error {
		studies := tx.Unscoped().Where("1 = 1").Delete(&models.Study{})
		if studies.Error != nil {
			return studies.Error
		}
		result.Studies = studies.RowsAffected

		projects := tx.Unscoped().Where("1 = 1").Delete(&models.Project{})
		if projects.Error != nil {
			return projects.Error
		}
		result.Projects = projects.RowsAffected

		pathogens := tx.Unscoped().Where("1 = 1").Delete(&models.Pathogen{})
		if pathogens.Error != nil {
			return pathogens.Error
		}
		result.Pathogens = pathogens.RowsAffected
		return nil
	})
	if err != nil {
		return dto.WipeResult{}, translateError(err)
	}
	return result, nil
}

// Vacuum reclaims storage and refreshes planner statistics. VACUUM cannot
// run inside a transaction, so both statements go straight to the session.
func (r *CleanupRepository) Vacuum() error {
	if err := r.db.Exec("VACUUM").Error; err != nil {
		return translateError(err)
	}
	return translateError(r.db.Exec("ANALYZE").Error)
}
