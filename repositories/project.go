package repositories

import (
	"gorm.io/gorm"

	"github.com/agari-platform/folio/dto"
	"github.com/agari-platform/folio/models"
)

// ProjectRepository handles database operations for projects
type ProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new project repository instance
func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create inserts a new project. The unique index on slug reserves the slug:
// a concurrent creation with the same slug loses with models.ErrConflict.
func (r *ProjectRepository) Create(project *models.Project) error {
	return translateError(r.db.Create(project).Error)
}

// FindByID retrieves a project by its ID
func (r *ProjectRepository) FindByID(id string, includeDeleted bool) (models.Project, error) {
	var project models.Project
	db := r.db
	if includeDeleted {
		db = db.Unscoped()
	}
	err := db.First(&project, "id = ?", id).Error
	return project, translateError(err)
}

// FindBySlug retrieves a project by its slug
func (r *ProjectRepository) FindBySlug(slug string, includeDeleted bool) (models.Project, error) {
	var project models.Project
	db := r.db
	if includeDeleted {
		db = db.Unscoped()
	}
	err := db.First(&project, "slug = ?", slug).Error
	return project, translateError(err)
}

// FindWithStudies loads a project together with its active studies
func (r *ProjectRepository) FindWithStudies(id string) (models.Project, error) {
	var project models.Project
	err := r.db.Preload("Studies").First(&project, "id = ?", id).Error
	return project, translateError(err)
}

// FindAll retrieves all active projects, or every row when includeDeleted
// is set
func (r *ProjectRepository) FindAll(includeDeleted bool) ([]models.Project, error) {
	var projects []models.Project
	db := r.db
	if includeDeleted {
		db = db.Unscoped()
	}
	err := db.Order("created_at desc").Find(&projects).Error
	return projects, translateError(err)
}

// FindWithPagination retrieves projects with pagination, filtering and sorting.
// The filter is expected to be normalized by the service layer.
func (r *ProjectRepository) FindWithPagination(filter dto.ProjectFilter) ([]models.Project, int64, error) {
	var projects []models.Project
	var totalCount int64

	db := r.db.Model(&models.Project{})
	if filter.IncludeDeleted {
		db = db.Unscoped()
	}

	if filter.OrganisationID != "" {
		db = db.Where("organisation_id = ?", filter.OrganisationID)
	}
	if filter.UserID != "" {
		db = db.Where("user_id = ?", filter.UserID)
	}
	if filter.Privacy != "" {
		db = db.Where("privacy = ?", filter.Privacy)
	}
	if filter.PathogenID != "" {
		db = db.Where("pathogen_id = ?", filter.PathogenID)
	}
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		db = db.Where("(LOWER(slug) LIKE ? OR LOWER(name) LIKE ? OR LOWER(description) LIKE ?)",
			pattern, pattern, pattern)
	}

	if err := db.Count(&totalCount).Error; err != nil {
		return nil, 0, translateError(err)
	}

	offset := (filter.Page - 1) * filter.PageSize
	order := filter.SortBy + " " + filter.SortOrder
	if err := db.Order(order).Limit(filter.PageSize).Offset(offset).Find(&projects).Error; err != nil {
		return nil, 0, translateError(err)
	}

	return projects, totalCount, nil
}

// Update persists changes to an existing project
func (r *ProjectRepository) Update(project *models.Project) error {
	return translateError(r.db.Save(project).Error)
}

// Delete soft-deletes a project and its non-deleted studies in one
// transaction
func (r *ProjectRepository) Delete(id string) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", id).Delete(&models.Study{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.Project{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return models.ErrNotFound
		}
		return nil
	})
	return translateError(err)
}

// Restore clears the soft-delete mark on the project row only. Studies stay
// deleted until restored individually. Restoring an active project is a
// no-op.
func (r *ProjectRepository) Restore(id string) error {
	project, err := r.FindByID(id, true)
	if err != nil {
		return err
	}
	if !project.DeletedAt.Valid {
		return nil
	}
	err = r.db.Unscoped().Model(&models.Project{}).Where("id = ?", id).
		Update("deleted_at", nil).Error
	return translateError(err)
}

// HardDelete removes a project row and all of its studies permanently,
// whatever their delete state
func (r *ProjectRepository) HardDelete(id string) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("project_id = ?", id).Delete(&models.Study{}).Error; err != nil {
			return err
		}

		result := tx.Unscoped().Delete(&models.Project{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return models.ErrNotFound
		}
		return nil
	})
	return translateError(err)
}

// Counts reports active, deleted and total project rows
func (r *ProjectRepository) Counts() (dto.EntityCounts, error) {
	return tableCounts(r.db, &models.Project{})
}
