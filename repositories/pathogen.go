package repositories

import (
	"gorm.io/gorm"

	"github.com/agari-platform/folio/dto"
	"github.com/agari-platform/folio/models"
)

// PathogenRepository handles database operations for pathogens
type PathogenRepository struct {
	db *gorm.DB
}

// NewPathogenRepository creates a new pathogen repository instance
func NewPathogenRepository(db *gorm.DB) *PathogenRepository {
	return &PathogenRepository{db: db}
}

// Create inserts a new pathogen. A duplicate name returns models.ErrConflict.
func (r *PathogenRepository) Create(pathogen *models.Pathogen) error {
	return translateError(r.db.Create(pathogen).Error)
}

// FindByID retrieves a pathogen by its ID
func (r *PathogenRepository) FindByID(id string, includeDeleted bool) (models.Pathogen, error) {
	var pathogen models.Pathogen
	db := r.db
	if includeDeleted {
		db = db.Unscoped()
	}
	err := db.First(&pathogen, "id = ?", id).Error
	return pathogen, translateError(err)
}

// FindByName retrieves a pathogen by its unique name
func (r *PathogenRepository) FindByName(name string, includeDeleted bool) (models.Pathogen, error) {
	var pathogen models.Pathogen
	db := r.db
	if includeDeleted {
		db = db.Unscoped()
	}
	err := db.First(&pathogen, "name = ?", name).Error
	return pathogen, translateError(err)
}

// FindAll retrieves all active pathogens, or every row when includeDeleted
// is set
func (r *PathogenRepository) FindAll(includeDeleted bool) ([]models.Pathogen, error) {
	var pathogens []models.Pathogen
	db := r.db
	if includeDeleted {
		db = db.Unscoped()
	}
	err := db.Order("name asc").Find(&pathogens).Error
	return pathogens, translateError(err)
}

// FindWithPagination retrieves pathogens with pagination, filtering and sorting.
// The filter is expected to be normalized by the service layer.
func (r *PathogenRepository) FindWithPagination(filter dto.PathogenFilter) ([]models.Pathogen, int64, error) {
	var pathogens []models.Pathogen
	var totalCount int64

	db := r.db.Model(&models.Pathogen{})
	if filter.IncludeDeleted {
		db = db.Unscoped()
	}

	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		db = db.Where("(LOWER(name) LIKE ? OR LOWER(scientific_name) LIKE ?)", pattern, pattern)
	}

	if err := db.Count(&totalCount).Error; err != nil {
		return nil, 0, translateError(err)
	}

	offset := (filter.Page - 1) * filter.PageSize
	order := filter.SortBy + " " + filter.SortOrder
	if err := db.Order(order).Limit(filter.PageSize).Offset(offset).Find(&pathogens).Error; err != nil {
		return nil, 0, translateError(err)
	}

	return pathogens, totalCount, nil
}

// Update persists changes to an existing pathogen
func (r *PathogenRepository) Update(pathogen *models.Pathogen) error {
	return translateError(r.db.Save(pathogen).Error)
}

// Delete soft-deletes a pathogen together with its non-deleted projects and
// their non-deleted studies, all in one transaction.
func (r *PathogenRepository) Delete(id string) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		// Studies first: the subquery must still see the projects as active.
		activeProjects := tx.Model(&models.Project{}).Select("id").Where("pathogen_id = ?", id)
		if err := tx.Where("project_id IN (?)", activeProjects).Delete(&models.Study{}).Error; err != nil {
			return err
		}

		if err := tx.Where("pathogen_id = ?", id).Delete(&models.Project{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.Pathogen{}, "id = ?", id)
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

// Restore clears the soft-delete mark. Restoring an active pathogen is a
// no-op.
func (r *PathogenRepository) Restore(id string) error {
	pathogen, err := r.FindByID(id, true)
	if err != nil {
		return err
	}
	if !pathogen.DeletedAt.Valid {
		return nil
	}
	err = r.db.Unscoped().Model(&models.Pathogen{}).Where("id = ?", id).
		Update("deleted_at", nil).Error
	return translateError(err)
}

// HardDelete removes a pathogen row permanently. Projects referencing it
// keep their rows but lose the association.
func (r *PathogenRepository) HardDelete(id string) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Model(&models.Project{}).Where("pathogen_id = ?", id).
			Update("pathogen_id", nil).Error; err != nil {
			return err
		}

		result := tx.Unscoped().Delete(&models.Pathogen{}, "id = ?", id)
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

// Counts reports active, deleted and total pathogen rows
func (r *PathogenRepository) Counts() (dto.EntityCounts, error) {
	return tableCounts(r.db, &models.Pathogen{})
}
