package repositories

import (
	"gorm.io/gorm"

	"github.com/agari-platform/folio/dto"
	"github.com/agari-platform/folio/models"
)

// StudyRepository handles database operations for studies
type StudyRepository struct {
	db *gorm.DB
}

// NewStudyRepository creates a new study repository instance
func NewStudyRepository(db *gorm.DB) *StudyRepository {
	return &StudyRepository{db: db}
}

// Create inserts a new study. A duplicate study identifier returns
// models.ErrConflict.
func (r *StudyRepository) Create(study *models.Study) error {
	return translateError(r.db.Create(study).Error)
}

// FindByID retrieves a study by its ID
func (r *StudyRepository) FindByID(id string, includeDeleted bool) (models.Study, error) {
	var study models.Study
	db := r.db
	if includeDeleted {
		db = db.Unscoped()
	}
	err := db.First(&study, "id = ?", id).Error
	return study, translateError(err)
}

// FindByStudyID retrieves a study by its externally-visible identifier
func (r *StudyRepository) FindByStudyID(studyID string, includeDeleted bool) (models.Study, error) {
	var study models.Study
	db := r.db
	if includeDeleted {
		db = db.Unscoped()
	}
	err := db.First(&study, "study_id = ?", studyID).Error
	return study, translateError(err)
}

// FindAll retrieves all active studies, or every row when includeDeleted
// is set
func (r *StudyRepository) FindAll(includeDeleted bool) ([]models.Study, error) {
	var studies []models.Study
	db := r.db
	if includeDeleted {
		db = db.Unscoped()
	}
	err := db.Order("created_at desc").Find(&studies).Error
	return studies, translateError(err)
}

// FindWithPagination retrieves studies with pagination, filtering and sorting.
// The filter is expected to be normalized by the service layer.
func (r *StudyRepository) FindWithPagination(filter dto.StudyFilter) ([]models.Study, int64, error) {
	var studies []models.Study
	var totalCount int64

	db := r.db.Model(&models.Study{})
	if filter.IncludeDeleted {
		db = db.Unscoped()
	}

	if filter.ProjectID != "" {
		db = db.Where("project_id = ?", filter.ProjectID)
	}
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		db = db.Where("(LOWER(study_id) LIKE ? OR LOWER(name) LIKE ? OR LOWER(description) LIKE ?)",
			pattern, pattern, pattern)
	}

	if err := db.Count(&totalCount).Error; err != nil {
		return nil, 0, translateError(err)
	}

	offset := (filter.Page - 1) * filter.PageSize
	order := filter.SortBy + " " + filter.SortOrder
	if err := db.Order(order).Limit(filter.PageSize).Offset(offset).Find(&studies).Error; err != nil {
		return nil, 0, translateError(err)
	}

	return studies, totalCount, nil
}

// Update persists changes to an existing study
func (r *StudyRepository) Update(study *models.Study) error {
	return translateError(r.db.Save(study).Error)
}

// Delete soft-deletes a single study. Nothing cascades upward.
func (r *StudyRepository) Delete(id string) error {
	result := r.db.Delete(&models.Study{}, "id = ?", id)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Restore clears the soft-delete mark. Restoring an active study is a no-op.
func (r *StudyRepository) Restore(id string) error {
	study, err := r.FindByID(id, true)
	if err != nil {
		return err
	}
	if !study.DeletedAt.Valid {
		return nil
	}
	err = r.db.Unscoped().Model(&models.Study{}).Where("id = ?", id).
		Update("deleted_at", nil).Error
	return translateError(err)
}

// HardDelete removes a study row permanently
func (r *StudyRepository) HardDelete(id string) error {
	result := r.db.Unscoped().Delete(&models.Study{}, "id = ?", id)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Counts reports active, deleted and total study rows
func (r *StudyRepository) Counts() (dto.EntityCounts, error) {
	return tableCounts(r.db, &models.Study{})
}
