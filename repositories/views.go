package repositories

import (
	"gorm.io/gorm"

	"github.com/agari-platform/folio/models"
)

// ViewRepository reads the denormalized reporting views. The views are
// plain SELECTs, so rows vanish as soon as any joined entity is
// soft-deleted; no scoping happens here.
type ViewRepository struct {
	db *gorm.DB
}

// NewViewRepository creates a new view repository instance
func NewViewRepository(db *gorm.DB) *ViewRepository {
	return &ViewRepository{db: db}
}

// ProjectSummaries lists rows from the project_summaries view, optionally
// restricted to one organisation
func (r *ViewRepository) ProjectSummaries(organisationID string) ([]models.ProjectSummary, error) {
	var summaries []models.ProjectSummary
	db := r.db
	if organisationID != "" {
		db = db.Where("organisation_id = ?", organisationID)
	}
	err := db.Order("slug asc").Find(&summaries).Error
	return summaries, translateError(err)
}

// ProjectSummaryBySlug reads a single row from the project_summaries view
func (r *ViewRepository) ProjectSummaryBySlug(slug string) (models.ProjectSummary, error) {
	var summary models.ProjectSummary
	err := r.db.First(&summary, "slug = ?", slug).Error
	return summary, translateError(err)
}

// StudyDetails lists rows from the study_details view, optionally
// restricted to one project
func (r *ViewRepository) StudyDetails(projectID string) ([]models.StudyDetail, error) {
	var details []models.StudyDetail
	db := r.db
	if projectID != "" {
		db = db.Where("project_id = ?", projectID)
	}
	err := db.Order("study_id asc").Find(&details).Error
	return details, translateError(err)
}
