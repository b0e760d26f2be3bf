package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/agari-platform/folio/config"
	"github.com/agari-platform/folio/models"
)

// naturalKey describes a uniqueness constraint whose index shape depends on
// the configured slug-reuse policy.
type naturalKey struct {
	index  string
	table  string
	column string
}

var naturalKeys = []naturalKey{
	{index: "uq_pathogens_name", table: "pathogens", column: "name"},
	{index: "uq_projects_slug", table: "projects", column: "slug"},
	{index: "uq_studies_study_id", table: "studies", column: "study_id"},
}

// Migrate creates the schema: tables, natural-key unique indexes, and the
// reporting views. It is idempotent and safe to run on every boot.
//
// Under the strict policy the unique indexes span all rows, so a
// soft-deleted record keeps blocking its slug, study id, or name. Under
// active-only the indexes are partial (WHERE deleted_at IS NULL) and a
// soft-deleted predecessor frees its key.
func Migrate(db *gorm.DB, policy config.SlugReusePolicy) error {
	err := db.AutoMigrate(
		&models.Pathogen{},
		&models.Project{},
		&models.Study{},
	)
	if err != nil {
		return fmt.Errorf("failed to auto migrate: %w", err)
	}

	if err := createNaturalKeyIndexes(db, policy); err != nil {
		return err
	}

	return createViews(db)
}

func createNaturalKeyIndexes(db *gorm.DB, policy config.SlugReusePolicy) error {
	for _, key := range naturalKeys {
		// Drop and recreate so a policy change takes effect on redeploy.
		if err := db.Exec(fmt.Sprintf("DROP INDEX IF EXISTS %s", key.index)).Error; err != nil {
			return fmt.Errorf("failed to drop index %s: %w", key.index, err)
		}

		stmt := fmt.Sprintf("CREATE UNIQUE INDEX %s ON %s (%s)", key.index, key.table, key.column)
		if policy == config.SlugReuseActiveOnly {
			stmt += " WHERE deleted_at IS NULL"
		}
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", key.index, err)
		}
	}
	return nil
}

// createViews builds the two read-only reporting views. Both exclude
// soft-deleted rows, and both hide projects whose pathogen is soft-deleted
// even when the project row itself is still active.
func createViews(db *gorm.DB) error {
	statements := []string{
		"DROP VIEW IF EXISTS project_summaries",
		`CREATE VIEW project_summaries AS
			SELECT p.id,
			       p.slug,
			       p.name,
			       p.organisation_id,
			       p.user_id,
			       p.privacy,
			       pa.id   AS pathogen_id,
			       pa.name AS pathogen_name,
			       (SELECT COUNT(*) FROM studies s
			         WHERE s.project_id = p.id AND s.deleted_at IS NULL) AS study_count,
			       p.created_at,
			       p.updated_at
			  FROM projects p
			  LEFT JOIN pathogens pa
			    ON pa.id = p.pathogen_id AND pa.deleted_at IS NULL
			 WHERE p.deleted_at IS NULL
			   AND (p.pathogen_id IS NULL OR pa.id IS NOT NULL)`,
		"DROP VIEW IF EXISTS study_details",
		`CREATE VIEW study_details AS
			SELECT s.id,
			       s.study_id,
			       s.name,
			       s.description,
			       s.start_date,
			       s.end_date,
			       p.id   AS project_id,
			       p.slug AS project_slug,
			       p.name AS project_name,
			       p.organisation_id,
			       pa.id   AS pathogen_id,
			       pa.name AS pathogen_name,
			       s.created_at,
			       s.updated_at
			  FROM studies s
			  JOIN projects p
			    ON p.id = s.project_id AND p.deleted_at IS NULL
			  LEFT JOIN pathogens pa
			    ON pa.id = p.pathogen_id AND pa.deleted_at IS NULL
			 WHERE s.deleted_at IS NULL
			   AND (p.pathogen_id IS NULL OR pa.id IS NOT NULL)`,
	}

	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create views: %w", err)
		}
	}
	return nil
}
