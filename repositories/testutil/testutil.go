// Package testutil opens throwaway sqlite databases carrying the full
// schema, plus seed helpers shared by repository and service tests.
package testutil

import (
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/agari-platform/folio/config"
	"github.com/agari-platform/folio/database"
	"github.com/agari-platform/folio/models"
)

// DB opens a fresh database migrated under the strict slug-reuse policy
func DB(t *testing.T) *gorm.DB {
	t.Helper()
	return DBWithPolicy(t, config.SlugReuseStrict)
}

// DBWithPolicy opens a fresh database migrated under the given slug-reuse
// policy. The file lives in the test's temp dir and disappears with it.
func DBWithPolicy(t *testing.T, policy config.SlugReusePolicy) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "folio.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	if err := database.Migrate(db, policy); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return db
}

// SeedPathogen inserts an active pathogen
func SeedPathogen(t *testing.T, db *gorm.DB, name string) models.Pathogen {
	t.Helper()
	pathogen := models.Pathogen{Name: name}
	if err := db.Create(&pathogen).Error; err != nil {
		t.Fatalf("seed pathogen %q: %v", name, err)
	}
	return pathogen
}

// SeedProject inserts an active project owned by user "u1" in organisation
// "org1", optionally linked to a pathogen
func SeedProject(t *testing.T, db *gorm.DB, slug string, pathogenID *string) models.Project {
	t.Helper()
	project := models.Project{
		Slug:           slug,
		Name:           slug,
		OrganisationID: "org1",
		UserID:         "u1",
		PathogenID:     pathogenID,
	}
	if err := db.Create(&project).Error; err != nil {
		t.Fatalf("seed project %q: %v", slug, err)
	}
	return project
}

// SeedStudy inserts an active study under the given project
func SeedStudy(t *testing.T, db *gorm.DB, projectID, studyID string) models.Study {
	t.Helper()
	study := models.Study{
		StudyID:   studyID,
		Name:      studyID,
		ProjectID: projectID,
	}
	if err := db.Create(&study).Error; err != nil {
		t.Fatalf("seed study %q: %v", studyID, err)
	}
	return study
}
