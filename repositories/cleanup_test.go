package repositories_test

import (
	"errors"
	"sort"
	"testing"

	"gorm.io/gorm"

	"github.com/agari-platform/folio/dto"
	"github.com/agari-platform/folio/models"
	"github.com/agari-platform/folio/repositories"
	"github.com/agari-platform/folio/repositories/testutil"
)

func seedForeignProject(t *testing.T, db *gorm.DB, slug, organisationID, userID string) models.Project {
	t.Helper()
	project := models.Project{Slug: slug, Name: slug, OrganisationID: organisationID, UserID: userID}
	if err := db.Create(&project).Error; err != nil {
		t.Fatalf("seed project %q: %v", slug, err)
	}
	return project
}

// markDeleted soft-deletes a single row without any cascade, for building
// states the repositories only produce across separate operations.
func markDeleted(t *testing.T, db *gorm.DB, model interface{}, id string) {
	t.Helper()
	if err := db.Delete(model, "id = ?", id).Error; err != nil {
		t.Fatalf("mark deleted %v: %v", id, err)
	}
}

func TestCleanupCounts(t *testing.T) {
	db := testutil.DB(t)
	cleanup := repositories.NewCleanupRepository(db)
	projects := repositories.NewProjectRepository(db)

	testutil.SeedPathogen(t, db, "SARS-CoV-2")
	kept := testutil.SeedProject(t, db, "covid-survey", nil)
	gone := testutil.SeedProject(t, db, "flu-watch", nil)
	testutil.SeedStudy(t, db, kept.ID, "st-covid0001")
	testutil.SeedStudy(t, db, gone.ID, "st-flu000001")
	if err := projects.Delete(gone.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	counts, err := cleanup.Counts()
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	want := dto.DatabaseCounts{
		Pathogens: dto.EntityCounts{Active: 1, Deleted: 0, Total: 1},
		Projects:  dto.EntityCounts{Active: 1, Deleted: 1, Total: 2},
		Studies:   dto.EntityCounts{Active: 1, Deleted: 1, Total: 2},
	}
	if counts != want {
		t.Errorf("Counts = %+v, want %+v", counts, want)
	}
}

func TestCleanupDeletedListings(t *testing.T) {
	db := testutil.DB(t)
	cleanup := repositories.NewCleanupRepository(db)
	pathogens := repositories.NewPathogenRepository(db)
	projects := repositories.NewProjectRepository(db)

	zika := testutil.SeedPathogen(t, db, "Zika virus")
	ebola := testutil.SeedPathogen(t, db, "Ebola virus")
	if err := pathogens.Delete(zika.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := pathogens.Delete(ebola.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	survey := testutil.SeedProject(t, db, "covid-survey", nil)
	testutil.SeedStudy(t, db, survey.ID, "st-covid0002")
	testutil.SeedStudy(t, db, survey.ID, "st-covid0001")
	if err := projects.Delete(survey.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	deletedPathogens, err := cleanup.DeletedPathogens()
	if err != nil {
		t.Fatalf("DeletedPathogens: %v", err)
	}
	if len(deletedPathogens) != 2 || deletedPathogens[0].Name != "Ebola virus" {
		t.Errorf("DeletedPathogens = %d rows, first %q, want 2 in name order", len(deletedPathogens), deletedPathogens[0].Name)
	}

	deletedProjects, err := cleanup.DeletedProjects()
	if err != nil {
		t.Fatalf("DeletedProjects: %v", err)
	}
	if len(deletedProjects) != 1 || deletedProjects[0].Slug != "covid-survey" {
		t.Errorf("DeletedProjects = %+v, want the one deleted slug", deletedProjects)
	}

	deletedStudies, err := cleanup.DeletedStudies()
	if err != nil {
		t.Fatalf("DeletedStudies: %v", err)
	}
	if len(deletedStudies) != 2 || deletedStudies[0].StudyID != "st-covid0001" {
		t.Errorf("DeletedStudies = %d rows, first %q, want 2 in study id order", len(deletedStudies), deletedStudies[0].StudyID)
	}
}

func TestSoftDeleteByOrganisation(t *testing.T) {
	db := testutil.DB(t)
	cleanup := repositories.NewCleanupRepository(db)
	studies := repositories.NewStudyRepository(db)

	withStudies := testutil.SeedProject(t, db, "covid-survey", nil)
	testutil.SeedStudy(t, db, withStudies.ID, "st-covid0001")
	already := testutil.SeedStudy(t, db, withStudies.ID, "st-covid0002")
	if err := studies.Delete(already.ID); err != nil {
		t.Fatalf("Delete study: %v", err)
	}
	testutil.SeedProject(t, db, "flu-watch", nil)

	foreign := seedForeignProject(t, db, "tb-screening", "org2", "u2")
	foreignStudy := testutil.SeedStudy(t, db, foreign.ID, "st-tb0000001")

	projectCount, studyCount, err := cleanup.SoftDeleteByOrganisation("org1")
	if err != nil {
		t.Fatalf("SoftDeleteByOrganisation: %v", err)
	}
	if projectCount != 2 || studyCount != 1 {
		t.Errorf("deleted %d projects, %d studies, want 2 projects, 1 study", projectCount, studyCount)
	}

	if _, err := studies.FindByID(foreignStudy.ID, false); err != nil {
		t.Errorf("foreign study after org delete: %v", err)
	}

	// Everything matching is already deleted, so a repeat finds nothing.
	projectCount, studyCount, err = cleanup.SoftDeleteByOrganisation("org1")
	if err != nil {
		t.Fatalf("SoftDeleteByOrganisation repeat: %v", err)
	}
	if projectCount != 0 || studyCount != 0 {
		t.Errorf("repeat deleted %d projects, %d studies, want 0/0", projectCount, studyCount)
	}
}

func TestSoftDeleteByUser(t *testing.T) {
	db := testutil.DB(t)
	cleanup := repositories.NewCleanupRepository(db)
	projects := repositories.NewProjectRepository(db)

	mine := testutil.SeedProject(t, db, "covid-survey", nil)
	testutil.SeedStudy(t, db, mine.ID, "st-covid0001")
	theirs := seedForeignProject(t, db, "tb-screening", "org1", "u2")

	projectCount, studyCount, err := cleanup.SoftDeleteByUser("u1")
	if err != nil {
		t.Fatalf("SoftDeleteByUser: %v", err)
	}
	if projectCount != 1 || studyCount != 1 {
		t.Errorf("deleted %d projects, %d studies, want 1/1", projectCount, studyCount)
	}

	if _, err := projects.FindByID(theirs.ID, false); err != nil {
		t.Errorf("other user's project after delete: %v", err)
	}
	if _, err := projects.FindByID(mine.ID, false); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("own project after delete = %v, want ErrNotFound", err)
	}
}

// purgeFixture builds a mixed graph:
//
//	pathogen "gone"  soft-deleted, still referenced by the active project
//	pathogen "kept"  active
//	project  "purged-survey"   soft-deleted through the repository, its
//	                           study st-purged001 deleted with it
//	project  "stray-survey"    row marked deleted directly, its study
//	                           st-stray0001 left active
//	project  "active-survey"   active, one soft-deleted study
//	                           st-old000001 and one active st-new000001
type purgeFixture struct {
	gonePathogen models.Pathogen
	keptPathogen models.Pathogen
	purged       models.Project
	stray        models.Project
	active       models.Project
}

func seedPurgeFixture(t *testing.T, db *gorm.DB) purgeFixture {
	t.Helper()
	projects := repositories.NewProjectRepository(db)
	studies := repositories.NewStudyRepository(db)

	var f purgeFixture
	f.gonePathogen = testutil.SeedPathogen(t, db, "Marburg virus")
	f.keptPathogen = testutil.SeedPathogen(t, db, "SARS-CoV-2")

	f.purged = testutil.SeedProject(t, db, "purged-survey", nil)
	testutil.SeedStudy(t, db, f.purged.ID, "st-purged001")
	if err := projects.Delete(f.purged.ID); err != nil {
		t.Fatalf("delete purged project: %v", err)
	}

	f.stray = testutil.SeedProject(t, db, "stray-survey", nil)
	testutil.SeedStudy(t, db, f.stray.ID, "st-stray0001")
	markDeleted(t, db, &models.Project{}, f.stray.ID)

	f.active = testutil.SeedProject(t, db, "active-survey", &f.gonePathogen.ID)
	old := testutil.SeedStudy(t, db, f.active.ID, "st-old000001")
	testutil.SeedStudy(t, db, f.active.ID, "st-new000001")
	if err := studies.Delete(old.ID); err != nil {
		t.Fatalf("delete old study: %v", err)
	}

	// The pathogen row alone, so the active project keeps referencing it.
	markDeleted(t, db, &models.Pathogen{}, f.gonePathogen.ID)
	return f
}

func TestPurgeUnfiltered(t *testing.T) {
	db := testutil.DB(t)
	cleanup := repositories.NewCleanupRepository(db)
	projects := repositories.NewProjectRepository(db)
	studies := repositories.NewStudyRepository(db)
	pathogens := repositories.NewPathogenRepository(db)
	f := seedPurgeFixture(t, db)

	preview, err := cleanup.CountPurgeable(dto.CleanupFilter{})
	if err != nil {
		t.Fatalf("CountPurgeable: %v", err)
	}

	result, err := cleanup.Purge(dto.CleanupFilter{})
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}

	// Soft-deleted studies, both purged projects, the active study dragged
	// along with its dead project, and the soft-deleted pathogen.
	if result.Pathogens != 1 || result.Projects != 2 || result.Studies != 3 {
		t.Errorf("Purge = %d/%d/%d pathogens/projects/studies, want 1/2/3", result.Pathogens, result.Projects, result.Studies)
	}

	// The preview promised exactly what the purge delivered.
	if preview.Pathogens != result.Pathogens || preview.Projects != result.Projects || preview.Studies != result.Studies {
		t.Errorf("preview %d/%d/%d != purge %d/%d/%d",
			preview.Pathogens, preview.Projects, preview.Studies,
			result.Pathogens, result.Projects, result.Studies)
	}

	wantSlugs := []string{"purged-survey", "stray-survey"}
	gotSlugs := append([]string(nil), result.ProjectSlugs...)
	sort.Strings(gotSlugs)
	if len(gotSlugs) != 2 || gotSlugs[0] != wantSlugs[0] || gotSlugs[1] != wantSlugs[1] {
		t.Errorf("ProjectSlugs = %v, want %v", result.ProjectSlugs, wantSlugs)
	}

	if _, err := projects.FindByID(f.purged.ID, true); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("purged project still present: %v", err)
	}
	if _, err := studies.FindByStudyID("st-stray0001", true); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("dependent study still present: %v", err)
	}
	if _, err := studies.FindByStudyID("st-new000001", false); err != nil {
		t.Errorf("active study of active project: %v", err)
	}
	if _, err := pathogens.FindByID(f.keptPathogen.ID, false); err != nil {
		t.Errorf("active pathogen: %v", err)
	}

	// The purged pathogen released its reference from the surviving project.
	survivor, err := projects.FindByID(f.active.ID, false)
	if err != nil {
		t.Fatalf("FindByID survivor: %v", err)
	}
	if survivor.PathogenID != nil {
		t.Errorf("survivor pathogenID = %v, want nil", *survivor.PathogenID)
	}
}

func TestPurgeSingleEntity(t *testing.T) {
	t.Run("studies only", func(t *testing.T) {
		db := testutil.DB(t)
		cleanup := repositories.NewCleanupRepository(db)
		projects := repositories.NewProjectRepository(db)
		seedPurgeFixture(t, db)

		result, err := cleanup.Purge(dto.CleanupFilter{Entity: dto.EntityStudies})
		if err != nil {
			t.Fatalf("Purge: %v", err)
		}
		if result.Studies != 2 || result.Projects != 0 || result.Pathogens != 0 {
			t.Errorf("Purge = %d/%d/%d, want only the 2 soft-deleted studies", result.Pathogens, result.Projects, result.Studies)
		}

		deleted, err := projects.FindBySlug("purged-survey", true)
		if err != nil {
			t.Fatalf("FindBySlug: %v", err)
		}
		if !deleted.DeletedAt.Valid {
			t.Error("soft-deleted project lost its mark")
		}
	})

	t.Run("projects take all their study rows", func(t *testing.T) {
		db := testutil.DB(t)
		cleanup := repositories.NewCleanupRepository(db)
		studies := repositories.NewStudyRepository(db)
		seedPurgeFixture(t, db)

		preview, err := cleanup.CountPurgeable(dto.CleanupFilter{Entity: dto.EntityProjects})
		if err != nil {
			t.Fatalf("CountPurgeable: %v", err)
		}

		result, err := cleanup.Purge(dto.CleanupFilter{Entity: dto.EntityProjects})
		if err != nil {
			t.Fatalf("Purge: %v", err)
		}
		// Dependents count whatever their delete state, since the studies
		// kind is not separately included.
		if result.Projects != 2 || result.Studies != 2 || result.Pathogens != 0 {
			t.Errorf("Purge = %d/%d/%d, want 0/2/2", result.Pathogens, result.Projects, result.Studies)
		}
		if preview.Projects != result.Projects || preview.Studies != result.Studies {
			t.Errorf("preview %d/%d != purge %d/%d projects/studies", preview.Projects, preview.Studies, result.Projects, result.Studies)
		}

		// The soft-deleted study under the active project is out of scope.
		if _, err := studies.FindByStudyID("st-old000001", true); err != nil {
			t.Errorf("soft-deleted study of active project: %v", err)
		}
	})
}

func TestPurgeScopedBlockedByActiveRows(t *testing.T) {
	db := testutil.DB(t)
	cleanup := repositories.NewCleanupRepository(db)
	seedPurgeFixture(t, db)

	before, err := cleanup.Counts()
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}

	// org1 still has the active project, and the stray study keeps its
	// deleted project's scope occupied as well.
	if _, err := cleanup.Purge(dto.CleanupFilter{OrganisationID: "org1"}); !errors.Is(err, models.ErrPurgeBlocked) {
		t.Fatalf("Purge scoped with active rows = %v, want ErrPurgeBlocked", err)
	}

	after, err := cleanup.Counts()
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if before != after {
		t.Errorf("blocked purge changed counts: %+v -> %+v", before, after)
	}
}

func TestPurgeScopedAfterSoftDelete(t *testing.T) {
	db := testutil.DB(t)
	cleanup := repositories.NewCleanupRepository(db)
	projects := repositories.NewProjectRepository(db)
	pathogens := repositories.NewPathogenRepository(db)

	mine := testutil.SeedProject(t, db, "covid-survey", nil)
	testutil.SeedStudy(t, db, mine.ID, "st-covid0001")
	foreign := seedForeignProject(t, db, "tb-screening", "org2", "u2")
	deadPathogen := testutil.SeedPathogen(t, db, "Marburg virus")
	markDeleted(t, db, &models.Pathogen{}, deadPathogen.ID)

	if _, _, err := cleanup.SoftDeleteByOrganisation("org1"); err != nil {
		t.Fatalf("SoftDeleteByOrganisation: %v", err)
	}

	result, err := cleanup.Purge(dto.CleanupFilter{OrganisationID: "org1"})
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if result.Projects != 1 || result.Studies != 1 {
		t.Errorf("Purge = %d projects, %d studies, want 1/1", result.Projects, result.Studies)
	}
	// Pathogens carry no organisation, so the scoped purge leaves them.
	if result.Pathogens != 0 {
		t.Errorf("scoped purge removed %d pathogens, want 0", result.Pathogens)
	}
	if _, err := pathogens.FindByID(deadPathogen.ID, true); err != nil {
		t.Errorf("soft-deleted pathogen after scoped purge: %v", err)
	}
	if _, err := projects.FindByID(foreign.ID, false); err != nil {
		t.Errorf("foreign project after scoped purge: %v", err)
	}
}

func TestWipe(t *testing.T) {
	db := testutil.DB(t)
	cleanup := repositories.NewCleanupRepository(db)
	seedPurgeFixture(t, db)

	result, err := cleanup.Wipe()
	if err != nil {
		t.Fatalf("Wipe: %v", err)
	}
	if result.Pathogens != 2 || result.Projects != 3 || result.Studies != 4 {
		t.Errorf("Wipe = %d/%d/%d pathogens/projects/studies, want 2/3/4", result.Pathogens, result.Projects, result.Studies)
	}

	counts, err := cleanup.Counts()
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts.Pathogens.Total != 0 || counts.Projects.Total != 0 || counts.Studies.Total != 0 {
		t.Errorf("tables not empty after wipe: %+v", counts)
	}
}

func TestVacuum(t *testing.T) {
	db := testutil.DB(t)
	cleanup := repositories.NewCleanupRepository(db)
	seedPurgeFixture(t, db)

	if _, err := cleanup.Purge(dto.CleanupFilter{}); err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if err := cleanup.Vacuum(); err != nil {
		t.Fatalf("Vacuum: %v", err)
	}
}
