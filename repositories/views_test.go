package repositories_test

import (
	"errors"
	"testing"

	"github.com/agari-platform/folio/models"
	"github.com/agari-platform/folio/repositories"
	"github.com/agari-platform/folio/repositories/testutil"
)

func TestProjectSummaries(t *testing.T) {
	db := testutil.DB(t)
	views := repositories.NewViewRepository(db)
	studies := repositories.NewStudyRepository(db)
	projects := repositories.NewProjectRepository(db)

	pathogen := testutil.SeedPathogen(t, db, "SARS-CoV-2")
	covid := testutil.SeedProject(t, db, "covid-survey", &pathogen.ID)
	testutil.SeedStudy(t, db, covid.ID, "st-covid0001")
	testutil.SeedStudy(t, db, covid.ID, "st-covid0002")
	hidden := testutil.SeedStudy(t, db, covid.ID, "st-covid0003")
	if err := studies.Delete(hidden.ID); err != nil {
		t.Fatalf("Delete study: %v", err)
	}

	orphan := testutil.SeedProject(t, db, "flu-watch", nil)
	testutil.SeedStudy(t, db, orphan.ID, "st-flu000001")

	gone := testutil.SeedProject(t, db, "old-survey", nil)
	if err := projects.Delete(gone.ID); err != nil {
		t.Fatalf("Delete project: %v", err)
	}

	summaries, err := views.ProjectSummaries("")
	if err != nil {
		t.Fatalf("ProjectSummaries: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("ProjectSummaries = %d rows, want 2 (deleted project hidden)", len(summaries))
	}

	// Ordered by slug, so the covid survey comes first.
	first := summaries[0]
	if first.Slug != "covid-survey" {
		t.Fatalf("first summary slug = %q, want covid-survey", first.Slug)
	}
	if first.StudyCount != 2 {
		t.Errorf("study count = %d, want 2 active studies", first.StudyCount)
	}
	if first.PathogenName == nil || *first.PathogenName != "SARS-CoV-2" {
		t.Errorf("pathogen name = %v, want SARS-CoV-2", first.PathogenName)
	}

	second := summaries[1]
	if second.Slug != "flu-watch" {
		t.Errorf("second summary slug = %q, want flu-watch", second.Slug)
	}
	if second.PathogenID != nil || second.PathogenName != nil {
		t.Errorf("pathogen-less project carries pathogen fields: %v %v", second.PathogenID, second.PathogenName)
	}
	if second.StudyCount != 1 {
		t.Errorf("pathogen-less project study count = %d, want 1", second.StudyCount)
	}
}

func TestProjectSummariesHidePathogenDeletedProjects(t *testing.T) {
	db := testutil.DB(t)
	views := repositories.NewViewRepository(db)

	pathogen := testutil.SeedPathogen(t, db, "Marburg virus")
	testutil.SeedProject(t, db, "marburg-watch", &pathogen.ID)
	testutil.SeedProject(t, db, "flu-watch", nil)

	// Delete the pathogen row alone, leaving the project active. The view
	// still hides it: a dangling reference never surfaces as a summary.
	markDeleted(t, db, &models.Pathogen{}, pathogen.ID)

	summaries, err := views.ProjectSummaries("")
	if err != nil {
		t.Fatalf("ProjectSummaries: %v", err)
	}
	if len(summaries) != 1 || summaries[0].Slug != "flu-watch" {
		t.Errorf("summaries = %+v, want only flu-watch", summaries)
	}
}

func TestProjectSummariesOrganisationFilter(t *testing.T) {
	db := testutil.DB(t)
	views := repositories.NewViewRepository(db)

	testutil.SeedProject(t, db, "covid-survey", nil)
	seedForeignProject(t, db, "tb-screening", "org2", "u2")

	summaries, err := views.ProjectSummaries("org2")
	if err != nil {
		t.Fatalf("ProjectSummaries: %v", err)
	}
	if len(summaries) != 1 || summaries[0].Slug != "tb-screening" {
		t.Errorf("org2 summaries = %+v, want only tb-screening", summaries)
	}
}

func TestProjectSummaryBySlug(t *testing.T) {
	db := testutil.DB(t)
	views := repositories.NewViewRepository(db)
	projects := repositories.NewProjectRepository(db)

	project := testutil.SeedProject(t, db, "covid-survey", nil)

	summary, err := views.ProjectSummaryBySlug("covid-survey")
	if err != nil {
		t.Fatalf("ProjectSummaryBySlug: %v", err)
	}
	if summary.ID != project.ID {
		t.Errorf("summary id = %q, want %q", summary.ID, project.ID)
	}

	if err := projects.Delete(project.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := views.ProjectSummaryBySlug("covid-survey"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("ProjectSummaryBySlug deleted = %v, want ErrNotFound", err)
	}
	if _, err := views.ProjectSummaryBySlug("no-such-slug"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("ProjectSummaryBySlug missing = %v, want ErrNotFound", err)
	}
}

func TestStudyDetails(t *testing.T) {
	db := testutil.DB(t)
	views := repositories.NewViewRepository(db)
	studies := repositories.NewStudyRepository(db)
	projects := repositories.NewProjectRepository(db)

	pathogen := testutil.SeedPathogen(t, db, "SARS-CoV-2")
	covid := testutil.SeedProject(t, db, "covid-survey", &pathogen.ID)
	testutil.SeedStudy(t, db, covid.ID, "st-covid0002")
	testutil.SeedStudy(t, db, covid.ID, "st-covid0001")

	flu := testutil.SeedProject(t, db, "flu-watch", nil)
	testutil.SeedStudy(t, db, flu.ID, "st-flu000001")

	details, err := views.StudyDetails("")
	if err != nil {
		t.Fatalf("StudyDetails: %v", err)
	}
	if len(details) != 3 {
		t.Fatalf("StudyDetails = %d rows, want 3", len(details))
	}
	if details[0].StudyID != "st-covid0001" {
		t.Errorf("first detail = %q, want study id order", details[0].StudyID)
	}
	if details[0].ProjectSlug != "covid-survey" || details[0].PathogenName == nil {
		t.Errorf("first detail project %q pathogen %v, want joined fields", details[0].ProjectSlug, details[0].PathogenName)
	}
	if details[2].PathogenName != nil {
		t.Errorf("pathogen-less study carries pathogen name %v", *details[2].PathogenName)
	}

	scoped, err := views.StudyDetails(covid.ID)
	if err != nil {
		t.Fatalf("StudyDetails scoped: %v", err)
	}
	if len(scoped) != 2 {
		t.Errorf("scoped details = %d rows, want 2", len(scoped))
	}

	// Soft-deleting the study removes its row; soft-deleting the project
	// removes the rest.
	first, err := studies.FindByStudyID("st-covid0001", false)
	if err != nil {
		t.Fatalf("FindByStudyID: %v", err)
	}
	if err := studies.Delete(first.ID); err != nil {
		t.Fatalf("Delete study: %v", err)
	}
	if details, err = views.StudyDetails(covid.ID); err != nil || len(details) != 1 {
		t.Errorf("details after study delete = %d rows (err %v), want 1", len(details), err)
	}

	if err := projects.Delete(covid.ID); err != nil {
		t.Fatalf("Delete project: %v", err)
	}
	if details, err = views.StudyDetails(covid.ID); err != nil || len(details) != 0 {
		t.Errorf("details after project delete = %d rows (err %v), want 0", len(details), err)
	}
}

func TestStudyDetailsHidePathogenDeletedProjects(t *testing.T) {
	db := testutil.DB(t)
	views := repositories.NewViewRepository(db)

	pathogen := testutil.SeedPathogen(t, db, "Marburg virus")
	project := testutil.SeedProject(t, db, "marburg-watch", &pathogen.ID)
	testutil.SeedStudy(t, db, project.ID, "st-marburg01")

	markDeleted(t, db, &models.Pathogen{}, pathogen.ID)

	details, err := views.StudyDetails("")
	if err != nil {
		t.Fatalf("StudyDetails: %v", err)
	}
	if len(details) != 0 {
		t.Errorf("details = %d rows, want 0 once the pathogen is deleted", len(details))
	}
}
