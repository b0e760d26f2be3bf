package services_test

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/agari-platform/folio/dto"
	"github.com/agari-platform/folio/lib/keycloak/keycloaktest"
	"github.com/agari-platform/folio/logger"
	"github.com/agari-platform/folio/models"
	"github.com/agari-platform/folio/repositories"
	"github.com/agari-platform/folio/repositories/testutil"
	"github.com/agari-platform/folio/services"
)

func newProjectService(t *testing.T, db *gorm.DB, provisioner services.Provisioner) *services.ProjectService {
	t.Helper()
	return services.NewProjectService(
		repositories.NewProjectRepository(db),
		repositories.NewPathogenRepository(db),
		repositories.NewViewRepository(db),
		provisioner,
		logger.NewNop(),
	)
}

func strPtr(s string) *string {
	return &s
}

func TestCreateProjectProvisionsGraph(t *testing.T) {
	db := testutil.DB(t)
	provisioning, fake := newProvisioning(t)
	fake.AddUser("alice", "alice@example.org")
	svc := newProjectService(t, db, provisioning)

	project, err := svc.CreateProject(context.Background(), dto.CreateProjectRequest{
		Slug:           "covid-survey",
		Name:           "National COVID survey",
		OrganisationID: "org1",
		Privacy:        "public",
	}, "alice")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if project.UserID != "alice" {
		t.Errorf("project userID = %q, want the creator", project.UserID)
	}
	if project.Privacy != models.PrivacyPublic {
		t.Errorf("privacy = %q, want public", project.Privacy)
	}

	if _, ok := fake.ResourceByName("folio.covid-survey"); !ok {
		t.Error("protected resource missing after creation")
	}
	members := fake.MembersOf("folio-covid-survey-admin")
	if len(members) != 1 || members[0] != "alice" {
		t.Errorf("admin group members = %v, want the creator", members)
	}
}

func TestCreateProjectValidation(t *testing.T) {
	db := testutil.DB(t)
	provisioning, fake := newProvisioning(t)
	svc := newProjectService(t, db, provisioning)
	ctx := context.Background()

	cases := []struct {
		name string
		req  dto.CreateProjectRequest
		want error
	}{
		{
			"uppercase slug",
			dto.CreateProjectRequest{Slug: "Covid-Survey", Name: "x", OrganisationID: "org1"},
			models.ErrInvalidInput,
		},
		{
			"double hyphen slug",
			dto.CreateProjectRequest{Slug: "covid--survey", Name: "x", OrganisationID: "org1"},
			models.ErrInvalidInput,
		},
		{
			"unknown privacy",
			dto.CreateProjectRequest{Slug: "covid-survey", Name: "x", OrganisationID: "org1", Privacy: "secret"},
			models.ErrInvalidInput,
		},
		{
			"unknown pathogen",
			dto.CreateProjectRequest{Slug: "covid-survey", Name: "x", OrganisationID: "org1", PathogenID: strPtr("no-such-id")},
			models.ErrInvalidReference,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.CreateProject(ctx, tc.req, "alice"); !errors.Is(err, tc.want) {
				t.Errorf("CreateProject = %v, want %v", err, tc.want)
			}
		})
	}

	// Validation failures never reach the authorization server.
	if got := fake.CallCount(keycloaktest.OpToken); got != 0 {
		t.Errorf("token requests after rejected creations = %d, want 0", got)
	}
}

func TestCreateProjectDuplicateSlug(t *testing.T) {
	db := testutil.DB(t)
	provisioning, fake := newProvisioning(t)
	svc := newProjectService(t, db, provisioning)

	testutil.SeedProject(t, db, "covid-survey", nil)

	_, err := svc.CreateProject(context.Background(), dto.CreateProjectRequest{
		Slug:           "covid-survey",
		Name:           "Second",
		OrganisationID: "org2",
	}, "bob")
	if !errors.Is(err, models.ErrConflict) {
		t.Fatalf("CreateProject duplicate = %v, want ErrConflict", err)
	}

	// The losing insert never talks to the authorization server: the slug
	// reservation decides before any graph work starts.
	if got := fake.CallCount(keycloaktest.OpToken); got != 0 {
		t.Errorf("token requests after lost reservation = %d, want 0", got)
	}
}

func TestCreateProjectReleasesSlugOnProvisioningFailure(t *testing.T) {
	db := testutil.DB(t)
	provisioning, fake := newProvisioning(t)
	fake.AddUser("alice", "alice@example.org")
	svc := newProjectService(t, db, provisioning)
	projects := repositories.NewProjectRepository(db)
	ctx := context.Background()

	fake.FailNext(keycloaktest.OpCreateGroup, 400, 1)

	req := dto.CreateProjectRequest{Slug: "covid-survey", Name: "Survey", OrganisationID: "org1"}
	_, err := svc.CreateProject(ctx, req, "alice")
	var pErr *models.ProvisioningError
	if !errors.As(err, &pErr) {
		t.Fatalf("CreateProject = %v, want ProvisioningError", err)
	}

	// No row, not even a soft-deleted one, and no leftover graph objects.
	if _, err := projects.FindBySlug("covid-survey", true); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("reserved row after failed provisioning = %v, want ErrNotFound", err)
	}
	resources, groups, policies, permissions := fake.Stats()
	if resources+groups+policies+permissions != 0 {
		t.Errorf("leftover graph objects: %d/%d/%d/%d", resources, groups, policies, permissions)
	}

	// The slug is free again.
	if _, err := svc.CreateProject(ctx, req, "alice"); err != nil {
		t.Fatalf("CreateProject after released reservation: %v", err)
	}
}

func TestCreateProjectWithoutProvisioner(t *testing.T) {
	db := testutil.DB(t)
	svc := newProjectService(t, db, nil)

	project, err := svc.CreateProject(context.Background(), dto.CreateProjectRequest{
		Slug:           "covid-survey",
		Name:           "Survey",
		OrganisationID: "org1",
	}, "alice")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if project.ID == "" {
		t.Error("project not persisted")
	}
}

func TestUpdateProject(t *testing.T) {
	db := testutil.DB(t)
	svc := newProjectService(t, db, nil)
	pathogen := testutil.SeedPathogen(t, db, "SARS-CoV-2")
	project := testutil.SeedProject(t, db, "covid-survey", nil)

	updated, err := svc.UpdateProject(project.ID, dto.UpdateProjectRequest{
		Name:       strPtr("Renamed"),
		Privacy:    strPtr("public"),
		PathogenID: &pathogen.ID,
	})
	if err != nil {
		t.Fatalf("UpdateProject: %v", err)
	}
	if updated.Name != "Renamed" || updated.Privacy != models.PrivacyPublic {
		t.Errorf("updated = %q/%q, want Renamed/public", updated.Name, updated.Privacy)
	}
	if updated.PathogenID == nil || *updated.PathogenID != pathogen.ID {
		t.Errorf("pathogen reference = %v, want %q", updated.PathogenID, pathogen.ID)
	}
	if updated.Slug != "covid-survey" {
		t.Errorf("slug changed to %q", updated.Slug)
	}

	// An empty pathogen id clears the association.
	cleared, err := svc.UpdateProject(project.ID, dto.UpdateProjectRequest{PathogenID: strPtr("")})
	if err != nil {
		t.Fatalf("UpdateProject clear pathogen: %v", err)
	}
	if cleared.PathogenID != nil {
		t.Errorf("pathogen reference = %v, want cleared", cleared.PathogenID)
	}

	if _, err := svc.UpdateProject(project.ID, dto.UpdateProjectRequest{Privacy: strPtr("secret")}); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("invalid privacy = %v, want ErrInvalidInput", err)
	}
	if _, err := svc.UpdateProject(project.ID, dto.UpdateProjectRequest{PathogenID: strPtr("no-such-id")}); !errors.Is(err, models.ErrInvalidReference) {
		t.Errorf("unknown pathogen = %v, want ErrInvalidReference", err)
	}

	if err := svc.DeleteProject(project.ID); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}
	if _, err := svc.UpdateProject(project.ID, dto.UpdateProjectRequest{Name: strPtr("x")}); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("update deleted project = %v, want ErrNotFound", err)
	}
}

func TestListProjectsNormalizesFilter(t *testing.T) {
	db := testutil.DB(t)
	svc := newProjectService(t, db, nil)
	testutil.SeedProject(t, db, "a-survey", nil)
	testutil.SeedProject(t, db, "b-survey", nil)
	testutil.SeedProject(t, db, "c-survey", nil)

	// Hostile sort input falls back to the default column.
	resp, err := svc.ListProjects(dto.ProjectFilter{SortBy: "slug; DROP TABLE projects", PageSize: 2})
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if resp.Page != 1 || resp.PageSize != 2 {
		t.Errorf("normalized page/pageSize = %d/%d, want 1/2", resp.Page, resp.PageSize)
	}
	if resp.TotalCount != 3 || resp.TotalPages != 2 {
		t.Errorf("totalCount/totalPages = %d/%d, want 3/2", resp.TotalCount, resp.TotalPages)
	}
	if len(resp.Projects) != 2 {
		t.Errorf("page = %d rows, want 2", len(resp.Projects))
	}
}

func TestPurgeProject(t *testing.T) {
	db := testutil.DB(t)
	provisioning, fake := newProvisioning(t)
	fake.AddUser("alice", "alice@example.org")
	svc := newProjectService(t, db, provisioning)
	projects := repositories.NewProjectRepository(db)
	ctx := context.Background()

	project, err := svc.CreateProject(ctx, dto.CreateProjectRequest{
		Slug:           "covid-survey",
		Name:           "Survey",
		OrganisationID: "org1",
	}, "alice")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	// Active projects cannot be purged.
	if err := svc.PurgeProject(ctx, project.ID); !errors.Is(err, models.ErrPurgeBlocked) {
		t.Fatalf("PurgeProject active = %v, want ErrPurgeBlocked", err)
	}
	if _, err := projects.FindByID(project.ID, false); err != nil {
		t.Fatalf("project after blocked purge: %v", err)
	}

	if err := svc.DeleteProject(project.ID); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}
	// Soft deletion leaves the graph up for a potential restore.
	if _, ok := fake.ResourceByName("folio.covid-survey"); !ok {
		t.Error("resource gone after soft delete")
	}

	if err := svc.PurgeProject(ctx, project.ID); err != nil {
		t.Fatalf("PurgeProject: %v", err)
	}
	if _, err := projects.FindByID(project.ID, true); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("row after purge = %v, want ErrNotFound", err)
	}
	resources, groups, policies, permissions := fake.Stats()
	if resources+groups+policies+permissions != 0 {
		t.Errorf("graph after purge: %d/%d/%d/%d, want torn down", resources, groups, policies, permissions)
	}

	if err := svc.PurgeProject(ctx, project.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("PurgeProject missing = %v, want ErrNotFound", err)
	}
}

// TestProjectPathogenLifecycle walks the dependency chain end to end:
// deleting a pathogen takes its projects and studies down, restores climb
// back up row by row, and the reporting views only show rows whose whole
// chain is active.
func TestProjectPathogenLifecycle(t *testing.T) {
	db := testutil.DB(t)
	projectSvc := newProjectService(t, db, nil)
	pathogenSvc := services.NewPathogenService(repositories.NewPathogenRepository(db), logger.NewNop())
	studyRepo := repositories.NewStudyRepository(db)

	pathogen := testutil.SeedPathogen(t, db, "SARS-CoV-2")
	project := testutil.SeedProject(t, db, "covid-survey", &pathogen.ID)
	study := testutil.SeedStudy(t, db, project.ID, "st-covid0001")

	if err := pathogenSvc.DeletePathogen(pathogen.ID); err != nil {
		t.Fatalf("DeletePathogen: %v", err)
	}
	if _, err := projectSvc.GetProject(project.ID, false); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("project after pathogen delete = %v, want ErrNotFound", err)
	}

	// The project can come back while its pathogen is still deleted.
	if err := projectSvc.RestoreProject(project.ID); err != nil {
		t.Fatalf("RestoreProject: %v", err)
	}
	if _, err := projectSvc.GetProject(project.ID, false); err != nil {
		t.Fatalf("project after restore: %v", err)
	}

	// But the reporting view keeps hiding it until the pathogen returns.
	summaries, err := projectSvc.ProjectSummaries("")
	if err != nil {
		t.Fatalf("ProjectSummaries: %v", err)
	}
	if len(summaries) != 0 {
		t.Errorf("summaries with deleted pathogen = %d rows, want 0", len(summaries))
	}

	if err := pathogenSvc.RestorePathogen(pathogen.ID); err != nil {
		t.Fatalf("RestorePathogen: %v", err)
	}
	summaries, err = projectSvc.ProjectSummaries("")
	if err != nil {
		t.Fatalf("ProjectSummaries: %v", err)
	}
	if len(summaries) != 1 || summaries[0].Slug != "covid-survey" {
		t.Fatalf("summaries after pathogen restore = %+v, want covid-survey", summaries)
	}

	// The study stayed deleted through both restores.
	if summaries[0].StudyCount != 0 {
		t.Errorf("study count = %d, want 0 while the study is deleted", summaries[0].StudyCount)
	}
	if err := studyRepo.Restore(study.ID); err != nil {
		t.Fatalf("Restore study: %v", err)
	}
	summaries, _ = projectSvc.ProjectSummaries("")
	if summaries[0].StudyCount != 1 {
		t.Errorf("study count after restore = %d, want 1", summaries[0].StudyCount)
	}
}
