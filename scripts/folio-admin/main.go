package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/agari-platform/folio/config"
	"github.com/agari-platform/folio/database"
	"github.com/agari-platform/folio/dto"
	"github.com/agari-platform/folio/lib/keycloak"
	"github.com/agari-platform/folio/logger"
	"github.com/agari-platform/folio/models"
	"github.com/agari-platform/folio/repositories"
	"github.com/agari-platform/folio/services"
)

const separator = "--------------------------------------------------------------------------------"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 2 {
		printUsage()
		return fmt.Errorf("subcommand required")
	}

	subcommand := os.Args[1]
	switch subcommand {
	case "list":
		return runList(os.Args[2:])
	case "list-deleted":
		return runListDeleted(os.Args[2:])
	case "count":
		return runCount(os.Args[2:])
	case "delete-pathogen":
		return runDeletePathogen(os.Args[2:])
	case "delete-project":
		return runDeleteProject(os.Args[2:])
	case "delete-study":
		return runDeleteStudy(os.Args[2:])
	case "delete-by-organisation":
		return runDeleteByOrganisation(os.Args[2:])
	case "delete-by-user":
		return runDeleteByUser(os.Args[2:])
	case "restore-pathogen":
		return runRestore(os.Args[2:], "pathogen")
	case "restore-project":
		return runRestore(os.Args[2:], "project")
	case "restore-study":
		return runRestore(os.Args[2:], "study")
	case "purge":
		return runPurge(os.Args[2:])
	case "wipe":
		return runWipe(os.Args[2:])
	case "vacuum":
		return runVacuum(os.Args[2:])
	case "migrate":
		return runMigrate(os.Args[2:])
	case "-h", "--help", "help":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown subcommand: %q", subcommand)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: folio-admin <subcommand> [flags]

Subcommands:
  list                          List active projects with pathogen and study counts
  list-deleted                  List soft-deleted pathogens, projects and studies
  count                         Show active/deleted/total row counts per table
  delete-pathogen <id>          Soft-delete a pathogen and its projects and studies
  delete-project <id>           Soft-delete a project and its studies
  delete-study <id>             Soft-delete a study
  delete-by-organisation <org>  Soft-delete all active projects of an organisation
  delete-by-user <user>         Soft-delete all active projects created by a user
  restore-pathogen <id>         Clear the delete mark on a pathogen
  restore-project <id>          Clear the delete mark on a project
  restore-study <id>            Clear the delete mark on a study
  purge                         Permanently remove soft-deleted rows
  wipe                          Permanently erase ALL data (requires confirmation phrase)
  vacuum                        Reclaim storage and refresh planner statistics
  migrate                       Run schema migrations and create views

Destructive subcommands print a summary and prompt before acting; pass
--force to skip the prompt. Run 'folio-admin <subcommand> --help' for
subcommand flags.
`)
}

// adminEnv bundles the wired services the subcommands work with. The CLI
// talks to the database directly rather than through the REST API.
type adminEnv struct {
	cfg       config.Config
	log       *logger.Logger
	pathogens *services.PathogenService
	projects  *services.ProjectService
	studies   *services.StudyService
	cleanup   *services.CleanupService
}

func openEnv() (*adminEnv, error) {
	config.LoadEnv()
	cfg := config.Load()

	log, err := logger.New(cfg.Mode)
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	pathogenRepo := repositories.NewPathogenRepository(db)
	projectRepo := repositories.NewProjectRepository(db)
	studyRepo := repositories.NewStudyRepository(db)
	viewRepo := repositories.NewViewRepository(db)
	cleanupRepo := repositories.NewCleanupRepository(db)

	// The authorization graph is only touched when the identity provider is
	// configured; without credentials the commands operate on the database
	// alone.
	var provisioner services.Provisioner
	if cfg.Keycloak.ClientSecret != "" {
		kc, err := keycloak.NewClient(cfg.Keycloak, log)
		if err != nil {
			return nil, fmt.Errorf("configuring keycloak client: %w", err)
		}
		provisioner = services.NewProvisioningService(kc, cfg.AppName, log)
	}

	return &adminEnv{
		cfg:       cfg,
		log:       log,
		pathogens: services.NewPathogenService(pathogenRepo, log),
		projects:  services.NewProjectService(projectRepo, pathogenRepo, viewRepo, provisioner, log),
		studies:   services.NewStudyService(studyRepo, projectRepo, viewRepo, log),
		cleanup:   services.NewCleanupService(cleanupRepo, provisioner, log),
	}, nil
}

// confirm asks for a yes/no answer on stdin. Anything other than "yes"
// cancels.
func confirm(prompt string) bool {
	fmt.Printf("%s (yes/no): ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	return strings.TrimSpace(strings.ToLower(line)) == "yes"
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runList(args []string) error {
	flags := flag.NewFlagSet("list", flag.ExitOnError)
	organisation := flags.String("organisation", "", "restrict to one organisation")
	flags.Parse(args)

	env, err := openEnv()
	if err != nil {
		return err
	}

	summaries, err := env.projects.ProjectSummaries(*organisation)
	if err != nil {
		return fmt.Errorf("listing projects: %w", err)
	}

	if len(summaries) == 0 {
		fmt.Println("No active projects found.")
		return nil
	}

	fmt.Printf("Found %d projects:\n", len(summaries))
	fmt.Println(separator)
	for _, summary := range summaries {
		pathogen := "(none)"
		if summary.PathogenName != nil {
			pathogen = *summary.PathogenName
		}
		fmt.Printf("Slug: %s\n", summary.Slug)
		fmt.Printf("Name: %s\n", summary.Name)
		fmt.Printf("Organisation: %s\n", summary.OrganisationID)
		fmt.Printf("Privacy: %s\n", summary.Privacy)
		fmt.Printf("Pathogen: %s\n", pathogen)
		fmt.Printf("Active studies: %d\n", summary.StudyCount)
		fmt.Printf("Created: %s\n", summary.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Println(separator)
	}
	return nil
}

func runListDeleted(args []string) error {
	flags := flag.NewFlagSet("list-deleted", flag.ExitOnError)
	flags.Parse(args)

	env, err := openEnv()
	if err != nil {
		return err
	}

	pathogens, err := env.cleanup.DeletedPathogens()
	if err != nil {
		return fmt.Errorf("listing deleted pathogens: %w", err)
	}
	projects, err := env.cleanup.DeletedProjects()
	if err != nil {
		return fmt.Errorf("listing deleted projects: %w", err)
	}
	studies, err := env.cleanup.DeletedStudies()
	if err != nil {
		return fmt.Errorf("listing deleted studies: %w", err)
	}

	fmt.Printf("Deleted pathogens (%d):\n", len(pathogens))
	for _, pathogen := range pathogens {
		fmt.Printf("  %s  %s  deleted %s\n",
			pathogen.ID, pathogen.Name, pathogen.DeletedAt.Time.Format("2006-01-02 15:04:05"))
	}
	fmt.Printf("Deleted projects (%d):\n", len(projects))
	for _, project := range projects {
		fmt.Printf("  %s  %s (%s)  deleted %s\n",
			project.ID, project.Slug, project.Name, project.DeletedAt.Time.Format("2006-01-02 15:04:05"))
	}
	fmt.Printf("Deleted studies (%d):\n", len(studies))
	for _, study := range studies {
		fmt.Printf("  %s  %s (%s)  deleted %s\n",
			study.ID, study.StudyID, study.Name, study.DeletedAt.Time.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runCount(args []string) error {
	flags := flag.NewFlagSet("count", flag.ExitOnError)
	flags.Parse(args)

	env, err := openEnv()
	if err != nil {
		return err
	}

	counts, err := env.cleanup.Counts()
	if err != nil {
		return fmt.Errorf("counting rows: %w", err)
	}

	fmt.Printf("%-10s %8s %8s %8s\n", "table", "active", "deleted", "total")
	fmt.Printf("%-10s %8d %8d %8d\n", "pathogens",
		counts.Pathogens.Active, counts.Pathogens.Deleted, counts.Pathogens.Total)
	fmt.Printf("%-10s %8d %8d %8d\n", "projects",
		counts.Projects.Active, counts.Projects.Deleted, counts.Projects.Total)
	fmt.Printf("%-10s %8d %8d %8d\n", "studies",
		counts.Studies.Active, counts.Studies.Deleted, counts.Studies.Total)
	return nil
}

func runDeletePathogen(args []string) error {
	flags := flag.NewFlagSet("delete-pathogen", flag.ExitOnError)
	force := flags.Bool("force", false, "skip the confirmation prompt")
	flags.Parse(args)
	if flags.NArg() != 1 {
		return fmt.Errorf("usage: folio-admin delete-pathogen [--force] <id>")
	}
	id := flags.Arg(0)

	env, err := openEnv()
	if err != nil {
		return err
	}

	pathogen, err := env.pathogens.GetPathogen(id, false)
	if err != nil {
		return fmt.Errorf("looking up pathogen %q: %w", id, err)
	}

	projects, err := env.projects.ListProjects(dto.ProjectFilter{PathogenID: id, Page: 1, PageSize: 1})
	if err != nil {
		return fmt.Errorf("counting projects: %w", err)
	}

	fmt.Printf("Pathogen to delete: %s\n", pathogen.Name)
	fmt.Printf("Active projects affected: %d\n", projects.TotalCount)
	if !*force && !confirm(fmt.Sprintf("Soft-delete pathogen %q, its projects and their studies?", pathogen.Name)) {
		fmt.Println("Delete cancelled.")
		return nil
	}

	if err := env.pathogens.DeletePathogen(id); err != nil {
		return fmt.Errorf("deleting pathogen: %w", err)
	}
	fmt.Printf("Soft-deleted pathogen %q and its dependents.\n", pathogen.Name)
	return nil
}

func runDeleteProject(args []string) error {
	flags := flag.NewFlagSet("delete-project", flag.ExitOnError)
	force := flags.Bool("force", false, "skip the confirmation prompt")
	flags.Parse(args)
	if flags.NArg() != 1 {
		return fmt.Errorf("usage: folio-admin delete-project [--force] <id>")
	}
	id := flags.Arg(0)

	env, err := openEnv()
	if err != nil {
		return err
	}

	project, err := env.projects.GetProject(id, false)
	if err != nil {
		return fmt.Errorf("looking up project %q: %w", id, err)
	}

	studies, err := env.studies.ListStudies(dto.StudyFilter{ProjectID: id, Page: 1, PageSize: 1})
	if err != nil {
		return fmt.Errorf("counting studies: %w", err)
	}

	fmt.Printf("Project to delete: %s\n", project.Slug)
	fmt.Printf("Name: %s\n", project.Name)
	fmt.Printf("Organisation: %s\n", project.OrganisationID)
	fmt.Printf("Active studies affected: %d\n", studies.TotalCount)
	if !*force && !confirm(fmt.Sprintf("Soft-delete project %q and its studies?", project.Slug)) {
		fmt.Println("Delete cancelled.")
		return nil
	}

	if err := env.projects.DeleteProject(id); err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	fmt.Printf("Soft-deleted project %q and its studies.\n", project.Slug)
	return nil
}

func runDeleteStudy(args []string) error {
	flags := flag.NewFlagSet("delete-study", flag.ExitOnError)
	force := flags.Bool("force", false, "skip the confirmation prompt")
	flags.Parse(args)
	if flags.NArg() != 1 {
		return fmt.Errorf("usage: folio-admin delete-study [--force] <id>")
	}
	id := flags.Arg(0)

	env, err := openEnv()
	if err != nil {
		return err
	}

	study, err := env.studies.GetStudy(id, false)
	if err != nil {
		return fmt.Errorf("looking up study %q: %w", id, err)
	}

	fmt.Printf("Study to delete: %s\n", study.StudyID)
	fmt.Printf("Name: %s\n", study.Name)
	if !*force && !confirm(fmt.Sprintf("Soft-delete study %q?", study.StudyID)) {
		fmt.Println("Delete cancelled.")
		return nil
	}

	if err := env.studies.DeleteStudy(id); err != nil {
		return fmt.Errorf("deleting study: %w", err)
	}
	fmt.Printf("Soft-deleted study %q.\n", study.StudyID)
	return nil
}

func runDeleteByOrganisation(args []string) error {
	flags := flag.NewFlagSet("delete-by-organisation", flag.ExitOnError)
	force := flags.Bool("force", false, "skip the confirmation prompt")
	flags.Parse(args)
	if flags.NArg() != 1 {
		return fmt.Errorf("usage: folio-admin delete-by-organisation [--force] <organisation-id>")
	}
	organisationID := flags.Arg(0)

	env, err := openEnv()
	if err != nil {
		return err
	}

	active, err := env.projects.ListProjects(dto.ProjectFilter{OrganisationID: organisationID, Page: 1, PageSize: 1})
	if err != nil {
		return fmt.Errorf("counting projects: %w", err)
	}

	fmt.Printf("Organisation: %s\n", organisationID)
	fmt.Printf("Active projects affected: %d\n", active.TotalCount)
	if !*force && !confirm(fmt.Sprintf("Soft-delete all active projects of organisation %q and their studies?", organisationID)) {
		fmt.Println("Delete cancelled.")
		return nil
	}

	projects, studies, err := env.cleanup.DeleteByOrganisation(organisationID)
	if err != nil {
		return fmt.Errorf("deleting by organisation: %w", err)
	}
	fmt.Printf("Soft-deleted %d projects and %d studies.\n", projects, studies)
	return nil
}

func runDeleteByUser(args []string) error {
	flags := flag.NewFlagSet("delete-by-user", flag.ExitOnError)
	force := flags.Bool("force", false, "skip the confirmation prompt")
	flags.Parse(args)
	if flags.NArg() != 1 {
		return fmt.Errorf("usage: folio-admin delete-by-user [--force] <user-id>")
	}
	userID := flags.Arg(0)

	env, err := openEnv()
	if err != nil {
		return err
	}

	active, err := env.projects.ListProjects(dto.ProjectFilter{UserID: userID, Page: 1, PageSize: 1})
	if err != nil {
		return fmt.Errorf("counting projects: %w", err)
	}

	fmt.Printf("User: %s\n", userID)
	fmt.Printf("Active projects affected: %d\n", active.TotalCount)
	if !*force && !confirm(fmt.Sprintf("Soft-delete all active projects created by %q and their studies?", userID)) {
		fmt.Println("Delete cancelled.")
		return nil
	}

	projects, studies, err := env.cleanup.DeleteByUser(userID)
	if err != nil {
		return fmt.Errorf("deleting by user: %w", err)
	}
	fmt.Printf("Soft-deleted %d projects and %d studies.\n", projects, studies)
	return nil
}

func runRestore(args []string, kind string) error {
	flags := flag.NewFlagSet("restore-"+kind, flag.ExitOnError)
	flags.Parse(args)
	if flags.NArg() != 1 {
		return fmt.Errorf("usage: folio-admin restore-%s <id>", kind)
	}
	id := flags.Arg(0)

	env, err := openEnv()
	if err != nil {
		return err
	}

	switch kind {
	case "pathogen":
		err = env.pathogens.RestorePathogen(id)
	case "project":
		err = env.projects.RestoreProject(id)
	case "study":
		err = env.studies.RestoreStudy(id)
	}
	if err != nil {
		return fmt.Errorf("restoring %s %q: %w", kind, id, err)
	}
	fmt.Printf("Restored %s %q.\n", kind, id)
	return nil
}

func runPurge(args []string) error {
	flags := flag.NewFlagSet("purge", flag.ExitOnError)
	entity := flags.String("entity", "", "restrict to one table (pathogens, projects, studies)")
	organisation := flags.String("organisation", "", "restrict to one organisation")
	user := flags.String("user", "", "restrict to one creating user")
	force := flags.Bool("force", false, "skip the confirmation prompt")
	flags.Parse(args)

	env, err := openEnv()
	if err != nil {
		return err
	}

	filter := dto.CleanupFilter{
		Entity:         *entity,
		OrganisationID: *organisation,
		UserID:         *user,
	}

	preview, err := env.cleanup.PurgePreview(filter)
	if err != nil {
		return fmt.Errorf("previewing purge: %w", err)
	}
	if preview.Total() == 0 {
		fmt.Println("Nothing to purge.")
		return nil
	}

	fmt.Printf("This will PERMANENTLY delete %d pathogens, %d projects and %d studies.\n",
		preview.Pathogens, preview.Projects, preview.Studies)
	if !*force && !confirm("Continue?") {
		fmt.Println("Purge cancelled.")
		return nil
	}

	ctx, stop := signalContext()
	defer stop()

	result, err := env.cleanup.Purge(ctx, filter)
	if err != nil {
		return fmt.Errorf("purging: %w", err)
	}
	fmt.Printf("Purged %d pathogens\n", result.Pathogens)
	fmt.Printf("Purged %d projects\n", result.Projects)
	fmt.Printf("Purged %d studies\n", result.Studies)
	return nil
}

func runWipe(args []string) error {
	flags := flag.NewFlagSet("wipe", flag.ExitOnError)
	confirmation := flags.String("confirm", "", fmt.Sprintf("the confirmation phrase %q", models.WipeConfirmationPhrase))
	force := flags.Bool("force", false, "skip the yes/no prompt (the phrase is still required)")
	flags.Parse(args)

	env, err := openEnv()
	if err != nil {
		return err
	}

	counts, err := env.cleanup.Counts()
	if err != nil {
		return fmt.Errorf("counting rows: %w", err)
	}

	fmt.Printf("This will PERMANENTLY erase ALL data: %d pathogens, %d projects, %d studies.\n",
		counts.Pathogens.Total, counts.Projects.Total, counts.Studies.Total)
	if !*force && !confirm("This cannot be undone. Continue?") {
		fmt.Println("Wipe cancelled.")
		return nil
	}

	result, err := env.cleanup.Wipe(*confirmation)
	if err != nil {
		return fmt.Errorf("wiping: %w", err)
	}
	fmt.Printf("Erased %d pathogens\n", result.Pathogens)
	fmt.Printf("Erased %d projects\n", result.Projects)
	fmt.Printf("Erased %d studies\n", result.Studies)
	return nil
}

func runVacuum(args []string) error {
	flags := flag.NewFlagSet("vacuum", flag.ExitOnError)
	flags.Parse(args)

	env, err := openEnv()
	if err != nil {
		return err
	}

	fmt.Println("Running VACUUM on database...")
	if err := env.cleanup.Vacuum(); err != nil {
		return fmt.Errorf("vacuuming: %w", err)
	}
	fmt.Println("VACUUM completed successfully.")
	return nil
}

func runMigrate(args []string) error {
	flags := flag.NewFlagSet("migrate", flag.ExitOnError)
	flags.Parse(args)

	config.LoadEnv()
	cfg := config.Load()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	if err := database.Migrate(db, cfg.SlugReuse); err != nil {
		return fmt.Errorf("migrating: %w", err)
	}
	fmt.Printf("Migration completed (slug reuse policy: %s).\n", cfg.SlugReuse)
	return nil
}
