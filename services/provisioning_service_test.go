package services_test

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/agari-platform/folio/config"
	"github.com/agari-platform/folio/lib/keycloak"
	"github.com/agari-platform/folio/lib/keycloak/keycloaktest"
	"github.com/agari-platform/folio/logger"
	"github.com/agari-platform/folio/models"
	"github.com/agari-platform/folio/services"
)

func newProvisioning(t *testing.T) (*services.ProvisioningService, *keycloaktest.Fake) {
	t.Helper()
	fake := keycloaktest.New(t)
	kc, err := keycloak.NewClient(config.KeycloakConfig{
		BaseURL:      fake.BaseURL(),
		Realm:        "agari",
		ClientID:     "dms",
		ClientSecret: "secret",
		Timeout:      5 * time.Second,
	}, logger.NewNop())
	if err != nil {
		t.Fatalf("new keycloak client: %v", err)
	}
	return services.NewProvisioningService(kc, "folio", logger.NewNop()), fake
}

func TestProvisionBuildsFullGraph(t *testing.T) {
	svc, fake := newProvisioning(t)
	fake.AddUser("alice", "alice@example.org")

	if got := svc.ResourceName("covid-survey"); got != "folio.covid-survey" {
		t.Errorf("ResourceName = %q, want folio.covid-survey", got)
	}
	if got := svc.GroupName("covid-survey"); got != "folio-covid-survey-admin" {
		t.Errorf("GroupName = %q, want folio-covid-survey-admin", got)
	}

	if err := svc.Provision(context.Background(), "covid-survey", "alice"); err != nil {
		t.Fatalf("Provision: %v", err)
	}

	resource, ok := fake.ResourceByName("folio.covid-survey")
	if !ok {
		t.Fatal("protected resource missing")
	}
	if resource.Type != keycloak.ResourceTypeProject {
		t.Errorf("resource type = %q, want %q", resource.Type, keycloak.ResourceTypeProject)
	}
	scopes := resource.ScopeNames()
	sort.Strings(scopes)
	if len(scopes) != 2 || scopes[0] != keycloak.ScopeRead || scopes[1] != keycloak.ScopeWrite {
		t.Errorf("resource scopes = %v, want READ and WRITE", scopes)
	}

	group, ok := fake.GroupByName("folio-covid-survey-admin")
	if !ok {
		t.Fatal("admin group missing")
	}
	members := fake.MembersOf("folio-covid-survey-admin")
	if len(members) != 1 || members[0] != "alice" {
		t.Errorf("group members = %v, want the creator", members)
	}

	policy, ok := fake.PolicyByName("folio-covid-survey-admin-policy")
	if !ok {
		t.Fatal("group policy missing")
	}
	if len(policy.Groups) != 1 || policy.Groups[0].ID != group.ID {
		t.Errorf("policy groups = %+v, want the admin group", policy.Groups)
	}

	permission, ok := fake.PermissionByName("folio-covid-survey-admin-permission")
	if !ok {
		t.Fatal("scope permission missing")
	}
	if len(permission.Resources) != 1 || permission.Resources[0] != resource.ID {
		t.Errorf("permission resources = %v, want the project resource", permission.Resources)
	}
	if len(permission.Policies) != 1 || permission.Policies[0] != policy.ID {
		t.Errorf("permission policies = %v, want the group policy", permission.Policies)
	}
	if len(permission.Scopes) != 2 {
		t.Errorf("permission scopes = %v, want both scopes", permission.Scopes)
	}
}

func TestProvisionRollsBackCompletedSteps(t *testing.T) {
	cases := []struct {
		name     string
		seedUser bool
		failOp   string
		wantStep string
	}{
		{"resource creation fails", true, keycloaktest.OpCreateResource, services.StepCreateResource},
		{"group creation fails", true, keycloaktest.OpCreateGroup, services.StepCreateGroup},
		{"creator is unknown", false, "", services.StepAssignCreator},
		{"policy creation fails", true, keycloaktest.OpCreatePolicy, services.StepCreatePolicy},
		{"permission creation fails", true, keycloaktest.OpCreatePermission, services.StepCreatePermission},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, fake := newProvisioning(t)
			if tc.seedUser {
				fake.AddUser("alice", "alice@example.org")
			}
			if tc.failOp != "" {
				fake.FailNext(tc.failOp, 400, 1)
			}

			err := svc.Provision(context.Background(), "covid-survey", "alice")
			var pErr *models.ProvisioningError
			if !errors.As(err, &pErr) {
				t.Fatalf("Provision = %v, want ProvisioningError", err)
			}
			if pErr.Step != tc.wantStep {
				t.Errorf("failed step = %q, want %q", pErr.Step, tc.wantStep)
			}

			// Whatever had been built is gone again.
			resources, groups, policies, permissions := fake.Stats()
			if resources+groups+policies+permissions != 0 {
				t.Errorf("leftover objects after rollback: %d resources, %d groups, %d policies, %d permissions",
					resources, groups, policies, permissions)
			}
		})
	}
}

func TestProvisionRetriesTransientFailures(t *testing.T) {
	svc, fake := newProvisioning(t)
	fake.AddUser("alice", "alice@example.org")
	fake.FailNext(keycloaktest.OpCreateResource, 503, 1)

	if err := svc.Provision(context.Background(), "covid-survey", "alice"); err != nil {
		t.Fatalf("Provision with one transient failure: %v", err)
	}
	if got := fake.CallCount(keycloaktest.OpCreateResource); got != 2 {
		t.Errorf("resource creation attempts = %d, want 2", got)
	}
	if _, ok := fake.ResourceByName("folio.covid-survey"); !ok {
		t.Error("resource missing after retried provisioning")
	}
}

func TestDeprovisionTearsDownGraph(t *testing.T) {
	svc, fake := newProvisioning(t)
	fake.AddUser("alice", "alice@example.org")
	ctx := context.Background()

	if err := svc.Provision(ctx, "covid-survey", "alice"); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if err := svc.Deprovision(ctx, "covid-survey"); err != nil {
		t.Fatalf("Deprovision: %v", err)
	}

	resources, groups, policies, permissions := fake.Stats()
	if resources+groups+policies+permissions != 0 {
		t.Errorf("leftover objects after teardown: %d resources, %d groups, %d policies, %d permissions",
			resources, groups, policies, permissions)
	}

	// Absent objects are skipped, so a second pass is a clean no-op.
	if err := svc.Deprovision(ctx, "covid-survey"); err != nil {
		t.Errorf("Deprovision repeat = %v, want nil", err)
	}
}

func TestDeprovisionContinuesPastFailures(t *testing.T) {
	svc, fake := newProvisioning(t)
	fake.AddUser("alice", "alice@example.org")
	ctx := context.Background()

	if err := svc.Provision(ctx, "covid-survey", "alice"); err != nil {
		t.Fatalf("Provision: %v", err)
	}

	// Permissions are deleted through the policy endpoint, so this fails
	// the very first teardown step.
	fake.FailNext(keycloaktest.OpDeletePolicy, 500, 1)
	if err := svc.Deprovision(ctx, "covid-survey"); err == nil {
		t.Fatal("Deprovision with failing step = nil, want the step error")
	}

	// The failed step is reported, but the later steps still ran.
	resources, groups, policies, permissions := fake.Stats()
	if permissions != 1 {
		t.Errorf("permissions = %d, want the one that failed to delete", permissions)
	}
	if resources != 0 || groups != 0 || policies != 0 {
		t.Errorf("resources/groups/policies = %d/%d/%d, want teardown to continue past the failure",
			resources, groups, policies)
	}
}

func TestGroupMembershipManagement(t *testing.T) {
	svc, fake := newProvisioning(t)
	fake.AddUser("alice", "alice@example.org")
	fake.AddUser("bob", "bob@example.org")
	ctx := context.Background()

	if err := svc.Provision(ctx, "covid-survey", "alice"); err != nil {
		t.Fatalf("Provision: %v", err)
	}

	if err := svc.AddGroupMember(ctx, "covid-survey", "bob"); err != nil {
		t.Fatalf("AddGroupMember: %v", err)
	}
	members, err := svc.GroupMembers(ctx, "covid-survey")
	if err != nil {
		t.Fatalf("GroupMembers: %v", err)
	}
	names := make([]string, len(members))
	for i, m := range members {
		names[i] = m.Username
	}
	sort.Strings(names)
	if len(names) != 2 || names[0] != "alice" || names[1] != "bob" {
		t.Errorf("members = %v, want alice and bob", names)
	}

	if err := svc.RemoveGroupMember(ctx, "covid-survey", "bob"); err != nil {
		t.Fatalf("RemoveGroupMember: %v", err)
	}
	if got := fake.MembersOf("folio-covid-survey-admin"); len(got) != 1 {
		t.Errorf("members after removal = %v, want only alice", got)
	}

	if _, err := svc.GroupMembers(ctx, "never-provisioned"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("GroupMembers unknown project = %v, want ErrNotFound", err)
	}
	if err := svc.AddGroupMember(ctx, "covid-survey", "ghost"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("AddGroupMember unknown user = %v, want ErrNotFound", err)
	}
}
