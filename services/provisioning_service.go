package services

import (
	"context"
	"errors"
	"time"

	"github.com/agari-platform/folio/lib/keycloak"
	"github.com/agari-platform/folio/logger"
	"github.com/agari-platform/folio/models"
	"github.com/agari-platform/folio/utils"
)

// Saga step names carried by models.ProvisioningError.
const (
	StepCreateResource   = "create resource"
	StepCreateGroup      = "create group"
	StepAssignCreator    = "assign creator"
	StepCreatePolicy     = "create policy"
	StepCreatePermission = "create permission"
)

// rollbackTimeout bounds the compensation pass after a failed saga.
const rollbackTimeout = 30 * time.Second

// ProvisioningService keeps the authorization server's graph in step with
// the project store. A new project gets, in order: a protected resource
// with READ/WRITE scopes, an admin group, the creator's membership in that
// group, a group policy, and a scope permission binding the policy to the
// resource. When any step fails, the completed steps are compensated in
// reverse so neither system keeps partial state.
type ProvisioningService struct {
	kc      *keycloak.Client
	appName string
	retry   utils.RetryConfig
	log     *logger.Logger
}

// NewProvisioningService creates a provisioning service. The application
// name prefixes every object created in the authorization server.
func NewProvisioningService(kc *keycloak.Client, appName string, log *logger.Logger) *ProvisioningService {
	return &ProvisioningService{
		kc:      kc,
		appName: appName,
		retry:   utils.DefaultRetryConfig(),
		log:     log.With("component", "provisioning"),
	}
}

// ResourceName returns the protected resource name for a project slug
func (s *ProvisioningService) ResourceName(slug string) string {
	return s.appName + "." + slug
}

// GroupName returns the admin group name for a project slug
func (s *ProvisioningService) GroupName(slug string) string {
	return s.appName + "-" + slug + "-admin"
}

func (s *ProvisioningService) policyName(slug string) string {
	return s.GroupName(slug) + "-policy"
}

func (s *ProvisioningService) permissionName(slug string) string {
	return s.GroupName(slug) + "-permission"
}

// Provision builds the authorization graph for a project and assigns the
// creating user to its admin group. Transient failures are retried with
// backoff; on a definitive failure the completed steps are rolled back and
// a models.ProvisioningError naming the failed step is returned.
func (s *ProvisioningService) Provision(ctx context.Context, slug, username string) error {
	var undo []func(context.Context)

	fail := func(step string, err error) error {
		s.log.Error("provisioning failed", "slug", slug, "step", step, "error", err)
		s.rollback(ctx, slug, undo)
		return &models.ProvisioningError{Step: step, Err: err}
	}

	var resource keycloak.Resource
	err := utils.Retry(ctx, s.retry, func(ctx context.Context) error {
		var err error
		resource, err = s.kc.CreateResource(ctx, keycloak.NewProjectResource(s.ResourceName(slug), slug))
		return err
	})
	if err != nil {
		return fail(StepCreateResource, err)
	}
	undo = append(undo, func(ctx context.Context) {
		if err := s.kc.DeleteResource(ctx, resource.ID); err != nil {
			s.log.Warn("rollback: could not delete resource", "slug", slug, "error", err)
		}
	})

	var group keycloak.Group
	err = utils.Retry(ctx, s.retry, func(ctx context.Context) error {
		var err error
		group, err = s.kc.CreateGroup(ctx, s.GroupName(slug), map[string][]string{"project_slug": {slug}})
		return err
	})
	if err != nil {
		return fail(StepCreateGroup, err)
	}
	undo = append(undo, func(ctx context.Context) {
		if err := s.kc.DeleteGroup(ctx, group.ID); err != nil {
			s.log.Warn("rollback: could not delete group", "slug", slug, "error", err)
		}
	})

	var user keycloak.User
	err = utils.Retry(ctx, s.retry, func(ctx context.Context) error {
		var err error
		user, err = s.kc.FindUserByUsername(ctx, username)
		if err != nil {
			return err
		}
		return s.kc.AddUserToGroup(ctx, user.ID, group.ID)
	})
	if err != nil {
		return fail(StepAssignCreator, err)
	}
	undo = append(undo, func(ctx context.Context) {
		if err := s.kc.RemoveUserFromGroup(ctx, user.ID, group.ID); err != nil {
			s.log.Warn("rollback: could not remove creator from group", "slug", slug, "error", err)
		}
	})

	var policy keycloak.GroupPolicy
	err = utils.Retry(ctx, s.retry, func(ctx context.Context) error {
		var err error
		policy, err = s.kc.CreateGroupPolicy(ctx, s.policyName(slug), group.ID)
		return err
	})
	if err != nil {
		return fail(StepCreatePolicy, err)
	}
	undo = append(undo, func(ctx context.Context) {
		if err := s.kc.DeletePolicy(ctx, policy.ID); err != nil {
			s.log.Warn("rollback: could not delete policy", "slug", slug, "error", err)
		}
	})

	err = utils.Retry(ctx, s.retry, func(ctx context.Context) error {
		_, err := s.kc.CreateScopePermission(ctx, s.permissionName(slug), resource.ID, policy.ID,
			[]string{keycloak.ScopeRead, keycloak.ScopeWrite})
		return err
	})
	if err != nil {
		return fail(StepCreatePermission, err)
	}

	s.log.Info("provisioned authorization graph",
		"slug", slug, "resource", resource.ID, "group", group.ID, "user", username)
	return nil
}

// rollback compensates completed steps in reverse order. It runs detached
// from the caller's context so a cancelled request still gets cleaned up.
func (s *ProvisioningService) rollback(ctx context.Context, slug string, undo []func(context.Context)) {
	if len(undo) == 0 {
		return
	}
	s.log.Warn("rolling back provisioning", "slug", slug, "steps", len(undo))

	detached, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()
	for i := len(undo) - 1; i >= 0; i-- {
		undo[i](detached)
	}
}

// Deprovision tears down a project's authorization graph by name, in
// reverse provisioning order. Objects already gone are skipped; other
// failures are logged and the first one is returned so callers can decide
// whether it matters.
func (s *ProvisioningService) Deprovision(ctx context.Context, slug string) error {
	var firstErr error
	report := func(op string, err error) {
		if err == nil || errors.Is(err, models.ErrNotFound) {
			return
		}
		s.log.Warn("teardown step failed", "slug", slug, "op", op, "error", err)
		if firstErr == nil {
			firstErr = err
		}
	}

	if permission, err := s.kc.FindPermissionByName(ctx, s.permissionName(slug)); err == nil {
		report("delete permission", s.kc.DeletePermission(ctx, permission.ID))
	} else {
		report("find permission", err)
	}

	if policy, err := s.kc.FindPolicyByName(ctx, s.policyName(slug)); err == nil {
		report("delete policy", s.kc.DeletePolicy(ctx, policy.ID))
	} else {
		report("find policy", err)
	}

	if group, err := s.kc.FindGroupByName(ctx, s.GroupName(slug)); err == nil {
		report("delete group", s.kc.DeleteGroup(ctx, group.ID))
	} else {
		report("find group", err)
	}

	if resource, err := s.kc.FindResourceByName(ctx, s.ResourceName(slug)); err == nil {
		report("delete resource", s.kc.DeleteResource(ctx, resource.ID))
	} else {
		report("find resource", err)
	}

	return firstErr
}

// GroupMembers lists the users in a project's admin group
func (s *ProvisioningService) GroupMembers(ctx context.Context, slug string) ([]keycloak.User, error) {
	group, err := s.kc.FindGroupByName(ctx, s.GroupName(slug))
	if err != nil {
		return nil, err
	}
	return s.kc.GroupMembers(ctx, group.ID)
}

// AddGroupMember adds a user to a project's admin group
func (s *ProvisioningService) AddGroupMember(ctx context.Context, slug, username string) error {
	group, err := s.kc.FindGroupByName(ctx, s.GroupName(slug))
	if err != nil {
		return err
	}
	user, err := s.kc.FindUserByUsername(ctx, username)
	if err != nil {
		return err
	}
	return s.kc.AddUserToGroup(ctx, user.ID, group.ID)
}

// RemoveGroupMember removes a user from a project's admin group
func (s *ProvisioningService) RemoveGroupMember(ctx context.Context, slug, username string) error {
	group, err := s.kc.FindGroupByName(ctx, s.GroupName(slug))
	if err != nil {
		return err
	}
	user, err := s.kc.FindUserByUsername(ctx, username)
	if err != nil {
		return err
	}
	return s.kc.RemoveUserFromGroup(ctx, user.ID, group.ID)
}
