package keycloak

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/agari-platform/folio/models"
)

// GroupDefinition references a group from a group policy.
type GroupDefinition struct {
	ID             string `json:"id"`
	ExtendChildren bool   `json:"extendChildren"`
}

// GroupPolicy grants access to members of the referenced groups.
type GroupPolicy struct {
	ID     string            `json:"id,omitempty"`
	Name   string            `json:"name"`
	Logic  string            `json:"logic,omitempty"`
	Groups []GroupDefinition `json:"groups,omitempty"`
}

// ScopePermission binds policies to a resource with a set of scopes.
type ScopePermission struct {
	ID               string   `json:"id,omitempty"`
	Name             string   `json:"name"`
	Resources        []string `json:"resources,omitempty"`
	Policies         []string `json:"policies,omitempty"`
	Scopes           []string `json:"scopes,omitempty"`
	DecisionStrategy string   `json:"decisionStrategy,omitempty"`
}

// clientInternalID resolves and caches the internal id of the configured
// client. The authorization services API addresses policies and
// permissions under it.
func (c *Client) clientInternalID(ctx context.Context) (string, error) {
	c.mu.Lock()
	cached := c.internalID
	c.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	query := url.Values{"clientId": {c.cfg.ClientID}}

	var clients []struct {
		ID       string `json:"id"`
		ClientID string `json:"clientId"`
	}
	u := c.adminURL("clients") + "?" + query.Encode()
	if err := c.doJSON(ctx, "find client", http.MethodGet, u, nil, &clients); err != nil {
		return "", err
	}

	for _, cl := range clients {
		if cl.ClientID == c.cfg.ClientID {
			c.mu.Lock()
			c.internalID = cl.ID
			c.mu.Unlock()
			return cl.ID, nil
		}
	}
	return "", fmt.Errorf("client %q: %w", c.cfg.ClientID, models.ErrNotFound)
}

// CreateGroupPolicy creates a policy granting access to members of the
// given group. A name collision returns models.ErrConflict.
func (c *Client) CreateGroupPolicy(ctx context.Context, name, groupID string) (GroupPolicy, error) {
	internalID, err := c.clientInternalID(ctx)
	if err != nil {
		return GroupPolicy{}, err
	}

	policy := GroupPolicy{
		Name:   name,
		Logic:  "POSITIVE",
		Groups: []GroupDefinition{{ID: groupID}},
	}

	var created GroupPolicy
	u := c.adminURL("clients", internalID, "authz", "resource-server", "policy", "group")
	if err := c.doJSON(ctx, "create policy", http.MethodPost, u, policy, &created); err != nil {
		return GroupPolicy{}, err
	}
	c.log.Info("created group policy", "name", created.Name, "id", created.ID)
	return created, nil
}

// FindPolicyByName looks a policy up by its exact name. Absence is
// reported as models.ErrNotFound.
func (c *Client) FindPolicyByName(ctx context.Context, name string) (GroupPolicy, error) {
	internalID, err := c.clientInternalID(ctx)
	if err != nil {
		return GroupPolicy{}, err
	}

	query := url.Values{"name": {name}}

	var policies []GroupPolicy
	u := c.adminURL("clients", internalID, "authz", "resource-server", "policy") + "?" + query.Encode()
	if err := c.doJSON(ctx, "find policy", http.MethodGet, u, nil, &policies); err != nil {
		return GroupPolicy{}, err
	}

	for _, policy := range policies {
		if policy.Name == name {
			return policy, nil
		}
	}
	return GroupPolicy{}, fmt.Errorf("policy %q: %w", name, models.ErrNotFound)
}

// DeletePolicy removes a policy. Permissions are stored as policies, so
// the same endpoint removes those too.
func (c *Client) DeletePolicy(ctx context.Context, policyID string) error {
	internalID, err := c.clientInternalID(ctx)
	if err != nil {
		return err
	}
	u := c.adminURL("clients", internalID, "authz", "resource-server", "policy", policyID)
	return c.doJSON(ctx, "delete policy", http.MethodDelete, u, nil, nil)
}

// CreateScopePermission creates a permission binding the given policy to
// the resource with the given scopes.
func (c *Client) CreateScopePermission(ctx context.Context, name, resourceID, policyID string, scopes []string) (ScopePermission, error) {
	internalID, err := c.clientInternalID(ctx)
	if err != nil {
		return ScopePermission{}, err
	}

	permission := ScopePermission{
		Name:             name,
		Resources:        []string{resourceID},
		Policies:         []string{policyID},
		Scopes:           scopes,
		DecisionStrategy: "UNANIMOUS",
	}

	var created ScopePermission
	u := c.adminURL("clients", internalID, "authz", "resource-server", "permission", "scope")
	if err := c.doJSON(ctx, "create permission", http.MethodPost, u, permission, &created); err != nil {
		return ScopePermission{}, err
	}
	c.log.Info("created scope permission", "name", created.Name, "id", created.ID)
	return created, nil
}

// FindPermissionByName looks a permission up by its exact name. Absence is
// reported as models.ErrNotFound.
func (c *Client) FindPermissionByName(ctx context.Context, name string) (ScopePermission, error) {
	internalID, err := c.clientInternalID(ctx)
	if err != nil {
		return ScopePermission{}, err
	}

	query := url.Values{"name": {name}}

	var permissions []ScopePermission
	u := c.adminURL("clients", internalID, "authz", "resource-server", "permission") + "?" + query.Encode()
	if err := c.doJSON(ctx, "find permission", http.MethodGet, u, nil, &permissions); err != nil {
		return ScopePermission{}, err
	}

	for _, permission := range permissions {
		if permission.Name == name {
			return permission, nil
		}
	}
	return ScopePermission{}, fmt.Errorf("permission %q: %w", name, models.ErrNotFound)
}

// DeletePermission removes a permission.
func (c *Client) DeletePermission(ctx context.Context, permissionID string) error {
	return c.DeletePolicy(ctx, permissionID)
}
