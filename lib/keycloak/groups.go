package keycloak

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/agari-platform/folio/models"
)

// Group is a Keycloak group.
type Group struct {
	ID         string              `json:"id,omitempty"`
	Name       string              `json:"name"`
	Path       string              `json:"path,omitempty"`
	Attributes map[string][]string `json:"attributes,omitempty"`
}

// User is the subset of the Keycloak user representation the service needs.
type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Enabled   bool   `json:"enabled"`
}

// CreateGroup creates a top-level group. Keycloak answers 201 with the new
// group's URL in the Location header; the group is re-fetched so callers
// get the full representation. A name collision returns models.ErrConflict.
func (c *Client) CreateGroup(ctx context.Context, name string, attributes map[string][]string) (Group, error) {
	group := Group{
		Name:       name,
		Path:       "/" + name,
		Attributes: attributes,
	}

	id, err := c.doJSONLocation(ctx, "create group", c.adminURL("groups"), group)
	if err != nil {
		return Group{}, err
	}

	created, err := c.GetGroup(ctx, id)
	if err != nil {
		// The group exists; fall back to what we know about it.
		c.log.Warn("created group but could not fetch it back", "name", name, "error", err)
		group.ID = id
		return group, nil
	}
	c.log.Info("created group", "name", created.Name, "id", created.ID)
	return created, nil
}

// GetGroup fetches a group by id.
func (c *Client) GetGroup(ctx context.Context, id string) (Group, error) {
	var group Group
	if err := c.doJSON(ctx, "get group", http.MethodGet, c.adminURL("groups", id), nil, &group); err != nil {
		return Group{}, err
	}
	return group, nil
}

// FindGroupByName looks a top-level group up by its exact name. Absence is
// reported as models.ErrNotFound.
func (c *Client) FindGroupByName(ctx context.Context, name string) (Group, error) {
	query := url.Values{"search": {name}}

	var groups []Group
	u := c.adminURL("groups") + "?" + query.Encode()
	if err := c.doJSON(ctx, "find group", http.MethodGet, u, nil, &groups); err != nil {
		return Group{}, err
	}

	for _, group := range groups {
		if group.Name == name {
			return group, nil
		}
	}
	return Group{}, fmt.Errorf("group %q: %w", name, models.ErrNotFound)
}

// DeleteGroup removes a group and its memberships.
func (c *Client) DeleteGroup(ctx context.Context, id string) error {
	return c.doJSON(ctx, "delete group", http.MethodDelete, c.adminURL("groups", id), nil, nil)
}

// GroupMembers lists the users in a group.
func (c *Client) GroupMembers(ctx context.Context, groupID string) ([]User, error) {
	var members []User
	err := c.doJSON(ctx, "group members", http.MethodGet, c.adminURL("groups", groupID, "members"), nil, &members)
	if err != nil {
		return nil, err
	}
	return members, nil
}

// FindUserByUsername looks a user up by exact username. Absence is
// reported as models.ErrNotFound.
func (c *Client) FindUserByUsername(ctx context.Context, username string) (User, error) {
	query := url.Values{
		"username": {username},
		"exact":    {"true"},
	}

	var users []User
	u := c.adminURL("users") + "?" + query.Encode()
	if err := c.doJSON(ctx, "find user", http.MethodGet, u, nil, &users); err != nil {
		return User{}, err
	}
	if len(users) == 0 {
		return User{}, fmt.Errorf("user %q: %w", username, models.ErrNotFound)
	}
	return users[0], nil
}

// AddUserToGroup puts a user into a group. The call is idempotent on the
// Keycloak side.
func (c *Client) AddUserToGroup(ctx context.Context, userID, groupID string) error {
	return c.doJSON(ctx, "add group member", http.MethodPut, c.adminURL("users", userID, "groups", groupID), nil, nil)
}

// RemoveUserFromGroup takes a user out of a group.
func (c *Client) RemoveUserFromGroup(ctx context.Context, userID, groupID string) error {
	return c.doJSON(ctx, "remove group member", http.MethodDelete, c.adminURL("users", userID, "groups", groupID), nil, nil)
}
