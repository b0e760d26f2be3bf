package keycloak

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/agari-platform/folio/models"
)

// Scope is a named authorization scope attached to a resource.
type Scope struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// Resource is a UMA protected resource.
type Resource struct {
	ID          string              `json:"_id,omitempty"`
	Name        string              `json:"name"`
	DisplayName string              `json:"displayName,omitempty"`
	Type        string              `json:"type,omitempty"`
	Scopes      []Scope             `json:"scopes,omitempty"`
	Attributes  map[string][]string `json:"attributes,omitempty"`
}

// ScopeNames flattens the resource's scopes to their names.
func (r Resource) ScopeNames() []string {
	names := make([]string, 0, len(r.Scopes))
	for _, s := range r.Scopes {
		names = append(names, s.Name)
	}
	return names
}

// NewProjectResource builds the resource registered for a project: the
// given name with READ and WRITE scopes.
func NewProjectResource(name, slug string) Resource {
	return Resource{
		Name:        name,
		DisplayName: fmt.Sprintf("Project: %s", slug),
		Type:        ResourceTypeProject,
		Scopes:      []Scope{{Name: ScopeRead}, {Name: ScopeWrite}},
		Attributes: map[string][]string{
			"project_slug": {slug},
			"created_by":   {"folio-service"},
		},
	}
}

// CreateResource registers a protected resource through the UMA resource
// registration API. A name collision returns models.ErrConflict.
func (c *Client) CreateResource(ctx context.Context, resource Resource) (Resource, error) {
	var created Resource
	err := c.doJSON(ctx, "create resource", http.MethodPost, c.umaResourceURL(), resource, &created)
	if err != nil {
		return Resource{}, err
	}
	c.log.Info("created UMA resource", "name", created.Name, "id", created.ID)
	return created, nil
}

// GetResource fetches a resource by its id.
func (c *Client) GetResource(ctx context.Context, id string) (Resource, error) {
	var resource Resource
	err := c.doJSON(ctx, "get resource", http.MethodGet, c.umaResourceURL(id), nil, &resource)
	if err != nil {
		return Resource{}, err
	}
	return resource, nil
}

// FindResourceByName looks a resource up by its exact name. Absence is
// reported as models.ErrNotFound.
func (c *Client) FindResourceByName(ctx context.Context, name string) (Resource, error) {
	query := url.Values{
		"name":      {name},
		"exactName": {"true"},
		"deep":      {"true"},
	}

	var resources []Resource
	u := c.umaResourceURL() + "?" + query.Encode()
	if err := c.doJSON(ctx, "find resource", http.MethodGet, u, nil, &resources); err != nil {
		return Resource{}, err
	}

	for _, resource := range resources {
		if resource.Name == name {
			return resource, nil
		}
	}
	return Resource{}, fmt.Errorf("resource %q: %w", name, models.ErrNotFound)
}

// DeleteResource removes a resource registration.
func (c *Client) DeleteResource(ctx context.Context, id string) error {
	return c.doJSON(ctx, "delete resource", http.MethodDelete, c.umaResourceURL(id), nil, nil)
}
