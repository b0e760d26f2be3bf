// Package keycloaktest provides an in-memory fake of the Keycloak
// endpoints the service talks to: token issuance, UMA resource
// registration, the admin group/user API, and the authorization services
// policy/permission API. Tests can inject failures per endpoint and
// inspect the resulting state.
package keycloaktest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/agari-platform/folio/lib/keycloak"
)

// Operation names for failure injection and call counting.
const (
	OpToken            = "token"
	OpRPT              = "rpt"
	OpCreateResource   = "create-resource"
	OpListResources    = "list-resources"
	OpGetResource      = "get-resource"
	OpDeleteResource   = "delete-resource"
	OpCreateGroup      = "create-group"
	OpGetGroup         = "get-group"
	OpListGroups       = "list-groups"
	OpDeleteGroup      = "delete-group"
	OpGroupMembers     = "group-members"
	OpListUsers        = "list-users"
	OpAddMember        = "add-member"
	OpRemoveMember     = "remove-member"
	OpListClients      = "list-clients"
	OpCreatePolicy     = "create-policy"
	OpListPolicies     = "list-policies"
	OpDeletePolicy     = "delete-policy"
	OpCreatePermission = "create-permission"
	OpListPermissions  = "list-permissions"
)

type failurePlan struct {
	status    int
	remaining int
}

// Fake is an in-memory Keycloak double served over httptest.
type Fake struct {
	Server *httptest.Server

	realm            string
	clientID         string
	clientInternalID string

	mu          sync.Mutex
	nextID      int
	resources   map[string]keycloak.Resource
	groups      map[string]keycloak.Group
	users       map[string]keycloak.User
	memberships map[string]map[string]bool
	policies    map[string]keycloak.GroupPolicy
	permissions map[string]keycloak.ScopePermission
	rptByToken  map[string][]keycloak.RPTPermission
	calls       map[string]int
	failures    map[string]*failurePlan
}

// New starts a fake for realm "agari" and client "dms"; it is shut down
// when the test finishes.
func New(t testing.TB) *Fake {
	t.Helper()

	f := &Fake{
		realm:            "agari",
		clientID:         "dms",
		clientInternalID: "client-internal-1",
		resources:        make(map[string]keycloak.Resource),
		groups:           make(map[string]keycloak.Group),
		users:            make(map[string]keycloak.User),
		memberships:      make(map[string]map[string]bool),
		policies:         make(map[string]keycloak.GroupPolicy),
		permissions:      make(map[string]keycloak.ScopePermission),
		rptByToken:       make(map[string][]keycloak.RPTPermission),
		calls:            make(map[string]int),
		failures:         make(map[string]*failurePlan),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.route))
	t.Cleanup(f.Server.Close)
	return f
}

// BaseURL returns the fake's server URL.
func (f *Fake) BaseURL() string {
	return f.Server.URL
}

// FailNext makes the next `times` calls to the named operation answer with
// the given HTTP status instead of executing.
func (f *Fake) FailNext(op string, status, times int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = &failurePlan{status: status, remaining: times}
}

// CallCount reports how many times an operation was invoked, including
// injected failures.
func (f *Fake) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// AddUser seeds a user the admin API can find by username.
func (f *Fake) AddUser(username, email string) keycloak.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	user := keycloak.User{
		ID:       f.newID("user"),
		Username: username,
		Email:    email,
		Enabled:  true,
	}
	f.users[user.ID] = user
	return user
}

// SetRPT makes the uma-ticket grant answer the given permissions for the
// given bearer token. Tokens without an entry are rejected as invalid.
func (f *Fake) SetRPT(token string, permissions []keycloak.RPTPermission) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rptByToken[token] = permissions
}

// ResourceByName returns the resource registered under the exact name.
func (f *Fake) ResourceByName(name string) (keycloak.Resource, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.resources {
		if r.Name == name {
			return r, true
		}
	}
	return keycloak.Resource{}, false
}

// GroupByName returns the group with the exact name.
func (f *Fake) GroupByName(name string) (keycloak.Group, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.groups {
		if g.Name == name {
			return g, true
		}
	}
	return keycloak.Group{}, false
}

// PolicyByName returns the policy with the exact name.
func (f *Fake) PolicyByName(name string) (keycloak.GroupPolicy, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.policies {
		if p.Name == name {
			return p, true
		}
	}
	return keycloak.GroupPolicy{}, false
}

// PermissionByName returns the permission with the exact name.
func (f *Fake) PermissionByName(name string) (keycloak.ScopePermission, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.permissions {
		if p.Name == name {
			return p, true
		}
	}
	return keycloak.ScopePermission{}, false
}

// MembersOf returns the usernames in the named group, or nil when the
// group does not exist.
func (f *Fake) MembersOf(groupName string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, g := range f.groups {
		if g.Name != groupName {
			continue
		}
		var usernames []string
		for userID := range f.memberships[id] {
			usernames = append(usernames, f.users[userID].Username)
		}
		return usernames
	}
	return nil
}

// Stats reports how many objects of each kind currently exist. A fully
// rolled-back saga leaves all four at zero.
func (f *Fake) Stats() (resources, groups, policies, permissions int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.resources), len(f.groups), len(f.policies), len(f.permissions)
}

func (f *Fake) newID(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

// begin counts the call and applies a pending failure plan. It reports
// whether the request was intercepted.
func (f *Fake) begin(op string, w http.ResponseWriter) bool {
	f.mu.Lock()
	f.calls[op]++
	status := 0
	if plan, ok := f.failures[op]; ok && plan.remaining > 0 {
		plan.remaining--
		status = plan.status
	}
	f.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *Fake) route(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(r.URL.Path, "/")
	segments := strings.Split(path, "/")

	switch {
	case path == "realms/"+f.realm+"/protocol/openid-connect/token":
		f.handleToken(w, r)
	case strings.HasPrefix(path, "realms/"+f.realm+"/authz/protection/resource_set"):
		f.handleResourceSet(w, r, segments[5:])
	case strings.HasPrefix(path, "admin/realms/"+f.realm+"/"):
		f.handleAdmin(w, r, segments[3:])
	default:
		http.NotFound(w, r)
	}
}

func (f *Fake) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch r.PostFormValue("grant_type") {
	case "client_credentials":
		if f.begin(OpToken, w) {
			return
		}
		if r.PostFormValue("client_id") != f.clientID {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_client"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"access_token": "service-token",
			"expires_in":   300,
		})

	case "urn:ietf:params:oauth:grant-type:uma-ticket":
		if f.begin(OpRPT, w) {
			return
		}
		bearer := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		f.mu.Lock()
		permissions, ok := f.rptByToken[bearer]
		f.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_grant"})
			return
		}
		writeJSON(w, http.StatusOK, permissions)

	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
	}
}

func (f *Fake) handleResourceSet(w http.ResponseWriter, r *http.Request, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodPost:
		if f.begin(OpCreateResource, w) {
			return
		}
		var resource keycloak.Resource
		if err := json.NewDecoder(r.Body).Decode(&resource); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		for _, existing := range f.resources {
			if existing.Name == resource.Name {
				f.mu.Unlock()
				w.WriteHeader(http.StatusConflict)
				return
			}
		}
		resource.ID = f.newID("resource")
		f.resources[resource.ID] = resource
		f.mu.Unlock()
		writeJSON(w, http.StatusCreated, resource)

	case len(rest) == 0 && r.Method == http.MethodGet:
		if f.begin(OpListResources, w) {
			return
		}
		name := r.URL.Query().Get("name")
		f.mu.Lock()
		matches := []keycloak.Resource{}
		for _, resource := range f.resources {
			if name == "" || resource.Name == name {
				matches = append(matches, resource)
			}
		}
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, matches)

	case len(rest) == 1 && r.Method == http.MethodGet:
		if f.begin(OpGetResource, w) {
			return
		}
		f.mu.Lock()
		resource, ok := f.resources[rest[0]]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, resource)

	case len(rest) == 1 && r.Method == http.MethodDelete:
		if f.begin(OpDeleteResource, w) {
			return
		}
		f.mu.Lock()
		_, ok := f.resources[rest[0]]
		delete(f.resources, rest[0])
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.NotFound(w, r)
	}
}

func (f *Fake) handleAdmin(w http.ResponseWriter, r *http.Request, rest []string) {
	switch rest[0] {
	case "groups":
		f.handleGroups(w, r, rest[1:])
	case "users":
		f.handleUsers(w, r, rest[1:])
	case "clients":
		f.handleClients(w, r, rest[1:])
	default:
		http.NotFound(w, r)
	}
}

func (f *Fake) handleGroups(w http.ResponseWriter, r *http.Request, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodPost:
		if f.begin(OpCreateGroup, w) {
			return
		}
		var group keycloak.Group
		if err := json.NewDecoder(r.Body).Decode(&group); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		for _, existing := range f.groups {
			if existing.Name == group.Name {
				f.mu.Unlock()
				w.WriteHeader(http.StatusConflict)
				return
			}
		}
		group.ID = f.newID("group")
		if group.Path == "" {
			group.Path = "/" + group.Name
		}
		f.groups[group.ID] = group
		f.memberships[group.ID] = make(map[string]bool)
		f.mu.Unlock()
		w.Header().Set("Location", f.Server.URL+"/admin/realms/"+f.realm+"/groups/"+group.ID)
		w.WriteHeader(http.StatusCreated)

	case len(rest) == 0 && r.Method == http.MethodGet:
		if f.begin(OpListGroups, w) {
			return
		}
		search := r.URL.Query().Get("search")
		f.mu.Lock()
		matches := []keycloak.Group{}
		for _, group := range f.groups {
			if search == "" || strings.Contains(group.Name, search) {
				matches = append(matches, group)
			}
		}
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, matches)

	case len(rest) == 1 && r.Method == http.MethodGet:
		if f.begin(OpGetGroup, w) {
			return
		}
		f.mu.Lock()
		group, ok := f.groups[rest[0]]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, group)

	case len(rest) == 1 && r.Method == http.MethodDelete:
		if f.begin(OpDeleteGroup, w) {
			return
		}
		f.mu.Lock()
		_, ok := f.groups[rest[0]]
		delete(f.groups, rest[0])
		delete(f.memberships, rest[0])
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case len(rest) == 2 && rest[1] == "members" && r.Method == http.MethodGet:
		if f.begin(OpGroupMembers, w) {
			return
		}
		f.mu.Lock()
		members, ok := f.memberships[rest[0]]
		users := []keycloak.User{}
		for userID := range members {
			users = append(users, f.users[userID])
		}
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, users)

	default:
		http.NotFound(w, r)
	}
}

func (f *Fake) handleUsers(w http.ResponseWriter, r *http.Request, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		if f.begin(OpListUsers, w) {
			return
		}
		username := r.URL.Query().Get("username")
		f.mu.Lock()
		matches := []keycloak.User{}
		for _, user := range f.users {
			if username == "" || user.Username == username {
				matches = append(matches, user)
			}
		}
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, matches)

	case len(rest) == 3 && rest[1] == "groups":
		userID, groupID := rest[0], rest[2]
		switch r.Method {
		case http.MethodPut:
			if f.begin(OpAddMember, w) {
				return
			}
			f.mu.Lock()
			_, userOK := f.users[userID]
			members, groupOK := f.memberships[groupID]
			if userOK && groupOK {
				members[userID] = true
			}
			f.mu.Unlock()
			if !userOK || !groupOK {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.WriteHeader(http.StatusNoContent)

		case http.MethodDelete:
			if f.begin(OpRemoveMember, w) {
				return
			}
			f.mu.Lock()
			members, groupOK := f.memberships[groupID]
			if groupOK {
				delete(members, userID)
			}
			f.mu.Unlock()
			if !groupOK {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.WriteHeader(http.StatusNoContent)

		default:
			http.NotFound(w, r)
		}

	default:
		http.NotFound(w, r)
	}
}

func (f *Fake) handleClients(w http.ResponseWriter, r *http.Request, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		if f.begin(OpListClients, w) {
			return
		}
		clientID := r.URL.Query().Get("clientId")
		matches := []map[string]string{}
		if clientID == "" || clientID == f.clientID {
			matches = append(matches, map[string]string{
				"id":       f.clientInternalID,
				"clientId": f.clientID,
			})
		}
		writeJSON(w, http.StatusOK, matches)

	case len(rest) >= 3 && rest[0] == f.clientInternalID && rest[1] == "authz" && rest[2] == "resource-server":
		f.handleAuthz(w, r, rest[3:])

	default:
		http.NotFound(w, r)
	}
}

func (f *Fake) handleAuthz(w http.ResponseWriter, r *http.Request, rest []string) {
	switch {
	case len(rest) == 2 && rest[0] == "policy" && rest[1] == "group" && r.Method == http.MethodPost:
		if f.begin(OpCreatePolicy, w) {
			return
		}
		var policy keycloak.GroupPolicy
		if err := json.NewDecoder(r.Body).Decode(&policy); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		for _, existing := range f.policies {
			if existing.Name == policy.Name {
				f.mu.Unlock()
				w.WriteHeader(http.StatusConflict)
				return
			}
		}
		policy.ID = f.newID("policy")
		f.policies[policy.ID] = policy
		f.mu.Unlock()
		writeJSON(w, http.StatusCreated, policy)

	case len(rest) == 1 && rest[0] == "policy" && r.Method == http.MethodGet:
		if f.begin(OpListPolicies, w) {
			return
		}
		name := r.URL.Query().Get("name")
		f.mu.Lock()
		matches := []keycloak.GroupPolicy{}
		for _, policy := range f.policies {
			if name == "" || strings.Contains(policy.Name, name) {
				matches = append(matches, policy)
			}
		}
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, matches)

	case len(rest) == 2 && rest[0] == "policy" && rest[1] != "group" && r.Method == http.MethodDelete:
		if f.begin(OpDeletePolicy, w) {
			return
		}
		f.mu.Lock()
		_, policyOK := f.policies[rest[1]]
		delete(f.policies, rest[1])
		_, permissionOK := f.permissions[rest[1]]
		delete(f.permissions, rest[1])
		f.mu.Unlock()
		if !policyOK && !permissionOK {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case len(rest) == 2 && rest[0] == "permission" && rest[1] == "scope" && r.Method == http.MethodPost:
		if f.begin(OpCreatePermission, w) {
			return
		}
		var permission keycloak.ScopePermission
		if err := json.NewDecoder(r.Body).Decode(&permission); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		for _, existing := range f.permissions {
			if existing.Name == permission.Name {
				f.mu.Unlock()
				w.WriteHeader(http.StatusConflict)
				return
			}
		}
		permission.ID = f.newID("permission")
		f.permissions[permission.ID] = permission
		f.mu.Unlock()
		writeJSON(w, http.StatusCreated, permission)

	case len(rest) == 1 && rest[0] == "permission" && r.Method == http.MethodGet:
		if f.begin(OpListPermissions, w) {
			return
		}
		name := r.URL.Query().Get("name")
		f.mu.Lock()
		matches := []keycloak.ScopePermission{}
		for _, permission := range f.permissions {
			if name == "" || strings.Contains(permission.Name, name) {
				matches = append(matches, permission)
			}
		}
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, matches)

	default:
		http.NotFound(w, r)
	}
}
