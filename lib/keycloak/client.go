package keycloak

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/agari-platform/folio/config"
	"github.com/agari-platform/folio/logger"
	"github.com/agari-platform/folio/models"
)

// Scopes granted on every project resource.
const (
	ScopeRead  = "READ"
	ScopeWrite = "WRITE"
)

// ResourceTypeProject marks resources registered for projects.
const ResourceTypeProject = "urn:folio:resources:project"

// Client talks to Keycloak: the UMA resource registration API, the admin
// API for groups and users, and the authorization services API for
// policies and permissions. Every call carries the configured per-request
// timeout; callers decide about retries.
type Client struct {
	cfg  config.KeycloakConfig
	http *http.Client
	log  *logger.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
	internalID  string
}

// NewClient validates the configuration and builds a client.
func NewClient(cfg config.KeycloakConfig, log *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("missing Keycloak base URL")
	}
	if strings.TrimSpace(cfg.Realm) == "" {
		return nil, errors.New("missing Keycloak realm")
	}
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, errors.New("missing Keycloak client id")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log.With("client", "keycloak"),
	}, nil
}

// ClientID returns the configured OAuth client id.
func (c *Client) ClientID() string {
	return c.cfg.ClientID
}

// APIError is an unexpected identity provider response. It keeps the HTTP
// status so retry logic can classify it.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("keycloak %s: http %d: %s", e.Op, e.StatusCode, e.Body)
}

func (e *APIError) HTTPStatusCode() int {
	return e.StatusCode
}

func (c *Client) tokenURL() string {
	return fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", c.cfg.BaseURL, c.cfg.Realm)
}

func (c *Client) umaResourceURL(parts ...string) string {
	u := fmt.Sprintf("%s/realms/%s/authz/protection/resource_set", c.cfg.BaseURL, c.cfg.Realm)
	if len(parts) > 0 {
		u += "/" + strings.Join(parts, "/")
	}
	return u
}

func (c *Client) adminURL(parts ...string) string {
	u := fmt.Sprintf("%s/admin/realms/%s", c.cfg.BaseURL, c.cfg.Realm)
	if len(parts) > 0 {
		u += "/" + strings.Join(parts, "/")
	}
	return u
}

// ServiceToken returns a client-credentials access token for
// service-to-service calls, cached until shortly before expiry.
func (c *Client) ServiceToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
	}

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := c.postForm(ctx, "service token", c.tokenURL(), form, "", &out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", &APIError{Op: "service token", StatusCode: http.StatusOK, Body: "empty access_token"}
	}

	c.token = out.AccessToken
	expiry := time.Duration(out.ExpiresIn) * time.Second
	if expiry > 30*time.Second {
		expiry -= 30 * time.Second
	}
	c.tokenExpiry = time.Now().Add(expiry)

	return c.token, nil
}

// invalidateToken drops the cached service token, forcing a refresh on the
// next call. Used when a request comes back 401.
func (c *Client) invalidateToken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
}

// doJSON performs an authenticated JSON request against the given URL and
// decodes the response into out when out is non-nil.
func (c *Client) doJSON(ctx context.Context, op, method, rawURL string, in, out interface{}) error {
	token, err := c.ServiceToken(ctx)
	if err != nil {
		return err
	}

	var body io.Reader
	if in != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(in); err != nil {
			return fmt.Errorf("keycloak %s: encode request: %w", op, err)
		}
		body = buf
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, method, rawURL, body)
	if err != nil {
		return fmt.Errorf("keycloak %s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return c.transportError(ctx, op, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		c.invalidateToken()
		return &APIError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("keycloak %s: %w", op, models.ErrConflict)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("keycloak %s: %w", op, models.ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return &APIError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("keycloak %s: decode response: %w", op, err)
		}
	}
	return nil
}

// doJSONLocation is doJSON for creation endpoints that answer 201 with an
// empty body and the new object's URL in the Location header. It returns
// the trailing path segment, which Keycloak uses as the new id.
func (c *Client) doJSONLocation(ctx context.Context, op, rawURL string, in interface{}) (string, error) {
	token, err := c.ServiceToken(ctx)
	if err != nil {
		return "", err
	}

	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(in); err != nil {
		return "", fmt.Errorf("keycloak %s: encode request: %w", op, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, rawURL, buf)
	if err != nil {
		return "", fmt.Errorf("keycloak %s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", c.transportError(ctx, op, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode == http.StatusConflict:
		return "", fmt.Errorf("keycloak %s: %w", op, models.ErrConflict)
	case resp.StatusCode != http.StatusCreated:
		return "", &APIError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return "", &APIError{Op: op, StatusCode: resp.StatusCode, Body: "missing Location header"}
	}
	parts := strings.Split(strings.TrimRight(location, "/"), "/")
	return parts[len(parts)-1], nil
}

// postForm performs a form-encoded POST, optionally with a caller-supplied
// bearer token instead of the service token.
func (c *Client) postForm(ctx context.Context, op, rawURL string, form url.Values, bearer string, out interface{}) error {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("keycloak %s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return c.transportError(ctx, op, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	// 207 Multi-Status is a valid answer on permission queries.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusMultiStatus {
		return &APIError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("keycloak %s: decode response: %w", op, err)
		}
	}
	return nil
}

// transportError maps timeouts onto models.ErrTimeout so the retry layer
// recognises them; cancellation and other transport failures pass through.
func (c *Client) transportError(parent context.Context, op string, err error) error {
	if parent.Err() != nil {
		return fmt.Errorf("keycloak %s: %w", op, parent.Err())
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("keycloak %s: %w", op, models.ErrTimeout)
	}
	return fmt.Errorf("keycloak %s: %w", op, err)
}
