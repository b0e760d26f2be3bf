package keycloak

import (
	"context"
	"net/url"
	"sort"
)

// RPTPermission is one entry of a requesting party token permission
// response: a resource and the scopes the caller holds on it.
type RPTPermission struct {
	ResourceID   string   `json:"rsid"`
	ResourceName string   `json:"rsname"`
	Scopes       []string `json:"scopes"`
}

// RequestPartyPermissions exchanges a user's access token for its RPT
// permissions. A successful exchange is what validates the token: Keycloak
// refuses the grant for expired or forged tokens, so no local signature
// check is needed.
func (c *Client) RequestPartyPermissions(ctx context.Context, accessToken string) ([]RPTPermission, error) {
	form := url.Values{
		"grant_type":    {"urn:ietf:params:oauth:grant-type:uma-ticket"},
		"audience":      {c.cfg.ClientID},
		"response_mode": {"permissions"},
	}

	var permissions []RPTPermission
	if err := c.postForm(ctx, "rpt exchange", c.tokenURL(), form, accessToken, &permissions); err != nil {
		return nil, err
	}
	return permissions, nil
}

// ExtractScopes flattens RPT permissions into sorted fully-qualified scope
// strings of the form "<resource>.<SCOPE>", e.g. "folio.READ" or
// "folio.covid-survey.WRITE".
func ExtractScopes(permissions []RPTPermission) []string {
	seen := make(map[string]struct{})
	for _, permission := range permissions {
		for _, scope := range permission.Scopes {
			seen[permission.ResourceName+"."+scope] = struct{}{}
		}
	}

	scopes := make([]string, 0, len(seen))
	for scope := range seen {
		scopes = append(scopes, scope)
	}
	sort.Strings(scopes)
	return scopes
}
