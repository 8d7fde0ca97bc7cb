// Package keycloak adapts the Keycloak admin REST API to the identity
// provider port used by access control.
package keycloak

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"hr_backoffice/platform/apperr"
	"hr_backoffice/platform/config"
)

const (
	defaultTimeout = 10 * time.Second
	tokenLeeway    = 30 * time.Second
	maxErrorBody   = 4 << 10
)

// Profile is the account data sent to the identity provider.
type Profile struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Enabled   bool
	// Attributes are stored as Keycloak user attributes.
	Attributes map[string]string
}

// Client talks to one realm using client-credentials authentication.
type Client struct {
	baseURL      string
	realm        string
	clientID     string
	clientSecret string
	http         *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
	now         func() time.Time
}

// New builds a client from configuration. A nil httpClient gets one with the
// configured timeout.
func New(cfg config.KeycloakConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		timeout := cfg.GetKeycloakTimeout()
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.GetKeycloakBaseURL(), "/"),
		realm:        cfg.GetKeycloakRealm(),
		clientID:     cfg.GetKeycloakClientID(),
		clientSecret: cfg.GetKeycloakClientSecret(),
		http:         httpClient,
		now:          time.Now,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type credential struct {
	Type      string `json:"type"`
	Value     string `json:"value,omitempty"`
	Temporary bool   `json:"temporary"`
}

type userRepresentation struct {
	Username        string              `json:"username"`
	Email           string              `json:"email"`
	FirstName       string              `json:"firstName,omitempty"`
	LastName        string              `json:"lastName,omitempty"`
	Enabled         bool                `json:"enabled"`
	EmailVerified   bool                `json:"emailVerified"`
	Attributes      map[string][]string `json:"attributes,omitempty"`
	RequiredActions []string            `json:"requiredActions,omitempty"`
}

// CreateIdentity creates a user and returns the id Keycloak assigned to it.
func (c *Client) CreateIdentity(ctx context.Context, p Profile) (string, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return "", err
	}

	user := userRepresentation{
		Username:        p.Username,
		Email:           p.Email,
		FirstName:       p.FirstName,
		LastName:        p.LastName,
		Enabled:         p.Enabled,
		RequiredActions: []string{"UPDATE_PASSWORD", "VERIFY_EMAIL"},
	}
	if len(p.Attributes) > 0 {
		user.Attributes = make(map[string][]string, len(p.Attributes))
		for k, v := range p.Attributes {
			user.Attributes[k] = []string{v}
		}
	}

	body, err := json.Marshal(user)
	if err != nil {
		return "", apperr.Internal("encode keycloak user").WithOp("keycloak.CreateIdentity")
	}

	endpoint := c.baseURL + "/admin/realms/" + url.PathEscape(c.realm) + "/users"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", apperr.Unavailable("identity provider request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", apperr.Unavailable("identity provider unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.invalidateToken()
	}
	if resp.StatusCode != http.StatusCreated {
		return "", statusError(resp)
	}

	id := idFromLocation(resp.Header.Get("Location"))
	if id == "" {
		return "", apperr.Unavailable("identity provider returned no user id", nil)
	}
	return id, nil
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)

	endpoint := c.baseURL + "/realms/" + url.PathEscape(c.realm) + "/protocol/openid-connect/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", apperr.Unavailable("identity provider token request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", apperr.Unavailable("identity provider unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", apperr.Unavailable("identity provider token rejected",
			fmt.Errorf("keycloak token status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil || tr.AccessToken == "" {
		return "", apperr.Unavailable("identity provider token unreadable", err)
	}

	c.token = tr.AccessToken
	c.tokenExpiry = c.now().Add(time.Duration(tr.ExpiresIn)*time.Second - tokenLeeway)
	return c.token, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

type errorBody struct {
	ErrorMessage string `json:"errorMessage"`
	Error        string `json:"error"`
}

func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var eb errorBody
	_ = json.Unmarshal(raw, &eb)
	detail := eb.ErrorMessage
	if detail == "" {
		detail = eb.Error
	}
	cause := fmt.Errorf("keycloak status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		msg := "identity provider rejected the profile"
		if detail != "" {
			msg += ": " + detail
		}
		return apperr.Wrap(apperr.KindValidation, msg, cause)
	case resp.StatusCode == http.StatusConflict:
		msg := "identity already exists in the identity provider"
		if detail != "" {
			msg += ": " + detail
		}
		return apperr.Wrap(apperr.KindConflict, msg, cause)
	default:
		return apperr.Unavailable("identity provider failure", cause)
	}
}

func idFromLocation(location string) string {
	if location == "" {
		return ""
	}
	u, err := url.Parse(location)
	if err != nil {
		return ""
	}
	id := path.Base(strings.TrimRight(u.Path, "/"))
	if id == "." || id == "/" || id == "users" {
		return ""
	}
	return id
}
