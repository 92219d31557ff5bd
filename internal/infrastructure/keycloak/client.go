package keycloak

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"vn.io.arda/account/internal/domain"
)

// Client implements application.IdentityProvider by calling the Keycloak Admin REST API.
type Client struct {
	adminURL     string // e.g. "http://keycloak:8080"
	adminRealm   string // realm used for admin login, usually "master"
	userRealm    string // realm holding the external media identities
	clientID     string
	clientSecret string

	httpClient *http.Client
	limiter    *rate.Limiter

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// Options configure a Client.
type Options struct {
	AdminURL     string
	AdminRealm   string
	UserRealm    string
	ClientID     string
	ClientSecret string
	// RequestsPerSecond throttles admin calls; <= 0 disables throttling.
	RequestsPerSecond float64
	Timeout           time.Duration
}

// New creates a Keycloak Client.
func New(opts Options) *Client {
	limit := rate.Inf
	burst := 1
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
		burst = max(1, int(opts.RequestsPerSecond))
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		adminURL:     strings.TrimRight(opts.AdminURL, "/"),
		adminRealm:   opts.AdminRealm,
		userRealm:    opts.UserRealm,
		clientID:     opts.ClientID,
		clientSecret: opts.ClientSecret,
		httpClient:   &http.Client{Timeout: timeout},
		limiter:      rate.NewLimiter(limit, burst),
	}
}

// keycloakUser is a minimal representation of a Keycloak user.
type keycloakUser struct {
	ID            string `json:"id,omitempty"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	FirstName     string `json:"firstName,omitempty"`
	LastName      string `json:"lastName,omitempty"`
	Enabled       bool   `json:"enabled"`
	EmailVerified bool   `json:"emailVerified"`
}

// CreateUser registers email in the user realm and returns the Keycloak user id.
// An existing user with the same username is reported as domain.ErrDuplicate.
func (c *Client) CreateUser(ctx context.Context, email, firstName, surname string) (string, error) {
	body, err := json.Marshal(keycloakUser{
		Username:      email,
		Email:         email,
		FirstName:     firstName,
		LastName:      surname,
		Enabled:       true,
		EmailVerified: true,
	})
	if err != nil {
		return "", err
	}

	resp, err := c.do(ctx, http.MethodPost, c.usersURL(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("keycloak create user: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
	case http.StatusConflict:
		return "", fmt.Errorf("keycloak create user: %w", domain.ErrDuplicate)
	default:
		return "", fmt.Errorf("keycloak create user: status %d", resp.StatusCode)
	}

	// Keycloak answers 201 with the new resource in Location.
	id := path.Base(resp.Header.Get("Location"))
	if id == "" || id == "." || id == "/" {
		return "", fmt.Errorf("keycloak create user: missing Location header")
	}

	log.Debug().Str("keycloak_id", id).Msg("keycloak user created")
	return id, nil
}

// DeleteUser removes every user registered under email. No match is not an error.
func (c *Client) DeleteUser(ctx context.Context, email string) error {
	users, err := c.findByEmail(ctx, email)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		log.Debug().Str("email", email).Msg("keycloak user already absent")
		return nil
	}

	for _, u := range users {
		resp, err := c.do(ctx, http.MethodDelete, c.usersURL()+"/"+url.PathEscape(u.ID), nil)
		if err != nil {
			return fmt.Errorf("keycloak delete user(%s): %w", u.ID, err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
			return fmt.Errorf("keycloak delete user(%s): status %d", u.ID, resp.StatusCode)
		}
	}
	return nil
}

func (c *Client) findByEmail(ctx context.Context, email string) ([]keycloakUser, error) {
	q := url.Values{}
	q.Set("email", email)
	q.Set("exact", "true")

	resp, err := c.do(ctx, http.MethodGet, c.usersURL()+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("keycloak find user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("keycloak find user: status %d", resp.StatusCode)
	}

	var users []keycloakUser
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		return nil, fmt.Errorf("keycloak find user: %w", err)
	}
	return users, nil
}

// --- internal helpers ---

func (c *Client) usersURL() string {
	return fmt.Sprintf("%s/admin/realms/%s/users", c.adminURL, url.PathEscape(c.userRealm))
}

// do sends an authenticated admin request after waiting for the rate limiter.
func (c *Client) do(ctx context.Context, method, target string, body *bytes.Reader) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	token, err := c.adminToken(ctx)
	if err != nil {
		return nil, err
	}

	var req *http.Request
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, target, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, target, nil)
	}
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.httpClient.Do(req)
}

// adminToken returns a cached admin access token, fetching a new one shortly
// before the current one expires.
func (c *Client) adminToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	tokenURL := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", c.adminURL, url.PathEscape(c.adminRealm))
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("keycloak admin token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("keycloak admin token: status %d", resp.StatusCode)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", err
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("keycloak returned empty access_token")
	}

	c.token = tok.AccessToken
	// Refresh 30s early; tokens without a lifetime are used once.
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - 30*time.Second)
	return c.token, nil
}
