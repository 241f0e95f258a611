package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/teemow/ktalk-mcp/internal/logging"
)

const (
	// AuthTimeout bounds every exchange with the proxy config endpoint
	// and Keycloak.
	AuthTimeout = 15 * time.Second

	// expiryMargin is subtracted from the stored expiry so a token that
	// is about to expire mid-request is refreshed up front.
	expiryMargin = 30 * time.Second

	// keycloakClientID is the public client used for the direct access
	// grant, matching the proxy deployment.
	keycloakClientID = "admin-cli"
)

// RefreshResult values reported to the refresh hook.
const (
	RefreshSuccess = "success"
	RefreshFailure = "failure"
)

// LoginError reports a rejected Keycloak password grant. It carries the
// upstream status and error description so tools can show them verbatim.
type LoginError struct {
	StatusCode int
	Detail     string
}

func (e *LoginError) Error() string {
	return fmt.Sprintf("Login failed (%d): %s", e.StatusCode, e.Detail)
}

// KeycloakCredentials authenticates requests with a JWT obtained through
// the Keycloak direct access grant (Resource Owner Password).
//
// Token precedence per request: the environment override always wins and
// is never refreshed; otherwise the stored token is used while it is valid
// with margin; otherwise a single silent refresh is attempted before the
// caller is told to log in again.
type KeycloakCredentials struct {
	proxyURL   string
	store      TokenStore
	envToken   string
	httpClient *http.Client
	logger     *slog.Logger

	// refreshHook is invoked with RefreshSuccess or RefreshFailure after
	// each refresh attempt. Used to wire the auth_token_refresh_total
	// metric without the auth package depending on instrumentation.
	refreshHook func(ctx context.Context, result string)

	// now is replaceable in tests.
	now func() time.Time

	// mu serializes refresh attempts within this process.
	mu sync.Mutex
}

// NewKeycloakCredentials creates the Keycloak strategy. envToken is the
// optional KTALK_JWT_TOKEN override.
func NewKeycloakCredentials(proxyURL string, store TokenStore, envToken string) *KeycloakCredentials {
	return &KeycloakCredentials{
		proxyURL:   strings.TrimRight(proxyURL, "/"),
		store:      store,
		envToken:   envToken,
		httpClient: &http.Client{Timeout: AuthTimeout},
		logger:     slog.Default(),
		now:        time.Now,
	}
}

// SetRefreshHook registers a callback observing refresh outcomes.
func (c *KeycloakCredentials) SetRefreshHook(hook func(ctx context.Context, result string)) {
	c.refreshHook = hook
}

// Describe implements Credentials.
func (c *KeycloakCredentials) Describe() string {
	if c.envToken != "" {
		return "static JWT from environment"
	}
	return "Keycloak JWT (direct access grant)"
}

// proxyConfig is the identity provider discovery document served by the
// proxy at /api/config.
type proxyConfig struct {
	KeycloakURL   string `json:"keycloak_url"`
	KeycloakRealm string `json:"keycloak_realm"`
}

// Login performs the Keycloak direct access grant and persists the
// resulting tokens. The identity provider is discovered from the proxy so
// clients only ever need the proxy URL.
func (c *KeycloakCredentials) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	tokenURL, err := c.discoverTokenURL(ctx)
	if err != nil {
		return nil, err
	}

	conf := &oauth2.Config{
		ClientID: keycloakClientID,
		Endpoint: oauth2.Endpoint{TokenURL: tokenURL},
		Scopes:   []string{"openid"},
	}

	tok, err := conf.PasswordCredentialsToken(c.oauthContext(ctx), username, password)
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) {
			detail := rerr.ErrorDescription
			if detail == "" {
				detail = strings.TrimSpace(string(rerr.Body))
			}
			return nil, &LoginError{StatusCode: rerr.Response.StatusCode, Detail: detail}
		}
		return nil, fmt.Errorf("keycloak token request failed: %w", err)
	}

	stored := &StoredToken{
		AccessToken:      tok.AccessToken,
		RefreshToken:     tok.RefreshToken,
		ExpiresAt:        tok.Expiry.Unix(),
		KeycloakTokenURL: tokenURL,
	}
	if err := c.store.Save(stored); err != nil {
		return nil, err
	}

	expiresIn := tok.Expiry.Sub(c.now())
	c.logger.Info("authenticated with keycloak",
		logging.Operation("auth.login"),
		slog.String("username", username),
		slog.Duration("expires_in", expiresIn),
		slog.String("token", logging.SanitizeToken(tok.AccessToken)),
	)

	return &LoginResult{
		Username:         username,
		ExpiresIn:        expiresIn,
		StoreDescription: c.store.Description(),
	}, nil
}

// Authorize implements Credentials by attaching a Bearer token.
func (c *KeycloakCredentials) Authorize(ctx context.Context, req *http.Request) error {
	token, err := c.validToken(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// validToken returns a usable access token, refreshing at most once.
func (c *KeycloakCredentials) validToken(ctx context.Context) (string, error) {
	if c.envToken != "" {
		return c.envToken, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	stored, err := c.store.Load()
	if err != nil {
		return "", err
	}
	if stored == nil || stored.AccessToken == "" {
		return "", fmt.Errorf("%w: no valid JWT token; call the 'login' tool to authenticate via Keycloak, or set KTALK_JWT_TOKEN", ErrUnauthenticated)
	}

	if c.now().Before(time.Unix(stored.ExpiresAt, 0).Add(-expiryMargin)) {
		return stored.AccessToken, nil
	}

	refreshed, err := c.refresh(ctx, stored)
	if err != nil {
		// Refresh failures of any kind, transport errors included, end
		// in the same re-login guidance.
		c.logger.Warn("token refresh failed",
			logging.Operation("auth.refresh"),
			logging.Err(err),
		)
		c.recordRefresh(ctx, RefreshFailure)
		return "", fmt.Errorf("%w: JWT token expired and refresh failed; call the 'login' tool to re-authenticate", ErrUnauthenticated)
	}
	c.recordRefresh(ctx, RefreshSuccess)
	return refreshed.AccessToken, nil
}

// refresh exchanges the stored refresh token for a new access token and
// persists the result.
func (c *KeycloakCredentials) refresh(ctx context.Context, stored *StoredToken) (*StoredToken, error) {
	if stored.RefreshToken == "" || stored.KeycloakTokenURL == "" {
		return nil, errors.New("no refresh token saved")
	}

	conf := &oauth2.Config{
		ClientID: keycloakClientID,
		Endpoint: oauth2.Endpoint{TokenURL: stored.KeycloakTokenURL},
	}
	seed := &oauth2.Token{RefreshToken: stored.RefreshToken}

	tok, err := conf.TokenSource(c.oauthContext(ctx), seed).Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken == "" {
		return nil, errors.New("keycloak returned no access_token")
	}

	next := &StoredToken{
		AccessToken:      tok.AccessToken,
		RefreshToken:     tok.RefreshToken,
		ExpiresAt:        tok.Expiry.Unix(),
		KeycloakTokenURL: stored.KeycloakTokenURL,
	}
	if next.RefreshToken == "" {
		next.RefreshToken = stored.RefreshToken
	}
	if err := c.store.Save(next); err != nil {
		return nil, err
	}

	c.logger.Debug("refreshed access token",
		logging.Operation("auth.refresh"),
		slog.String("token", logging.SanitizeToken(next.AccessToken)),
	)
	return next, nil
}

// discoverTokenURL asks the proxy which Keycloak instance and realm it
// fronts and derives the OIDC token endpoint.
func (c *KeycloakCredentials) discoverTokenURL(ctx context.Context) (string, error) {
	if c.proxyURL == "" {
		return "", errors.New("KTALK_PROXY_URL environment variable is not set. Provide the kts-ktalk-api-proxy URL.")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.proxyURL+"/api/config", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch proxy config: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("proxy config request returned status %d", resp.StatusCode)
	}

	var cfg proxyConfig
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&cfg); err != nil {
		return "", fmt.Errorf("failed to decode proxy config: %w", err)
	}
	if cfg.KeycloakURL == "" || cfg.KeycloakRealm == "" {
		return "", errors.New("proxy config is missing keycloak_url or keycloak_realm")
	}

	return fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token",
		strings.TrimRight(cfg.KeycloakURL, "/"), cfg.KeycloakRealm), nil
}

// oauthContext injects the bounded HTTP client into the oauth2 exchanges.
func (c *KeycloakCredentials) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

func (c *KeycloakCredentials) recordRefresh(ctx context.Context, result string) {
	if c.refreshHook != nil {
		c.refreshHook(ctx, result)
	}
}
