package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrUnauthenticated indicates that no usable credential is available.
// Callers should surface the wrapped remedy text to the user.
var ErrUnauthenticated = errors.New("unauthenticated")

// Auth mode names accepted by NewCredentials.
const (
	ModeKeycloak = "keycloak"
	ModeAPIKey   = "api-key"
	ModeCookie   = "cookie"
)

// HeaderAPIKey is the header carrying a static API key.
const HeaderAPIKey = "X-Api-Key"

// Credentials authorizes outgoing proxy requests. Implementations must be
// safe for concurrent use.
type Credentials interface {
	// Authorize attaches authentication to the request, refreshing
	// underlying material if needed.
	Authorize(ctx context.Context, req *http.Request) error

	// Describe returns a short human-readable description of the
	// strategy for logging and startup output.
	Describe() string
}

// LoginResult reports the outcome of an interactive login.
type LoginResult struct {
	Username  string
	ExpiresIn time.Duration
	// StoreDescription says where the token was saved, e.g. a file path
	// or "the system keyring".
	StoreDescription string
}

// PasswordAuthenticator is the capability interface for strategies that
// support interactive username/password login. The login MCP tool is only
// registered when the active strategy implements it.
type PasswordAuthenticator interface {
	Credentials
	Login(ctx context.Context, username, password string) (*LoginResult, error)
}

// StaticKeyCredentials authenticates every request with a fixed API key.
type StaticKeyCredentials struct {
	key string
}

// NewStaticKeyCredentials creates a static key strategy. A missing key is a
// configuration error: this strategy has no interactive fallback.
func NewStaticKeyCredentials(key string) (*StaticKeyCredentials, error) {
	if key == "" {
		return nil, fmt.Errorf("KTALK_API_KEY is not set: the api-key auth mode requires a static API key")
	}
	return &StaticKeyCredentials{key: key}, nil
}

// Authorize sets the API key header.
func (c *StaticKeyCredentials) Authorize(_ context.Context, req *http.Request) error {
	req.Header.Set(HeaderAPIKey, c.key)
	return nil
}

// Describe implements Credentials.
func (c *StaticKeyCredentials) Describe() string {
	return "static API key"
}

// CookieOrKeyCredentials prefers an API key and falls back to a session
// cookie. When neither is configured the request is sent unauthenticated
// and the proxy decides whether to accept it.
type CookieOrKeyCredentials struct {
	apiKey string
	cookie string
}

// NewCookieOrKeyCredentials creates the cookie-or-key strategy. Both values
// may be empty.
func NewCookieOrKeyCredentials(apiKey, cookie string) *CookieOrKeyCredentials {
	return &CookieOrKeyCredentials{apiKey: apiKey, cookie: cookie}
}

// Authorize sets the API key header when present, otherwise the session
// cookie, otherwise nothing.
func (c *CookieOrKeyCredentials) Authorize(_ context.Context, req *http.Request) error {
	if c.apiKey != "" {
		req.Header.Set(HeaderAPIKey, c.apiKey)
		return nil
	}
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}
	return nil
}

// Describe implements Credentials.
func (c *CookieOrKeyCredentials) Describe() string {
	switch {
	case c.apiKey != "":
		return "API key with cookie fallback"
	case c.cookie != "":
		return "session cookie"
	default:
		return "unauthenticated"
	}
}

// Options configures NewCredentials.
type Options struct {
	// Mode selects the strategy: keycloak (default), api-key or cookie.
	Mode string

	// ProxyURL is the kts-ktalk-api-proxy base URL (keycloak mode).
	ProxyURL string

	// EnvToken is a static JWT override (keycloak mode). It always wins
	// over stored tokens and is never refreshed.
	EnvToken string

	// APIKey is the static key for the api-key and cookie modes.
	APIKey string

	// SessionCookie is the cookie fallback for the cookie mode.
	SessionCookie string

	// Store persists Keycloak tokens. Defaults to the file store.
	Store TokenStore
}

// NewCredentials builds the credential strategy for the given options.
func NewCredentials(opts Options) (Credentials, error) {
	mode := opts.Mode
	if mode == "" {
		mode = ModeKeycloak
	}

	switch mode {
	case ModeKeycloak:
		store := opts.Store
		if store == nil {
			var err error
			store, err = NewFileStore()
			if err != nil {
				return nil, err
			}
		}
		return NewKeycloakCredentials(opts.ProxyURL, store, opts.EnvToken), nil
	case ModeAPIKey:
		return NewStaticKeyCredentials(opts.APIKey)
	case ModeCookie:
		return NewCookieOrKeyCredentials(opts.APIKey, opts.SessionCookie), nil
	default:
		return nil, fmt.Errorf("unsupported auth mode: %s (supported: keycloak, api-key, cookie)", mode)
	}
}
