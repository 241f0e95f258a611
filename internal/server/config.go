package server

import (
	"os"

	"github.com/teemow/ktalk-mcp/internal/auth"
)

// DefaultDownloadDir is where transcripts and recording files are saved
// when the client does not pass an output directory.
const DefaultDownloadDir = "./downloads"

// Config holds the runtime configuration for the MCP server. All fields
// can be populated from the environment via ConfigFromEnv; flags override
// individual fields afterwards.
type Config struct {
	// ProxyURL is the base URL of the kts-ktalk-api-proxy.
	ProxyURL string

	// AuthMode selects the credential strategy (keycloak, api-key, cookie).
	AuthMode string

	// EnvToken is a static JWT that bypasses the token store.
	EnvToken string

	// APIKey is the static key for the api-key auth mode.
	APIKey string

	// SessionCookie is the raw Cookie header value for the cookie auth mode.
	SessionCookie string

	// TokenStore selects where Keycloak tokens are persisted (file, keyring).
	TokenStore string

	// DownloadDir is the default directory for saved transcripts and media.
	DownloadDir string

	// Version is the server version reported to MCP clients.
	Version string
}

// ConfigFromEnv builds a Config from the KTALK_* environment variables.
func ConfigFromEnv() Config {
	return Config{
		ProxyURL:      os.Getenv("KTALK_PROXY_URL"),
		AuthMode:      envOrDefault("KTALK_AUTH_MODE", auth.ModeKeycloak),
		EnvToken:      os.Getenv("KTALK_JWT_TOKEN"),
		APIKey:        os.Getenv("KTALK_API_KEY"),
		SessionCookie: os.Getenv("KTALK_SESSION_COOKIE"),
		TokenStore:    envOrDefault("KTALK_TOKEN_STORE", "file"),
		DownloadDir:   envOrDefault("KTALK_DOWNLOAD_DIR", DefaultDownloadDir),
	}
}

func envOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
