package server

import (
	"testing"

	"github.com/teemow/ktalk-mcp/internal/auth"
)

func TestConfigFromEnv_Defaults(t *testing.T) {
	t.Setenv("KTALK_PROXY_URL", "")
	t.Setenv("KTALK_AUTH_MODE", "")
	t.Setenv("KTALK_TOKEN_STORE", "")
	t.Setenv("KTALK_DOWNLOAD_DIR", "")

	config := ConfigFromEnv()

	if config.AuthMode != auth.ModeKeycloak {
		t.Errorf("AuthMode = %q, want %q", config.AuthMode, auth.ModeKeycloak)
	}
	if config.TokenStore != "file" {
		t.Errorf("TokenStore = %q, want %q", config.TokenStore, "file")
	}
	if config.DownloadDir != DefaultDownloadDir {
		t.Errorf("DownloadDir = %q, want %q", config.DownloadDir, DefaultDownloadDir)
	}
}

func TestConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("KTALK_PROXY_URL", "https://proxy.example.com")
	t.Setenv("KTALK_AUTH_MODE", auth.ModeCookie)
	t.Setenv("KTALK_SESSION_COOKIE", "session=abc")
	t.Setenv("KTALK_TOKEN_STORE", "keyring")
	t.Setenv("KTALK_DOWNLOAD_DIR", "/data/recordings")

	config := ConfigFromEnv()

	if config.ProxyURL != "https://proxy.example.com" {
		t.Errorf("ProxyURL = %q, want the env value", config.ProxyURL)
	}
	if config.AuthMode != auth.ModeCookie {
		t.Errorf("AuthMode = %q, want %q", config.AuthMode, auth.ModeCookie)
	}
	if config.SessionCookie != "session=abc" {
		t.Errorf("SessionCookie = %q, want %q", config.SessionCookie, "session=abc")
	}
	if config.TokenStore != "keyring" {
		t.Errorf("TokenStore = %q, want %q", config.TokenStore, "keyring")
	}
	if config.DownloadDir != "/data/recordings" {
		t.Errorf("DownloadDir = %q, want %q", config.DownloadDir, "/data/recordings")
	}
}
