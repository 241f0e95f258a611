package server

import (
	"context"
	"testing"

	"github.com/teemow/ktalk-mcp/internal/auth"
)

func testConfig() Config {
	return Config{
		ProxyURL:   "https://proxy.example.com",
		AuthMode:   auth.ModeAPIKey,
		APIKey:     "test-key",
		TokenStore: "file",
		Version:    "test",
	}
}

func TestNewServerContext(t *testing.T) {
	sc, err := NewServerContext(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("NewServerContext() error = %v", err)
	}
	defer func() { _ = sc.Shutdown() }()

	if sc.Credentials() == nil {
		t.Error("expected credentials to be resolved")
	}
	if sc.IsShutdown() {
		t.Error("expected server context not to be shutdown")
	}
}

func TestNewServerContext_InvalidAuthMode(t *testing.T) {
	config := testConfig()
	config.AuthMode = "bogus"

	_, err := NewServerContext(context.Background(), config)
	if err == nil {
		t.Fatal("expected error for unknown auth mode")
	}
}

func TestNewServerContext_InvalidTokenStore(t *testing.T) {
	config := testConfig()
	config.TokenStore = "bogus"

	_, err := NewServerContext(context.Background(), config)
	if err == nil {
		t.Fatal("expected error for unknown token store")
	}
}

func TestServerContext_ClientCached(t *testing.T) {
	sc, err := NewServerContext(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("NewServerContext() error = %v", err)
	}
	defer func() { _ = sc.Shutdown() }()

	first, err := sc.Client()
	if err != nil {
		t.Fatalf("Client() error = %v", err)
	}
	second, err := sc.Client()
	if err != nil {
		t.Fatalf("Client() error = %v", err)
	}
	if first != second {
		t.Error("expected the KTalk client to be cached")
	}
}

func TestServerContext_ClientWithoutProxyURL(t *testing.T) {
	config := testConfig()
	config.ProxyURL = ""

	sc, err := NewServerContext(context.Background(), config)
	if err != nil {
		t.Fatalf("NewServerContext() error = %v", err)
	}
	defer func() { _ = sc.Shutdown() }()

	if _, err := sc.Client(); err == nil {
		t.Fatal("expected error when KTALK_PROXY_URL is missing")
	}
}

func TestServerContext_DownloadDir(t *testing.T) {
	config := testConfig()
	config.DownloadDir = ""

	sc, err := NewServerContext(context.Background(), config)
	if err != nil {
		t.Fatalf("NewServerContext() error = %v", err)
	}
	defer func() { _ = sc.Shutdown() }()

	if dir := sc.DownloadDir(); dir != DefaultDownloadDir {
		t.Errorf("DownloadDir() = %q, want %q", dir, DefaultDownloadDir)
	}

	config.DownloadDir = "/tmp/recordings"
	sc2, err := NewServerContext(context.Background(), config)
	if err != nil {
		t.Fatalf("NewServerContext() error = %v", err)
	}
	defer func() { _ = sc2.Shutdown() }()

	if dir := sc2.DownloadDir(); dir != "/tmp/recordings" {
		t.Errorf("DownloadDir() = %q, want %q", dir, "/tmp/recordings")
	}
}

func TestServerContext_Shutdown(t *testing.T) {
	sc, err := NewServerContext(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("NewServerContext() error = %v", err)
	}

	if err := sc.Shutdown(); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
	if !sc.IsShutdown() {
		t.Error("expected IsShutdown() to be true after Shutdown()")
	}

	// Context should be cancelled
	select {
	case <-sc.Context().Done():
	default:
		t.Error("expected server context to be cancelled after Shutdown()")
	}

	// Second shutdown is a no-op
	if err := sc.Shutdown(); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}
}
