package server

import (
	"context"
	"fmt"
	"sync"

	"github.com/teemow/ktalk-mcp/internal/auth"
	"github.com/teemow/ktalk-mcp/internal/instrumentation"
	"github.com/teemow/ktalk-mcp/internal/ktalk"
)

// ServerContext holds the context for the MCP server
type ServerContext struct {
	ctx         context.Context
	cancel      context.CancelFunc
	config      Config
	creds       auth.Credentials
	client      *ktalk.Client // lazily created, cached
	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger
	mu          sync.RWMutex
	shutdown    bool
}

// NewServerContext creates a new server context. Credentials are resolved
// eagerly so misconfiguration fails at startup; the KTalk client is
// created lazily on first use since the proxy URL may only be needed once
// a tool runs.
func NewServerContext(ctx context.Context, config Config) (*ServerContext, error) {
	shutdownCtx, cancel := context.WithCancel(ctx)

	store, err := auth.NewStore(config.TokenStore)
	if err != nil {
		cancel()
		return nil, err
	}

	creds, err := auth.NewCredentials(auth.Options{
		Mode:          config.AuthMode,
		ProxyURL:      config.ProxyURL,
		EnvToken:      config.EnvToken,
		APIKey:        config.APIKey,
		SessionCookie: config.SessionCookie,
		Store:         store,
	})
	if err != nil {
		cancel()
		return nil, err
	}

	return &ServerContext{
		ctx:      shutdownCtx,
		cancel:   cancel,
		config:   config,
		creds:    creds,
		shutdown: false,
	}, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Config returns the server configuration.
func (sc *ServerContext) Config() Config {
	return sc.config
}

// Credentials returns the credential strategy the server was configured with.
func (sc *ServerContext) Credentials() auth.Credentials {
	return sc.creds
}

// Client returns the KTalk API client, creating and caching it on first
// use. Returns an error when KTALK_PROXY_URL is not configured.
func (sc *ServerContext) Client() (*ktalk.Client, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.client != nil {
		return sc.client, nil
	}

	client, err := ktalk.NewClient(sc.config.ProxyURL, sc.creds, sc.config.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to create KTalk client: %w", err)
	}

	sc.client = client
	return client, nil
}

// DownloadDir returns the default directory for saved files.
func (sc *ServerContext) DownloadDir() string {
	if sc.config.DownloadDir != "" {
		return sc.config.DownloadDir
	}
	return DefaultDownloadDir
}

// SetMetrics sets the metrics recorder for instrumentation
func (sc *ServerContext) SetMetrics(metrics *instrumentation.Metrics) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = metrics
}

// Metrics returns the metrics recorder (may be nil if not configured)
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// SetAuditLogger sets the audit logger for tool invocations
func (sc *ServerContext) SetAuditLogger(logger *instrumentation.AuditLogger) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.auditLogger = logger
}

// AuditLogger returns the audit logger (may be nil if not configured)
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.auditLogger
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
