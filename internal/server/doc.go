// Package server provides the MCP server context, transports, and
// operational endpoints for the ktalk-mcp application.
//
// # Key Components
//
// ServerContext resolves the credential strategy at startup and lazily
// creates the shared KTalk API client. It also carries the metrics
// recorder and audit logger that the tool handlers use.
//
// HTTPServer serves the MCP protocol over the streamable HTTP transport
// on /mcp and registers Kubernetes-style health endpoints next to it.
// The stdio transport is driven directly from the serve command and does
// not need a wrapper here.
//
// MetricsServer exposes Prometheus metrics on a dedicated port, keeping
// operational metrics off the MCP transport.
package server
