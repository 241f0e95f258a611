// Package cmd implements the command-line interface for ktalk-mcp.
//
// The root command defaults to the serve subcommand, which starts the MCP
// server over stdio or streamable HTTP and registers the KTalk recording
// tools. Configuration comes from flags with environment variable
// fallbacks (KTALK_PROXY_URL, KTALK_AUTH_MODE and friends).
package cmd
