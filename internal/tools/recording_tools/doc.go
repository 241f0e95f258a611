// Package recording_tools registers the MCP tools for working with KTalk
// meeting recordings: authenticating against Keycloak, listing and
// inspecting recordings, and saving transcripts and media files to disk.
//
// The login tool is only registered when the configured credential
// strategy supports interactive username/password login; static API keys
// and session cookies have nothing to log in to.
package recording_tools
