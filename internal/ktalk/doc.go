// Package ktalk provides a client for the KTalk recordings API as exposed
// by the kts-ktalk-api-proxy.
//
// The client covers the four operations the MCP tools need: listing
// recordings, fetching recording metadata, fetching transcripts and
// downloading recording media. Authentication is delegated to an
// auth.Credentials strategy so the same client works with Keycloak JWTs,
// static API keys and session cookies.
//
// Upstream 401/403/404 responses are mapped to *APIError values carrying
// user-facing guidance; any other non-2xx status is a plain error.
package ktalk
