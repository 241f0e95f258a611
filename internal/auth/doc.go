// Package auth provides the credential strategies used to authenticate
// requests against the kts-ktalk-api-proxy.
//
// All strategies implement the Credentials interface, so the API client is
// agnostic about how a request is authorized:
//
//   - KeycloakCredentials obtains a JWT via the Keycloak direct access
//     grant and refreshes it transparently (the default deployment).
//   - StaticKeyCredentials sends a fixed API key header.
//   - CookieOrKeyCredentials prefers an API key and falls back to a
//     session cookie.
//
// KeycloakCredentials additionally implements PasswordAuthenticator, which
// gates registration of the login MCP tool: deployments using static keys
// or cookies have nothing to log in to.
//
// Tokens obtained from Keycloak are persisted through a TokenStore. The
// default FileStore keeps them under ~/.ktalk-mcp/token.json; KeyringStore
// keeps the same document in the OS keyring.
package auth
