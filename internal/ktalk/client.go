package ktalk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/teemow/ktalk-mcp/internal/auth"
	"github.com/teemow/ktalk-mcp/internal/instrumentation"
	"github.com/teemow/ktalk-mcp/internal/logging"
)

const (
	// APITimeout bounds JSON API requests.
	APITimeout = 60 * time.Second

	// DownloadTimeout bounds media downloads, which can run long for
	// high-quality renditions.
	DownloadTimeout = 300 * time.Second

	// maxErrorBody limits how much of an error response is kept for
	// diagnostics.
	maxErrorBody = 2048
)

// APIError is an upstream HTTP error with guidance the tools surface to
// the user verbatim instead of failing the tool call.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// Client talks to the KTalk API through the proxy. All endpoints live
// under {proxy}/api/talk.
type Client struct {
	baseURL        string
	creds          auth.Credentials
	userAgent      string
	apiClient      *http.Client
	downloadClient *http.Client
	logger         *slog.Logger
}

// NewClient creates a Client for the given proxy base URL.
func NewClient(proxyURL string, creds auth.Credentials, version string) (*Client, error) {
	if proxyURL == "" {
		return nil, fmt.Errorf("KTALK_PROXY_URL environment variable is not set. Provide the kts-ktalk-api-proxy URL.")
	}
	if creds == nil {
		return nil, fmt.Errorf("credentials are required")
	}
	if version == "" {
		version = "dev"
	}
	return &Client{
		baseURL:        strings.TrimRight(proxyURL, "/") + "/api/talk",
		creds:          creds,
		userAgent:      "ktalk-mcp/" + version,
		apiClient:      &http.Client{Timeout: APITimeout},
		downloadClient: &http.Client{Timeout: DownloadTimeout},
		logger:         slog.Default(),
	}, nil
}

// Credentials returns the strategy this client authorizes requests with.
func (c *Client) Credentials() auth.Credentials {
	return c.creds
}

// listEnvelope covers API deployments that wrap the recordings array in an
// object.
type listEnvelope struct {
	Recordings []Recording `json:"recordings"`
	Items      []Recording `json:"items"`
}

// ListRecordings lists recordings, optionally filtered by room and date
// range. The endpoint returns either a bare array or an object wrapping it
// under "recordings" or "items".
func (c *Client) ListRecordings(ctx context.Context, filter ListFilter) ([]Recording, error) {
	ctx, span := instrumentation.StartAPISpan(ctx, "list_recordings")
	defer span.End()

	query := url.Values{}
	if filter.RoomName != "" {
		query.Set("roomName", filter.RoomName)
	}
	if filter.FromDate != "" {
		query.Set("fromDate", filter.FromDate)
	}
	if filter.ToDate != "" {
		query.Set("toDate", filter.ToDate)
	}

	endpoint := c.baseURL + "/api/Domain/recordings/v2"
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	body, err := c.getJSON(ctx, endpoint, "Recordings endpoint not available.")
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, err
	}

	var recordings []Recording
	if err := json.Unmarshal(body, &recordings); err == nil {
		return recordings, nil
	}

	var envelope listEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode recordings listing: %w", err)
	}
	if envelope.Recordings != nil {
		return envelope.Recordings, nil
	}
	return envelope.Items, nil
}

// GetRecording fetches the metadata document for one recording.
func (c *Client) GetRecording(ctx context.Context, key string) (*Recording, error) {
	ctx, span := instrumentation.StartAPISpan(ctx, "get_recording",
		instrumentation.RecordingKeyAttr(key))
	defer span.End()

	endpoint := c.baseURL + "/api/Recordings/" + url.PathEscape(key)
	body, err := c.getJSON(ctx, endpoint, fmt.Sprintf("Recording '%s' not found.", key))
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, err
	}

	var rec Recording
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode recording metadata: %w", err)
	}
	return &rec, nil
}

// FetchTranscript fetches the transcript for a recording. JSON responses
// are decoded generically for the transcript normalizer; any other content
// type is returned as plain text.
func (c *Client) FetchTranscript(ctx context.Context, key string) (*Transcript, error) {
	ctx, span := instrumentation.StartAPISpan(ctx, "fetch_transcript",
		instrumentation.RecordingKeyAttr(key))
	defer span.End()

	endpoint := c.baseURL + "/api/recordings/" + url.PathEscape(key) + "/transcript"
	resp, err := c.do(ctx, c.apiClient, endpoint, "application/json")
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := c.checkStatus(resp, fmt.Sprintf("Recording '%s' not found.", key)); err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript response: %w", err)
	}

	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		var payload any
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, fmt.Errorf("failed to decode transcript: %w", err)
		}
		return &Transcript{JSON: payload}, nil
	}
	return &Transcript{Text: string(body)}, nil
}

// DownloadRecording downloads the media file for a recording in the given
// quality and resolves a filename for it.
func (c *Client) DownloadRecording(ctx context.Context, key, quality string) (*Download, error) {
	ctx, span := instrumentation.StartAPISpan(ctx, "download_recording",
		instrumentation.RecordingKeyAttr(key),
		instrumentation.QualityAttr(quality))
	defer span.End()

	endpoint := c.baseURL + "/api/Recordings/" + url.PathEscape(key) + "/file/" + url.PathEscape(quality)
	resp, err := c.do(ctx, c.downloadClient, endpoint, "*/*")
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	notFound := fmt.Sprintf(
		"Recording file '%s' with quality '%s' not found. Use get_recording_info to see available qualities.",
		key, quality)
	if err := c.checkStatus(resp, notFound); err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read recording file: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	filename := resolveFilename(resp.Header.Get("Content-Disposition"), contentType, key, quality)

	c.logger.Debug("downloaded recording file",
		logging.Operation("ktalk.download_recording"),
		logging.Recording(key),
		logging.Quality(quality),
		slog.Int("bytes", len(data)),
	)

	return &Download{Data: data, Filename: filename, ContentType: contentType}, nil
}

// getJSON performs an authorized GET against a JSON endpoint and returns
// the raw body after the uniform status check.
func (c *Client) getJSON(ctx context.Context, endpoint, notFoundContext string) ([]byte, error) {
	resp, err := c.do(ctx, c.apiClient, endpoint, "application/json")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := c.checkStatus(resp, notFoundContext); err != nil {
		return nil, err
	}
	return io.ReadAll(resp.Body)
}

// do builds and sends an authorized request. The proxy occasionally
// returns compressed bodies with mismatched headers, so identity encoding
// is requested explicitly.
func (c *Client) do(ctx context.Context, httpClient *http.Client, endpoint, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Encoding", "identity")
	req.Header.Set("User-Agent", c.userAgent)

	if err := c.creds.Authorize(ctx, req); err != nil {
		return nil, err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to KTalk API failed: %w", err)
	}
	return resp, nil
}

// checkStatus maps upstream statuses uniformly: 401 and 403 carry
// re-authentication and permission guidance, 404 carries the
// operation-specific context, anything else non-2xx is a hard failure
// with a body snippet. The response body is consumed on error.
func (c *Client) checkStatus(resp *http.Response, notFoundContext string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	c.logger.Warn("KTalk API request failed",
		logging.Service("ktalk"),
		slog.String("url", resp.Request.URL.Path),
		slog.Int("status", resp.StatusCode),
	)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    "Error 401: Unauthorized. The JWT token is missing or expired. Call the 'login' tool to re-authenticate.",
		}
	case http.StatusForbidden:
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    "Error 403: Forbidden. The JWT token does not have sufficient permissions.",
		}
	case http.StatusNotFound:
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    "Error 404: " + notFoundContext,
		}
	default:
		return fmt.Errorf("KTalk API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
}
