package ktalk

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/ktalk-mcp/internal/auth"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	creds, err := auth.NewStaticKeyCredentials("test-key")
	require.NoError(t, err)

	client, err := NewClient(server.URL, creds, "test")
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresProxyURL(t *testing.T) {
	creds, err := auth.NewStaticKeyCredentials("test-key")
	require.NoError(t, err)

	_, err = NewClient("", creds, "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KTALK_PROXY_URL")
}

func TestListRecordingsBareArray(t *testing.T) {
	var gotRequest *http.Request
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRequest = r.Clone(context.Background())
		require.Equal(t, "/api/talk/api/Domain/recordings/v2", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"key": "abc", "title": "Standup", "duration": 125}]`))
	}))

	recordings, err := client.ListRecordings(context.Background(), ListFilter{
		RoomName: "daily",
		FromDate: "2026-01-01",
		ToDate:   "2026-01-31",
	})
	require.NoError(t, err)
	require.Len(t, recordings, 1)
	assert.Equal(t, "abc", recordings[0].Key)
	assert.Equal(t, "Standup", recordings[0].Title)
	assert.Equal(t, int64(125), recordings[0].Duration)

	require.NotNil(t, gotRequest)
	query := gotRequest.URL.Query()
	assert.Equal(t, "daily", query.Get("roomName"))
	assert.Equal(t, "2026-01-01", query.Get("fromDate"))
	assert.Equal(t, "2026-01-31", query.Get("toDate"))
	assert.Equal(t, "test-key", gotRequest.Header.Get("X-Api-Key"))
	assert.Equal(t, "identity", gotRequest.Header.Get("Accept-Encoding"))
	assert.Equal(t, "ktalk-mcp/test", gotRequest.Header.Get("User-Agent"))
}

func TestListRecordingsEnvelopes(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected []string
	}{
		{
			name:     "recordings field",
			body:     `{"recordings": [{"key": "r1"}, {"key": "r2"}]}`,
			expected: []string{"r1", "r2"},
		},
		{
			name:     "items field",
			body:     `{"items": [{"key": "i1"}]}`,
			expected: []string{"i1"},
		},
		{
			name:     "recordings field wins over items",
			body:     `{"recordings": [{"key": "r1"}], "items": [{"key": "i1"}]}`,
			expected: []string{"r1"},
		},
		{
			name:     "empty object",
			body:     `{}`,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.body))
			}))

			recordings, err := client.ListRecordings(context.Background(), ListFilter{})
			require.NoError(t, err)

			var keys []string
			for _, rec := range recordings {
				keys = append(keys, rec.Key)
			}
			assert.Equal(t, tt.expected, keys)
		})
	}
}

func TestGetRecording(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/talk/api/Recordings/abc", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"key": "abc",
			"title": "Planning",
			"duration": 3600,
			"status": "ready",
			"createdBy": {"firstname": "Ann", "surname": "Lee", "email": "ann@example.com"},
			"qualities": [{"name": "720p", "status": "done", "size": {"width": 1280, "height": 720}}]
		}`))
	}))

	rec, err := client.GetRecording(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "Planning", rec.Title)
	assert.Equal(t, "Ann Lee", rec.CreatedBy.FullName())
	require.Len(t, rec.Qualities, 1)
	assert.Equal(t, "1280x720", rec.Qualities[0].Size.Resolution())
}

func TestGetRecordingNotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))

	_, err := client.GetRecording(context.Background(), "missing")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "Error 404: Recording 'missing' not found.", apiErr.Message)
}

func TestStatusGuidance(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		expected string
	}{
		{
			name:     "unauthorized",
			status:   http.StatusUnauthorized,
			expected: "Error 401: Unauthorized. The JWT token is missing or expired. Call the 'login' tool to re-authenticate.",
		},
		{
			name:     "forbidden",
			status:   http.StatusForbidden,
			expected: "Error 403: Forbidden. The JWT token does not have sufficient permissions.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))

			_, err := client.ListRecordings(context.Background(), ListFilter{})
			require.Error(t, err)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.expected, apiErr.Message)
		})
	}
}

func TestServerErrorIncludesBody(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))

	_, err := client.ListRecordings(context.Background(), ListFilter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
	assert.Contains(t, err.Error(), "upstream exploded")
}

func TestFetchTranscriptJSON(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/talk/api/recordings/abc/transcript", r.URL.Path)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"phrases": ["hello", "world"]}`))
	}))

	transcript, err := client.FetchTranscript(context.Background(), "abc")
	require.NoError(t, err)
	require.True(t, transcript.IsJSON())

	payload, ok := transcript.JSON.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, payload, "phrases")
}

func TestFetchTranscriptPlainText(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("hello world"))
	}))

	transcript, err := client.FetchTranscript(context.Background(), "abc")
	require.NoError(t, err)
	assert.False(t, transcript.IsJSON())
	assert.Equal(t, "hello world", transcript.Text)
}

func TestDownloadRecordingWithDisposition(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/talk/api/Recordings/abc/file/720p", r.URL.Path)
		w.Header().Set("Content-Type", "video/mp4")
		w.Header().Set("Content-Disposition", `attachment; filename="meeting.mp4"`)
		_, _ = w.Write([]byte("media-bytes"))
	}))

	download, err := client.DownloadRecording(context.Background(), "abc", "720p")
	require.NoError(t, err)
	assert.Equal(t, "meeting.mp4", download.Filename)
	assert.Equal(t, "video/mp4", download.ContentType)
	assert.Equal(t, []byte("media-bytes"), download.Data)
}

func TestDownloadRecordingSynthesizedFilename(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write([]byte("wav-bytes"))
	}))

	download, err := client.DownloadRecording(context.Background(), "abc", "240p")
	require.NoError(t, err)
	assert.Equal(t, "abc_240p.wav", download.Filename)
}

func TestDownloadRecordingNotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := client.DownloadRecording(context.Background(), "abc", "1080p")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t,
		"Error 404: Recording file 'abc' with quality '1080p' not found. Use get_recording_info to see available qualities.",
		apiErr.Message)
}
