package recording_tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/ktalk-mcp/internal/auth"
	"github.com/teemow/ktalk-mcp/internal/server"
)

func newTestContext(t *testing.T, handler http.Handler) *server.ServerContext {
	t.Helper()

	upstream := httptest.NewServer(handler)
	t.Cleanup(upstream.Close)

	sc, err := server.NewServerContext(context.Background(), server.Config{
		ProxyURL:    upstream.URL,
		AuthMode:    auth.ModeAPIKey,
		APIKey:      "test-key",
		TokenStore:  "file",
		DownloadDir: t.TempDir(),
		Version:     "test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()

	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text
}

func TestHandleListRecordings_Empty(t *testing.T) {
	sc := newTestContext(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))

	result, err := handleListRecordings(context.Background(), callRequest(nil), sc)
	require.NoError(t, err)
	assert.Equal(t, "No recordings found.", resultText(t, result))
}

func TestHandleListRecordings_Formatting(t *testing.T) {
	sc := newTestContext(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"key": "abc", "title": "Standup", "createdDate": "2026-01-05", "duration": 125, "participantsCount": 4},
			{"key": "def", "duration": 0, "participantsCount": 0}
		]`))
	}))

	result, err := handleListRecordings(context.Background(), callRequest(nil), sc)
	require.NoError(t, err)

	text := resultText(t, result)
	assert.Contains(t, text, "Found 2 recording(s):")
	assert.Contains(t, text, "  [abc] Standup\n    Created: 2026-01-05 | Duration: 2m 5s | Participants: 4")
	assert.Contains(t, text, "  [def] Untitled\n    Created: unknown | Duration: n/a | Participants: 0")
}

func TestHandleListRecordings_Unauthorized(t *testing.T) {
	sc := newTestContext(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	result, err := handleListRecordings(context.Background(), callRequest(nil), sc)
	require.NoError(t, err)
	assert.Equal(t,
		"Error 401: Unauthorized. The JWT token is missing or expired. Call the 'login' tool to re-authenticate.",
		resultText(t, result))
	assert.False(t, result.IsError)
}

func TestHandleGetRecordingInfo_Report(t *testing.T) {
	sc := newTestContext(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"key": "abc",
			"title": "Planning",
			"description": "Quarterly planning session",
			"createdDate": "2026-01-05",
			"duration": 3725,
			"status": "ready",
			"participantsCount": 2,
			"createdBy": {"firstname": "Ann", "surname": "Lee", "email": "ann@example.com"},
			"participants": [
				{"anonymousName": "Guest 1"},
				{"userInfo": {"firstname": "Bob", "surname": "Kim"}}
			],
			"hasAudioRecord": true,
			"transcription": {"status": "success"},
			"qualities": [
				{"name": "720p", "status": "done", "size": {"width": 1280, "height": 720}},
				{"name": "240p", "status": "done"}
			]
		}`))
	}))

	result, err := handleGetRecordingInfo(context.Background(),
		callRequest(map[string]any{"recording_key": "abc"}), sc)
	require.NoError(t, err)

	text := resultText(t, result)
	assert.Contains(t, text, "Recording: Planning")
	assert.Contains(t, text, "Key: abc")
	assert.Contains(t, text, "Description: Quarterly planning session")
	assert.Contains(t, text, "Author: Ann Lee (ann@example.com)")
	assert.Contains(t, text, "Duration: 1h 2m 5s")
	assert.Contains(t, text, "Status: ready")
	assert.Contains(t, text, "Participants: 2")
	assert.Contains(t, text, "Participant names: Guest 1, Bob Kim")
	assert.Contains(t, text, "Audio record: yes")
	assert.Contains(t, text, "Transcript: success")
	assert.Contains(t, text, "Available qualities for download:")
	assert.Contains(t, text, "  - 720p (1280x720, status: done)")
	assert.Contains(t, text, "  - 240p (?x?, status: done)")
}

func TestHandleGetRecordingInfo_NotFound(t *testing.T) {
	sc := newTestContext(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	result, err := handleGetRecordingInfo(context.Background(),
		callRequest(map[string]any{"recording_key": "missing"}), sc)
	require.NoError(t, err)
	assert.Equal(t, "Error 404: Recording 'missing' not found.", resultText(t, result))
}

func TestHandleGetRecordingInfo_MissingKey(t *testing.T) {
	sc := newTestContext(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	result, err := handleGetRecordingInfo(context.Background(), callRequest(nil), sc)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleGetTranscript_SavesFile(t *testing.T) {
	sc := newTestContext(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"transcriptionV2": {
				"status": "success",
				"tracks": [
					{
						"speaker": {"firstname": "Ann", "surname": "Lee"},
						"chunks": [
							{"startTimeOffsetInMillis": 0, "text": "Hello everyone"},
							{"startTimeOffsetInMillis": 61000, "text": "Let's begin"}
						]
					}
				]
			}
		}`))
	}))

	result, err := handleGetTranscript(context.Background(),
		callRequest(map[string]any{"recording_key": "abc"}), sc)
	require.NoError(t, err)

	text := resultText(t, result)
	assert.Contains(t, text, "Transcript saved:")
	assert.Contains(t, text, "Recording key: abc")
	assert.Contains(t, text, "Lines: 2")
	assert.Contains(t, text, "Speakers: Ann Lee")

	path := filepath.Join(sc.DownloadDir(), "abc_transcript.txt")
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[00:00] Ann Lee: Hello everyone\n[01:01] Ann Lee: Let's begin\n", string(content))
}

func TestHandleGetTranscript_Pending(t *testing.T) {
	sc := newTestContext(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"transcription": {"status": "processing"}}`))
	}))

	result, err := handleGetTranscript(context.Background(),
		callRequest(map[string]any{"recording_key": "abc"}), sc)
	require.NoError(t, err)
	assert.Equal(t, "Transcript unavailable (status: processing).", resultText(t, result))

	// Nothing should be written for a pending transcript
	_, err = os.Stat(filepath.Join(sc.DownloadDir(), "abc_transcript.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestHandleGetTranscript_Empty(t *testing.T) {
	sc := newTestContext(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
	}))

	result, err := handleGetTranscript(context.Background(),
		callRequest(map[string]any{"recording_key": "abc"}), sc)
	require.NoError(t, err)
	assert.Equal(t, "Transcript for recording 'abc' is empty.", resultText(t, result))
}

func TestHandleGetTranscript_PlainTextSavedVerbatim(t *testing.T) {
	body := "intro\r\n\nsecond paragraph\n"
	sc := newTestContext(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(body))
	}))

	result, err := handleGetTranscript(context.Background(),
		callRequest(map[string]any{"recording_key": "abc"}), sc)
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "Lines: 1")

	content, err := os.ReadFile(filepath.Join(sc.DownloadDir(), "abc_transcript.txt"))
	require.NoError(t, err)
	assert.Equal(t, body, string(content))
}

func TestHandleGetTranscript_WhitespaceBodyIsSaved(t *testing.T) {
	sc := newTestContext(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("   \n\n"))
	}))

	result, err := handleGetTranscript(context.Background(),
		callRequest(map[string]any{"recording_key": "abc"}), sc)
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "Transcript saved:")

	content, err := os.ReadFile(filepath.Join(sc.DownloadDir(), "abc_transcript.txt"))
	require.NoError(t, err)
	assert.Equal(t, "   \n\n", string(content))
}

func TestHandleDownloadRecording_SavesFile(t *testing.T) {
	sc := newTestContext(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		w.Header().Set("Content-Disposition", `attachment; filename="meeting.mp4"`)
		_, _ = w.Write([]byte("media-bytes"))
	}))

	result, err := handleDownloadRecording(context.Background(),
		callRequest(map[string]any{"recording_key": "abc"}), sc)
	require.NoError(t, err)

	text := resultText(t, result)
	assert.Contains(t, text, "Recording file saved:")
	assert.Contains(t, text, "Recording key: abc")
	assert.Contains(t, text, "Quality: 240p")

	content, err := os.ReadFile(filepath.Join(sc.DownloadDir(), "meeting.mp4"))
	require.NoError(t, err)
	assert.Equal(t, "media-bytes", string(content))
}

func TestHandleDownloadRecording_NotFound(t *testing.T) {
	sc := newTestContext(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	result, err := handleDownloadRecording(context.Background(),
		callRequest(map[string]any{"recording_key": "abc", "quality_name": "1080p"}), sc)
	require.NoError(t, err)
	assert.Equal(t,
		"Error 404: Recording file 'abc' with quality '1080p' not found. Use get_recording_info to see available qualities.",
		resultText(t, result))
}

func TestHandleGetRecordingInfo_BaseURLOverride(t *testing.T) {
	// The configured proxy knows nothing about the recording
	sc := newTestContext(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"key": "abc", "title": "Elsewhere", "duration": 60}`))
	}))
	t.Cleanup(other.Close)

	result, err := handleGetRecordingInfo(context.Background(),
		callRequest(map[string]any{"recording_key": "abc", "base_url": other.URL}), sc)
	require.NoError(t, err)

	text := resultText(t, result)
	assert.Contains(t, text, "Recording: Elsewhere")
	assert.Contains(t, text, "Key: abc")
}

func TestHandleLogin_Success(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	keycloak := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"access_token": "jwt-token",
			"refresh_token": "refresh-token",
			"token_type": "Bearer",
			"expires_in": 300
		}`))
	}))
	t.Cleanup(keycloak.Close)

	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/config" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"keycloak_url": "` + keycloak.URL + `", "keycloak_realm": "master"}`))
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(proxy.Close)

	sc, err := server.NewServerContext(context.Background(), server.Config{
		ProxyURL:   proxy.URL,
		AuthMode:   auth.ModeKeycloak,
		TokenStore: "file",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })

	result, err := handleLogin(context.Background(),
		callRequest(map[string]any{"username": "i.sosin", "password": "hunter2"}), sc)
	require.NoError(t, err)

	text := resultText(t, result)
	assert.Contains(t, text, "Authenticated as i.sosin.")
	assert.Contains(t, text, "Token saved to")
	assert.Contains(t, text, "min (auto-refreshes).")
}

func TestHandleLogin_MissingArgs(t *testing.T) {
	sc := newTestContext(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	result, err := handleLogin(context.Background(), callRequest(map[string]any{"username": "ann"}), sc)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}
