package recording_tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/ktalk-mcp/internal/auth"
	"github.com/teemow/ktalk-mcp/internal/instrumentation"
	"github.com/teemow/ktalk-mcp/internal/ktalk"
	"github.com/teemow/ktalk-mcp/internal/server"
	"github.com/teemow/ktalk-mcp/internal/tools/common"
	"github.com/teemow/ktalk-mcp/internal/transcript"
)

// DefaultQuality is used by download_recording when the client does not
// ask for a specific rendition. 240p keeps the transfer small; callers
// wanting video detail pass quality_name explicitly.
const DefaultQuality = "240p"

// RegisterRecordingTools registers all recording-related tools with the MCP server
func RegisterRecordingTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	// Login (only when the credential strategy supports it)
	if _, ok := sc.Credentials().(auth.PasswordAuthenticator); ok {
		loginTool := mcp.NewTool("login",
			mcp.WithDescription("Authenticate against Keycloak with username and password to obtain a JWT token for the KTalk API"),
			mcp.WithString("username",
				mcp.Required(),
				mcp.Description("Keycloak username"),
			),
			mcp.WithString("password",
				mcp.Required(),
				mcp.Description("Keycloak password"),
			),
		)

		s.AddTool(loginTool, common.InstrumentedToolHandler(
			"login", sc,
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return handleLogin(ctx, request, sc)
			}))
	}

	// List recordings
	listTool := mcp.NewTool("list_recordings",
		mcp.WithDescription("List meeting recordings, optionally filtered by room and date range"),
		mcp.WithString("room_name",
			mcp.Description("Filter by room name or ID"),
		),
		mcp.WithString("from_date",
			mcp.Description("Start of the date range (YYYY-MM-DD)"),
		),
		mcp.WithString("to_date",
			mcp.Description("End of the date range (YYYY-MM-DD)"),
		),
	)

	s.AddTool(listTool, common.InstrumentedToolHandlerWithService(
		"list_recordings", instrumentation.ServiceKTalk, "list_recordings", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListRecordings(ctx, request, sc)
		}))

	// Get recording info
	infoTool := mcp.NewTool("get_recording_info",
		mcp.WithDescription("Get detailed metadata for a recording, including available download qualities and transcript status"),
		mcp.WithString("recording_key",
			mcp.Required(),
			mcp.Description("The recording key as shown by list_recordings"),
		),
		mcp.WithString("base_url",
			mcp.Description("Override the kts-ktalk-api-proxy URL for this call"),
		),
	)

	s.AddTool(infoTool, common.InstrumentedToolHandlerWithService(
		"get_recording_info", instrumentation.ServiceKTalk, "get_recording", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetRecordingInfo(ctx, request, sc)
		}))

	// Get transcript
	transcriptTool := mcp.NewTool("get_transcript",
		mcp.WithDescription("Fetch the transcript of a recording and save it as a text file with timestamps and speakers"),
		mcp.WithString("recording_key",
			mcp.Required(),
			mcp.Description("The recording key as shown by list_recordings"),
		),
		mcp.WithString("output_dir",
			mcp.Description("Directory to save the transcript to (default: the configured download directory)"),
		),
		mcp.WithString("base_url",
			mcp.Description("Override the kts-ktalk-api-proxy URL for this call"),
		),
	)

	s.AddTool(transcriptTool, common.InstrumentedToolHandlerWithService(
		"get_transcript", instrumentation.ServiceKTalk, "fetch_transcript", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetTranscript(ctx, request, sc)
		}))

	// Download recording
	downloadTool := mcp.NewTool("download_recording",
		mcp.WithDescription("Download the media file of a recording in the given quality and save it to disk"),
		mcp.WithString("recording_key",
			mcp.Required(),
			mcp.Description("The recording key as shown by list_recordings"),
		),
		mcp.WithString("quality_name",
			mcp.Description("Rendition to download, e.g. '240p', '720p' (default: '240p'). Use get_recording_info to see available qualities."),
		),
		mcp.WithString("output_dir",
			mcp.Description("Directory to save the file to (default: the configured download directory)"),
		),
		mcp.WithString("base_url",
			mcp.Description("Override the kts-ktalk-api-proxy URL for this call"),
		),
	)

	s.AddTool(downloadTool, common.InstrumentedToolHandlerWithService(
		"download_recording", instrumentation.ServiceKTalk, "download_recording", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleDownloadRecording(ctx, request, sc)
		}))

	return nil
}

func handleLogin(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	username, ok := args["username"].(string)
	if !ok || username == "" {
		return mcp.NewToolResultError("username is required"), nil
	}
	password, ok := args["password"].(string)
	if !ok || password == "" {
		return mcp.NewToolResultError("password is required"), nil
	}

	authenticator, ok := sc.Credentials().(auth.PasswordAuthenticator)
	if !ok {
		return mcp.NewToolResultError("the configured auth mode does not support interactive login"), nil
	}

	result, err := authenticator.Login(ctx, username, password)
	if err != nil {
		recordLogin(ctx, sc, instrumentation.AuthResultFailure)

		var loginErr *auth.LoginError
		if errors.As(err, &loginErr) {
			// Rejected credentials are an answer, not a tool failure.
			return mcp.NewToolResultText(loginErr.Error()), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Login failed: %v", err)), nil
	}

	recordLogin(ctx, sc, instrumentation.AuthResultSuccess)

	return mcp.NewToolResultText(fmt.Sprintf(
		"Authenticated as %s.\nToken saved to %s\nExpires in %d min (auto-refreshes).",
		result.Username, result.StoreDescription, int(result.ExpiresIn.Minutes()))), nil
}

func handleListRecordings(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	client, err := sc.Client()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	filter := ktalk.ListFilter{
		RoomName: stringArg(args, "room_name"),
		FromDate: stringArg(args, "from_date"),
		ToDate:   stringArg(args, "to_date"),
	}

	recordings, err := client.ListRecordings(ctx, filter)
	if err != nil {
		return upstreamResult(err), nil
	}

	if len(recordings) == 0 {
		return mcp.NewToolResultText("No recordings found."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d recording(s):\n", len(recordings))
	for _, rec := range recordings {
		duration := "n/a"
		if rec.Duration > 0 {
			duration = transcript.FormatDuration(rec.Duration)
		}
		created := rec.CreatedDate
		if created == "" {
			created = "unknown"
		}
		fmt.Fprintf(&b, "  [%s] %s\n    Created: %s | Duration: %s | Participants: %d\n",
			rec.Identifier(), rec.DisplayTitle(), created, duration, rec.ParticipantsCount)
	}

	return mcp.NewToolResultText(strings.TrimRight(b.String(), "\n")), nil
}

func handleGetRecordingInfo(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	key, ok := args["recording_key"].(string)
	if !ok || key == "" {
		return mcp.NewToolResultError("recording_key is required"), nil
	}

	client, err := clientFor(sc, args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rec, err := client.GetRecording(ctx, key)
	if err != nil {
		return upstreamResult(err), nil
	}

	return mcp.NewToolResultText(recordingReport(rec)), nil
}

// recordingReport renders the metadata document as a readable report.
func recordingReport(rec *ktalk.Recording) string {
	lines := []string{
		"Recording: " + rec.DisplayTitle(),
		"Key: " + rec.Identifier(),
	}
	if rec.Description != "" {
		lines = append(lines, "Description: "+rec.Description)
	}
	if rec.CreatedDate != "" {
		lines = append(lines, "Created: "+rec.CreatedDate)
	}
	if name := rec.CreatedBy.FullName(); name != "" {
		if rec.CreatedBy.Email != "" {
			lines = append(lines, fmt.Sprintf("Author: %s (%s)", name, rec.CreatedBy.Email))
		} else {
			lines = append(lines, "Author: "+name)
		}
	}
	lines = append(lines,
		"Duration: "+transcript.FormatDuration(rec.Duration),
		"Status: "+rec.DisplayStatus(),
		fmt.Sprintf("Participants: %d", rec.ParticipantsCount),
	)

	if len(rec.Participants) > 0 {
		names := make([]string, 0, len(rec.Participants))
		for _, p := range rec.Participants {
			names = append(names, p.DisplayName())
		}
		lines = append(lines, "Participant names: "+strings.Join(names, ", "))
	}

	audio := "no"
	if rec.HasAudioRecord {
		audio = "yes"
	}
	lines = append(lines,
		"Audio record: "+audio,
		"Transcript: "+rec.TranscriptStatus(),
	)

	if len(rec.Qualities) == 0 {
		lines = append(lines, "Available qualities: no data")
	} else {
		lines = append(lines, "Available qualities for download:")
		for _, q := range rec.Qualities {
			lines = append(lines, fmt.Sprintf("  - %s (%s, status: %s)",
				q.DisplayName(), q.Size.Resolution(), q.DisplayStatus()))
		}
	}

	return strings.Join(lines, "\n")
}

func handleGetTranscript(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	key, ok := args["recording_key"].(string)
	if !ok || key == "" {
		return mcp.NewToolResultError("recording_key is required"), nil
	}
	outputDir := stringArg(args, "output_dir")
	if outputDir == "" {
		outputDir = sc.DownloadDir()
	}

	client, err := clientFor(sc, args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	tr, err := client.FetchTranscript(ctx, key)
	if err != nil {
		return upstreamResult(err), nil
	}

	var (
		content   string
		lineCount int
		speakers  []string
	)
	if tr.IsJSON() {
		if status, pending := transcript.PendingStatus(tr.JSON); pending {
			return mcp.NewToolResultText(fmt.Sprintf("Transcript unavailable (status: %s).", status)), nil
		}
		lines := transcript.Normalize(tr.JSON)
		if len(lines) == 0 {
			return mcp.NewToolResultText(fmt.Sprintf("Transcript for recording '%s' is empty.", key)), nil
		}
		content = strings.Join(lines, "\n") + "\n"
		lineCount = len(lines)
		speakers = transcript.Speakers(tr.JSON)
	} else {
		// Non-JSON responses are the whole transcript, saved verbatim.
		if tr.Text == "" {
			return mcp.NewToolResultText(fmt.Sprintf("Transcript for recording '%s' is empty.", key)), nil
		}
		content = tr.Text
		lineCount = 1
	}

	path := filepath.Join(outputDir, key+"_transcript.txt")
	absPath, err := saveFile(path, []byte(content))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	summary := fmt.Sprintf("Transcript saved:\n  Path: %s\n  Recording key: %s\n  Lines: %d",
		absPath, key, lineCount)
	if len(speakers) > 0 {
		summary += "\n  Speakers: " + strings.Join(speakers, ", ")
	}

	return mcp.NewToolResultText(summary), nil
}

func handleDownloadRecording(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	key, ok := args["recording_key"].(string)
	if !ok || key == "" {
		return mcp.NewToolResultError("recording_key is required"), nil
	}
	quality := stringArg(args, "quality_name")
	if quality == "" {
		quality = DefaultQuality
	}
	outputDir := stringArg(args, "output_dir")
	if outputDir == "" {
		outputDir = sc.DownloadDir()
	}

	client, err := clientFor(sc, args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	download, err := client.DownloadRecording(ctx, key, quality)
	if err != nil {
		return upstreamResult(err), nil
	}

	path := filepath.Join(outputDir, download.Filename)
	absPath, err := saveFile(path, download.Data)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if metrics := sc.Metrics(); metrics != nil {
		metrics.RecordDownloadBytes(ctx, quality, int64(len(download.Data)))
	}

	sizeMB := float64(len(download.Data)) / (1024 * 1024)
	return mcp.NewToolResultText(fmt.Sprintf(
		"Recording file saved:\n  Path: %s\n  Size: %.1f MB\n  Recording key: %s\n  Quality: %s",
		absPath, sizeMB, key, quality)), nil
}

// clientFor resolves the API client for a request. A base_url argument
// overrides the configured proxy for this call only; the override client
// shares the server's credential strategy and is not cached.
func clientFor(sc *server.ServerContext, args map[string]interface{}) (*ktalk.Client, error) {
	if baseURL := stringArg(args, "base_url"); baseURL != "" {
		return ktalk.NewClient(baseURL, sc.Credentials(), sc.Config().Version)
	}
	return sc.Client()
}

// upstreamResult maps an API client error to a tool result. Upstream
// 401/403/404 carry user guidance and come back as normal text, matching
// how the other tools answer questions; anything else is a tool failure.
func upstreamResult(err error) *mcp.CallToolResult {
	var apiErr *ktalk.APIError
	if errors.As(err, &apiErr) {
		return mcp.NewToolResultText(apiErr.Message)
	}
	if errors.Is(err, auth.ErrUnauthenticated) {
		return mcp.NewToolResultText(err.Error())
	}
	return mcp.NewToolResultError(err.Error())
}

// saveFile writes data below dir, creating the directory as needed, and
// returns the absolute path of the written file.
func saveFile(path string, data []byte) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path, nil
	}
	return absPath, nil
}

func stringArg(args map[string]interface{}, key string) string {
	value, _ := args[key].(string)
	return value
}

func recordLogin(ctx context.Context, sc *server.ServerContext, result string) {
	if metrics := sc.Metrics(); metrics != nil {
		metrics.RecordLogin(ctx, result)
	}
}
