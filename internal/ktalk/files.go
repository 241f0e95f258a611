package ktalk

import (
	"regexp"
	"strings"
)

// filenamePattern extracts the filename parameter from a
// Content-Disposition header, tolerating the RFC 5987 filename* form and
// optional quoting.
var filenamePattern = regexp.MustCompile(`filename[*]?=["']?([^"';\r\n]+)`)

// extensionByContentType maps media content types to file extensions.
// Octet-stream responses are assumed to be MP4 since that is what the
// recording pipeline produces by default.
var extensionByContentType = map[string]string{
	"video/mp4":                ".mp4",
	"video/webm":               ".webm",
	"audio/mpeg":               ".mp3",
	"audio/wav":                ".wav",
	"audio/ogg":                ".ogg",
	"application/octet-stream": ".mp4",
}

// defaultExtension is used when the content type is unknown.
const defaultExtension = ".mp4"

// resolveFilename resolves the name for a downloaded recording file: the
// Content-Disposition filename when present, otherwise a synthesized
// "{key}_{quality}{ext}" with the extension derived from the content type.
func resolveFilename(contentDisposition, contentType, key, quality string) string {
	if contentDisposition != "" {
		if m := filenamePattern.FindStringSubmatch(contentDisposition); m != nil {
			return strings.TrimSpace(m[1])
		}
	}

	mediaType := strings.TrimSpace(strings.Split(contentType, ";")[0])
	ext, ok := extensionByContentType[mediaType]
	if !ok {
		ext = defaultExtension
	}
	return key + "_" + quality + ext
}
