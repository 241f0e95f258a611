// Package transcript normalizes the transcript payloads returned by the
// KTalk API into formatted text lines.
//
// The API returns transcripts in several shapes depending on the recording
// pipeline version: a flat list of phrases, a transcription object with
// per-speaker tracks, a plain text field, or a top-level phrases field.
// Normalize tries these shapes in a fixed order and renders the first one
// that matches.
package transcript
