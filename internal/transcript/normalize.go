package transcript

import (
	"fmt"
	"sort"
	"strings"
)

// UnknownSpeaker is used when a phrase or track carries no speaker identity.
const UnknownSpeaker = "Unknown"

// Line is a single transcript utterance.
type Line struct {
	StartMillis int64
	Speaker     string
	Text        string
}

// Format renders the line as "[MM:SS] Speaker: text".
func (l Line) Format() string {
	return fmt.Sprintf("[%s] %s: %s", FormatTimestamp(l.StartMillis), l.Speaker, l.Text)
}

// detector tries to interpret a decoded JSON payload as one transcript
// shape. It reports ok when the shape matched and produced output.
type detector func(v any) ([]string, bool)

// detectors is the match order. The first matching shape wins; later
// detectors never see a payload an earlier one claimed.
var detectors = []detector{
	fromPhraseList,
	fromTranscription,
	fromPlainText,
	fromPhraseField,
}

// Normalize converts a decoded transcript payload into formatted lines.
// It returns nil when the payload is nil or no shape matches.
func Normalize(v any) []string {
	if v == nil {
		return nil
	}
	for _, detect := range detectors {
		if lines, ok := detect(v); ok {
			return lines
		}
	}
	return nil
}

// fromPhraseList handles a top-level array of phrase objects.
func fromPhraseList(v any) ([]string, bool) {
	items, ok := v.([]any)
	if !ok {
		return nil, false
	}
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, phraseLine(item).Format())
	}
	return lines, true
}

// fromTranscription handles an object with a transcription section holding
// per-speaker tracks. Newer payloads nest it under transcriptionV2, older
// ones under transcription, and some inline it at the top level.
//
// A non-terminal processing status short-circuits with a single
// explanatory line so callers do not treat an in-flight transcript as
// empty.
func fromTranscription(v any) ([]string, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	section := transcriptionSection(obj)

	if status := getString(section, "status"); status != "" && status != "success" && status != "complete" {
		return []string{fmt.Sprintf("Transcript unavailable (status: %s).", status)}, true
	}

	var lines []string
	for _, tv := range getSlice(section, "tracks") {
		track, ok := tv.(map[string]any)
		if !ok {
			continue
		}
		speaker := trackSpeaker(track)
		if speaker == "" {
			speaker = UnknownSpeaker
		}
		for _, cv := range getSlice(track, "chunks") {
			chunk, ok := cv.(map[string]any)
			if !ok {
				continue
			}
			lines = append(lines, Line{
				StartMillis: getInt64(chunk, "startTimeOffsetInMillis"),
				Speaker:     speaker,
				Text:        getString(chunk, "text"),
			}.Format())
		}
	}
	if len(lines) == 0 {
		return nil, false
	}
	return lines, true
}

// fromPlainText handles an object carrying the whole transcript in a
// top-level text field.
func fromPlainText(v any) ([]string, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	text, ok := obj["text"].(string)
	if !ok {
		return nil, false
	}
	return []string{text}, true
}

// fromPhraseField handles an object with a top-level phrases array.
func fromPhraseField(v any) ([]string, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	phrases := getSlice(obj, "phrases")
	if len(phrases) == 0 {
		return nil, false
	}
	lines := make([]string, 0, len(phrases))
	for _, item := range phrases {
		lines = append(lines, phraseLine(item).Format())
	}
	return lines, true
}

// PendingStatus reports the processing status of a payload whose
// transcription has not finished. ok is false for terminal statuses and
// payloads without a status field.
func PendingStatus(v any) (status string, ok bool) {
	obj, isObj := v.(map[string]any)
	if !isObj {
		return "", false
	}
	status = getString(transcriptionSection(obj), "status")
	if status == "" || status == "success" || status == "complete" {
		return "", false
	}
	return status, true
}

// Speakers extracts the de-duplicated, sorted speaker names from the
// transcription tracks of a payload. Non-object payloads yield nil.
func Speakers(v any) []string {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	section := transcriptionSection(obj)

	seen := make(map[string]struct{})
	for _, tv := range getSlice(section, "tracks") {
		track, ok := tv.(map[string]any)
		if !ok {
			continue
		}
		if name := trackSpeaker(track); name != "" {
			seen[name] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// transcriptionSection resolves the transcription object inside a payload,
// preferring transcriptionV2 over transcription over the payload itself.
func transcriptionSection(obj map[string]any) map[string]any {
	if sec, ok := obj["transcriptionV2"].(map[string]any); ok {
		return sec
	}
	if sec, ok := obj["transcription"].(map[string]any); ok {
		return sec
	}
	return obj
}

// trackSpeaker resolves a track's speaker name: the anonymous display name
// wins, then the trimmed "firstname surname" pair. Empty when neither is set.
func trackSpeaker(track map[string]any) string {
	info, ok := track["speaker"].(map[string]any)
	if !ok {
		return ""
	}
	if name := getString(info, "anonymousName"); name != "" {
		return name
	}
	return strings.TrimSpace(getString(info, "firstname") + " " + getString(info, "surname"))
}

// phraseLine extracts a Line from a phrase object. Unrecognized entries
// degrade to an empty line attributed to the unknown speaker.
func phraseLine(v any) Line {
	item, ok := v.(map[string]any)
	if !ok {
		return Line{Speaker: UnknownSpeaker}
	}
	speaker := getString(item, "speakerName")
	if speaker == "" {
		speaker = getString(item, "speaker")
	}
	if speaker == "" {
		speaker = UnknownSpeaker
	}
	// startMs is only consulted when the primary key is absent; an
	// explicit 0 offset is a real timestamp.
	start := getInt64(item, "startTimeOffsetInMillis")
	if _, present := item["startTimeOffsetInMillis"]; !present {
		start = getInt64(item, "startMs")
	}
	return Line{
		StartMillis: start,
		Speaker:     speaker,
		Text:        getString(item, "text"),
	}
}

func getString(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func getSlice(m map[string]any, key string) []any {
	s, _ := m[key].([]any)
	return s
}

func getInt64(m map[string]any, key string) int64 {
	switch n := m[key].(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	}
	return 0
}
