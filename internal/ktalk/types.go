package ktalk

import (
	"fmt"
	"strings"
)

// Recording is the recording document returned by the API, both in
// listings and from the single-recording endpoint. Listings carry a
// subset of the fields.
type Recording struct {
	Key string `json:"key"`
	// RecordingKey is the identifier field used by older payloads.
	RecordingKey      string         `json:"recordingKey"`
	Title             string         `json:"title"`
	Description       string         `json:"description"`
	CreatedDate       string         `json:"createdDate"`
	Duration          int64          `json:"duration"`
	Status            string         `json:"status"`
	ParticipantsCount int            `json:"participantsCount"`
	CreatedBy         *Person        `json:"createdBy"`
	Participants      []Participant  `json:"participants"`
	Qualities         []Quality      `json:"qualities"`
	HasAudioRecord    bool           `json:"hasAudioRecord"`
	Transcription     *Transcription `json:"transcription"`
}

// Identifier returns the recording key, falling back to the legacy field
// and then to a placeholder.
func (r *Recording) Identifier() string {
	if r.Key != "" {
		return r.Key
	}
	if r.RecordingKey != "" {
		return r.RecordingKey
	}
	return "?"
}

// DisplayTitle returns the title or "Untitled".
func (r *Recording) DisplayTitle() string {
	if r.Title != "" {
		return r.Title
	}
	return "Untitled"
}

// DisplayStatus returns the processing status or "unknown".
func (r *Recording) DisplayStatus() string {
	if r.Status != "" {
		return r.Status
	}
	return "unknown"
}

// TranscriptStatus returns the transcription status or "none".
func (r *Recording) TranscriptStatus() string {
	if r.Transcription != nil && r.Transcription.Status != "" {
		return r.Transcription.Status
	}
	return "none"
}

// Person is a named identity attached to a recording.
type Person struct {
	Firstname string `json:"firstname"`
	Surname   string `json:"surname"`
	Email     string `json:"email"`
}

// FullName returns the trimmed "firstname surname" pair.
func (p *Person) FullName() string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(p.Firstname + " " + p.Surname)
}

// Participant is a meeting participant. Anonymous guests carry only a
// display name; signed-in users carry a Person.
type Participant struct {
	AnonymousName string  `json:"anonymousName"`
	UserInfo      *Person `json:"userInfo"`
}

// DisplayName resolves the participant name: the anonymous display name
// wins, then the user's full name, then "Unknown".
func (p Participant) DisplayName() string {
	if p.AnonymousName != "" {
		return p.AnonymousName
	}
	if name := p.UserInfo.FullName(); name != "" {
		return name
	}
	return "Unknown"
}

// Quality is a downloadable rendition of a recording.
type Quality struct {
	Name   string      `json:"name"`
	Status string      `json:"status"`
	Size   *Dimensions `json:"size"`
}

// DisplayStatus returns the rendition status or "unknown".
func (q Quality) DisplayStatus() string {
	if q.Status != "" {
		return q.Status
	}
	return "unknown"
}

// DisplayName returns the rendition name or a placeholder.
func (q Quality) DisplayName() string {
	if q.Name != "" {
		return q.Name
	}
	return "?"
}

// Dimensions is the pixel size of a rendition. Width and Height are
// pointers so a missing value renders as "?" rather than 0.
type Dimensions struct {
	Width  *int `json:"width"`
	Height *int `json:"height"`
}

// Resolution renders the dimensions as "WxH" with "?" placeholders.
func (d *Dimensions) Resolution() string {
	return fmt.Sprintf("%sx%s", dimension(d.widthPtr()), dimension(d.heightPtr()))
}

func (d *Dimensions) widthPtr() *int {
	if d == nil {
		return nil
	}
	return d.Width
}

func (d *Dimensions) heightPtr() *int {
	if d == nil {
		return nil
	}
	return d.Height
}

func dimension(v *int) string {
	if v == nil {
		return "?"
	}
	return fmt.Sprintf("%d", *v)
}

// Transcription is the transcription state embedded in recording metadata.
type Transcription struct {
	Status string `json:"status"`
}

// ListFilter narrows a recording listing. Zero values are omitted from the
// query.
type ListFilter struct {
	// RoomName filters by room name or ID.
	RoomName string
	// FromDate and ToDate bound the date range, YYYY-MM-DD.
	FromDate string
	ToDate   string
}

// Transcript is a transcript response. JSON responses are decoded
// generically for the transcript normalizer; anything else is kept as
// plain text.
type Transcript struct {
	JSON any
	Text string
}

// IsJSON reports whether the response carried a JSON payload.
func (t *Transcript) IsJSON() bool {
	return t.JSON != nil
}

// Download is a fetched recording file.
type Download struct {
	Data        []byte
	Filename    string
	ContentType string
}
