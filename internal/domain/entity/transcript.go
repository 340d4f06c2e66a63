package entity

import (
	"encoding/json"
	"strings"
)

type Segment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcript is a parsed view of the transcription engine's output. Raw holds
// the engine's bytes exactly; those are what gets persisted.
type Transcript struct {
	Text     string    `json:"text"`
	Language string    `json:"language,omitempty"`
	Segments []Segment `json:"segments,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// ParseTranscript decodes engine output, keeping data as Raw.
func ParseTranscript(data []byte) (*Transcript, error) {
	var t Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	t.Raw = append(json.RawMessage(nil), data...)
	return &t, nil
}

// Bytes returns the document to persist: Raw when present, otherwise the
// parsed fields encoded as JSON.
func (t *Transcript) Bytes() ([]byte, error) {
	if len(t.Raw) > 0 {
		return t.Raw, nil
	}
	return json.Marshal(t)
}

func (t *Transcript) IsEmpty() bool {
	return t == nil || (strings.TrimSpace(t.Text) == "" && len(t.Segments) == 0)
}

// PlainText returns the text used as summarization input, falling back to the
// joined segments when the engine left Text blank.
func (t *Transcript) PlainText() string {
	if t == nil {
		return ""
	}
	if s := strings.TrimSpace(t.Text); s != "" {
		return s
	}
	parts := make([]string, 0, len(t.Segments))
	for _, seg := range t.Segments {
		if s := strings.TrimSpace(seg.Text); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}
