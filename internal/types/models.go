package types

import (
	"encoding/json"
	"fmt"
)

// SpeakerID is the provider's speaker token. It is opaque: comparable for
// equality, but carries no ordering.
type SpeakerID struct {
	token string
}

func NewSpeakerID(token string) SpeakerID {
	return SpeakerID{token: token}
}

func (s SpeakerID) String() string { return s.token }

func (s SpeakerID) MarshalText() ([]byte, error) {
	return []byte(s.token), nil
}

func (s *SpeakerID) UnmarshalText(b []byte) error {
	s.token = string(b)
	return nil
}

// UnmarshalJSON accepts both string and null speakers; providers send null
// for words they could not attribute.
func (s *SpeakerID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		s.token = ""
		return nil
	}
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		s.token = v
	case float64:
		s.token = fmt.Sprintf("%g", v)
	default:
		return fmt.Errorf("unsupported speaker token: %s", string(b))
	}
	return nil
}

// Word is one transcribed unit. Times are milliseconds.
type Word struct {
	Speaker    SpeakerID `json:"speaker"`
	Start      int64     `json:"start"`
	End        int64     `json:"end"`
	Text       string    `json:"text,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
}

// Turn is a maximal run of adjacent words from one speaker.
type Turn struct {
	Speaker SpeakerID `json:"speaker"`
	Start   int64     `json:"start"`
	End     int64     `json:"end"`
}

func (t Turn) Duration() int64 { return t.End - t.Start }

// SpeakerLabel is the display label given to a speaker among selected segments.
type SpeakerLabel string

// LabelFor returns the n-th (0-based) display label: A..Z, then AA, AB, ...
func LabelFor(n int) SpeakerLabel {
	var b []byte
	for n >= 0 {
		b = append([]byte{byte('A' + n%26)}, b...)
		n = n/26 - 1
	}
	return SpeakerLabel(b)
}

// Segment is a turn selected for extraction.
type Segment struct {
	Turn
	Label SpeakerLabel `json:"label"`
	Index int          `json:"index"`
}

// Name is the clip base name, e.g. Speaker_A_1.
func (s Segment) Name() string {
	return fmt.Sprintf("Speaker_%s_%d", s.Label, s.Index)
}

// Recording is one entry of a batch: the source audio name without extension.
type Recording struct {
	Name     string `json:"name"`
	AudioURL string `json:"audio_url,omitempty"`
}
