package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"presenter-clips-go/internal/types"
)

var (
	ErrTranscriptionFailed = errors.New("transcription failed")
	ErrTimeout             = errors.New("transcription did not complete in time")
)

// Request names the recording and where the provider can fetch its audio.
type Request struct {
	Name     string
	AudioURL string
}

// Transcript is the diarized word stream of one recording.
type Transcript struct {
	ID     string       `json:"id"`
	Status string       `json:"status"`
	Error  string       `json:"error,omitempty"`
	Words  []types.Word `json:"words"`
}

// Provider returns word-level speaker-labeled timings for a recording.
type Provider interface {
	Transcribe(ctx context.Context, req Request) (*Transcript, error)
}

// FileProvider serves transcripts saved as <Dir>/<name>.json, in the same
// shape the HTTP provider returns. Used for offline runs.
type FileProvider struct {
	Dir string
}

func (p FileProvider) Transcribe(ctx context.Context, req Request) (*Transcript, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(p.Dir, req.Name+".json")
	return ReadTranscriptFile(path)
}

// ReadTranscriptFile decodes a transcript JSON file.
func ReadTranscriptFile(path string) (*Transcript, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	tr, err := DecodeTranscript(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tr, nil
}

// DecodeTranscript accepts a bare array of words as well as the full
// transcript object.
func DecodeTranscript(b []byte) (*Transcript, error) {
	b = bytes.TrimSpace(b)
	var tr Transcript
	if len(b) > 0 && b[0] == '[' {
		if err := json.Unmarshal(b, &tr.Words); err != nil {
			return nil, fmt.Errorf("decode words: %w", err)
		}
		tr.Status = statusCompleted
		return &tr, nil
	}
	if err := json.Unmarshal(b, &tr); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}
	if tr.Status == statusError {
		return nil, fmt.Errorf("%w: %s", ErrTranscriptionFailed, tr.Error)
	}
	return &tr, nil
}
