package extractor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"presenter-clips-go/internal/types"
)

// Clip is the part of a segment the extractor needs.
type Clip struct {
	Start int64              `json:"start"`
	End   int64              `json:"end"`
	Label types.SpeakerLabel `json:"label"`
	Index int                `json:"index"`
}

func ClipsFromSegments(segs []types.Segment) []Clip {
	clips := make([]Clip, 0, len(segs))
	for _, s := range segs {
		clips = append(clips, Clip{Start: s.Start, End: s.End, Label: s.Label, Index: s.Index})
	}
	return clips
}

// ClipName is the deterministic output file name, e.g. Speaker_A_1.mp3.
func ClipName(label types.SpeakerLabel, index int, ext string) string {
	return fmt.Sprintf("Speaker_%s_%d.%s", label, index, strings.TrimPrefix(ext, "."))
}

type ClipResult struct {
	Clip
	Name  string `json:"name"`
	Path  string `json:"path,omitempty"`
	Error string `json:"error,omitempty"`
	Err   error  `json:"-"`
}

// Runner executes an external command.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// Extractor cuts clips out of a local audio file with ffmpeg.
type Extractor struct {
	Binary    string
	Extension string
	Runner    Runner
	Log       *logrus.Entry
}

func New(binary, ext string, log *logrus.Entry) *Extractor {
	return &Extractor{Binary: binary, Extension: ext, Runner: ExecRunner{}, Log: log.WithField("component", "extractor")}
}

// Extract writes each clip's [start, end) range to outDir. A failed clip
// does not stop the others; check each result's Err.
func (e *Extractor) Extract(ctx context.Context, source, outDir string, clips []Clip) ([]ClipResult, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	results := make([]ClipResult, 0, len(clips))
	for _, c := range clips {
		name := ClipName(c.Label, c.Index, e.Extension)
		res := ClipResult{Clip: c, Name: name}
		if err := ctx.Err(); err != nil {
			res.Err, res.Error = err, err.Error()
			results = append(results, res)
			continue
		}
		out := filepath.Join(outDir, name)
		if err := e.Runner.Run(ctx, e.Binary, e.args(source, out, c)...); err != nil {
			e.Log.WithField("clip", name).WithField("error", err.Error()).Warn("clip extraction failed")
			res.Err, res.Error = err, err.Error()
		} else {
			res.Path = out
		}
		results = append(results, res)
	}
	return results, nil
}

func (e *Extractor) args(source, out string, c Clip) []string {
	return []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", source,
		"-ss", msToSeconds(c.Start),
		"-to", msToSeconds(c.End),
		"-vn",
		out,
	}
}

func msToSeconds(ms int64) string {
	return fmt.Sprintf("%d.%03d", ms/1000, ms%1000)
}

// Failed counts results with an error.
func Failed(results []ClipResult) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
