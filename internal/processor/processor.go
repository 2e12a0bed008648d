package processor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"presenter-clips-go/internal/actionable"
	"presenter-clips-go/internal/aggregator"
	"presenter-clips-go/internal/dataset"
	"presenter-clips-go/internal/extractor"
	"presenter-clips-go/internal/segmenter"
	"presenter-clips-go/internal/transcription"
	"presenter-clips-go/internal/types"
)

var (
	// ErrNoAudioURL: neither the recording nor audio.base_url locates the audio.
	ErrNoAudioURL = errors.New("no audio url for recording")
	// ErrClipsFailed is returned when at least one clip could not be cut. The
	// manifest is not written so the recording is picked up again.
	ErrClipsFailed = errors.New("clips failed")
)

// Clipper cuts clips out of a local source file.
type Clipper interface {
	Extract(ctx context.Context, source, outDir string, clips []extractor.Clip) ([]extractor.ClipResult, error)
}

// Fetcher makes the source audio available locally.
type Fetcher interface {
	Download(ctx context.Context, src, dir, fileName string) (string, error)
}

type Options struct {
	OutputDir    string
	AudioBaseURL string
	Extension    string
	Policy       segmenter.Policy
}

type Processor struct {
	opts     Options
	provider transcription.Provider
	fetcher  Fetcher
	clipper  Clipper
	log      *logrus.Entry
}

func New(opts Options, provider transcription.Provider, fetcher Fetcher, clipper Clipper, log *logrus.Entry) *Processor {
	if opts.Policy == nil {
		opts.Policy = segmenter.DefaultPolicy()
	}
	return &Processor{
		opts:     opts,
		provider: provider,
		fetcher:  fetcher,
		clipper:  clipper,
		log:      log.WithField("component", "processor"),
	}
}

// Analysis is the outcome of the segment selection for one word stream.
type Analysis struct {
	Turns      []types.Turn          `json:"-"`
	Presenters []types.SpeakerID     `json:"presenters"`
	Segments   []types.Segment       `json:"segments"`
	Insight    aggregator.Insight    `json:"insight"`
	Card       actionable.ActionCard `json:"action_card"`
}

// Analyze validates the words and selects the presenter segments.
func (p *Processor) Analyze(words []types.Word) (Analysis, error) {
	if err := segmenter.ValidateWords(words); err != nil {
		return Analysis{}, err
	}
	turns := segmenter.MergeWords(words)
	presenters := segmenter.Presenters(turns, p.opts.Policy)
	segments := segmenter.SelectSegments(turns, p.opts.Policy)
	ins := aggregator.Aggregate(turns, presenters, segments)
	return Analysis{
		Turns:      turns,
		Presenters: presenters,
		Segments:   segments,
		Insight:    ins,
		Card:       actionable.Generate(ins),
	}, nil
}

// Result is returned by Process and written as the recording's manifest.
type Result struct {
	RunID        string                 `json:"run_id,omitempty"`
	Recording    string                 `json:"recording"`
	AudioURL     string                 `json:"audio_url"`
	TranscriptID string                 `json:"transcript_id,omitempty"`
	OutputDir    string                 `json:"output_dir,omitempty"`
	Analysis     Analysis               `json:"analysis"`
	Clips        []extractor.ClipResult `json:"clips"`
	DurationMs   int64                  `json:"duration_ms"`
	Error        string                 `json:"error,omitempty"`
}

type runIDKey struct{}

// WithRunID tags ctx with the batch run id recorded in each manifest.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// OutputDir is the folder the recording's clips go to.
func (p *Processor) OutputDir(name string) string {
	return filepath.Join(p.opts.OutputDir, name)
}

func (p *Processor) audioURL(rec types.Recording) string {
	if rec.AudioURL != "" {
		return rec.AudioURL
	}
	if p.opts.AudioBaseURL == "" {
		return ""
	}
	return p.opts.AudioBaseURL + rec.Name + "." + p.opts.Extension
}

// Process transcribes one recording, selects the presenter answers and
// cuts them into Speaker_{label}_{index} clips.
func (p *Processor) Process(ctx context.Context, rec types.Recording) (Result, error) {
	start := time.Now()
	res := Result{Recording: rec.Name, AudioURL: p.audioURL(rec)}
	res.RunID, _ = ctx.Value(runIDKey{}).(string)
	log := p.log.WithField("recording", rec.Name)
	fail := func(stage string, err error) (Result, error) {
		res.Error = fmt.Sprintf("%s error: %v", stage, err)
		res.DurationMs = time.Since(start).Milliseconds()
		log.WithField("stage", stage).WithField("error", err.Error()).Warn("recording failed")
		return res, fmt.Errorf("%s %s: %w", rec.Name, stage, err)
	}

	if res.AudioURL == "" {
		return fail("input", ErrNoAudioURL)
	}
	tr, err := p.provider.Transcribe(ctx, transcription.Request{Name: rec.Name, AudioURL: res.AudioURL})
	if err != nil {
		return fail("transcription", err)
	}
	res.TranscriptID = tr.ID

	an, err := p.Analyze(tr.Words)
	if err != nil {
		return fail("segmentation", err)
	}
	res.Analysis = an
	log.WithFields(logrus.Fields{
		"words":      len(tr.Words),
		"turns":      len(an.Turns),
		"presenters": len(an.Presenters),
		"segments":   len(an.Segments),
	}).Info("segments selected")

	outDir := p.OutputDir(rec.Name)
	res.Clips = []extractor.ClipResult{}
	if len(an.Segments) > 0 {
		clips, err := p.cut(ctx, res.AudioURL, rec.Name, outDir, an.Segments)
		if err != nil {
			return fail("extraction", err)
		}
		res.Clips = clips
	}
	res.OutputDir = outDir
	if n := extractor.Failed(res.Clips); n > 0 {
		return fail("extraction", fmt.Errorf("%w: %d of %d", ErrClipsFailed, n, len(res.Clips)))
	}
	res.DurationMs = time.Since(start).Milliseconds()
	if _, err := dataset.WriteManifest(outDir, res); err != nil {
		return fail("manifest", err)
	}
	return res, nil
}

func (p *Processor) cut(ctx context.Context, audioURL, name, outDir string, segs []types.Segment) ([]extractor.ClipResult, error) {
	tmp, err := os.MkdirTemp("", "presenter-clips-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmp)

	src, err := p.fetcher.Download(ctx, audioURL, tmp, name+"."+p.opts.Extension)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	return p.clipper.Extract(ctx, src, outDir, extractor.ClipsFromSegments(segs))
}
