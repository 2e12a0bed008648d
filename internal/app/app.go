// Package app builds the processing stack from configuration. Both the
// HTTP service and the CLI go through it.
package app

import (
	"github.com/sirupsen/logrus"

	"presenter-clips-go/internal/config"
	"presenter-clips-go/internal/extractor"
	"presenter-clips-go/internal/pipeline"
	"presenter-clips-go/internal/processor"
	"presenter-clips-go/internal/segmenter"
	"presenter-clips-go/internal/transcription"
)

// NewProvider returns the offline file provider when transcription.mock_dir
// is set, the HTTP client otherwise.
func NewProvider(cfg *config.Config, log *logrus.Entry) transcription.Provider {
	t := cfg.Transcription
	if t.MockDir != "" {
		log.WithField("mock_dir", t.MockDir).Info("using transcript files")
		return transcription.FileProvider{Dir: t.MockDir}
	}
	return transcription.NewClient(transcription.ClientConfig{
		BaseURL:        t.BaseURL,
		APIToken:       t.APIToken,
		PollInterval:   t.PollInterval,
		MaxPolls:       t.MaxPolls,
		RequestTimeout: t.RequestTimeout,
	}, log)
}

func Policy(cfg *config.Config) segmenter.ThresholdPolicy {
	return segmenter.ThresholdPolicy{
		PresentationThresholdMs: cfg.Selection.PresentationThresholdMs,
		MinClipMs:               cfg.Selection.MinClipMs,
	}
}

// NewDownloader is sized for source audio, not for the transcription API's
// JSON calls.
func NewDownloader(cfg *config.Config) *extractor.Downloader {
	return extractor.NewDownloader(cfg.Audio.DownloadTimeout)
}

func NewProcessor(cfg *config.Config, log *logrus.Entry) *processor.Processor {
	return processor.New(processor.Options{
		OutputDir:    cfg.Output.Dir,
		AudioBaseURL: cfg.Audio.BaseURL,
		Extension:    cfg.Audio.Extension,
		Policy:       Policy(cfg),
	},
		NewProvider(cfg, log),
		NewDownloader(cfg),
		extractor.New(cfg.FFmpeg.Binary, cfg.Audio.Extension, log),
		log,
	)
}

func NewRunner(cfg *config.Config, proc pipeline.Processor, progress pipeline.ProgressFunc, log *logrus.Entry) *pipeline.Runner {
	return pipeline.New(proc, pipeline.Options{
		Parallelism:      cfg.Batch.Parallelism,
		RecordingTimeout: cfg.Batch.RecordingTimeout,
		Force:            cfg.Batch.Force,
		ReportPath:       cfg.Batch.Report,
		Progress:         progress,
	}, log)
}
