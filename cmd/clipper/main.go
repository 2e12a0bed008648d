package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"presenter-clips-go/internal/app"
	"presenter-clips-go/internal/config"
	"presenter-clips-go/internal/dataset"
	"presenter-clips-go/internal/logger"
	"presenter-clips-go/internal/processor"
	"presenter-clips-go/internal/segmenter"
	"presenter-clips-go/internal/transcription"
)

type rootFlags struct {
	configFile string
	envFile    string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags rootFlags
	root := &cobra.Command{
		Use:          "clipper",
		Short:        "Cut presenter Q&A answers out of recorded calls",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flags.configFile, "config", "", "path to config.yml (default ./config.yml when present)")
	root.PersistentFlags().StringVar(&flags.envFile, "env", "", "path to .env (default ./.env when present)")

	root.AddCommand(newRunCmd(&flags), newSegmentsCmd())
	return root
}

func newRunCmd(flags *rootFlags) *cobra.Command {
	var (
		manifest string
		force    bool
		report   string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process every recording in the batch list",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.LoaderOptions{ConfigFile: flags.configFile, EnvFile: flags.envFile})
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("manifest") {
				cfg.Batch.Manifest = manifest
			}
			if cmd.Flags().Changed("force") {
				cfg.Batch.Force = force
			}
			if cmd.Flags().Changed("report") {
				cfg.Batch.Report = report
			}
			if cfg.Batch.Report == "auto" {
				cfg.Batch.Report = dataset.ReportName(cfg.Output.Dir, time.Now())
			}

			log := logger.New(logger.Options{Environment: cfg.Environment, Level: cfg.LogLevel})
			recs, err := dataset.LoadRecordings(cfg.Batch.Manifest)
			if err != nil {
				return fmt.Errorf("load recordings: %w", err)
			}
			if len(recs) == 0 {
				log.WithField("manifest", cfg.Batch.Manifest).Warn("no recordings to process")
				return nil
			}
			if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}

			progress := log.Component("progress")
			runner := app.NewRunner(cfg, app.NewProcessor(cfg, log.Entry), func(done, total int, rec, status string) {
				progress.WithField("recording", rec).WithField("status", status).
					Infof("%d/%d (%.0f%%)", done, total, 100*float64(done)/float64(total))
			}, log.Entry)

			sum, err := runner.Run(cmd.Context(), recs)
			fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d processed, %d skipped, %d failed, %d cancelled, %d clips\n",
				sum.RunID, sum.Processed, sum.Skipped, sum.Failed, sum.Cancelled, sum.Insight.Segments)
			if sum.ReportPath != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "report: %s\n", sum.ReportPath)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&manifest, "manifest", "", "recording list (.txt, .json or .xlsx)")
	cmd.Flags().BoolVar(&force, "force", false, "reprocess recordings whose output folder exists")
	cmd.Flags().StringVar(&report, "report", "", `xlsx report path, "auto" for a timestamped file in the output dir`)
	return cmd
}

func newSegmentsCmd() *cobra.Command {
	var (
		presentationMs int64
		minClipMs      int64
	)
	cmd := &cobra.Command{
		Use:   "segments <words.json|->",
		Short: "Print the presenter segments for a transcript file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tr, err := readTranscript(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			policy := segmenter.ThresholdPolicy{PresentationThresholdMs: presentationMs, MinClipMs: minClipMs}
			proc := processor.New(processor.Options{Policy: policy}, nil, nil, nil, logger.Discard().Entry)
			an, err := proc.Analyze(tr.Words)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(an)
		},
	}
	cmd.Flags().Int64Var(&presentationMs, "presentation-ms", segmenter.PresentationThresholdMs, "turns longer than this mark a presenter")
	cmd.Flags().Int64Var(&minClipMs, "min-clip-ms", segmenter.MinClipMs, "turns must be longer than this to be clipped")
	return cmd
}

func readTranscript(path string, stdin io.Reader) (*transcription.Transcript, error) {
	if path != "-" {
		return transcription.ReadTranscriptFile(path)
	}
	b, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	return transcription.DecodeTranscript(b)
}
