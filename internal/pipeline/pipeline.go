package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"presenter-clips-go/internal/aggregator"
	"presenter-clips-go/internal/dataset"
	"presenter-clips-go/internal/extractor"
	"presenter-clips-go/internal/processor"
	"presenter-clips-go/internal/types"
)

// Recording outcomes reported per row and to the progress callback.
const (
	StatusDone      = "done"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Processor handles a single recording.
type Processor interface {
	Process(ctx context.Context, rec types.Recording) (processor.Result, error)
	OutputDir(name string) string
}

// ProgressFunc is called after each recording finishes, in completion order.
type ProgressFunc func(done, total int, rec string, status string)

type Options struct {
	Parallelism      int
	RecordingTimeout time.Duration
	Force            bool
	ReportPath       string
	Progress         ProgressFunc
}

type Runner struct {
	proc Processor
	opts Options
	log  *logrus.Entry
}

func New(proc Processor, opts Options, log *logrus.Entry) *Runner {
	if opts.Parallelism < 1 {
		opts.Parallelism = 1
	}
	return &Runner{proc: proc, opts: opts, log: log.WithField("component", "pipeline")}
}

// Summary describes a whole batch run.
type Summary struct {
	RunID      string                 `json:"run_id"`
	Total      int                    `json:"total"`
	Processed  int                    `json:"processed"`
	Skipped    int                    `json:"skipped"`
	Failed     int                    `json:"failed"`
	Cancelled  int                    `json:"cancelled"`
	Insight    aggregator.Insight     `json:"insight"`
	Rows       []dataset.RecordingRow `json:"-"`
	ReportPath string                 `json:"report_path,omitempty"`
	DurationMs int64                  `json:"duration_ms"`
}

// Run processes recs with a fixed worker pool. A failed recording never
// stops the batch; cancelling ctx stops new recordings from starting and
// Run returns ctx.Err() along with the partial summary.
func (r *Runner) Run(ctx context.Context, recs []types.Recording) (Summary, error) {
	start := time.Now()
	sum := Summary{RunID: uuid.New().String(), Total: len(recs)}
	log := r.log.WithField("run_id", sum.RunID)
	log.WithFields(logrus.Fields{
		"recordings":  len(recs),
		"parallelism": r.opts.Parallelism,
	}).Info("batch started")

	ctx = processor.WithRunID(ctx, sum.RunID)
	rows := make([]dataset.RecordingRow, len(recs))
	insights := make([]aggregator.Insight, len(recs))

	jobs := make(chan int)
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		done int
	)
	report := func(i int) {
		mu.Lock()
		defer mu.Unlock()
		done++
		if r.opts.Progress != nil {
			r.opts.Progress(done, len(recs), recs[i].Name, rows[i].Status)
		}
	}

	for w := 0; w < r.opts.Parallelism; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				rows[i], insights[i] = r.one(ctx, recs[i])
				report(i)
			}
		}()
	}

feed:
	for i := range recs {
		select {
		case <-ctx.Done():
			for j := i; j < len(recs); j++ {
				rows[j] = dataset.RecordingRow{Name: recs[j].Name, Status: StatusCancelled}
			}
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	for _, row := range rows {
		switch row.Status {
		case StatusDone:
			sum.Processed++
		case StatusSkipped:
			sum.Skipped++
		case StatusCancelled:
			sum.Cancelled++
		default:
			sum.Failed++
		}
	}
	sum.Insight = aggregator.Merge(insights)
	sum.Rows = rows
	sum.DurationMs = time.Since(start).Milliseconds()

	if r.opts.ReportPath != "" {
		if err := dataset.WriteReport(r.opts.ReportPath, sum.RunID, rows, log); err != nil {
			log.WithField("error", err.Error()).Error("report not written")
		} else {
			sum.ReportPath = r.opts.ReportPath
		}
	}

	log.WithFields(logrus.Fields{
		"processed":   sum.Processed,
		"skipped":     sum.Skipped,
		"failed":      sum.Failed,
		"cancelled":   sum.Cancelled,
		"segments":    sum.Insight.Segments,
		"duration_ms": sum.DurationMs,
	}).Info("batch finished")
	return sum, ctx.Err()
}

func (r *Runner) one(ctx context.Context, rec types.Recording) (dataset.RecordingRow, aggregator.Insight) {
	row := dataset.RecordingRow{Name: rec.Name}
	log := r.log.WithField("recording", rec.Name)

	if !r.opts.Force {
		if _, err := os.Stat(filepath.Join(r.proc.OutputDir(rec.Name), dataset.ManifestFile)); err == nil {
			log.Info("manifest exists, skipping")
			row.Status = StatusSkipped
			row.Note = "already processed"
			return row, aggregator.Insight{}
		}
	}
	if err := ctx.Err(); err != nil {
		row.Status = StatusCancelled
		return row, aggregator.Insight{}
	}

	rctx := ctx
	if r.opts.RecordingTimeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(ctx, r.opts.RecordingTimeout)
		defer cancel()
	}

	log.Info("processing recording")
	res, err := r.proc.Process(rctx, rec)
	row.DurationMs = res.DurationMs
	row.Presenters = len(res.Analysis.Presenters)
	row.Segments = len(res.Analysis.Segments)
	row.Note = res.Analysis.Card.Insight
	row.FailedClip = extractor.Failed(res.Clips)
	for _, c := range res.Clips {
		row.Clips = append(row.Clips, dataset.ClipRow{
			Name:    c.Name,
			Speaker: res.Analysis.Insight.ByLabel[c.Label].Speaker,
			StartMs: c.Start,
			EndMs:   c.End,
			Path:    c.Path,
			Error:   c.Error,
		})
	}
	if err != nil {
		row.Status = StatusFailed
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			row.Status = StatusCancelled
		}
		if errors.Is(err, context.DeadlineExceeded) && rctx.Err() != nil && ctx.Err() == nil {
			err = fmt.Errorf("recording timed out after %s: %w", r.opts.RecordingTimeout, err)
		}
		row.Error = err.Error()
		return row, aggregator.Insight{}
	}

	row.Status = StatusDone
	return row, res.Analysis.Insight
}
