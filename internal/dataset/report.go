package dataset

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

const (
	recordingsSheet = "Recordings"
	clipsSheet      = "Clips"
)

// RecordingRow is one processed (or skipped/failed) recording in a run.
type RecordingRow struct {
	Name       string
	Status     string
	Presenters int
	Segments   int
	FailedClip int
	DurationMs int64
	Note       string
	Error      string
	Clips      []ClipRow
}

type ClipRow struct {
	Name    string
	Speaker string
	StartMs int64
	EndMs   int64
	Path    string
	Error   string
}

// WriteReport saves the run as a workbook with a per-recording sheet and a
// per-clip sheet.
func WriteReport(path, runID string, rows []RecordingRow, log *logrus.Entry) error {
	log = log.WithField("component", "dataset.report").WithField("path", path)
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", recordingsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(clipsSheet); err != nil {
		return fmt.Errorf("new sheet: %w", err)
	}

	header := []any{"Run", "Recording", "Status", "Presenters", "Segments", "Failed clips", "Duration (ms)", "Note", "Error"}
	if err := f.SetSheetRow(recordingsSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	clipHeader := []any{"Recording", "Clip", "Speaker", "Start (ms)", "End (ms)", "Length (ms)", "Path", "Error"}
	if err := f.SetSheetRow(clipsSheet, "A1", &clipHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	clipRow := 2
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		vals := []any{runID, r.Name, r.Status, r.Presenters, r.Segments, r.FailedClip, r.DurationMs, r.Note, r.Error}
		if err := f.SetSheetRow(recordingsSheet, cell, &vals); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
		for _, c := range r.Clips {
			cell, _ := excelize.CoordinatesToCellName(1, clipRow)
			vals := []any{r.Name, c.Name, c.Speaker, c.StartMs, c.EndMs, c.EndMs - c.StartMs, c.Path, c.Error}
			if err := f.SetSheetRow(clipsSheet, cell, &vals); err != nil {
				return fmt.Errorf("write clip row %d: %w", clipRow, err)
			}
			clipRow++
		}
	}

	if err := f.SaveAs(path); err != nil {
		log.WithField("error", err.Error()).Error("save report failed")
		return fmt.Errorf("save report: %w", err)
	}
	log.WithFields(logrus.Fields{
		"recordings": len(rows),
		"clips":      clipRow - 2,
	}).Info("report written")
	return nil
}
