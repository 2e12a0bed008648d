package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ManifestFile is written next to the clips of each recording.
const ManifestFile = "segments.json"

// WriteManifest stores v as indented JSON in dir/segments.json.
func WriteManifest(dir string, v any) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	path := filepath.Join(dir, ManifestFile)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("encode manifest: %w", err)
	}
	return path, nil
}

// ReportName is the default report file name for a run.
func ReportName(dir string, at time.Time) string {
	return filepath.Join(dir, "report_"+at.Format("20060102-150405")+".xlsx")
}
