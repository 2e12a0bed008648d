package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"

	"presenter-clips-go/internal/types"
)

// LoadRecordings reads the batch list. Supported formats by extension:
//   - .xlsx: first sheet, name column detected from the header
//   - .json: array of names or of {"name","audio_url"} objects
//   - anything else: one name per line, or a bracketed list of quoted names
//
// Duplicate names are dropped, first occurrence wins.
func LoadRecordings(path string) ([]types.Recording, error) {
	var (
		recs []types.Recording
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		recs, err = loadWorkbook(path)
	case ".json":
		recs, err = loadJSON(path)
	default:
		recs, err = loadText(path)
	}
	if err != nil {
		return nil, err
	}
	return dedupe(recs), nil
}

// loadWorkbook attempts to auto-detect the name and audio columns by header heuristics
func loadWorkbook(path string) ([]types.Recording, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) <= 1 {
		return nil, fmt.Errorf("no data rows")
	}
	nameIdx, urlIdx := -1, -1
	for i, h := range rows[0] {
		l := strings.ToLower(strings.TrimSpace(h))
		switch {
		case strings.Contains(l, "url") || strings.Contains(l, "link"):
			if urlIdx == -1 {
				urlIdx = i
			}
		case strings.Contains(l, "name") || strings.Contains(l, "file") || strings.Contains(l, "recording"):
			if nameIdx == -1 {
				nameIdx = i
			}
		}
	}
	// fallback: first column
	if nameIdx == -1 {
		nameIdx = 0
	}
	var out []types.Recording
	for _, r := range rows[1:] {
		rec := types.Recording{}
		if nameIdx < len(r) {
			rec.Name = strings.TrimSpace(r[nameIdx])
		}
		if urlIdx >= 0 && urlIdx < len(r) {
			rec.AudioURL = strings.TrimSpace(r[urlIdx])
		}
		if rec.Name == "" {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func loadJSON(path string) ([]types.Recording, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var names []string
	if err := json.Unmarshal(b, &names); err == nil {
		return fromNames(names), nil
	}
	var recs []types.Recording
	if err := json.Unmarshal(b, &recs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return recs, nil
}

var quoted = regexp.MustCompile(`'([^']*)'|"([^"]*)"`)

func loadText(path string) ([]types.Recording, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	trimmed := bytes.TrimSpace(b)
	if bytes.HasPrefix(trimmed, []byte("[")) {
		var names []string
		for _, m := range quoted.FindAllSubmatch(trimmed, -1) {
			names = append(names, string(m[1])+string(m[2]))
		}
		return fromNames(names), nil
	}
	var names []string
	sc := bufio.NewScanner(bytes.NewReader(b))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	return fromNames(names), sc.Err()
}

func fromNames(names []string) []types.Recording {
	out := make([]types.Recording, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, types.Recording{Name: n})
		}
	}
	return out
}

func dedupe(recs []types.Recording) []types.Recording {
	seen := map[string]bool{}
	out := recs[:0]
	for _, r := range recs {
		if r.Name == "" || seen[r.Name] {
			continue
		}
		seen[r.Name] = true
		out = append(out, r)
	}
	return out
}
