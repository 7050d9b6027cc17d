package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	perrors "github.com/ivlev/chatdetect/internal/errors"
)

// DefaultDir is where reports go when no path is given.
var DefaultDir = "reports"

// Write writes a report to a YAML file, creating its directory.
func Write(r *Report, path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return perrors.NewReportError(path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return perrors.NewReportError(path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return perrors.NewReportError(path, err)
	}
	return nil
}

// Read reads a report from a YAML file
func Read(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var r Report
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing report %s: %w", path, err)
	}

	return &r, nil
}

// GeneratePath creates a timestamped report filename in dir.
func GeneratePath(dir string) string {
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join(dir, fmt.Sprintf("report_%s.yaml", timestamp))
}

// FindLatest finds the most recent report file in dir.
func FindLatest(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read reports directory: %w", err)
	}

	type candidate struct {
		path    string
		modTime time.Time
	}
	var reports []candidate
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		reports = append(reports, candidate{filepath.Join(dir, entry.Name()), info.ModTime()})
	}

	if len(reports) == 0 {
		return "", fmt.Errorf("no report files found in %s", dir)
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].modTime.After(reports[j].modTime)
	})

	return reports[0].path, nil
}
