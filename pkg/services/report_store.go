package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ErrReportNotFound is returned when a report file does not exist or the
// requested filename is not a plain report name.
var ErrReportNotFound = errors.New("report not found")

// reportCacheSize bounds the in-memory cache of report contents.
const reportCacheSize = 128

// ReportStore persists generated reports as markdown files under a reports
// directory and caches reads.
type ReportStore struct {
	dir   string
	cache *lru.Cache[string, string]
}

// NewReportStore creates a report store rooted at dir.
func NewReportStore(dir string) (*ReportStore, error) {
	cache, err := lru.New[string, string](reportCacheSize)
	if err != nil {
		return nil, err
	}
	return &ReportStore{dir: dir, cache: cache}, nil
}

// SaveReport writes a report to disk and returns its filename. The filename
// derives from the business name: lowercase, spaces replaced by underscores,
// plus a timestamp.
func (rs *ReportStore) SaveReport(report, businessName string, now time.Time) (string, error) {
	filename := fmt.Sprintf("%s_%s.md", Slugify(businessName), now.Format("20060102_150405"))

	if err := os.MkdirAll(rs.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(rs.dir, filename), []byte(report), 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	rs.cache.Add(filename, report)
	return filename, nil
}

// ReadReport returns the content of a persisted report.
func (rs *ReportStore) ReadReport(filename string) (string, error) {
	if !validReportFilename(filename) {
		return "", ErrReportNotFound
	}

	if content, ok := rs.cache.Get(filename); ok {
		return content, nil
	}

	data, err := os.ReadFile(filepath.Join(rs.dir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrReportNotFound
		}
		return "", fmt.Errorf("failed to read report: %w", err)
	}

	content := string(data)
	rs.cache.Add(filename, content)
	return content, nil
}

// Slugify converts a business name into its filename key.
func Slugify(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "_")
}

// validReportFilename rejects names that could escape the reports directory.
func validReportFilename(filename string) bool {
	if filename == "" || filename != filepath.Base(filename) {
		return false
	}
	return !strings.Contains(filename, "..")
}
