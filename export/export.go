// Package export writes a run's records as CSV and its summary as JSON.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/josequispe9/ScraperMELI-Linkedin/models"
)

// Missing replaces empty cells.
const Missing = "No disponible"

const lockName = ".scraper.lock"

// Writer writes into one output directory. Concurrent runs sharing the
// directory are serialized by an exclusive file lock.
type Writer struct {
	dir   string
	lock  *flock.Flock
	now   func() time.Time
	stamp string // fixed on first write so every file of the export pairs up
}

// Open creates dir if needed and takes the directory lock. It fails with
// EXPORT_FAILED when another process holds the lock.
func Open(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeExport, "create output dir", err)
	}
	lock := flock.New(filepath.Join(dir, lockName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeExport, "lock output dir", err)
	}
	if !ok {
		return nil, models.NewScrapeError(models.ErrCodeExport,
			fmt.Sprintf("output dir %s is locked by another run", dir), nil)
	}
	return &Writer{dir: dir, lock: lock, now: time.Now}, nil
}

// Close releases the directory lock.
func (w *Writer) Close() error {
	return w.lock.Unlock()
}

// WriteCSV writes records to <dir>/<site>_<YYYYmmdd_HHMMSS>.csv and returns
// the path. The header comes from the records; with no records nothing is
// written and "" is returned.
func (w *Writer) WriteCSV(site string, records []models.Record) (string, error) {
	if len(records) == 0 {
		slog.Warn("no records to export", "site", site)
		return "", nil
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(records[0].CSVHeader()); err != nil {
		return "", models.NewScrapeError(models.ErrCodeExport, "write csv header", err)
	}
	for _, r := range records {
		if err := cw.Write(fill(r.CSVRow())); err != nil {
			return "", models.NewScrapeError(models.ErrCodeExport, "write csv row", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", models.NewScrapeError(models.ErrCodeExport, "flush csv", err)
	}

	path := w.path(site, ".csv")
	if err := writeFile(path, buf.Bytes()); err != nil {
		return "", err
	}
	slog.Info("records exported", "site", site, "records", len(records), "path", path)
	return path, nil
}

// WriteSummary writes the run summary as indented JSON next to the CSV.
func (w *Writer) WriteSummary(site string, summary models.RunSummary) (string, error) {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", models.NewScrapeError(models.ErrCodeExport, "marshal summary", err)
	}
	path := w.path(site, "_summary.json")
	if err := writeFile(path, append(data, '\n')); err != nil {
		return "", err
	}
	return path, nil
}

func (w *Writer) path(site, suffix string) string {
	if w.stamp == "" {
		w.stamp = w.now().Format("20060102_150405")
	}
	return filepath.Join(w.dir, site+"_"+w.stamp+suffix)
}

// fill replaces blank cells with Missing.
func fill(row []string) []string {
	out := make([]string, len(row))
	for i, v := range row {
		if strings.TrimSpace(v) == "" {
			v = Missing
		}
		out[i] = v
	}
	return out
}

func writeFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return models.NewScrapeError(models.ErrCodeExport, "write "+filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return models.NewScrapeError(models.ErrCodeExport, "rename "+filepath.Base(path), err)
	}
	return nil
}
