package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/josequispe9/ScraperMELI-Linkedin/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixed = time.Date(2024, 5, 1, 14, 30, 5, 0, time.UTC)

func openAt(t *testing.T, dir string) *Writer {
	t.Helper()
	w, err := Open(dir)
	require.NoError(t, err)
	w.now = func() time.Time { return fixed }
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func TestWriteCSV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	w := openAt(t, dir)

	recs := []models.Record{
		models.ProductRecord{
			Name: "Monitor, 24\"", Price: "$189.999", Seller: "Samsung",
			URL: "https://articulo.mercadolibre.com.ar/MLA-1", SearchTerm: "monitor",
			ExtractedAt: fixed, Available: "Disponible", FreeShipping: "Sí", Condition: "Nuevo",
		},
		models.ProductRecord{Name: "Notebook", Price: "$850.000", SearchTerm: "notebook", ExtractedAt: fixed},
	}
	path, err := w.WriteCSV("mercadolibre", recs)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "mercadolibre_20240501_143005.csv"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, recs[0].CSVHeader(), rows[0])
	assert.Equal(t, `Monitor, 24"`, rows[1][0])
	assert.Equal(t, "Samsung", rows[1][2])
	assert.Equal(t, Missing, rows[2][2], "empty seller")
	assert.Equal(t, Missing, rows[2][6], "empty url")
	for _, row := range rows[1:] {
		assert.Len(t, row, len(rows[0]))
	}
}

func TestWriteCSVWithoutRecords(t *testing.T) {
	dir := t.TempDir()
	w := openAt(t, dir)

	path, err := w.WriteCSV("linkedin", nil)
	require.NoError(t, err)
	assert.Empty(t, path)

	matches, _ := filepath.Glob(filepath.Join(dir, "*.csv"))
	assert.Empty(t, matches)
}

func TestWriteSummary(t *testing.T) {
	w := openAt(t, t.TempDir())
	summary := models.RunSummary{
		Site: "linkedin", Success: true, ItemCount: 2, Errors: []string{},
		PerTerm: map[string]int{"golang": 2},
	}
	path, err := w.WriteSummary("linkedin", summary)
	require.NoError(t, err)
	assert.Equal(t, "linkedin_20240501_143005_summary.json", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got models.RunSummary
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, summary, got)
}

func TestExportFilesShareTimestamp(t *testing.T) {
	w := openAt(t, t.TempDir())
	tick := fixed.Add(900 * time.Millisecond)
	w.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}

	csvPath, err := w.WriteCSV("mercadolibre", []models.Record{models.ProductRecord{Name: "Mouse", SearchTerm: "mouse"}})
	require.NoError(t, err)
	sumPath, err := w.WriteSummary("mercadolibre", models.RunSummary{Site: "mercadolibre"})
	require.NoError(t, err)

	assert.Equal(t, strings.TrimSuffix(csvPath, ".csv")+"_summary.json", sumPath)
}

func TestOpenLocksDirectory(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir)
	require.NoError(t, err)

	_, err = Open(dir)
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeExport, models.CodeOf(err))

	require.NoError(t, w.Close())
	again, err := Open(dir)
	require.NoError(t, err)
	assert.NoError(t, again.Close())
}

func TestFill(t *testing.T) {
	assert.Equal(t, []string{"a", Missing, Missing, "b"}, fill([]string{"a", "", "  ", "b"}))
}
