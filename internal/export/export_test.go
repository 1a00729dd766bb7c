package export_test

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/batcov/internal/dataset"
	"github.com/KaramelBytes/batcov/internal/export"
	"github.com/KaramelBytes/batcov/internal/prevalence"
)

func fixture(t *testing.T) *dataset.Dataset {
	t.Helper()
	df := dataframe.LoadRecords([][]string{
		{"Study", "Study type", "Bat species", "Country", "Sample type", "Virus genus", "+", "#", "🔗"},
		{"A 2015", "cross-sectional", "Myotis a", "USA", "feces", "betacoronavirus", "15", "50", ""},
		{"B 2016", "cross-sectional", "Myotis b", "USA", "feces", "alphacoronavirus", "5", "60", ""},
	}, dataframe.DetectTypes(false), dataframe.DefaultType(series.String))
	ds, err := dataset.Prepare(df, dataset.DefaultColumns(), dataset.PrepareOptions{Source: "exported-table.csv"})
	require.NoError(t, err)
	return ds
}

func TestParseFormats(t *testing.T) {
	got, err := export.ParseFormats("CSV, json")
	require.NoError(t, err)
	assert.Equal(t, []export.Format{export.FormatCSV, export.FormatJSON}, got)

	_, err = export.ParseFormats("csv,parquet")
	assert.Error(t, err)
}

func TestFileName(t *testing.T) {
	q := prevalence.Query{Genus: prevalence.Compare, GroupBy: prevalence.BatGenus}
	assert.Equal(t, "compare_bat-genus.csv", export.FileName(q, export.FormatCSV))
}

func TestRun_FilesAndManifest(t *testing.T) {
	dir := t.TempDir()
	m, err := export.Run(context.Background(), fixture(t), export.Options{
		Dir:        dir,
		Formats:    []export.Format{export.FormatCSV, export.FormatJSON},
		MinSampled: 10,
		Logger:     zerolog.Nop(),
	})
	require.NoError(t, err)
	require.NotEmpty(t, m.RunID)
	assert.Len(t, m.Results, 4*4*2)
	assert.Zero(t, m.Failed())
	assert.Equal(t, filepath.Join(dir, m.RunID), m.Dir)

	f, err := os.Open(filepath.Join(m.Dir, "betacoronavirus_country.csv"))
	require.NoError(t, err)
	defer f.Close()
	recs, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Country", "+", "#", "proportion", "prop_error"},
		{"USA", "15", "50", "0.3000", "0.0648"},
	}, recs)

	b, err := os.ReadFile(filepath.Join(m.Dir, "compare_country.json"))
	require.NoError(t, err)
	var tbl struct {
		Query   map[string]string `json:"query"`
		Rows    []map[string]any  `json:"rows"`
		Summary map[string]any    `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(b, &tbl))
	assert.Equal(t, "Compare", tbl.Query["genus"])
	assert.Len(t, tbl.Rows, 2)
	assert.EqualValues(t, 2, tbl.Summary["groups"])

	b, err = os.ReadFile(filepath.Join(m.Dir, "manifest.json"))
	require.NoError(t, err)
	var manifest export.Manifest
	require.NoError(t, json.Unmarshal(b, &manifest))
	assert.Equal(t, m.RunID, manifest.RunID)
	assert.Equal(t, "exported-table.csv", manifest.Source)
	assert.Len(t, manifest.Results, len(m.Results))
}

func TestRun_SQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "batcov.db")
	m, err := export.Run(context.Background(), fixture(t), export.Options{
		DB:         dbPath,
		MinSampled: 10,
		Logger:     zerolog.Nop(),
	})
	require.NoError(t, err)
	require.Len(t, m.Results, 1)
	res := m.Results[0]
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "database", res.Type)

	db, err := export.OpenDB("sqlite://" + dbPath)
	require.NoError(t, err)
	defer db.Close()

	var runs int
	require.NoError(t, db.Get(&runs, `SELECT COUNT(*) FROM prevalence_runs WHERE run_id = ?`, m.RunID))
	assert.Equal(t, 1, runs)

	var rows int
	require.NoError(t, db.Get(&rows, `SELECT COUNT(*) FROM prevalence_rows WHERE run_id = ?`, m.RunID))
	assert.Equal(t, res.RecordCount, rows)

	var top struct {
		GroupValue string  `db:"group_value"`
		VirusGenus string  `db:"virus_genus"`
		Proportion float64 `db:"proportion"`
	}
	require.NoError(t, db.Get(&top, `SELECT group_value, virus_genus, proportion FROM prevalence_rows
		WHERE run_id = ? AND genus = 'Compare' AND group_by = 'Country' AND row_rank = 1`, m.RunID))
	assert.Equal(t, "USA", top.GroupValue)
	assert.Equal(t, "betacoronavirus", top.VirusGenus)
	assert.InDelta(t, 0.3, top.Proportion, 1e-12)

	// a second run appends
	_, err = export.Run(context.Background(), fixture(t), export.Options{DB: dbPath, MinSampled: 10, Logger: zerolog.Nop()})
	require.NoError(t, err)
	require.NoError(t, db.Get(&runs, `SELECT COUNT(*) FROM prevalence_runs`))
	assert.Equal(t, 2, runs)
}

func TestWriteCSV_ReplacesFileAtomically(t *testing.T) {
	tbl, err := prevalence.Aggregate(fixture(t),
		prevalence.Query{Genus: prevalence.Betacoronavirus, GroupBy: prevalence.Country},
		prevalence.DefaultOptions())
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "beta_country.csv")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))
	require.NoError(t, export.WriteCSV(path, tbl))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Country,+,#,proportion,prop_error\nUSA,15,50,0.3000,0.0648\n", string(b))
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	err = export.WriteCSV(filepath.Join(dir, "missing", "x.csv"), tbl)
	assert.Error(t, err)
}

func TestRun_RequiresTarget(t *testing.T) {
	_, err := export.Run(context.Background(), fixture(t), export.Options{Logger: zerolog.Nop()})
	assert.Error(t, err)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := export.Run(ctx, fixture(t), export.Options{Dir: t.TempDir(), Formats: []export.Format{export.FormatCSV}, Logger: zerolog.Nop()})
	assert.ErrorIs(t, err, context.Canceled)
}
