package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/KaramelBytes/batcov/internal/dataset"
	"github.com/KaramelBytes/batcov/internal/prevalence"
	"github.com/KaramelBytes/batcov/internal/utils"
)

// Format is an output file kind.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormats accepts a comma separated list such as "csv,json".
func ParseFormats(s string) ([]Format, error) {
	var out []Format
	for _, part := range strings.Split(s, ",") {
		switch f := Format(strings.ToLower(strings.TrimSpace(part))); f {
		case FormatCSV, FormatJSON:
			out = append(out, f)
		case "":
		default:
			return nil, fmt.Errorf("unsupported export format %q", part)
		}
	}
	return out, nil
}

// Options selects export targets.
type Options struct {
	// Dir receives one sub-directory per run.
	Dir     string
	Formats []Format
	// DB is a database DSN; empty skips the database target.
	DB         string
	MinSampled int
	Logger     zerolog.Logger
}

// Result records one written artifact.
type Result struct {
	Type        string    `json:"type"`
	Query       string    `json:"query,omitempty"`
	Path        string    `json:"path"`
	RecordCount int       `json:"record_count"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
	ExportedAt  time.Time `json:"exported_at"`
}

// Manifest describes a whole export run.
type Manifest struct {
	RunID      string    `json:"run_id"`
	Source     string    `json:"source"`
	RawRows    int       `json:"raw_rows"`
	Rows       int       `json:"rows"`
	MinSampled int       `json:"min_sampled"`
	CreatedAt  time.Time `json:"created_at"`
	Dir        string    `json:"dir,omitempty"`
	Results    []Result  `json:"results"`
}

// Failed counts unsuccessful results.
func (m *Manifest) Failed() int {
	n := 0
	for _, r := range m.Results {
		if !r.Success {
			n++
		}
	}
	return n
}

// Run aggregates every genus selector and group field combination and writes
// the tables to the configured targets. Failures of individual artifacts are
// recorded in the manifest; only setup errors abort the run.
func Run(ctx context.Context, ds *dataset.Dataset, opt Options) (*Manifest, error) {
	if ds == nil {
		return nil, fmt.Errorf("export: dataset is required")
	}
	if len(opt.Formats) == 0 && opt.DB == "" {
		return nil, fmt.Errorf("export: no targets (set formats or a database)")
	}
	m := &Manifest{
		RunID:      uuid.NewString(),
		Source:     ds.Source(),
		RawRows:    ds.RawRows(),
		Rows:       ds.Rows(),
		MinSampled: opt.MinSampled,
		CreatedAt:  time.Now().UTC(),
	}
	log := opt.Logger.With().Str("run_id", m.RunID).Logger()

	var tables []*prevalence.Table
	for _, g := range prevalence.GenusSelectors() {
		for _, f := range prevalence.GroupFields() {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			tbl, err := prevalence.Aggregate(ds, prevalence.Query{Genus: g, GroupBy: f}, prevalence.Options{MinSampled: opt.MinSampled})
			if err != nil {
				return nil, fmt.Errorf("export: %w", err)
			}
			tables = append(tables, tbl)
		}
	}
	log.Debug().Int("tables", len(tables)).Msg("aggregated")

	if len(opt.Formats) > 0 {
		m.Dir = filepath.Join(opt.Dir, m.RunID)
		if err := utils.EnsureDir(m.Dir); err != nil {
			return nil, fmt.Errorf("export: %w", err)
		}
		for _, tbl := range tables {
			for _, f := range opt.Formats {
				res := writeFile(m.Dir, tbl, f)
				if !res.Success {
					log.Warn().Str("path", res.Path).Str("error", res.Error).Msg("export failed")
				}
				m.Results = append(m.Results, res)
			}
		}
	}

	if opt.DB != "" {
		res := Result{Type: "database", Path: redactDSN(opt.DB), ExportedAt: time.Now().UTC()}
		n, err := writeDatabase(ctx, opt.DB, m, tables)
		res.RecordCount = n
		if err != nil {
			res.Error = err.Error()
			log.Warn().Err(err).Msg("database export failed")
		} else {
			res.Success = true
		}
		m.Results = append(m.Results, res)
	}

	if m.Dir != "" {
		b, err := utils.PrettyJSON(m)
		if err != nil {
			return nil, err
		}
		if err := utils.SafeWriteFile(filepath.Join(m.Dir, "manifest.json"), b); err != nil {
			return nil, fmt.Errorf("export: write manifest: %w", err)
		}
	}
	log.Info().Int("results", len(m.Results)).Int("failed", m.Failed()).Msg("export finished")
	return m, nil
}

// FileName is the artifact name for a table, e.g. "compare_bat-genus.csv".
func FileName(q prevalence.Query, f Format) string {
	return fmt.Sprintf("%s_%s.%s", utils.Slug(q.Genus.String()), utils.Slug(q.GroupBy.String()), f)
}

func writeFile(dir string, tbl *prevalence.Table, f Format) Result {
	path := filepath.Join(dir, FileName(tbl.Query, f))
	res := Result{Type: string(f), Query: tbl.Query.String(), Path: path, RecordCount: len(tbl.Rows), ExportedAt: time.Now().UTC()}
	var err error
	switch f {
	case FormatCSV:
		err = WriteCSV(path, tbl)
	case FormatJSON:
		err = writeJSON(path, tbl)
	default:
		err = fmt.Errorf("unsupported export format %q", f)
	}
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Success = true
	return res
}

// WriteCSV writes the table header and rows to path atomically.
func WriteCSV(path string, tbl *prevalence.Table) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(tbl.Columns()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	if err := w.WriteAll(tbl.Records()); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	if err := w.Error(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}

func writeJSON(path string, tbl *prevalence.Table) error {
	b, err := utils.PrettyJSON(struct {
		*prevalence.Table
		Summary prevalence.Summary `json:"summary"`
	}{tbl, tbl.Summary()})
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(path, b)
}
