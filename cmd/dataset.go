package cmd

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	cfgpkg "github.com/KaramelBytes/batcov/internal/config"
	"github.com/KaramelBytes/batcov/internal/dataset"
	"github.com/KaramelBytes/batcov/internal/ingest"
)

// loadDataset reads and prepares the configured surveillance table.
func loadDataset(c *cfgpkg.Global) (*dataset.Dataset, error) {
	delim, err := parseDelimiter(c.Delimiter)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	raw, err := ingest.LoadFile(c.DataPath, ingest.Options{Delimiter: delim, Sheet: c.Sheet})
	if err != nil {
		return nil, err
	}
	ds, err := dataset.Prepare(raw, dataset.Columns(c.Columns), dataset.PrepareOptions{
		Source:     filepath.Base(c.DataPath),
		StrictYear: c.StrictYear,
	})
	if err != nil {
		return nil, err
	}
	logger.Debug().
		Str("source", c.DataPath).
		Int("raw_rows", ds.RawRows()).
		Int("rows", ds.Rows()).
		Strs("coerced", ds.Coerced()).
		Dur("took", time.Since(start)).
		Msg("dataset prepared")
	return ds, nil
}

func parseDelimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "":
		return 0, nil
	case ",", "comma":
		return ',', nil
	case "\t", "tab":
		return '\t', nil
	case ";", "semicolon":
		return ';', nil
	}
	return 0, fmt.Errorf("unsupported delimiter: %q", s)
}
