package ingest

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

var utf8BOM = []byte("\xef\xbb\xbf")

type csvLoader struct{}

func (csvLoader) CanLoad(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".tsv")
}

func (csvLoader) Load(path string, opt Options) (dataframe.DataFrame, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("read csv: %w", err)
	}
	b = bytes.TrimPrefix(b, utf8BOM)
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(b, path)
	}
	return ReadCSV(b, delim), nil
}

// ReadCSV parses CSV content into a data frame with every column typed as text.
// A leading UTF-8 byte order mark is ignored.
func ReadCSV(content []byte, delim rune) dataframe.DataFrame {
	content = bytes.TrimPrefix(content, utf8BOM)
	if delim == 0 {
		delim = ','
	}
	return dataframe.ReadCSV(bytes.NewReader(content),
		dataframe.WithDelimiter(delim),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
}

// sniffDelimiter picks the most frequent of comma, tab and semicolon in the
// header line. A header with none of them falls back to the file extension.
func sniffDelimiter(content []byte, path string) rune {
	header, _, _ := bytes.Cut(content, []byte("\n"))
	best, bestN := rune(0), 0
	for _, d := range []rune{',', '\t', ';'} {
		if n := bytes.Count(header, []byte(string(d))); n > bestN {
			best, bestN = d, n
		}
	}
	if best != 0 {
		return best
	}
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	return ','
}
