package ingest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-gota/gota/dataframe"
)

// Loader reads a tabular source file into a text-typed data frame.
type Loader interface {
	CanLoad(filename string) bool
	Load(path string, opt Options) (dataframe.DataFrame, error)
}

// Options controls how source files are read.
type Options struct {
	// Delimiter for CSV. If 0, it is chosen from the file extension.
	Delimiter rune
	// Sheet selects an XLSX worksheet by name; empty means the first sheet.
	Sheet string
}

var registry []Loader

// Register adds a loader implementation to the registry.
func Register(l Loader) {
	registry = append(registry, l)
}

// LoadFile selects a loader based on filename and returns the raw table.
// Every column is loaded as text; typing happens during dataset preparation.
func LoadFile(path string, opt Options) (dataframe.DataFrame, error) {
	if _, err := os.Stat(path); err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("stat source: %w", err)
	}
	for _, l := range registry {
		if l.CanLoad(path) {
			df, err := l.Load(path, opt)
			if err != nil {
				return dataframe.DataFrame{}, err
			}
			if df.Err != nil {
				return dataframe.DataFrame{}, fmt.Errorf("load %s: %w", filepath.Base(path), df.Err)
			}
			return df, nil
		}
	}
	return dataframe.DataFrame{}, fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupported)
}

func init() {
	Register(csvLoader{})
	Register(xlsxLoader{})
}

// ErrUnsupported indicates a format is not supported.
var ErrUnsupported = errors.New("unsupported table format")
