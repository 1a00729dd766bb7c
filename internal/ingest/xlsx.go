package ingest

import (
	"fmt"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"
)

type xlsxLoader struct{}

func (xlsxLoader) CanLoad(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".xlsx")
}

// Load reads the selected sheet (or the first one) and converts it to a text frame.
func (xlsxLoader) Load(path string, opt Options) (dataframe.DataFrame, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheet := opt.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return dataframe.DataFrame{}, fmt.Errorf("open xlsx: workbook has no sheets")
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("read sheet %q: no header row", sheet)
	}
	return recordsFrame(rows), nil
}

// recordsFrame pads ragged rows to the header width; excelize omits trailing empty cells.
func recordsFrame(rows [][]string) dataframe.DataFrame {
	ncol := len(rows[0])
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		if len(r) == ncol {
			records = append(records, r)
			continue
		}
		tmp := make([]string, ncol)
		copy(tmp, r)
		records = append(records, tmp)
	}
	return dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
}
