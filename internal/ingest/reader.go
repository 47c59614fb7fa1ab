package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"github.com/zeebo/xxh3"
)

var (
	// ErrFormat is returned for files that are neither spreadsheets nor CSV.
	ErrFormat = errors.New("unsupported file format")
	// ErrLayout is returned when a file cannot supply the expected columns.
	// The whole batch is rejected.
	ErrLayout = errors.New("unrecognised sheet layout")
)

const utf8BOM = "\uFEFF"

// ReadOptions controls how a source file is read.
type ReadOptions struct {
	// Sheet selects a worksheet by name; empty means the first sheet.
	Sheet string
	// HeaderRows are skipped before data rows.
	HeaderRows int
	// MinColumns is the column count the widest row must reach.
	MinColumns int
}

// Source is a read file: its data rows and a content fingerprint.
type Source struct {
	Rows        [][]string
	Fingerprint string
}

// Read loads name's content from r. The format is chosen by extension.
func Read(name string, r io.Reader, opts ReadOptions) (Source, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Source{}, fmt.Errorf("read %s: %w", name, err)
	}
	var rows [][]string
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		rows, err = readWorkbook(data, opts.Sheet)
	case ".csv":
		rows, err = readCSV(data)
	default:
		return Source{}, fmt.Errorf("%w: %q", ErrFormat, filepath.Ext(name))
	}
	if err != nil {
		return Source{}, err
	}

	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	if len(rows) == 0 || width < opts.MinColumns {
		return Source{}, fmt.Errorf("%w: %s has %d columns, need %d", ErrLayout, name, width, opts.MinColumns)
	}

	skip := opts.HeaderRows
	if skip > len(rows) {
		skip = len(rows)
	}
	out := make([][]string, 0, len(rows)-skip)
	for _, row := range rows[skip:] {
		if blank(row) {
			continue
		}
		out = append(out, row)
	}
	return Source{Rows: out, Fingerprint: Fingerprint(data)}, nil
}

// Fingerprint hashes file content for the ingest audit trail.
func Fingerprint(data []byte) string {
	return fmt.Sprintf("%016x", xxh3.Hash(data))
}

func readWorkbook(data []byte, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLayout, err)
	}
	defer f.Close()
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if sheet == "" {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrLayout)
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: sheet %q: %v", ErrLayout, sheet, err)
	}
	return rows, nil
}

func readCSV(data []byte) ([][]string, error) {
	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLayout, err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], utf8BOM)
	}
	return rows, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
