// Package spreadsheet decodes an uploaded workbook or CSV file into the two
// views the rest of the application consumes: a rectangular grid of cells per
// sheet for display, and a header-promoted row view for persistence.
package spreadsheet

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Windyyyyyyyyy/hpl-logistics-admin/internal/apperrors"
	"github.com/Windyyyyyyyyy/hpl-logistics-admin/internal/models"
)

// ParsedFile bundles both views of one uploaded file. Promoted holds one
// entry per sheet in Dataset.SheetOrder; its key order is carried in
// SheetRows.Headers.
type ParsedFile struct {
	Dataset  models.Dataset
	Promoted map[string]models.SheetRows
}

// Parse decodes the uploaded file into a ParsedFile. Workbooks (.xlsx, .xls)
// are decoded with excelize; .csv becomes a single sheet named after the
// file. A file with zero sheets yields an empty Dataset, not an error; an
// unreadable buffer fails with apperrors.ErrParse. Parse has no side effects.
func Parse(filename string, data []byte) (*ParsedFile, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xls":
		return parseWorkbook(filename, data)
	case ".csv":
		return parseCSV(filename, data)
	default:
		return nil, apperrors.Wrap(nil, apperrors.ErrParse,
			fmt.Sprintf("unsupported file type %q, expected .xlsx, .xls or .csv", filepath.Ext(filename)))
	}
}

func parseWorkbook(filename string, data []byte) (*ParsedFile, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrParse, fmt.Sprintf("unreadable workbook %q", filename))
	}
	defer f.Close()

	parsed := &ParsedFile{
		Dataset: models.Dataset{
			FileName: filename,
			Sheets:   make(map[string]models.Sheet),
		},
		Promoted: make(map[string]models.SheetRows),
	}

	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrParse,
				fmt.Sprintf("failed to read sheet %q of %q", sheetName, filename))
		}
		parsed.Dataset.SheetOrder = append(parsed.Dataset.SheetOrder, sheetName)
		parsed.Dataset.Sheets[sheetName] = buildGrid(rows)
		parsed.Promoted[sheetName] = promoteRows(rows)
	}

	return parsed, nil
}

func parseCSV(filename string, data []byte) (*ParsedFile, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1 // Allow ragged rows, the grid is padded later
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if perr, ok := err.(*csv.ParseError); ok {
				return nil, apperrors.Wrap(err, apperrors.ErrParse,
					fmt.Sprintf("parse error at line %d, column %d of %q", perr.Line, perr.Column, filename))
			}
			return nil, apperrors.Wrap(err, apperrors.ErrParse, fmt.Sprintf("unreadable CSV %q", filename))
		}
		rows = append(rows, record)
	}

	// A CSV is a workbook with one sheet named after the file
	base := filepath.Base(filename)
	sheetName := strings.TrimSuffix(base, filepath.Ext(base))

	return &ParsedFile{
		Dataset: models.Dataset{
			FileName:   filename,
			SheetOrder: []string{sheetName},
			Sheets:     map[string]models.Sheet{sheetName: buildGrid(rows)},
		},
		Promoted: map[string]models.SheetRows{sheetName: promoteRows(rows)},
	}, nil
}

// buildGrid converts raw rows into a rectangular grid of cells with no
// header promotion. The grid is padded to the widest row; absent cells get
// the explicit empty marker.
func buildGrid(rows [][]string) models.Sheet {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	grid := make(models.Sheet, len(rows))
	for i, row := range rows {
		cells := make([]models.Cell, width)
		for j := 0; j < width; j++ {
			if j < len(row) && row[j] != "" {
				cells[j] = models.Cell{Value: parseValue(row[j])}
			} else {
				cells[j] = models.Cell{Value: models.EmptyCell}
			}
		}
		grid[i] = cells
	}
	return grid
}

// promoteRows treats row 0 as the header row and turns every following
// non-blank row into a column-keyed map. Empty cells are omitted from the
// maps rather than null-filled; the header order is kept in Headers.
func promoteRows(rows [][]string) models.SheetRows {
	if len(rows) == 0 {
		return models.SheetRows{}
	}

	// Columns beyond the header row's own width still need names
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	headers := make([]string, width)
	blanks := 0
	for i := 0; i < width; i++ {
		h := ""
		if i < len(rows[0]) {
			h = strings.TrimSpace(rows[0][i])
		}
		if h == "" {
			// Positional fallback for unnamed columns
			if blanks == 0 {
				h = "__EMPTY"
			} else {
				h = fmt.Sprintf("__EMPTY_%d", blanks)
			}
			blanks++
		}
		headers[i] = h
	}

	promoted := models.SheetRows{Headers: headers}
	for _, row := range rows[1:] {
		obj := make(map[string]any)
		for j, raw := range row {
			if j >= len(headers) || raw == "" {
				continue
			}
			obj[headers[j]] = parseValue(raw)
		}
		if len(obj) == 0 {
			continue // blank row
		}
		promoted.Rows = append(promoted.Rows, obj)
	}
	return promoted
}

// parseValue attempts to parse a cell as a number, falling back to the
// original string. Integers come back as int64, decimals as float64.
func parseValue(s string) any {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
