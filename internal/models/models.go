package models

import "time"

// EmptyCell is the explicit marker substituted for absent source cells.
// It keeps "no value" distinct from a stored 0 or false.
const EmptyCell = ""

// Cell is a single spreadsheet cell in grid form
type Cell struct {
	Value any `json:"value"`
}

// Sheet is one rectangular grid of cells; no row is treated as a header here
type Sheet [][]Cell

// Dataset is the full set of sheets parsed from one uploaded file.
// SheetOrder preserves the order sheets appeared in the workbook; the first
// entry is the sheet displayed by default.
type Dataset struct {
	FileName   string           `json:"fileName"`
	SheetOrder []string         `json:"sheetOrder"`
	Sheets     map[string]Sheet `json:"sheets"`
}

// FirstSheet returns the default-displayed sheet name, or "" for an empty dataset
func (d *Dataset) FirstSheet() string {
	if len(d.SheetOrder) == 0 {
		return ""
	}
	return d.SheetOrder[0]
}

// SheetRows is the header-promoted view of a sheet: each row becomes a map of
// column key to value. Headers carries the column key order explicitly, since
// neither Go maps nor the document store preserve it.
type SheetRows struct {
	Headers []string         `json:"headers"`
	Rows    []map[string]any `json:"rows"`
}

// Grid reshapes the header-promoted rows back into grid form. Row 0 is the
// header row; column order follows Headers, so a round trip through storage
// keeps the original layout. Keys absent from a row become empty cells.
func (sr SheetRows) Grid() Sheet {
	if len(sr.Headers) == 0 {
		return nil
	}

	grid := make(Sheet, 0, len(sr.Rows)+1)
	headerCells := make([]Cell, len(sr.Headers))
	for i, h := range sr.Headers {
		headerCells[i] = Cell{Value: h}
	}
	grid = append(grid, headerCells)

	for _, row := range sr.Rows {
		cells := make([]Cell, len(sr.Headers))
		for i, h := range sr.Headers {
			if v, ok := row[h]; ok {
				cells[i] = Cell{Value: v}
			} else {
				cells[i] = Cell{Value: EmptyCell}
			}
		}
		grid = append(grid, cells)
	}
	return grid
}

// Snapshot is a timestamped cached copy of a Dataset in header-promoted form.
// It is the sole unit persisted by the local snapshot cache: either wholly
// present or wholly absent.
type Snapshot struct {
	Timestamp  time.Time            `json:"timestamp"`
	FileName   string               `json:"fileName"`
	SheetOrder []string             `json:"sheetOrder"`
	Data       map[string]SheetRows `json:"data"`
}

// Message is one inbound contact message. IsNew transitions true to false
// exactly once, when the detail view is opened; nothing else is ever mutated.
type Message struct {
	ID        string    `db:"id" json:"id"`
	Subject   string    `db:"subject" json:"subject"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Message   string    `db:"message" json:"message"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	IsNew     bool      `db:"is_new" json:"isNew"`
}

// MessagesPage is one page of the inbox. Total is an estimate derived from
// over-fetching one extra record, not a true count: it equals page*pageSize
// plus one when a further page exists, and only grows as the user pages on.
type MessagesPage struct {
	Items []Message `json:"items"`
	Total int       `json:"total"`
}

// DatasetView is the JSON shape served to the admin UI for the grid view
type DatasetView struct {
	State        string           `json:"state"`
	FileName     string           `json:"fileName"`
	Sheets       []string         `json:"sheets"`
	CurrentSheet string           `json:"currentSheet"`
	Data         map[string]Sheet `json:"data"`
	Warnings     []string         `json:"warnings,omitempty"`
	Notice       string           `json:"notice,omitempty"`
}
