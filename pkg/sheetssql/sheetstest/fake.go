// Package sheetstest provides an in-memory spreadsheet for tests of code built on sheetssql.
package sheetstest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// Fake is an in-memory spreadsheet. Cells are stored as strings, the way the API returns them.
type Fake struct {
	mu      sync.Mutex
	sheets  map[string][][]interface{}
	ids     map[string]int64
	nextID  int64
	Appends []string
	Updates []string
}

func New() *Fake {
	return &Fake{sheets: map[string][][]interface{}{}, ids: map[string]int64{}, nextID: 100}
}

var rangePattern = regexp.MustCompile(`^([^!]+)(?:!A(\d+)(?::ZZ(\d+))?)?$`)

func parseRange(r string) (title string, start, end int, err error) {
	m := rangePattern.FindStringSubmatch(r)
	if m == nil {
		return "", 0, 0, fmt.Errorf("unsupported range %s", r)
	}
	title = m[1]
	if m[2] != "" {
		start, _ = strconv.Atoi(m[2])
	}
	if m[3] != "" {
		end, _ = strconv.Atoi(m[3])
	}
	return title, start, end, nil
}

func stringify(values [][]interface{}) [][]interface{} {
	out := make([][]interface{}, len(values))
	for i, row := range values {
		out[i] = make([]interface{}, len(row))
		for j, cell := range row {
			out[i][j] = fmt.Sprint(cell)
		}
	}
	return out
}

func (f *Fake) GetValues(spreadsheetID, sheetRange string) ([][]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	title, start, end, err := parseRange(sheetRange)
	if err != nil {
		return nil, err
	}
	rows, ok := f.sheets[title]
	if !ok {
		return nil, fmt.Errorf("unknown sheet %s", title)
	}
	if start == 0 {
		start = 1
	}
	if end == 0 || end > len(rows) {
		end = len(rows)
	}
	if start > end {
		return nil, nil
	}

	out := make([][]interface{}, 0, end-start+1)
	for _, row := range rows[start-1 : end] {
		out = append(out, append([]interface{}(nil), row...))
	}
	return out, nil
}

func (f *Fake) AppendRows(spreadsheetID, sheetRange string, values [][]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	title, start, _, err := parseRange(sheetRange)
	if err != nil {
		return err
	}
	f.Appends = append(f.Appends, sheetRange)
	rows := f.sheets[title]
	for start > 0 && len(rows) < start-1 {
		rows = append(rows, []interface{}{})
	}
	f.sheets[title] = append(rows, stringify(values)...)
	return nil
}

func (f *Fake) UpdateValues(spreadsheetID, sheetRange string, values [][]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	title, start, _, err := parseRange(sheetRange)
	if err != nil {
		return err
	}
	if start == 0 {
		start = 1
	}
	f.Updates = append(f.Updates, sheetRange)
	rows := f.sheets[title]
	for i, row := range stringify(values) {
		idx := start - 1 + i
		for len(rows) <= idx {
			rows = append(rows, []interface{}{})
		}
		rows[idx] = row
	}
	f.sheets[title] = rows
	return nil
}

// ClearValues empties a whole sheet, or every row from the anchor row onwards
func (f *Fake) ClearValues(spreadsheetID, sheetRange string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	title, start, _, err := parseRange(sheetRange)
	if err != nil {
		return err
	}
	rows, ok := f.sheets[title]
	if !ok {
		return fmt.Errorf("unknown sheet %s", title)
	}
	if start <= 1 {
		f.sheets[title] = [][]interface{}{}
		return nil
	}
	for i := start - 1; i < len(rows); i++ {
		rows[i] = []interface{}{}
	}
	return nil
}

func (f *Fake) DeleteRows(spreadsheetID string, sheetID, startIndex, endIndex int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for title, id := range f.ids {
		if id != sheetID {
			continue
		}
		rows := f.sheets[title]
		if endIndex > int64(len(rows)) {
			return fmt.Errorf("delete past end of sheet %s", title)
		}
		f.sheets[title] = append(rows[:startIndex:startIndex], rows[endIndex:]...)
		return nil
	}
	return fmt.Errorf("unknown sheet id %d", sheetID)
}

func (f *Fake) CreateSheet(spreadsheetID, sheetTitle string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.sheets[sheetTitle]; ok {
		return 0, fmt.Errorf("sheet %s exists", sheetTitle)
	}
	f.nextID++
	f.ids[sheetTitle] = f.nextID
	f.sheets[sheetTitle] = [][]interface{}{}
	return f.nextID, nil
}

func (f *Fake) ListSheets(spreadsheetID string) (map[string]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make(map[string]int64, len(f.ids))
	for k, v := range f.ids {
		out[k] = v
	}
	return out, nil
}

// Seed creates a sheet from pipe-separated rows. An empty string is a blank row.
func (f *Fake) Seed(title string, rows ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	f.ids[title] = f.nextID
	values := make([][]interface{}, 0, len(rows))
	for _, r := range rows {
		var row []interface{}
		if r != "" {
			for _, cell := range strings.Split(r, "|") {
				row = append(row, cell)
			}
		}
		values = append(values, row)
	}
	f.sheets[title] = values
}

// Rows returns a copy of a sheet's rows
func (f *Fake) Rows(title string) [][]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([][]interface{}, 0, len(f.sheets[title]))
	for _, row := range f.sheets[title] {
		out = append(out, append([]interface{}(nil), row...))
	}
	return out
}

// SheetID returns the id of a sheet
func (f *Fake) SheetID(title string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ids[title]
}
