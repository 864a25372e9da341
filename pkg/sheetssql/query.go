package sheetssql

import (
	"fmt"
	"reflect"
	"strconv"
)

// dataStartRow is the sheet row of the first data row (after headers and types)
const dataStartRow = 3

// Row is a mapped data row together with its 1-based position in the sheet
type Row[T any] struct {
	Number int
	Value  T
}

// rowMapper maps raw sheet rows onto structs of type T using the header row
type rowMapper[T any] struct {
	t             reflect.Type
	columnIndexes map[string]int
	fieldMap      map[string]reflect.StructField
}

func newRowMapper[T any](headers []interface{}) *rowMapper[T] {
	var model T
	t := reflect.TypeOf(model)

	columnIndexes := make(map[string]int)
	for i, header := range headers {
		if headerStr, ok := header.(string); ok {
			columnIndexes[headerStr] = i
		}
	}

	fieldMap := make(map[string]reflect.StructField)
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		columnName := field.Tag.Get("ssql_header")
		if columnName != "" {
			fieldMap[columnName] = field
		}
	}

	return &rowMapper[T]{t: t, columnIndexes: columnIndexes, fieldMap: fieldMap}
}

func (m *rowMapper[T]) mapRow(row []interface{}, rowNumber int) (T, error) {
	result := reflect.New(m.t).Elem()

	for columnName, colIdx := range m.columnIndexes {
		field, ok := m.fieldMap[columnName]
		if !ok {
			continue
		}
		if colIdx >= len(row) {
			continue
		}

		cellValue := row[colIdx]
		if cellValue == nil {
			continue
		}

		if err := setFieldValue(result.FieldByName(field.Name), cellValue); err != nil {
			var zero T
			return zero, fmt.Errorf("row %d, column %s: %w", rowNumber, columnName, err)
		}
	}

	return result.Interface().(T), nil
}

// cell returns the string value of column in row, or "" if the cell is empty
func (m *rowMapper[T]) cell(row []interface{}, column string) string {
	idx, ok := m.columnIndexes[column]
	if !ok || idx >= len(row) || row[idx] == nil {
		return ""
	}
	return fmt.Sprint(row[idx])
}

// isBlankRow reports whether every cell in the row is empty
func isBlankRow(row []interface{}) bool {
	for _, cell := range row {
		if cell != nil && fmt.Sprint(cell) != "" {
			return false
		}
	}
	return true
}

// GetRowsAs retrieves all non-blank data rows from a table with their sheet row numbers
func GetRowsAs[T any](db *DB, tableName string) ([]Row[T], error) {
	return findRows[T](db, tableName, "", "", false)
}

// GetTableAs retrieves all rows from a table and maps them to structs of type T
// Skips the first two rows (headers and types) and blank rows
func GetTableAs[T any](db *DB, tableName string) ([]T, error) {
	rows, err := GetRowsAs[T](db, tableName)
	if err != nil {
		return nil, err
	}

	results := make([]T, 0, len(rows))
	for _, row := range rows {
		results = append(results, row.Value)
	}
	return results, nil
}

// FindRowsAs returns the rows whose cell in column equals value exactly (case-sensitive, whole cell)
func FindRowsAs[T any](db *DB, tableName, column, value string) ([]Row[T], error) {
	return findRows[T](db, tableName, column, value, true)
}

func findRows[T any](db *DB, tableName, column, value string, filter bool) ([]Row[T], error) {
	values, err := db.client.GetValues(db.spreadsheetID, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to get table %s: %w", tableName, err)
	}

	if len(values) < dataStartRow {
		return []Row[T]{}, nil
	}

	mapper := newRowMapper[T](values[0])
	if filter {
		if _, ok := mapper.columnIndexes[column]; !ok {
			return nil, fmt.Errorf("table %s has no column %s", tableName, column)
		}
	}

	results := make([]Row[T], 0, len(values)-dataStartRow+1)
	for i, row := range values[dataStartRow-1:] {
		rowNumber := i + dataStartRow
		if isBlankRow(row) {
			continue
		}
		if filter && mapper.cell(row, column) != value {
			continue
		}

		result, err := mapper.mapRow(row, rowNumber)
		if err != nil {
			return nil, err
		}
		results = append(results, Row[T]{Number: rowNumber, Value: result})
	}

	return results, nil
}

// setFieldValue converts a sheet cell value to the appropriate Go type and sets it on the field
func setFieldValue(field reflect.Value, cellValue interface{}) error {
	if !field.CanSet() {
		return fmt.Errorf("field cannot be set")
	}

	// Get the cell as a string first (sheets API returns strings)
	cellStr, ok := cellValue.(string)
	if !ok {
		return fmt.Errorf("cell value is not a string")
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(cellStr)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if cellStr == "" {
			field.SetInt(0)
		} else {
			intVal, err := strconv.ParseInt(cellStr, 10, 64)
			if err != nil {
				return fmt.Errorf("failed to parse int: %w", err)
			}
			field.SetInt(intVal)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if cellStr == "" {
			field.SetUint(0)
		} else {
			uintVal, err := strconv.ParseUint(cellStr, 10, 64)
			if err != nil {
				return fmt.Errorf("failed to parse uint: %w", err)
			}
			field.SetUint(uintVal)
		}

	case reflect.Float32, reflect.Float64:
		if cellStr == "" {
			field.SetFloat(0)
		} else {
			floatVal, err := strconv.ParseFloat(cellStr, 64)
			if err != nil {
				return fmt.Errorf("failed to parse float: %w", err)
			}
			field.SetFloat(floatVal)
		}

	case reflect.Bool:
		if cellStr == "" {
			field.SetBool(false)
		} else {
			boolVal, err := strconv.ParseBool(cellStr)
			if err != nil {
				return fmt.Errorf("failed to parse bool: %w", err)
			}
			field.SetBool(boolVal)
		}

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// modelRow flattens a struct into a sheet row in field order
func modelRow(model interface{}) []interface{} {
	t := reflect.TypeOf(model)
	v := reflect.ValueOf(model)

	row := make([]interface{}, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).Tag.Get("ssql_header") == "" {
			continue
		}
		row = append(row, cellValue(v.Field(i)))
	}
	return row
}

// cellValue unwraps named types so the sheets API encodes them as plain values
func cellValue(v reflect.Value) interface{} {
	switch v.Kind() {
	case reflect.String:
		return v.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int()
	case reflect.Bool:
		return v.Bool()
	default:
		return v.Interface()
	}
}

// InsertModel appends a struct as a row to its corresponding table
func InsertModel[T any](db *DB, model T) error {
	return db.InsertRow(toSnakeCase(reflect.TypeOf(model).Name()), modelRow(model))
}

// InsertModels appends multiple structs as rows to their corresponding table
func InsertModels[T any](db *DB, models []T) error {
	if len(models) == 0 {
		return nil
	}
	return InsertModelsInto(db, toSnakeCase(reflect.TypeOf(models[0]).Name()), models)
}

// InsertModelsInto appends multiple structs as rows to the named table
func InsertModelsInto[T any](db *DB, tableName string, models []T) error {
	if len(models) == 0 {
		return nil
	}

	rows := make([][]interface{}, 0, len(models))
	for _, model := range models {
		rows = append(rows, modelRow(model))
	}

	return db.InsertRows(tableName, rows)
}

// WriteModelsAtFirstVacant writes the models into the first run of blank rows long enough to
// hold all of them, or after the last row when there is no such gap. Returns the first sheet
// row written.
func WriteModelsAtFirstVacant[T any](db *DB, tableName string, models []T) (int, error) {
	if len(models) == 0 {
		return 0, nil
	}

	values, err := db.client.GetValues(db.spreadsheetID, tableName)
	if err != nil {
		return 0, fmt.Errorf("failed to get table %s: %w", tableName, err)
	}

	rows := make([][]interface{}, 0, len(models))
	for _, model := range models {
		rows = append(rows, modelRow(model))
	}

	start := firstVacantRun(values, len(rows))
	if start > len(values) {
		// Anchor the append at the row after the data so it cannot land in an earlier gap
		rangeAt := fmt.Sprintf("%s!A%d", tableName, start)
		if err := db.client.AppendRows(db.spreadsheetID, rangeAt, rows); err != nil {
			return 0, err
		}
		return start, nil
	}

	if err := db.WriteRowsAt(tableName, start, rows); err != nil {
		return 0, err
	}
	return start, nil
}

// firstVacantRun returns the 1-based row number where n consecutive blank data rows begin.
// Trailing rows past the end of values count as blank.
func firstVacantRun(values [][]interface{}, n int) int {
	runStart, runLen := 0, 0
	for i := dataStartRow - 1; i < len(values); i++ {
		if !isBlankRow(values[i]) {
			runLen = 0
			continue
		}
		if runLen == 0 {
			runStart = i + 1
		}
		runLen++
		if runLen == n {
			return runStart
		}
	}
	if runLen > 0 {
		return runStart
	}
	return max(len(values), dataStartRow-1) + 1
}

// UpdateModelAt overwrites the 1-based sheet row with model
func UpdateModelAt[T any](db *DB, tableName string, rowNumber int, model T) error {
	if rowNumber < dataStartRow {
		return fmt.Errorf("row %d is part of the table header", rowNumber)
	}
	return db.WriteRowsAt(tableName, rowNumber, [][]interface{}{modelRow(model)})
}
