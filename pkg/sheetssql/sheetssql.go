package sheetssql

import (
	"fmt"
)

// SheetsClient defines the interface for sheets operations
type SheetsClient interface {
	GetValues(spreadsheetID, sheetRange string) ([][]interface{}, error)
	AppendRows(spreadsheetID, sheetRange string, values [][]interface{}) error
	UpdateValues(spreadsheetID, sheetRange string, values [][]interface{}) error
	DeleteRows(spreadsheetID string, sheetID, startIndex, endIndex int64) error
	CreateSheet(spreadsheetID, sheetTitle string) (int64, error)
	ListSheets(spreadsheetID string) (map[string]int64, error)
}

// Column defines a column with name and type
type Column struct {
	Name string
	Type string // e.g., "text", "date", "int", "bool", "id"
}

// TableSchema defines the structure of a table
type TableSchema struct {
	Name    string
	Columns []Column
}

// Schema defines the database schema
type Schema struct {
	Tables []TableSchema
}

// DB represents a connection to a Google Sheets "database"
type DB struct {
	client        SheetsClient
	spreadsheetID string
	schema        *Schema
	sheetIDs      map[string]int64
}

// NewDB creates a new Sheets SQL database connection and ensures schema exists
func NewDB(client SheetsClient, spreadsheetID string, schema *Schema) (*DB, error) {
	db := &DB{
		client:        client,
		spreadsheetID: spreadsheetID,
		schema:        schema,
		sheetIDs:      make(map[string]int64),
	}

	if err := db.ensureSchema(); err != nil {
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	return db, nil
}

// Client returns the underlying sheets client
func (db *DB) Client() SheetsClient {
	return db.client
}

// SpreadsheetID returns the database spreadsheet ID
func (db *DB) SpreadsheetID() string {
	return db.spreadsheetID
}

// InsertRow appends a single row to the specified table
func (db *DB) InsertRow(tableName string, row []interface{}) error {
	return db.client.AppendRows(db.spreadsheetID, tableName, [][]interface{}{row})
}

// InsertRows appends multiple rows to the specified table
func (db *DB) InsertRows(tableName string, rows [][]interface{}) error {
	return db.client.AppendRows(db.spreadsheetID, tableName, rows)
}

// WriteRowsAt overwrites rows starting at the 1-based sheet row number
func (db *DB) WriteRowsAt(tableName string, rowNumber int, rows [][]interface{}) error {
	return db.client.UpdateValues(db.spreadsheetID, fmt.Sprintf("%s!A%d", tableName, rowNumber), rows)
}

// DeleteRow removes the 1-based sheet row from the table, shifting later rows up
func (db *DB) DeleteRow(tableName string, rowNumber int) error {
	if rowNumber <= dataStartRow-1 {
		return fmt.Errorf("row %d is part of the table header", rowNumber)
	}
	sheetID, ok := db.sheetIDs[tableName]
	if !ok {
		return fmt.Errorf("unknown table %s", tableName)
	}
	return db.client.DeleteRows(db.spreadsheetID, sheetID, int64(rowNumber-1), int64(rowNumber))
}
