package db

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jakechorley/hourbank/pkg/core/model"
	"github.com/jakechorley/hourbank/pkg/sheetssql"
)

const propertyTable = "property"

// DB provides database operations using SheetsSQL
type DB struct {
	ssql *sheetssql.DB
}

// NewDB creates a new database instance
func NewDB(ssql *sheetssql.DB) *DB {
	return &DB{
		ssql: ssql,
	}
}

// PoolTable returns the sheet backing a pool
func PoolTable(pool model.PoolKind) string {
	switch pool {
	case model.PoolRest:
		return "rest_reservation"
	case model.PoolOvertime:
		return "overtime_reservation"
	default:
		return "work_reservation"
	}
}

// Schema returns the tables the sheets backend needs
func Schema() (*sheetssql.Schema, error) {
	schema := &sheetssql.Schema{}
	for _, pool := range model.Pools {
		table, err := sheetssql.NamedTable(PoolTable(pool), Reservation{})
		if err != nil {
			return nil, err
		}
		schema.Tables = append(schema.Tables, table)
	}

	property, err := sheetssql.NamedTable(propertyTable, Property{})
	if err != nil {
		return nil, err
	}
	schema.Tables = append(schema.Tables, property)
	return schema, nil
}

// GetCounter reads a counter from the property table
func (db *DB) GetCounter(ctx context.Context, name string) (int64, bool, error) {
	rows, err := sheetssql.FindRowsAs[Property](db.ssql, propertyTable, "name", name)
	if err != nil {
		return 0, false, fmt.Errorf("failed to get property %s: %w", name, err)
	}
	if len(rows) == 0 {
		return 0, false, nil
	}

	value, err := strconv.ParseInt(rows[0].Value.Value, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	return value, true, nil
}

// SetCounter writes a counter to the property table, adding the row if needed
func (db *DB) SetCounter(ctx context.Context, name string, value int64) error {
	rows, err := sheetssql.FindRowsAs[Property](db.ssql, propertyTable, "name", name)
	if err != nil {
		return fmt.Errorf("failed to get property %s: %w", name, err)
	}

	prop := Property{Name: name, Value: strconv.FormatInt(value, 10)}
	if len(rows) == 0 {
		if _, err := sheetssql.WriteModelsAtFirstVacant(db.ssql, propertyTable, []Property{prop}); err != nil {
			return fmt.Errorf("failed to insert property %s: %w", name, err)
		}
		return nil
	}

	if err := sheetssql.UpdateModelAt(db.ssql, propertyTable, rows[0].Number, prop); err != nil {
		return fmt.Errorf("failed to update property %s: %w", name, err)
	}
	return nil
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
