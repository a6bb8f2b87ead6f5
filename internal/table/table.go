// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

// Package table provides the table model shared by the report renderers.
package table

import (
	"fmt"
	"log/slog"
)

// Verdict marks a flagged cell as good or bad.
type Verdict int

const (
	VerdictNone Verdict = iota
	VerdictGood
	VerdictBad
)

// VerdictOf converts a check result into a Verdict.
func VerdictOf(ok bool) Verdict {
	if ok {
		return VerdictGood
	}
	return VerdictBad
}

func (v Verdict) String() string {
	switch v {
	case VerdictGood:
		return "OK"
	case VerdictBad:
		return "NOK"
	}
	return ""
}

// Field represents the values for a field in a table
type Field struct {
	Name        string
	Description string // optional description of the field
	Values      []string
	// Verdicts, when set, flags each value as good or bad. Same length as Values.
	Verdicts []Verdict
	// Metric, when set, exports numeric values under this metric name.
	Metric string
}

// Flagged reports whether the field carries per-value verdicts.
func (f Field) Flagged() bool {
	return f.Verdicts != nil
}

// TableDefinition defines the structure of a table in the report
type TableDefinition struct {
	Name        string
	HasRows     bool   // table is meant to be displayed in row form, i.e., a field may have multiple values
	NoDataFound string // message to display when no data is found
	KeyField    string // field identifying a row, used as the metric label
}

// TableValues combines the table definition with the resulting fields and their values
type TableValues struct {
	TableDefinition
	Fields []Field
}

// NumRows returns the number of values in the first field.
func (tv TableValues) NumRows() int {
	if len(tv.Fields) == 0 {
		return 0
	}
	return len(tv.Fields[0].Values)
}

// GetFieldIndex returns the index of a field with the given name in the TableValues structure.
// Returns:
//   - int: The index of the field if found and valid, -1 otherwise
//   - error: nil if successful, an error describing the issue otherwise
func GetFieldIndex(fieldName string, tableValues TableValues) (int, error) {
	for i, field := range tableValues.Fields {
		if field.Name == fieldName {
			if len(field.Values) == 0 {
				return -1, fmt.Errorf("field [%s] does not have associated value(s)", field.Name)
			}
			return i, nil
		}
	}
	return -1, fmt.Errorf("field [%s] not found in table [%s]", fieldName, tableValues.Name)
}

// Validate checks that the table is well formed.
func Validate(tableValues TableValues) error {
	if tableValues.Name == "" {
		return fmt.Errorf("table name cannot be empty")
	}
	// no field values is a valid state
	if len(tableValues.Fields) == 0 {
		return nil
	}
	numValues := len(tableValues.Fields[0].Values)
	for i, field := range tableValues.Fields {
		if field.Name == "" {
			return fmt.Errorf("table %s, field %d, name cannot be empty", tableValues.Name, i)
		}
		if len(field.Values) != numValues {
			return fmt.Errorf("table %s, field %s, expected %d value(s), found %d", tableValues.Name, field.Name, numValues, len(field.Values))
		}
		if field.Verdicts != nil && len(field.Verdicts) != numValues {
			return fmt.Errorf("table %s, field %s, expected %d verdict(s), found %d", tableValues.Name, field.Name, numValues, len(field.Verdicts))
		}
	}
	if tableValues.KeyField != "" {
		if _, err := GetFieldIndex(tableValues.KeyField, tableValues); err != nil && numValues > 0 {
			slog.Error("key field missing", slog.String("table", tableValues.Name), slog.String("error", err.Error()))
			return err
		}
	}
	return nil
}
