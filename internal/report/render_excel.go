package report

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"exspect/internal/table"
)

const XlsxPrimarySheetName = "Report"

func cellName(col int, row int) (name string) {
	columnName, err := excelize.ColumnNumberToName(col)
	if err != nil {
		return
	}
	name, err = excelize.JoinCellName(columnName, row)
	if err != nil {
		return
	}
	return
}

type xlsxStyles struct {
	tableName int
	header    int
	alignLeft int
	good      int
	bad       int
}

func newXlsxStyles(f *excelize.File) (styles xlsxStyles, err error) {
	if styles.tableName, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 12}}); err != nil {
		return
	}
	if styles.header, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return
	}
	if styles.alignLeft, err = f.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{Horizontal: "left"}}); err != nil {
		return
	}
	if styles.good, err = f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "left"},
		Font:      &excelize.Font{Color: "006100"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"C6EFCE"}},
	}); err != nil {
		return
	}
	styles.bad, err = f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "left"},
		Font:      &excelize.Font{Color: "9C0006", Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FFC7CE"}},
	})
	return
}

func renderXlsxTable(tableValues table.TableValues, f *excelize.File, styles xlsxStyles, sheetName string, row *int) {
	col := 1
	// print the table name
	_ = f.SetCellValue(sheetName, cellName(col, *row), tableValues.Name)
	_ = f.SetCellStyle(sheetName, cellName(col, *row), cellName(col, *row), styles.tableName)
	*row++
	if tableValues.NumRows() == 0 {
		msg := NoDataFound
		if tableValues.NoDataFound != "" {
			msg = tableValues.NoDataFound
		}
		_ = f.SetCellValue(sheetName, cellName(col, *row), msg)
		*row += 2
		return
	}
	DefaultXlsxTableRendererFunc(tableValues, f, styles, sheetName, row)
	*row++
}

func DefaultXlsxTableRendererFunc(tableValues table.TableValues, f *excelize.File, styles xlsxStyles, sheetName string, row *int) {
	cellStyle := func(field table.Field, idx int) int {
		if !field.Flagged() {
			return styles.alignLeft
		}
		switch field.Verdicts[idx] {
		case table.VerdictGood:
			return styles.good
		case table.VerdictBad:
			return styles.bad
		}
		return styles.alignLeft
	}
	if tableValues.HasRows {
		// print the field names as column headings across the top of the table
		col := 1
		for _, field := range tableValues.Fields {
			_ = f.SetCellValue(sheetName, cellName(col, *row), field.Name)
			_ = f.SetCellStyle(sheetName, cellName(col, *row), cellName(col, *row), styles.header)
			col++
		}
		*row++
		// print the rows
		for tableRow := range tableValues.NumRows() {
			col = 1
			for _, field := range tableValues.Fields {
				_ = f.SetCellValue(sheetName, cellName(col, *row), getValueForCell(field.Values[tableRow]))
				_ = f.SetCellStyle(sheetName, cellName(col, *row), cellName(col, *row), cellStyle(field, tableRow))
				col++
			}
			*row++
		}
	} else {
		// print the field name followed by its value
		for _, field := range tableValues.Fields {
			_ = f.SetCellValue(sheetName, cellName(1, *row), field.Name)
			_ = f.SetCellStyle(sheetName, cellName(1, *row), cellName(1, *row), styles.header)
			_ = f.SetCellValue(sheetName, cellName(2, *row), getValueForCell(field.Values[0]))
			_ = f.SetCellStyle(sheetName, cellName(2, *row), cellName(2, *row), cellStyle(field, 0))
			*row++
		}
	}
}

func createXlsxReport(allTableValues []table.TableValues) (out []byte, err error) {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()
	sheetName := XlsxPrimarySheetName
	_ = f.SetSheetName("Sheet1", sheetName)
	_ = f.SetColWidth(sheetName, "A", "A", 25)
	_ = f.SetColWidth(sheetName, "B", "L", 18)
	styles, err := newXlsxStyles(f)
	if err != nil {
		err = fmt.Errorf("failed to create xlsx styles: %w", err)
		return
	}
	row := 1
	for _, tableValues := range allTableValues {
		renderXlsxTable(tableValues, f, styles, sheetName, &row)
	}
	var buf bytes.Buffer
	if _, err = f.WriteTo(&buf); err != nil {
		err = fmt.Errorf("failed to write xlsx report to buffer: %w", err)
		return
	}
	out = buf.Bytes()
	return
}

func getValueForCell(value string) (val any) {
	intValue, err := strconv.Atoi(value)
	if err == nil {
		val = intValue
		return
	}
	floatValue, err := strconv.ParseFloat(value, 64)
	if err == nil {
		val = floatValue
		return
	}
	val = value
	return
}
