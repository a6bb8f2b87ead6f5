package report

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"exspect/internal/table"
)

var (
	colorGreen = lipgloss.Color("#10b981")
	colorRed   = lipgloss.Color("#ef4444")
	styleGood  = lipgloss.NewStyle().Foreground(colorGreen)
	styleBad   = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
)

// badMarker follows out-of-range values when the report is not colored.
const badMarker = " *"

func createTextReport(allTableValues []table.TableValues, color bool) (out []byte, err error) {
	var sb strings.Builder
	for _, tableValues := range allTableValues {
		sb.WriteString(fmt.Sprintf("%s\n", tableValues.Name))
		sb.WriteString(strings.Repeat("=", len(tableValues.Name)))
		sb.WriteString("\n")
		if tableValues.NumRows() == 0 {
			msg := NoDataFound
			if tableValues.NoDataFound != "" {
				msg = tableValues.NoDataFound
			}
			sb.WriteString(msg + "\n\n")
			continue
		}
		sb.WriteString(DefaultTextTableRendererFunc(tableValues, color))
		sb.WriteString("\n")
	}
	out = []byte(sb.String())
	return
}

// DefaultTextTableRendererFunc renders a table as padded columns, or as name: value lines
// when the table has no rows.
func DefaultTextTableRendererFunc(tableValues table.TableValues, color bool) string {
	var sb strings.Builder
	printer := message.NewPrinter(language.English)
	cells := make([][]string, len(tableValues.Fields))
	anyBad := false
	for i, field := range tableValues.Fields {
		cells[i] = make([]string, len(field.Values))
		for row, val := range field.Values {
			cells[i][row] = displayValue(printer, val)
			if !color && field.Flagged() && field.Verdicts[row] == table.VerdictBad {
				cells[i][row] += badMarker
				anyBad = true
			}
		}
	}
	if tableValues.HasRows { // print the field names as column headings across the top of the table
		// find the longest item per column -- can be the field name (column header) or a value
		maxFieldLen := make([]int, len(tableValues.Fields))
		for i, field := range tableValues.Fields {
			maxFieldLen[i] = len(field.Name)
			for _, val := range cells[i] {
				if n := lipgloss.Width(val); n > maxFieldLen[i] {
					maxFieldLen[i] = n
				}
			}
		}
		columnSpacing := 3
		// print the field names
		for i, field := range tableValues.Fields {
			sb.WriteString(pad(field.Name, maxFieldLen[i]+columnSpacing, i == len(tableValues.Fields)-1))
		}
		sb.WriteString("\n")
		// underline the field names
		for i, field := range tableValues.Fields {
			sb.WriteString(pad(strings.Repeat("-", len(field.Name)), maxFieldLen[i]+columnSpacing, i == len(tableValues.Fields)-1))
		}
		sb.WriteString("\n")
		// print the rows
		for row := range tableValues.NumRows() {
			for i, field := range tableValues.Fields {
				cell := pad(cells[i][row], maxFieldLen[i]+columnSpacing, i == len(tableValues.Fields)-1)
				if color && field.Flagged() {
					cell = styleVerdict(field.Verdicts[row], cell)
				}
				sb.WriteString(cell)
			}
			sb.WriteString("\n")
		}
	} else {
		// get the longest field name to format the table nicely
		maxFieldNameLen := 0
		for _, field := range tableValues.Fields {
			if len(field.Name) > maxFieldNameLen {
				maxFieldNameLen = len(field.Name)
			}
		}
		// print the field names followed by their value
		for i, field := range tableValues.Fields {
			var value string
			if len(cells[i]) > 0 {
				value = cells[i][0]
				if color && field.Flagged() {
					value = styleVerdict(field.Verdicts[0], value)
				}
			}
			sb.WriteString(fmt.Sprintf("%s%-*s %s\n", field.Name, maxFieldNameLen-len(field.Name)+1, ":", value))
		}
	}
	if anyBad {
		sb.WriteString(strings.TrimSpace(badMarker) + " outside recommended range\n")
	}
	return sb.String()
}

// pad right-pads s to width. The last column is not padded.
func pad(s string, width int, last bool) string {
	if last {
		return s
	}
	if n := lipgloss.Width(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

func styleVerdict(v table.Verdict, s string) string {
	trimmed := strings.TrimRight(s, " ")
	padding := s[len(trimmed):]
	switch v {
	case table.VerdictGood:
		return styleGood.Render(trimmed) + padding
	case table.VerdictBad:
		return styleBad.Render(trimmed) + padding
	}
	return s
}

// displayValue adds thousands separators to integers.
func displayValue(printer *message.Printer, val string) string {
	if n, err := strconv.ParseInt(val, 10, 64); err == nil {
		return printer.Sprintf("%d", n)
	}
	return val
}
