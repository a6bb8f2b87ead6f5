// Package report provides functions to generate reports in various formats such as txt, json, xlsx, prom.
package report

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"exspect/internal/table"
	"exspect/internal/util"
)

const (
	FormatXlsx = "xlsx"
	FormatJson = "json"
	FormatTxt  = "txt"
	FormatProm = "prom"
	FormatAll  = "all"
)

const NoDataFound = "No data found."

var FormatOptions = []string{FormatTxt, FormatJson, FormatXlsx, FormatProm}

// Create generates a report in the specified format from the provided tables.
// If the format is not supported, the function panics with an error message.
func Create(format string, allTableValues []table.TableValues) (out []byte, err error) {
	for _, tableValues := range allTableValues {
		if err = table.Validate(tableValues); err != nil {
			return nil, err
		}
	}
	switch format {
	case FormatTxt:
		return createTextReport(allTableValues, false)
	case FormatJson:
		return createJsonReport(allTableValues)
	case FormatXlsx:
		return createXlsxReport(allTableValues)
	case FormatProm:
		return createPromReport(allTableValues)
	}
	panic(fmt.Sprintf("expected one of %s, got %s", strings.Join(FormatOptions, ", "), format))
}

// CreateColorText generates the text report with good and bad cells colored for a terminal.
func CreateColorText(allTableValues []table.TableValues) (out []byte, err error) {
	for _, tableValues := range allTableValues {
		if err = table.Validate(tableValues); err != nil {
			return nil, err
		}
	}
	return createTextReport(allTableValues, true)
}

// ExpandFormats resolves "all" and removes duplicates, preserving order.
func ExpandFormats(formats []string) ([]string, error) {
	var expanded []string
	for _, format := range formats {
		if format == FormatAll {
			for _, f := range FormatOptions {
				expanded = util.UniqueAppend(expanded, f)
			}
			continue
		}
		if !slices.Contains(FormatOptions, format) {
			return nil, fmt.Errorf("format options are: %s", strings.Join(append(FormatOptions, FormatAll), ", "))
		}
		expanded = util.UniqueAppend(expanded, format)
	}
	return expanded, nil
}

// FileName returns the report file name for a format, e.g. inventory_20250101_120000.txt.
func FileName(prefix string, timestamp string, format string) string {
	return fmt.Sprintf("%s_%s.%s", prefix, timestamp, format)
}

// WriteReports writes one report file per format into outputDir and returns the file paths.
func WriteReports(outputDir string, prefix string, timestamp string, formats []string, allTableValues []table.TableValues) (reportFilePaths []string, err error) {
	for _, format := range formats {
		var out []byte
		if out, err = Create(format, allTableValues); err != nil {
			err = fmt.Errorf("failed to create %s report: %w", format, err)
			return
		}
		reportFilePath := filepath.Join(outputDir, FileName(prefix, timestamp, format))
		if err = os.WriteFile(reportFilePath, out, 0644); err != nil { // #nosec G306
			err = fmt.Errorf("failed to write %s report: %w", format, err)
			return
		}
		slog.Info("wrote report", slog.String("path", reportFilePath))
		reportFilePaths = append(reportFilePaths, reportFilePath)
	}
	return
}
