package report

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"encoding/json"

	"exspect/internal/table"
)

// VerdictSuffix names the companion JSON field that carries a flagged value's verdict.
const VerdictSuffix = " Verdict"

func createJsonReport(allTableValues []table.TableValues) (out []byte, err error) {
	type outRecord map[string]string
	type outTable []outRecord
	type outReport map[string]outTable
	oReport := make(outReport)
	for _, tableValues := range allTableValues {
		oTable := outTable{}
		for recordIdx := range tableValues.NumRows() {
			oRecord := make(outRecord)
			for _, field := range tableValues.Fields {
				oRecord[field.Name] = field.Values[recordIdx]
				if field.Flagged() && field.Verdicts[recordIdx] != table.VerdictNone {
					oRecord[field.Name+VerdictSuffix] = field.Verdicts[recordIdx].String()
				}
			}
			oTable = append(oTable, oRecord)
		}
		oReport[tableValues.Name] = oTable
	}
	return json.MarshalIndent(oReport, "", " ")
}
