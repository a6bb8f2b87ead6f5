package report

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

// tables.go builds the report tables from the assessed rows

import (
	"math"
	"strconv"

	"exspect/internal/compliance"
	"exspect/internal/inventory"
	"exspect/internal/probe"
	"exspect/internal/table"
)

const (
	HostsTableName        = "Hosts"
	SummaryTableName      = "Summary"
	ReachabilityTableName = "Reachability"
)

const (
	ServerFieldName  = "Server"
	CommentFieldName = "Comment"
)

// InventoryTables returns the summary and one row per host in directory order. Assessed
// hosts carry flagged columns; hosts that could not be assessed carry only the comment.
func InventoryTables(rows []inventory.Row) []table.TableValues {
	hosts := table.TableValues{
		TableDefinition: table.TableDefinition{Name: HostsTableName, HasRows: true, KeyField: ServerFieldName, NoDataFound: "No hosts found."},
		Fields: []table.Field{
			{Name: ServerFieldName},
			{Name: "Physical Cores", Metric: "physical_cores"},
			{Name: "Logical Cores", Metric: "logical_cores", Verdicts: []table.Verdict{}},
			{Name: "RAM GB", Metric: "ram_gigabytes", Verdicts: []table.Verdict{}},
			{Name: "CPU %", Metric: "cpu_utilization_percent", Verdicts: []table.Verdict{}},
			{Name: "Available Memory GB", Metric: "available_memory_gigabytes"},
			{Name: "Available Memory %", Metric: "available_memory_percent", Verdicts: []table.Verdict{}},
			{Name: "Pagefile Auto"},
			{Name: "Initial MB", Metric: "pagefile_initial_megabytes"},
			{Name: "Maximum MB", Metric: "pagefile_maximum_megabytes"},
			{Name: "Expected MB", Metric: "pagefile_expected_megabytes"},
			{Name: "Pagefile OK", Verdicts: []table.Verdict{}},
			{Name: CommentFieldName},
		},
	}
	var assessed, coreOK, ramOK, pagefileOK int
	fields := hosts.Fields
	for _, row := range rows {
		appendCell(&fields[0], row.Host.Name)
		if row.Failed() || row.Snapshot == nil || row.Compliance == nil {
			// metric cells stay empty and unflagged
			for i := 1; i < len(fields)-1; i++ {
				appendCell(&fields[i], "")
				if fields[i].Flagged() {
					fields[i].Verdicts = append(fields[i].Verdicts, table.VerdictNone)
				}
			}
			appendCell(&fields[len(fields)-1], row.Comment())
			continue
		}
		s, c := row.Snapshot, row.Compliance
		availPct := compliance.AvailableMemoryPercent(s.AvailMemMB, s.RAMTotalMB)
		appendCell(&fields[1], strconv.Itoa(s.PhysicalCores))
		appendFlaggedCell(&fields[2], strconv.Itoa(s.LogicalCores), c.CoreCountOK)
		appendFlaggedCell(&fields[3], formatFloat(float64(s.RAMTotalMB)/1024), c.RAMSizeOK)
		appendFlaggedCell(&fields[4], formatFloat(s.CPUUtilPercent), compliance.CPUUtilizationOK(s.CPUUtilPercent))
		appendCell(&fields[5], formatFloat(s.AvailMemMB/1024))
		appendFlaggedCell(&fields[6], formatFloat(availPct), compliance.AvailableMemoryOK(s.AvailMemMB, s.RAMTotalMB))
		appendCell(&fields[7], yesNo(s.Pagefile.SystemManaged))
		appendCell(&fields[8], strconv.FormatInt(s.Pagefile.InitialSizeMB, 10))
		appendCell(&fields[9], strconv.FormatInt(s.Pagefile.MaximumSizeMB, 10))
		appendCell(&fields[10], strconv.FormatInt(c.ExpectedPagefileMB, 10))
		appendFlaggedCell(&fields[11], yesNo(c.PagefileOK), c.PagefileOK)
		appendCell(&fields[12], "")
		assessed++
		if c.CoreCountOK {
			coreOK++
		}
		if c.RAMSizeOK {
			ramOK++
		}
		if c.PagefileOK {
			pagefileOK++
		}
	}
	summary := table.TableValues{
		TableDefinition: table.TableDefinition{Name: SummaryTableName},
		Fields: []table.Field{
			{Name: "Hosts", Metric: "hosts", Values: []string{strconv.Itoa(len(rows))}},
			{Name: "Assessed", Metric: "hosts_assessed", Values: []string{strconv.Itoa(assessed)}},
			{Name: "Not Assessed", Metric: "hosts_not_assessed", Values: []string{strconv.Itoa(len(rows) - assessed)}},
			{Name: "Core Count Compliant", Metric: "hosts_core_count_compliant", Values: []string{strconv.Itoa(coreOK)}},
			{Name: "RAM Size Compliant", Metric: "hosts_ram_size_compliant", Values: []string{strconv.Itoa(ramOK)}},
			{Name: "Pagefile Compliant", Metric: "hosts_pagefile_compliant", Values: []string{strconv.Itoa(pagefileOK)}},
		},
	}
	return []table.TableValues{summary, hosts}
}

// ReachabilityTables returns the probe outcome of every host in directory order.
func ReachabilityTables(rows []inventory.Row) []table.TableValues {
	reachability := table.TableValues{
		TableDefinition: table.TableDefinition{Name: ReachabilityTableName, HasRows: true, KeyField: ServerFieldName},
		Fields: []table.Field{
			{Name: ServerFieldName},
			{Name: "FQDN"},
			{Name: "Outcome", Verdicts: []table.Verdict{}},
			{Name: "Resolved IP"},
		},
	}
	fields := reachability.Fields
	for _, row := range rows {
		appendCell(&fields[0], row.Host.Name)
		appendCell(&fields[1], row.Host.FQDN)
		if row.Stage == inventory.StageDirectory {
			// a duplicate entry must not overwrite the first entry's check
			appendCell(&fields[2], row.Comment())
			fields[2].Verdicts = append(fields[2].Verdicts, table.VerdictNone)
			appendCell(&fields[3], "")
			continue
		}
		if row.Outcome == nil {
			appendFlaggedCell(&fields[2], string(row.Stage), false)
			appendCell(&fields[3], "")
			continue
		}
		appendFlaggedCell(&fields[2], row.Outcome.Kind.String(), row.Outcome.Kind == probe.Reachable)
		appendCell(&fields[3], row.Outcome.ResolvedIP)
	}
	return []table.TableValues{reachability}
}

func appendCell(field *table.Field, value string) {
	field.Values = append(field.Values, value)
}

func appendFlaggedCell(field *table.Field, value string, ok bool) {
	field.Values = append(field.Values, value)
	field.Verdicts = append(field.Verdicts, table.VerdictOf(ok))
}

// formatFloat rounds to one decimal and drops a trailing ".0".
func formatFloat(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
