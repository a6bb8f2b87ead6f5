// Package inventory is a subcommand of the root command. It assesses every server in the
// directory and reports its sizing against the recommended configuration.
package inventory

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"strings"

	"exspect/internal/app"
	"exspect/internal/common"
	"exspect/internal/report"

	"github.com/spf13/cobra"
)

const cmdName = "inventory"

var examples = []string{
	fmt.Sprintf("  Servers listed in a file:             $ %s %s --hosts hosts.yaml --user admin --key admin_key", app.Name, cmdName),
	fmt.Sprintf("  Servers from the directory:           $ %s %s --directory-host mgmt01 --user admin --password", app.Name, cmdName),
	fmt.Sprintf("  Mailbox servers only, 8 at a time:    $ %s %s --hosts hosts.yaml --filter '^MBX' --workers 8", app.Name, cmdName),
	fmt.Sprintf("  Spreadsheet and metrics only:         $ %s %s --hosts hosts.yaml --format xlsx,prom", app.Name, cmdName),
}

var Cmd = &cobra.Command{
	Use:           cmdName,
	Aliases:       []string{"inv"},
	Short:         "Report core count, memory and pagefile compliance of the servers",
	Long:          "",
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	PreRunE:       validateFlags,
	GroupID:       "primary",
	Args:          cobra.NoArgs,
	SilenceErrors: true,
}

func init() {
	common.AddTargetFlags(Cmd)
	common.AddPipelineFlags(Cmd, true)
	common.AddFormatFlags(Cmd)

	Cmd.SetUsageFunc(common.UsageFunc(getFlagGroups))
}

func getFlagGroups() []app.FlagGroup {
	return []app.FlagGroup{
		common.GetHostFlagGroup(),
		common.GetConnectionFlagGroup(),
		common.GetPipelineFlagGroup(true),
		common.GetFormatFlagGroup(),
	}
}

func validateFlags(cmd *cobra.Command, args []string) error {
	if err := common.ValidateFormatFlags(cmd); err != nil {
		return common.FlagValidationError(cmd, err.Error())
	}
	if err := common.ValidatePipelineFlags(cmd); err != nil {
		return common.FlagValidationError(cmd, err.Error())
	}
	// common target flags
	if err := common.ValidateTargetFlags(cmd); err != nil {
		return common.FlagValidationError(cmd, err.Error())
	}
	return nil
}

func runCmd(cmd *cobra.Command, args []string) error {
	reportingCommand := common.ReportingCommand{
		Cmd:            cmd,
		ReportNamePost: cmdName,
		TablesFunc:     report.InventoryTables,
	}
	return reportingCommand.Run()
}
