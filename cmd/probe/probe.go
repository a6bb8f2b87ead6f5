// Package probe is a subcommand of the root command. It checks which servers in the
// directory can be reached and managed, without collecting metrics.
package probe

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

const cmdName = "probe"

var examples = []string{
	fmt.Sprintf("  Servers listed in a file:     $ %s %s --hosts hosts.yaml --user admin --key admin_key", app.Name, cmdName),
	fmt.Sprintf("  Servers from the directory:   $ %s %s --directory-host mgmt01 --user admin --workers 16", app.Name, cmdName),
}

var Cmd = &cobra.Command{
	Use:           cmdName,
	Short:         "Report which servers answer ping and accept remote management",
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
	common.AddPipelineFlags(Cmd, false)
	common.AddFormatFlags(Cmd)

	Cmd.SetUsageFunc(common.UsageFunc(getFlagGroups))
}

func getFlagGroups() []app.FlagGroup {
	return []app.FlagGroup{
		common.GetHostFlagGroup(),
		common.GetConnectionFlagGroup(),
		common.GetPipelineFlagGroup(false),
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
	if err := common.ValidateTargetFlags(cmd); err != nil {
		return common.FlagValidationError(cmd, err.Error())
	}
	return nil
}

func runCmd(cmd *cobra.Command, args []string) error {
	reportingCommand := common.ReportingCommand{
		Cmd:            cmd,
		ReportNamePost: cmdName,
		ProbeOnly:      true,
		TablesFunc:     report.ReachabilityTables,
	}
	return reportingCommand.Run()
}
