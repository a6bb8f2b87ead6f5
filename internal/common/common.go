// Package common defines data structures and functions that are used by multiple
// application commands, e.g., inventory and probe.
package common

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"exspect/internal/app"
	"exspect/internal/compliance"
	"exspect/internal/inventory"
	"exspect/internal/progress"
	"exspect/internal/report"
	"exspect/internal/table"
	"exspect/internal/util"
	"exspect/internal/view"
)

// pipeline flags
var (
	flagWorkers         int
	flagHostTimeout     int
	flagProbeTimeout    int
	flagStartRate       float64
	flagNewerGeneration string
)

// pipeline flag names
const (
	flagWorkersName         = "workers"
	flagHostTimeoutName     = "host-timeout"
	flagProbeTimeoutName    = "probe-timeout"
	flagStartRateName       = "start-rate"
	flagNewerGenerationName = "newer-generation"
)

// AddPipelineFlags adds the flags that tune the assessment run. The generation
// pattern only applies when the compliance rules are evaluated.
func AddPipelineFlags(cmd *cobra.Command, withGeneration bool) {
	defaults := inventory.DefaultConfig()
	cmd.Flags().IntVar(&flagWorkers, flagWorkersName, defaults.Workers, "")
	cmd.Flags().IntVar(&flagHostTimeout, flagHostTimeoutName, int(defaults.HostTimeout.Seconds()), "")
	cmd.Flags().IntVar(&flagProbeTimeout, flagProbeTimeoutName, int(defaults.ProbeTimeout.Seconds()), "")
	cmd.Flags().Float64Var(&flagStartRate, flagStartRateName, defaults.StartRate, "")
	if withGeneration {
		cmd.Flags().StringVar(&flagNewerGeneration, flagNewerGenerationName, compliance.DefaultNewerGenerationPattern, "")
	}
}

func GetPipelineFlagGroup(withGeneration bool) app.FlagGroup {
	flags := []app.Flag{
		{Name: flagWorkersName, Help: "number of servers assessed at once, 1 assesses servers in directory order"},
		{Name: flagHostTimeoutName, Help: "seconds allowed for each remote query"},
		{Name: flagProbeTimeoutName, Help: "seconds allowed for each reachability check"},
		{Name: flagStartRateName, Help: "maximum number of servers started per second, 0 for no limit"},
	}
	if withGeneration {
		flags = append(flags, app.Flag{Name: flagNewerGenerationName, Help: "regular expression matching the version of newer generation servers"})
	}
	return app.FlagGroup{
		GroupName: "Run Options",
		Flags:     flags,
	}
}

func ValidatePipelineFlags(cmd *cobra.Command) error {
	if _, err := PipelineConfig(cmd, false); err != nil {
		return err
	}
	return nil
}

// PipelineConfig builds the run configuration from the flags.
func PipelineConfig(cmd *cobra.Command, probeOnly bool) (inventory.Config, error) {
	cfg := inventory.DefaultConfig()
	cfg.Workers, _ = cmd.Flags().GetInt(flagWorkersName)
	hostTimeout, _ := cmd.Flags().GetInt(flagHostTimeoutName)
	cfg.HostTimeout = time.Duration(hostTimeout) * time.Second
	probeTimeout, _ := cmd.Flags().GetInt(flagProbeTimeoutName)
	cfg.ProbeTimeout = time.Duration(probeTimeout) * time.Second
	cfg.StartRate, _ = cmd.Flags().GetFloat64(flagStartRateName)
	if cmd.Flags().Lookup(flagNewerGenerationName) != nil {
		cfg.NewerGenerationPattern, _ = cmd.Flags().GetString(flagNewerGenerationName)
	}
	cfg.ProbeOnly = probeOnly
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	if _, err := compliance.NewEvaluator(cfg.NewerGenerationPattern); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// AddFormatFlags adds the report format and viewer flags.
func AddFormatFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&app.FlagFormat, app.FlagFormatName, []string{report.FormatAll}, "")
	cmd.Flags().BoolVar(&app.FlagInteractive, app.FlagInteractiveName, false, "")
}

func GetFormatFlagGroup() app.FlagGroup {
	return app.FlagGroup{
		GroupName: "Output Options",
		Flags: []app.Flag{
			{Name: app.FlagFormatName, Help: fmt.Sprintf("choose output format(s) from: %s", strings.Join(append([]string{report.FormatAll}, report.FormatOptions...), ", "))},
			{Name: app.FlagInteractiveName, Help: "browse the text report in a scrollable viewer"},
		},
	}
}

func ValidateFormatFlags(cmd *cobra.Command) error {
	formats, _ := cmd.Flags().GetStringSlice(app.FlagFormatName)
	_, err := report.ExpandFormats(formats)
	return err
}

// UsageFunc prints the command's flags by group, followed by the global flags.
func UsageFunc(getFlagGroups func() []app.FlagGroup) func(*cobra.Command) error {
	return func(cmd *cobra.Command) error {
		cmd.Printf("Usage: %s [flags]\n\n", cmd.CommandPath())
		if cmd.Example != "" {
			cmd.Printf("Examples:\n%s\n\n", cmd.Example)
		}
		cmd.Println("Flags:")
		for _, group := range getFlagGroups() {
			cmd.Printf("  %s:\n", group.GroupName)
			for _, flag := range group.Flags {
				flagDefault := ""
				if f := cmd.Flags().Lookup(flag.Name); f != nil && f.DefValue != "" && f.DefValue != "false" {
					flagDefault = fmt.Sprintf(" (default: %s)", f.DefValue)
				}
				cmd.Printf("    --%-20s %s%s\n", flag.Name, flag.Help, flagDefault)
			}
		}
		if cmd.HasParent() {
			cmd.Println("\nGlobal Flags:")
			cmd.Parent().PersistentFlags().VisitAll(func(pf *pflag.Flag) {
				flagDefault := ""
				if pf.DefValue != "" && pf.DefValue != "false" {
					flagDefault = fmt.Sprintf(" (default: %s)", pf.DefValue)
				}
				cmd.Printf("  --%-20s %s%s\n", pf.Name, pf.Usage, flagDefault)
			})
		}
		return nil
	}
}

func FlagValidationError(cmd *cobra.Command, msg string) error {
	err := errors.New(msg)
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	fmt.Fprintf(os.Stderr, "See '%s --help' for usage details.\n", cmd.CommandPath())
	cmd.SilenceUsage = true
	return err
}

// CreateOutputDir creates the output directory if it does not exist
func CreateOutputDir(outputDir string) error {
	if err := util.CreateDirectoryIfNotExists(outputDir, 0755); err != nil { // #nosec G301
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

// ReportingCommand is the shared flow of the inventory and probe commands: enumerate the
// servers, run the pipeline, then render and write the report.
type ReportingCommand struct {
	Cmd            *cobra.Command
	ReportNamePost string
	ProbeOnly      bool
	TablesFunc     func([]inventory.Row) []table.TableValues
}

func (rc *ReportingCommand) fail(err error) error {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	slog.Error(err.Error())
	rc.Cmd.SilenceUsage = true
	return err
}

// Run is the common flow/logic for the reporting commands. Directory failures and
// cancellation end the run with an error; when cancelled, the rows finished so far are
// still reported.
func (rc *ReportingCommand) Run() error {
	ctx := rc.Cmd.Parent().Context()
	appContext := ctx.Value(app.Context{}).(app.Context)
	cfg, err := PipelineConfig(rc.Cmd, rc.ProbeOnly)
	if err != nil {
		return rc.fail(err)
	}
	formats, err := report.ExpandFormats(app.FlagFormat)
	if err != nil {
		return rc.fail(err)
	}
	conn, err := GetConnection(rc.Cmd)
	if err != nil {
		return rc.fail(err)
	}
	hosts, err := GetHosts(ctx, rc.Cmd, GetHostSource(rc.Cmd, conn, cfg.HostTimeout))
	if err != nil {
		return rc.fail(err)
	}
	slog.Info("assessing hosts", slog.Int("count", len(hosts)), slog.Int("workers", cfg.Workers), slog.Bool("probeOnly", cfg.ProbeOnly))
	indicator := progress.NewIndicator()
	pipeline, err := inventory.NewPipeline(cfg, conn.NewTarget, indicator.Update)
	if err != nil {
		return rc.fail(err)
	}
	indicator.Start()
	rows, runErr := pipeline.Run(ctx, hosts)
	indicator.Finish()
	if runErr != nil {
		slog.Warn("run cancelled", slog.String("error", runErr.Error()))
	}
	tables := rc.TablesFunc(rows)
	if err = CreateOutputDir(appContext.OutputDir); err != nil {
		return rc.fail(err)
	}
	reportFilePaths, err := report.WriteReports(appContext.OutputDir, rc.ReportNamePost, appContext.Timestamp, formats, tables)
	if err != nil {
		return rc.fail(err)
	}
	if err = rc.display(tables, runErr == nil); err != nil {
		return rc.fail(err)
	}
	if len(reportFilePaths) > 0 {
		fmt.Println("Report files:")
	}
	for _, reportFilePath := range reportFilePaths {
		fmt.Printf("  %s\n", reportFilePath)
	}
	if runErr != nil {
		return rc.fail(fmt.Errorf("run did not complete: %w", runErr))
	}
	return nil
}

// display prints the text report to stdout, colored on a terminal, or opens it in the
// viewer when requested.
func (rc *ReportingCommand) display(tables []table.TableValues, allowInteractive bool) error {
	isTerminal := term.IsTerminal(int(os.Stdout.Fd()))
	var out []byte
	var err error
	if isTerminal {
		out, err = report.CreateColorText(tables)
	} else {
		out, err = report.Create(report.FormatTxt, tables)
	}
	if err != nil {
		return err
	}
	if app.FlagInteractive && allowInteractive && isTerminal {
		return view.Show(rc.Cmd.Parent().Context(), fmt.Sprintf("%s %s", app.Name, rc.ReportNamePost), string(out))
	}
	fmt.Print(string(out))
	return nil
}
