package common

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"exspect/internal/app"
	"exspect/internal/directory"
	"exspect/internal/target"
	"exspect/internal/util"
)

// host source and connection flags
var (
	flagHostsFile     string
	flagDirectoryHost string
	flagFilter        string
	flagTargetPort    string
	flagTargetUser    string
	flagTargetKeyFile string
	flagAskPassword   bool
)

// host source and connection flag names
const (
	flagHostsFileName     = "hosts"
	flagDirectoryHostName = "directory-host"
	flagFilterName        = "filter"
	flagTargetPortName    = "port"
	flagTargetUserName    = "user"
	flagTargetKeyName     = "key"
	flagAskPasswordName   = "password"
)

var hostFlags = []app.Flag{
	{Name: flagHostsFileName, Help: "YAML file listing the mail servers to assess. See hosts.yaml for format."},
	{Name: flagDirectoryHostName, Help: "management host used to query the server directory"},
	{Name: flagFilterName, Help: "regular expression, only servers whose name matches are assessed"},
}

var connectionFlags = []app.Flag{
	{Name: flagTargetPortName, Help: "port for SSH to the servers"},
	{Name: flagTargetUserName, Help: "user name for SSH to the servers"},
	{Name: flagTargetKeyName, Help: "private key file for SSH to the servers"},
	{Name: flagAskPasswordName, Help: "prompt once for the SSH password used for every server, requires sshpass"},
}

var (
	userNameRe = regexp.MustCompile(`^([a-zA-Z0-9_.\\-]+)$`)
	hostNameRe = regexp.MustCompile(`^([a-zA-Z0-9.-]+)$`)
)

// AddTargetFlags adds the host source and connection flags to cmd.
func AddTargetFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagHostsFile, flagHostsFileName, "", hostFlags[0].Help)
	cmd.Flags().StringVar(&flagDirectoryHost, flagDirectoryHostName, "", hostFlags[1].Help)
	cmd.Flags().StringVar(&flagFilter, flagFilterName, "", hostFlags[2].Help)
	cmd.Flags().StringVar(&flagTargetPort, flagTargetPortName, "", connectionFlags[0].Help)
	cmd.Flags().StringVar(&flagTargetUser, flagTargetUserName, "", connectionFlags[1].Help)
	cmd.Flags().StringVar(&flagTargetKeyFile, flagTargetKeyName, "", connectionFlags[2].Help)
	cmd.Flags().BoolVar(&flagAskPassword, flagAskPasswordName, false, connectionFlags[3].Help)

	cmd.MarkFlagsMutuallyExclusive(flagHostsFileName, flagDirectoryHostName)
	cmd.MarkFlagsOneRequired(flagHostsFileName, flagDirectoryHostName)
	cmd.MarkFlagsMutuallyExclusive(flagTargetKeyName, flagAskPasswordName)
}

func GetHostFlagGroup() app.FlagGroup {
	return app.FlagGroup{
		GroupName: "Server Selection Options",
		Flags:     hostFlags,
	}
}

func GetConnectionFlagGroup() app.FlagGroup {
	return app.FlagGroup{
		GroupName: "Connection Options",
		Flags:     connectionFlags,
	}
}

func ValidateTargetFlags(cmd *cobra.Command) error {
	if flagHostsFile != "" && flagDirectoryHost != "" {
		return fmt.Errorf("only one of --%s or --%s can be specified", flagHostsFileName, flagDirectoryHostName)
	}
	if flagHostsFile == "" && flagDirectoryHost == "" {
		return fmt.Errorf("one of --%s or --%s must be specified", flagHostsFileName, flagDirectoryHostName)
	}
	if flagTargetKeyFile != "" && flagAskPassword {
		return fmt.Errorf("only one of --%s or --%s can be specified", flagTargetKeyName, flagAskPasswordName)
	}
	// confirm that the hosts file exists
	if flagHostsFile != "" {
		exists, err := util.FileExists(flagHostsFile)
		if err != nil || !exists {
			return fmt.Errorf("hosts file %s does not exist", flagHostsFile)
		}
	}
	// confirm that the directory host is a valid host name or IP address
	if flagDirectoryHost != "" && !hostNameRe.MatchString(flagDirectoryHost) {
		return fmt.Errorf("host name %s is not a valid host name or IP address", flagDirectoryHost)
	}
	if flagFilter != "" {
		if _, err := regexp.Compile(flagFilter); err != nil {
			return fmt.Errorf("filter %s is not a valid regular expression: %v", flagFilter, err)
		}
	}
	// confirm that port is a positive integer
	if flagTargetPort != "" {
		if port, err := strconv.Atoi(flagTargetPort); err != nil || port <= 0 {
			return fmt.Errorf("port %s is not a positive integer", flagTargetPort)
		}
	}
	// confirm that the key file exists
	if flagTargetKeyFile != "" {
		keyPath, err := util.AbsPath(flagTargetKeyFile)
		if err != nil {
			return fmt.Errorf("failed to expand key file path %s: %v", flagTargetKeyFile, err)
		}
		if exists, err := util.FileExists(keyPath); err != nil || !exists {
			return fmt.Errorf("key file %s does not exist", flagTargetKeyFile)
		}
		flagTargetKeyFile = keyPath
	}
	// confirm that user is a valid user name, DOMAIN\user is allowed
	if flagTargetUser != "" && !userNameRe.MatchString(flagTargetUser) {
		return fmt.Errorf("user name %s contains invalid characters", flagTargetUser)
	}
	if flagAskPassword && flagTargetUser == "" {
		return fmt.Errorf("--%s requires --%s", flagAskPasswordName, flagTargetUserName)
	}
	return nil
}

// Connection holds the SSH details shared by every server in the run.
type Connection struct {
	Port        string
	User        string
	Key         string
	Password    string
	SshpassPath string
}

// NewTarget returns the management channel for host, addressed by its FQDN.
func (c Connection) NewTarget(host directory.Host) target.Target {
	t := target.NewRemoteTarget(host.Name, host.FQDN, c.Port, c.User, c.Key)
	if c.Password != "" {
		t.SetSshPass(c.Password)
		t.SetSshPassPath(c.SshpassPath)
	}
	return t
}

// GetConnection builds the connection details from the flags, prompting for the SSH
// password when requested.
func GetConnection(cmd *cobra.Command) (conn Connection, err error) {
	conn.Port, _ = cmd.Flags().GetString(flagTargetPortName)
	conn.User, _ = cmd.Flags().GetString(flagTargetUserName)
	conn.Key = flagTargetKeyFile
	askPassword, _ := cmd.Flags().GetBool(flagAskPasswordName)
	if !askPassword {
		return
	}
	if conn.SshpassPath, err = exec.LookPath("sshpass"); err != nil {
		err = fmt.Errorf("sshpass is required for password authentication: %w", err)
		return
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		err = fmt.Errorf("can not prompt for SSH password because STDIN isn't coming from a terminal")
		return
	}
	slog.Info("Prompting for SSH password.", slog.String("user", conn.User))
	conn.Password, err = getPassword(fmt.Sprintf("%s's password", conn.User))
	return
}

// GetHostSource returns the directory source selected by the flags.
func GetHostSource(cmd *cobra.Command, conn Connection, timeout time.Duration) directory.Source {
	hostsFile, _ := cmd.Flags().GetString(flagHostsFileName)
	if hostsFile != "" {
		return directory.FileSource{Path: hostsFile}
	}
	directoryHost, _ := cmd.Flags().GetString(flagDirectoryHostName)
	return directory.RemoteSource{
		Target:  conn.NewTarget(directory.Host{Name: directoryHost, FQDN: directoryHost}),
		Timeout: timeout,
	}
}

// GetHosts enumerates the hosts from the selected source and applies the name filter.
func GetHosts(ctx context.Context, cmd *cobra.Command, source directory.Source) ([]directory.Host, error) {
	hosts, err := source.Hosts(ctx)
	if err != nil {
		return nil, err
	}
	filter, _ := cmd.Flags().GetString(flagFilterName)
	if filter == "" {
		return hosts, nil
	}
	re, err := regexp.Compile(filter)
	if err != nil {
		return nil, fmt.Errorf("invalid filter: %w", err)
	}
	filtered := directory.Filter(hosts, re)
	slog.Info("filtered hosts", slog.String("filter", filter), slog.Int("before", len(hosts)), slog.Int("after", len(filtered)))
	if len(filtered) == 0 {
		return nil, fmt.Errorf("%w: no hosts match filter %s", directory.ErrDirectoryUnavailable, filter)
	}
	return filtered, nil
}

// getPassword prompts the user for a password and returns it as a string.
// The user's input is hidden as they type.
func getPassword(prompt string) (string, error) {
	fmt.Fprintf(os.Stderr, "\n%s: ", prompt)
	pwd, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", err
	}
	fmt.Fprintf(os.Stderr, "\n") // newline after password
	return string(pwd), nil
}
