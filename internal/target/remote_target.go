package target

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"exspect/internal/extract"
)

// handshakeTimeout bounds the management handshake, in seconds.
const handshakeTimeout = 10

// SetSshPassPath sets the path to the sshpass binary (RemoteTarget only).
func (t *RemoteTarget) SetSshPassPath(sshpassPath string) {
	t.sshpassPath = sshpassPath
}

// SetSshPass sets the ssh password for the target (RemoteTarget only).
func (t *RemoteTarget) SetSshPass(sshPass string) {
	t.sshPass = sshPass
}

// RunCommand executes a command on the remote target using SSH. It prepares the
// local command to be executed, optionally reusing an existing SSH connection,
// and runs it with a specified timeout.
//
// Parameters:
//   - ctx: Cancels the local ssh client when done.
//   - cmd: The command to be executed, represented as an *exec.Cmd.
//   - timeout: The maximum duration (in seconds) to wait for the command to complete.
//   - reuseSSHConnection: A boolean indicating whether to reuse an existing SSH connection.
//
// Returns:
//   - stdout: The standard output of the executed command.
//   - stderr: The standard error output of the executed command.
//   - exitCode: The exit code returned by the command.
//   - err: An error object if the command execution fails.
func (t *RemoteTarget) RunCommand(ctx context.Context, cmd *exec.Cmd, timeout int, reuseSSHConnection bool) (stdout string, stderr string, exitCode int, err error) {
	localCommand := t.prepareLocalCommand(cmd, reuseSSHConnection)
	return runLocalCommandWithInputWithTimeout(ctx, localCommand, "", timeout)
}

// CanConnect opens a management session and asks PowerShell for its major version.
// A session that opens but cannot run PowerShell is not considered manageable. A deadline
// on ctx bounds the handshake; without one it is bounded by handshakeTimeout.
func (t *RemoteTarget) CanConnect(ctx context.Context) bool {
	timeout := handshakeTimeout
	if _, ok := ctx.Deadline(); ok {
		timeout = 0
	}
	stdout, stderr, exitCode, err := RunPowerShell(ctx, t, "$PSVersionTable.PSVersion.Major", timeout)
	if err != nil {
		slog.Debug("management handshake failed", slog.String("host", t.host), slog.String("stderr", stderr), slog.Int("exitCode", exitCode), slog.String("error", err.Error()))
		return false
	}
	version, ok := parseHandshakeReply(stdout)
	if !ok {
		slog.Debug("unexpected management handshake response", slog.String("host", t.host), slog.String("stdout", stdout))
		return false
	}
	slog.Debug("management handshake succeeded", slog.String("host", t.host), slog.Int("powershell", version))
	return true
}

// parseHandshakeReply returns the PowerShell major version from the handshake output.
// Banner lines around the version are ignored.
func parseHandshakeReply(stdout string) (int, bool) {
	version, err := strconv.Atoi(extract.ValFromRegexSubmatch(stdout, `^(\d+)$`))
	if err != nil {
		return 0, false
	}
	return version, true
}

// GetName returns the display name of the target, falling back to the host.
func (t *RemoteTarget) GetName() (host string) {
	if t.name == "" {
		return t.host
	}
	return t.name
}

func (t *RemoteTarget) GetHost() (host string) {
	return t.host
}

func (t *RemoteTarget) prepareSSHFlags(useControlMaster bool, prompt bool) (flags []string) {
	flags = []string{
		"-2",
		"-o",
		"UserKnownHostsFile=/dev/null",
		"-o",
		"StrictHostKeyChecking=no",
		"-o",
		"ConnectTimeout=10",
		"-o",
		"GSSAPIAuthentication=no",
		"-o",
		"ServerAliveInterval=30",
		"-o",
		"ServerAliveCountMax=10", // 30 * 10 = maximum 300 seconds before disconnect on no data
		"-o",
		"LogLevel=ERROR",
	}
	// turn on batch mode to avoid prompts for passwords
	if !prompt {
		flags = append(flags, "-o", "BatchMode=yes")
	}
	if useControlMaster {
		flags = append(flags,
			"-o",
			"ControlPath="+filepath.Join(os.TempDir(), fmt.Sprintf("control-%%h-%%p-%%r-%d", os.Getpid())),
			"-o",
			"ControlMaster=auto",
			"-o",
			"ControlPersist=1m",
		)
	}
	if t.key != "" {
		flags = append(flags,
			"-o",
			"PreferredAuthentications=publickey",
			"-o",
			"PasswordAuthentication=no",
			"-i",
			t.key,
		)
	}
	if t.port != "" {
		flags = append(flags, "-p", t.port)
	}
	return
}

func (t *RemoteTarget) prepareSSHCommand(command []string, useControlMaster bool, prompt bool) []string {
	var cmd []string
	cmd = append(cmd, "ssh")
	cmd = append(cmd, t.prepareSSHFlags(useControlMaster, prompt)...)
	if t.user != "" {
		cmd = append(cmd, t.user+"@"+t.host)
	} else {
		cmd = append(cmd, t.host)
	}
	cmd = append(cmd, "--")
	cmd = append(cmd, command...)
	return cmd
}

func (t *RemoteTarget) prepareLocalCommand(cmd *exec.Cmd, useControlMaster bool) *exec.Cmd {
	var name string
	var args []string
	usePass := t.key == "" && t.sshPass != "" && t.sshpassPath != ""
	sshCommand := t.prepareSSHCommand(cmd.Args, useControlMaster, usePass)
	if usePass {
		name = t.sshpassPath
		args = []string{"-e", "--"}
		args = append(args, sshCommand...)
	} else {
		name = sshCommand[0]
		args = sshCommand[1:]
	}
	localCommand := exec.Command(name, args...) // #nosec G204
	if usePass {
		localCommand.Env = append(os.Environ(), "SSHPASS="+t.sshPass)
	}
	return localCommand
}
