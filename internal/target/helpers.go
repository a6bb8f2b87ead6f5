package target

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
)

// ErrTimeout is returned when a command does not finish within its timeout.
var ErrTimeout = errors.New("command timed out")

// EncodePowerShell encodes a PowerShell script for use with -EncodedCommand, which
// expects base64 of the UTF-16LE script text. Encoding avoids quoting problems when
// the command line passes through the remote login shell.
func EncodePowerShell(script string) (string, error) {
	encoder := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder()
	utf16, err := encoder.String(script)
	if err != nil {
		return "", fmt.Errorf("failed to encode PowerShell script: %w", err)
	}
	return base64.StdEncoding.EncodeToString([]byte(utf16)), nil
}

// PowerShellCommand builds the command that runs the given script in a non-interactive
// PowerShell session on the target.
func PowerShellCommand(script string) (*exec.Cmd, error) {
	encoded, err := EncodePowerShell(script)
	if err != nil {
		return nil, err
	}
	return exec.Command("powershell", "-NoLogo", "-NoProfile", "-NonInteractive", "-ExecutionPolicy", "Bypass", "-EncodedCommand", encoded), nil // #nosec G204
}

// RunPowerShell runs a PowerShell script on the target and returns its output.
func RunPowerShell(ctx context.Context, t Target, script string, timeout int) (stdout string, stderr string, exitCode int, err error) {
	cmd, err := PowerShellCommand(script)
	if err != nil {
		return
	}
	return t.RunCommand(ctx, cmd, timeout, true)
}

func runLocalCommandWithInputWithTimeout(ctx context.Context, cmd *exec.Cmd, input string, timeout int) (stdout string, stderr string, exitCode int, err error) {
	logInput := ""
	if input != "" {
		logInput = "******"
	}
	slog.Debug("running local command", slog.String("cmd", cmd.String()), slog.String("input", logInput), slog.Int("timeout", timeout))
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
		defer cancel()
	}
	commandWithContext := exec.CommandContext(ctx, cmd.Path, cmd.Args[1:]...) // #nosec G204
	commandWithContext.Env = cmd.Env
	cmd = commandWithContext
	if input != "" {
		cmd.Stdin = strings.NewReader(input)
	}
	var outbuf, errbuf strings.Builder
	cmd.Stdout = &outbuf
	cmd.Stderr = &errbuf
	err = cmd.Run()
	stdout = outbuf.String()
	stderr = errbuf.String()
	if err != nil {
		exitError := &exec.ExitError{}
		if errors.As(err, &exitError) {
			exitCode = exitError.ExitCode()
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w after %d seconds: %v", ErrTimeout, timeout, err)
		} else if ctx.Err() != nil {
			err = fmt.Errorf("command cancelled: %w", ctx.Err())
		}
	}
	return
}
