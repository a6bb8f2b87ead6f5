package target

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"os/exec"
)

// RunCommand executes the given command with a timeout and returns the standard output,
// standard error, exit code, and any error that occurred.
func (t *LocalTarget) RunCommand(ctx context.Context, cmd *exec.Cmd, timeout int, argNotUsed bool) (stdout string, stderr string, exitCode int, err error) {
	return runLocalCommandWithInputWithTimeout(ctx, cmd, "", timeout)
}

// CanConnect checks if the local target can establish a connection.
func (t *LocalTarget) CanConnect(ctx context.Context) bool {
	return true
}

// GetName returns the host name of the local system.
func (t *LocalTarget) GetName() (host string) {
	return t.host
}

func (t *LocalTarget) GetHost() (host string) {
	return t.host
}
