/*
Package target provides a way to run commands on the local system and on managed
hosts reached over the remote management channel.
*/
package target

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"os"
	"os/exec"
)

// Target represents a machine or system where commands can be run.
type Target interface {
	// GetName returns the display name of the target.
	GetName() (name string)

	// GetHost returns the network name used to reach the target.
	GetHost() (host string)

	// CanConnect performs the remote management handshake. It returns true when
	// the management endpoint accepted a session and answered a trivial query.
	CanConnect(ctx context.Context) bool

	// RunCommand runs the specified command on the target.
	// Arguments:
	// - ctx: cancels the command when done
	// - cmd: the command to run
	// - timeout: the maximum time in seconds allowed for the command to run (zero means no timeout)
	// - reuseSSHConnection: whether to reuse the SSH connection for the command (only relevant for RemoteTarget)
	// It returns the standard output, standard error, exit code, and any error that occurred.
	RunCommand(ctx context.Context, cmd *exec.Cmd, timeout int, reuseSSHConnection bool) (stdout string, stderr string, exitCode int, err error)
}

type LocalTarget struct {
	host string
}

type RemoteTarget struct {
	name        string
	host        string
	port        string
	user        string
	key         string
	sshPass     string
	sshpassPath string
}

// NewLocalTarget creates a new LocalTarget
func NewLocalTarget() *LocalTarget {
	hostName, err := os.Hostname()
	if err != nil {
		hostName = "localhost"
	}
	t := &LocalTarget{
		host: hostName,
	}
	return t
}

// NewRemoteTarget creates a new RemoteTarget instance with the provided parameters.
// An empty port uses the ssh client's default.
func NewRemoteTarget(name string, host string, port string, user string, key string) *RemoteTarget {
	t := &RemoteTarget{
		name: name,
		host: host,
		port: port,
		user: user,
		key:  key,
	}
	return t
}
