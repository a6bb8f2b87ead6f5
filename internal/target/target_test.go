package target

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"encoding/base64"
	"os/exec"
	"runtime"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	localTarget := NewLocalTarget()
	require.NotNil(t, localTarget)
	assert.NotEmpty(t, localTarget.GetName())

	remoteTarget := NewRemoteTarget("MBX01", "mbx01.corp.example", "22", "svc-audit", "")
	require.NotNil(t, remoteTarget)
	assert.Equal(t, "MBX01", remoteTarget.GetName())
	assert.Equal(t, "mbx01.corp.example", remoteTarget.GetHost())

	unnamed := NewRemoteTarget("", "mbx02.corp.example", "", "", "")
	assert.Equal(t, "mbx02.corp.example", unnamed.GetName())
}

func TestEncodePowerShell(t *testing.T) {
	encoded, err := EncodePowerShell("hi")
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	// UTF-16LE, no byte order mark
	assert.Equal(t, []byte{'h', 0, 'i', 0}, raw)
}

func TestPrepareSSHCommand(t *testing.T) {
	remoteTarget := NewRemoteTarget("MBX01", "mbx01.corp.example", "2222", "svc-audit", "/keys/id_ed25519")
	cmd := remoteTarget.prepareSSHCommand([]string{"powershell", "-EncodedCommand", "AAAA"}, false, false)
	require.NotEmpty(t, cmd)
	assert.Equal(t, "ssh", cmd[0])
	assert.Contains(t, cmd, "BatchMode=yes")
	assert.Contains(t, cmd, "/keys/id_ed25519")
	assert.Contains(t, cmd, "svc-audit@mbx01.corp.example")
	portIdx := slices.Index(cmd, "-p")
	require.GreaterOrEqual(t, portIdx, 0)
	assert.Equal(t, "2222", cmd[portIdx+1])
	sepIdx := slices.Index(cmd, "--")
	require.GreaterOrEqual(t, sepIdx, 0)
	assert.Equal(t, []string{"powershell", "-EncodedCommand", "AAAA"}, cmd[sepIdx+1:])
	assert.NotContains(t, cmd, "ControlMaster=auto")
}

func TestPrepareLocalCommandWithPassword(t *testing.T) {
	remoteTarget := NewRemoteTarget("", "mbx01.corp.example", "", "svc-audit", "")
	remoteTarget.SetSshPass("secret")
	remoteTarget.SetSshPassPath("/usr/bin/sshpass")
	cmd := remoteTarget.prepareLocalCommand(exec.Command("hostname"), true)
	assert.Equal(t, "/usr/bin/sshpass", cmd.Path)
	assert.Contains(t, cmd.Env, "SSHPASS=secret")
	assert.NotContains(t, cmd.Args, "BatchMode=yes")
	assert.Contains(t, cmd.Args, "ControlMaster=auto")
}

func TestLocalRunCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell")
	}
	localTarget := NewLocalTarget()
	stdout, stderr, exitCode, err := localTarget.RunCommand(context.Background(), exec.Command("sh", "-c", "echo hello"), 5, false)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", stdout)
	assert.Empty(t, stderr)
	assert.Equal(t, 0, exitCode)

	_, _, exitCode, err = localTarget.RunCommand(context.Background(), exec.Command("sh", "-c", "exit 3"), 5, false)
	assert.Error(t, err)
	assert.Equal(t, 3, exitCode)
}

func TestLocalRunCommandTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell")
	}
	localTarget := NewLocalTarget()
	_, _, _, err := localTarget.RunCommand(context.Background(), exec.Command("sh", "-c", "sleep 5"), 1, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestParseHandshakeReply(t *testing.T) {
	version, ok := parseHandshakeReply("5\r\n")
	assert.True(t, ok)
	assert.Equal(t, 5, version)
	version, ok = parseHandshakeReply("Windows PowerShell\r\nCopyright (C) Microsoft Corporation.\r\n\r\n7\r\n")
	assert.True(t, ok)
	assert.Equal(t, 7, version)
	_, ok = parseHandshakeReply("'powershell' is not recognized as an internal or external command")
	assert.False(t, ok)
	_, ok = parseHandshakeReply("")
	assert.False(t, ok)
}
