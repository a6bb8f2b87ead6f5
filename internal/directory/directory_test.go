// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package directory

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeHostsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hosts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestFileSource(t *testing.T) {
	path := writeHostsFile(t, `hosts:
  - name: MBX02
    fqdn: mbx02.corp.example
    version: Version 15.2 (Build 1118.7)
  - name: MBX01
    version: Version 15.1 (Build 2507.6)
`)
	hosts, err := FileSource{Path: path}.Hosts(context.Background())
	require.NoError(t, err)
	require.Len(t, hosts, 2)
	assert.Equal(t, Host{Name: "MBX02", FQDN: "mbx02.corp.example", ProductTag: "Version 15.2 (Build 1118.7)"}, hosts[0])
	assert.Equal(t, "MBX01", hosts[1].FQDN, "fqdn defaults to name")
}

func TestFileSourceErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "empty", content: "hosts: []\n"},
		{name: "not yaml", content: "hosts: [\n"},
		{name: "missing name", content: "hosts:\n  - fqdn: a.corp.example\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FileSource{Path: writeHostsFile(t, tt.content)}.Hosts(context.Background())
			assert.ErrorIs(t, err, ErrDirectoryUnavailable)
		})
	}
	_, err := FileSource{Path: filepath.Join(t.TempDir(), "missing.yaml")}.Hosts(context.Background())
	assert.ErrorIs(t, err, ErrDirectoryUnavailable)
}

func TestFileSourceDuplicateName(t *testing.T) {
	path := writeHostsFile(t, "hosts:\n  - name: MBX01\n  - name: MBX02\n  - name: mbx01\n")
	hosts, err := FileSource{Path: path}.Hosts(context.Background())
	require.NoError(t, err)
	require.Len(t, hosts, 3)
	assert.False(t, hosts[0].Duplicate)
	assert.False(t, hosts[1].Duplicate)
	assert.True(t, hosts[2].Duplicate)
	assert.Equal(t, "mbx01", hosts[2].Name)
}

func TestParseServerList(t *testing.T) {
	hosts := ParseServerList("MBX01|mbx01.corp.example|Version 15.2 (Build 1118.7)\r\nWARNING: something\r\nEDGE01||Version 15.1 (Build 2507.6)\r\n")
	require.Len(t, hosts, 2)
	assert.Equal(t, "mbx01.corp.example", hosts[0].FQDN)
	assert.Equal(t, "EDGE01", hosts[1].Name)
	assert.Empty(t, hosts[1].FQDN)
	validated, err := validate(hosts)
	require.NoError(t, err)
	assert.Equal(t, "EDGE01", validated[1].FQDN)
}

func TestFilter(t *testing.T) {
	hosts := []Host{{Name: "MBX01"}, {Name: "EDGE01"}, {Name: "MBX02"}}
	assert.Equal(t, hosts, Filter(hosts, nil))
	kept := Filter(hosts, regexp.MustCompile(`^MBX`))
	assert.Equal(t, []Host{{Name: "MBX01"}, {Name: "MBX02"}}, kept)
}

type fakeManagementHost struct {
	stdout string
	err    error
}

func (f fakeManagementHost) GetName() string                     { return "EMS01" }
func (f fakeManagementHost) GetHost() string                     { return "ems01.corp.example" }
func (f fakeManagementHost) CanConnect(ctx context.Context) bool { return true }
func (f fakeManagementHost) RunCommand(ctx context.Context, cmd *exec.Cmd, timeout int, reuse bool) (string, string, int, error) {
	return f.stdout, "", 0, f.err
}

func TestRemoteSource(t *testing.T) {
	host := fakeManagementHost{stdout: "<---------------------->\r\nSCRIPT NAME: directory servers\r\nSTDOUT:\r\n" +
		"MBX01|mbx01.corp.example|Version 15.2 (Build 1118.7)\r\n" +
		"MBX02|mbx02.corp.example|Version 15.1 (Build 2507.6)\r\n" +
		"STDERR:\r\nEXIT CODE: 0\r\n"}
	hosts, err := RemoteSource{Target: host, Timeout: time.Minute}.Hosts(context.Background())
	require.NoError(t, err)
	require.Len(t, hosts, 2)
	assert.Equal(t, "MBX02", hosts[1].Name)
	assert.Equal(t, "Version 15.1 (Build 2507.6)", hosts[1].ProductTag)
}

func TestRemoteSourceErrors(t *testing.T) {
	failed := fakeManagementHost{stdout: "<---------------------->\nSCRIPT NAME: directory servers\nSTDOUT:\nSTDERR:\nThe term 'Get-ExchangeServer' is not recognized\nEXIT CODE: 1\n"}
	_, err := RemoteSource{Target: failed, Timeout: time.Minute}.Hosts(context.Background())
	assert.ErrorIs(t, err, ErrDirectoryUnavailable)
	assert.ErrorContains(t, err, "Get-ExchangeServer")

	unreachable := fakeManagementHost{err: errors.New("connection refused")}
	_, err = RemoteSource{Target: unreachable, Timeout: time.Minute}.Hosts(context.Background())
	assert.ErrorIs(t, err, ErrDirectoryUnavailable)
}
