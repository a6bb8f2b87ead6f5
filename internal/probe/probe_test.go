// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package probe

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"exspect/internal/directory"
	"exspect/internal/target"
)

type fakePinger struct {
	err   error
	panic bool
}

func (f fakePinger) Ping(ctx context.Context, host string, timeout time.Duration) error {
	if f.panic {
		panic("boom")
	}
	return f.err
}

type fakeResolver struct {
	addrs []string
	err   error
}

func (f fakeResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	return f.addrs, f.err
}

type fakeManager bool

func (f fakeManager) Handshake(ctx context.Context, host directory.Host) bool {
	return bool(f)
}

var mbx01 = directory.Host{Name: "MBX01", FQDN: "mbx01.corp.example", ProductTag: "Version 15.2 (Build 1118.7)"}

func TestProbe(t *testing.T) {
	tests := []struct {
		name     string
		prober   Prober
		expected Outcome
		reason   string
	}{
		{
			name:     "reachable",
			prober:   Prober{Pinger: fakePinger{}, Resolver: fakeResolver{}, Manager: fakeManager(true)},
			expected: Outcome{Kind: Reachable},
			reason:   "",
		},
		{
			name:     "management unavailable",
			prober:   Prober{Pinger: fakePinger{}, Resolver: fakeResolver{}, Manager: fakeManager(false)},
			expected: Outcome{Kind: ManagementUnavailable},
			reason:   "answers ping but remote management is unavailable",
		},
		{
			name:     "no reply but resolves",
			prober:   Prober{Pinger: fakePinger{err: ErrNoReply}, Resolver: fakeResolver{addrs: []string{"10.0.0.11", "10.0.0.12"}}, Manager: fakeManager(true)},
			expected: Outcome{Kind: Unreachable, ResolvedIP: "10.0.0.11"},
			reason:   "no reply from 10.0.0.11",
		},
		{
			name:     "no reply and does not resolve",
			prober:   Prober{Pinger: fakePinger{err: ErrNoReply}, Resolver: fakeResolver{err: errors.New("no such host")}, Manager: fakeManager(true)},
			expected: Outcome{Kind: UnresolvableName},
			reason:   "name does not resolve",
		},
		{
			name:     "resolves to nothing",
			prober:   Prober{Pinger: fakePinger{err: ErrNoReply}, Resolver: fakeResolver{}, Manager: fakeManager(true)},
			expected: Outcome{Kind: UnresolvableName},
			reason:   "name does not resolve",
		},
		{
			name:     "ping fault",
			prober:   Prober{Pinger: fakePinger{err: errors.New("ping unavailable")}, Resolver: fakeResolver{addrs: []string{"10.0.0.11"}}, Manager: fakeManager(true)},
			expected: Outcome{Kind: Unreachable},
			reason:   "host unreachable",
		},
		{
			name:     "panic in check",
			prober:   Prober{Pinger: fakePinger{panic: true}, Resolver: fakeResolver{}, Manager: fakeManager(true)},
			expected: Outcome{Kind: Unreachable},
			reason:   "host unreachable",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prober.Timeout = time.Second
			first := tt.prober.Probe(context.Background(), mbx01)
			assert.Equal(t, tt.expected, first)
			assert.Equal(t, tt.reason, first.Reason())
			// unchanged host state yields the same outcome
			assert.Equal(t, first, tt.prober.Probe(context.Background(), mbx01))
		})
	}
}

func TestOutcomeKindString(t *testing.T) {
	assert.Equal(t, "reachable", Reachable.String())
	assert.Equal(t, "management unavailable", ManagementUnavailable.String())
	assert.Equal(t, "OutcomeKind(9)", OutcomeKind(9).String())
}

func TestPingArgs(t *testing.T) {
	assert.Equal(t, []string{"-c", "1", "-W", "2", "mbx01"}, pingArgs("linux", "mbx01", 1500*time.Millisecond))
	assert.Equal(t, []string{"-c", "1", "-W", "1", "mbx01"}, pingArgs("linux", "mbx01", 0))
	assert.Equal(t, []string{"-c", "1", "-W", "3000", "mbx01"}, pingArgs("darwin", "mbx01", 3*time.Second))
	assert.Equal(t, []string{"-n", "1", "-w", "3000", "mbx01"}, pingArgs("windows", "mbx01", 3*time.Second))
}

type fakeLocal struct {
	stdout   string
	exitCode int
	err      error
}

func (f fakeLocal) GetName() string                     { return "localhost" }
func (f fakeLocal) GetHost() string                     { return "localhost" }
func (f fakeLocal) CanConnect(ctx context.Context) bool { return true }
func (f fakeLocal) RunCommand(ctx context.Context, cmd *exec.Cmd, timeout int, reuse bool) (string, string, int, error) {
	return f.stdout, "", f.exitCode, f.err
}

func TestSystemPinger(t *testing.T) {
	if _, err := exec.LookPath("ping"); err != nil {
		t.Skip("ping not installed")
	}
	assert.NoError(t, (&SystemPinger{Local: fakeLocal{}}).Ping(context.Background(), "mbx01", time.Second))
	assert.ErrorIs(t, (&SystemPinger{Local: fakeLocal{exitCode: 1, err: errors.New("exit status 1")}}).Ping(context.Background(), "mbx01", time.Second), ErrNoReply)
	assert.ErrorIs(t, (&SystemPinger{Local: fakeLocal{err: target.ErrTimeout}}).Ping(context.Background(), "mbx01", time.Second), ErrNoReply)
	err := (&SystemPinger{Local: fakeLocal{err: errors.New("fork failed")}}).Ping(context.Background(), "mbx01", time.Second)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoReply)
}

func TestSystemPingerWindowsReply(t *testing.T) {
	if _, err := exec.LookPath("ping"); err != nil {
		t.Skip("ping not installed")
	}
	reply := "Pinging mbx01 [10.0.0.11] with 32 bytes of data:\r\nReply from 10.0.0.11: bytes=32 time<1ms TTL=128\r\n"
	routerAnswer := "Pinging mbx01 [10.0.0.11] with 32 bytes of data:\r\nReply from 10.0.0.1: Destination host unreachable.\r\n"
	assert.NoError(t, (&SystemPinger{Local: fakeLocal{stdout: reply}, GOOS: "windows"}).Ping(context.Background(), "mbx01", time.Second))
	assert.ErrorIs(t, (&SystemPinger{Local: fakeLocal{stdout: routerAnswer}, GOOS: "windows"}).Ping(context.Background(), "mbx01", time.Second), ErrNoReply)
	assert.NoError(t, (&SystemPinger{Local: fakeLocal{stdout: ""}, GOOS: "linux"}).Ping(context.Background(), "mbx01", time.Second))
}

type deadlineManager struct {
	remaining *time.Duration
}

func (m deadlineManager) Handshake(ctx context.Context, host directory.Host) bool {
	if deadline, ok := ctx.Deadline(); ok {
		*m.remaining = time.Until(deadline)
	}
	return true
}

func TestHandshakeTimeout(t *testing.T) {
	var remaining time.Duration
	p := Prober{Pinger: fakePinger{}, Resolver: fakeResolver{}, Manager: deadlineManager{remaining: &remaining}, Timeout: time.Second, HandshakeTimeout: 30 * time.Second}
	assert.Equal(t, Outcome{Kind: Reachable}, p.Probe(context.Background(), mbx01))
	assert.Greater(t, remaining, 20*time.Second)

	p.HandshakeTimeout = 0
	p.Probe(context.Background(), mbx01)
	assert.LessOrEqual(t, remaining, time.Second)
	assert.Greater(t, remaining, time.Duration(0))
}

type fakeTarget struct{ manageable bool }

func (f fakeTarget) GetName() string                     { return "MBX01" }
func (f fakeTarget) GetHost() string                     { return "mbx01.corp.example" }
func (f fakeTarget) CanConnect(ctx context.Context) bool { return f.manageable }
func (f fakeTarget) RunCommand(ctx context.Context, cmd *exec.Cmd, timeout int, reuse bool) (string, string, int, error) {
	return "", "", 0, nil
}

func TestTargetManager(t *testing.T) {
	var connected directory.Host
	m := TargetManager{Connect: func(h directory.Host) target.Target {
		connected = h
		return fakeTarget{manageable: true}
	}}
	assert.True(t, m.Handshake(context.Background(), mbx01))
	assert.Equal(t, mbx01, connected)
}
