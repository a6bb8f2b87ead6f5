// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package inventory

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exspect/internal/collect"
	"exspect/internal/compliance"
	"exspect/internal/directory"
	"exspect/internal/probe"
	"exspect/internal/target"
)

type hostTarget struct{ host directory.Host }

func (h hostTarget) GetName() string                     { return h.host.Name }
func (h hostTarget) GetHost() string                     { return h.host.FQDN }
func (h hostTarget) CanConnect(ctx context.Context) bool { return true }
func (h hostTarget) RunCommand(ctx context.Context, cmd *exec.Cmd, timeout int, reuse bool) (string, string, int, error) {
	return "", "", 0, nil
}

func connect(h directory.Host) target.Target { return hostTarget{host: h} }

// fakeProber returns outcomes by host name, Reachable by default.
type fakeProber struct {
	outcomes map[string]probe.Outcome
	delay    map[string]time.Duration
}

func (f fakeProber) Probe(ctx context.Context, host directory.Host) probe.Outcome {
	if d, ok := f.delay[host.Name]; ok {
		select {
		case <-time.After(d):
		case <-ctx.Done():
		}
	}
	if o, ok := f.outcomes[host.Name]; ok {
		return o
	}
	return probe.Outcome{Kind: probe.Reachable}
}

// fakeCollector returns snapshots by target name.
type fakeCollector struct {
	errs  map[string]error
	block chan struct{}
}

func (f fakeCollector) Collect(ctx context.Context, t target.Target) (collect.Snapshot, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return collect.Snapshot{}, ctx.Err()
		}
	}
	if err, ok := f.errs[t.GetName()]; ok {
		return collect.Snapshot{}, err
	}
	return collect.Snapshot{
		PhysicalCores: 48,
		LogicalCores:  48,
		RAMTotalMB:    196608,
		Pagefile:      collect.PagefileConfig{InitialSizeMB: 49152, MaximumSizeMB: 49152},
	}, nil
}

func hostsNamed(names ...string) []directory.Host {
	hosts := make([]directory.Host, len(names))
	for i, n := range names {
		hosts[i] = directory.Host{Name: n, FQDN: n + ".corp.example", ProductTag: "Version 15.2 (Build 1118.7)"}
	}
	return hosts
}

func newTestPipeline(t *testing.T, workers int, prober HostProber, collector HostCollector) *Pipeline {
	t.Helper()
	evaluator, err := compliance.NewEvaluator(compliance.DefaultNewerGenerationPattern)
	require.NoError(t, err)
	cfg := DefaultConfig()
	cfg.Workers = workers
	return &Pipeline{Config: cfg, Prober: prober, Collector: collector, Evaluator: evaluator, Connect: connect}
}

func TestRunMixedOutcomes(t *testing.T) {
	hosts := hostsNamed("MBX01", "MBX02", "MBX03", "MBX04", "MBX05")
	prober := fakeProber{outcomes: map[string]probe.Outcome{
		"MBX02": {Kind: probe.Unreachable, ResolvedIP: "10.0.0.12"},
		"MBX03": {Kind: probe.ManagementUnavailable},
		"MBX04": {Kind: probe.UnresolvableName},
	}}
	collector := fakeCollector{errs: map[string]error{"MBX05": fmt.Errorf("%w: processors: exit code 1", collect.ErrRemoteQuery)}}
	var mu sync.Mutex
	var updates []int
	p := newTestPipeline(t, 1, prober, collector)
	p.Progress = func(stage string, done int, total int) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, "collecting", stage)
		assert.Equal(t, 5, total)
		updates = append(updates, done)
	}
	rows, err := p.Run(context.Background(), hosts)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	for i := range hosts {
		assert.Equal(t, hosts[i], rows[i].Host)
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, updates)

	assert.False(t, rows[0].Failed())
	require.NotNil(t, rows[0].Compliance)
	assert.True(t, rows[0].Compliance.PagefileOK)
	assert.Empty(t, rows[0].Comment())

	assert.Equal(t, StageProbe, rows[1].Stage)
	assert.ErrorIs(t, rows[1].Err, ErrHostUnreachable)
	assert.Equal(t, "no reply from 10.0.0.12", rows[1].Comment())
	assert.Nil(t, rows[1].Snapshot)

	assert.ErrorIs(t, rows[2].Err, ErrHostManagementUnavailable)
	assert.Equal(t, StageProbe, rows[2].Stage)
	assert.ErrorIs(t, rows[3].Err, ErrHostUnresolvable)

	assert.Equal(t, StageCollect, rows[4].Stage)
	assert.ErrorIs(t, rows[4].Err, collect.ErrRemoteQuery)
	assert.Contains(t, rows[4].Comment(), "collection failed")
	assert.Nil(t, rows[4].Compliance)
}

func TestRunRestoresDirectoryOrder(t *testing.T) {
	hosts := hostsNamed("A", "B", "C", "D")
	// earlier hosts finish last
	prober := fakeProber{delay: map[string]time.Duration{"A": 60 * time.Millisecond, "B": 40 * time.Millisecond, "C": 20 * time.Millisecond}}
	rows, err := newTestPipeline(t, 4, prober, fakeCollector{}).Run(context.Background(), hosts)
	require.NoError(t, err)
	for i := range hosts {
		assert.Equal(t, hosts[i].Name, rows[i].Host.Name)
		assert.Equal(t, StageComplete, rows[i].Stage)
	}
}

func TestRunProbeOnly(t *testing.T) {
	hosts := hostsNamed("MBX01", "MBX02")
	prober := fakeProber{outcomes: map[string]probe.Outcome{"MBX02": {Kind: probe.UnresolvableName}}}
	p := newTestPipeline(t, 2, prober, fakeCollector{errs: map[string]error{"MBX01": errors.New("must not collect")}})
	p.Config.ProbeOnly = true
	rows, err := p.Run(context.Background(), hosts)
	require.NoError(t, err)
	assert.Equal(t, StageComplete, rows[0].Stage)
	assert.Nil(t, rows[0].Snapshot)
	assert.Equal(t, probe.Reachable, rows[0].Outcome.Kind)
	assert.Equal(t, StageProbe, rows[1].Stage)
}

func TestRunCancelled(t *testing.T) {
	hosts := hostsNamed("MBX01", "MBX02", "MBX03")
	ctx, cancel := context.WithCancel(context.Background())
	block := make(chan struct{})
	p := newTestPipeline(t, 1, fakeProber{}, fakeCollector{block: block})
	p.Progress = func(stage string, done int, total int) {}
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	rows, err := p.Run(ctx, hosts)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, rows, 3)
	for i, row := range rows {
		assert.Equal(t, hosts[i], row.Host)
		assert.Equal(t, StageCancelled, row.Stage)
		assert.Nil(t, row.Snapshot)
		assert.Nil(t, row.Compliance)
		assert.Equal(t, "cancelled before assessment completed", row.Comment())
	}
}

func TestRunStartRate(t *testing.T) {
	hosts := hostsNamed("A", "B", "C")
	p := newTestPipeline(t, 3, fakeProber{}, fakeCollector{})
	p.Config.StartRate = 20
	start := time.Now()
	rows, err := p.Run(context.Background(), hosts)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	// one burst token, then 50ms between starts
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	cfg := DefaultConfig()
	cfg.Workers = 0
	assert.Error(t, cfg.Validate())
	cfg = DefaultConfig()
	cfg.HostTimeout = 0
	assert.Error(t, cfg.Validate())
	cfg = DefaultConfig()
	cfg.StartRate = -1
	assert.Error(t, cfg.Validate())
	cfg = DefaultConfig()
	cfg.NewerGenerationPattern = "("
	_, err := NewPipeline(cfg, connect, nil)
	assert.Error(t, err)
}

func TestRunDuplicateHost(t *testing.T) {
	hosts := hostsNamed("MBX01", "MBX02", "mbx01")
	hosts[2].Duplicate = true
	rows, err := newTestPipeline(t, 2, fakeProber{}, fakeCollector{}).Run(context.Background(), hosts)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, StageComplete, rows[0].Stage)
	assert.Equal(t, StageComplete, rows[1].Stage)
	assert.Equal(t, "mbx01", rows[2].Host.Name)
	assert.Equal(t, StageDirectory, rows[2].Stage)
	assert.ErrorIs(t, rows[2].Err, ErrDuplicateHost)
	assert.Nil(t, rows[2].Outcome)
	assert.Equal(t, "duplicate of an earlier directory entry", rows[2].Comment())
}

func TestNewPipelineHandshakeUsesHostTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HostTimeout = 45 * time.Second
	p, err := NewPipeline(cfg, connect, nil)
	require.NoError(t, err)
	prober, ok := p.Prober.(*probe.Prober)
	require.True(t, ok)
	assert.Equal(t, cfg.ProbeTimeout, prober.Timeout)
	assert.Equal(t, 45*time.Second, prober.HandshakeTimeout)
}

func TestRunOneRowPerHostProperty(t *testing.T) {
	kinds := []probe.OutcomeKind{probe.Reachable, probe.Unreachable, probe.UnresolvableName, probe.ManagementUnavailable}
	properties := gopter.NewProperties(gopter.DefaultTestParameters())
	properties.Property("every host appears exactly once in directory order", prop.ForAll(
		func(assignments []int, workers int) bool {
			names := make([]string, len(assignments))
			outcomes := make(map[string]probe.Outcome)
			errs := make(map[string]error)
			for i, a := range assignments {
				names[i] = fmt.Sprintf("MBX%02d", i)
				if a == len(kinds) {
					errs[names[i]] = collect.ErrRemoteQuery
					continue
				}
				outcomes[names[i]] = probe.Outcome{Kind: kinds[a]}
			}
			hosts := hostsNamed(names...)
			rows, err := newTestPipeline(t, workers, fakeProber{outcomes: outcomes}, fakeCollector{errs: errs}).Run(context.Background(), hosts)
			if err != nil || len(rows) != len(hosts) {
				return false
			}
			for i := range hosts {
				if rows[i].Host != hosts[i] {
					return false
				}
				complete := rows[i].Stage == StageComplete
				if complete != (rows[i].Compliance != nil && rows[i].Snapshot != nil) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, len(kinds))),
		gen.IntRange(1, 8),
	))
	properties.TestingRun(t)
}
