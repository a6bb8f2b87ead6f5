// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

// Package collect gathers capacity, utilization and pagefile facts from a managed host.
package collect

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"

	"exspect/internal/counters"
	"exspect/internal/extract"
	"exspect/internal/script"
	"exspect/internal/target"
)

// ErrRemoteQuery is returned when a remote query fails, times out or returns unusable output.
var ErrRemoteQuery = errors.New("remote query failed")

// PagefileConfig is the configured pagefile. Sizes are MB and summed across pagefiles.
type PagefileConfig struct {
	SystemManaged bool
	InitialSizeMB int64
	MaximumSizeMB int64
}

// Snapshot is a point-in-time view of a host.
type Snapshot struct {
	PhysicalCores  int
	LogicalCores   int
	RAMTotalMB     int64
	CPUUtilPercent float64
	AvailMemMB     float64
	Pagefile       PagefileConfig
	// CounterPaths holds the localized paths that were sampled, for display.
	CounterPaths counters.Paths
}

var inventoryScripts = []string{
	script.ProcessorsScriptName,
	script.MemoryModulesScriptName,
	script.PagefileManagedScriptName,
	script.PagefileSettingsScriptName,
	script.CounterTableReferenceScriptName,
	script.CounterTableLocalizedScriptName,
}

// Collector reads a Snapshot from a host in two round trips: one for the inventory
// and counter tables, one for the counter sample.
type Collector struct {
	// Timeout bounds each remote call.
	Timeout time.Duration
	// Pairs are the canonical counters to sample; CanonicalPairs when empty.
	Pairs []counters.Pair
}

// NewCollector returns a Collector sampling the canonical counters.
func NewCollector(timeout time.Duration) *Collector {
	return &Collector{Timeout: timeout, Pairs: counters.CanonicalPairs()}
}

// Collect gathers a Snapshot from the target. Errors wrap ErrRemoteQuery or
// counters.ErrCounterNotFound.
func (c *Collector) Collect(ctx context.Context, t target.Target) (Snapshot, error) {
	var snapshot Snapshot
	outputs, err := c.run(ctx, t, script.GetScriptsByNames(inventoryScripts))
	if err != nil {
		return snapshot, errors.Wrap(err, "collecting inventory")
	}
	if err = parseInventory(outputs, &snapshot); err != nil {
		return snapshot, err
	}
	counterMap, err := counterMapFromOutputs(outputs)
	if err != nil {
		return snapshot, err
	}
	pairs := c.Pairs
	if len(pairs) == 0 {
		pairs = counters.CanonicalPairs()
	}
	paths, err := counterMap.Resolve(pairs)
	if err != nil {
		return snapshot, errors.Wrap(err, "resolving counter paths")
	}
	snapshot.CounterPaths = paths
	ordered := make([]string, len(pairs))
	for i, p := range pairs {
		ordered[i] = paths[p]
	}
	slog.Debug("resolved counter paths", slog.String("target", t.GetName()), slog.String("paths", strings.Join(ordered, ", ")))
	outputs, err = c.run(ctx, t, []script.ScriptDefinition{script.CounterSampleScript(ordered)})
	if err != nil {
		return snapshot, errors.Wrap(err, "sampling counters")
	}
	sample, err := section(outputs, script.CounterSampleScriptName)
	if err != nil {
		return snapshot, err
	}
	values, err := extract.CounterValuesFromOutput(sample, len(pairs))
	if err != nil {
		return snapshot, queryError(script.CounterSampleScriptName, err)
	}
	for i, p := range pairs {
		switch p {
		case counters.CPUPair:
			snapshot.CPUUtilPercent = values[i]
		case counters.MemoryPair:
			snapshot.AvailMemMB = values[i]
		}
	}
	return snapshot, nil
}

func (c *Collector) run(ctx context.Context, t target.Target, scripts []script.ScriptDefinition) (map[string]script.ScriptOutput, error) {
	timeout := int(math.Ceil(c.Timeout.Seconds()))
	outputs, err := script.RunScripts(ctx, t, scripts, timeout)
	if err != nil {
		if ctx.Err() != nil && !errors.Is(err, target.ErrTimeout) {
			// cancellation is not a host failure
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrRemoteQuery, err)
	}
	return outputs, nil
}

func parseInventory(outputs map[string]script.ScriptOutput, snapshot *Snapshot) error {
	out, err := section(outputs, script.ProcessorsScriptName)
	if err != nil {
		return err
	}
	if snapshot.PhysicalCores, snapshot.LogicalCores, err = extract.CoreCountsFromOutput(out); err != nil {
		return queryError(script.ProcessorsScriptName, err)
	}
	if out, err = section(outputs, script.MemoryModulesScriptName); err != nil {
		return err
	}
	if snapshot.RAMTotalMB, err = extract.RAMTotalMBFromOutput(out); err != nil {
		return queryError(script.MemoryModulesScriptName, err)
	}
	if out, err = section(outputs, script.PagefileManagedScriptName); err != nil {
		return err
	}
	if snapshot.Pagefile.SystemManaged, err = extract.PagefileManagedFromOutput(out); err != nil {
		return queryError(script.PagefileManagedScriptName, err)
	}
	if out, err = section(outputs, script.PagefileSettingsScriptName); err != nil {
		return err
	}
	if snapshot.Pagefile.InitialSizeMB, snapshot.Pagefile.MaximumSizeMB, err = extract.PagefileSizesFromOutput(out); err != nil {
		return queryError(script.PagefileSettingsScriptName, err)
	}
	return nil
}

func counterMapFromOutputs(outputs map[string]script.ScriptOutput) (*counters.CounterMap, error) {
	refOut, err := section(outputs, script.CounterTableReferenceScriptName)
	if err != nil {
		return nil, err
	}
	locOut, err := section(outputs, script.CounterTableLocalizedScriptName)
	if err != nil {
		return nil, err
	}
	counterMap, err := counters.NewCounterMap(counters.ParseRegistryTable(refOut), counters.ParseRegistryTable(locOut))
	if err != nil {
		return nil, errors.Wrap(err, "building counter map")
	}
	return counterMap, nil
}

// section returns the stdout of a successful script.
func section(outputs map[string]script.ScriptOutput, name string) (string, error) {
	output, ok := outputs[name]
	if !ok {
		return "", queryError(name, fmt.Errorf("no output"))
	}
	if output.Exitcode != 0 {
		return "", queryError(name, fmt.Errorf("exit code %d: %s", output.Exitcode, strings.TrimSpace(output.Stderr)))
	}
	return output.Stdout, nil
}

func queryError(name string, cause error) error {
	return errors.WithStack(fmt.Errorf("%w: %s: %w", ErrRemoteQuery, name, cause))
}
