// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

// Package inventory runs the per-host assessment pipeline: probe, collect, evaluate.
package inventory

import (
	"errors"
	"fmt"
	"time"

	"exspect/internal/collect"
	"exspect/internal/compliance"
	"exspect/internal/counters"
	"exspect/internal/directory"
	"exspect/internal/probe"
)

// Stage is how far a host got through the pipeline.
type Stage string

const (
	StageDirectory Stage = "directory"
	StageProbe     Stage = "probe"
	StageCollect   Stage = "collection"
	StageComplete  Stage = "complete"
	StageCancelled Stage = "cancelled"
)

var (
	ErrDuplicateHost             = errors.New("duplicate of an earlier directory entry")
	ErrHostUnreachable           = errors.New("host unreachable")
	ErrHostUnresolvable          = errors.New("host name unresolvable")
	ErrHostManagementUnavailable = errors.New("host management unavailable")
)

// Config is passed explicitly to every component of a run.
type Config struct {
	// Workers bounds how many hosts are assessed at once. 1 assesses hosts strictly in order.
	Workers int
	// HostTimeout bounds each remote query during collection.
	HostTimeout time.Duration
	// ProbeTimeout bounds each reachability check.
	ProbeTimeout time.Duration
	// StartRate limits how many hosts start per second. Zero means no limit.
	StartRate float64
	// Pairs are the canonical counters sampled on each host.
	Pairs []counters.Pair
	// NewerGenerationPattern selects the newer generation rule set by product tag.
	NewerGenerationPattern string
	// ProbeOnly stops after the reachability probe.
	ProbeOnly bool
}

// DefaultConfig returns the configuration used when no flags override it.
func DefaultConfig() Config {
	return Config{
		Workers:                1,
		HostTimeout:            60 * time.Second,
		ProbeTimeout:           3 * time.Second,
		Pairs:                  counters.CanonicalPairs(),
		NewerGenerationPattern: compliance.DefaultNewerGenerationPattern,
	}
}

// Validate checks the configuration values.
func (c Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.HostTimeout <= 0 {
		return fmt.Errorf("host timeout must be positive, got %s", c.HostTimeout)
	}
	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("probe timeout must be positive, got %s", c.ProbeTimeout)
	}
	if c.StartRate < 0 {
		return fmt.Errorf("start rate must not be negative, got %g", c.StartRate)
	}
	return nil
}

// Row is the fully formed record of one directory host.
type Row struct {
	Host       directory.Host
	Stage      Stage
	Err        error
	Outcome    *probe.Outcome
	Snapshot   *collect.Snapshot
	Compliance *compliance.Result
}

// Failed reports whether the host could not be assessed.
func (r Row) Failed() bool {
	return r.Stage != StageComplete
}

// Comment explains why a host could not be assessed.
func (r Row) Comment() string {
	switch r.Stage {
	case StageComplete:
		return ""
	case StageProbe:
		if r.Outcome != nil {
			return r.Outcome.Reason()
		}
	case StageCollect:
		if r.Err != nil {
			return fmt.Sprintf("collection failed: %v", r.Err)
		}
		return "collection failed"
	case StageCancelled:
		return "cancelled before assessment completed"
	}
	if r.Err != nil {
		return r.Err.Error()
	}
	return string(r.Stage)
}

func probeError(kind probe.OutcomeKind) error {
	switch kind {
	case probe.Unreachable:
		return ErrHostUnreachable
	case probe.UnresolvableName:
		return ErrHostUnresolvable
	case probe.ManagementUnavailable:
		return ErrHostManagementUnavailable
	}
	return nil
}
