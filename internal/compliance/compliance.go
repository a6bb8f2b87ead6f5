// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

// Package compliance classifies a host's core count, RAM size and pagefile configuration
// against the sizing rules of its server generation.
package compliance

import (
	"fmt"
	"math"
	"regexp"

	"github.com/casbin/govaluate"

	"exspect/internal/collect"
)

// DefaultNewerGenerationPattern matches the product tag of the newer server generation,
// e.g. "Version 15.2 (Build 1118.7)".
const DefaultNewerGenerationPattern = `15\.2`

const (
	// CPUBusyThresholdPercent is the CPU utilization at or above which a host is flagged.
	CPUBusyThresholdPercent = 40.0
	// AvailMemThresholdPercent is the available memory share below which a host is flagged.
	AvailMemThresholdPercent = 25.0
)

type Generation int

const (
	Older Generation = iota
	Newer
)

func (g Generation) String() string {
	if g == Newer {
		return "newer"
	}
	return "older"
}

// Result holds the three independent verdicts and the values that produced them. All sizes are MB.
type Result struct {
	Generation         Generation
	CoreCountOK        bool
	RAMSizeOK          bool
	PagefileOK         bool
	ExpectedPagefileMB int64
	LogicalCores       int
	PhysicalCores      int
	RAMTotalMB         int64
	InitialSizeMB      int64
	MaximumSizeMB      int64
}

// rule expressions, variables: ram, logical, physical, initial, maximum, expected
type ruleSource struct {
	ram              string
	cores            string
	expectedPagefile string
}

var ruleSources = map[Generation]ruleSource{
	Newer: {
		ram:              "ram >= 131072 && ram <= 262144",
		cores:            "logical <= 48 && logical == physical",
		expectedPagefile: "floor(ram / 4)",
	},
	Older: {
		ram:              "ram <= 196608",
		cores:            "logical <= 24 && logical == physical",
		expectedPagefile: "ram >= 32768 ? 32778 : ram + 10",
	},
}

const pagefileRule = "initial == expected && maximum == expected"

type ruleSet struct {
	ram              *govaluate.EvaluableExpression
	cores            *govaluate.EvaluableExpression
	expectedPagefile *govaluate.EvaluableExpression
	pagefile         *govaluate.EvaluableExpression
}

var functions = map[string]govaluate.ExpressionFunction{
	"floor": func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("floor expects 1 argument, got %d", len(args))
		}
		v, ok := args[0].(float64)
		if !ok {
			return nil, fmt.Errorf("floor expects a number, got %T", args[0])
		}
		return math.Floor(v), nil
	},
}

// Evaluator applies the generation-specific rule sets. It is safe for concurrent use.
type Evaluator struct {
	newer *regexp.Regexp
	rules map[Generation]ruleSet
}

// NewEvaluator compiles the newer-generation pattern and the rule expressions.
func NewEvaluator(newerGenerationPattern string) (*Evaluator, error) {
	re, err := regexp.Compile(newerGenerationPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid newer generation pattern %q: %w", newerGenerationPattern, err)
	}
	e := &Evaluator{newer: re, rules: make(map[Generation]ruleSet)}
	for gen, src := range ruleSources {
		var rs ruleSet
		for _, c := range []struct {
			dst  **govaluate.EvaluableExpression
			expr string
		}{
			{&rs.ram, src.ram},
			{&rs.cores, src.cores},
			{&rs.expectedPagefile, src.expectedPagefile},
			{&rs.pagefile, pagefileRule},
		} {
			*c.dst, err = govaluate.NewEvaluableExpressionWithFunctions(c.expr, functions)
			if err != nil {
				return nil, fmt.Errorf("failed to compile %s generation rule %q: %w", gen, c.expr, err)
			}
		}
		e.rules[gen] = rs
	}
	return e, nil
}

// GenerationOf classifies a product tag.
func (e *Evaluator) GenerationOf(productTag string) Generation {
	if e.newer.MatchString(productTag) {
		return Newer
	}
	return Older
}

// Evaluate applies the rule set selected by productTag to the snapshot. It performs no I/O
// and returns the same result for the same inputs.
func (e *Evaluator) Evaluate(snapshot collect.Snapshot, productTag string) Result {
	gen := e.GenerationOf(productTag)
	rs := e.rules[gen]
	params := map[string]any{
		"ram":      float64(snapshot.RAMTotalMB),
		"logical":  float64(snapshot.LogicalCores),
		"physical": float64(snapshot.PhysicalCores),
		"initial":  float64(snapshot.Pagefile.InitialSizeMB),
		"maximum":  float64(snapshot.Pagefile.MaximumSizeMB),
	}
	expected := number(rs.expectedPagefile, params)
	params["expected"] = expected
	return Result{
		Generation:         gen,
		CoreCountOK:        verdict(rs.cores, params),
		RAMSizeOK:          verdict(rs.ram, params),
		PagefileOK:         verdict(rs.pagefile, params),
		ExpectedPagefileMB: int64(expected),
		LogicalCores:       snapshot.LogicalCores,
		PhysicalCores:      snapshot.PhysicalCores,
		RAMTotalMB:         snapshot.RAMTotalMB,
		InitialSizeMB:      snapshot.Pagefile.InitialSizeMB,
		MaximumSizeMB:      snapshot.Pagefile.MaximumSizeMB,
	}
}

// verdict evaluates a boolean rule; anything but a true result is a failed check.
func verdict(expr *govaluate.EvaluableExpression, params map[string]any) bool {
	result, err := expr.Evaluate(params)
	if err != nil {
		return false
	}
	ok, isBool := result.(bool)
	return isBool && ok
}

func number(expr *govaluate.EvaluableExpression, params map[string]any) float64 {
	result, err := expr.Evaluate(params)
	if err != nil {
		return -1
	}
	v, ok := result.(float64)
	if !ok {
		return -1
	}
	return v
}

// CPUUtilizationOK reports whether the sampled CPU busy percentage is below the threshold.
func CPUUtilizationOK(cpuUtilPercent float64) bool {
	return cpuUtilPercent < CPUBusyThresholdPercent
}

// AvailableMemoryPercent returns available memory as a share of total RAM.
func AvailableMemoryPercent(availMemMB float64, ramTotalMB int64) float64 {
	if ramTotalMB <= 0 {
		return 0
	}
	return availMemMB / float64(ramTotalMB) * 100
}

// AvailableMemoryOK reports whether at least the threshold share of RAM is available.
func AvailableMemoryOK(availMemMB float64, ramTotalMB int64) bool {
	return AvailableMemoryPercent(availMemMB, ramTotalMB) >= AvailMemThresholdPercent
}
