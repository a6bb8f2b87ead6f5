// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package inventory

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"exspect/internal/collect"
	"exspect/internal/compliance"
	"exspect/internal/directory"
	"exspect/internal/probe"
	"exspect/internal/progress"
	"exspect/internal/target"
)

type HostProber interface {
	Probe(ctx context.Context, host directory.Host) probe.Outcome
}

type HostCollector interface {
	Collect(ctx context.Context, t target.Target) (collect.Snapshot, error)
}

type HostEvaluator interface {
	Evaluate(snapshot collect.Snapshot, productTag string) compliance.Result
}

// Pipeline assesses hosts and returns one row per host in directory order.
type Pipeline struct {
	Config    Config
	Prober    HostProber
	Collector HostCollector
	Evaluator HostEvaluator
	// Connect returns the management channel for a host.
	Connect  func(directory.Host) target.Target
	Progress progress.UpdateFunc
}

// NewPipeline wires the default prober, collector and evaluator from the configuration.
func NewPipeline(cfg Config, connect func(directory.Host) target.Target, update progress.UpdateFunc) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	evaluator, err := compliance.NewEvaluator(cfg.NewerGenerationPattern)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		Config: cfg,
		Prober: &probe.Prober{
			Pinger:           probe.NewSystemPinger(),
			Resolver:         probe.NetResolver{},
			Manager:          probe.TargetManager{Connect: connect},
			Timeout:          cfg.ProbeTimeout,
			HandshakeTimeout: cfg.HostTimeout,
		},
		Collector: &collect.Collector{Timeout: cfg.HostTimeout, Pairs: cfg.Pairs},
		Evaluator: evaluator,
		Connect:   connect,
		Progress:  update,
	}, nil
}

// Run assesses every host. Per-host failures become rows and never stop the run. When ctx
// is cancelled no new hosts start, unfinished hosts are recorded as cancelled and the
// context error is returned with the rows.
func (p *Pipeline) Run(ctx context.Context, hosts []directory.Host) ([]Row, error) {
	rows := make([]Row, len(hosts))
	launched := make([]bool, len(hosts))
	workers := max(p.Config.Workers, 1)
	var limiter *rate.Limiter
	if p.Config.StartRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(p.Config.StartRate), 1)
	}
	label := "collecting"
	if p.Config.ProbeOnly {
		label = "probing"
	}
	var finished atomic.Int32
	var g errgroup.Group
	g.SetLimit(workers)
	for i, host := range hosts {
		if ctx.Err() != nil {
			break
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				break
			}
		}
		launched[i] = true
		g.Go(func() error {
			rows[i] = p.assess(ctx, host)
			if p.Progress != nil {
				p.Progress(label, int(finished.Add(1)), len(hosts))
			}
			return nil
		})
	}
	_ = g.Wait()
	for i, host := range hosts {
		if !launched[i] {
			rows[i] = cancelledRow(host, ctx.Err())
		}
	}
	if err := ctx.Err(); err != nil {
		slog.Warn("assessment cancelled", slog.String("error", err.Error()))
		return rows, err
	}
	return rows, nil
}

// assess takes one host through the pipeline and returns its complete row.
func (p *Pipeline) assess(ctx context.Context, host directory.Host) Row {
	if ctx.Err() != nil {
		return cancelledRow(host, ctx.Err())
	}
	if host.Duplicate {
		return Row{Host: host, Stage: StageDirectory, Err: ErrDuplicateHost}
	}
	outcome := p.Prober.Probe(ctx, host)
	if ctx.Err() != nil {
		return cancelledRow(host, ctx.Err())
	}
	if outcome.Kind != probe.Reachable {
		slog.Info("host failed probe", slog.String("host", host.Name), slog.String("outcome", outcome.Kind.String()), slog.String("resolvedIP", outcome.ResolvedIP))
		return Row{Host: host, Stage: StageProbe, Err: probeError(outcome.Kind), Outcome: &outcome}
	}
	if p.Config.ProbeOnly {
		return Row{Host: host, Stage: StageComplete, Outcome: &outcome}
	}
	snapshot, err := p.Collector.Collect(ctx, p.Connect(host))
	if ctx.Err() != nil {
		return cancelledRow(host, ctx.Err())
	}
	if err != nil {
		slog.Error("collection failed", slog.String("host", host.Name), slog.String("error", err.Error()))
		return Row{Host: host, Stage: StageCollect, Err: err, Outcome: &outcome}
	}
	result := p.Evaluator.Evaluate(snapshot, host.ProductTag)
	slog.Info("host assessed", slog.String("host", host.Name), slog.String("generation", result.Generation.String()),
		slog.Bool("coreCountOK", result.CoreCountOK), slog.Bool("ramSizeOK", result.RAMSizeOK), slog.Bool("pagefileOK", result.PagefileOK))
	return Row{Host: host, Stage: StageComplete, Outcome: &outcome, Snapshot: &snapshot, Compliance: &result}
}

func cancelledRow(host directory.Host, err error) Row {
	if err == nil {
		err = context.Canceled
	}
	return Row{Host: host, Stage: StageCancelled, Err: err}
}
