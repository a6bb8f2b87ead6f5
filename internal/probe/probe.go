// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

// Package probe classifies whether a host is reachable and manageable.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"exspect/internal/directory"
)

type OutcomeKind int

const (
	Reachable OutcomeKind = iota
	Unreachable
	UnresolvableName
	ManagementUnavailable
)

func (k OutcomeKind) String() string {
	switch k {
	case Reachable:
		return "reachable"
	case Unreachable:
		return "unreachable"
	case UnresolvableName:
		return "unresolvable name"
	case ManagementUnavailable:
		return "management unavailable"
	}
	return fmt.Sprintf("OutcomeKind(%d)", int(k))
}

// Outcome is the result of probing one host. ResolvedIP is only set for Unreachable
// hosts whose name resolved.
type Outcome struct {
	Kind       OutcomeKind
	ResolvedIP string
}

// Reason returns the operator-facing explanation of a failed probe.
func (o Outcome) Reason() string {
	switch o.Kind {
	case Reachable:
		return ""
	case Unreachable:
		if o.ResolvedIP != "" {
			return fmt.Sprintf("no reply from %s", o.ResolvedIP)
		}
		return "host unreachable"
	case UnresolvableName:
		return "name does not resolve"
	case ManagementUnavailable:
		return "answers ping but remote management is unavailable"
	}
	return o.Kind.String()
}

// ErrNoReply is returned by a Pinger when the host did not answer.
var ErrNoReply = errors.New("no echo reply")

// Pinger sends a single echo request. It returns nil on reply, ErrNoReply when the host
// did not answer, and any other error for faults in the check itself.
type Pinger interface {
	Ping(ctx context.Context, host string, timeout time.Duration) error
}

// Resolver resolves a name to addresses.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Manager performs the remote management handshake.
type Manager interface {
	Handshake(ctx context.Context, host directory.Host) bool
}

// Prober runs the reachability checks in order, stopping at the first negative.
type Prober struct {
	Pinger   Pinger
	Resolver Resolver
	Manager  Manager
	// Timeout bounds the network and name checks.
	Timeout time.Duration
	// HandshakeTimeout bounds the management handshake, which includes the ssh connect and
	// the PowerShell start. Zero falls back to Timeout.
	HandshakeTimeout time.Duration
}

// Probe classifies the host. It never fails: faults are mapped to Unreachable.
func (p *Prober) Probe(ctx context.Context, host directory.Host) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("probe failed unexpectedly", slog.String("host", host.Name), slog.Any("panic", r))
			outcome = Outcome{Kind: Unreachable}
		}
	}()
	err := p.Pinger.Ping(ctx, host.FQDN, p.Timeout)
	if err != nil {
		if !errors.Is(err, ErrNoReply) {
			slog.Warn("network check failed", slog.String("host", host.Name), slog.String("error", err.Error()))
			return Outcome{Kind: Unreachable}
		}
		return p.classifyUnanswered(ctx, host)
	}
	hctx, cancel := bounded(ctx, p.handshakeTimeout())
	defer cancel()
	if !p.Manager.Handshake(hctx, host) {
		return Outcome{Kind: ManagementUnavailable}
	}
	return Outcome{Kind: Reachable}
}

func (p *Prober) classifyUnanswered(ctx context.Context, host directory.Host) Outcome {
	rctx, cancel := bounded(ctx, p.Timeout)
	defer cancel()
	addrs, err := p.Resolver.LookupHost(rctx, host.FQDN)
	if err != nil || len(addrs) == 0 {
		slog.Debug("name resolution failed", slog.String("host", host.Name), slog.String("fqdn", host.FQDN), slog.Any("error", err))
		return Outcome{Kind: UnresolvableName}
	}
	return Outcome{Kind: Unreachable, ResolvedIP: addrs[0]}
}

func (p *Prober) handshakeTimeout() time.Duration {
	if p.HandshakeTimeout > 0 {
		return p.HandshakeTimeout
	}
	return p.Timeout
}

func bounded(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
