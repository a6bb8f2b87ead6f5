// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package probe

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"exspect/internal/directory"
	"exspect/internal/target"
)

// SystemPinger runs the operating system's ping command on the local host.
type SystemPinger struct {
	Local target.Target
	// GOOS selects the ping dialect, runtime.GOOS when empty.
	GOOS string
}

// NewSystemPinger returns a SystemPinger that runs ping on this machine.
func NewSystemPinger() *SystemPinger {
	return &SystemPinger{Local: target.NewLocalTarget(), GOOS: runtime.GOOS}
}

func (p *SystemPinger) Ping(ctx context.Context, host string, timeout time.Duration) error {
	goos := p.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	cmd := exec.Command("ping", pingArgs(goos, host, timeout)...) // #nosec G204
	if cmd.Err != nil {
		return fmt.Errorf("ping unavailable: %w", cmd.Err)
	}
	// leave the command a second beyond its own reply timeout
	limit := int(math.Ceil(timeout.Seconds())) + 1
	stdout, _, exitCode, err := p.Local.RunCommand(ctx, cmd, limit, false)
	if err == nil {
		if !replied(goos, stdout) {
			return ErrNoReply
		}
		return nil
	}
	if exitCode > 0 || errors.Is(err, target.ErrTimeout) {
		return ErrNoReply
	}
	return err
}

// pingArgs returns the arguments for a single echo request with a reply timeout.
func pingArgs(goos string, host string, timeout time.Duration) []string {
	seconds := max(int(math.Ceil(timeout.Seconds())), 1)
	switch goos {
	case "windows":
		return []string{"-n", "1", "-w", strconv.Itoa(seconds * 1000), host}
	case "darwin":
		// -W is in milliseconds on macOS
		return []string{"-c", "1", "-W", strconv.Itoa(seconds * 1000), host}
	default:
		return []string{"-c", "1", "-W", strconv.Itoa(seconds), host}
	}
}

// replied reports whether a successful ping run saw an echo reply. Windows ping also exits
// zero when a router answers "Destination host unreachable", so only a reply line with a
// TTL counts there.
func replied(goos string, stdout string) bool {
	if goos != "windows" {
		return true
	}
	return strings.Contains(strings.ToUpper(stdout), "TTL=")
}

// NetResolver resolves names with the Go resolver.
type NetResolver struct {
	Resolver *net.Resolver
}

func (r NetResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	resolver := r.Resolver
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	return resolver.LookupHost(ctx, host)
}

// TargetManager performs the handshake over the management channel.
type TargetManager struct {
	Connect func(directory.Host) target.Target
}

func (m TargetManager) Handshake(ctx context.Context, host directory.Host) bool {
	return m.Connect(host).CanConnect(ctx)
}
