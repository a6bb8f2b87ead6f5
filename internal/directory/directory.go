// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

// Package directory supplies the ordered list of mail-server hosts to assess.
package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"gopkg.in/yaml.v2"

	"exspect/internal/extract"
	"exspect/internal/script"
	"exspect/internal/target"
)

// ErrDirectoryUnavailable is returned when the host list cannot be enumerated.
var ErrDirectoryUnavailable = errors.New("directory unavailable")

// Host identifies a candidate host. ProductTag identifies its server generation.
type Host struct {
	Name       string `yaml:"name"`
	FQDN       string `yaml:"fqdn"`
	ProductTag string `yaml:"version"`
	// Duplicate marks a later entry whose name, ignoring case, was already listed.
	Duplicate bool `yaml:"-"`
}

// Source enumerates hosts in directory order.
type Source interface {
	Hosts(ctx context.Context) ([]Host, error)
}

type hostsFile struct {
	Hosts []Host `yaml:"hosts"`
}

// FileSource reads hosts from a YAML file of the form:
//
//	hosts:
//	  - name: MBX01
//	    fqdn: mbx01.corp.example
//	    version: Version 15.2 (Build 1118.7)
type FileSource struct {
	Path string
}

func (s FileSource) Hosts(ctx context.Context) ([]Host, error) {
	yamlFile, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDirectoryUnavailable, err)
	}
	var file hostsFile
	if err = yaml.Unmarshal(yamlFile, &file); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %w", ErrDirectoryUnavailable, s.Path, err)
	}
	return validate(file.Hosts)
}

// RemoteSource queries the organization's server directory through a management host.
type RemoteSource struct {
	Target  target.Target
	Timeout time.Duration
}

func (s RemoteSource) Hosts(ctx context.Context) ([]Host, error) {
	output, err := script.RunScript(ctx, s.Target, script.GetScriptByName(script.DirectoryServersScriptName), int(s.Timeout.Seconds()))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDirectoryUnavailable, err)
	}
	if output.Exitcode != 0 {
		return nil, fmt.Errorf("%w: directory query on %s failed: %s", ErrDirectoryUnavailable, s.Target.GetName(), strings.TrimSpace(output.Stderr))
	}
	return validate(ParseServerList(output.Stdout))
}

// ParseServerList parses name|fqdn|version lines.
func ParseServerList(output string) []Host {
	var hosts []Host
	for _, vals := range extract.ValsArrayFromRegexSubmatch(output, `^([^|]+)\|([^|]*)\|(.*)$`) {
		hosts = append(hosts, Host{
			Name:       strings.TrimSpace(vals[0]),
			FQDN:       strings.TrimSpace(vals[1]),
			ProductTag: strings.TrimSpace(vals[2]),
		})
	}
	return hosts
}

// validate rejects unnamed hosts, marks duplicate names and defaults the FQDN to the name.
func validate(hosts []Host) ([]Host, error) {
	if len(hosts) == 0 {
		return nil, fmt.Errorf("%w: no hosts found", ErrDirectoryUnavailable)
	}
	seen := mapset.NewThreadUnsafeSet[string]()
	validated := make([]Host, 0, len(hosts))
	for i, h := range hosts {
		h.Name = strings.TrimSpace(h.Name)
		h.FQDN = strings.TrimSpace(h.FQDN)
		if h.Name == "" {
			return nil, fmt.Errorf("%w: host %d has no name", ErrDirectoryUnavailable, i+1)
		}
		if h.FQDN == "" {
			h.FQDN = h.Name
		}
		if !seen.Add(strings.ToLower(h.Name)) {
			slog.Warn("duplicate host name in directory", slog.String("host", h.Name), slog.Int("entry", i+1))
			h.Duplicate = true
		}
		validated = append(validated, h)
	}
	return validated, nil
}

// Filter keeps the hosts whose name matches re, preserving order. A nil re keeps all hosts.
func Filter(hosts []Host, re *regexp.Regexp) []Host {
	if re == nil {
		return hosts
	}
	var kept []Host
	for _, h := range hosts {
		if re.MatchString(h.Name) {
			kept = append(kept, h)
		} else {
			slog.Debug("host excluded by filter", slog.String("host", h.Name))
		}
	}
	return kept
}
