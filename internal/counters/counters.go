// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

// Package counters translates canonical performance counter names into the names a
// host's counter subsystem expects in its display language.
//
// A host exposes two Perflib tables: one in the reference language (009) and one in
// its current language. Both are flat lists alternating numeric IDs and names, built
// from the same ID ordering, so position i names the same metric in both tables.
package counters

import (
	"errors"
	"fmt"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

var (
	// ErrCounterNotFound is returned when a canonical name is not in the reference table.
	ErrCounterNotFound = errors.New("counter not found")
	// ErrTableMismatch is returned when the reference and localized tables differ in length.
	ErrTableMismatch = errors.New("counter tables differ in length")
)

// Pair is a canonical counter request. Instance is empty for single-instance objects.
type Pair struct {
	Object   string
	Counter  string
	Instance string
}

func (p Pair) String() string {
	return formatPath(p.Object, p.Counter, p.Instance)
}

// Paths maps each requested pair to its localized counter path.
type Paths map[Pair]string

const (
	ProcessorObject        = "Processor"
	ProcessorTimeCounter   = "% Processor Time"
	TotalInstance          = "_Total"
	MemoryObject           = "Memory"
	AvailableMBytesCounter = "Available MBytes"
)

var (
	// CPUPair samples busy time across all processors.
	CPUPair = Pair{Object: ProcessorObject, Counter: ProcessorTimeCounter, Instance: TotalInstance}
	// MemoryPair samples available memory.
	MemoryPair = Pair{Object: MemoryObject, Counter: AvailableMBytesCounter}
)

// CanonicalPairs returns the counters sampled on every host, in sample order.
func CanonicalPairs() []Pair {
	return []Pair{CPUPair, MemoryPair}
}

// CounterMap cross-references a reference-language counter table with a localized one.
type CounterMap struct {
	reference []string
	localized []string
	index     map[string]int
}

// NewCounterMap builds a CounterMap from two parallel tables. The first occurrence of a
// name in the reference table wins.
func NewCounterMap(reference, localized []string) (*CounterMap, error) {
	if len(reference) != len(localized) {
		return nil, fmt.Errorf("%w: reference has %d entries, localized has %d", ErrTableMismatch, len(reference), len(localized))
	}
	m := &CounterMap{
		reference: reference,
		localized: localized,
		index:     make(map[string]int, len(reference)),
	}
	for i, name := range reference {
		if _, ok := m.index[name]; !ok {
			m.index[name] = i
		}
	}
	return m, nil
}

// Localize returns the localized name at the position of name in the reference table.
func (m *CounterMap) Localize(name string) (string, error) {
	i, ok := m.index[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrCounterNotFound, name)
	}
	return m.localized[i], nil
}

// Resolve localizes the object and counter of every pair independently and composes
// the localized counter paths. Any missing name fails the whole resolution and the error
// lists every absent name.
func (m *CounterMap) Resolve(pairs []Pair) (Paths, error) {
	if missing := m.Missing(pairs); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %q", ErrCounterNotFound, missing)
	}
	paths := make(Paths, len(pairs))
	for _, p := range pairs {
		paths[p] = formatPath(m.localized[m.index[p.Object]], m.localized[m.index[p.Counter]], p.Instance)
	}
	return paths, nil
}

// Missing returns the canonical names of pairs that are absent from the reference table.
func (m *CounterMap) Missing(pairs []Pair) []string {
	missing := mapset.NewThreadUnsafeSet[string]()
	var ordered []string
	for _, p := range pairs {
		for _, name := range []string{p.Object, p.Counter} {
			if _, ok := m.index[name]; !ok && missing.Add(name) {
				ordered = append(ordered, name)
			}
		}
	}
	return ordered
}

func formatPath(object, counter, instance string) string {
	if instance == "" {
		return fmt.Sprintf(`\%s\%s`, object, counter)
	}
	return fmt.Sprintf(`\%s(%s)\%s`, object, instance, counter)
}

// ParseRegistryTable turns the Perflib Counter multi-string output, one entry per line,
// into the ordered table. Trailing blank entries are dropped; inner blank entries keep
// their position.
func ParseRegistryTable(output string) []string {
	output = strings.ReplaceAll(output, "\r\n", "\n")
	entries := strings.Split(output, "\n")
	for i := range entries {
		entries[i] = strings.TrimSpace(entries[i])
	}
	end := len(entries)
	for end > 0 && entries[end-1] == "" {
		end--
	}
	return entries[:end]
}
