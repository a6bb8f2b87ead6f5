// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package counters

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	reference = []string{"1", "1847", "2", "System", "4", "Memory", "6", "% Processor Time", "238", "Processor", "1382", "Available MBytes"}
	german    = []string{"1", "1847", "2", "System", "4", "Arbeitsspeicher", "6", "Prozessorzeit (%)", "238", "Prozessor", "1382", "Verfügbare MB"}
)

func TestNewCounterMapMismatch(t *testing.T) {
	_, err := NewCounterMap(reference, german[:len(german)-1])
	assert.ErrorIs(t, err, ErrTableMismatch)
}

func TestResolveLocalized(t *testing.T) {
	m, err := NewCounterMap(reference, german)
	require.NoError(t, err)
	paths, err := m.Resolve(CanonicalPairs())
	require.NoError(t, err)
	assert.Equal(t, `\Prozessor(_Total)\Prozessorzeit (%)`, paths[CPUPair])
	assert.Equal(t, `\Arbeitsspeicher\Verfügbare MB`, paths[MemoryPair])
}

func TestResolveReferenceLanguage(t *testing.T) {
	m, err := NewCounterMap(reference, reference)
	require.NoError(t, err)
	paths, err := m.Resolve(CanonicalPairs())
	require.NoError(t, err)
	assert.Equal(t, `\Processor(_Total)\% Processor Time`, paths[CPUPair])
	assert.Equal(t, `\Memory\Available MBytes`, paths[MemoryPair])
}

func TestResolveMissingName(t *testing.T) {
	m, err := NewCounterMap(reference[:6], german[:6])
	require.NoError(t, err)
	paths, err := m.Resolve(CanonicalPairs())
	assert.ErrorIs(t, err, ErrCounterNotFound)
	assert.Nil(t, paths)
	assert.Equal(t, []string{"Processor", "% Processor Time", "Available MBytes"}, m.Missing(CanonicalPairs()))
	assert.EqualError(t, err, `counter not found: ["Processor" "% Processor Time" "Available MBytes"]`)
}

func TestFirstOccurrenceWins(t *testing.T) {
	m, err := NewCounterMap([]string{"Memory", "Memory"}, []string{"first", "second"})
	require.NoError(t, err)
	name, err := m.Localize("Memory")
	require.NoError(t, err)
	assert.Equal(t, "first", name)
}

func TestParseRegistryTable(t *testing.T) {
	table := ParseRegistryTable("1\r\n1847\r\n2\r\nSystem\r\n\r\n\r\n")
	assert.Equal(t, []string{"1", "1847", "2", "System"}, table)
	assert.Empty(t, ParseRegistryTable(""))
	assert.Equal(t, []string{"a", "", "b"}, ParseRegistryTable("a\n\nb\n"))
}

// tables generates a pair of equal-length tables with unique reference names.
func tables() gopter.Gen {
	return gen.IntRange(1, 40).FlatMap(func(v interface{}) gopter.Gen {
		n := v.(int)
		return gen.SliceOfN(n, gen.Identifier()).Map(func(localized []string) [2][]string {
			ref := make([]string, len(localized))
			for i := range localized {
				ref[i] = fmt.Sprintf("name-%d", i)
			}
			return [2][]string{ref, localized}
		})
	}, reflect.TypeOf([2][]string{}))
}

func TestLocalizeProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("localize returns the entry at the same position", prop.ForAll(
		func(tbl [2][]string, pick int) bool {
			ref, loc := tbl[0], tbl[1]
			i := pick % len(ref)
			m, err := NewCounterMap(ref, loc)
			if err != nil {
				return false
			}
			got, err := m.Localize(ref[i])
			return err == nil && got == loc[i]
		},
		tables(),
		gen.IntRange(0, 1000),
	))

	properties.Property("absent names never resolve", prop.ForAll(
		func(tbl [2][]string, object string) bool {
			m, err := NewCounterMap(tbl[0], tbl[1])
			if err != nil {
				return false
			}
			_, err = m.Resolve([]Pair{{Object: "absent-" + object, Counter: tbl[0][0]}})
			return errors.Is(err, ErrCounterNotFound)
		},
		tables(),
		gen.Identifier(),
	))

	properties.TestingRun(t)
}
