// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package extract

// host.go extracts capacity, pagefile and counter sample values from host script outputs

import (
	"fmt"
	"strconv"
	"strings"
)

const bytesPerMB = 1024 * 1024

// CoreCountsFromOutput sums core counts across the processor records of the
// "processors" script. Each line is cores|enabled cores|logical processors.
// The enabled core count is used for physical cores when reported, otherwise the core count.
func CoreCountsFromOutput(output string) (physical int, logical int, err error) {
	records := ValsArrayFromRegexSubmatch(output, `^(\d*)\|(\d*)\|(\d*)$`)
	if len(records) == 0 {
		err = fmt.Errorf("no processor records found")
		return
	}
	for _, record := range records {
		cores := record[0]
		if record[1] != "" {
			cores = record[1]
		}
		var c, l int
		if c, err = strconv.Atoi(cores); err != nil {
			err = fmt.Errorf("invalid core count %q: %w", cores, err)
			return
		}
		if l, err = strconv.Atoi(record[2]); err != nil {
			err = fmt.Errorf("invalid logical processor count %q: %w", record[2], err)
			return
		}
		physical += c
		logical += l
	}
	return
}

// RAMTotalMBFromOutput sums the module capacities (bytes, one per line) and converts the total to MB.
func RAMTotalMBFromOutput(output string) (int64, error) {
	lines := NonEmptyLines(output)
	if len(lines) == 0 {
		return 0, fmt.Errorf("no memory modules found")
	}
	var total uint64
	for _, line := range lines {
		capacity, err := strconv.ParseUint(line, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid memory module capacity %q: %w", line, err)
		}
		total += capacity
	}
	return int64(total / bytesPerMB), nil
}

// PagefileManagedFromOutput parses the automatic pagefile management flag.
func PagefileManagedFromOutput(output string) (bool, error) {
	val := strings.TrimSpace(output)
	managed, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("invalid pagefile management flag %q", val)
	}
	return managed, nil
}

// PagefileSizesFromOutput sums initial and maximum sizes (MB) across pagefile settings,
// one name|initial|maximum line per pagefile. No settings yields zero sizes.
func PagefileSizesFromOutput(output string) (initialMB int64, maximumMB int64, err error) {
	for _, line := range NonEmptyLines(output) {
		fields := strings.Split(line, "|")
		if len(fields) != 3 {
			err = fmt.Errorf("invalid pagefile setting %q", line)
			return
		}
		var initial, maximum int64
		if initial, err = parseSize(fields[1]); err != nil {
			return
		}
		if maximum, err = parseSize(fields[2]); err != nil {
			return
		}
		initialMB += initial
		maximumMB += maximum
	}
	return
}

func parseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid pagefile size %q: %w", s, err)
	}
	return v, nil
}

// CounterValuesFromOutput parses index|value lines into a slice of count values
// ordered by index. Every index from 0 to count-1 must be present.
func CounterValuesFromOutput(output string, count int) ([]float64, error) {
	values := make([]float64, count)
	seen := make([]bool, count)
	for _, record := range ValsArrayFromRegexSubmatch(output, `^(\d+)\|(.+)$`) {
		idx, err := strconv.Atoi(record[0])
		if err != nil || idx >= count {
			return nil, fmt.Errorf("unexpected counter sample index %q", record[0])
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid counter sample value %q: %w", record[1], err)
		}
		values[idx] = v
		seen[idx] = true
	}
	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("missing counter sample %d", i)
		}
	}
	return values, nil
}
