package report

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"exspect/internal/table"
)

const metricNamespace = "exspect"

// createPromReport renders the tables in the Prometheus text exposition format, suitable
// for a node_exporter textfile collector. Numeric fields with a metric name become gauges
// labeled by the table's key field; flagged values become check_ok gauges (1 good, 0 bad).
func createPromReport(allTableValues []table.TableValues) (out []byte, err error) {
	registry := prometheus.NewRegistry()
	gauges := make(map[string]*prometheus.GaugeVec)
	gauge := func(name string, help string, labels []string) (*prometheus.GaugeVec, error) {
		if g, ok := gauges[name]; ok {
			return g, nil
		}
		g := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricNamespace,
			Name:      name,
			Help:      help,
		}, labels)
		if err := registry.Register(g); err != nil {
			return nil, fmt.Errorf("failed to register metric %s: %w", name, err)
		}
		gauges[name] = g
		return g, nil
	}
	checks, err := gauge("check_ok", "Whether a flagged value is within the recommended range.", []string{"server", "check"})
	if err != nil {
		return
	}
	for _, tableValues := range allTableValues {
		keyIdx := -1
		if tableValues.KeyField != "" && tableValues.NumRows() > 0 {
			if keyIdx, err = table.GetFieldIndex(tableValues.KeyField, tableValues); err != nil {
				return
			}
		}
		var labels []string
		if keyIdx >= 0 {
			labels = []string{"server"}
		}
		for _, field := range tableValues.Fields {
			for row, val := range field.Values {
				var labelValues []string
				server := ""
				if keyIdx >= 0 {
					server = tableValues.Fields[keyIdx].Values[row]
					labelValues = []string{server}
				}
				if field.Flagged() && field.Verdicts[row] != table.VerdictNone {
					checks.WithLabelValues(server, field.Name).Set(verdictValue(field.Verdicts[row]))
				}
				if field.Metric == "" {
					continue
				}
				v, parseErr := strconv.ParseFloat(val, 64)
				if parseErr != nil {
					continue
				}
				var g *prometheus.GaugeVec
				if g, err = gauge(field.Metric, fmt.Sprintf("%s (%s).", field.Name, tableValues.Name), labels); err != nil {
					return
				}
				g.WithLabelValues(labelValues...).Set(v)
			}
		}
	}
	families, err := registry.Gather()
	if err != nil {
		err = fmt.Errorf("failed to gather metrics: %w", err)
		return
	}
	var buf bytes.Buffer
	for _, family := range families {
		if _, err = expfmt.MetricFamilyToText(&buf, family); err != nil {
			err = fmt.Errorf("failed to encode metrics: %w", err)
			return
		}
	}
	out = buf.Bytes()
	return
}

func verdictValue(v table.Verdict) float64 {
	if v == table.VerdictGood {
		return 1
	}
	return 0
}
