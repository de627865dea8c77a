// Copyright (c) 2026, Ganeti Project. All rights reserved.
//
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package exporter

import (
	"net/http"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ganeti/prometheus-ganeti-exporter/internal/collector"
)

// bridge adapts the exporter's family snapshot to the prometheus.Collector
// interface. Describe is intentionally empty (an unchecked collector): the
// label sets and even the family set vary between snapshots, e.g. when a
// job status appears or an htools run fails.
type bridge struct {
	exporter *Exporter
}

func (b *bridge) Describe(chan<- *prometheus.Desc) {}

func (b *bridge) Collect(ch chan<- prometheus.Metric) {
	for _, fam := range b.exporter.Families() {
		valueType := prometheus.GaugeValue
		if fam.Type == collector.TypeCounter {
			valueType = prometheus.CounterValue
		}
		for _, sample := range fam.Samples {
			keys := make([]string, 0, len(sample.Labels))
			for k := range sample.Labels {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			values := make([]string, len(keys))
			for i, k := range keys {
				values[i] = sample.Labels[k]
			}

			desc := prometheus.NewDesc(fam.Name, fam.Help, keys, nil)
			metric, err := prometheus.NewConstMetric(desc, valueType, sample.Value, values...)
			if err != nil {
				continue
			}
			ch <- metric
		}
	}
}

// Handler returns the HTTP handler serving the exporter's metrics in the
// Prometheus exposition format. The handler uses a private registry so
// that the Go runtime and process collectors of the default registry do
// not leak into the cluster metrics.
func (e *Exporter) Handler() http.Handler {
	registry := prometheus.NewRegistry()
	registry.MustRegister(&bridge{exporter: e})
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
