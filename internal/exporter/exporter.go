// Copyright (c) 2026, Ganeti Project. All rights reserved.
//
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package exporter ties the RAPI client, the collector and the optional
// htools runner together behind a Prometheus scrape handler. Cluster state
// is polled on a fixed interval and kept as an immutable snapshot; scrapes
// read the snapshot and never trigger cluster I/O themselves.
package exporter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/ganeti/prometheus-ganeti-exporter/internal/collector"
	"github.com/ganeti/prometheus-ganeti-exporter/internal/ganeti"
)

// ClusterClient is the slice of the RAPI client the exporter needs.
type ClusterClient interface {
	Nodes(ctx context.Context) ([]ganeti.Node, error)
	Instances(ctx context.Context) ([]ganeti.Instance, error)
	Jobs(ctx context.Context) ([]ganeti.Job, error)
}

// AuxCollector contributes extra metric families to a refresh, such as the
// htools capacity figures. Failures are the collector's own concern; it
// returns whatever it could produce.
type AuxCollector interface {
	Collect(ctx context.Context) []*collector.Family
}

// Exporter polls the cluster and serves the derived metric families.
type Exporter struct {
	client    ClusterClient
	collector *collector.Collector
	aux       AuxCollector
	interval  time.Duration
	logger    logr.Logger

	mu       sync.RWMutex
	families []*collector.Family
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithLogger attaches a logger to the exporter.
func WithLogger(logger logr.Logger) Option {
	return func(e *Exporter) {
		e.logger = logger.WithName("exporter")
	}
}

// WithAuxCollector adds an auxiliary family source run on every refresh.
func WithAuxCollector(aux AuxCollector) Option {
	return func(e *Exporter) {
		e.aux = aux
	}
}

// New builds an exporter polling via client every interval.
func New(client ClusterClient, c *collector.Collector, interval time.Duration, opts ...Option) *Exporter {
	e := &Exporter{
		client:    client,
		collector: c,
		interval:  interval,
		logger:    logr.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Refresh fetches a fresh cluster snapshot and swaps it in atomically.
//
// All three listings must succeed for the swap to happen; on any fetch
// error the previous snapshot stays in place so scrapes keep serving the
// last known good state.
func (e *Exporter) Refresh(ctx context.Context) error {
	start := time.Now()

	nodes, err := e.client.Nodes(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch nodes: %w", err)
	}
	instances, err := e.client.Instances(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch instances: %w", err)
	}
	jobs, err := e.client.Jobs(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch jobs: %w", err)
	}

	var families []*collector.Family
	families = append(families, e.collector.CollectNodeMetrics(nodes)...)
	families = append(families, e.collector.CollectInstanceMetrics(instances)...)
	families = append(families, e.collector.CollectVCPUAllocation(nodes, instances)...)
	families = append(families, e.collector.CollectJobMetrics(jobs)...)
	families = append(families, e.collector.CollectSummaries(nodes, instances, jobs)...)
	if e.aux != nil {
		families = append(families, e.aux.Collect(ctx)...)
	}

	e.mu.Lock()
	e.families = families
	e.mu.Unlock()

	e.logger.V(1).Info("refreshed cluster state",
		"nodes", len(nodes), "instances", len(instances), "jobs", len(jobs),
		"families", len(families), "duration", time.Since(start))
	return nil
}

// Families returns the families of the current snapshot. The returned
// slice is the snapshot itself and must not be mutated.
func (e *Exporter) Families() []*collector.Family {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.families
}

// Run refreshes on the configured interval until ctx is canceled. Failed
// refreshes are logged and retried on the next tick.
func (e *Exporter) Run(ctx context.Context) error {
	if err := e.Refresh(ctx); err != nil {
		e.logger.Error(err, "initial refresh failed")
	}

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := e.Refresh(ctx); err != nil {
				e.logger.Error(err, "refresh failed, keeping previous snapshot")
			}
		}
	}
}
