// Copyright (c) 2026, Ganeti Project. All rights reserved.
//
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package collector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ganeti/prometheus-ganeti-exporter/internal/ganeti"
)

func f64(v float64) *float64 { return &v }

func findFamily(t *testing.T, families []*Family, name string) *Family {
	t.Helper()
	for _, fam := range families {
		if fam.Name == name {
			return fam
		}
	}
	require.Failf(t, "family not found", "no family named %q", name)
	return nil
}

func sampleValue(t *testing.T, fam *Family, labels map[string]string) float64 {
	t.Helper()
	for _, s := range fam.Samples {
		if len(s.Labels) != len(labels) {
			continue
		}
		match := true
		for k, v := range labels {
			if s.Labels[k] != v {
				match = false
				break
			}
		}
		if match {
			return s.Value
		}
	}
	require.Failf(t, "sample not found", "family %q has no sample with labels %v", fam.Name, labels)
	return 0
}

func TestName(t *testing.T) {
	tests := []struct {
		name      string
		namespace string
		suffix    string
		expected  string
	}{
		{
			name:      "no namespace",
			namespace: "",
			suffix:    "node_mfree",
			expected:  "ganeti_node_mfree",
		},
		{
			name:      "with namespace",
			namespace: "prod",
			suffix:    "node_mfree",
			expected:  "prod_ganeti_node_mfree",
		},
		{
			name:      "org namespace",
			namespace: "myorg",
			suffix:    "cluster_jobs",
			expected:  "myorg_ganeti_cluster_jobs",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Name(tt.namespace, tt.suffix))
		})
	}
}

func TestCollectNodeMetrics(t *testing.T) {
	nodes := []ganeti.Node{
		{
			Name:   "node1.example.com",
			CTotal: f64(16),
			DFree:  f64(100000),
			DTotal: f64(200000),
			MFree:  f64(32000),
			MTotal: f64(64000),
		},
		{
			Name:   "node2.example.com",
			CTotal: f64(8),
			DFree:  f64(50000),
			DTotal: f64(100000),
			MFree:  f64(16000),
			MTotal: f64(32000),
		},
	}

	families := New("").CollectNodeMetrics(nodes)
	require.Len(t, families, 5)

	expected := map[string][2]float64{
		"ganeti_node_ctotal": {16, 8},
		"ganeti_node_dfree":  {100000, 50000},
		"ganeti_node_dtotal": {200000, 100000},
		"ganeti_node_mfree":  {32000, 16000},
		"ganeti_node_mtotal": {64000, 32000},
	}
	for name, values := range expected {
		fam := findFamily(t, families, name)
		require.Len(t, fam.Samples, 2)
		assert.Equal(t, values[0], sampleValue(t, fam, map[string]string{"name": "node1.example.com"}))
		assert.Equal(t, values[1], sampleValue(t, fam, map[string]string{"name": "node2.example.com"}))
	}
}

func TestCollectNodeMetricsMissingField(t *testing.T) {
	nodes := []ganeti.Node{
		{Name: "node1", CTotal: f64(4), MFree: f64(1024)},
		{Name: "node2", CTotal: f64(8)},
	}

	families := New("").CollectNodeMetrics(nodes)
	require.Len(t, families, 5)

	ctotal := findFamily(t, families, "ganeti_node_ctotal")
	assert.Len(t, ctotal.Samples, 2)

	mfree := findFamily(t, families, "ganeti_node_mfree")
	require.Len(t, mfree.Samples, 1)
	assert.Equal(t, "node1", mfree.Samples[0].Labels["name"])

	// Families for fields no node reports still come back, empty.
	dtotal := findFamily(t, families, "ganeti_node_dtotal")
	assert.Empty(t, dtotal.Samples)
}

func TestCollectNodeMetricsEmpty(t *testing.T) {
	families := New("").CollectNodeMetrics(nil)
	require.Len(t, families, 5)
	for _, fam := range families {
		assert.Empty(t, fam.Samples)
	}
}

func TestCollectNodeMetricsNamespace(t *testing.T) {
	nodes := []ganeti.Node{{Name: "node1", MFree: f64(512)}}
	families := New("prod").CollectNodeMetrics(nodes)
	fam := findFamily(t, families, "prod_ganeti_node_mfree")
	assert.Equal(t, float64(512), sampleValue(t, fam, map[string]string{"name": "node1"}))
}

func TestCollectInstanceMetrics(t *testing.T) {
	instances := []ganeti.Instance{
		{Name: "web1", OperVCPUs: f64(4), OperRAM: f64(8192), OperState: true},
		{Name: "db1", OperVCPUs: f64(8), OperRAM: f64(16384), OperState: true},
	}

	families := New("").CollectInstanceMetrics(instances)
	require.Len(t, families, 2)

	vcpus := findFamily(t, families, "ganeti_instance_oper_vcpus")
	assert.Equal(t, float64(4), sampleValue(t, vcpus, map[string]string{"name": "web1"}))
	assert.Equal(t, float64(8), sampleValue(t, vcpus, map[string]string{"name": "db1"}))

	ram := findFamily(t, families, "ganeti_instance_oper_ram")
	assert.Equal(t, float64(8192), sampleValue(t, ram, map[string]string{"name": "web1"}))
	assert.Equal(t, float64(16384), sampleValue(t, ram, map[string]string{"name": "db1"}))
}

func TestCollectInstanceMetricsStopped(t *testing.T) {
	instances := []ganeti.Instance{
		{Name: "running", OperVCPUs: f64(2), OperRAM: f64(2048), OperState: true},
		{Name: "stopped", OperVCPUs: f64(4), OperRAM: f64(4096), OperState: false},
	}

	families := New("").CollectInstanceMetrics(instances)

	vcpus := findFamily(t, families, "ganeti_instance_oper_vcpus")
	assert.Equal(t, float64(2), sampleValue(t, vcpus, map[string]string{"name": "running"}))
	assert.Equal(t, float64(0), sampleValue(t, vcpus, map[string]string{"name": "stopped"}))

	ram := findFamily(t, families, "ganeti_instance_oper_ram")
	assert.Equal(t, float64(0), sampleValue(t, ram, map[string]string{"name": "stopped"}))
}

func TestCollectInstanceMetricsEmpty(t *testing.T) {
	families := New("").CollectInstanceMetrics(nil)
	require.Len(t, families, 2)
	for _, fam := range families {
		assert.Empty(t, fam.Samples)
	}
}

func TestCPUAllocationPerNode(t *testing.T) {
	node1 := ganeti.Node{Name: "node1"}
	node2 := ganeti.Node{Name: "node2"}
	node3 := ganeti.Node{Name: "node3"}
	instances := []ganeti.Instance{
		{Name: "a", OperVCPUs: f64(4), OperState: true, PNode: "node1", SNodes: []string{"node2"}},
		{Name: "b", OperVCPUs: f64(2), OperState: true, PNode: "node1", SNodes: []string{"node3"}},
		{Name: "c", OperVCPUs: f64(8), OperState: true, PNode: "node2", SNodes: []string{"node1"}},
		{Name: "stopped", OperVCPUs: f64(16), OperState: false, PNode: "node1", SNodes: []string{"node2"}},
	}

	c := New("")

	primary := c.CPUAllocationPerNode(node1, instances, true)
	assert.Equal(t, "ganeti_node_p_oper_vcpus", primary.Name)
	require.Len(t, primary.Samples, 1)
	assert.Equal(t, float64(6), sampleValue(t, primary, map[string]string{"name": "node1"}))

	secondary := c.CPUAllocationPerNode(node1, instances, false)
	assert.Equal(t, "ganeti_node_s_oper_vcpus", secondary.Name)
	assert.Equal(t, float64(8), sampleValue(t, secondary, map[string]string{"name": "node1"}))

	// A node with no placements still gets its zero sample.
	assert.Equal(t, float64(0), sampleValue(t, c.CPUAllocationPerNode(node3, instances, true), map[string]string{"name": "node3"}))
	assert.Equal(t, float64(2), sampleValue(t, c.CPUAllocationPerNode(node3, instances, false), map[string]string{"name": "node3"}))

	assert.Equal(t, float64(8), sampleValue(t, c.CPUAllocationPerNode(node2, instances, true), map[string]string{"name": "node2"}))
	assert.Equal(t, float64(4), sampleValue(t, c.CPUAllocationPerNode(node2, instances, false), map[string]string{"name": "node2"}))
}

func TestCPUAllocationMultiSecondary(t *testing.T) {
	instances := []ganeti.Instance{
		{Name: "wide", OperVCPUs: f64(6), OperState: true, PNode: "node1", SNodes: []string{"node2", "node3"}},
	}
	c := New("")

	// Full vCPU count on each secondary, not split between them.
	for _, name := range []string{"node2", "node3"} {
		fam := c.CPUAllocationPerNode(ganeti.Node{Name: name}, instances, false)
		assert.Equal(t, float64(6), sampleValue(t, fam, map[string]string{"name": name}))
	}
}

func TestCollectVCPUAllocation(t *testing.T) {
	nodes := []ganeti.Node{{Name: "node1"}, {Name: "node2"}}
	instances := []ganeti.Instance{
		{Name: "a", OperVCPUs: f64(2), OperState: true, PNode: "node1", SNodes: []string{"node2"}},
	}

	families := New("").CollectVCPUAllocation(nodes, instances)
	require.Len(t, families, 4)

	names := make([]string, 0, len(families))
	for _, fam := range families {
		names = append(names, fam.Name)
		assert.Len(t, fam.Samples, 1)
	}
	assert.Equal(t, []string{
		"ganeti_node_p_oper_vcpus",
		"ganeti_node_s_oper_vcpus",
		"ganeti_node_p_oper_vcpus",
		"ganeti_node_s_oper_vcpus",
	}, names)
}

func ts(seconds int64) *ganeti.Timestamp {
	return &ganeti.Timestamp{Seconds: seconds}
}

func TestCollectJobMetrics(t *testing.T) {
	jobs := []ganeti.Job{
		{
			ID:         1234,
			Status:     ganeti.JobStatusSuccess,
			Ops:        []ganeti.JobOp{{ID: "OP_INSTANCE_CREATE"}},
			ReceivedTS: ts(1000),
			StartTS:    ts(1010),
			EndTS:      ts(1100),
		},
	}

	families := New("").CollectJobMetrics(jobs)
	require.Len(t, families, 2)

	labels := map[string]string{"job_operation": "OP_INSTANCE_CREATE", "job_id": "1234"}
	wait := findFamily(t, families, "ganeti_job_wait_time")
	assert.Equal(t, float64(10), sampleValue(t, wait, labels))
	run := findFamily(t, families, "ganeti_job_run_time")
	assert.Equal(t, float64(90), sampleValue(t, run, labels))
}

func TestCollectJobMetricsLifecycle(t *testing.T) {
	jobs := []ganeti.Job{
		// Queued: received only, no samples at all.
		{ID: 1, Status: ganeti.JobStatusQueued, ReceivedTS: ts(500)},
		// Running: wait sample but no run sample yet.
		{ID: 2, Status: ganeti.JobStatusRunning, Ops: []ganeti.JobOp{{ID: "OP_NODE_MIGRATE"}}, ReceivedTS: ts(500), StartTS: ts(505)},
	}

	families := New("").CollectJobMetrics(jobs)

	wait := findFamily(t, families, "ganeti_job_wait_time")
	require.Len(t, wait.Samples, 1)
	assert.Equal(t, "2", wait.Samples[0].Labels["job_id"])
	assert.Equal(t, float64(5), wait.Samples[0].Value)

	run := findFamily(t, families, "ganeti_job_run_time")
	assert.Empty(t, run.Samples)
}

func TestCollectJobMetricsUnknownOperation(t *testing.T) {
	jobs := []ganeti.Job{
		{ID: 7, Status: ganeti.JobStatusSuccess, ReceivedTS: ts(0), StartTS: ts(1), EndTS: ts(2)},
	}

	families := New("").CollectJobMetrics(jobs)
	wait := findFamily(t, families, "ganeti_job_wait_time")
	require.Len(t, wait.Samples, 1)
	assert.Equal(t, "unknown", wait.Samples[0].Labels["job_operation"])
}

func TestCollectJobMetricsEmpty(t *testing.T) {
	families := New("").CollectJobMetrics(nil)
	require.Len(t, families, 2)
	for _, fam := range families {
		assert.Empty(t, fam.Samples)
	}
}

func TestCollectSummaries(t *testing.T) {
	nodes := []ganeti.Node{
		{Name: "node1"},
		{Name: "node2", Offline: true},
		{Name: "node3"},
	}
	instances := []ganeti.Instance{
		{Name: "a"}, {Name: "b"}, {Name: "c"}, {Name: "d"},
	}
	jobs := []ganeti.Job{
		{ID: 1, Status: ganeti.JobStatusSuccess},
		{ID: 2, Status: ganeti.JobStatusSuccess},
		{ID: 3, Status: ganeti.JobStatusSuccess},
		{ID: 4, Status: ganeti.JobStatusRunning},
	}

	families := New("").CollectSummaries(nodes, instances, jobs)
	require.Len(t, families, 4)

	assert.Equal(t, float64(4), sampleValue(t, findFamily(t, families, "ganeti_cluster_instance_count"), nil))
	assert.Equal(t, float64(3), sampleValue(t, findFamily(t, families, "ganeti_cluster_node_count"), nil))
	assert.Equal(t, float64(1), sampleValue(t, findFamily(t, families, "ganeti_cluster_offline_nodes"), nil))

	jobCounts := findFamily(t, families, "ganeti_cluster_jobs")
	require.Len(t, jobCounts.Samples, 7)
	assert.Equal(t, float64(3), sampleValue(t, jobCounts, map[string]string{"job_status": "success"}))
	assert.Equal(t, float64(1), sampleValue(t, jobCounts, map[string]string{"job_status": "running"}))
	assert.Equal(t, float64(0), sampleValue(t, jobCounts, map[string]string{"job_status": "queued"}))
	assert.Equal(t, float64(0), sampleValue(t, jobCounts, map[string]string{"job_status": "error"}))
	assert.Equal(t, float64(0), sampleValue(t, jobCounts, map[string]string{"job_status": "waiting"}))
	assert.Equal(t, float64(0), sampleValue(t, jobCounts, map[string]string{"job_status": "canceled"}))
	assert.Equal(t, float64(0), sampleValue(t, jobCounts, map[string]string{"job_status": "canceling"}))
}

func TestCollectSummariesUnknownStatus(t *testing.T) {
	jobs := []ganeti.Job{
		{ID: 1, Status: "archived"},
		{ID: 2, Status: "archived"},
	}

	families := New("").CollectSummaries(nil, nil, jobs)
	jobCounts := findFamily(t, families, "ganeti_cluster_jobs")
	require.Len(t, jobCounts.Samples, 8)
	assert.Equal(t, float64(2), sampleValue(t, jobCounts, map[string]string{"job_status": "archived"}))
}

func TestCollectSummariesEmpty(t *testing.T) {
	families := New("").CollectSummaries(nil, nil, nil)
	require.Len(t, families, 4)

	assert.Equal(t, float64(0), sampleValue(t, findFamily(t, families, "ganeti_cluster_instance_count"), nil))
	assert.Equal(t, float64(0), sampleValue(t, findFamily(t, families, "ganeti_cluster_node_count"), nil))
	assert.Equal(t, float64(0), sampleValue(t, findFamily(t, families, "ganeti_cluster_offline_nodes"), nil))

	jobCounts := findFamily(t, families, "ganeti_cluster_jobs")
	assert.Len(t, jobCounts.Samples, 7)
}

func TestCollectSummariesNamespace(t *testing.T) {
	families := New("myorg").CollectSummaries(nil, nil, nil)
	findFamily(t, families, "myorg_ganeti_cluster_jobs")
	findFamily(t, families, "myorg_ganeti_cluster_node_count")
}

func TestCollectIdempotent(t *testing.T) {
	nodes := []ganeti.Node{{Name: "node1", MFree: f64(512), CTotal: f64(4)}}
	instances := []ganeti.Instance{{Name: "a", OperVCPUs: f64(2), OperRAM: f64(1024), OperState: true, PNode: "node1"}}

	c := New("prod")
	first := c.CollectNodeMetrics(nodes)
	second := c.CollectNodeMetrics(nodes)
	assert.Equal(t, first, second)

	assert.Equal(t, c.CollectInstanceMetrics(instances), c.CollectInstanceMetrics(instances))
	assert.Equal(t, c.CollectSummaries(nodes, instances, nil), c.CollectSummaries(nodes, instances, nil))
}
