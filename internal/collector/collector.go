// Copyright (c) 2026, Ganeti Project. All rights reserved.
//
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package collector converts one consistent snapshot of Ganeti cluster
// state (nodes, instances, jobs) into metric families.
//
// Every Collect* method is a pure function over its inputs: no I/O, no
// retained state, no dependency between methods. Calling a method twice on
// the same snapshot yields identical families, and the methods are safe to
// invoke concurrently on independent snapshots. Mixing records from
// different polls is a caller error the collector does not detect.
package collector

import (
	"strconv"

	"github.com/ganeti/prometheus-ganeti-exporter/internal/ganeti"
)

// Collector owns the namespace prefix applied to every emitted metric
// name. It is constructed once at startup and referenced read-only by all
// mapping functions, so call signatures stay free of the prefix.
type Collector struct {
	namespace string
}

// New returns a collector emitting names under the given namespace prefix
// (empty for the plain ganeti_ prefix).
func New(namespace string) *Collector {
	return &Collector{namespace: namespace}
}

func (c *Collector) name(suffix string) string {
	return Name(c.namespace, suffix)
}

// nodeFields is the fixed set of per-node numeric fields exported as
// individual gauge families, in emission order.
var nodeFields = []struct {
	suffix string
	help   string
	value  func(n ganeti.Node) *float64
}{
	{"node_ctotal", "Total number of logical processors on the node", func(n ganeti.Node) *float64 { return n.CTotal }},
	{"node_dfree", "Available disk space on the node in MiB", func(n ganeti.Node) *float64 { return n.DFree }},
	{"node_dtotal", "Total disk space on the node in MiB", func(n ganeti.Node) *float64 { return n.DTotal }},
	{"node_mfree", "Available memory on the node in MiB", func(n ganeti.Node) *float64 { return n.MFree }},
	{"node_mtotal", "Total memory on the node in MiB", func(n ganeti.Node) *float64 { return n.MTotal }},
}

// CollectNodeMetrics emits one sample per node and present field, labeled
// by node name. A field missing on a node skips that node's sample only;
// the family for the field is always returned, possibly empty.
func (c *Collector) CollectNodeMetrics(nodes []ganeti.Node) []*Family {
	families := make([]*Family, 0, len(nodeFields))
	for _, field := range nodeFields {
		fam := NewGauge(c.name(field.suffix), field.help)
		for _, n := range nodes {
			v := field.value(n)
			if v == nil {
				continue
			}
			fam.Add(map[string]string{"name": n.Name}, *v)
		}
		families = append(families, fam)
	}
	return families
}

// CollectInstanceMetrics emits the operational vCPU and memory gauges per
// instance. Instances that are not running report 0 for both, regardless
// of the raw record values: a stopped instance consumes nothing even
// though its static allocation is still on file.
func (c *Collector) CollectInstanceMetrics(instances []ganeti.Instance) []*Family {
	vcpus := NewGauge(c.name("instance_oper_vcpus"), "Number of vCPUs the running instance uses")
	ram := NewGauge(c.name("instance_oper_ram"), "Memory in MiB the running instance uses")
	for _, inst := range instances {
		var cpuVal, ramVal float64
		if inst.OperState {
			cpuVal = inst.VCPUs()
			ramVal = inst.RAM()
		}
		vcpus.Add(map[string]string{"name": inst.Name}, cpuVal)
		ram.Add(map[string]string{"name": inst.Name}, ramVal)
	}
	return []*Family{vcpus, ram}
}

// CPUAllocationPerNode sums the vCPUs of running instances placed on the
// given node and returns a single-sample family for it.
//
// With primary=true an instance counts when its primary node is the node;
// with primary=false it counts when the node appears anywhere in its
// secondary set. An instance with several secondaries contributes its full
// vCPU count to each matching node independently, it is never split.
func (c *Collector) CPUAllocationPerNode(node ganeti.Node, instances []ganeti.Instance, primary bool) *Family {
	suffix := "node_s_oper_vcpus"
	help := "vCPUs of running instances held as secondary copies on the node"
	if primary {
		suffix = "node_p_oper_vcpus"
		help = "vCPUs of running instances whose primary node is the node"
	}

	var total float64
	for _, inst := range instances {
		if !inst.OperState {
			continue
		}
		if primary {
			if inst.PNode == node.Name {
				total += inst.VCPUs()
			}
			continue
		}
		for _, snode := range inst.SNodes {
			if snode == node.Name {
				total += inst.VCPUs()
				break
			}
		}
	}

	fam := NewGauge(c.name(suffix), help)
	fam.Add(map[string]string{"name": node.Name}, total)
	return fam
}

// CollectVCPUAllocation computes the primary and secondary vCPU allocation
// for every node, returning 2x|nodes| single-sample families.
func (c *Collector) CollectVCPUAllocation(nodes []ganeti.Node, instances []ganeti.Instance) []*Family {
	families := make([]*Family, 0, 2*len(nodes))
	for _, n := range nodes {
		families = append(families, c.CPUAllocationPerNode(n, instances, true))
		families = append(families, c.CPUAllocationPerNode(n, instances, false))
	}
	return families
}

// CollectJobMetrics derives queue-wait and run-duration gauges per job.
//
// Wait time is received->start, run time is start->end. A job that has not
// reached a stage yet simply contributes no sample to the corresponding
// family; that is expected lifecycle state, not an error. Both families
// are always returned, even with no samples at all.
func (c *Collector) CollectJobMetrics(jobs []ganeti.Job) []*Family {
	wait := NewGauge(c.name("job_wait_time"), "Seconds a job spent queued before it started")
	run := NewGauge(c.name("job_run_time"), "Seconds a job spent executing")
	for _, job := range jobs {
		op := job.Operation()
		if d, ok := ganeti.DeltaSeconds(job.ReceivedTS, job.StartTS); ok {
			wait.Add(jobLabels(job, op), d)
		}
		if d, ok := ganeti.DeltaSeconds(job.StartTS, job.EndTS); ok {
			run.Add(jobLabels(job, op), d)
		}
	}
	return []*Family{wait, run}
}

func jobLabels(job ganeti.Job, op string) map[string]string {
	return map[string]string{
		"job_operation": op,
		"job_id":        strconv.FormatInt(job.ID, 10),
	}
}

// CollectSummaries computes the four cluster-wide count families: instance
// count, node count, offline node count, and jobs per status.
//
// The jobs family carries one sample for every status in the fixed
// enumeration even when its count is zero, so dashboards built against it
// never see a missing series. Statuses outside the enumeration observed in
// the input are appended as extra samples rather than dropped.
func (c *Collector) CollectSummaries(nodes []ganeti.Node, instances []ganeti.Instance, jobs []ganeti.Job) []*Family {
	instCount := NewGauge(c.name("cluster_instance_count"), "Number of instances in the cluster")
	instCount.Add(nil, float64(len(instances)))

	nodeCount := NewGauge(c.name("cluster_node_count"), "Number of nodes in the cluster")
	nodeCount.Add(nil, float64(len(nodes)))

	offline := 0
	for _, n := range nodes {
		if n.Offline {
			offline++
		}
	}
	offlineNodes := NewGauge(c.name("cluster_offline_nodes"), "Number of nodes marked offline")
	offlineNodes.Add(nil, float64(offline))

	counts := make(map[ganeti.JobStatus]int, len(ganeti.KnownJobStatuses))
	var unknown []ganeti.JobStatus
	for _, job := range jobs {
		if _, seen := counts[job.Status]; !seen && !job.Status.Known() {
			unknown = append(unknown, job.Status)
		}
		counts[job.Status]++
	}

	jobCounts := NewGauge(c.name("cluster_jobs"), "Number of jobs per status")
	for _, status := range ganeti.KnownJobStatuses {
		jobCounts.Add(map[string]string{"job_status": string(status)}, float64(counts[status]))
	}
	for _, status := range unknown {
		jobCounts.Add(map[string]string{"job_status": string(status)}, float64(counts[status]))
	}

	return []*Family{instCount, nodeCount, offlineNodes, jobCounts}
}
