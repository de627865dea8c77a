// Copyright (c) 2026, Ganeti Project. All rights reserved.
//
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package ganeti holds the typed view of the Ganeti remote API (RAPI)
// responses and the HTTP client that fetches them.
//
// The RAPI bulk endpoints omit or null out fields freely, most notably the
// operational resource fields of stopped instances and the timestamps of
// jobs that have not progressed through their lifecycle yet. Every optional
// field is therefore a pointer so that "absent" is distinguishable from
// zero and every consumer handles the absent branch explicitly.
package ganeti

import "encoding/json"

// Timestamp is the RAPI representation of a point in time: a two element
// JSON array of [seconds, microseconds]. The zero value is a valid
// timestamp at the epoch.
type Timestamp struct {
	Seconds int64
	Micros  int64

	// malformed marks a value that did not decode as a timestamp array.
	// Such a timestamp is treated as absent, so one bad record never
	// aborts decoding of the whole batch it arrived in.
	malformed bool
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var parts []int64
	if err := json.Unmarshal(data, &parts); err != nil || len(parts) == 0 {
		t.malformed = true
		return nil
	}
	t.Seconds = parts[0]
	if len(parts) > 1 {
		t.Micros = parts[1]
	}
	return nil
}

// DeltaSeconds returns the elapsed seconds between two optional timestamps,
// computed as to.Seconds - from.Seconds. The second return is false when
// either endpoint is missing or was malformed on the wire, which callers
// treat as "no sample". The microsecond components are carried for format
// fidelity but do not affect the result, and negative deltas pass through
// unclamped.
func DeltaSeconds(from, to *Timestamp) (float64, bool) {
	if from == nil || to == nil || from.malformed || to.malformed {
		return 0, false
	}
	return float64(to.Seconds - from.Seconds), true
}

// Node is one entry of the /2/nodes?bulk=1 response. The numeric capacity
// fields can be missing on a per-node basis, e.g. on offline nodes.
type Node struct {
	Name     string   `json:"name"`
	CTotal   *float64 `json:"ctotal"`
	DFree    *float64 `json:"dfree"`
	DTotal   *float64 `json:"dtotal"`
	MFree    *float64 `json:"mfree"`
	MTotal   *float64 `json:"mtotal"`
	PInstCnt *int64   `json:"pinst_cnt"`
	SInstCnt *int64   `json:"sinst_cnt"`
	Offline  bool     `json:"offline"`
}

// Instance is one entry of the /2/instances?bulk=1 response. PNode is the
// node the instance executes on; SNodes are its replication targets and
// never contain PNode (guaranteed by the cluster, not checked here).
type Instance struct {
	Name      string   `json:"name"`
	OperVCPUs *float64 `json:"oper_vcpus"`
	OperRAM   *float64 `json:"oper_ram"`
	OperState bool     `json:"oper_state"`
	PNode     string   `json:"pnode"`
	SNodes    []string `json:"snodes"`
}

// VCPUs returns the operational vCPU count, treating a null field as zero.
func (i Instance) VCPUs() float64 {
	if i.OperVCPUs == nil {
		return 0
	}
	return *i.OperVCPUs
}

// RAM returns the operational memory, treating a null field as zero.
func (i Instance) RAM() float64 {
	if i.OperRAM == nil {
		return 0
	}
	return *i.OperRAM
}

// JobStatus is the lifecycle state reported for a job. The set below is
// what current Ganeti releases emit; values outside it are carried through
// as-is so that a newer cluster does not break the exporter.
type JobStatus string

const (
	JobStatusSuccess   JobStatus = "success"
	JobStatusRunning   JobStatus = "running"
	JobStatusQueued    JobStatus = "queued"
	JobStatusError     JobStatus = "error"
	JobStatusWaiting   JobStatus = "waiting"
	JobStatusCanceled  JobStatus = "canceled"
	JobStatusCanceling JobStatus = "canceling"
)

// KnownJobStatuses lists every status the cluster summary reports, in the
// order the samples are emitted. Each of these appears in the summary even
// with a zero count.
var KnownJobStatuses = []JobStatus{
	JobStatusSuccess,
	JobStatusRunning,
	JobStatusQueued,
	JobStatusError,
	JobStatusWaiting,
	JobStatusCanceled,
	JobStatusCanceling,
}

// Known reports whether s is part of the fixed status enumeration.
func (s JobStatus) Known() bool {
	for _, k := range KnownJobStatuses {
		if s == k {
			return true
		}
	}
	return false
}

// JobOp is a single operation inside a job's operation list.
type JobOp struct {
	ID string `json:"OP_ID"`
}

// Job is one entry of the /2/jobs?bulk=1 response. The three timestamps
// track the queued -> running -> terminal lifecycle; each is nil until the
// job reaches the corresponding stage. Ops can be null entirely.
type Job struct {
	ID         int64      `json:"id"`
	Status     JobStatus  `json:"status"`
	Ops        []JobOp    `json:"ops"`
	ReceivedTS *Timestamp `json:"received_ts"`
	StartTS    *Timestamp `json:"start_ts"`
	EndTS      *Timestamp `json:"end_ts"`
}

// Operation returns the identifier of the job's first operation, or
// "unknown" when the operation list is absent or empty.
func (j Job) Operation() string {
	if len(j.Ops) == 0 || j.Ops[0].ID == "" {
		return "unknown"
	}
	return j.Ops[0].ID
}

// ClusterInfo is the subset of the /2/info response the exporter uses to
// probe the endpoint at startup.
type ClusterInfo struct {
	Name    string `json:"name"`
	Version string `json:"software_version"`
}
