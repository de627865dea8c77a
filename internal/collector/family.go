// Copyright (c) 2026, Ganeti Project. All rights reserved.
//
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package collector

// ValueType indicates how a family's samples are to be interpreted by the
// exposition layer. Everything the exporter currently emits is a gauge.
type ValueType string

const (
	TypeGauge   ValueType = "gauge"
	TypeCounter ValueType = "counter"
)

// Sample is a single labeled measurement inside a family.
type Sample struct {
	Labels map[string]string
	Value  float64
}

// Family is a named group of samples sharing one metric name, the unit
// handed to the exposition layer. A family with zero samples is valid and
// means "nothing to report for this metric on this snapshot"; callers
// checking for missing data rely on empty sample lists, not absent
// families.
type Family struct {
	Name    string
	Help    string
	Type    ValueType
	Samples []Sample
}

// NewGauge returns an empty gauge family.
func NewGauge(name, help string) *Family {
	return &Family{Name: name, Help: help, Type: TypeGauge}
}

// Add appends a sample to the family.
func (f *Family) Add(labels map[string]string, value float64) {
	f.Samples = append(f.Samples, Sample{Labels: labels, Value: value})
}

// Name builds a fully qualified metric name. All exporter metrics live
// under the "ganeti" subsystem; a non-empty namespace is prepended as a
// deployment-specific prefix, turning ganeti_node_ctotal into e.g.
// myorg_ganeti_node_ctotal. This is a pure naming transform and the only
// effect the namespace configuration has.
func Name(namespace, suffix string) string {
	if namespace == "" {
		return "ganeti_" + suffix
	}
	return namespace + "_ganeti_" + suffix
}
