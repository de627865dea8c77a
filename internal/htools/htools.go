// Copyright (c) 2026, Ganeti Project. All rights reserved.
//
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package htools derives capacity planning metrics from the Ganeti htools
// binaries (hspace, hbal) installed on the master node. Both tools talk to
// the local luxi daemon, so this package only works when the exporter runs
// on the cluster master; it is disabled by default.
package htools

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/go-logr/logr"

	"github.com/ganeti/prometheus-ganeti-exporter/internal/collector"
)

// Config selects which binaries run and their parameters. Each tool has
// its own switch so that e.g. hspace can run on a cluster where hbal is
// not installed.
type Config struct {
	HspaceEnabled      bool
	HspacePath         string
	HspaceDiskTemplate string
	// HspaceAllocData is the standard allocation passed to hspace,
	// formatted as "disk,ram,vcpus" in MiB/MiB/count.
	HspaceAllocData string

	HbalEnabled bool
	HbalPath    string
	// HbalExtraParams holds additional whitespace-separated hbal
	// arguments appended to the fixed argv.
	HbalExtraParams string
}

// Runner executes the htools binaries and converts their output into
// metric families. A failing or unparsable tool is logged and skipped; it
// never fails the surrounding refresh.
type Runner struct {
	cfg       Config
	namespace string
	logger    logr.Logger

	// runCommand is swapped out by tests.
	runCommand func(ctx context.Context, path string, args ...string) ([]byte, error)
}

// NewRunner builds a runner emitting metric names under the given
// namespace prefix.
func NewRunner(cfg Config, namespace string, logger logr.Logger) *Runner {
	return &Runner{
		cfg:       cfg,
		namespace: namespace,
		logger:    logger.WithName("htools"),
		runCommand: func(ctx context.Context, path string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, path, args...).Output()
		},
	}
}

// Collect runs the enabled tools and returns whatever families could be
// derived. An empty slice means every enabled tool failed, or none is
// enabled.
func (r *Runner) Collect(ctx context.Context) []*collector.Family {
	var families []*collector.Family

	if r.cfg.HspaceEnabled {
		hspace, err := r.collectHspace(ctx)
		if err != nil {
			r.logger.Error(err, "hspace collection failed", "path", r.cfg.HspacePath)
		} else {
			families = append(families, hspace...)
		}
	}

	if r.cfg.HbalEnabled {
		hbal, err := r.collectHbal(ctx)
		if err != nil {
			r.logger.Error(err, "hbal collection failed", "path", r.cfg.HbalPath)
		} else {
			families = append(families, hbal...)
		}
	}

	return families
}

// collectHspace runs hspace in machine-readable mode and emits one gauge
// per numeric HTS_* variable, named after the lowercased variable.
func (r *Runner) collectHspace(ctx context.Context) ([]*collector.Family, error) {
	out, err := r.runCommand(ctx, r.cfg.HspacePath,
		"--machine-readable",
		"-L",
		"--disk-template", r.cfg.HspaceDiskTemplate,
		"--standard-alloc", r.cfg.HspaceAllocData,
	)
	if err != nil {
		return nil, fmt.Errorf("hspace execution failed: %w", err)
	}
	return r.parseHspace(out)
}

func (r *Runner) parseHspace(out []byte) ([]*collector.Family, error) {
	var families []*collector.Family
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		key, value, found := strings.Cut(line, "=")
		if !found || !strings.HasPrefix(key, "HTS_") {
			continue
		}
		num, err := strconv.ParseFloat(strings.Trim(value, `"`), 64)
		if err != nil {
			// Non-numeric variables (version strings etc) are not metrics.
			continue
		}
		suffix := "hspace_" + strings.ToLower(strings.TrimPrefix(key, "HTS_"))
		fam := collector.NewGauge(collector.Name(r.namespace, suffix), "Capacity figure reported by hspace ("+key+")")
		fam.Add(nil, num)
		families = append(families, fam)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan hspace output: %w", err)
	}
	if len(families) == 0 {
		return nil, fmt.Errorf("hspace output contained no HTS_ variables")
	}
	return families, nil
}

// collectHbal runs hbal in no-execute mode and extracts the initial and
// final cluster balance scores.
func (r *Runner) collectHbal(ctx context.Context) ([]*collector.Family, error) {
	args := []string{"-L"}
	args = append(args, strings.Fields(r.cfg.HbalExtraParams)...)
	out, err := r.runCommand(ctx, r.cfg.HbalPath, args...)
	if err != nil {
		return nil, fmt.Errorf("hbal execution failed: %w", err)
	}
	return r.parseHbal(out)
}

func (r *Runner) parseHbal(out []byte) ([]*collector.Family, error) {
	scores := map[string]*float64{"Initial score:": nil, "Final score:": nil}
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		for prefix := range scores {
			if !strings.HasPrefix(line, prefix) {
				continue
			}
			num, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(line, prefix)), 64)
			if err != nil {
				return nil, fmt.Errorf("unparsable hbal score line %q: %w", line, err)
			}
			v := num
			scores[prefix] = &v
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan hbal output: %w", err)
	}

	initial := scores["Initial score:"]
	final := scores["Final score:"]
	if initial == nil || final == nil {
		return nil, fmt.Errorf("hbal output is missing score lines")
	}

	initialFam := collector.NewGauge(collector.Name(r.namespace, "hbal_initial_score"), "Cluster balance score before rebalancing, lower is better")
	initialFam.Add(nil, *initial)
	finalFam := collector.NewGauge(collector.Name(r.namespace, "hbal_final_score"), "Cluster balance score hbal could reach, lower is better")
	finalFam.Add(nil, *final)
	return []*collector.Family{initialFam, finalFam}, nil
}
