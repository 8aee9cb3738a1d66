// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

import (
	"context"
	"time"

	"github.com/AleutianAI/graphcanon/services/canon/ir"
	"github.com/AleutianAI/graphcanon/services/canon/rewrite"
)

// Pass is one step of a pipeline.
//
// Description:
//
//	A pass borrows the graph mutably for the duration of Run and must
//	return it with every invariant holding.
type Pass interface {
	// Name returns the pass's unique identifier within a pipeline.
	//
	// Outputs:
	//   string - Unique pass name (e.g., "fuse_select_to_unbind").
	Name() string

	// Run rewrites g in place.
	//
	// Inputs:
	//   ctx - Context for cancellation between rewrite scans.
	//   g - The graph to rewrite.
	//   opts - Engine options supplied by the executor.
	//
	// Outputs:
	//   *rewrite.Stats - Counts for the report. May be nil.
	//   error - Non-nil if the pass failed.
	Run(ctx context.Context, g *ir.Graph, opts rewrite.Options) (*rewrite.Stats, error)
}

// PassStatus represents the execution status of a pass.
type PassStatus string

const (
	// PassStatusCompleted indicates the pass reached its fixpoint.
	PassStatusCompleted PassStatus = "completed"

	// PassStatusFailed indicates the pass returned an error.
	PassStatusFailed PassStatus = "failed"

	// PassStatusSkipped indicates the pass never started.
	PassStatusSkipped PassStatus = "skipped"
)

// Pipeline is a validated, ordered list of passes.
//
// Thread Safety:
//
//	Immutable after Build; safe to share between executors.
type Pipeline struct {
	name   string
	passes []Pass
}

// Name returns the pipeline name.
func (p *Pipeline) Name() string {
	return p.name
}

// Len returns the number of passes.
func (p *Pipeline) Len() int {
	return len(p.passes)
}

// PassNames returns the pass names in execution order.
func (p *Pipeline) PassNames() []string {
	names := make([]string, len(p.passes))
	for i, pass := range p.passes {
		names[i] = pass.Name()
	}
	return names
}

// PassReport is the outcome of one pass.
type PassReport struct {
	// Name is the pass name.
	Name string `json:"name"`

	// Status is the final pass status.
	Status PassStatus `json:"status"`

	// Rewrites is the number of applied rewrites.
	Rewrites int `json:"rewrites"`

	// Rejections is the number of instances left untouched with a diagnostic.
	Rejections int `json:"rejections"`

	// Scans is the number of operator sequence scans.
	Scans int `json:"scans"`

	// Diagnostics are the messages for rejected instances.
	Diagnostics []rewrite.Diagnostic `json:"diagnostics,omitempty"`

	// Duration is the pass execution time.
	Duration time.Duration `json:"duration"`

	// Error is the error message (if failed).
	Error string `json:"error,omitempty"`

	err error
}

// Err returns the pass error, wrapped in a *PassError, or nil.
func (r PassReport) Err() error {
	return r.err
}

// Result represents the outcome of a pipeline run.
type Result struct {
	// Success indicates every pass completed.
	Success bool `json:"success"`

	// RunID identifies this run in logs and traces.
	RunID string `json:"run_id"`

	// Pipeline is the pipeline name.
	Pipeline string `json:"pipeline"`

	// Duration is the total execution time.
	Duration time.Duration `json:"duration"`

	// Passes holds one report per configured pass, in order.
	Passes []PassReport `json:"passes"`

	// Rewrites is the total across passes.
	Rewrites int `json:"rewrites"`

	// Diagnostics is the total diagnostic count across passes.
	Diagnostics int `json:"diagnostics"`
}

// Failed returns the reports of failed passes.
func (r *Result) Failed() []PassReport {
	var out []PassReport
	for _, p := range r.Passes {
		if p.Status == PassStatusFailed {
			out = append(out, p)
		}
	}
	return out
}
