// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rewrite

import (
	"fmt"
	"log/slog"

	"github.com/AleutianAI/graphcanon/services/canon/ir"
)

// Verdict is a rule's decision about one anchor operator.
type Verdict int

const (
	// VerdictSkip means the motif is not present.
	VerdictSkip Verdict = iota

	// VerdictApply means the motif is present and the rewrite should run.
	VerdictApply

	// VerdictReject means the motif is present but unsupported.
	VerdictReject
)

// String returns the string representation of the Verdict.
func (v Verdict) String() string {
	switch v {
	case VerdictSkip:
		return "skip"
	case VerdictApply:
		return "apply"
	case VerdictReject:
		return "reject"
	default:
		return "unknown"
	}
}

// Match is the result of evaluating a rule against one operator.
type Match struct {
	// Verdict selects what Run does next.
	Verdict Verdict

	// Reason is the diagnostic text for VerdictReject.
	Reason string

	// Apply performs the rewrite for VerdictApply. It must leave every
	// graph invariant holding when it returns nil.
	Apply func(g *ir.Graph) error
}

// Skip returns a no-match result.
func Skip() Match {
	return Match{Verdict: VerdictSkip}
}

// Reject returns a present-but-unsupported result with a formatted reason.
func Reject(format string, args ...any) Match {
	return Match{Verdict: VerdictReject, Reason: fmt.Sprintf(format, args...)}
}

// ApplyWith returns a match that runs fn.
func ApplyWith(fn func(g *ir.Graph) error) Match {
	return Match{Verdict: VerdictApply, Apply: fn}
}

// Rule is one canonicalization rule.
//
// Description:
//
//	Run only offers operators whose Type equals Anchor, so a rule never sees
//	types it does not pattern-match against.
//
// Thread Safety:
//
//	Rules must be stateless between Match calls; any per-run state belongs
//	in the Apply closure.
type Rule interface {
	// Name returns the rule's stable identifier (e.g. "fuse_select_to_unbind").
	Name() string

	// Anchor returns the operator type the motif is rooted at.
	Anchor() ir.OpType

	// Match inspects op without mutating g.
	Match(g *ir.Graph, op *ir.Operator) Match
}

// Options configures a single Run.
type Options struct {
	// MaxRewrites bounds the number of rewrites in one run. Zero means
	// unbounded. Reaching the bound with a match still pending returns
	// ErrNoFixpoint.
	MaxRewrites int

	// Sink receives diagnostics for rejected instances. Nil uses a LogSink
	// over Logger.
	Sink DiagnosticSink

	// Logger receives debug logs. Nil uses slog.Default().
	Logger *slog.Logger
}

// Stats summarizes one Run.
type Stats struct {
	// Rule is the rule name.
	Rule string `json:"rule"`

	// Rewrites is the number of applied matches.
	Rewrites int `json:"rewrites"`

	// Rejections is the number of distinct rejected instances.
	Rejections int `json:"rejections"`

	// Scans is the number of sequence scans started, including the final
	// one that found nothing.
	Scans int `json:"scans"`

	// Diagnostics holds one entry per rejection, in emission order.
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}
