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
	"context"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/graphcanon/services/canon/ir"
)

// Run applies rule to g until no anchor operator matches.
//
// Description:
//
//	Each scan walks a snapshot of the operator sequence. The first Apply
//	verdict is executed and the scan restarts from index 0. Rejected
//	operators are remembered by ID for the rest of the run so each
//	unsupported instance produces exactly one diagnostic.
//
// Inputs:
//
//	ctx - Checked between scans. Cancellation returns ctx.Err().
//	g - The graph to rewrite in place.
//	rule - The rule to apply.
//	opts - Budget, diagnostic sink and logger.
//
// Outputs:
//
//	*Stats - Always non-nil once arguments are valid, also on error.
//	error - ErrNoFixpoint, a *RewriteError, or a context error.
//
// Thread Safety:
//
//	Not safe for concurrent use on the same graph.
func Run(ctx context.Context, g *ir.Graph, rule Rule, opts Options) (*Stats, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if g == nil {
		return nil, ErrNilGraph
	}
	if rule == nil {
		return nil, ErrNilRule
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sink := opts.Sink
	if sink == nil {
		sink = NewLogSink(logger)
	}

	name := rule.Name()
	anchor := rule.Anchor()
	stats := &Stats{Rule: name}
	rejected := make(map[ir.OperatorID]struct{})
	defer func() { scansPerRun.Observe(float64(stats.Scans)) }()

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Scans++

		applied, err := scan(g, rule, anchor, opts.MaxRewrites, stats, rejected, sink, logger)
		if err != nil {
			return stats, err
		}
		if !applied {
			logger.Debug("rule reached fixpoint",
				slog.String("rule", name),
				slog.Int("rewrites", stats.Rewrites),
				slog.Int("rejections", stats.Rejections),
				slog.Int("scans", stats.Scans),
			)
			return stats, nil
		}
	}
}

// scan performs one pass over the sequence. It returns true after the first
// successful rewrite.
func scan(
	g *ir.Graph,
	rule Rule,
	anchor ir.OpType,
	maxRewrites int,
	stats *Stats,
	rejected map[ir.OperatorID]struct{},
	sink DiagnosticSink,
	logger *slog.Logger,
) (bool, error) {
	name := stats.Rule
	for _, op := range g.Operators() {
		if op.Type != anchor {
			continue
		}
		if _, seen := rejected[op.ID()]; seen {
			continue
		}

		m := rule.Match(g, op)
		switch m.Verdict {
		case VerdictSkip:
			continue

		case VerdictReject:
			rejected[op.ID()] = struct{}{}
			d := Diagnostic{
				Rule:         name,
				Operator:     op.Name,
				OperatorType: op.Type,
				Message:      m.Reason,
			}
			stats.Rejections++
			stats.Diagnostics = append(stats.Diagnostics, d)
			rewritesRejected.WithLabelValues(name).Inc()
			sink.Emit(d)

		case VerdictApply:
			if m.Apply == nil {
				return false, &RewriteError{Rule: name, Operator: op.Name, Err: ErrMissingApply}
			}
			if maxRewrites > 0 && stats.Rewrites >= maxRewrites {
				return false, fmt.Errorf("%w: rule %q still matches %q after %d rewrites",
					ErrNoFixpoint, name, op.Name, stats.Rewrites)
			}
			opName := op.Name
			if err := m.Apply(g); err != nil {
				return false, &RewriteError{Rule: name, Operator: opName, Err: err}
			}
			stats.Rewrites++
			rewritesApplied.WithLabelValues(name).Inc()
			logger.Debug("rewrite applied",
				slog.String("rule", name),
				slog.String("operator", opName),
			)
			return true, nil

		default:
			return false, &RewriteError{
				Rule:     name,
				Operator: op.Name,
				Err:      fmt.Errorf("unknown verdict %d", m.Verdict),
			}
		}
	}
	return false, nil
}
