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
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/graphcanon/services/canon/ir"
)

// sequence builds n operators of type t chained through fresh operands.
func sequence(t *testing.T, typ ir.OpType, names ...string) *ir.Graph {
	t.Helper()
	g := ir.NewGraph()
	prev := g.NewOperand("in")
	for _, n := range names {
		op := g.AppendOperator(typ, n)
		g.AddInput(op, prev)
		out := g.NewOperand(n + "_out")
		g.AddOutput(op, out)
		prev = out
	}
	require.NoError(t, g.Validate())
	return g
}

func retypeRule(name string) FuncRule {
	return FuncRule{
		RuleName:   name,
		AnchorType: "Old",
		MatchFunc: func(g *ir.Graph, op *ir.Operator) Match {
			return ApplyWith(func(g *ir.Graph) error {
				op.Retype("New")
				return nil
			})
		},
	}
}

func TestRun_RestartsUntilFixpoint(t *testing.T) {
	g := sequence(t, "Old", "a", "b", "c")
	rule := retypeRule("test_retype_restart")

	stats, err := Run(context.Background(), g, rule, Options{})
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Rewrites)
	assert.Equal(t, 4, stats.Scans, "one scan per rewrite plus the empty one")
	assert.Zero(t, stats.Rejections)
	for _, op := range g.Operators() {
		assert.Equal(t, ir.OpType("New"), op.Type)
	}
	assert.Equal(t, float64(3), testutil.ToFloat64(rewritesApplied.WithLabelValues("test_retype_restart")))

	// A second run is a no-op.
	stats, err = Run(context.Background(), g, rule, Options{})
	require.NoError(t, err)
	assert.Zero(t, stats.Rewrites)
	assert.Equal(t, 1, stats.Scans)
}

func TestRun_OnlyOffersAnchorType(t *testing.T) {
	g := sequence(t, "Other", "a", "b")
	calls := 0
	rule := FuncRule{
		RuleName:   "test_anchor",
		AnchorType: "Old",
		MatchFunc: func(g *ir.Graph, op *ir.Operator) Match {
			calls++
			return Skip()
		},
	}

	_, err := Run(context.Background(), g, rule, Options{})
	require.NoError(t, err)
	assert.Zero(t, calls)
}

func TestRun_RejectEmitsOnce(t *testing.T) {
	// "bad" is rejected; "a" and "c" are rewritten, which forces restarts
	// that would re-offer "bad" without rejection tracking.
	g := sequence(t, "Old", "bad", "a", "c")
	rule := FuncRule{
		RuleName:   "test_reject_once",
		AnchorType: "Old",
		MatchFunc: func(g *ir.Graph, op *ir.Operator) Match {
			if op.Name == "bad" {
				return Reject("operator %s is unsupported", op.Name)
			}
			return ApplyWith(func(g *ir.Graph) error {
				op.Retype("New")
				return nil
			})
		},
	}
	sink := &Collector{}
	before := g.Operators()[0].Type

	stats, err := Run(context.Background(), g, rule, Options{Sink: sink})
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Rewrites)
	assert.Equal(t, 1, stats.Rejections)
	require.Equal(t, 1, sink.Len())
	d := sink.Diagnostics()[0]
	assert.Equal(t, "test_reject_once", d.Rule)
	assert.Equal(t, "bad", d.Operator)
	assert.Equal(t, ir.OpType("Old"), d.OperatorType)
	assert.Equal(t, "operator bad is unsupported", d.Message)
	assert.Equal(t, stats.Diagnostics, sink.Diagnostics())
	assert.Equal(t, before, g.Operators()[0].Type, "rejected operator untouched")
	assert.Equal(t, float64(1), testutil.ToFloat64(rewritesRejected.WithLabelValues("test_reject_once")))
}

func TestRun_MaxRewrites(t *testing.T) {
	g := sequence(t, "Old", "loop")
	rule := FuncRule{
		RuleName:   "test_never_converges",
		AnchorType: "Old",
		MatchFunc: func(g *ir.Graph, op *ir.Operator) Match {
			return ApplyWith(func(g *ir.Graph) error { return nil })
		},
	}

	stats, err := Run(context.Background(), g, rule, Options{MaxRewrites: 5})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoFixpoint)
	assert.Equal(t, 5, stats.Rewrites)
}

func TestRun_ApplyErrors(t *testing.T) {
	t.Run("missing apply", func(t *testing.T) {
		g := sequence(t, "Old", "a")
		rule := FuncRule{
			RuleName:   "test_missing_apply",
			AnchorType: "Old",
			MatchFunc: func(g *ir.Graph, op *ir.Operator) Match {
				return Match{Verdict: VerdictApply}
			},
		}
		_, err := Run(context.Background(), g, rule, Options{})
		assert.ErrorIs(t, err, ErrMissingApply)
	})

	t.Run("apply failure is wrapped", func(t *testing.T) {
		g := sequence(t, "Old", "a")
		boom := errors.New("boom")
		rule := FuncRule{
			RuleName:   "test_apply_failure",
			AnchorType: "Old",
			MatchFunc: func(g *ir.Graph, op *ir.Operator) Match {
				return ApplyWith(func(g *ir.Graph) error { return boom })
			},
		}
		_, err := Run(context.Background(), g, rule, Options{})
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
		var re *RewriteError
		require.True(t, errors.As(err, &re))
		assert.Equal(t, "test_apply_failure", re.Rule)
		assert.Equal(t, "a", re.Operator)
	})
}

func TestRun_InvalidArguments(t *testing.T) {
	_, err := Run(context.Background(), nil, retypeRule("x"), Options{})
	assert.ErrorIs(t, err, ErrNilGraph)

	_, err = Run(context.Background(), ir.NewGraph(), nil, Options{})
	assert.ErrorIs(t, err, ErrNilRule)
}

func TestRun_ContextCanceled(t *testing.T) {
	g := sequence(t, "Old", "a")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats, err := Run(ctx, g, retypeRule("test_canceled"), Options{})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, stats)
	assert.Zero(t, stats.Scans)
	assert.Equal(t, ir.OpType("Old"), g.Operators()[0].Type)
}

func TestVerdict_String(t *testing.T) {
	assert.Equal(t, "skip", VerdictSkip.String())
	assert.Equal(t, "apply", VerdictApply.String())
	assert.Equal(t, "reject", VerdictReject.String())
	assert.Equal(t, "unknown", Verdict(42).String())
}

func TestTee_FansOut(t *testing.T) {
	a, b := &Collector{}, &Collector{}
	tee := Tee{a, nil, b}
	tee.Emit(Diagnostic{Rule: "r", Message: "m"})
	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 1, b.Len())
	assert.Equal(t, `r:  "": m`, Diagnostic{Rule: "r", Message: "m"}.String())
}
