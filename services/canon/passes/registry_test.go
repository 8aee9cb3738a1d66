// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package passes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/graphcanon/services/canon/ir"
	"github.com/AleutianAI/graphcanon/services/canon/rewrite"
)

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{
		NameConvertStackToConcat,
		NameEliminateNoopReshape,
		NameFuseSelectToUnbind,
	}, Names())

	rules := Default()
	require.Len(t, rules, 3)
	for i, name := range DefaultOrder() {
		assert.Equal(t, name, rules[i].Name())
	}

	_, err := Lookup("fold_everything")
	assert.ErrorIs(t, err, ErrUnknownPass)

	_, err = Resolve([]string{NameFuseSelectToUnbind, "nope"})
	assert.ErrorIs(t, err, ErrUnknownPass)
}

// mixedGraph exercises every default rule:
//
//	x[1,2,4] -> select(1,0), select(1,-1) -> s0, s1
//	torch.stack(s0, s1, dim=-1) -> st[1,4,2]
//	reshape(st) -> r[1,4,2] -> relu -> out
//	torch.stack(s0, s1, dim=0) -> rejected
func mixedGraph(t *testing.T) *ir.Graph {
	t.Helper()
	g := ir.NewGraph()
	x := g.NewOperand("x")
	x.Shape = []int{1, 2, 4}
	x.SetBatchAxis(0)

	var sel []*ir.Operand
	for _, idx := range []int{0, -1} {
		op := g.AppendOperator(ir.OpSelect, "select")
		op.SetParam("dim", ir.Int(1))
		op.SetParam("index", ir.Int(idx))
		g.AddInput(op, x)
		out := g.NewOperand("s")
		out.Shape = []int{1, 4}
		out.SetBatchAxis(0)
		g.AddOutput(op, out)
		sel = append(sel, out)
	}

	stack := g.AppendOperator(ir.OpStack, "stack")
	stack.SetParam("dim", ir.Int(-1))
	g.AddInput(stack, sel[0])
	g.AddInput(stack, sel[1])
	st := g.NewOperand("st")
	st.Shape = []int{1, 4, 2}
	st.SetBatchAxis(0)
	g.AddOutput(stack, st)

	reshape := g.AppendOperator(ir.OpReshape, "reshape")
	g.AddInput(reshape, st)
	r := g.NewOperand("r")
	r.Shape = []int{1, 4, 2}
	r.SetBatchAxis(0)
	g.AddOutput(reshape, r)

	relu := g.AppendOperator("nn.ReLU", "relu")
	g.AddInput(relu, r)
	g.AddOutput(relu, g.NewOperand("out"))

	bad := g.AppendOperator(ir.OpStack, "stack_batch")
	bad.SetParam("dim", ir.Int(0))
	g.AddInput(bad, sel[0])
	g.AddInput(bad, sel[1])
	g.AddOutput(bad, g.NewOperand("bad_out"))

	require.NoError(t, g.Validate())
	return g
}

func TestDefault_PreservesInvariantsAndIsIdempotent(t *testing.T) {
	g := mixedGraph(t)

	total := 0
	for _, rule := range Default() {
		stats, _ := runRule(t, g, rule)
		total += stats.Rewrites
	}
	assert.Equal(t, 3, total)

	for _, op := range g.Operators() {
		assert.NotEqual(t, ir.OpSelect, op.Type)
		if op.Type == ir.OpConcat {
			_, ok := op.Param("dim")
			assert.False(t, ok, "%s kept a stale dim", op.Name)
		}
	}
	_, ok := g.OperatorByName("reshape")
	assert.False(t, ok, "no-op reshape removed")

	after := g.String()
	for _, rule := range Default() {
		stats, err := rewrite.Run(context.Background(), g, rule, rewrite.Options{Sink: &rewrite.Collector{}})
		require.NoError(t, err)
		assert.Zero(t, stats.Rewrites, "%s matched its own output", rule.Name())
	}
	assert.Equal(t, after, g.String())
	require.NoError(t, g.Validate())
}
