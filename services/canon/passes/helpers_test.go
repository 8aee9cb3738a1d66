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
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/graphcanon/services/canon/ir"
	"github.com/AleutianAI/graphcanon/services/canon/rewrite"
)

// runRule runs rule to fixpoint, asserts the graph is still valid, and
// returns the stats and captured diagnostics.
func runRule(t *testing.T, g *ir.Graph, rule rewrite.Rule) (*rewrite.Stats, *rewrite.Collector) {
	t.Helper()
	sink := &rewrite.Collector{}
	stats, err := rewrite.Run(context.Background(), g, rule, rewrite.Options{Sink: sink, MaxRewrites: 1000})
	require.NoError(t, err)
	require.NoError(t, g.Validate())
	return stats, sink
}

// selectFixture builds x -> select_i(dim, index_i) -> sel_i -> relu_i -> act_i.
type selectFixture struct {
	g         *ir.Graph
	x         *ir.Operand
	selectors []*ir.Operator
	outs      []*ir.Operand
	relus     []*ir.Operator
}

func newSelectFixture(t *testing.T, shape []int, dim int, indices ...int) *selectFixture {
	t.Helper()
	f := &selectFixture{g: ir.NewGraph()}
	f.x = f.g.NewOperand("x")
	f.x.Shape = slices.Clone(shape)
	f.x.SetBatchAxis(0)

	axis := dim
	if axis < 0 {
		axis += len(shape)
	}
	outShape := slices.Clone(shape)
	if axis >= 0 && axis < len(shape) {
		outShape = slices.Delete(outShape, axis, axis+1)
	}

	for i, idx := range indices {
		sel := f.g.AppendOperator(ir.OpSelect, fmt.Sprintf("select_%d", i))
		sel.SetParam("dim", ir.Int(dim))
		sel.SetParam("index", ir.Int(idx))
		f.g.AddInput(sel, f.x)
		out := f.g.NewOperand(fmt.Sprintf("sel_%d", i))
		out.Shape = slices.Clone(outShape)
		f.g.AddOutput(sel, out)
		f.selectors = append(f.selectors, sel)
		f.outs = append(f.outs, out)
	}
	for i, out := range f.outs {
		relu := f.g.AppendOperator("nn.ReLU", fmt.Sprintf("relu_%d", i))
		f.g.AddInput(relu, out)
		f.g.AddOutput(relu, f.g.NewOperand(fmt.Sprintf("act_%d", i)))
		f.relus = append(f.relus, relu)
	}
	require.NoError(t, f.g.Validate())
	return f
}

// stackFixture builds n graph inputs -> torch.stack(dim) -> out -> relu.
type stackFixture struct {
	g      *ir.Graph
	inputs []*ir.Operand
	stack  *ir.Operator
	out    *ir.Operand
	relu   *ir.Operator
}

func newStackFixture(t *testing.T, n int, shape []int, batch, dim int) *stackFixture {
	t.Helper()
	f := &stackFixture{g: ir.NewGraph()}
	for i := 0; i < n; i++ {
		in := f.g.NewOperand(fmt.Sprintf("in_%d", i))
		in.Shape = slices.Clone(shape)
		in.SetBatchAxis(batch)
		f.inputs = append(f.inputs, in)
	}

	axis := dim
	if axis < 0 {
		axis += len(shape) + 1
	}
	f.stack = f.g.AppendOperator(ir.OpStack, "stack")
	f.stack.SetParam("dim", ir.Int(dim))
	for _, in := range f.inputs {
		f.g.AddInput(f.stack, in)
	}
	f.out = f.g.NewOperand("stacked")
	if axis >= 0 && axis <= len(shape) {
		f.out.Shape = slices.Insert(slices.Clone(shape), axis, n)
	}
	f.out.SetBatchAxis(batch)
	f.g.AddOutput(f.stack, f.out)

	f.relu = f.g.AppendOperator("nn.ReLU", "relu")
	f.g.AddInput(f.relu, f.out)
	f.g.AddOutput(f.relu, f.g.NewOperand("act"))
	require.NoError(t, f.g.Validate())
	return f
}

func opNames(g *ir.Graph) []string {
	var out []string
	for _, op := range g.Operators() {
		out = append(out, op.Name)
	}
	return out
}
