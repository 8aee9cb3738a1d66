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
	"fmt"
	"slices"

	"github.com/AleutianAI/graphcanon/services/canon/ir"
	"github.com/AleutianAI/graphcanon/services/canon/rewrite"
)

type convertStackToConcat struct{}

// ConvertStackToConcat returns the rule that lowers torch.stack to Concat
// plus Tensor.reshape adapters.
//
// Description:
//
//	Inputs of rank r are stacked along axis k of an r+1 output. k is
//	normalized against r+1 and compared with the batch axis tagged on the
//	first input; stacking along the batch axis is rejected with a
//	diagnostic. The emitted Concat axis excludes the batch dimension, so
//	it is k-1 when k is past the batch axis.
//
//	When k == r each input gets a trailing unit dimension before the
//	concat. Otherwise the inputs are concatenated along k and one reshape
//	after the concat restores the stacked shape into the original output
//	operand.
func ConvertStackToConcat() rewrite.Rule {
	return convertStackToConcat{}
}

func (convertStackToConcat) Name() string { return NameConvertStackToConcat }

func (convertStackToConcat) Anchor() ir.OpType { return ir.OpStack }

func (convertStackToConcat) Match(_ *ir.Graph, op *ir.Operator) rewrite.Match {
	if op.NumInputs() == 0 || op.NumOutputs() != 1 {
		return rewrite.Skip()
	}
	k, ok := op.IntParam("dim")
	if !ok {
		return rewrite.Skip()
	}
	first := op.Input(0)
	batch, ok := first.BatchAxis()
	if !ok {
		return rewrite.Skip()
	}
	rank := first.Rank()
	if rank == 0 {
		return rewrite.Skip()
	}
	for _, in := range op.Inputs() {
		if in.Rank() != rank {
			return rewrite.Skip()
		}
	}

	axis := k
	if axis < 0 {
		axis += rank + 1
	}
	if axis < 0 || axis > rank {
		return rewrite.Reject("stack axis %d is out of range for rank %d inputs", k, rank)
	}
	if axis == batch {
		return rewrite.Reject("stack along batch axis %d is not supported", batch)
	}

	concatAxis := axis
	if axis > batch {
		concatAxis--
	}

	if axis == rank {
		return rewrite.ApplyWith(func(g *ir.Graph) error {
			expandInputs(g, op, batch)
			retypeToConcat(op, concatAxis)
			return nil
		})
	}
	return rewrite.ApplyWith(func(g *ir.Graph) error {
		unstackOutput(g, op, axis, batch)
		retypeToConcat(op, concatAxis)
		return nil
	})
}

// expandInputs inserts one reshape per input that appends a trailing unit
// dimension, and rewires the stack to read the expanded operands.
func expandInputs(g *ir.Graph, op *ir.Operator, batch int) {
	for i, in := range op.Inputs() {
		name := fmt.Sprintf("%s_expand_%d", op.Name, i)
		shape := append(slices.Clone(in.Shape), 1)

		expanded := g.NewOperand(name + "_out")
		expanded.Shape = shape
		expanded.SetBatchAxis(batch)

		adapter := g.InsertBefore(ir.OpReshape, name, op)
		adapter.SetParam("shape", ir.Ints(shape...))
		g.AddInput(adapter, in)
		g.AddOutput(adapter, expanded)

		g.SetInput(op, i, expanded)
	}
}

// unstackOutput routes the concat result through a fresh operand into one
// reshape that produces the original output operand.
func unstackOutput(g *ir.Graph, op *ir.Operator, axis, batch int) {
	n := op.NumInputs()
	out := op.Output(0)
	inShape := op.Input(0).Shape

	concatShape := slices.Clone(inShape)
	if concatShape[axis] != ir.DimUnknown {
		concatShape[axis] *= n
	}
	target := out.Shape
	if len(target) != len(inShape)+1 {
		target = slices.Insert(slices.Clone(inShape), axis, n)
	}

	mid := g.NewOperand(op.Name + "_concat_out")
	mid.Shape = concatShape
	mid.SetBatchAxis(batch)

	adapter := g.InsertAfter(ir.OpReshape, op.Name+"_unstack", op)
	adapter.SetParam("shape", ir.Ints(target...))

	g.SetOutput(op, 0, mid)
	g.AddInput(adapter, mid)
	g.AddOutput(adapter, out)
}

func retypeToConcat(op *ir.Operator, axis int) {
	op.Retype(ir.OpConcat, "dim")
	op.SetParam("axis", ir.Int(axis))
}
