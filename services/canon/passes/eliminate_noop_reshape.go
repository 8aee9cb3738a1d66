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

type eliminateNoopReshape struct{}

// EliminateNoopReshape returns the rule that removes Tensor.reshape
// operators whose input and output shapes are identical and fully known.
// Outputs without consumers are kept since they may be graph results.
func EliminateNoopReshape() rewrite.Rule {
	return eliminateNoopReshape{}
}

func (eliminateNoopReshape) Name() string { return NameEliminateNoopReshape }

func (eliminateNoopReshape) Anchor() ir.OpType { return ir.OpReshape }

func (eliminateNoopReshape) Match(g *ir.Graph, op *ir.Operator) rewrite.Match {
	if op.NumInputs() != 1 || op.NumOutputs() != 1 {
		return rewrite.Skip()
	}
	in, out := op.Input(0), op.Output(0)
	if in == out || !in.ShapeKnown() || !out.ShapeKnown() {
		return rewrite.Skip()
	}
	if !slices.Equal(in.Shape, out.Shape) {
		return rewrite.Skip()
	}
	if !sameBatchAxis(in, out) {
		return rewrite.Skip()
	}
	if g.ConsumerCount(out) == 0 {
		return rewrite.Skip()
	}

	return rewrite.ApplyWith(func(g *ir.Graph) error {
		seen := make(map[ir.OperatorID]bool)
		for _, c := range g.Consumers(out) {
			if seen[c.ID()] {
				continue
			}
			seen[c.ID()] = true
			for k := 0; k < c.NumInputs(); k++ {
				if c.Input(k) == out {
					g.SetInput(c, k, in)
				}
			}
		}
		g.Disconnect(op)
		if err := g.Erase(op); err != nil {
			return fmt.Errorf("erase reshape: %w", err)
		}
		if err := g.EraseOperand(out); err != nil {
			return fmt.Errorf("erase reshape output: %w", err)
		}
		return nil
	})
}

func sameBatchAxis(a, b *ir.Operand) bool {
	ab, aok := a.BatchAxis()
	bb, bok := b.BatchAxis()
	return aok == bok && ab == bb
}
