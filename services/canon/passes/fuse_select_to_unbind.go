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

	"github.com/AleutianAI/graphcanon/services/canon/ir"
	"github.com/AleutianAI/graphcanon/services/canon/rewrite"
)

type fuseSelectToUnbind struct{}

// FuseSelectToUnbind returns the rule that replaces a complete family of
// Tensor.select operators over one operand with a single torch.unbind.
//
// Description:
//
//	For input P with static size N along axis d, the family is every
//	Tensor.select consumer of P on axis d. The rule matches only when the
//	normalized indices cover 0..N-1 exactly once each. Any gap, duplicate
//	or index outside [-N, N) leaves the graph untouched.
//
//	The unbind's outputs are the selectors' own output operands, so every
//	downstream reference stays valid.
func FuseSelectToUnbind() rewrite.Rule {
	return fuseSelectToUnbind{}
}

func (fuseSelectToUnbind) Name() string { return NameFuseSelectToUnbind }

func (fuseSelectToUnbind) Anchor() ir.OpType { return ir.OpSelect }

func (fuseSelectToUnbind) Match(g *ir.Graph, op *ir.Operator) rewrite.Match {
	in, dim, ok := selectAxis(op)
	if !ok {
		return rewrite.Skip()
	}
	n := in.Shape[dim]
	if n == ir.DimUnknown || n <= 0 {
		return rewrite.Skip()
	}

	family := make([]*ir.Operator, n)
	seen := make(map[ir.OperatorID]bool)
	for _, c := range g.Consumers(in) {
		if seen[c.ID()] {
			continue
		}
		seen[c.ID()] = true

		if c.Type != ir.OpSelect {
			continue
		}
		cin, cdim, ok := selectAxis(c)
		if !ok || cin != in || cdim != dim {
			continue
		}
		idx, ok := c.IntParam("index")
		if !ok {
			return rewrite.Skip()
		}
		if idx < 0 {
			idx += n
		}
		if idx < 0 || idx >= n {
			return rewrite.Skip()
		}
		if family[idx] != nil {
			return rewrite.Skip()
		}
		family[idx] = c
	}
	for _, member := range family {
		if member == nil {
			return rewrite.Skip()
		}
	}

	anchor := op
	for _, member := range family {
		if g.IndexOf(member) < g.IndexOf(anchor) {
			anchor = member
		}
	}
	return rewrite.ApplyWith(func(g *ir.Graph) error {
		unbind := g.InsertBefore(ir.OpUnbind, anchor.Name, anchor)
		unbind.SetParam("dim", ir.Int(dim))
		g.AddInput(unbind, in)

		for _, member := range family {
			out := member.Output(0)
			g.Disconnect(member)
			g.AddOutput(unbind, out)
		}
		for _, member := range family {
			if err := g.Erase(member); err != nil {
				return fmt.Errorf("erase fused select: %w", err)
			}
		}
		return nil
	})
}

// selectAxis returns the input of a single-input, single-output select and
// its axis normalized against the input rank.
func selectAxis(op *ir.Operator) (*ir.Operand, int, bool) {
	if op.NumInputs() != 1 || op.NumOutputs() != 1 {
		return nil, 0, false
	}
	in := op.Input(0)
	rank := in.Rank()
	// Selecting from a rank-1 operand yields scalars; those stay selects.
	if rank <= 1 {
		return nil, 0, false
	}
	dim, ok := op.IntParam("dim")
	if !ok {
		return nil, 0, false
	}
	if dim < 0 {
		dim += rank
	}
	if dim < 0 || dim >= rank {
		return nil, 0, false
	}
	return in, dim, true
}
