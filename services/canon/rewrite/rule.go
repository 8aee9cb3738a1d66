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

import "github.com/AleutianAI/graphcanon/services/canon/ir"

// FuncRule adapts a match function to the Rule interface.
type FuncRule struct {
	RuleName   string
	AnchorType ir.OpType
	MatchFunc  func(g *ir.Graph, op *ir.Operator) Match
}

// Name implements Rule.
func (r FuncRule) Name() string { return r.RuleName }

// Anchor implements Rule.
func (r FuncRule) Anchor() ir.OpType { return r.AnchorType }

// Match implements Rule.
func (r FuncRule) Match(g *ir.Graph, op *ir.Operator) Match {
	if r.MatchFunc == nil {
		return Skip()
	}
	return r.MatchFunc(g, op)
}
