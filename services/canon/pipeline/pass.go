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
	"fmt"

	"github.com/AleutianAI/graphcanon/services/canon/ir"
	"github.com/AleutianAI/graphcanon/services/canon/rewrite"
)

// RulePass runs a rewrite rule to its fixpoint.
type RulePass struct {
	Rule rewrite.Rule
}

// NewRulePass wraps rule as a Pass.
func NewRulePass(rule rewrite.Rule) *RulePass {
	return &RulePass{Rule: rule}
}

// Name returns the rule name.
func (p *RulePass) Name() string {
	return p.Rule.Name()
}

// Run delegates to rewrite.Run.
func (p *RulePass) Run(ctx context.Context, g *ir.Graph, opts rewrite.Options) (*rewrite.Stats, error) {
	return rewrite.Run(ctx, g, p.Rule, opts)
}

// FuncPass adapts a plain function to the Pass interface.
//
// Example:
//
//	p := &pipeline.FuncPass{
//	    PassName: "strip_debug_names",
//	    Fn: func(ctx context.Context, g *ir.Graph, _ rewrite.Options) (*rewrite.Stats, error) {
//	        // implementation
//	    },
//	}
type FuncPass struct {
	PassName string
	Fn       func(ctx context.Context, g *ir.Graph, opts rewrite.Options) (*rewrite.Stats, error)
}

// Name returns the pass name.
func (p *FuncPass) Name() string {
	return p.PassName
}

// Run calls Fn.
func (p *FuncPass) Run(ctx context.Context, g *ir.Graph, opts rewrite.Options) (*rewrite.Stats, error) {
	if p.Fn == nil {
		return nil, fmt.Errorf("pass %q has no function", p.PassName)
	}
	return p.Fn(ctx, g, opts)
}
