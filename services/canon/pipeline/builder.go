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
	"errors"

	"github.com/AleutianAI/graphcanon/services/canon/rewrite"
)

// Builder constructs a Pipeline with validation.
//
// Description:
//
//	Builder provides a fluent API. Errors are accumulated and reported by
//	Build, so a chain never needs intermediate checks.
//
// Thread Safety:
//
//	Builder is NOT safe for concurrent use.
//
// Example:
//
//	p, err := pipeline.NewBuilder("canonicalize").
//	    Add(pipeline.NewRulePass(passes.FuseSelectToUnbind())).
//	    Build()
type Builder struct {
	name   string
	passes []Pass
	seen   map[string]bool
	errors []error
}

// NewBuilder creates a new pipeline builder.
//
// Inputs:
//
//	name - The pipeline name (used in logging and traces).
//
// Outputs:
//
//	*Builder - The builder instance.
func NewBuilder(name string) *Builder {
	return &Builder{
		name: name,
		seen: make(map[string]bool),
	}
}

// Add appends a pass. Nil and duplicate names are recorded as errors.
func (b *Builder) Add(pass Pass) *Builder {
	if pass == nil {
		b.errors = append(b.errors, ErrNilPass)
		return b
	}
	name := pass.Name()
	if b.seen[name] {
		b.errors = append(b.errors, NewPassError(name, ErrDuplicatePass))
		return b
	}
	b.seen[name] = true
	b.passes = append(b.passes, pass)
	return b
}

// AddRules appends one RulePass per rule.
func (b *Builder) AddRules(rules ...rewrite.Rule) *Builder {
	for _, r := range rules {
		if r == nil {
			b.errors = append(b.errors, ErrNilPass)
			continue
		}
		b.Add(NewRulePass(r))
	}
	return b
}

// Build validates and returns the pipeline.
//
// Outputs:
//
//	*Pipeline - The constructed pipeline.
//	error - All accumulated errors joined, or ErrEmptyPipeline.
func (b *Builder) Build() (*Pipeline, error) {
	if len(b.errors) > 0 {
		return nil, errors.Join(b.errors...)
	}
	if len(b.passes) == 0 {
		return nil, ErrEmptyPipeline
	}
	passes := make([]Pass, len(b.passes))
	copy(passes, b.passes)
	return &Pipeline{name: b.name, passes: passes}, nil
}
