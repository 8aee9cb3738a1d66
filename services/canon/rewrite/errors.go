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
	"errors"
	"fmt"
)

// Sentinel errors for the rewrite package.
var (
	// ErrNilGraph is returned when Run is given a nil graph.
	ErrNilGraph = errors.New("graph must not be nil")

	// ErrNilRule is returned when Run is given a nil rule.
	ErrNilRule = errors.New("rule must not be nil")

	// ErrNoFixpoint is returned when Options.MaxRewrites is reached while
	// the rule still matches.
	ErrNoFixpoint = errors.New("rewrite did not reach a fixpoint")

	// ErrMissingApply is returned when a rule reports VerdictApply without
	// an Apply function.
	ErrMissingApply = errors.New("apply verdict without apply function")
)

// RewriteError wraps a failure of one Apply call with its location.
type RewriteError struct {
	Rule     string
	Operator string
	Err      error
}

// Error returns the error message.
func (e *RewriteError) Error() string {
	return fmt.Sprintf("rule %q at operator %q: %v", e.Rule, e.Operator, e.Err)
}

// Unwrap returns the underlying error.
func (e *RewriteError) Unwrap() error {
	return e.Err
}
