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
	"fmt"
)

// Sentinel errors for the pipeline package.
var (
	// ErrNilContext is returned when a nil context is passed.
	ErrNilContext = errors.New("context must not be nil")

	// ErrNilGraph is returned when a nil graph is passed.
	ErrNilGraph = errors.New("graph must not be nil")

	// ErrNilPass is returned when a nil pass is added.
	ErrNilPass = errors.New("pass must not be nil")

	// ErrDuplicatePass is returned when two passes share a name.
	ErrDuplicatePass = errors.New("pass with this name already exists")

	// ErrEmptyPipeline is returned when building a pipeline with no passes.
	ErrEmptyPipeline = errors.New("pipeline has no passes")

	// ErrNilPipeline is returned when NewExecutor is given a nil pipeline.
	ErrNilPipeline = errors.New("pipeline must not be nil")

	// ErrInvariantsBroken is returned when the post-pass check fails.
	ErrInvariantsBroken = errors.New("graph invariants broken after pass")

	// ErrDuplicateGraph is returned when RunAll sees the same graph twice.
	ErrDuplicateGraph = errors.New("graph appears more than once in batch")
)

// PassError wraps an error with the pass that caused it.
type PassError struct {
	PassName string
	Err      error
}

// Error returns the error message.
func (e *PassError) Error() string {
	return fmt.Sprintf("pass %q: %v", e.PassName, e.Err)
}

// Unwrap returns the underlying error.
func (e *PassError) Unwrap() error {
	return e.Err
}

// NewPassError creates a PassError.
func NewPassError(passName string, err error) *PassError {
	return &PassError{
		PassName: passName,
		Err:      err,
	}
}
