// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ir

import (
	"errors"
	"fmt"
)

// Sentinel errors for graph operations.
var (
	// ErrNotInGraph is returned when an operator or operand is not owned by
	// the graph it is passed to, or was already erased.
	ErrNotInGraph = errors.New("object is not owned by this graph")

	// ErrStillLinked is returned by Erase and EraseOperand when a relation
	// table still references the object. Nothing is mutated in that case.
	ErrStillLinked = errors.New("object is still linked to the graph")

	// ErrInvariant is wrapped by every InvariantError.
	ErrInvariant = errors.New("graph invariant violated")
)

// InvariantKind names which structural rule an InvariantError breaks.
type InvariantKind string

const (
	// InvariantProducer covers producer/output agreement.
	InvariantProducer InvariantKind = "producer"

	// InvariantConsumer covers consumer/input agreement.
	InvariantConsumer InvariantKind = "consumer"

	// InvariantOrder covers topological ordering.
	InvariantOrder InvariantKind = "order"

	// InvariantOwnership covers references to objects the graph does not own.
	InvariantOwnership InvariantKind = "ownership"
)

// InvariantError describes one violated graph invariant.
type InvariantError struct {
	Kind    InvariantKind
	Subject string
	Msg     string
}

// Error returns the violation description.
func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: %s invariant on %s: %s", ErrInvariant.Error(), e.Kind, e.Subject, e.Msg)
}

// Unwrap returns ErrInvariant.
func (e *InvariantError) Unwrap() error {
	return ErrInvariant
}

func newInvariantError(kind InvariantKind, subject, format string, args ...any) *InvariantError {
	return &InvariantError{
		Kind:    kind,
		Subject: subject,
		Msg:     fmt.Sprintf(format, args...),
	}
}
