// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ir provides the mutable dataflow graph that canonicalization
// passes rewrite in place.
//
// The graph is made of Operators (computation nodes) and Operands (values
// flowing between them). An Operator lists its inputs and outputs in order.
// The reverse direction, which operator produces an operand and which
// operators consume it, lives in identifier-keyed relation tables owned by
// the Graph rather than in pointers stored on the Operand.
//
// # Ownership Model
//
// The Graph exclusively owns every Operator and Operand it hands out:
//   - Operators are created by AppendOperator, InsertBefore and InsertAfter
//   - Operands are created by NewOperand
//   - Both are destroyed only by Erase and EraseOperand
//
// Pointers returned by the graph stay valid until the object is erased.
// Identifiers are never reused, so a stale identifier never aliases a newer
// object.
//
// # Invariants
//
// Outside of an in-progress rewrite step the graph always satisfies:
//  1. An operand's producer lists that operand among its outputs exactly once.
//  2. An operand's consumer multiset contains an operator once per input slot
//     of that operator reading the operand.
//  3. The operator sequence is a topological order.
//  4. Rewrites that keep a value keep the same *Operand.
//
// Validate checks 1 to 3 mechanically. Invariant 4 is a contract on passes.
//
// # Thread Safety
//
// Graph is NOT safe for concurrent use. A single pass borrows the graph for
// the duration of its run.
package ir
