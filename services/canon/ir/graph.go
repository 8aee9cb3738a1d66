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

import "slices"

// Graph owns the operators and operands of one model.
//
// Description:
//
//	ops is the operator sequence and is kept in topological order. The
//	producer and consumer relations are tables keyed by OperandID so a
//	relation update is a single map edit and Validate can audit them
//	without chasing pointers.
//
// Thread Safety:
//
//	Graph is NOT safe for concurrent use.
type Graph struct {
	ops []*Operator

	// operands keeps creation order so iteration is deterministic.
	operands []*Operand

	operatorByID map[OperatorID]*Operator
	operandByID  map[OperandID]*Operand

	// producer maps an operand to the operator listing it as an output.
	producer map[OperandID]OperatorID

	// consumers maps an operand to one entry per input slot reading it.
	consumers map[OperandID][]OperatorID

	nextID uint64
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		ops:          make([]*Operator, 0),
		operands:     make([]*Operand, 0),
		operatorByID: make(map[OperatorID]*Operator),
		operandByID:  make(map[OperandID]*Operand),
		producer:     make(map[OperandID]OperatorID),
		consumers:    make(map[OperandID][]OperatorID),
	}
}

// Operators returns a snapshot of the operator sequence in topological
// order. Mutating the graph does not affect a returned snapshot.
func (g *Graph) Operators() []*Operator {
	return slices.Clone(g.ops)
}

// Operands returns a snapshot of all owned operands in creation order.
func (g *Graph) Operands() []*Operand {
	return slices.Clone(g.operands)
}

// OperatorCount returns the number of operators.
func (g *Graph) OperatorCount() int {
	return len(g.ops)
}

// OperandCount returns the number of operands.
func (g *Graph) OperandCount() int {
	return len(g.operands)
}

// Operator returns the operator with the given ID.
func (g *Graph) Operator(id OperatorID) (*Operator, bool) {
	op, ok := g.operatorByID[id]
	return op, ok
}

// Operand returns the operand with the given ID.
func (g *Graph) Operand(id OperandID) (*Operand, bool) {
	o, ok := g.operandByID[id]
	return o, ok
}

// OperandByName returns the first operand, in creation order, with the
// given name.
func (g *Graph) OperandByName(name string) (*Operand, bool) {
	for _, o := range g.operands {
		if o.Name == name {
			return o, true
		}
	}
	return nil, false
}

// OperatorByName returns the first operator, in sequence order, with the
// given name.
func (g *Graph) OperatorByName(name string) (*Operator, bool) {
	for _, op := range g.ops {
		if op.Name == name {
			return op, true
		}
	}
	return nil, false
}

// IndexOf returns the position of op in the operator sequence, or -1.
func (g *Graph) IndexOf(op *Operator) int {
	if op == nil {
		return -1
	}
	return slices.Index(g.ops, op)
}

// Owns reports whether op is currently part of this graph.
func (g *Graph) Owns(op *Operator) bool {
	if op == nil {
		return false
	}
	owned, ok := g.operatorByID[op.id]
	return ok && owned == op
}

// OwnsOperand reports whether o is currently part of this graph.
func (g *Graph) OwnsOperand(o *Operand) bool {
	if o == nil {
		return false
	}
	owned, ok := g.operandByID[o.id]
	return ok && owned == o
}

// Producer returns the operator producing o, or nil for graph inputs and
// detached operands.
func (g *Graph) Producer(o *Operand) *Operator {
	id, ok := g.producer[o.id]
	if !ok {
		return nil
	}
	return g.operatorByID[id]
}

// Consumers returns the operators reading o, one entry per input slot, in
// the order the links were attached.
func (g *Graph) Consumers(o *Operand) []*Operator {
	ids := g.consumers[o.id]
	out := make([]*Operator, 0, len(ids))
	for _, id := range ids {
		if op, ok := g.operatorByID[id]; ok {
			out = append(out, op)
		}
	}
	return out
}

// ConsumerCount returns the size of o's consumer multiset.
func (g *Graph) ConsumerCount(o *Operand) int {
	return len(g.consumers[o.id])
}

// Inputs returns operands that have no producer and at least one consumer,
// in creation order.
func (g *Graph) Inputs() []*Operand {
	var out []*Operand
	for _, o := range g.operands {
		if _, ok := g.producer[o.id]; !ok && len(g.consumers[o.id]) > 0 {
			out = append(out, o)
		}
	}
	return out
}
