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
	"fmt"
	"slices"
)

// Mutation primitives.
//
// The relation-level primitives (AttachConsumer, DetachConsumer,
// ReassignProducer) change exactly one table entry and must be used in
// matched pairs with the operator-side edit they mirror. The wiring helpers
// (AddInput, SetInput, AddOutput, SetOutput, Disconnect) do both halves at
// once and are what passes normally call.
//
// Primitives that take an anchor panic when the anchor is not owned by the
// graph: that is a pass defect, not a runtime condition.

func (g *Graph) allocOperatorID() OperatorID {
	g.nextID++
	return OperatorID(g.nextID)
}

func (g *Graph) allocOperandID() OperandID {
	g.nextID++
	return OperandID(g.nextID)
}

func (g *Graph) newOperator(t OpType, name string) *Operator {
	op := &Operator{
		id:      g.allocOperatorID(),
		Type:    t,
		Name:    name,
		Params:  make(map[string]Value),
		inputs:  make([]*Operand, 0),
		outputs: make([]*Operand, 0),
	}
	g.operatorByID[op.id] = op
	return op
}

func (g *Graph) mustIndex(anchor *Operator) int {
	idx := g.IndexOf(anchor)
	if idx < 0 || !g.Owns(anchor) {
		name := "<nil>"
		if anchor != nil {
			name = anchor.Name
		}
		panic(fmt.Sprintf("ir: anchor operator %q is not in the graph", name))
	}
	return idx
}

// AppendOperator creates an operator at the end of the sequence.
//
// Description:
//
//	Used by importers building a graph in topological order. The operator
//	has no inputs or outputs yet.
func (g *Graph) AppendOperator(t OpType, name string) *Operator {
	op := g.newOperator(t, name)
	g.ops = append(g.ops, op)
	return op
}

// InsertBefore creates an operator placed immediately before anchor.
//
// Description:
//
//	The returned operator has empty inputs and outputs. The caller must
//	wire it before the rewrite step completes.
//
// Inputs:
//
//	t - Operator type of the new node.
//	name - Operator name.
//	anchor - Existing operator owned by g. Panics otherwise.
//
// Outputs:
//
//	*Operator - The new operator.
func (g *Graph) InsertBefore(t OpType, name string, anchor *Operator) *Operator {
	idx := g.mustIndex(anchor)
	op := g.newOperator(t, name)
	g.ops = slices.Insert(g.ops, idx, op)
	return op
}

// InsertAfter creates an operator placed immediately after anchor.
//
// Description:
//
//	Same contract as InsertBefore.
func (g *Graph) InsertAfter(t OpType, name string, anchor *Operator) *Operator {
	idx := g.mustIndex(anchor)
	op := g.newOperator(t, name)
	g.ops = slices.Insert(g.ops, idx+1, op)
	return op
}

// NewOperand creates a fresh operand with no producer and no consumers.
func (g *Graph) NewOperand(name string) *Operand {
	o := &Operand{
		id:   g.allocOperandID(),
		Name: name,
		Tags: make(map[string]Value),
	}
	g.operandByID[o.id] = o
	g.operands = append(g.operands, o)
	return o
}

// AttachConsumer adds one occurrence of op to o's consumer multiset.
func (g *Graph) AttachConsumer(o *Operand, op *Operator) {
	g.consumers[o.id] = append(g.consumers[o.id], op.id)
}

// DetachConsumer removes one occurrence of op from o's consumer multiset.
// It reports whether an occurrence was found.
func (g *Graph) DetachConsumer(o *Operand, op *Operator) bool {
	ids := g.consumers[o.id]
	i := slices.Index(ids, op.id)
	if i < 0 {
		return false
	}
	ids = slices.Delete(ids, i, i+1)
	if len(ids) == 0 {
		delete(g.consumers, o.id)
	} else {
		g.consumers[o.id] = ids
	}
	return true
}

// ReassignProducer makes op the producer of o. A nil op clears the entry.
func (g *Graph) ReassignProducer(o *Operand, op *Operator) {
	if op == nil {
		delete(g.producer, o.id)
		return
	}
	g.producer[o.id] = op.id
}

// AddInput appends o as the last input of op and records the consumer link.
func (g *Graph) AddInput(op *Operator, o *Operand) {
	op.inputs = append(op.inputs, o)
	g.AttachConsumer(o, op)
}

// SetInput replaces input slot k of op with o, moving one consumer link
// from the old operand to the new one.
func (g *Graph) SetInput(op *Operator, k int, o *Operand) {
	old := op.inputs[k]
	if old == o {
		return
	}
	g.DetachConsumer(old, op)
	op.inputs[k] = o
	g.AttachConsumer(o, op)
}

// AddOutput appends o as the last output of op and makes op its producer.
//
// Description:
//
//	If another operator still lists o as an output, that operator is stale
//	until it is erased or rewired within the same rewrite step.
func (g *Graph) AddOutput(op *Operator, o *Operand) {
	op.outputs = append(op.outputs, o)
	g.ReassignProducer(o, op)
}

// SetOutput replaces output slot k of op with o. The old operand loses its
// producer if op was producing it.
func (g *Graph) SetOutput(op *Operator, k int, o *Operand) {
	old := op.outputs[k]
	if old == o {
		return
	}
	if id, ok := g.producer[old.id]; ok && id == op.id {
		delete(g.producer, old.id)
	}
	op.outputs[k] = o
	g.ReassignProducer(o, op)
}

// Disconnect removes every relation-table link that names op and clears
// its input and output lists, leaving op ready for Erase.
func (g *Graph) Disconnect(op *Operator) {
	for _, in := range op.inputs {
		g.DetachConsumer(in, op)
	}
	for _, out := range op.outputs {
		if id, ok := g.producer[out.id]; ok && id == op.id {
			delete(g.producer, out.id)
		}
	}
	op.inputs = op.inputs[:0]
	op.outputs = op.outputs[:0]
}

// Erase removes op from the graph.
//
// Description:
//
//	Precondition: no operand lists op as a consumer and no operand names op
//	as its producer. The check scans the relation tables, so a violated
//	precondition is reported before anything is changed.
//
// Outputs:
//
//	error - ErrNotInGraph or ErrStillLinked; the graph is unchanged.
func (g *Graph) Erase(op *Operator) error {
	if !g.Owns(op) {
		return fmt.Errorf("erase operator: %w", ErrNotInGraph)
	}
	idx := g.IndexOf(op)
	if idx < 0 {
		return fmt.Errorf("erase operator %q: %w", op.Name, ErrNotInGraph)
	}
	for oid, pid := range g.producer {
		if pid == op.id {
			return fmt.Errorf("erase operator %q: produces operand %q: %w",
				op.Name, g.operandByID[oid].Name, ErrStillLinked)
		}
	}
	for oid, ids := range g.consumers {
		if slices.Contains(ids, op.id) {
			return fmt.Errorf("erase operator %q: consumes operand %q: %w",
				op.Name, g.operandByID[oid].Name, ErrStillLinked)
		}
	}

	g.ops = slices.Delete(g.ops, idx, idx+1)
	delete(g.operatorByID, op.id)
	return nil
}

// EraseOperand removes a fully detached operand from the graph.
//
// Outputs:
//
//	error - ErrNotInGraph, or ErrStillLinked if it still has a producer,
//	consumers, or appears in any operator's input or output list.
func (g *Graph) EraseOperand(o *Operand) error {
	if !g.OwnsOperand(o) {
		return fmt.Errorf("erase operand: %w", ErrNotInGraph)
	}
	if _, ok := g.producer[o.id]; ok {
		return fmt.Errorf("erase operand %q: has a producer: %w", o.Name, ErrStillLinked)
	}
	if len(g.consumers[o.id]) > 0 {
		return fmt.Errorf("erase operand %q: has consumers: %w", o.Name, ErrStillLinked)
	}
	for _, op := range g.ops {
		if slices.Contains(op.inputs, o) || slices.Contains(op.outputs, o) {
			return fmt.Errorf("erase operand %q: referenced by operator %q: %w", o.Name, op.Name, ErrStillLinked)
		}
	}

	i := slices.Index(g.operands, o)
	g.operands = slices.Delete(g.operands, i, i+1)
	delete(g.operandByID, o.id)
	return nil
}
