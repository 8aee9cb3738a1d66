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

// Validate audits the graph's structural invariants.
//
// Description:
//
//	Checks ownership of every referenced object, producer/output agreement,
//	consumer/input agreement (exact multiplicity per input slot) and
//	topological order. Every violation found is reported; the result joins
//	them with errors.Join so errors.Is(err, ErrInvariant) holds.
//
// Outputs:
//
//	error - nil when the graph is consistent.
func (g *Graph) Validate() error {
	var errs []error
	add := func(e *InvariantError) { errs = append(errs, e) }

	pos := make(map[OperatorID]int, len(g.ops))
	for i, op := range g.ops {
		if !g.Owns(op) {
			add(newInvariantError(InvariantOwnership, opSubject(op), "in sequence but not registered"))
			continue
		}
		if _, dup := pos[op.id]; dup {
			add(newInvariantError(InvariantOwnership, opSubject(op), "appears more than once in sequence"))
			continue
		}
		pos[op.id] = i
	}
	if len(pos) != len(g.operatorByID) {
		add(newInvariantError(InvariantOwnership, "graph", "%d operators registered, %d in sequence",
			len(g.operatorByID), len(pos)))
	}

	for _, op := range g.ops {
		// Operator side: outputs must be produced by op, inputs must be
		// mirrored slot for slot in the consumer table.
		for _, out := range op.outputs {
			if !g.OwnsOperand(out) {
				add(newInvariantError(InvariantOwnership, opSubject(op), "output %q is not owned", out.Name))
				continue
			}
			if id, ok := g.producer[out.id]; !ok || id != op.id {
				add(newInvariantError(InvariantProducer, opSubject(op), "lists output %q it does not produce", out.Name))
			}
		}

		slots := make(map[OperandID]int, len(op.inputs))
		for _, in := range op.inputs {
			if !g.OwnsOperand(in) {
				add(newInvariantError(InvariantOwnership, opSubject(op), "input %q is not owned", in.Name))
				continue
			}
			slots[in.id]++
		}
		for oid, want := range slots {
			got := countID(g.consumers[oid], op.id)
			if got != want {
				add(newInvariantError(InvariantConsumer, opSubject(op),
					"reads %q through %d slots but is listed %d times as consumer", g.operandByID[oid].Name, want, got))
			}
		}

		for _, in := range op.inputs {
			pid, ok := g.producer[in.id]
			if !ok {
				continue
			}
			if p, ok := pos[pid]; ok && p >= pos[op.id] {
				add(newInvariantError(InvariantOrder, opSubject(op),
					"input %q is produced by %s which is not earlier in sequence",
					in.Name, opSubject(g.operatorByID[pid])))
			}
		}
	}

	// Table side: every producer and consumer entry must point at a live
	// operator that lists the operand in the matching slot list.
	for oid, pid := range g.producer {
		o, ok := g.operandByID[oid]
		if !ok {
			add(newInvariantError(InvariantOwnership, fmt.Sprintf("operand#%d", oid), "producer entry for unknown operand"))
			continue
		}
		p, ok := g.operatorByID[pid]
		if !ok {
			add(newInvariantError(InvariantProducer, operandSubject(o), "producer operator#%d does not exist", pid))
			continue
		}
		if n := countOperand(p.outputs, o); n != 1 {
			add(newInvariantError(InvariantProducer, operandSubject(o),
				"producer %s lists it %d times among outputs", opSubject(p), n))
		}
	}
	for oid, ids := range g.consumers {
		o, ok := g.operandByID[oid]
		if !ok {
			add(newInvariantError(InvariantOwnership, fmt.Sprintf("operand#%d", oid), "consumer entry for unknown operand"))
			continue
		}
		seen := make(map[OperatorID]bool, len(ids))
		for _, cid := range ids {
			if seen[cid] {
				continue
			}
			seen[cid] = true
			c, ok := g.operatorByID[cid]
			if !ok {
				add(newInvariantError(InvariantConsumer, operandSubject(o), "consumer operator#%d does not exist", cid))
				continue
			}
			if countOperand(c.inputs, o) == 0 {
				add(newInvariantError(InvariantConsumer, operandSubject(o),
					"consumer %s does not read it", opSubject(c)))
			}
		}
	}

	return errors.Join(errs...)
}

func countID(ids []OperatorID, id OperatorID) int {
	n := 0
	for _, x := range ids {
		if x == id {
			n++
		}
	}
	return n
}

func countOperand(list []*Operand, o *Operand) int {
	n := 0
	for _, x := range list {
		if x == o {
			n++
		}
	}
	return n
}

func opSubject(op *Operator) string {
	if op == nil {
		return "operator <nil>"
	}
	return fmt.Sprintf("operator %q (%s)", op.Name, op.Type)
}

func operandSubject(o *Operand) string {
	return fmt.Sprintf("operand %q", o.Name)
}
