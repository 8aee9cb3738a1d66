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
	"maps"
	"slices"
)

// DimUnknown marks a dimension whose size is dynamic or was not captured.
const DimUnknown = -1

// TagBatchAxis is the reserved operand tag holding the index of the implicit
// batch axis. Layout-sensitive passes read it; the backend hides that axis
// from explicit axis numbering.
const TagBatchAxis = "__batch_index"

// OpType is the type tag of an Operator.
//
// The set is open: importers may produce any type string, and each pass
// ignores types it does not anchor on.
type OpType string

// Operator types recognized by the built-in passes.
const (
	// OpSelect picks one index along an axis and drops that axis.
	// Params: "dim" (int), "index" (int).
	OpSelect OpType = "Tensor.select"

	// OpUnbind splits an operand into one output per index along an axis.
	// Params: "dim" (int).
	OpUnbind OpType = "torch.unbind"

	// OpStack joins equally shaped operands along a new axis.
	// Params: "dim" (int).
	OpStack OpType = "torch.stack"

	// OpConcat joins operands along an existing axis.
	// Params: "axis" (int, batch axis excluded from numbering).
	OpConcat OpType = "Concat"

	// OpReshape reinterprets an operand with a new shape.
	// Params: "shape" (ints).
	OpReshape OpType = "Tensor.reshape"
)

// OperandID identifies an Operand within its Graph. IDs are never reused.
type OperandID uint64

// OperatorID identifies an Operator within its Graph. IDs are never reused.
type OperatorID uint64

// Operand is a named value flowing along a graph edge.
//
// Name, Shape and Tags are plain data and may be edited by passes. The
// producer and consumers are not stored here; ask the owning Graph via
// Producer and Consumers.
type Operand struct {
	id OperandID

	// Name is the human-readable value name. Not required to be unique.
	Name string

	// Shape lists dimension sizes. DimUnknown marks a dynamic dimension.
	// An empty shape means the rank itself is unknown.
	Shape []int

	// Tags holds auxiliary typed annotations such as TagBatchAxis.
	Tags map[string]Value
}

// ID returns the operand's graph-unique identifier.
func (o *Operand) ID() OperandID {
	return o.id
}

// Rank returns the number of tracked dimensions.
func (o *Operand) Rank() int {
	return len(o.Shape)
}

// ShapeKnown reports whether the rank and every dimension are known.
func (o *Operand) ShapeKnown() bool {
	if len(o.Shape) == 0 {
		return false
	}
	for _, d := range o.Shape {
		if d <= 0 {
			return false
		}
	}
	return true
}

// BatchAxis returns the tracked batch axis from TagBatchAxis.
func (o *Operand) BatchAxis() (int, bool) {
	v, ok := o.Tags[TagBatchAxis]
	if !ok {
		return 0, false
	}
	return v.AsInt()
}

// SetBatchAxis records the batch axis tag.
func (o *Operand) SetBatchAxis(axis int) {
	o.SetTag(TagBatchAxis, Int(axis))
}

// SetTag sets an auxiliary tag.
func (o *Operand) SetTag(key string, v Value) {
	if o.Tags == nil {
		o.Tags = make(map[string]Value)
	}
	o.Tags[key] = v
}

// Operator is a named computation node.
//
// Type, Name and Params are plain data. Inputs and outputs are read through
// accessors and changed only through Graph primitives so the relation tables
// stay in step.
type Operator struct {
	id OperatorID

	// Type selects the computation. See the Op* constants.
	Type OpType

	// Name is the human-readable node name. Not required to be unique.
	Name string

	// Params maps parameter names to typed values.
	Params map[string]Value

	inputs  []*Operand
	outputs []*Operand
}

// ID returns the operator's graph-unique identifier.
func (op *Operator) ID() OperatorID {
	return op.id
}

// Inputs returns a copy of the ordered input list.
func (op *Operator) Inputs() []*Operand {
	return slices.Clone(op.inputs)
}

// Outputs returns a copy of the ordered output list.
func (op *Operator) Outputs() []*Operand {
	return slices.Clone(op.outputs)
}

// Input returns the operand at input slot k.
func (op *Operator) Input(k int) *Operand {
	return op.inputs[k]
}

// Output returns the operand at output slot k.
func (op *Operator) Output(k int) *Operand {
	return op.outputs[k]
}

// NumInputs returns the number of input slots.
func (op *Operator) NumInputs() int {
	return len(op.inputs)
}

// NumOutputs returns the number of output slots.
func (op *Operator) NumOutputs() int {
	return len(op.outputs)
}

// Param returns a parameter value.
func (op *Operator) Param(name string) (Value, bool) {
	v, ok := op.Params[name]
	return v, ok
}

// IntParam returns an integer parameter. ok is false when the parameter is
// missing or not an int.
func (op *Operator) IntParam(name string) (int, bool) {
	v, ok := op.Params[name]
	if !ok {
		return 0, false
	}
	return v.AsInt()
}

// SetParam sets a parameter value.
func (op *Operator) SetParam(name string, v Value) {
	if op.Params == nil {
		op.Params = make(map[string]Value)
	}
	op.Params[name] = v
}

// DeleteParam removes a parameter if present.
func (op *Operator) DeleteParam(name string) {
	delete(op.Params, name)
}

// Retype changes the operator type and drops the named parameters, which
// must be every parameter that is only meaningful to the old type.
func (op *Operator) Retype(t OpType, stale ...string) {
	op.Type = t
	for _, name := range stale {
		delete(op.Params, name)
	}
}

// ParamNames returns the parameter names in sorted order.
func (op *Operator) ParamNames() []string {
	return slices.Sorted(maps.Keys(op.Params))
}
