// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graphdesc reads and writes YAML graph descriptions.
//
// A description lists operands and then operators in topological order:
//
//	operands:
//	  - name: x
//	    shape: [1, 3, "?", 5]
//	    batch_axis: 0
//	operators:
//	  - type: Tensor.select
//	    name: select_0
//	    params: {dim: 1, index: 0}
//	    inputs: [x]
//	    outputs: [s0]
//
// Operands without a producer become graph inputs. "?" (or -1) marks an
// unknown dimension.
package graphdesc

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/graphcanon/services/canon/ir"
)

// ErrInvalidDescription is wrapped by every LoadError.
var ErrInvalidDescription = errors.New("invalid graph description")

// LoadError reports a referential problem in a description.
type LoadError struct {
	// Operator is the operator being loaded, empty for operand entries.
	Operator string

	// Operand is the operand name the problem concerns.
	Operand string

	Msg string
}

// Error returns the problem with its location.
func (e *LoadError) Error() string {
	switch {
	case e.Operator == "":
		return fmt.Sprintf("%s: operand %q: %s", ErrInvalidDescription, e.Operand, e.Msg)
	case e.Operand == "":
		return fmt.Sprintf("%s: operator %q: %s", ErrInvalidDescription, e.Operator, e.Msg)
	}
	return fmt.Sprintf("%s: operator %q: operand %q: %s", ErrInvalidDescription, e.Operator, e.Operand, e.Msg)
}

// Unwrap returns ErrInvalidDescription.
func (e *LoadError) Unwrap() error {
	return ErrInvalidDescription
}

// Description is the YAML document root.
type Description struct {
	Operands  []OperandDesc  `yaml:"operands"`
	Operators []OperatorDesc `yaml:"operators"`
}

// OperandDesc declares one operand.
type OperandDesc struct {
	Name      string         `yaml:"name"`
	Shape     Dims           `yaml:"shape,flow"`
	BatchAxis *int           `yaml:"batch_axis,omitempty"`
	Tags      map[string]any `yaml:"tags,omitempty"`
}

// OperatorDesc declares one operator and its operand names.
type OperatorDesc struct {
	Type    string         `yaml:"type"`
	Name    string         `yaml:"name"`
	Params  map[string]any `yaml:"params,omitempty"`
	Inputs  []string       `yaml:"inputs,flow"`
	Outputs []string       `yaml:"outputs,flow"`
}

// Dims is a shape whose unknown dimensions may be written as "?".
type Dims []int

// UnmarshalYAML accepts integers and "?" entries.
func (d *Dims) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		return fmt.Errorf("line %d: shape must be a sequence", node.Line)
	}
	dims := make(Dims, 0, len(node.Content))
	for _, n := range node.Content {
		if n.Value == "?" {
			dims = append(dims, ir.DimUnknown)
			continue
		}
		v, err := strconv.Atoi(n.Value)
		if err != nil {
			return fmt.Errorf("line %d: bad dimension %q", n.Line, n.Value)
		}
		if v < 0 {
			v = ir.DimUnknown
		}
		dims = append(dims, v)
	}
	*d = dims
	return nil
}

// MarshalYAML writes unknown dimensions as "?".
func (d Dims) MarshalYAML() (any, error) {
	out := make([]any, len(d))
	for i, v := range d {
		if v == ir.DimUnknown {
			out[i] = "?"
		} else {
			out[i] = v
		}
	}
	return out, nil
}

// LoadFile reads and builds the description at path.
func LoadFile(path string) (*ir.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open graph description: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes a description from r and builds a validated graph.
//
// Outputs:
//
//	*ir.Graph - The graph. Nil on error.
//	error - A decode error, a *LoadError, or the joined InvariantErrors
//	        from Graph.Validate.
func Load(r io.Reader) (*ir.Graph, error) {
	var desc Description
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&desc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse graph description: %w", err)
	}
	return desc.Build()
}

// Build turns the description into a graph.
func (d *Description) Build() (*ir.Graph, error) {
	g := ir.NewGraph()
	byName := make(map[string]*ir.Operand, len(d.Operands))

	for _, od := range d.Operands {
		if od.Name == "" {
			return nil, &LoadError{Msg: "operand name is empty"}
		}
		if _, dup := byName[od.Name]; dup {
			return nil, &LoadError{Operand: od.Name, Msg: "declared twice"}
		}
		o := g.NewOperand(od.Name)
		o.Shape = append([]int(nil), od.Shape...)
		for k, raw := range od.Tags {
			v, err := toValue(raw)
			if err != nil {
				return nil, &LoadError{Operand: od.Name, Msg: fmt.Sprintf("tag %q: %v", k, err)}
			}
			o.SetTag(k, v)
		}
		if od.BatchAxis != nil {
			o.SetBatchAxis(*od.BatchAxis)
		}
		byName[od.Name] = o
	}

	produced := make(map[string]string)
	consumed := make(map[string]string)
	for _, opd := range d.Operators {
		if opd.Type == "" {
			return nil, &LoadError{Operator: opd.Name, Msg: "operator type is empty"}
		}
		op := g.AppendOperator(ir.OpType(opd.Type), opd.Name)
		for k, raw := range opd.Params {
			v, err := toValue(raw)
			if err != nil {
				return nil, &LoadError{Operator: opd.Name, Msg: fmt.Sprintf("param %q: %v", k, err)}
			}
			op.SetParam(k, v)
		}

		for _, name := range opd.Inputs {
			o, ok := byName[name]
			if !ok {
				return nil, &LoadError{Operator: opd.Name, Operand: name, Msg: "unknown operand"}
			}
			g.AddInput(op, o)
			consumed[name] = opd.Name
		}
		for _, name := range opd.Outputs {
			o, ok := byName[name]
			if !ok {
				return nil, &LoadError{Operator: opd.Name, Operand: name, Msg: "unknown operand"}
			}
			if prev, dup := produced[name]; dup {
				return nil, &LoadError{Operator: opd.Name, Operand: name, Msg: fmt.Sprintf("already produced by %q", prev)}
			}
			if reader, early := consumed[name]; early {
				return nil, &LoadError{Operator: opd.Name, Operand: name, Msg: fmt.Sprintf("consumed by %q before it is produced", reader)}
			}
			g.AddOutput(op, o)
			produced[name] = opd.Name
		}
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// toValue converts a decoded YAML scalar or list into an ir.Value.
func toValue(raw any) (ir.Value, error) {
	switch v := raw.(type) {
	case int:
		return ir.Int(v), nil
	case float64:
		return ir.Float(v), nil
	case bool:
		return ir.Bool(v), nil
	case string:
		return ir.String(v), nil
	case []any:
		return listValue(v)
	default:
		return ir.Value{}, fmt.Errorf("unsupported value %v (%T)", raw, raw)
	}
}

// listValue picks the narrowest list kind: ints, then floats, then strings.
func listValue(items []any) (ir.Value, error) {
	ints := make([]int, 0, len(items))
	floats := make([]float64, 0, len(items))
	strs := make([]string, 0, len(items))
	allInt, allNum, allStr := true, true, true
	for _, it := range items {
		switch x := it.(type) {
		case int:
			ints = append(ints, x)
			floats = append(floats, float64(x))
			allStr = false
		case float64:
			floats = append(floats, x)
			allInt, allStr = false, false
		case string:
			strs = append(strs, x)
			allInt, allNum = false, false
		default:
			return ir.Value{}, fmt.Errorf("unsupported list element %v (%T)", it, it)
		}
	}
	switch {
	case allInt:
		return ir.Ints(ints...), nil
	case allNum:
		return ir.Floats(floats...), nil
	case allStr:
		return ir.Strings(strs...), nil
	default:
		return ir.Value{}, errors.New("list mixes strings and numbers")
	}
}
