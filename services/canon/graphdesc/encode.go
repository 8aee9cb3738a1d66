// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graphdesc

import (
	"fmt"
	"io"
	"maps"
	"math"
	"slices"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/graphcanon/services/canon/ir"
)

// FromGraph describes g. Operands no operator references are dropped.
// Reloading the result requires operand names to be unique.
func FromGraph(g *ir.Graph) *Description {
	desc := &Description{}
	for _, o := range g.Operands() {
		if g.Producer(o) == nil && g.ConsumerCount(o) == 0 {
			continue
		}
		od := OperandDesc{Name: o.Name, Shape: slices.Clone(Dims(o.Shape))}
		for _, k := range slices.Sorted(maps.Keys(o.Tags)) {
			if k == ir.TagBatchAxis {
				if axis, ok := o.BatchAxis(); ok {
					od.BatchAxis = &axis
				}
				continue
			}
			if od.Tags == nil {
				od.Tags = make(map[string]any)
			}
			od.Tags[k] = fromValue(o.Tags[k])
		}
		desc.Operands = append(desc.Operands, od)
	}

	for _, op := range g.Operators() {
		opd := OperatorDesc{Type: string(op.Type), Name: op.Name}
		for _, name := range op.ParamNames() {
			if opd.Params == nil {
				opd.Params = make(map[string]any)
			}
			v, _ := op.Param(name)
			opd.Params[name] = fromValue(v)
		}
		for _, in := range op.Inputs() {
			opd.Inputs = append(opd.Inputs, in.Name)
		}
		for _, out := range op.Outputs() {
			opd.Outputs = append(opd.Outputs, out.Name)
		}
		desc.Operators = append(desc.Operators, opd)
	}
	return desc
}

// Write encodes g as a description.
func Write(w io.Writer, g *ir.Graph) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(FromGraph(g)); err != nil {
		return fmt.Errorf("failed to encode graph description: %w", err)
	}
	return enc.Close()
}

func fromValue(v ir.Value) any {
	switch v.Kind {
	case ir.ValueInt:
		return v.I
	case ir.ValueFloat:
		return floatNode(v.F)
	case ir.ValueBool:
		return v.B
	case ir.ValueString:
		return v.S
	case ir.ValueInts:
		return slices.Clone(v.Ints)
	case ir.ValueFloats:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
		for _, f := range v.Floats {
			seq.Content = append(seq.Content, floatNode(f))
		}
		return seq
	case ir.ValueStrings:
		return slices.Clone(v.Strings)
	default:
		return nil
	}
}

// floatNode renders f with an explicit !!float tag when its plain form would
// read back as an integer, so 1.0 reloads as a float.
func floatNode(f float64) *yaml.Node {
	var text string
	switch {
	case math.IsInf(f, 1):
		text = ".inf"
	case math.IsInf(f, -1):
		text = "-.inf"
	case math.IsNaN(f):
		text = ".nan"
	default:
		text = strconv.FormatFloat(f, 'g', -1, 64)
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: text}
}
