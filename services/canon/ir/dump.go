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
	"io"
	"strconv"
	"strings"
)

// Dump writes one line per operator in sequence order:
//
//	<type> <name> in=(<operand>[shape],...) out=(...) <param>=<value> ...
//
// Parameters are printed in sorted name order so equal graphs dump equally.
// The format is for humans and test comparisons; it is not parsed back.
func (g *Graph) Dump(w io.Writer) error {
	for _, op := range g.ops {
		if _, err := io.WriteString(w, formatOperator(op)+"\n"); err != nil {
			return fmt.Errorf("dump operator %q: %w", op.Name, err)
		}
	}
	return nil
}

// String returns the Dump rendering.
func (g *Graph) String() string {
	var sb strings.Builder
	_ = g.Dump(&sb)
	return sb.String()
}

func formatOperator(op *Operator) string {
	var sb strings.Builder
	sb.WriteString(string(op.Type))
	sb.WriteByte(' ')
	sb.WriteString(op.Name)
	sb.WriteString(" in=")
	sb.WriteString(formatOperands(op.inputs))
	sb.WriteString(" out=")
	sb.WriteString(formatOperands(op.outputs))
	for _, name := range op.ParamNames() {
		sb.WriteByte(' ')
		sb.WriteString(name)
		sb.WriteByte('=')
		sb.WriteString(op.Params[name].String())
	}
	return sb.String()
}

func formatOperands(list []*Operand) string {
	parts := make([]string, len(list))
	for i, o := range list {
		parts[i] = o.Name + FormatShape(o.Shape)
	}
	return "(" + strings.Join(parts, ",") + ")"
}

// FormatShape renders a shape as "[1,3,?,5]", with "?" for DimUnknown.
func FormatShape(shape []int) string {
	parts := make([]string, len(shape))
	for i, d := range shape {
		if d == DimUnknown {
			parts[i] = "?"
		} else {
			parts[i] = strconv.Itoa(d)
		}
	}
	return "[" + strings.Join(parts, ",") + "]"
}
