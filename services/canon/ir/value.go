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
	"slices"
	"strconv"
	"strings"
)

// ValueKind identifies which field of a Value is populated.
type ValueKind int

const (
	// ValueNone is the zero Value. It carries no data.
	ValueNone ValueKind = iota

	// ValueInt is a single integer.
	ValueInt

	// ValueFloat is a single float.
	ValueFloat

	// ValueBool is a single boolean.
	ValueBool

	// ValueString is a single string.
	ValueString

	// ValueInts is a list of integers (shapes, axes, paddings).
	ValueInts

	// ValueFloats is a list of floats.
	ValueFloats

	// ValueStrings is a list of strings.
	ValueStrings
)

var valueKindNames = map[ValueKind]string{
	ValueNone:    "none",
	ValueInt:     "int",
	ValueFloat:   "float",
	ValueBool:    "bool",
	ValueString:  "string",
	ValueInts:    "ints",
	ValueFloats:  "floats",
	ValueStrings: "strings",
}

// String returns the string representation of the ValueKind.
func (k ValueKind) String() string {
	if name, ok := valueKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Value is a typed operator parameter or operand tag.
//
// Only the field matching Kind is meaningful. Values are compared with
// Equal, never with ==, because list kinds hold slices.
type Value struct {
	Kind    ValueKind
	I       int
	F       float64
	B       bool
	S       string
	Ints    []int
	Floats  []float64
	Strings []string
}

// Int returns an integer Value.
func Int(v int) Value { return Value{Kind: ValueInt, I: v} }

// Float returns a float Value.
func Float(v float64) Value { return Value{Kind: ValueFloat, F: v} }

// Bool returns a boolean Value.
func Bool(v bool) Value { return Value{Kind: ValueBool, B: v} }

// String returns a string Value.
func String(v string) Value { return Value{Kind: ValueString, S: v} }

// Ints returns an integer list Value. The slice is copied.
func Ints(v ...int) Value { return Value{Kind: ValueInts, Ints: slices.Clone(v)} }

// Floats returns a float list Value. The slice is copied.
func Floats(v ...float64) Value { return Value{Kind: ValueFloats, Floats: slices.Clone(v)} }

// Strings returns a string list Value. The slice is copied.
func Strings(v ...string) Value { return Value{Kind: ValueStrings, Strings: slices.Clone(v)} }

// AsInt returns the integer payload. ok is false for any other kind.
func (v Value) AsInt() (int, bool) {
	if v.Kind != ValueInt {
		return 0, false
	}
	return v.I, true
}

// AsInts returns a copy of the integer list payload.
func (v Value) AsInts() ([]int, bool) {
	if v.Kind != ValueInts {
		return nil, false
	}
	return slices.Clone(v.Ints), true
}

// AsString returns the string payload.
func (v Value) AsString() (string, bool) {
	if v.Kind != ValueString {
		return "", false
	}
	return v.S, true
}

// Equal reports whether two values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case ValueNone:
		return true
	case ValueInt:
		return v.I == o.I
	case ValueFloat:
		return v.F == o.F
	case ValueBool:
		return v.B == o.B
	case ValueString:
		return v.S == o.S
	case ValueInts:
		return slices.Equal(v.Ints, o.Ints)
	case ValueFloats:
		return slices.Equal(v.Floats, o.Floats)
	case ValueStrings:
		return slices.Equal(v.Strings, o.Strings)
	default:
		return false
	}
}

// Clone returns a deep copy of the value.
func (v Value) Clone() Value {
	c := v
	c.Ints = slices.Clone(v.Ints)
	c.Floats = slices.Clone(v.Floats)
	c.Strings = slices.Clone(v.Strings)
	return c
}

// String renders the value the way Dump prints parameters: scalars as-is,
// lists as a parenthesized comma-separated sequence.
func (v Value) String() string {
	switch v.Kind {
	case ValueInt:
		return strconv.Itoa(v.I)
	case ValueFloat:
		return strconv.FormatFloat(v.F, 'g', -1, 64)
	case ValueBool:
		if v.B {
			return "True"
		}
		return "False"
	case ValueString:
		return v.S
	case ValueInts:
		parts := make([]string, len(v.Ints))
		for i, x := range v.Ints {
			parts[i] = strconv.Itoa(x)
		}
		return "(" + strings.Join(parts, ",") + ")"
	case ValueFloats:
		parts := make([]string, len(v.Floats))
		for i, x := range v.Floats {
			parts[i] = strconv.FormatFloat(x, 'g', -1, 64)
		}
		return "(" + strings.Join(parts, ",") + ")"
	case ValueStrings:
		return "(" + strings.Join(v.Strings, ",") + ")"
	default:
		return "None"
	}
}
