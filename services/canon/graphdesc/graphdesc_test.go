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
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/graphcanon/services/canon/ir"
)

const selectGraph = `
operands:
  - name: x
    shape: [1, 3, "?", 5]
    batch_axis: 0
  - name: s0
    shape: [1, -1, 5]
  - name: y
    shape: [1, -1, 5]
    tags:
      layout: nchw
      scales: [0.5, 1]
operators:
  - type: Tensor.select
    name: select_0
    params: {dim: 1, index: 0, names: [a, b]}
    inputs: [x]
    outputs: [s0]
  - type: Relu
    name: relu_0
    inputs: [s0]
    outputs: [y]
`

func TestLoad_BuildsGraph(t *testing.T) {
	g, err := Load(strings.NewReader(selectGraph))
	require.NoError(t, err)
	require.NoError(t, g.Validate())

	assert.Equal(t, 2, g.OperatorCount())
	assert.Equal(t, 3, g.OperandCount())

	x, ok := g.OperandByName("x")
	require.True(t, ok)
	assert.Equal(t, []int{1, 3, ir.DimUnknown, 5}, x.Shape)
	axis, ok := x.BatchAxis()
	require.True(t, ok)
	assert.Equal(t, 0, axis)
	assert.Nil(t, g.Producer(x))
	assert.Equal(t, []*ir.Operand{x}, g.Inputs())

	sel, ok := g.OperatorByName("select_0")
	require.True(t, ok)
	assert.Equal(t, ir.OpSelect, sel.Type)
	dim, ok := sel.IntParam("dim")
	require.True(t, ok)
	assert.Equal(t, 1, dim)
	names, _ := sel.Param("names")
	assert.True(t, names.Equal(ir.Strings("a", "b")))

	s0, _ := g.OperandByName("s0")
	assert.Equal(t, []int{1, ir.DimUnknown, 5}, s0.Shape)
	assert.Equal(t, sel, g.Producer(s0))

	y, _ := g.OperandByName("y")
	assert.True(t, y.Tags["layout"].Equal(ir.String("nchw")))
	assert.True(t, y.Tags["scales"].Equal(ir.Floats(0.5, 1)))
}

func TestLoad_Empty(t *testing.T) {
	g, err := Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Zero(t, g.OperatorCount())
}

func TestLoad_ReferentialErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "unknown input",
			body: "operators:\n  - {type: Relu, name: r, inputs: [ghost], outputs: []}\n",
			want: "unknown operand",
		},
		{
			name: "unknown output",
			body: "operands:\n  - {name: x, shape: [1]}\noperators:\n  - {type: Relu, name: r, inputs: [x], outputs: [ghost]}\n",
			want: "unknown operand",
		},
		{
			name: "produced twice",
			body: `
operands:
  - {name: x, shape: [1]}
  - {name: y, shape: [1]}
operators:
  - {type: Relu, name: a, inputs: [x], outputs: [y]}
  - {type: Relu, name: b, inputs: [x], outputs: [y]}
`,
			want: `already produced by "a"`,
		},
		{
			name: "consumed before produced",
			body: `
operands:
  - {name: x, shape: [1]}
  - {name: y, shape: [1]}
  - {name: z, shape: [1]}
operators:
  - {type: Relu, name: a, inputs: [y], outputs: [z]}
  - {type: Relu, name: b, inputs: [x], outputs: [y]}
`,
			want: "before it is produced",
		},
		{
			name: "duplicate operand",
			body: "operands:\n  - {name: x, shape: [1]}\n  - {name: x, shape: [2]}\n",
			want: "declared twice",
		},
		{
			name: "missing type",
			body: "operators:\n  - {name: r}\n",
			want: "operator type is empty",
		},
		{
			name: "mixed list param",
			body: "operators:\n  - {type: Relu, name: r, params: {p: [1, a]}}\n",
			want: "mixes strings and numbers",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := Load(strings.NewReader(tt.body))
			require.Error(t, err)
			assert.Nil(t, g)
			assert.ErrorIs(t, err, ErrInvalidDescription)

			var le *LoadError
			require.ErrorAs(t, err, &le)
			assert.Contains(t, le.Error(), tt.want)
		})
	}
}

func TestLoad_DecodeErrors(t *testing.T) {
	tests := map[string]string{
		"unknown field": "operands:\n  - {name: x, rank: 2}\n",
		"bad dimension": "operands:\n  - {name: x, shape: [1, big]}\n",
		"scalar shape":  "operands:\n  - {name: x, shape: 4}\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(strings.NewReader(body))
			require.Error(t, err)
			assert.NotErrorIs(t, err, ErrInvalidDescription)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(selectGraph), 0600))

	g, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, g.OperatorCount())

	_, err = LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWrite_ReloadsToSameDump(t *testing.T) {
	g, err := Load(strings.NewReader(selectGraph))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, g))
	assert.Contains(t, buf.String(), `"?"`)
	assert.Contains(t, buf.String(), "batch_axis: 0")

	again, err := Load(&buf)
	require.NoError(t, err)
	assert.Equal(t, g.String(), again.String())

	y, _ := again.OperandByName("y")
	assert.True(t, y.Tags["layout"].Equal(ir.String("nchw")))
}

func TestFromGraph_DropsDetachedOperands(t *testing.T) {
	g := ir.NewGraph()
	x := g.NewOperand("x")
	x.Shape = []int{2}
	g.NewOperand("orphan")
	op := g.AppendOperator("Relu", "r")
	g.AddInput(op, x)

	desc := FromGraph(g)
	require.Len(t, desc.Operands, 1)
	assert.Equal(t, "x", desc.Operands[0].Name)
	require.Len(t, desc.Operators, 1)
	assert.Equal(t, []string{"x"}, desc.Operators[0].Inputs)
	assert.Empty(t, desc.Operators[0].Outputs)
}

func TestWrite_PreservesValueKinds(t *testing.T) {
	g := ir.NewGraph()
	x := g.NewOperand("x")
	x.Shape = []int{1, 4}
	x.SetBatchAxis(0)
	x.SetTag("scale", ir.Float(2))
	x.SetTag("range", ir.Floats(0, 1))
	y := g.NewOperand("y")
	y.Shape = []int{1, 4}

	op := g.AppendOperator("LeakyRelu", "act")
	op.SetParam("alpha", ir.Float(1.0))
	op.SetParam("beta", ir.Float(0.25))
	op.SetParam("w", ir.Floats(1.0, 2.0))
	op.SetParam("axes", ir.Ints(1, 2))
	op.SetParam("k", ir.Int(3))
	g.AddInput(op, x)
	g.AddOutput(op, y)
	require.NoError(t, g.Validate())

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, g))
	again, err := Load(&buf)
	require.NoError(t, err)

	act, ok := again.OperatorByName("act")
	require.True(t, ok)
	params := map[string]ir.Value{
		"alpha": ir.Float(1.0),
		"beta":  ir.Float(0.25),
		"w":     ir.Floats(1.0, 2.0),
		"axes":  ir.Ints(1, 2),
		"k":     ir.Int(3),
	}
	for name, want := range params {
		got, ok := act.Param(name)
		require.True(t, ok, name)
		assert.Equal(t, want.Kind, got.Kind, name)
		assert.True(t, want.Equal(got), name)
	}

	reloaded, ok := again.OperandByName("x")
	require.True(t, ok)
	assert.True(t, reloaded.Tags["scale"].Equal(ir.Float(2)))
	assert.True(t, reloaded.Tags["range"].Equal(ir.Floats(0, 1)))
	axis, ok := reloaded.BatchAxis()
	require.True(t, ok)
	assert.Equal(t, 0, axis)
}
