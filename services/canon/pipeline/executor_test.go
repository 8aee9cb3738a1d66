// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/graphcanon/services/canon/ir"
	"github.com/AleutianAI/graphcanon/services/canon/passes"
	"github.com/AleutianAI/graphcanon/services/canon/rewrite"
)

// recorder tracks the order passes ran in.
type recorder struct {
	ran []string
}

func (r *recorder) pass(name string, err error) *FuncPass {
	return &FuncPass{
		PassName: name,
		Fn: func(_ context.Context, _ *ir.Graph, _ rewrite.Options) (*rewrite.Stats, error) {
			r.ran = append(r.ran, name)
			return &rewrite.Stats{Rule: name, Rewrites: 1, Scans: 2}, err
		},
	}
}

func mustBuild(t *testing.T, ps ...Pass) *Pipeline {
	t.Helper()
	b := NewBuilder("test")
	for _, p := range ps {
		b.Add(p)
	}
	p, err := b.Build()
	require.NoError(t, err)
	return p
}

func TestBuilder_Validation(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		_, err := NewBuilder("empty").Build()
		assert.ErrorIs(t, err, ErrEmptyPipeline)
	})

	t.Run("nil pass", func(t *testing.T) {
		_, err := NewBuilder("nil").Add(nil).Build()
		assert.ErrorIs(t, err, ErrNilPass)
	})

	t.Run("nil rule", func(t *testing.T) {
		_, err := NewBuilder("nil").AddRules(nil).Build()
		assert.ErrorIs(t, err, ErrNilPass)
	})

	t.Run("duplicate", func(t *testing.T) {
		r := &recorder{}
		_, err := NewBuilder("dup").Add(r.pass("a", nil)).Add(r.pass("a", nil)).Build()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDuplicatePass)
		var pe *PassError
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, "a", pe.PassName)
	})

	t.Run("order kept", func(t *testing.T) {
		p, err := NewBuilder("default").AddRules(passes.Default()...).Build()
		require.NoError(t, err)
		assert.Equal(t, passes.DefaultOrder(), p.PassNames())
		assert.Equal(t, "default", p.Name())
		assert.Equal(t, 3, p.Len())
	})
}

func TestNewExecutor_NilPipeline(t *testing.T) {
	_, err := NewExecutor(nil, nil)
	assert.ErrorIs(t, err, ErrNilPipeline)
}

func TestExecutor_RunsPassesInOrder(t *testing.T) {
	r := &recorder{}
	exec, err := NewExecutor(mustBuild(t, r.pass("a", nil), r.pass("b", nil), r.pass("c", nil)), nil)
	require.NoError(t, err)

	result, err := exec.Run(context.Background(), ir.NewGraph())
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, r.ran)
	assert.True(t, result.Success)
	assert.Len(t, result.RunID, 12)
	assert.Equal(t, "test", result.Pipeline)
	assert.Equal(t, 3, result.Rewrites)
	require.Len(t, result.Passes, 3)
	for _, p := range result.Passes {
		assert.Equal(t, PassStatusCompleted, p.Status)
		assert.Equal(t, 2, p.Scans)
		assert.NoError(t, p.Err())
	}
}

func TestExecutor_FailureDoesNotStopPipeline(t *testing.T) {
	r := &recorder{}
	boom := errors.New("boom")
	exec, err := NewExecutor(mustBuild(t, r.pass("a", nil), r.pass("b", boom), r.pass("c", nil)), nil)
	require.NoError(t, err)

	result, err := exec.Run(context.Background(), ir.NewGraph())
	require.NoError(t, err, "pass errors do not cross the pass boundary")

	assert.Equal(t, []string{"a", "b", "c"}, r.ran)
	assert.False(t, result.Success)
	failed := result.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "b", failed[0].Name)
	assert.Equal(t, `pass "b": boom`, failed[0].Error)
	assert.ErrorIs(t, failed[0].Err(), boom)
	assert.Equal(t, PassStatusCompleted, result.Passes[2].Status)
}

func TestExecutor_VerifyInvariants(t *testing.T) {
	breaker := &FuncPass{
		PassName: "breaker",
		Fn: func(_ context.Context, g *ir.Graph, _ rewrite.Options) (*rewrite.Stats, error) {
			op := g.Operators()[0]
			g.DetachConsumer(op.Input(0), op)
			return nil, nil
		},
	}
	build := func() *ir.Graph {
		g := ir.NewGraph()
		x := g.NewOperand("x")
		op := g.AppendOperator("nn.ReLU", "relu")
		g.AddInput(op, x)
		g.AddOutput(op, g.NewOperand("y"))
		return g
	}

	t.Run("off", func(t *testing.T) {
		exec, err := NewExecutor(mustBuild(t, breaker), nil)
		require.NoError(t, err)
		result, err := exec.Run(context.Background(), build())
		require.NoError(t, err)
		assert.True(t, result.Success)
	})

	t.Run("on", func(t *testing.T) {
		exec, err := NewExecutor(mustBuild(t, breaker), nil, WithVerifyInvariants(true))
		require.NoError(t, err)
		result, err := exec.Run(context.Background(), build())
		require.NoError(t, err)
		assert.False(t, result.Success)
		require.Len(t, result.Failed(), 1)
		perr := result.Failed()[0].Err()
		assert.ErrorIs(t, perr, ErrInvariantsBroken)
		assert.ErrorIs(t, perr, ir.ErrInvariant)
	})
}

func TestExecutor_CancellationSkipsRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := &recorder{}
	canceler := &FuncPass{
		PassName: "cancel",
		Fn: func(_ context.Context, _ *ir.Graph, _ rewrite.Options) (*rewrite.Stats, error) {
			cancel()
			return nil, nil
		},
	}
	exec, err := NewExecutor(mustBuild(t, canceler, r.pass("b", nil), r.pass("c", nil)), nil)
	require.NoError(t, err)

	result, err := exec.Run(ctx, ir.NewGraph())
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.Empty(t, r.ran)
	assert.False(t, result.Success)
	require.Len(t, result.Passes, 3)
	assert.Equal(t, PassStatusCompleted, result.Passes[0].Status)
	assert.Equal(t, PassStatusSkipped, result.Passes[1].Status)
	assert.Equal(t, PassStatusSkipped, result.Passes[2].Status)
}

func TestExecutor_InvalidArguments(t *testing.T) {
	exec, err := NewExecutor(mustBuild(t, (&recorder{}).pass("a", nil)), nil)
	require.NoError(t, err)

	//nolint:staticcheck // nil context is the case under test
	_, err = exec.Run(nil, ir.NewGraph())
	assert.ErrorIs(t, err, ErrNilContext)

	_, err = exec.Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNilGraph)
}

func TestExecutor_DefaultPasses(t *testing.T) {
	// x[1,4,4,5] fanned out to four selectors on axis 1, then a stack of
	// two selections along the batch axis which must be rejected.
	g := ir.NewGraph()
	x := g.NewOperand("x")
	x.Shape = []int{1, 4, 4, 5}
	x.SetBatchAxis(0)
	var outs []*ir.Operand
	for i := 0; i < 4; i++ {
		sel := g.AppendOperator(ir.OpSelect, "select")
		sel.SetParam("dim", ir.Int(1))
		sel.SetParam("index", ir.Int(i))
		g.AddInput(sel, x)
		out := g.NewOperand("s")
		out.Shape = []int{1, 4, 5}
		out.SetBatchAxis(0)
		g.AddOutput(sel, out)
		outs = append(outs, out)
	}
	stack := g.AppendOperator(ir.OpStack, "stack")
	stack.SetParam("dim", ir.Int(0))
	g.AddInput(stack, outs[0])
	g.AddInput(stack, outs[1])
	g.AddOutput(stack, g.NewOperand("stacked"))
	require.NoError(t, g.Validate())

	p, err := NewBuilder("canonicalize").AddRules(passes.Default()...).Build()
	require.NoError(t, err)
	sink := &rewrite.Collector{}
	exec, err := NewExecutor(p, nil, WithVerifyInvariants(true), WithMaxRewrites(100), WithDiagnosticSink(sink))
	require.NoError(t, err)

	result, err := exec.Run(context.Background(), g)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Rewrites)
	assert.Equal(t, 1, result.Diagnostics)
	assert.Equal(t, 1, sink.Len())
	assert.Equal(t, 1, result.Passes[1].Rejections)

	consumers := g.Consumers(x)
	require.Len(t, consumers, 1)
	assert.Equal(t, ir.OpUnbind, consumers[0].Type)
	assert.Equal(t, ir.OpStack, stack.Type)
	assert.Same(t, outs[0], stack.Input(0))
}

func TestExecutor_AfterPassHook(t *testing.T) {
	r := &recorder{}
	p := mustBuild(t, r.pass("first", nil), r.pass("second", errors.New("boom")), r.pass("third", nil))

	type call struct {
		index  int
		name   string
		status PassStatus
	}
	var calls []call
	g := ir.NewGraph()
	hook := func(_ context.Context, index int, report PassReport, got *ir.Graph) error {
		assert.Same(t, g, got)
		calls = append(calls, call{index, report.Name, report.Status})
		return errors.New("snapshot failed")
	}

	exec, err := NewExecutor(p, nil, WithAfterPass(hook), WithAfterPass(nil))
	require.NoError(t, err)
	result, err := exec.Run(context.Background(), g)
	require.NoError(t, err)

	assert.Equal(t, []call{
		{0, "first", PassStatusCompleted},
		{1, "second", PassStatusFailed},
		{2, "third", PassStatusCompleted},
	}, calls)
	assert.Equal(t, PassStatusCompleted, result.Passes[0].Status, "hook errors do not fail passes")
}
