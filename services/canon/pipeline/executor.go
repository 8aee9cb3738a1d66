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
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/google/uuid"

	"github.com/AleutianAI/graphcanon/services/canon/ir"
	"github.com/AleutianAI/graphcanon/services/canon/rewrite"
)

var (
	tracer = otel.Tracer("graphcanon.pipeline")
	meter  = otel.Meter("graphcanon.pipeline")
)

// Option configures an Executor.
type Option func(*Executor)

// WithMaxRewrites bounds rewrites per pass. Zero means unbounded.
func WithMaxRewrites(n int) Option {
	return func(e *Executor) {
		e.maxRewrites = n
	}
}

// WithVerifyInvariants runs Graph.Validate after every pass.
func WithVerifyInvariants(on bool) Option {
	return func(e *Executor) {
		e.verify = on
	}
}

// WithDiagnosticSink sends diagnostics to sink instead of the logger.
func WithDiagnosticSink(sink rewrite.DiagnosticSink) Option {
	return func(e *Executor) {
		e.sink = sink
	}
}

// AfterPassFunc observes the graph after each pass that ran, failed or not.
// index is the pass position in the pipeline. A returned error is logged and
// does not change the pass outcome.
type AfterPassFunc func(ctx context.Context, index int, report PassReport, g *ir.Graph) error

// WithAfterPass registers a hook called after every pass. Hooks run on the
// goroutine running the graph.
func WithAfterPass(fn AfterPassFunc) Option {
	return func(e *Executor) {
		if fn != nil {
			e.afterPass = append(e.afterPass, fn)
		}
	}
}

// Executor runs a Pipeline against graphs.
//
// Description:
//
//	Executor runs passes strictly one after another on a single goroutine.
//	It tracks per-pass reports and provides observability via
//	OpenTelemetry.
//
// Thread Safety:
//
//	An Executor may run different graphs concurrently. A single graph must
//	never be passed to two concurrent runs.
type Executor struct {
	pipeline    *Pipeline
	logger      *slog.Logger
	sink        rewrite.DiagnosticSink
	maxRewrites int
	verify      bool
	afterPass   []AfterPassFunc

	// Metrics (initialized lazily)
	metricsOnce     sync.Once
	passLatency     metric.Float64Histogram
	passRewrites    metric.Int64Counter
	passFailures    metric.Int64Counter
	pipelineLatency metric.Float64Histogram
}

// NewExecutor creates a new pipeline executor.
//
// Inputs:
//
//	p - The pipeline to execute. Must not be nil.
//	logger - Logger for execution logs. If nil, uses slog.Default().
//	opts - Optional settings.
//
// Outputs:
//
//	*Executor - The configured executor.
//	error - Non-nil if p is nil.
func NewExecutor(p *Pipeline, logger *slog.Logger, opts ...Option) (*Executor, error) {
	if p == nil {
		return nil, ErrNilPipeline
	}
	if logger == nil {
		logger = slog.Default()
	}

	e := &Executor{
		pipeline: p,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.sink == nil {
		e.sink = rewrite.NewLogSink(logger)
	}
	return e, nil
}

// initMetrics lazily initializes metrics.
// Logs errors if metric creation fails but continues execution.
func (e *Executor) initMetrics() {
	e.metricsOnce.Do(func() {
		var initErrors []string

		var err error
		e.passLatency, err = meter.Float64Histogram("canon_pass_duration_seconds",
			metric.WithDescription("Time spent running each pass"),
			metric.WithUnit("s"),
		)
		if err != nil {
			initErrors = append(initErrors, "pass_latency: "+err.Error())
		}

		e.passRewrites, err = meter.Int64Counter("canon_pass_rewrites_total",
			metric.WithDescription("Number of rewrites applied by each pass"),
		)
		if err != nil {
			initErrors = append(initErrors, "pass_rewrites: "+err.Error())
		}

		e.passFailures, err = meter.Int64Counter("canon_pass_failures_total",
			metric.WithDescription("Number of failed pass executions"),
		)
		if err != nil {
			initErrors = append(initErrors, "pass_failures: "+err.Error())
		}

		e.pipelineLatency, err = meter.Float64Histogram("canon_pipeline_duration_seconds",
			metric.WithDescription("Total pipeline execution time"),
			metric.WithUnit("s"),
		)
		if err != nil {
			initErrors = append(initErrors, "pipeline_latency: "+err.Error())
		}

		if len(initErrors) > 0 {
			e.logger.Error("failed to initialize some pipeline metrics (observability degraded)",
				slog.Int("failed_count", len(initErrors)),
				slog.Any("errors", initErrors),
			)
		}
	})
}

// Run executes every pass once, in order.
//
// Description:
//
//	A failing pass is recorded and the next pass still runs. Cancellation
//	is checked between passes; on cancellation the remaining passes are
//	reported as skipped and ctx.Err() is returned with the partial result.
//
// Inputs:
//
//	ctx - Context for cancellation. Must not be nil.
//	g - The graph to rewrite in place. Must not be nil.
//
// Outputs:
//
//	*Result - Per-pass reports. Success is false if any pass failed.
//	error - Non-nil only for invalid arguments or cancellation.
func (e *Executor) Run(ctx context.Context, g *ir.Graph) (*Result, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if g == nil {
		return nil, ErrNilGraph
	}

	e.initMetrics()

	ctx, span := tracer.Start(ctx, "canon.Pipeline",
		trace.WithAttributes(
			attribute.String("pipeline.name", e.pipeline.Name()),
			attribute.Int("pipeline.pass_count", e.pipeline.Len()),
			attribute.Int("graph.operators", g.OperatorCount()),
		),
	)
	defer span.End()

	start := time.Now()
	runID := uuid.NewString()[:12]

	e.logger.Info("pipeline started",
		slog.String("pipeline", e.pipeline.Name()),
		slog.String("run_id", runID),
		slog.Int("passes", e.pipeline.Len()),
		slog.Int("operators", g.OperatorCount()),
	)

	result := &Result{
		RunID:    runID,
		Pipeline: e.pipeline.Name(),
		Passes:   make([]PassReport, 0, e.pipeline.Len()),
	}

	for i, pass := range e.pipeline.passes {
		if err := ctx.Err(); err != nil {
			for _, rest := range e.pipeline.passes[i:] {
				result.Passes = append(result.Passes, PassReport{Name: rest.Name(), Status: PassStatusSkipped})
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, "context canceled")
			e.finish(result, start)
			return result, err
		}

		report := e.runPass(ctx, pass, g, runID)
		result.Passes = append(result.Passes, report)
		e.notifyAfterPass(ctx, i, report, g, runID)
	}

	e.finish(result, start)
	if e.pipelineLatency != nil {
		e.pipelineLatency.Record(ctx, result.Duration.Seconds(),
			metric.WithAttributes(attribute.String("pipeline", e.pipeline.Name())),
		)
	}

	if result.Success {
		span.SetStatus(codes.Ok, "")
		e.logger.Info("pipeline completed",
			slog.String("run_id", runID),
			slog.Duration("duration", result.Duration),
			slog.Int("rewrites", result.Rewrites),
			slog.Int("diagnostics", result.Diagnostics),
		)
	} else {
		failed := result.Failed()
		span.SetStatus(codes.Error, fmt.Sprintf("%d passes failed", len(failed)))
		e.logger.Error("pipeline completed with failures",
			slog.String("run_id", runID),
			slog.Int("failed_passes", len(failed)),
			slog.String("first_failure", failed[0].Name),
		)
	}

	return result, nil
}

// runPass executes a single pass and builds its report.
func (e *Executor) runPass(ctx context.Context, pass Pass, g *ir.Graph, runID string) PassReport {
	ctx, span := tracer.Start(ctx, pass.Name(),
		trace.WithAttributes(
			attribute.String("pipeline.pass", pass.Name()),
			attribute.String("pipeline.run_id", runID),
		),
	)
	defer span.End()

	e.logger.Debug("pass starting",
		slog.String("pass", pass.Name()),
		slog.String("run_id", runID),
	)

	start := time.Now()
	stats, err := pass.Run(ctx, g, rewrite.Options{
		MaxRewrites: e.maxRewrites,
		Sink:        e.sink,
		Logger:      e.logger,
	})
	if err == nil && e.verify {
		if verr := g.Validate(); verr != nil {
			err = fmt.Errorf("%w: %w", ErrInvariantsBroken, verr)
		}
	}
	duration := time.Since(start)

	report := PassReport{
		Name:     pass.Name(),
		Status:   PassStatusCompleted,
		Duration: duration,
	}
	if stats != nil {
		report.Rewrites = stats.Rewrites
		report.Rejections = stats.Rejections
		report.Scans = stats.Scans
		report.Diagnostics = stats.Diagnostics
	}

	attrs := metric.WithAttributes(attribute.String("pass", pass.Name()))
	if e.passLatency != nil {
		e.passLatency.Record(ctx, duration.Seconds(), attrs)
	}
	if e.passRewrites != nil && report.Rewrites > 0 {
		e.passRewrites.Add(ctx, int64(report.Rewrites), attrs)
	}
	span.SetAttributes(
		attribute.Int("pass.rewrites", report.Rewrites),
		attribute.Int("pass.rejections", report.Rejections),
	)

	if err != nil {
		perr := NewPassError(pass.Name(), err)
		report.Status = PassStatusFailed
		report.Error = perr.Error()
		report.err = perr

		if e.passFailures != nil {
			e.passFailures.Add(ctx, 1, attrs)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		e.logger.Error("pass failed",
			slog.String("pass", pass.Name()),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()),
		)
		return report
	}

	span.SetStatus(codes.Ok, "")
	e.logger.Info("pass completed",
		slog.String("pass", pass.Name()),
		slog.Duration("duration", duration),
		slog.Int("rewrites", report.Rewrites),
		slog.Int("rejections", report.Rejections),
	)
	return report
}

func (e *Executor) notifyAfterPass(ctx context.Context, index int, report PassReport, g *ir.Graph, runID string) {
	for _, fn := range e.afterPass {
		if err := fn(ctx, index, report, g); err != nil {
			e.logger.Warn("after-pass hook failed",
				slog.String("pass", report.Name),
				slog.String("run_id", runID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// finish fills the aggregate fields of result.
func (e *Executor) finish(result *Result, start time.Time) {
	result.Duration = time.Since(start)
	result.Success = true
	for _, p := range result.Passes {
		result.Rewrites += p.Rewrites
		result.Diagnostics += len(p.Diagnostics)
		if p.Status != PassStatusCompleted {
			result.Success = false
		}
	}
}
