// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pipeline runs an ordered, fixed sequence of graph passes.
//
// # Overview
//
// A Pipeline is built once with a Builder and executed by an Executor. Each
// pass runs exactly once per Executor.Run; passes built from rewrite rules
// iterate to their own fixpoint internally. The driver knows nothing about
// motifs and never rolls back.
//
// # Failure Model
//
// A pass failure (an apply error, a fixpoint budget overrun, or an invariant
// violation found by the optional post-pass check) is recorded in that pass's
// PassReport and logged. The remaining passes still run, so no pass error
// crosses a pass boundary. Only context cancellation stops the run early;
// passes that did not start are reported as skipped.
//
// # Observability
//
// Every run gets a short run ID (uuid), a root span and one child span per
// pass. Per-pass duration, rewrite and failure metrics go through the global
// OpenTelemetry meter.
//
// # Usage
//
//	p, err := pipeline.NewBuilder("canonicalize").
//	    AddRules(passes.Default()...).
//	    Build()
//	if err != nil {
//	    return err
//	}
//	exec, err := pipeline.NewExecutor(p, logger, pipeline.WithVerifyInvariants(true))
//	if err != nil {
//	    return err
//	}
//	result, err := exec.Run(ctx, g)
package pipeline
