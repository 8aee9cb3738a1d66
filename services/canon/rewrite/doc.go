// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package rewrite runs one pattern-match-and-rewrite rule over an ir.Graph
// until it reaches a fixpoint.
//
// A Rule names the operator type it anchors on and a Match predicate. Run
// scans the operator sequence from the start; for each anchor-typed operator
// it asks the rule for a verdict:
//   - Skip: the motif is absent. Silent.
//   - Reject: the motif is present but unsupported. One Diagnostic is
//     emitted, the operator is left untouched and is not offered to the rule
//     again during this run.
//   - Apply: the returned closure rewrites the graph, then scanning restarts
//     from the beginning because the sequence may have been resized and new
//     motifs may have appeared or vanished.
//
// Run stops when a full scan applies nothing.
//
// # Atomicity
//
// Match must not mutate the graph. Apply closures gather everything they
// need up front and then perform only relation updates that cannot fail, so
// a rewrite step is all-or-nothing.
//
// # Example
//
//	stats, err := rewrite.Run(g, passes.FuseSelectToUnbind(), rewrite.Options{
//	    Sink: rewrite.NewLogSink(logger),
//	})
package rewrite
