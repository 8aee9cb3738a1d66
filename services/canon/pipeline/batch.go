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

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/graphcanon/services/canon/ir"
)

// RunAll runs the pipeline over independent graphs in parallel.
//
// Description:
//
//	Each graph is still processed by one goroutine from start to finish,
//	so the single-threaded pass contract holds per graph. At most workers
//	graphs run at once; workers <= 0 means one per graph.
//
// Inputs:
//
//	ctx - Context for cancellation. Must not be nil.
//	graphs - Distinct graphs. No entry may be nil or repeated.
//	workers - Concurrency limit.
//
// Outputs:
//
//	[]*Result - One entry per graph, in input order. After cancellation
//	            the passes that did not run are marked skipped.
//	error - ErrNilContext, ErrNilGraph, ErrDuplicateGraph, or the first
//	        cancellation error. Pass failures are reported in Results only.
//
// Thread Safety:
//
//	Safe to call concurrently on the same Executor with disjoint graphs.
func (e *Executor) RunAll(ctx context.Context, graphs []*ir.Graph, workers int) ([]*Result, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	seen := make(map[*ir.Graph]int, len(graphs))
	for i, g := range graphs {
		if g == nil {
			return nil, fmt.Errorf("graph %d: %w", i, ErrNilGraph)
		}
		if j, dup := seen[g]; dup {
			return nil, fmt.Errorf("graphs %d and %d: %w", j, i, ErrDuplicateGraph)
		}
		seen[g] = i
	}

	results := make([]*Result, len(graphs))
	eg, egCtx := errgroup.WithContext(ctx)
	if workers > 0 {
		eg.SetLimit(workers)
	}

	for i, g := range graphs {
		eg.Go(func() error {
			res, err := e.Run(egCtx, g)
			results[i] = res
			return err
		})
	}

	err := eg.Wait()
	return results, err
}
