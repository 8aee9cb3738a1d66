// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rewrite

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// rewritesApplied counts successful rewrites per rule.
	rewritesApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canon_rewrite_applied_total",
		Help: "Total rewrites applied by rule",
	}, []string{"rule"})

	// rewritesRejected counts recognized-but-unsupported instances per rule.
	rewritesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canon_rewrite_rejected_total",
		Help: "Total motif instances rejected with a diagnostic, by rule",
	}, []string{"rule"})

	scansPerRun = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "canon_rewrite_scans",
		Help:    "Operator sequence scans per rule run",
		Buckets: []float64{1, 2, 5, 10, 50, 100, 1000},
	})
)
