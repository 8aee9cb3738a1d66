// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry installs the OpenTelemetry providers used by the
// pipeline executor.
//
// Exporters are chosen by configuration, not code:
//
//   - traces: "otlp" (gRPC), "stdout", or "none"
//   - metrics: "prometheus", "stdout", or "none"
//
// With "prometheus" the OTel meter is bridged into the default Prometheus
// registry, which also holds the rewrite engine's promauto counters. When
// MetricsAddr is set, /metrics is served there until shutdown.
//
// Without Init every tracer and meter is the OTel no-op, which is what the
// tests rely on.
//
// # Usage
//
//	shutdown, err := telemetry.Init(ctx, cfg)
//	if err != nil {
//	    return fmt.Errorf("init telemetry: %w", err)
//	}
//	defer shutdown(ctx)
package telemetry
