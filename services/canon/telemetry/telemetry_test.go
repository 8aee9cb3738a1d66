// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInit_NilContext(t *testing.T) {
	var ctx context.Context
	shutdown, err := Init(ctx, DefaultConfig())
	assert.ErrorIs(t, err, ErrNilContext)
	assert.Nil(t, shutdown)
}

func TestInit_NoExporters(t *testing.T) {
	ctx := context.Background()
	shutdown, err := Init(ctx, DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(ctx))
}

func TestInit_UnknownExporter(t *testing.T) {
	ctx := context.Background()

	cfg := DefaultConfig()
	cfg.TraceExporter = "zipkin"
	_, err := Init(ctx, cfg)
	assert.ErrorIs(t, err, ErrUnknownExporter)

	cfg = DefaultConfig()
	cfg.MetricExporter = "graphite"
	_, err = Init(ctx, cfg)
	assert.ErrorIs(t, err, ErrUnknownExporter)
}

func TestInit_StdoutTraces(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer

	cfg := DefaultConfig()
	cfg.TraceExporter = "stdout"
	cfg.Writer = &buf

	shutdown, err := Init(ctx, cfg)
	require.NoError(t, err)

	_, span := otel.Tracer("telemetry_test").Start(ctx, "canon.smoke")
	span.End()
	require.NoError(t, shutdown(ctx))

	assert.Contains(t, buf.String(), "canon.smoke")
	assert.Contains(t, buf.String(), "graphcanon")
}

func TestInit_PrometheusHandler(t *testing.T) {
	ctx := context.Background()

	cfg := DefaultConfig()
	cfg.MetricExporter = "prometheus"

	shutdown, err := Init(ctx, cfg)
	require.NoError(t, err)
	defer func() { _ = shutdown(ctx) }()

	handler := MetricsHandler()
	require.NotNil(t, handler)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestEnabled(t *testing.T) {
	assert.False(t, enabled(""))
	assert.False(t, enabled("none"))
	assert.True(t, enabled("stdout"))
}

func TestGetEnvOr(t *testing.T) {
	t.Setenv("CANON_TELEMETRY_TEST", "set")
	assert.Equal(t, "set", getEnvOr("CANON_TELEMETRY_TEST", "fallback"))
	assert.Equal(t, "fallback", getEnvOr("CANON_TELEMETRY_TEST_UNSET", "fallback"))
}
