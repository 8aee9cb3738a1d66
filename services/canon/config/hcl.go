// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// hclConfigFile mirrors Config for HCL files. Every field is a pointer so an
// absent block or attribute keeps its default.
//
//	pipeline {
//	  passes      = ["fuse_select_to_unbind"]
//	  max_rewrites_per_pass = 500
//	}
//	telemetry {
//	  metric_exporter = "prometheus"
//	  metrics_addr    = env.CANON_METRICS_ADDR
//	}
type hclConfigFile struct {
	Pipeline  *hclPipeline  `hcl:"pipeline,block"`
	Logging   *hclLogging   `hcl:"logging,block"`
	Telemetry *hclTelemetry `hcl:"telemetry,block"`
}

type hclPipeline struct {
	Name               *string   `hcl:"name,optional"`
	Passes             *[]string `hcl:"passes,optional"`
	VerifyInvariants   *bool     `hcl:"verify_invariants,optional"`
	MaxRewritesPerPass *int      `hcl:"max_rewrites_per_pass,optional"`
}

type hclLogging struct {
	Level  *string `hcl:"level,optional"`
	JSON   *bool   `hcl:"json,optional"`
	LogDir *string `hcl:"log_dir,optional"`
}

type hclTelemetry struct {
	ServiceName    *string `hcl:"service_name,optional"`
	TraceExporter  *string `hcl:"trace_exporter,optional"`
	MetricExporter *string `hcl:"metric_exporter,optional"`
	OTLPEndpoint   *string `hcl:"otlp_endpoint,optional"`
	MetricsAddr    *string `hcl:"metrics_addr,optional"`
}

// isHCL reports whether path names an HCL config file.
func isHCL(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".hcl")
}

// decodeHCL overlays an HCL document onto cfg.
func decodeHCL(path string, data []byte, cfg *Config) error {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, path)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse HCL config %s: %w", path, diags)
	}

	var parsed hclConfigFile
	diags = gohcl.DecodeBody(file.Body, envEvalContext(), &parsed)
	if diags.HasErrors() {
		return fmt.Errorf("failed to decode HCL config %s: %w", path, diags)
	}

	if p := parsed.Pipeline; p != nil {
		setIf(&cfg.Pipeline.Name, p.Name)
		setIf(&cfg.Pipeline.Passes, p.Passes)
		setIf(&cfg.Pipeline.VerifyInvariants, p.VerifyInvariants)
		setIf(&cfg.Pipeline.MaxRewritesPerPass, p.MaxRewritesPerPass)
	}
	if l := parsed.Logging; l != nil {
		setIf(&cfg.Logging.Level, l.Level)
		setIf(&cfg.Logging.JSON, l.JSON)
		setIf(&cfg.Logging.LogDir, l.LogDir)
	}
	if t := parsed.Telemetry; t != nil {
		setIf(&cfg.Telemetry.ServiceName, t.ServiceName)
		setIf(&cfg.Telemetry.TraceExporter, t.TraceExporter)
		setIf(&cfg.Telemetry.MetricExporter, t.MetricExporter)
		setIf(&cfg.Telemetry.OTLPEndpoint, t.OTLPEndpoint)
		setIf(&cfg.Telemetry.MetricsAddr, t.MetricsAddr)
	}
	return nil
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// envEvalContext exposes the process environment as the "env" object.
func envEvalContext() *hcl.EvalContext {
	vars := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || !hclIdentifier(k) {
			continue
		}
		vars[k] = cty.StringVal(v)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": cty.ObjectVal(vars),
		},
	}
}

// hclIdentifier reports whether s can be used as an attribute name after
// "env.".
func hclIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r == '-' || r >= '0' && r <= '9'):
		default:
			return false
		}
	}
	return true
}
