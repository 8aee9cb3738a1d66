// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/graphcanon/services/canon/config"
	"github.com/AleutianAI/graphcanon/services/canon/graphdesc"
	"github.com/AleutianAI/graphcanon/services/canon/ir"
	"github.com/AleutianAI/graphcanon/services/canon/passes"
	"github.com/AleutianAI/graphcanon/services/canon/pipeline"
	"github.com/AleutianAI/graphcanon/services/canon/telemetry"
)

var (
	// errPassesFailed makes the process exit non-zero when any pass failed.
	errPassesFailed = errors.New("one or more passes failed")

	errOutputNeedsOneGraph = errors.New("--output requires exactly one graph")
)

const telemetryShutdownTimeout = 5 * time.Second

// runCanon loads graphs, runs the configured pipeline over them and prints
// one report per graph in argument order.
func runCanon(cmd *cobra.Command, gf *globalFlags, rf *runFlags, graphPaths []string) error {
	if rf.outputPath != "" && len(graphPaths) > 1 {
		return errOutputNeedsOneGraph
	}

	cfg, logger, err := setup(cmd, gf)
	if err != nil {
		return err
	}
	defer logger.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	shutdown, err := telemetry.Init(ctx, telemetryConfig(cfg, cmd.ErrOrStderr()))
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	graphs := make([]*ir.Graph, len(graphPaths))
	for i, path := range graphPaths {
		g, err := graphdesc.LoadFile(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		logger.Info("graph loaded",
			"path", path,
			"operators", g.OperatorCount(),
			"operands", g.OperandCount())
		graphs[i] = g
	}

	p, err := buildPipeline(cfg.Pipeline)
	if err != nil {
		return err
	}
	opts := []pipeline.Option{
		pipeline.WithMaxRewrites(cfg.Pipeline.MaxRewritesPerPass),
		pipeline.WithVerifyInvariants(cfg.Pipeline.VerifyInvariants),
	}
	if rf.snapshotDir != "" {
		opts = append(opts, pipeline.WithAfterPass(snapshotHook(rf.snapshotDir, graphs, graphPaths)))
	}
	exec, err := pipeline.NewExecutor(p, logger.Slog(), opts...)
	if err != nil {
		return err
	}

	results, err := exec.RunAll(ctx, graphs, rf.jobs)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	failed := 0
	for i, result := range results {
		if !result.Success {
			failed++
		}
		if rf.jsonReport {
			if err := writeJSONReport(out, graphPaths[i], result); err != nil {
				return err
			}
			continue
		}
		if len(graphPaths) > 1 {
			fmt.Fprintf(out, "== %s ==\n", graphPaths[i])
		}
		if err := writeTextReport(out, result); err != nil {
			return err
		}
		if !rf.noDump {
			fmt.Fprintln(out)
			if err := graphs[i].Dump(out); err != nil {
				return err
			}
		}
	}

	if rf.outputPath != "" {
		if err := writeGraph(rf.outputPath, graphs[0]); err != nil {
			return err
		}
		logger.Info("graph written", "path", rf.outputPath)
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d graphs", errPassesFailed, failed, len(results))
	}
	return nil
}

// checkGraph loads a graph description; loading already validates it.
func checkGraph(cmd *cobra.Command, gf *globalFlags, graphPath string) error {
	_, logger, err := setup(cmd, gf)
	if err != nil {
		return err
	}
	defer logger.Close()

	g, err := graphdesc.LoadFile(graphPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d operators, %d operands, %d inputs)\n",
		graphPath, g.OperatorCount(), g.OperandCount(), len(g.Inputs()))
	return nil
}

func listPasses(w io.Writer) error {
	for i, name := range passes.DefaultOrder() {
		if _, err := fmt.Fprintf(w, "%d. %s\n", i+1, name); err != nil {
			return err
		}
	}
	return nil
}

func buildPipeline(pc config.PipelineConfig) (*pipeline.Pipeline, error) {
	rules, err := passes.Resolve(pc.Passes)
	if err != nil {
		return nil, err
	}
	return pipeline.NewBuilder(pc.Name).AddRules(rules...).Build()
}

func telemetryConfig(cfg config.Config, w io.Writer) telemetry.Config {
	tc := telemetry.DefaultConfig()
	tc.ServiceName = cfg.Telemetry.ServiceName
	tc.TraceExporter = cfg.Telemetry.TraceExporter
	tc.MetricExporter = cfg.Telemetry.MetricExporter
	if cfg.Telemetry.OTLPEndpoint != "" {
		tc.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	}
	tc.MetricsAddr = cfg.Telemetry.MetricsAddr
	tc.Writer = w
	return tc
}

// snapshotHook writes the graph after every pass to
// <dir>/<graph>/<NN>_<pass>.yaml.
func snapshotHook(dir string, graphs []*ir.Graph, paths []string) pipeline.AfterPassFunc {
	subdirs := make(map[*ir.Graph]string, len(graphs))
	for i, g := range graphs {
		stem := strings.TrimSuffix(filepath.Base(paths[i]), filepath.Ext(paths[i]))
		if len(graphs) > 1 {
			stem = fmt.Sprintf("%02d_%s", i, stem)
		}
		subdirs[g] = filepath.Join(dir, stem)
	}
	return func(_ context.Context, index int, report pipeline.PassReport, g *ir.Graph) error {
		name := fmt.Sprintf("%02d_%s.yaml", index+1, report.Name)
		return writeGraph(filepath.Join(subdirs[g], name), g)
	}
}

func writeGraph(path string, g *ir.Graph) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create the output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := graphdesc.Write(f, g); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
