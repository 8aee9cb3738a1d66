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
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/graphcanon/pkg/logging"
	"github.com/AleutianAI/graphcanon/services/canon/config"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
	jsonLogs   bool
}

// runFlags belong to the run subcommand.
type runFlags struct {
	outputPath  string
	jsonReport  bool
	noDump      bool
	jobs        int
	snapshotDir string
}

func newRootCmd() *cobra.Command {
	gf := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "canon",
		Short: "Canonicalize imported model graphs",
		Long: `canon rewrites an imported inference graph into normal form by
running a fixed sequence of pattern-match-and-rewrite passes.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&gf.configPath, "config", "canon.yaml",
		"Path to the YAML configuration (defaults apply when missing)")
	rootCmd.PersistentFlags().StringVar(&gf.logLevel, "log-level", "",
		"Override the configured log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&gf.jsonLogs, "json-logs", false,
		"Emit logs as JSON")

	rootCmd.AddCommand(newRunCmd(gf))
	rootCmd.AddCommand(newCheckCmd(gf))
	rootCmd.AddCommand(newPassesCmd())
	rootCmd.AddCommand(newInitConfigCmd())
	return rootCmd
}

func newRunCmd(gf *globalFlags) *cobra.Command {
	rf := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run [graph.yaml...]",
		Short: "Run the configured passes over graph descriptions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCanon(cmd, gf, rf, args)
		},
	}
	cmd.Flags().StringVarP(&rf.outputPath, "output", "o", "",
		"Write the rewritten graph description to this path")
	cmd.Flags().BoolVar(&rf.jsonReport, "json", false, "Print the run report as JSON")
	cmd.Flags().BoolVar(&rf.noDump, "no-dump", false, "Do not print the rewritten graph")
	cmd.Flags().IntVarP(&rf.jobs, "jobs", "j", runtime.NumCPU(),
		"Maximum graphs canonicalized at once")
	cmd.Flags().StringVar(&rf.snapshotDir, "snapshot-dir", "",
		"Write the graph after every pass under this directory")
	return cmd
}

func newCheckCmd(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check [graph.yaml]",
		Short: "Load a graph description and verify its invariants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkGraph(cmd, gf, args[0])
		},
	}
}

func newPassesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "passes",
		Short: "List registered passes in default order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listPasses(cmd.OutOrStdout())
		},
	}
}

func newInitConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-config [path]",
		Short: "Write the default configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteDefault(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
			return nil
		},
	}
}

// setup loads configuration and builds the logger for a subcommand.
// Flags override the file.
func setup(cmd *cobra.Command, gf *globalFlags) (config.Config, *logging.Logger, error) {
	cfg, err := config.Load(gf.configPath)
	if err != nil {
		return cfg, nil, err
	}

	levelName := cfg.Logging.Level
	if gf.logLevel != "" {
		levelName = gf.logLevel
	}
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return cfg, nil, err
	}

	logger := logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Logging.LogDir,
		Service: cfg.Telemetry.ServiceName,
		JSON:    cfg.Logging.JSON || gf.jsonLogs,
		Output:  cmd.ErrOrStderr(),
	})
	return cfg, logger, nil
}
