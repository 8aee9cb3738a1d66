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
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/AleutianAI/graphcanon/services/canon/pipeline"
)

// writeTextReport prints one row per pass followed by its diagnostics.
func writeTextReport(w io.Writer, result *pipeline.Result) error {
	fmt.Fprintf(w, "pipeline %s run=%s rewrites=%d diagnostics=%d duration=%s\n",
		result.Pipeline, result.RunID, result.Rewrites, result.Diagnostics,
		result.Duration.Round(time.Microsecond))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PASS\tSTATUS\tREWRITES\tREJECTIONS\tSCANS")
	for _, p := range result.Passes {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\n", p.Name, p.Status, p.Rewrites, p.Rejections, p.Scans)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, p := range result.Passes {
		for _, d := range p.Diagnostics {
			fmt.Fprintf(w, "warning: %s\n", d)
		}
		if p.Error != "" {
			fmt.Fprintf(w, "error: %s: %s\n", p.Name, p.Error)
		}
	}
	return nil
}

// graphReport is the JSON document printed per graph.
type graphReport struct {
	Graph string `json:"graph"`
	*pipeline.Result
}

func writeJSONReport(w io.Writer, path string, result *pipeline.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(graphReport{Graph: path, Result: result})
}
