// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command canon canonicalizes imported model graphs.
//
// Usage:
//
//	canon run model.yaml               # run the configured passes
//	canon run model.yaml -o out.yaml   # also write the rewritten graph
//	canon run -j 4 a.yaml b.yaml       # canonicalize graphs in parallel
//	canon check model.yaml             # validate graph invariants only
//	canon passes                       # list registered passes
//	canon init-config canon.yaml       # write the default configuration
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
