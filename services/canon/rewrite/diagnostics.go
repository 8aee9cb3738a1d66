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
	"fmt"
	"log/slog"
	"sync"

	"github.com/AleutianAI/graphcanon/services/canon/ir"
)

// Diagnostic is an informational message about a motif instance that was
// recognized but left unmodified. It is human-readable text, not a contract.
type Diagnostic struct {
	Rule         string    `json:"rule"`
	Operator     string    `json:"operator"`
	OperatorType ir.OpType `json:"operator_type"`
	Message      string    `json:"message"`
}

// String formats the diagnostic for terminals.
func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s %q: %s", d.Rule, d.OperatorType, d.Operator, d.Message)
}

// DiagnosticSink receives diagnostics as they are emitted.
type DiagnosticSink interface {
	Emit(d Diagnostic)
}

// LogSink writes each diagnostic as a warning.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink. A nil logger uses slog.Default().
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Emit logs d at warn level.
func (s *LogSink) Emit(d Diagnostic) {
	s.logger.Warn(d.Message,
		slog.String("rule", d.Rule),
		slog.String("operator", d.Operator),
		slog.String("operator_type", string(d.OperatorType)),
	)
}

// Collector keeps diagnostics in memory.
//
// Thread Safety: Safe for concurrent use.
type Collector struct {
	mu          sync.Mutex
	diagnostics []Diagnostic
}

// Emit records d.
func (c *Collector) Emit(d Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.diagnostics = append(c.diagnostics, d)
}

// Diagnostics returns a copy of the recorded diagnostics.
func (c *Collector) Diagnostics() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Diagnostic, len(c.diagnostics))
	copy(out, c.diagnostics)
	return out
}

// Len returns the number of recorded diagnostics.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.diagnostics)
}

// Tee fans each diagnostic out to every non-nil sink.
type Tee []DiagnosticSink

// Emit forwards d.
func (t Tee) Emit(d Diagnostic) {
	for _, s := range t {
		if s != nil {
			s.Emit(d)
		}
	}
}
