// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package passes holds the canonicalization rules and the registry that
// names them.
//
// The default order is fixed:
//
//  1. fuse_select_to_unbind
//  2. convert_stack_to_concat
//  3. eliminate_noop_reshape
//
// Later passes assume the normal forms of earlier ones; in particular no
// redundant per-index selectors remain after the first pass.
package passes

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/AleutianAI/graphcanon/services/canon/rewrite"
)

// Registered pass names.
const (
	NameFuseSelectToUnbind   = "fuse_select_to_unbind"
	NameConvertStackToConcat = "convert_stack_to_concat"
	NameEliminateNoopReshape = "eliminate_noop_reshape"
)

// ErrUnknownPass is returned by Lookup for unregistered names.
var ErrUnknownPass = errors.New("unknown pass")

var registry = map[string]func() rewrite.Rule{
	NameFuseSelectToUnbind:   FuseSelectToUnbind,
	NameConvertStackToConcat: ConvertStackToConcat,
	NameEliminateNoopReshape: EliminateNoopReshape,
}

// DefaultOrder returns the documented pass order.
func DefaultOrder() []string {
	return []string{
		NameFuseSelectToUnbind,
		NameConvertStackToConcat,
		NameEliminateNoopReshape,
	}
}

// Names returns every registered pass name, sorted.
func Names() []string {
	return slices.Sorted(maps.Keys(registry))
}

// Lookup returns a fresh rule by name.
func Lookup(name string) (rewrite.Rule, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPass, name)
	}
	return ctor(), nil
}

// Resolve looks up every name in order.
func Resolve(names []string) ([]rewrite.Rule, error) {
	rules := make([]rewrite.Rule, 0, len(names))
	for _, n := range names {
		r, err := Lookup(n)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// Default returns the rules in DefaultOrder.
func Default() []rewrite.Rule {
	rules, err := Resolve(DefaultOrder())
	if err != nil {
		panic(err)
	}
	return rules
}
