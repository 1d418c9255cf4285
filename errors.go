// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pull

import (
	"strings"

	"golang.org/x/xerrors"
)

// CompositeError aggregates two or more causes that occurred together —
// e.g. a program error plus a finalizer error observed while closing the
// scope that would otherwise have surfaced it alone (spec §7, §8 scenario
// 6: "a composite failure containing both E1 and E2, in that order").
//
// Causes chain via %w exactly once (the first cause), following
// golang.org/x/xerrors's wrap-chain convention as used throughout
// elves-elvish's error paths; the remaining causes are retained for
// [CompositeError.Causes] and inspected by [errors.As] traversal of the
// chain's head only, matching Go's single-parent Unwrap contract.
type CompositeError struct {
	causes []error
}

// composite builds a CompositeError from causes in encounter order,
// dropping nils and flattening any nested CompositeError so a chain of
// merges never nests more than one level deep.
func composite(causes ...error) error {
	var flat []error
	for _, c := range causes {
		if c == nil {
			continue
		}
		if ce, ok := c.(*CompositeError); ok {
			flat = append(flat, ce.causes...)
			continue
		}
		flat = append(flat, c)
	}
	switch len(flat) {
	case 0:
		return nil
	case 1:
		return flat[0]
	default:
		return &CompositeError{causes: flat}
	}
}

// Causes returns the aggregated errors in the order they were observed.
func (e *CompositeError) Causes() []error { return e.causes }

func (e *CompositeError) Error() string {
	parts := make([]string, len(e.causes))
	for i, c := range e.causes {
		parts[i] = c.Error()
	}
	return "pull: composite failure: " + strings.Join(parts, "; ")
}

// Unwrap exposes the first cause so errors.Is/errors.As can traverse into
// it, matching xerrors.Errorf's %w convention for the primary cause.
func (e *CompositeError) Unwrap() error { return e.causes[0] }

// wrapf is the package's sole formatted-wrap helper, funnelling every
// contextualized error through xerrors so frame info is attached
// consistently (elves-elvish wraps all its interpreter errors the same
// way, via a single helper rather than ad hoc fmt.Errorf call sites).
func wrapf(format string, args ...any) error {
	return xerrors.Errorf(format, args...)
}
