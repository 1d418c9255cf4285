// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pull

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// scopeCounter hands out monotonically increasing ids for scope tokens.
// Tokens are compared by pointer identity, never by the id or the debug
// string; the counter exists only to make tokens orderable in logs.
var scopeCounter atomic.Uint64

// scopeToken is a scope's identity. Two scopes are the same scope iff
// their tokens are the same pointer — spec §9: "Scope identity — tokens
// must be compared by identity, not by structure."
type scopeToken struct {
	id      uint64
	debugID string
}

func newScopeToken() *scopeToken {
	return &scopeToken{
		id:      scopeCounter.Add(1),
		debugID: uuid.NewString(),
	}
}

func (t *scopeToken) equal(other *scopeToken) bool { return t == other }

// ID returns the token's monotonic ordering id, for logs only.
func (t *scopeToken) ID() uint64 { return t.id }

// DebugID returns the token's UUID, assigned once at scope creation and
// used only for log/trace correlation (spec_full §4.3).
func (t *scopeToken) DebugID() string { return t.debugID }
