// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pull

import "gopkg.in/yaml.v3"

// ScopeSnapshot is an immutable, point-in-time, serializable view of a
// scope and its descendants, for diagnostics (spec_full §4.3).
type ScopeSnapshot struct {
	ID           uint64          `yaml:"id"`
	DebugID      string          `yaml:"debug_id"`
	Level        int             `yaml:"level"`
	Finalizers   int             `yaml:"finalizers"`
	Leases       int64           `yaml:"leases"`
	Interrupted  bool            `yaml:"interrupted"`
	Children     []ScopeSnapshot `yaml:"children,omitempty"`
}

// Snapshot walks the scope's subtree and captures its current shape.
// Concurrent modifications during the walk may be reflected inconsistently
// across siblings; this is a diagnostic aid, not a transactional read.
func (s *Scope) Snapshot() ScopeSnapshot {
	s.mu.Lock()
	children := append([]*Scope(nil), s.children...)
	numFinalizers := len(s.finalizers)
	s.mu.Unlock()

	_, interrupted := s.IsInterrupted()

	snap := ScopeSnapshot{
		ID:          s.token.ID(),
		DebugID:     s.token.DebugID(),
		Level:       s.level,
		Finalizers:  numFinalizers,
		Leases:      s.leases.Load(),
		Interrupted: interrupted,
	}
	for _, c := range children {
		snap.Children = append(snap.Children, c.Snapshot())
	}
	return snap
}

// YAML marshals the snapshot for logging or debugging.
func (s ScopeSnapshot) YAML() ([]byte, error) { return yaml.Marshal(s) }
