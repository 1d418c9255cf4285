// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pull

// The three smart constructors below build wrapper nodes at construction
// time (spec §4.4). mapOutputNode and translateNode fuse wrapper-of-wrapper
// shapes rather than leaving them for the interpreter to unwind
// action-by-action: each recognizes its own node kind (and, for mapOutput,
// translate) directly beneath the wrapper being built and collapses instead
// of nesting. All three pass a Result through unchanged; flatMapOutputNode
// does no other fusion, so a FlatMapOutput beneath it stays nested.

func mapOutputNode(inner node, f func(Erased) (Erased, error)) node {
	switch n := inner.(type) {
	case *mapOutputAction:
		g := n.f
		return &mapOutputAction{inner: n.inner, f: func(v Erased) (Erased, error) {
			mv, err := g(v)
			if err != nil {
				return nil, err
			}
			return f(mv)
		}}
	case *translateAction:
		return &translateAction{inner: mapOutputNode(n.inner, f), fk: n.fk}
	case result:
		// Nothing to map over: mapOutput(Result) ≡ Result unchanged.
		return n
	default:
		return &mapOutputAction{inner: inner, f: f}
	}
}

func flatMapOutputNode(inner node, f func(Erased) node) node {
	if _, ok := inner.(result); ok {
		return inner
	}
	return &flatMapOutputAction{inner: inner, f: f}
}

func translateNode(inner node, fk func(EffectThunk) EffectThunk) node {
	switch n := inner.(type) {
	case *translateAction:
		innerFk := n.fk
		return &translateAction{inner: n.inner, fk: func(t EffectThunk) EffectThunk { return fk(innerFk(t)) }}
	case result:
		return n
	default:
		return &translateAction{inner: inner, fk: fk}
	}
}
