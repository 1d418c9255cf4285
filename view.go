// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pull

// viewKind distinguishes the two shapes a View can take.
type viewKind uint8

const (
	viewResult viewKind = iota
	viewAction
)

// view is a left-biased, rebalanced inspection of a pull tree: either a
// terminal Result, or a single head Action paired with its continuation
// (spec §4.1). The interpreter only ever inspects a pull through this
// type, so its head is always a Result or exactly one Action.
type view struct {
	kind viewKind
	res  result
	head node
	cont func(result) node
}

// identityCont is the implicit continuation for a bare Action with no
// outer Bind: it returns the Action's own terminal result unchanged.
func identityCont(r result) node { return r }

// toView reduces p to a View, right-associating chained left-nested
// binds as it goes: Bind(Bind(a, k1), k2) rewrites to
// Bind(a, r => Bind(k1(r), k2)), reusing k2 (the outer bind's own
// continuation) as a closure capture rather than copying it, so
// allocation stays proportional to the chain depth actually unrolled
// (spec §4.1, §9).
func toView(p node) view {
	for {
		switch n := p.(type) {
		case result:
			return view{kind: viewResult, res: n}
		case *bindNode:
			switch step := n.step.(type) {
			case result:
				p = n.cont(step)
				continue
			case *bindNode:
				outerCont := n.cont
				innerCont := step.cont
				p = &bindNode{
					step: step.step,
					cont: func(r result) node {
						return bind(innerCont(r), outerCont)
					},
				}
				continue
			default:
				return view{kind: viewAction, head: step, cont: n.cont}
			}
		default:
			return view{kind: viewAction, head: p, cont: identityCont}
		}
	}
}
