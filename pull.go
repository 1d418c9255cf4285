// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package pull implements a pull-based effectful streaming engine: a
// free-algebra data type describing streaming computations (a "pull"),
// and an interpreter that drives that algebra to produce effectful
// streams of output chunks.
//
// The algebra is represented internally as a tagged sum of defunctionalized
// nodes (see the node interface below), following the same erasure strategy the corpus's
// continuation toolkit uses for its frame chain: nodes carry Erased (any)
// payloads recovered via type assertion at the point where the concrete
// type parameters are back in scope. [Pull] is the typed façade over that
// erased tree.
package pull

// Erased marks a type-erased value living inside the internal node tree.
// Concrete types are recovered via type assertions at package boundaries
// where the surrounding generic function still has the real type in scope.
type Erased = any

// Chunk is a non-empty sequence of outputs processed as a unit by the
// interpreter. An empty Chunk is never constructed by the public API;
// output(emptyChunk) collapses to Done at construction time (spec §8: "output
// (empty chunk) ≡ done").
type Chunk[O any] []O

// Size returns the number of elements in the chunk.
func (c Chunk[O]) Size() int { return len(c) }

// At returns the element at index i.
func (c Chunk[O]) At(i int) O { return c[i] }

// Unit is the carry type of computations that only produce side effects,
// matching Bracket/Then-shaped combinators throughout the package.
type Unit = struct{}

var unit Unit

// node is the tagged-sum marker for every element of the pull algebra tree:
// the three Result terminals, every Action variant, and Bind. The
// interpreter and View never touch a node except through this interface,
// exactly as the corpus's Frame is a pure marker with dispatch done by type
// switch, never virtual method calls per node kind.
type node interface {
	pullNode()
}

// Pull is the typed façade over an internal, type-erased algebra tree.
// O is the output/chunk element type, C is the carry threaded through
// binds. A zero Pull is not valid; always construct via the package's
// constructor functions.
type Pull[O, C any] struct {
	n node
}

func wrap[O, C any](n node) Pull[O, C] { return Pull[O, C]{n: n} }

// ------------------------------------------------------------------
// Result terminals
// ------------------------------------------------------------------

type resultKind uint8

const (
	resultSucceeded resultKind = iota
	resultFail
	resultInterrupted
)

// result is the erased terminal value threaded between interpreter steps
// and fed into a Bind's continuation. kind selects which fields are
// meaningful, as noted on each field: value for Succeeded, err for Fail,
// token plus an optional err for Interrupted.
type result struct {
	kind  resultKind
	value Erased // resultSucceeded: the carry
	err   error  // resultFail: the error; resultInterrupted: optional deferred error
	token *scopeToken
}

func (result) pullNode() {}

func succeededResult(v Erased) result { return result{kind: resultSucceeded, value: v} }
func failResult(err error) result     { return result{kind: resultFail, err: err} }
func interruptedResult(tok *scopeToken, err error) result {
	return result{kind: resultInterrupted, token: tok, err: err}
}

func (r result) isSucceeded() bool   { return r.kind == resultSucceeded }
func (r result) isFail() bool        { return r.kind == resultFail }
func (r result) isInterrupted() bool { return r.kind == resultInterrupted }

// ------------------------------------------------------------------
// Actions
// ------------------------------------------------------------------

// outputAction emits a non-empty chunk and carries Unit.
type outputAction struct{ chunk Erased }

func (*outputAction) pullNode() {}

// evalAction runs an effectful value in the translated effect.
type evalAction struct{ fa EffectThunk }

func (*evalAction) pullNode() {}

// acquireAction registers a finalizer on the current scope after a
// successful acquire.
type acquireAction struct {
	acquire    EffectThunk
	release    func(Erased, ExitCase) EffectThunk
	cancelable bool
}

func (*acquireAction) pullNode() {}

// getScopeAction carries the current scope.
type getScopeAction struct{}

func (*getScopeAction) pullNode() {}

// translateAction reinterprets inner under a composed translation.
type translateAction struct {
	inner node
	fk    func(EffectThunk) EffectThunk
}

func (*translateAction) pullNode() {}

// mapOutputAction elementwise-transforms emissions of inner.
type mapOutputAction struct {
	inner node
	f     func(Erased) (Erased, error)
}

func (*mapOutputAction) pullNode() {}

// flatMapOutputAction runs a per-element sub-pull, concatenating outputs.
type flatMapOutputAction struct {
	inner node
	f     func(Erased) node
}

func (*flatMapOutputAction) pullNode() {}

// unconsAction carries Option[(Chunk, tail)] by stepping inner once.
type unconsAction struct{ inner node }

func (*unconsAction) pullNode() {}

// stepLegAction behaves like unconsAction but steps inner in the scope
// identified by scopeTok (when that scope is in the current lineage), then
// resumes in the current scope.
type stepLegAction struct {
	inner    node
	scopeTok *scopeToken
}

func (*stepLegAction) pullNode() {}

// inScopeAction opens a fresh child scope around inner.
type inScopeAction struct {
	inner        node
	useInterrupt bool
}

func (*inScopeAction) pullNode() {}

// closeScopeAction closes a specific scope with a cause, then feeds resume
// (with the close's own error, if any, composed in) to the continuation.
type closeScopeAction struct {
	token    *scopeToken
	resume   result
	exitCase ExitCase
}

func (*closeScopeAction) pullNode() {}

// interruptWhenAction registers an interrupt source on the current scope.
type interruptWhenAction struct {
	haltSignal EffectThunk // resolves to (Either-like) bool ok / error
}

func (*interruptWhenAction) pullNode() {}

// ------------------------------------------------------------------
// Bind
// ------------------------------------------------------------------

// bindNode joins a sub-pull with a continuation. cont receives the step's
// terminal result and produces the next pull.
type bindNode struct {
	step node
	cont func(result) node
}

func (*bindNode) pullNode() {}

// bind constructs a Bind node, collapsing the trivial case where step is
// already a Result so that pure(c).flatMap(f) never allocates a Bind that
// the View would have to unwrap on its very first step (mirrors the
// corpus's ChainFrames: "return the other operand when either side is the
// identity element").
func bind(step node, cont func(result) node) node {
	if r, ok := step.(result); ok {
		return cont(r)
	}
	return &bindNode{step: step, cont: cont}
}
