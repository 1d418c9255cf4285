// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pull

import "context"

// compileRunner is the top-level Runner: it folds every emitted chunk into
// an accumulator and keeps the SAME runLoop for{} going for the next one,
// so an unbounded self-recursive pull compiles in bounded native stack
// (spec §9).
type compileRunner struct {
	fold func(acc Erased, chunk []Erased) (Erased, error)
	acc  Erased

	err          error
	interruptTok *scopeToken
	interruptErr error
}

func (r *compileRunner) onDone(*Scope) stepResult { return doneWith(struct{}{}) }

func (r *compileRunner) onFail(err error) stepResult {
	r.err = err
	return doneWith(struct{}{})
}

func (r *compileRunner) onInterrupted(tok *scopeToken, err error) stepResult {
	r.interruptTok, r.interruptErr = tok, err
	return doneWith(struct{}{})
}

// onOut folds chunk into the accumulator. A fold error is injected into the
// pull's tail via its own View continuation (spec §4.5) rather than
// terminating the runLoop directly, so a HandleErrorWith wrapping the
// stream can observe and recover it; only an error that nothing recovers
// eventually reaches runLoop's viewResult branch and lands in r.err below.
func (r *compileRunner) onOut(chunk []Erased, scope *Scope, cont func(result) node) stepResult {
	acc, err := r.fold(r.acc, chunk)
	if err != nil {
		return continueWith(cont(failResult(err)), scope)
	}
	r.acc = acc
	return continueWith(cont(succeededResult(unit)), scope)
}

// CompileNoScope drives p to completion directly under scope, without
// opening a fresh child first — the streamNoScope counterpart to Compile
// (spec §6) for a caller that has already introduced its own scope around
// p and wants it driven inside that exact scope, e.g. a sub-pull stepped
// from inside a bracket's use function or a fiber sharing its parent's
// scope rather than acquiring another layer of its own.
func CompileNoScope[O, Acc any](ctx context.Context, p Pull[O, Unit], scope *Scope, init Acc, fold func(Acc, Chunk[O]) (Acc, error)) (Acc, error) {
	r := &compileRunner{
		acc: init,
		fold: func(acc Erased, chunk []Erased) (Erased, error) {
			result, err := fold(acc.(Acc), toTypedChunk[O](chunk))
			return result, err
		},
	}
	runLoop(ctx, p.n, scope, identityTranslation, r)

	if r.err != nil {
		return r.acc.(Acc), r.err
	}
	if r.interruptTok != nil && r.interruptErr != nil {
		return r.acc.(Acc), r.interruptErr
	}
	return r.acc.(Acc), nil
}

// Compile is spec §6's "stream" operation: p is run inside a fresh child
// of root, via CompileNoScope, so its finalizers always run before Compile
// returns, whether p succeeded, failed, or was interrupted (root itself is
// never closed here — see [Scope.Close]).
func Compile[O, Acc any](ctx context.Context, p Pull[O, Unit], root *Scope, init Acc, fold func(Acc, Chunk[O]) (Acc, error)) (Acc, error) {
	return CompileNoScope(ctx, InScope(p, false), root, init, fold)
}

// ToSlice compiles p, collecting every emitted element in order.
func ToSlice[O any](ctx context.Context, p Pull[O, Unit], root *Scope) ([]O, error) {
	return Compile(ctx, p, root, ([]O)(nil), func(acc []O, c Chunk[O]) ([]O, error) {
		return append(acc, c...), nil
	})
}

// Drain compiles p, discarding every emitted element.
func Drain[O any](ctx context.Context, p Pull[O, Unit], root *Scope) error {
	_, err := Compile(ctx, p, root, unit, func(acc Unit, _ Chunk[O]) (Unit, error) {
		return acc, nil
	})
	return err
}

// Fold compiles p, threading a user-provided accumulator.
func Fold[O, Acc any](ctx context.Context, p Pull[O, Unit], root *Scope, init Acc, step func(Acc, O) (Acc, error)) (Acc, error) {
	return Compile(ctx, p, root, init, func(acc Acc, c Chunk[O]) (Acc, error) {
		var err error
		for _, o := range c {
			acc, err = step(acc, o)
			if err != nil {
				return acc, err
			}
		}
		return acc, nil
	})
}
