// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pull

import "context"

// runLoop is the single interpreter driving loop (spec §4.3). It repeatedly
// reduces cur to a View and dispatches on its head. Only the bounded
// handful of single-round helpers (unconsOnce, handleMapOutput,
// handleFlatMapOutput, handleTranslate) ever grow the native call stack:
// each makes exactly one nested runLoop call and returns a node for THIS
// loop to continue with. Entering a nested scope (InScope's bind-wrapping)
// is just node construction, not a call. A pull
// that self-recursively emits chunks (def s = output1(x) >> s) never adds a
// stack frame per element: it is folded entirely inside this for{}.
func runLoop(ctx context.Context, cur node, scope *Scope, tr *translation, r runner) Erased {
	for {
		v := toView(cur)

		if v.kind == viewResult {
			var sr stepResult
			switch v.res.kind {
			case resultSucceeded:
				sr = r.onDone(scope)
			case resultFail:
				sr = r.onFail(v.res.err)
			default:
				sr = r.onInterrupted(v.res.token, v.res.err)
			}
			if sr.done {
				return sr.value
			}
			cur, scope = sr.next, sr.nextScope
			continue
		}

		switch a := v.head.(type) {
		case *closeScopeAction:
			cur, scope = execCloseScope(ctx, a, scope, v.cont)
			continue
		case *getScopeAction:
			cur = v.cont(succeededResult(scope))
			continue
		}

		if st, interrupted := scope.IsInterrupted(); interrupted {
			cur = v.cont(interruptedResult(st.origin, interruptCauseOf(st)))
			continue
		}

		switch a := v.head.(type) {
		case *outputAction:
			sr := r.onOut(a.chunk.([]Erased), scope, v.cont)
			if sr.done {
				return sr.value
			}
			cur, scope = sr.next, sr.nextScope

		case *evalAction:
			oc := scope.InterruptibleEval(ctx, tr.apply(a.fa))
			cur = v.cont(resultFromOutcome(oc, scope))

		case *acquireAction:
			oc := scope.AcquireResource(ctx, tr.apply(a.acquire), a.release, a.cancelable)
			cur = v.cont(resultFromOutcome(oc, scope))

		case *interruptWhenAction:
			fiber := scope.InterruptWhen(ctx, tr.apply(a.haltSignal))
			cur = v.cont(succeededResult(fiber))

		case *inScopeAction:
			cur, scope = execInScope(ctx, a, scope, v.cont)

		case *translateAction:
			cur, scope = handleTranslate(ctx, a, scope, tr, v.cont)

		case *mapOutputAction:
			cur, scope = handleMapOutput(ctx, a, scope, tr, v.cont)

		case *flatMapOutputAction:
			cur, scope = handleFlatMapOutput(ctx, a, scope, tr, v.cont)

		case *unconsAction:
			cur = v.cont(unconsOnce(ctx, a.inner, scope, tr))

		case *stepLegAction:
			stepScope := scope
			if target, ok := scope.FindInLineage(a.scopeTok); ok {
				stepScope = target
			}
			cur = v.cont(unconsOnce(ctx, a.inner, stepScope, tr))

		default:
			panic("pull: unhandled action node in interpreter")
		}
	}
}

// interruptCauseOf surfaces the deferred error, if any, that accompanied an
// interruption (spec §3: Interrupted may carry an error observed while
// racing the halt signal).
func interruptCauseOf(st *interruptState) error {
	if st.outcome.IsErrored() {
		return st.outcome.err
	}
	return nil
}

func resultFromOutcome(oc Outcome, scope *Scope) result {
	switch {
	case oc.IsSucceeded():
		return succeededResult(oc.value)
	case oc.IsErrored():
		return failResult(oc.err)
	default:
		if st, ok := scope.IsInterrupted(); ok {
			return interruptedResult(st.origin, interruptCauseOf(st))
		}
		return interruptedResult(scope.Token(), nil)
	}
}

// ------------------------------------------------------------------
// CloseScope / InScope
// ------------------------------------------------------------------

func execCloseScope(ctx context.Context, a *closeScopeAction, scope *Scope, cont func(result) node) (node, *Scope) {
	// A target missing from the lineage was already closed transitively
	// (e.g. an ancestor closed first): nothing left to close, so resume
	// where we are with a.resume.
	resumeScope := scope
	var closeErr error
	if target, found := scope.FindInLineage(a.token); found {
		if target.IsRoot() {
			panic("pull: cannot close the root scope via CloseScope")
		}
		closeErr = target.Close(ctx, a.exitCase)
		resumeScope = target.OpenAncestor()
	}

	res := a.resume
	switch {
	case res.isInterrupted():
		if closeErr != nil {
			res.err = composite(res.err, closeErr)
		}
		// Strictly outside the interruption's origin the signal is absorbed:
		// once resumeScope no longer descends from it, nothing downstream
		// can observe it anymore (spec §4.3, §5).
		if !resumeScope.DescendsFrom(res.token) {
			if res.err != nil {
				res = failResult(res.err)
			} else {
				res = succeededResult(unit)
			}
		}
	case res.isFail():
		if closeErr != nil {
			res.err = composite(res.err, closeErr)
		}
	default: // succeeded
		if closeErr != nil {
			res = failResult(closeErr)
		}
	}
	return cont(res), resumeScope
}

func exitCaseFromResult(r result) ExitCase {
	switch {
	case r.isFail():
		return ExitErrored(r.err)
	case r.isInterrupted():
		return ExitCanceled
	default:
		return ExitSucceeded
	}
}

func execInScope(ctx context.Context, a *inScopeAction, scope *Scope, outerCont func(result) node) (node, *Scope) {
	child, err := scope.Open(a.useInterrupt)
	if err != nil {
		return outerCont(failResult(err)), scope
	}
	childTok := child.Token()
	next := bind(a.inner, func(r result) node {
		return bind(&closeScopeAction{token: childTok, resume: r, exitCase: exitCaseFromResult(r)}, outerCont)
	})
	return next, child
}

// ------------------------------------------------------------------
// Uncons — the single-round primitive that Translate, MapOutput and
// FlatMapOutput are all built from.
// ------------------------------------------------------------------

type unconsStepValue struct {
	some  bool
	chunk []Erased
	tail  node
}

type unconsRunner struct{}

func (unconsRunner) onDone(*Scope) stepResult { return doneWith(succeededResult(unconsStepValue{})) }

func (unconsRunner) onOut(chunk []Erased, _ *Scope, cont func(result) node) stepResult {
	return doneWith(succeededResult(unconsStepValue{some: true, chunk: chunk, tail: cont(succeededResult(unit))}))
}

func (unconsRunner) onInterrupted(tok *scopeToken, err error) stepResult {
	return doneWith(interruptedResult(tok, err))
}

func (unconsRunner) onFail(err error) stepResult { return doneWith(failResult(err)) }

// unconsOnce steps inner exactly once: it runs actions (Eval, Acquire, ...)
// until inner either terminates or is about to emit, and returns that
// terminal event as a result carrying an unconsStepValue on success.
func unconsOnce(ctx context.Context, inner node, scope *Scope, tr *translation) result {
	return runLoop(ctx, inner, scope, tr, unconsRunner{}).(result)
}

func isPureSuccessTail(n node) bool {
	v := toView(n)
	return v.kind == viewResult && v.res.isSucceeded()
}

// ------------------------------------------------------------------
// Translate
// ------------------------------------------------------------------

func handleTranslate(ctx context.Context, a *translateAction, scope *Scope, tr *translation, outerCont func(result) node) (node, *Scope) {
	ur := unconsOnce(ctx, a.inner, scope, tr.compose(a.fk))
	switch {
	case ur.isFail():
		return outerCont(failResult(ur.err)), scope
	case ur.isInterrupted():
		return outerCont(interruptedResult(ur.token, ur.err)), scope
	}
	sv := ur.value.(unconsStepValue)
	if !sv.some {
		return outerCont(succeededResult(unit)), scope
	}
	next := bind(&outputAction{chunk: sv.chunk}, func(result) node {
		return bind(&translateAction{inner: sv.tail, fk: a.fk}, outerCont)
	})
	return next, scope
}

// ------------------------------------------------------------------
// MapOutput
// ------------------------------------------------------------------

func mapChunk(chunk []Erased, f func(Erased) (Erased, error)) ([]Erased, error) {
	out := make([]Erased, len(chunk))
	for i, v := range chunk {
		mv, err := f(v)
		if err != nil {
			return nil, err
		}
		out[i] = mv
	}
	return out, nil
}

func handleMapOutput(ctx context.Context, a *mapOutputAction, scope *Scope, tr *translation, outerCont func(result) node) (node, *Scope) {
	ur := unconsOnce(ctx, a.inner, scope, tr)
	switch {
	case ur.isFail():
		return outerCont(failResult(ur.err)), scope
	case ur.isInterrupted():
		return outerCont(interruptedResult(ur.token, ur.err)), scope
	}
	sv := ur.value.(unconsStepValue)
	if !sv.some {
		return outerCont(succeededResult(unit)), scope
	}
	mapped, err := mapChunk(sv.chunk, a.f)
	if err != nil {
		return outerCont(failResult(err)), scope
	}
	next := bind(&outputAction{chunk: mapped}, func(result) node {
		return bind(&mapOutputAction{inner: sv.tail, f: a.f}, outerCont)
	})
	return next, scope
}

// ------------------------------------------------------------------
// FlatMapOutput
// ------------------------------------------------------------------

func handleFlatMapOutput(ctx context.Context, a *flatMapOutputAction, scope *Scope, tr *translation, outerCont func(result) node) (node, *Scope) {
	ur := unconsOnce(ctx, a.inner, scope, tr)
	switch {
	case ur.isFail():
		return outerCont(failResult(ur.err)), scope
	case ur.isInterrupted():
		return outerCont(interruptedResult(ur.token, ur.err)), scope
	}
	sv := ur.value.(unconsStepValue)
	if !sv.some {
		return outerCont(succeededResult(unit)), scope
	}

	// Singleton chunk with an already-exhausted tail: we already know
	// unconsing sv.tail would trivially resolve to "no more output" (that's
	// what isPureSuccessTail confirms), so skip the extra unconsOnce round
	// that the general path below would spend confirming it, and bind
	// outerCont directly onto f's own result. This is what keeps
	// `s = output1(o).flatMap(_ => s)` folded in this same for{} instead of
	// growing the call stack once per element (spec §4.4): the substitution
	// is still just node construction, not a nested runLoop call.
	if len(sv.chunk) == 1 && isPureSuccessTail(sv.tail) {
		return bind(a.f(sv.chunk[0]), func(r result) node {
			switch {
			case r.isFail():
				return outerCont(failResult(r.err))
			case r.isInterrupted():
				return outerCont(interruptedResult(r.token, r.err))
			default:
				return outerCont(succeededResult(unit))
			}
		}), scope
	}

	chained := bind(&flatMapOutputAction{inner: sv.tail, f: a.f}, outerCont)
	for i := len(sv.chunk) - 1; i >= 0; i-- {
		elem := sv.chunk[i]
		rest := chained
		chained = bind(a.f(elem), func(r result) node {
			switch {
			case r.isFail():
				return failResult(r.err)
			case r.isInterrupted():
				return interruptedResult(r.token, r.err)
			default:
				return rest
			}
		})
	}
	return chained, scope
}
