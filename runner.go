// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pull

// stepResult is what a runner hands back to runLoop after observing one
// terminal event: either a final Erased value the whole runLoop call
// should return, or a (node, scope) pair the SAME loop iteration should
// continue with. The top-level fold (compileRunner) returns the "continue"
// shape for every chunk, so the actual looping happens inside a single Go
// for{} rather than by the runner recursing back into runLoop — that is
// what keeps native stack usage independent of how many chunks a pull
// emits (spec §9's stack-safety requirement). unconsRunner, used by the
// per-round helpers, returns the "done" shape after a single step.
type stepResult struct {
	done      bool
	value     Erased
	next      node
	nextScope *Scope
}

func doneWith(v Erased) stepResult                     { return stepResult{done: true, value: v} }
func continueWith(n node, s *Scope) stepResult         { return stepResult{next: n, nextScope: s} }

// runner is the strategy a single runLoop invocation uses to react to the
// three ways a pull can terminate. Everything else — Eval, Acquire,
// GetScope, InScope, CloseScope, InterruptWhen, Translate, MapOutput,
// FlatMapOutput, Uncons, StepLeg — is handled uniformly by runLoop itself,
// since their behavior never depends on who's consuming the pull's
// eventual output (spec §4.3).
// onOut receives cont rather than a precomputed tail node so a runner that
// fails partway through consuming a chunk (e.g. the top-level fold, spec
// §4.5) can inject that failure through the pull's own View continuation —
// letting an enclosing HandleErrorWith observe and recover it — instead of
// just terminating the runLoop outright.
type runner interface {
	onDone(scope *Scope) stepResult
	onOut(chunk []Erased, scope *Scope, cont func(result) node) stepResult
	onInterrupted(tok *scopeToken, err error) stepResult
	onFail(err error) stepResult
}
