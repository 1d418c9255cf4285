// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pull

import (
	"context"
	"sync/atomic"
	"time"
)

// Option holds zero or one value of type T, used by Uncons/StepLeg/TimedPull
// to surface "no more elements" without a sentinel value of T itself.
type Option[T any] struct {
	value T
	ok    bool
}

// Some builds a present Option.
func Some[T any](v T) Option[T] { return Option[T]{value: v, ok: true} }

// None builds an absent Option.
func None[T any]() Option[T] { return Option[T]{} }

// Get returns the value and whether it was present.
func (o Option[T]) Get() (T, bool) { return o.value, o.ok }

// UnconsStep is what Uncons produces on a successful step: the chunk that
// was emitted, and the remainder of the pull to keep stepping.
type UnconsStep[O any] struct {
	Chunk Chunk[O]
	Tail  Pull[O, Unit]
}

// Uncons steps p exactly once, surfacing its first chunk (if any) and the
// tail pull to continue from. P is the ambient output type of whatever
// pull Uncons itself is embedded in — Uncons never emits on its own
// account.
func Uncons[O, P any](p Pull[O, Unit]) Pull[P, Option[UnconsStep[O]]] {
	return wrap[P, Option[UnconsStep[O]]](bind(&unconsAction{inner: p.n}, func(r result) node {
		if !r.isSucceeded() {
			return r
		}
		sv := r.value.(unconsStepValue)
		if !sv.some {
			return succeededResult(None[UnconsStep[O]]())
		}
		return succeededResult(Some(UnconsStep[O]{Chunk: toTypedChunk[O](sv.chunk), Tail: wrap[O, Unit](sv.tail)}))
	}))
}

func toTypedChunk[O any](erased []Erased) Chunk[O] {
	c := make(Chunk[O], len(erased))
	for i, v := range erased {
		c[i] = v.(O)
	}
	return c
}

// StreamLeg is one independently-steppable branch of a multi-way
// combinator (zip, merge) — stepping it resumes interpretation in the
// scope the leg was captured from rather than the caller's current scope
// (spec §4.3's stepLegAction).
type StreamLeg[O any] struct {
	tail     node
	scopeTok *scopeToken
}

// NewLeg captures p as a leg bound to scope's identity.
func NewLeg[O any](p Pull[O, Unit], scope *Scope) StreamLeg[O] {
	return StreamLeg[O]{tail: p.n, scopeTok: scope.Token()}
}

// LegStep is what stepping a leg produces on success.
type LegStep[O any] struct {
	Chunk Chunk[O]
	Next  StreamLeg[O]
}

// Step advances the leg by one chunk.
func (leg StreamLeg[O]) Step() Pull[Unit, Option[LegStep[O]]] {
	return wrap[Unit, Option[LegStep[O]]](bind(&stepLegAction{inner: leg.tail, scopeTok: leg.scopeTok}, func(r result) node {
		if !r.isSucceeded() {
			return r
		}
		sv := r.value.(unconsStepValue)
		if !sv.some {
			return succeededResult(None[LegStep[O]]())
		}
		next := StreamLeg[O]{tail: sv.tail, scopeTok: leg.scopeTok}
		return succeededResult(Some(LegStep[O]{Chunk: toTypedChunk[O](sv.chunk), Next: next}))
	}))
}

// InterruptWhen races haltSignal against p, interrupting it as soon as
// haltSignal resolves.
func InterruptWhen[O, C any](p Pull[O, C], haltSignal func(context.Context) (bool, error)) Pull[O, C] {
	reg := wrap[O, *interruptFiber](&interruptWhenAction{
		haltSignal: func(ctx context.Context) (Erased, error) { return haltSignal(ctx) },
	})
	return Then(Void(reg), p)
}

// InterruptScope runs p in a fresh child scope opened with
// useInterruption=true, so InterruptWhen signals registered inside p mark
// that scope and are absorbed once it closes.
func InterruptScope[O, C any](p Pull[O, C]) Pull[O, C] { return InScope(p, true) }

// TimedStep is what TimedPull.Uncons produces: either a natural step, a
// natural end of stream, or a timeout with the pull otherwise untouched.
type TimedStep[O any] struct {
	TimedOut bool
	Step     Option[UnconsStep[O]]
}

// TimedPull is a stateful stepping capability over a pull, whose per-step
// deadline can be reset between calls (spec §6). Each Uncons call races the
// step against the current deadline; on timeout the pull's position is
// unchanged so the next call resumes from the same point.
type TimedPull[O any] struct {
	tail    node
	timeout atomic.Int64
}

// NewTimedPull wraps p for timed stepping, initially with no deadline.
func NewTimedPull[O any](p Pull[O, Unit]) *TimedPull[O] {
	return &TimedPull[O]{tail: p.n}
}

// Reset sets the deadline applied to the next Uncons call. d<=0 disables
// timing out entirely.
func (tp *TimedPull[O]) Reset(d time.Duration) { tp.timeout.Store(int64(d)) }

// Uncons steps the wrapped pull once, subject to the current deadline.
// Timing out depends on the stepped pull's own actions observing context
// cancellation (e.g. an Eval blocking on I/O); a step with no cancellable
// action inside it always completes before a timeout can be observed.
func (tp *TimedPull[O]) Uncons() Pull[Unit, TimedStep[O]] {
	return FlatMap(GetScope[Unit](), func(scope *Scope) Pull[Unit, TimedStep[O]] {
		return Eval[Unit](func(ctx context.Context) (TimedStep[O], error) {
			d := time.Duration(tp.timeout.Load())
			runCtx := ctx
			if d > 0 {
				var cancel context.CancelFunc
				runCtx, cancel = context.WithTimeout(ctx, d)
				defer cancel()
			}
			r := unconsOnce(runCtx, tp.tail, scope, identityTranslation)
			switch {
			case r.isFail():
				if runCtx.Err() != nil && ctx.Err() == nil {
					return TimedStep[O]{TimedOut: true}, nil
				}
				return TimedStep[O]{}, r.err
			case r.isInterrupted():
				return TimedStep[O]{}, wrapf("pull: timed uncons interrupted")
			}
			sv := r.value.(unconsStepValue)
			if !sv.some {
				return TimedStep[O]{Step: None[UnconsStep[O]]()}, nil
			}
			if runCtx.Err() != nil {
				return TimedStep[O]{TimedOut: true}, nil
			}
			tp.tail = sv.tail
			return TimedStep[O]{Step: Some(UnconsStep[O]{Chunk: toTypedChunk[O](sv.chunk), Tail: wrap[O, Unit](sv.tail)})}, nil
		})
	})
}
