// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pull

import "context"

// Pure lifts a carry with no effect and no output.
func Pure[O, C any](c C) Pull[O, C] { return wrap[O, C](succeededResult(c)) }

// Done is Pure(Unit): the empty, successful pull.
func Done[O any]() Pull[O, Unit] { return Pure[O, Unit](unit) }

// RaiseError builds a pull that immediately fails.
func RaiseError[O, C any](err error) Pull[O, C] { return wrap[O, C](failResult(err)) }

// Output1 emits a single element.
func Output1[O any](o O) Pull[O, Unit] {
	return wrap[O, Unit](&outputAction{chunk: []Erased{o}})
}

// Output emits a non-empty chunk. output(empty chunk) collapses to Done
// (spec §8).
func Output[O any](c Chunk[O]) Pull[O, Unit] {
	if len(c) == 0 {
		return Done[O]()
	}
	erased := make([]Erased, len(c))
	for i, v := range c {
		erased[i] = v
	}
	return wrap[O, Unit](&outputAction{chunk: erased})
}

// Range emits the half-open integer range [start, end) one element at a
// time, the same shape spf-style enumerators in the corpus expose for
// tests and demos.
func Range(start, end int) Pull[int, Unit] {
	return Void(Loop(start, func(i int) Pull[int, LoopResult[int]] {
		if i >= end {
			return Pure[int](LoopResult[int]{Value: i})
		}
		return As(Output1(i), LoopResult[int]{Value: i + 1, Continue: true})
	}))
}

// Eval lifts an effectful action, carrying its result.
func Eval[O, A any](fa func(context.Context) (A, error)) Pull[O, A] {
	return wrap[O, A](&evalAction{fa: func(ctx context.Context) (Erased, error) { return fa(ctx) }})
}

// AttemptEval lifts an effectful action that never fails the pull itself:
// any error is captured as a Left, letting the caller decide how to react.
func AttemptEval[O, A any](fa func(context.Context) (A, error)) Pull[O, Either[error, A]] {
	return wrap[O, Either[error, A]](&evalAction{fa: func(ctx context.Context) (Erased, error) {
		v, err := fa(ctx)
		if err != nil {
			return Left[error, A](err), nil
		}
		return Right[error, A](v), nil
	}})
}

// FromEither lifts an already-computed Either: Right succeeds with its
// value, Left fails the pull with its error.
func FromEither[O, C any](e Either[error, C]) Pull[O, C] {
	if v, ok := e.Right(); ok {
		return Pure[O](v)
	}
	l, _ := e.Left()
	return RaiseError[O, C](l)
}

// Suspend defers construction of the returned pull until interpretation
// reaches this point, letting recursive definitions (`s := suspend(func()
// Pull[...] { return ... s ... })`) avoid infinite eager recursion at
// construction time.
func Suspend[O, C any](thunk func() Pull[O, C]) Pull[O, C] {
	noop := &evalAction{fa: liftPure(nil)}
	return wrap[O, C](bind(noop, func(result) node { return thunk().n }))
}

// GetScope carries the interpreter's current scope.
func GetScope[O any]() Pull[O, *Scope] {
	return wrap[O, *Scope](&getScopeAction{})
}

// Acquire runs acquire, registering release as a finalizer on the current
// scope iff acquisition succeeded. The acquire effect itself is not
// interruptible mid-flight.
func Acquire[O, A any](acquire func(context.Context) (A, error), release func(A, ExitCase) func(context.Context) error) Pull[O, A] {
	return acquireGeneric[O, A](acquire, release, false)
}

// AcquireCancelable is Acquire, but the acquire effect runs under the
// caller's context, so cancelling that context can abandon it. The scope's
// interruption signal does not by itself stop an acquire already running.
func AcquireCancelable[O, A any](acquire func(context.Context) (A, error), release func(A, ExitCase) func(context.Context) error) Pull[O, A] {
	return acquireGeneric[O, A](acquire, release, true)
}

func acquireGeneric[O, A any](acquire func(context.Context) (A, error), release func(A, ExitCase) func(context.Context) error, cancelable bool) Pull[O, A] {
	erasedAcquire := func(ctx context.Context) (Erased, error) { return acquire(ctx) }
	erasedRelease := func(v Erased, ec ExitCase) EffectThunk {
		return func(ctx context.Context) (Erased, error) {
			return nil, release(v.(A), ec)(ctx)
		}
	}
	return wrap[O, A](&acquireAction{acquire: erasedAcquire, release: erasedRelease, cancelable: cancelable})
}

// InScope runs inner inside a fresh child scope that is closed (finalizers
// run) as soon as inner terminates, whatever the outcome.
func InScope[O, C any](inner Pull[O, C], useInterrupt bool) Pull[O, C] {
	return wrap[O, C](&inScopeAction{inner: inner.n, useInterrupt: useInterrupt})
}

// BracketCase acquires a resource, runs use with it, and always runs
// release — with the ExitCase use actually produced — before returning
// control to the caller.
func BracketCase[O, A, C any](acquire func(context.Context) (A, error), use func(A) Pull[O, C], release func(A, ExitCase) func(context.Context) error) Pull[O, C] {
	acquired := AcquireCancelable[O, A](acquire, release)
	body := FlatMap(acquired, use)
	return InScope(body, false)
}

// Bracket is BracketCase with a release that ignores the ExitCase.
func Bracket[O, A, C any](acquire func(context.Context) (A, error), use func(A) Pull[O, C], release func(A) func(context.Context) error) Pull[O, C] {
	return BracketCase[O, A, C](acquire, use, func(a A, _ ExitCase) func(context.Context) error { return release(a) })
}

// ExtendScopeTo leases target so its finalizers do not run until the
// returned Lease is cancelled or target's lease-wait deadline passes, letting a resource opened deep in one scope
// outlive the pull that produced it (e.g. a Stream returned to a caller
// who will drive it independently).
func ExtendScopeTo[O any](target *Scope) Pull[O, *Lease] {
	return Eval[O](func(context.Context) (*Lease, error) {
		return target.Lease(), nil
	})
}

// LoopResult is step's outcome: Continue keeps looping with Value as the
// next carry, otherwise Value is Loop's final result.
type LoopResult[C any] struct {
	Value    C
	Continue bool
}

// Loop repeats step, threading its carry, until it reports Continue=false.
func Loop[O, C any](start C, step func(C) Pull[O, LoopResult[C]]) Pull[O, C] {
	return FlatMap(step(start), func(lr LoopResult[C]) Pull[O, C] {
		if lr.Continue {
			return Suspend(func() Pull[O, C] { return Loop(lr.Value, step) })
		}
		return Pure[O](lr.Value)
	})
}
