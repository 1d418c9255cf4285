// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package ioeffect supplies a concrete, general-purpose effect type usable
// as the ambient F collaborator pull.EffectThunk erases: sequential
// composition, cancellation masking and fiber spawn/join, generalized from
// the corpus's single-purpose algebraic-effects continuation (Cont/Handle)
// into a plain IO-with-errors shape.
package ioeffect

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// IO is a context-aware action that produces a value or an error, run at
// most once per invocation — the same shape pull.EffectThunk erases to,
// kept concrete here so callers get real generics instead of `any`.
type IO[A any] func(context.Context) (A, error)

// Pure returns an IO that produces v without doing anything.
func Pure[A any](v A) IO[A] {
	return func(context.Context) (A, error) { return v, nil }
}

// Fail returns an IO that always fails with err.
func Fail[A any](err error) IO[A] {
	return func(context.Context) (A, error) {
		var zero A
		return zero, err
	}
}

// Bind sequences f after io, short-circuiting on error.
func Bind[A, B any](io IO[A], f func(A) IO[B]) IO[B] {
	return func(ctx context.Context) (B, error) {
		a, err := io(ctx)
		if err != nil {
			var zero B
			return zero, err
		}
		return f(a)(ctx)
	}
}

// Map transforms io's result.
func Map[A, B any](io IO[A], f func(A) B) IO[B] {
	return Bind(io, func(a A) IO[B] { return Pure(f(a)) })
}

// Then discards io's result and runs next.
func Then[A, B any](io IO[A], next IO[B]) IO[B] {
	return Bind(io, func(A) IO[B] { return next })
}

// Attempt turns a failing IO into a successful one carrying the error.
func Attempt[A any](io IO[A]) IO[error] {
	return func(ctx context.Context) (error, error) {
		_, err := io(ctx)
		return err, nil
	}
}

// Mask runs io with cancellation from ctx suppressed until it returns,
// backing Acquire's cancelable=false contract and release effects, which
// must run to completion once started.
func Mask[A any](io IO[A]) IO[A] {
	return func(ctx context.Context) (A, error) {
		return io(context.WithoutCancel(ctx))
	}
}

// Fiber is a handle to a spawned IO, joinable for its result or cancellable
// to abandon it early.
type Fiber[A any] struct {
	cancel context.CancelFunc
	done   chan struct{}
	value  A
	err    error
}

// Fork spawns io on its own goroutine via an errgroup, returning a Fiber
// the caller can Join or Cancel.
func Fork[A any](ctx context.Context, io IO[A]) *Fiber[A] {
	runCtx, cancel := context.WithCancel(ctx)
	f := &Fiber[A]{cancel: cancel, done: make(chan struct{})}
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		defer close(f.done)
		f.value, f.err = io(gctx)
		return f.err
	})
	return f
}

// Join blocks until the fiber completes or ctx is done, whichever first.
func (f *Fiber[A]) Join(ctx context.Context) (A, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero A
		return zero, ctx.Err()
	}
}

// Cancel requests the fiber stop; it does not block for completion.
func (f *Fiber[A]) Cancel() { f.cancel() }
