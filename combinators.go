// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pull

// FlatMap sequences next after p's carry, short-circuiting Fail and
// Interrupted without ever invoking f.
func FlatMap[O, C, D any](p Pull[O, C], f func(C) Pull[O, D]) Pull[O, D] {
	return wrap[O, D](bind(p.n, func(r result) node {
		if r.isSucceeded() {
			return f(r.value.(C)).n
		}
		return r
	}))
}

// Map transforms p's carry.
func Map[O, C, D any](p Pull[O, C], f func(C) D) Pull[O, D] {
	return FlatMap(p, func(c C) Pull[O, D] { return Pure[O](f(c)) })
}

// As replaces p's carry with a constant, once p succeeds.
func As[O, C, D any](p Pull[O, C], d D) Pull[O, D] {
	return Map(p, func(C) D { return d })
}

// Void discards p's carry.
func Void[O, C any](p Pull[O, C]) Pull[O, Unit] { return As[O, C, Unit](p, unit) }

// Attempt turns a Fail outcome into a Left, letting the caller inspect it
// without the whole pull failing. Interrupted still passes through.
func Attempt[O, C any](p Pull[O, C]) Pull[O, Either[error, C]] {
	return wrap[O, Either[error, C]](bind(p.n, func(r result) node {
		switch {
		case r.isSucceeded():
			return succeededResult(Right[error, C](r.value.(C)))
		case r.isFail():
			return succeededResult(Left[error, C](r.err))
		default:
			return r
		}
	}))
}

// HandleErrorWith recovers from a Fail outcome by switching to h(err).
// Interrupted still passes through unhandled.
func HandleErrorWith[O, C any](p Pull[O, C], h func(error) Pull[O, C]) Pull[O, C] {
	return wrap[O, C](bind(p.n, func(r result) node {
		if r.isFail() {
			return h(r.err).n
		}
		return r
	}))
}

// OnComplete runs fin after p, whatever p's outcome, then resurfaces p's
// original result.
func OnComplete[O, C any](p Pull[O, C], fin Pull[O, Unit]) Pull[O, C] {
	return wrap[O, C](bind(p.n, func(r result) node {
		return bind(fin.n, func(result) node { return r })
	}))
}

// Then sequences next after p, short-circuiting Fail and Interrupted —
// the pull algebra's `>>`.
func Then[O, C any](p Pull[O, Unit], next Pull[O, C]) Pull[O, C] {
	return wrap[O, C](bind(p.n, func(r result) node {
		switch {
		case r.isFail(), r.isInterrupted():
			return r
		default:
			return next.n
		}
	}))
}

// MapOutputT elementwise-transforms p's emissions, fusing with any
// MapOutput/Translate already wrapping p (spec §4.4).
func MapOutputT[O, P, C any](p Pull[O, C], f func(O) (P, error)) Pull[P, C] {
	return wrap[P, C](mapOutputNode(p.n, func(v Erased) (Erased, error) { return f(v.(O)) }))
}

// FlatMapOutputT runs f per emitted element of p, concatenating outputs.
func FlatMapOutputT[O, P any](p Pull[O, Unit], f func(O) Pull[P, Unit]) Pull[P, Unit] {
	return wrap[P, Unit](flatMapOutputNode(p.n, func(v Erased) node { return f(v.(O)).n }))
}

// TranslateT reinterprets p's effects through fk.
func TranslateT[O, C any](p Pull[O, C], fk func(EffectThunk) EffectThunk) Pull[O, C] {
	return wrap[O, C](translateNode(p.n, fk))
}
