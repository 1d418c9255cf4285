// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pull

// Either holds exactly one of a left or right value, used by
// [AttemptEval] to surface an error without collapsing the pull, and by
// [FromEither] to lift such a value back into the algebra.
type Either[L, R any] struct {
	left    L
	right   R
	isRight bool
}

// Left builds a left-valued Either.
func Left[L, R any](l L) Either[L, R] { return Either[L, R]{left: l} }

// Right builds a right-valued Either.
func Right[L, R any](r R) Either[L, R] { return Either[L, R]{right: r, isRight: true} }

// IsRight reports whether the Either holds a right value.
func (e Either[L, R]) IsRight() bool { return e.isRight }

// Left returns the left value and whether it was present.
func (e Either[L, R]) Left() (L, bool) { return e.left, !e.isRight }

// Right returns the right value and whether it was present.
func (e Either[L, R]) Right() (R, bool) { return e.right, e.isRight }
