// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pull

import "context"

// EffectThunk is the type-erased shape of a value in the ambient effect F:
// a context-aware action producing an erased result or an error. The
// interpreter never assumes anything more about F than this shape plus
// what [Scope.InterruptibleEval] needs for cancellation masking — the
// concrete choice of F (e.g. package ioeffect's IO) is an external
// collaborator, per spec §1.
type EffectThunk func(ctx context.Context) (Erased, error)

// liftPure returns an EffectThunk that produces v without running anything.
// Suspend uses this for the noop step it binds ahead of its deferred thunk.
func liftPure(v Erased) EffectThunk {
	return func(context.Context) (Erased, error) { return v, nil }
}
