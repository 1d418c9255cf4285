// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pull

// translation is a natural transformation mapping the program's effect
// into the host effect, represented — per spec §9 — as "small records of a
// single generic function" composed into a linear list the interpreter
// folds once per translated action. Since EffectThunk already erases its
// carried type, composition is simply function composition.
type translation struct {
	fk func(EffectThunk) EffectThunk
}

// identityTranslation is the translation used when no Translate node has
// been encountered.
var identityTranslation = &translation{fk: func(t EffectThunk) EffectThunk { return t }}

// apply runs fa through every composed layer of translation, innermost first.
func (t *translation) apply(fa EffectThunk) EffectThunk {
	if t == nil {
		return fa
	}
	return t.fk(fa)
}

// compose builds a new translation applying fk first and then the
// receiver's own mapping, matching Translate(inner, fk)'s "compose translation ∘ fk"
// (spec §4.3).
func (t *translation) compose(fk func(EffectThunk) EffectThunk) *translation {
	prev := t
	return &translation{fk: func(fa EffectThunk) EffectThunk {
		return prev.apply(fk(fa))
	}}
}
