// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pull

// ExitCase is the cause passed to a finalizer on scope close: the program
// either succeeded, failed with an error, or was canceled (interrupted).
type ExitCase struct {
	kind exitKind
	err  error
}

type exitKind uint8

const (
	exitSucceeded exitKind = iota
	exitErrored
	exitCanceled
)

// ExitSucceeded is the ExitCase for a scope that closed without error or
// interruption.
var ExitSucceeded = ExitCase{kind: exitSucceeded}

// ExitCanceled is the ExitCase for a scope closed as part of interruption
// propagation.
var ExitCanceled = ExitCase{kind: exitCanceled}

// ExitErrored builds the ExitCase for a scope that closed because the
// program it guarded produced err.
func ExitErrored(err error) ExitCase { return ExitCase{kind: exitErrored, err: err} }

// IsSucceeded reports whether the exit case is a plain success.
func (e ExitCase) IsSucceeded() bool { return e.kind == exitSucceeded }

// IsErrored reports whether the exit case carries a program error.
func (e ExitCase) IsErrored() bool { return e.kind == exitErrored }

// IsCanceled reports whether the exit case is a cancellation/interruption.
func (e ExitCase) IsCanceled() bool { return e.kind == exitCanceled }

// Err returns the error carried by an Errored exit case, or nil otherwise.
func (e ExitCase) Err() error { return e.err }

func (e ExitCase) String() string {
	switch e.kind {
	case exitSucceeded:
		return "Succeeded"
	case exitCanceled:
		return "Canceled"
	default:
		if e.err != nil {
			return "Errored(" + e.err.Error() + ")"
		}
		return "Errored"
	}
}

// Outcome is the result of running an interruptible or cancelable
// operation: it succeeded with a value, failed with an error, or was
// canceled.
type Outcome struct {
	kind  exitKind
	value Erased
	err   error
}

func outcomeSucceeded(v Erased) Outcome { return Outcome{kind: exitSucceeded, value: v} }
func outcomeErrored(err error) Outcome  { return Outcome{kind: exitErrored, err: err} }
func outcomeCanceled() Outcome          { return Outcome{kind: exitCanceled} }

// IsSucceeded reports whether the outcome is a plain success.
func (o Outcome) IsSucceeded() bool { return o.kind == exitSucceeded }

// IsErrored reports whether the outcome carries an error.
func (o Outcome) IsErrored() bool { return o.kind == exitErrored }

// IsCanceled reports whether the outcome represents a cancellation.
func (o Outcome) IsCanceled() bool { return o.kind == exitCanceled }
