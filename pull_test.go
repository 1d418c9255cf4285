// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pull_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"code.hybscloud.com/pull"
)

func TestOutputToSlice(t *testing.T) {
	root := pull.NewRootScope()
	p := pull.Then(pull.Void(pull.Output1(1)), pull.Then(pull.Void(pull.Output1(2)), pull.Output1(3)))

	got, err := pull.ToSlice(context.Background(), p, root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestRangeToSlice(t *testing.T) {
	root := pull.NewRootScope()
	got, err := pull.ToSlice(context.Background(), pull.Range(0, 5), root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("got %d elements, want 5", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("got[%d] = %d, want %d", i, v, i)
		}
	}
}

func TestRaiseErrorPropagates(t *testing.T) {
	root := pull.NewRootScope()
	boom := errors.New("boom")
	p := pull.Then(pull.Void(pull.Output1(1)), pull.RaiseError[int, pull.Unit](boom))

	got, err := pull.ToSlice(context.Background(), p, root)
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("expected the one chunk emitted before the failure, got %v", got)
	}
}

func TestFlatMapShortCircuitsOnFail(t *testing.T) {
	root := pull.NewRootScope()
	boom := errors.New("boom")
	called := false
	p := pull.FlatMap(pull.RaiseError[int, int](boom), func(int) pull.Pull[int, int] {
		called = true
		return pull.Pure[int](0)
	})

	_, err := pull.Compile(context.Background(), pull.Void(p), root, pull.Unit{}, func(u pull.Unit, _ pull.Chunk[int]) (pull.Unit, error) {
		return u, nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if called {
		t.Fatal("continuation should not run after a Fail")
	}
}

func TestBoundedStackSelfRecursiveOutput(t *testing.T) {
	const n = 200000
	var s func(i int) pull.Pull[int, pull.Unit]
	s = func(i int) pull.Pull[int, pull.Unit] {
		if i >= n {
			return pull.Done[int]()
		}
		return pull.Then(pull.Void(pull.Output1(i)), pull.Suspend(func() pull.Pull[int, pull.Unit] { return s(i + 1) }))
	}

	root := pull.NewRootScope()
	count := 0
	_, err := pull.Compile(context.Background(), s(0), root, pull.Unit{}, func(u pull.Unit, c pull.Chunk[int]) (pull.Unit, error) {
		count += c.Size()
		return u, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != n {
		t.Fatalf("got %d elements, want %d", count, n)
	}
}

func TestFlatMapOutputConcatenatesAndContinues(t *testing.T) {
	root := pull.NewRootScope()
	src := pull.Then(pull.Void(pull.Output1(1)), pull.Output1(2))
	widened := pull.FlatMapOutputT(src, func(v int) pull.Pull[int, pull.Unit] {
		return pull.Void(pull.Output(pull.Chunk[int]{v, v * 10}))
	})
	after := pull.Then(pull.Void(widened), pull.Output1(-1))

	got, err := pull.ToSlice(context.Background(), after, root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int{1, 10, 2, 20, -1}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestBoundedStackSelfRecursiveFlatMapOutput(t *testing.T) {
	const n = 200000
	var s func(i int) pull.Pull[int, pull.Unit]
	s = func(i int) pull.Pull[int, pull.Unit] {
		if i >= n {
			return pull.Done[int]()
		}
		return pull.FlatMapOutputT(pull.Output1(i), func(v int) pull.Pull[int, pull.Unit] {
			return pull.Then(pull.Void(pull.Output1(v)), pull.Suspend(func() pull.Pull[int, pull.Unit] { return s(v + 1) }))
		})
	}

	root := pull.NewRootScope()
	count := 0
	_, err := pull.Compile(context.Background(), s(0), root, pull.Unit{}, func(u pull.Unit, c pull.Chunk[int]) (pull.Unit, error) {
		count += c.Size()
		return u, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != n {
		t.Fatalf("got %d elements, want %d", count, n)
	}
}

// TestInterruptScopeAbsorbsSignalAtItsOwnBoundary guards against a resumed
// InterruptScope leaking its interruption past the point where it was
// closed. The shape mirrors Then(InterruptScope(Output1(A) >> Eval(never)),
// Output1(B)): once the interrupted subtree's own scope has closed and
// resumption has moved to an ancestor that does not descend from the
// origin, the signal is absorbed and B still runs.
func TestInterruptScopeAbsorbsSignalAtItsOwnBoundary(t *testing.T) {
	root := pull.NewRootScope()
	started := make(chan struct{})

	blocked := pull.FlatMap(pull.GetScope[int](), func(scope *pull.Scope) pull.Pull[int, pull.Unit] {
		signal := pull.Eval[int](func(context.Context) (pull.Unit, error) {
			close(started)
			return pull.Unit{}, nil
		})
		wait := pull.Eval[int](func(context.Context) (pull.Unit, error) {
			deadline := time.Now().Add(5 * time.Second)
			for {
				if _, interrupted := scope.IsInterrupted(); interrupted {
					return pull.Unit{}, nil
				}
				if time.Now().After(deadline) {
					return pull.Unit{}, errors.New("timed out waiting for interruption")
				}
				time.Sleep(time.Millisecond)
			}
		})
		// One more action after wait returns: the interpreter's own
		// interruption check (run before every action dispatch) now sees
		// the scope marked and converts this step to Interrupted, without
		// this Output1 ever actually emitting.
		return pull.Then(pull.Void(signal), pull.Then(pull.Void(wait), pull.Output1(999)))
	})

	haltNow := func(context.Context) (bool, error) {
		<-started
		return true, nil
	}
	scoped := pull.InterruptScope(pull.InterruptWhen(pull.Then(pull.Void(pull.Output1(1)), blocked), haltNow))
	p := pull.Then(pull.Void(scoped), pull.Output1(2))

	got, err := pull.ToSlice(context.Background(), p, root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int{1, 2}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

// TestDescendantScopeObservesAncestorInterruption guards against the
// interpreter's interruption guard only ever consulting a scope's own
// (never set) interrupt pointer instead of walking to whichever ancestor
// actually hosts the signal. Mirrors
// InterruptScope(Bracket(acq, _ => Eval(never), rel)): Bracket opens its
// own child scope around its use step, so the blocking Eval runs one level
// below the scope InterruptWhen actually marked.
func TestDescendantScopeObservesAncestorInterruption(t *testing.T) {
	root := pull.NewRootScope()
	started := make(chan struct{})

	prog := pull.BracketCase[int, int, pull.Unit](
		func(context.Context) (int, error) { return 1, nil },
		func(int) pull.Pull[int, pull.Unit] {
			return pull.FlatMap(pull.GetScope[int](), func(scope *pull.Scope) pull.Pull[int, pull.Unit] {
				return pull.Eval[int](func(context.Context) (pull.Unit, error) {
					close(started)
					deadline := time.Now().Add(5 * time.Second)
					for {
						if _, interrupted := scope.IsInterrupted(); interrupted {
							return pull.Unit{}, nil
						}
						if time.Now().After(deadline) {
							return pull.Unit{}, errors.New("descendant scope never observed the ancestor's interruption")
						}
						time.Sleep(time.Millisecond)
					}
				})
			})
		},
		func(int, pull.ExitCase) func(context.Context) error {
			return func(context.Context) error { return nil }
		},
	)

	haltNow := func(context.Context) (bool, error) {
		<-started
		return true, nil
	}
	p := pull.Void(pull.InterruptScope(pull.InterruptWhen(prog, haltNow)))

	if err := pull.Drain(context.Background(), p, root); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// TestFoldErrorIsRecoverableByHandleErrorWith guards against a fold error
// terminating the runLoop directly: spec §4.5 requires it be injected into
// the pull's own View continuation instead, so an enclosing
// HandleErrorWith can observe and recover it.
func TestFoldErrorIsRecoverableByHandleErrorWith(t *testing.T) {
	root := pull.NewRootScope()
	boom := errors.New("boom")
	p := pull.HandleErrorWith(
		pull.Then(pull.Void(pull.Output1(1)), pull.Output1(2)),
		func(error) pull.Pull[int, pull.Unit] { return pull.Output1(999) },
	)

	var got []int
	_, err := pull.Compile(context.Background(), p, root, pull.Unit{}, func(u pull.Unit, c pull.Chunk[int]) (pull.Unit, error) {
		for _, v := range c {
			if v == 2 {
				return u, boom
			}
			got = append(got, v)
		}
		return u, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int{1, 999}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestBracketCaseReleasesOnSuccess(t *testing.T) {
	root := pull.NewRootScope()

	var acquired, released bool
	var releaseExit pull.ExitCase
	p := pull.BracketCase[int, int, int](
		func(context.Context) (int, error) { acquired = true; return 42, nil },
		func(v int) pull.Pull[int, int] { return pull.Pure[int](v * 2) },
		func(v int, ec pull.ExitCase) func(context.Context) error {
			return func(context.Context) error { released = true; releaseExit = ec; return nil }
		},
	)

	_, err := pull.Compile(context.Background(), pull.Void(p), root, pull.Unit{}, func(u pull.Unit, _ pull.Chunk[int]) (pull.Unit, error) {
		return u, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !acquired || !released {
		t.Fatalf("acquired=%v released=%v, want both true", acquired, released)
	}
	if !releaseExit.IsSucceeded() {
		t.Fatalf("expected release to observe Succeeded, got %v", releaseExit)
	}
}

func TestBracketCaseReleasesOnFailure(t *testing.T) {
	root := pull.NewRootScope()
	boom := errors.New("boom")

	var releaseExit pull.ExitCase
	p := pull.BracketCase[int, int, int](
		func(context.Context) (int, error) { return 1, nil },
		func(int) pull.Pull[int, int] { return pull.RaiseError[int, int](boom) },
		func(_ int, ec pull.ExitCase) func(context.Context) error {
			return func(context.Context) error { releaseExit = ec; return nil }
		},
	)

	_, err := pull.Compile(context.Background(), pull.Void(p), root, pull.Unit{}, func(u pull.Unit, _ pull.Chunk[int]) (pull.Unit, error) {
		return u, nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if !releaseExit.IsErrored() {
		t.Fatalf("expected release to observe Errored, got %v", releaseExit)
	}
}

// TestCompileNoScopeDrivesUnderCallerScope guards the streamNoScope entry
// point (spec §6): unlike Compile, it must not introduce its own child
// scope around p — a registered finalizer stays pending until the
// caller's own scope closes.
func TestCompileNoScopeDrivesUnderCallerScope(t *testing.T) {
	root := pull.NewRootScope()
	child, err := root.Open(false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var released bool
	p := pull.Acquire[int, int](
		func(context.Context) (int, error) { return 1, nil },
		func(int, pull.ExitCase) func(context.Context) error {
			return func(context.Context) error { released = true; return nil }
		},
	)

	_, err = pull.CompileNoScope(context.Background(), pull.Void(p), child, pull.Unit{}, func(u pull.Unit, _ pull.Chunk[int]) (pull.Unit, error) {
		return u, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if released {
		t.Fatal("finalizer ran before the caller's own scope closed — CompileNoScope must not introduce its own child scope")
	}
	if err := child.Close(context.Background(), pull.ExitSucceeded); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !released {
		t.Fatal("finalizer should run once the caller's scope closes")
	}
}

func TestUnconsStepsOnce(t *testing.T) {
	root := pull.NewRootScope()
	inner := pull.Then(pull.Void(pull.Output1(1)), pull.Output1(2))

	step := pull.Uncons[int, int](inner)
	surfaced := pull.FlatMap(step, func(opt pull.Option[pull.UnconsStep[int]]) pull.Pull[int, pull.Unit] {
		v, ok := opt.Get()
		if !ok {
			return pull.Done[int]()
		}
		return pull.Output(v.Chunk)
	})

	got, err := pull.ToSlice(context.Background(), surfaced, root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("got %v, want first chunk [1]", got)
	}
}

func TestAttemptCapturesError(t *testing.T) {
	root := pull.NewRootScope()
	boom := errors.New("boom")

	p := pull.Attempt(pull.RaiseError[int, int](boom))
	var captured error
	_, err := pull.Compile(context.Background(), FlatMapAttempt(p, &captured), root, pull.Unit{}, func(u pull.Unit, _ pull.Chunk[int]) (pull.Unit, error) {
		return u, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !errors.Is(captured, boom) {
		t.Fatalf("expected captured boom, got %v", captured)
	}
}

// FlatMapAttempt is a tiny test helper that pulls the error (if any) out of
// an Attempt result into captured, for tests that just want to assert on
// it without threading Either through the whole pull.
func FlatMapAttempt(p pull.Pull[int, pull.Either[error, int]], captured *error) pull.Pull[int, pull.Unit] {
	return pull.Void(pull.Map(p, func(e pull.Either[error, int]) pull.Unit {
		if l, ok := e.Left(); ok {
			*captured = l
		}
		return pull.Unit{}
	}))
}
