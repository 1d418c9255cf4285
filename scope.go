// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pull

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// finalizerEntry is one registered cleanup action, run with the scope's
// final ExitCase when the scope closes.
type finalizerEntry struct {
	run func(context.Context, ExitCase) error
}

// interruptState is a scope's non-nil interruption marker: the outcome
// that caused it, and the token of the scope where interruption
// originated (spec §3: "Result.Interrupted's token identifies the scope
// where interruption originated").
type interruptState struct {
	outcome Outcome
	origin  *scopeToken
}

// scopeOptions carries the observability/tuning knobs shared by every
// scope in one tree, set once at the root via functional [ScopeOption]s
// (spec_full §4.4 — never environment variables; only Go values).
type scopeOptions struct {
	logger            zerolog.Logger
	tracer            trace.Tracer
	liveScopes        metric.Int64UpDownCounter
	finalizerErrors   metric.Int64Counter
	leaseWaitDeadline time.Duration
}

func defaultScopeOptions() *scopeOptions {
	return &scopeOptions{
		logger:            zerolog.Nop(),
		leaseWaitDeadline: 5 * time.Second,
	}
}

// Scope is a node in the dynamically nested tree of resource scopes. Each
// scope owns a set of finalizers, may carry an interruption signal, has a
// lineage pointer to its parent, and exposes leasing, opening children,
// closing, and interrupt-propagation queries (spec §3, §4.2).
type Scope struct {
	token  *scopeToken
	parent *Scope
	level  int
	isRoot bool
	opts   *scopeOptions

	mu         sync.Mutex
	children   []*Scope
	finalizers []finalizerEntry
	closed     bool

	leases      atomic.Int64
	interrupt   atomic.Pointer[interruptState]
	watcherStop context.CancelFunc
	span        trace.Span
}

// ScopeOption configures a root scope's ambient observability and tuning.
type ScopeOption func(*scopeOptions)

// WithLogger attaches a zerolog.Logger used for scope lifecycle events.
func WithLogger(l zerolog.Logger) ScopeOption { return func(o *scopeOptions) { o.logger = l } }

// WithTracer attaches an OpenTelemetry tracer used to span InScope/CloseScope.
func WithTracer(t trace.Tracer) ScopeOption { return func(o *scopeOptions) { o.tracer = t } }

// WithMeter attaches an OpenTelemetry meter; failures to build instruments
// are ignored and observability stays a no-op (never fails compilation).
func WithMeter(m metric.Meter) ScopeOption {
	return func(o *scopeOptions) {
		if m == nil {
			return
		}
		if c, err := m.Int64UpDownCounter("pull.scope.live"); err == nil {
			o.liveScopes = c
		}
		if c, err := m.Int64Counter("pull.finalizer.errors"); err == nil {
			o.finalizerErrors = c
		}
	}
}

// WithLeaseWaitDeadline overrides how long Close waits for outstanding
// leases before proceeding with finalization anyway (spec §9 open question,
// resolved in spec_full §4.1).
func WithLeaseWaitDeadline(d time.Duration) ScopeOption {
	return func(o *scopeOptions) { o.leaseWaitDeadline = d }
}

// NewRootScope creates the single root of a scope tree.
func NewRootScope(opts ...ScopeOption) *Scope {
	o := defaultScopeOptions()
	for _, apply := range opts {
		apply(o)
	}
	s := &Scope{token: newScopeToken(), isRoot: true, opts: o}
	s.startSpan()
	s.logLifecycle("opened")
	s.bumpLive(1)
	return s
}

// Token returns the scope's identity token, comparable only by identity.
func (s *Scope) Token() *scopeToken { return s.token }

// DebugID returns the human-readable UUID assigned to this scope for log
// and trace correlation (spec_full §4.3).
func (s *Scope) DebugID() string { return s.token.DebugID() }

// Level returns the scope's depth from the root.
func (s *Scope) Level() int { return s.level }

// IsRoot reports whether this scope is the tree's root.
func (s *Scope) IsRoot() bool { return s.isRoot }

// Parent returns the scope's parent, or nil at the root.
func (s *Scope) Parent() *Scope { return s.parent }

func (s *Scope) bumpLive(delta int64) {
	if s.opts.liveScopes != nil {
		s.opts.liveScopes.Add(context.Background(), delta)
	}
}

func (s *Scope) logLifecycle(event string) {
	s.opts.logger.Debug().
		Uint64("scope_id", s.token.ID()).
		Str("scope_token", s.token.DebugID()).
		Int("level", s.level).
		Str("event", event).
		Msg("pull: scope")
}

func (s *Scope) spanAttributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64("scope.token", int64(s.token.ID())),
		attribute.String("scope.debug_id", s.token.DebugID()),
		attribute.Int("scope.level", s.level),
	}
}

// startSpan opens the "pull.scope" span covering this scope's lifetime, if
// a tracer is configured (spec_full §4.6). The span is ended in Close.
func (s *Scope) startSpan() {
	if s.opts.tracer == nil {
		return
	}
	_, s.span = s.opts.tracer.Start(context.Background(), "pull.scope", trace.WithAttributes(s.spanAttributes()...))
}

// Open creates a new scope under s. useInterruption is accepted but not
// enforced: every scope, whatever the flag, can host an interruption signal
// via InterruptWhen. Fails if s is already closed (spec §4.2: "Fails if the
// parent is already closed").
func (s *Scope) Open(useInterruption bool) (*Scope, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, wrapf("pull: cannot open child of closed scope %d", s.token.ID())
	}
	child := &Scope{
		token:  newScopeToken(),
		parent: s,
		level:  s.level + 1,
		opts:   s.opts,
	}
	s.children = append(s.children, child)
	s.mu.Unlock()
	_ = useInterruption // interruption hosting is unconditional; flag kept for API fidelity
	child.startSpan()
	child.logLifecycle("opened")
	child.bumpLive(1)
	return child, nil
}

// Close closes the scope and every transitively open descendant, running
// their finalizers in LIFO order of acquisition, children before parent
// (spec §4.2, §5 ordering).
func (s *Scope) Close(ctx context.Context, ec ExitCase) error {
	if s.isRoot {
		panic("pull: cannot close the root scope via CloseScope")
	}
	s.waitForLeases(ctx)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	children := append([]*Scope(nil), s.children...)
	finalizers := append([]finalizerEntry(nil), s.finalizers...)
	s.mu.Unlock()

	var childErrs []error
	for _, c := range children {
		if err := c.Close(ctx, ec); err != nil {
			childErrs = append(childErrs, err)
		}
	}

	var finalizerErrs []error
	for i := len(finalizers) - 1; i >= 0; i-- {
		if err := finalizers[i].run(ctx, ec); err != nil {
			finalizerErrs = append(finalizerErrs, err)
			if s.opts.finalizerErrors != nil {
				s.opts.finalizerErrors.Add(ctx, 1)
			}
		}
	}

	if s.watcherStop != nil {
		s.watcherStop()
	}
	if parent := s.parent; parent != nil {
		parent.mu.Lock()
		for i, c := range parent.children {
			if c == s {
				parent.children = append(parent.children[:i], parent.children[i+1:]...)
				break
			}
		}
		parent.mu.Unlock()
	}

	s.logLifecycle("closed")
	s.bumpLive(-1)
	if s.span != nil {
		s.span.End()
	}

	return composite(append(childErrs, finalizerErrs...)...)
}

// waitForLeases blocks (with exponential backoff) until no lease is
// outstanding on s or its ancestors, or until the configured deadline
// elapses — spec §9's pragmatic choice: "leases block close only up to an
// implementation-defined deadline, after which finalizers proceed and
// leases observe cancelled on their next cancel."
func (s *Scope) waitForLeases(ctx context.Context) {
	deadline := s.opts.leaseWaitDeadline
	if deadline <= 0 {
		return
	}
	waitCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()
	_, _ = backoff.Retry(waitCtx, func() (struct{}, error) {
		if s.outstandingLeases() == 0 {
			return struct{}{}, nil
		}
		return struct{}{}, wrapf("pull: leases outstanding on scope %d", s.token.ID())
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()))
}

func (s *Scope) outstandingLeases() int64 {
	total := s.leases.Load()
	for anc := s.parent; anc != nil; anc = anc.parent {
		total += anc.leases.Load()
	}
	return total
}

// Lease returns a token that defers this scope's (and its ancestors')
// finalization until cancelled or until the lease-wait deadline passes
// (spec §4.2, used by extendScopeTo).
func (s *Scope) Lease() *Lease { return newLease(s) }

func (s *Scope) releaseLease() error {
	s.leases.Add(-1)
	return nil
}

// registerFinalizer appends f to the scope's finalizer list, guaranteeing
// it runs exactly once at close, in reverse acquisition order.
func (s *Scope) registerFinalizer(run func(context.Context, ExitCase) error) {
	s.mu.Lock()
	s.finalizers = append(s.finalizers, finalizerEntry{run: run})
	s.mu.Unlock()
}

// AcquireResource runs acquire under the effect's cancellation mask
// (respecting cancelable), registers release as a finalizer iff
// acquisition succeeded, and returns Succeeded(resource), Canceled, or
// Errored (spec §4.2).
func (s *Scope) AcquireResource(ctx context.Context, acquire EffectThunk, release func(Erased, ExitCase) EffectThunk, cancelable bool) Outcome {
	runCtx := ctx
	if !cancelable {
		runCtx = context.WithoutCancel(ctx)
	}
	v, err := acquire(runCtx)
	if err != nil {
		if cancelable && runCtx.Err() != nil && isInterruptedNow(s) {
			return outcomeCanceled()
		}
		return outcomeErrored(err)
	}
	s.registerFinalizer(func(ctx context.Context, ec ExitCase) error {
		_, err := release(v, ec)(context.WithoutCancel(ctx))
		return err
	})
	return outcomeSucceeded(v)
}

func isInterruptedNow(s *Scope) bool {
	_, ok := s.IsInterrupted()
	return ok
}

// InterruptibleEval runs fa, mapping context cancellation racing with an
// interruption signal into the appropriate Outcome (spec §4.3 Eval step).
func (s *Scope) InterruptibleEval(ctx context.Context, fa EffectThunk) Outcome {
	v, err := fa(ctx)
	if err != nil {
		if ctx.Err() != nil {
			if _, ok := s.IsInterrupted(); ok {
				return outcomeCanceled()
			}
		}
		return outcomeErrored(err)
	}
	return outcomeSucceeded(v)
}

// interruptFiber is the cancellable handle InterruptWhen returns.
type interruptFiber struct{ cancel context.CancelFunc }

// Cancel stops the watcher goroutine without altering the scope's
// interruption state.
func (f *interruptFiber) Cancel() { f.cancel() }

// InterruptWhen spawns a watcher that marks s Interrupted when haltSignal
// resolves: success marks Interrupted with s's own token; failure marks
// Errored (spec §4.2). The watcher is cancelled automatically at Close.
func (s *Scope) InterruptWhen(ctx context.Context, haltSignal EffectThunk) *interruptFiber {
	watchCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.watcherStop = cancel
	s.mu.Unlock()

	g, gctx := errgroup.WithContext(watchCtx)
	g.Go(func() error {
		_, err := haltSignal(gctx)
		if gctx.Err() != nil {
			return nil // scope closed first; nothing to mark
		}
		if err != nil {
			s.markInterrupted(interruptState{outcome: outcomeErrored(err), origin: s.token})
		} else {
			s.markInterrupted(interruptState{outcome: outcomeSucceeded(s.token), origin: s.token})
		}
		return nil
	})
	return &interruptFiber{cancel: cancel}
}

func (s *Scope) markInterrupted(st interruptState) {
	s.interrupt.CompareAndSwap(nil, &st)
	s.logLifecycle("interrupted")
}

// IsInterrupted is the non-blocking guard the interpreter consults before
// every action that might progress user logic (spec §4.3). A scope's own
// interrupt pointer is only ever set at the origin (markInterrupted always
// targets the scope InterruptWhen was called on); descendants opened
// inside that scope carry a fresh nil pointer of their own; §3/§5 requires
// descendants to observe the interruption too, so the guard walks the
// lineage up to the root looking for the nearest ancestor (or self) that
// was marked.
func (s *Scope) IsInterrupted() (*interruptState, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if st := cur.interrupt.Load(); st != nil {
			return st, true
		}
	}
	return nil, false
}

// FindInLineage walks ancestors and self for the scope with tok.
func (s *Scope) FindInLineage(tok *scopeToken) (*Scope, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.token.equal(tok) {
			return cur, true
		}
	}
	return nil, false
}

// DescendsFrom reports whether tok identifies s or a strict ancestor of s.
func (s *Scope) DescendsFrom(tok *scopeToken) bool {
	_, ok := s.FindInLineage(tok)
	return ok
}

// OpenAncestor returns the nearest still-open ancestor (or self), used as
// the scope to resume in after a close (spec §4.3 CloseScope handling).
func (s *Scope) OpenAncestor() *Scope {
	for cur := s; cur != nil; cur = cur.parent {
		cur.mu.Lock()
		closed := cur.closed
		cur.mu.Unlock()
		if !closed {
			return cur
		}
	}
	return s
}
