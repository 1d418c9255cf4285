// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pull

import "sync/atomic"

// Lease is a token returned by [Scope.Lease] that holds back the scope (and
// its ancestors) from running finalizers until [Lease.Cancel] is called or
// the lease-wait deadline (see [WithLeaseWaitDeadline]) passes, whichever
// comes first; past the deadline Close finalizes with the lease still
// outstanding. extendScopeTo uses this to keep resources alive past the
// producing stream. A Lease is affine: only the first Cancel releases the
// hold; further calls are no-ops that return nil.
//
// Modelled on the corpus's Affine one-shot continuation, generalized from
// "resume with a value" to "release one hold on a scope".
type Lease struct {
	used  atomic.Uintptr
	scope *Scope
}

func newLease(s *Scope) *Lease {
	s.leases.Add(1)
	return &Lease{scope: s}
}

// Cancel releases the lease. It always returns nil, also when the scope
// was already closed after its lease-wait deadline: Close never hands its
// finalization over to the lease, so there is no deferred close to report.
func (l *Lease) Cancel() error {
	if l.used.Add(1) != 1 {
		return nil
	}
	return l.scope.releaseLease()
}
