package pgwire

import "context"

// waiter is the completion handle every submitted operation returns: a
// future that resolves exactly once, either with a ResultGroup or an error.
// Resolution always happens on the connection's single loop goroutine;
// Wait is the only method safe to call from another goroutine.
type waiter struct {
	done      chan struct{}
	result    *ResultGroup
	err       error
	resolved  bool
	callbacks []func(*ResultGroup, error)
}

func newWaiter() *waiter {
	return &waiter{done: make(chan struct{})}
}

// succeed resolves the waiter successfully. Scheduled after queue dispatch
// so a newly-drained command begins before this waiter's continuations run.
func (w *waiter) succeed(result *ResultGroup) {
	w.resolve(result, nil)
}

func (w *waiter) fail(err error) {
	w.resolve(nil, err)
}

// failWithPartial resolves the waiter with an error while still attaching
// whatever rows, columns, or notices had already accumulated before the
// failure, so a caller whose query errors out mid-resultset does not lose
// the rows seen before the error.
func (w *waiter) failWithPartial(result *ResultGroup, err error) {
	w.resolve(result, err)
}

func (w *waiter) resolve(result *ResultGroup, err error) {
	if w.resolved {
		return
	}

	w.resolved = true
	w.result = result
	w.err = err
	close(w.done)

	callbacks := w.callbacks
	w.callbacks = nil
	for _, cb := range callbacks {
		cb(result, err)
	}
}

// onComplete registers fn to run inline once the waiter resolves — used
// internally to chain operations (e.g. the transaction coordinator's
// BEGIN-then-block-then-COMMIT sequence) without blocking the loop
// goroutine on a channel receive. fn runs immediately if already resolved.
func (w *waiter) onComplete(fn func(*ResultGroup, error)) {
	if w.resolved {
		fn(w.result, w.err)
		return
	}

	w.callbacks = append(w.callbacks, fn)
}

// Wait blocks the caller until the waiter resolves or ctx is done. This is
// the only method external callers (outside the loop goroutine) should use.
func (w *waiter) Wait(ctx context.Context) (*ResultGroup, error) {
	select {
	case <-w.done:
		return w.result, w.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
