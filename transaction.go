package pgwire

// TxState tracks the transactional phase overlaid on top of the session
// state machine: whether a BEGIN/COMMIT/ROLLBACK is in flight and which
// submissions are allowed to run against the connection right now.
type TxState string

const (
	TxNone            TxState = "none"
	TxStartPending    TxState = "start_pending"
	TxActive          TxState = "active"
	TxCommitPending   TxState = "commit_pending"
	TxRollbackPending TxState = "rollback_pending"
)

// TxHandle is the opaque identity of an open transaction; its identity is
// the pointer itself, not any field on it.
type TxHandle struct{}

// txMachine is the transaction overlay: current phase, the active handle,
// and the two queues used to route submissions made while a transaction is
// open. thisTxQ holds operations belonging to the active transaction (or, in
// TxNone, every submission); nextTxQ holds operations that must wait for the
// active transaction to end.
type txMachine struct {
	state   TxState
	active  *TxHandle
	thisTxQ commandQueue
	nextTxQ commandQueue
}

// route selects the queue a submission tagged with tx belongs on: outside a
// transaction everything runs on thisTxQ; inside one, only submissions
// carrying the active handle do.
func (t *txMachine) route(tx *TxHandle) *commandQueue {
	if t.state == TxNone {
		return &t.thisTxQ
	}

	if tx != nil && tx == t.active {
		return &t.thisTxQ
	}

	return &t.nextTxQ
}

// nextQueued returns the next operation to dispatch once the session
// re-enters StateReady: always off thisTxQ, since nextTxQ only starts
// draining once the transaction ends and its contents are promoted.
func (c *Conn) nextQueued() (queuedOp, bool) {
	return c.tx.thisTxQ.pop()
}

// submit dispatches op immediately if the session is ready, otherwise routes
// it to whichever queue its transaction tag (nil for "no transaction")
// belongs on.
func (c *Conn) submit(tx *TxHandle, dispatch dispatchFunc) *waiter {
	w := newWaiter()
	op := queuedOp{dispatch: dispatch, waiter: w}

	if c.state == StateReady && (c.tx.state == TxNone || tx == c.tx.active) {
		c.beginOperation(op)
		return w
	}

	c.tx.route(tx).push(op)
	return w
}

// beginTransaction starts the handshake for a new transaction: it issues
// BEGIN, reroutes the current thisTxQ to nextTxQ so untagged submissions
// wait for the transaction to finish, and installs a fresh empty thisTxQ
// that only the new handle's own submissions will land on.
func (c *Conn) beginTransaction() *TxHandle {
	handle := &TxHandle{}
	c.tx.nextTxQ = c.tx.thisTxQ
	c.tx.thisTxQ = commandQueue{}
	c.tx.active = handle
	c.tx.state = TxStartPending

	c.submit(handle, func() error { return c.sendQuery(beginQuery) })
	return handle
}

func (c *Conn) commit(handle *TxHandle, outer *waiter, result *ResultGroup) {
	c.tx.state = TxCommitPending
	w := c.submit(handle, func() error { return c.sendQuery(commitQuery) })
	w.onComplete(func(*ResultGroup, error) {
		c.endTransaction(handle)
		outer.succeed(result)
	})
}

func (c *Conn) rollback(handle *TxHandle, outer *waiter, cause error) {
	c.tx.state = TxRollbackPending
	w := c.submit(handle, func() error { return c.sendQuery(rollbackQuery) })
	w.onComplete(func(*ResultGroup, error) {
		c.endTransaction(handle)
		outer.fail(cause)
	})
}

// endTransaction clears the transaction overlay and promotes nextTxQ in
// place of the (now-drained) thisTxQ.
func (c *Conn) endTransaction(handle *TxHandle) {
	c.tx.state = TxNone
	c.tx.active = nil
	c.tx.thisTxQ = c.tx.nextTxQ
	c.tx.nextTxQ = commandQueue{}

	if c.state == StateReady {
		c.drainQueue()
	}
}

// abortTransactionStart unwinds a BEGIN that never completed (its dispatch
// failed, or the backend answered with an ErrorResponse instead of
// CommandComplete): it restores thisTxQ from nextTxQ exactly as endTransaction
// does, then fails every caller waiting on this handle's BEGIN instead of
// resolving it successfully.
func (c *Conn) abortTransactionStart(err error) {
	c.tx.state = TxNone
	c.tx.active = nil
	c.tx.thisTxQ = c.tx.nextTxQ
	c.tx.nextTxQ = commandQueue{}

	c.firePendingBegin(err)

	if c.state == StateReady {
		c.drainQueue()
	}
}

// onTxBegin registers fn to be called once BEGIN's CommandComplete is
// observed and the transaction overlay has advanced from start_pending to
// active, or with the error if the BEGIN fails.
func (c *Conn) onTxBegin(handle *TxHandle, fn func(error)) {
	c.pendingTxBegin = append(c.pendingTxBegin, pendingBegin{handle: handle, fn: fn})
}

type pendingBegin struct {
	handle *TxHandle
	fn     func(error)
}

// advanceTxOnCommandComplete observes BEGIN/COMMIT/ROLLBACK completions
// flowing through the ordinary query path and steps the transaction overlay
// accordingly. Called from Conn.accumulate when a CommandComplete is decoded
// (while start_pending, only for a "BEGIN" tag), before the session reaches
// ready and so before the in-flight waiter for the control statement itself
// is resolved.
func (c *Conn) advanceTxOnCommandComplete() {
	switch c.tx.state {
	case TxStartPending:
		c.tx.state = TxActive
		c.firePendingBegin(nil)
	case TxCommitPending, TxRollbackPending:
		// cleared by endTransaction once the commit/rollback waiter resolves.
	}
}

func (c *Conn) firePendingBegin(err error) {
	pending := c.pendingTxBegin
	c.pendingTxBegin = nil

	for _, p := range pending {
		p.fn(err)
	}
}
