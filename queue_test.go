package pgwire

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandQueuePushPopFIFO(t *testing.T) {
	var q commandQueue
	assert.True(t, q.empty())

	op1 := queuedOp{dispatch: func() error { return nil }, waiter: newWaiter()}
	op2 := queuedOp{dispatch: func() error { return nil }, waiter: newWaiter()}

	q.push(op1)
	q.push(op2)
	assert.False(t, q.empty())

	got, ok := q.pop()
	assert.True(t, ok)
	assert.Same(t, op1.waiter, got.waiter)
	assert.False(t, q.empty())

	got, ok = q.pop()
	assert.True(t, ok)
	assert.Same(t, op2.waiter, got.waiter)
	assert.True(t, q.empty())
}

func TestCommandQueuePopEmpty(t *testing.T) {
	var q commandQueue

	_, ok := q.pop()
	assert.False(t, ok)
}

func TestConnBeginOperationDispatchesAndTracksInFlight(t *testing.T) {
	c := &Conn{}

	var dispatched bool
	w := newWaiter()
	c.beginOperation(queuedOp{
		dispatch: func() error { dispatched = true; return nil },
		waiter:   w,
	})

	assert.True(t, dispatched)
	assert.Same(t, w, c.inFlight)
	assert.NotNil(t, c.result)
}

func TestConnBeginOperationFailsWaiterOnDispatchError(t *testing.T) {
	c := &Conn{}

	cause := assert.AnError
	w := newWaiter()
	c.beginOperation(queuedOp{
		dispatch: func() error { return cause },
		waiter:   w,
	})

	assert.Nil(t, c.inFlight)
	assert.Nil(t, c.result)

	_, err := w.Wait(context.Background())
	assert.Equal(t, cause, err)
}

func TestConnDrainQueueDispatchesNextOp(t *testing.T) {
	c := &Conn{}

	var order []int
	c.tx.thisTxQ.push(queuedOp{
		dispatch: func() error { order = append(order, 1); return nil },
		waiter:   newWaiter(),
	})
	c.tx.thisTxQ.push(queuedOp{
		dispatch: func() error { order = append(order, 2); return nil },
		waiter:   newWaiter(),
	})

	c.drainQueue()
	assert.Equal(t, []int{1}, order)
	assert.False(t, c.tx.thisTxQ.empty())

	c.drainQueue()
	assert.Equal(t, []int{1, 2}, order)
	assert.True(t, c.tx.thisTxQ.empty())
}

func TestConnDrainQueueNoOpWhenEmpty(t *testing.T) {
	c := &Conn{}
	c.drainQueue()
	assert.Nil(t, c.inFlight)
}
