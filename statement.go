package pgwire

import (
	"context"
	"fmt"

	"github.com/cordeliadb/pgwire/pkg/types"
	"github.com/lib/pq/oid"
)

// StatementState is a prepared statement's own sub-state machine, layered on
// top of the session state machine: it tracks how far the Parse -> Describe
// -> (Bind -> Execute -> ClosePortal)* -> CloseStatement sequence has
// progressed for one particular statement.
type StatementState string

const (
	StatementPrepared              StatementState = "prepared"
	StatementDescribeInProgress    StatementState = "describe_statement_in_progress"
	StatementDescribed             StatementState = "statement_described"
	StatementBindInProgress        StatementState = "bind_in_progress"
	StatementBound                 StatementState = "bound"
	StatementExecuteInProgress     StatementState = "execute_in_progress"
	StatementExecuted              StatementState = "executed"
	StatementClosePortalInProgress StatementState = "close_portal_in_progress"
	StatementCloseInProgress       StatementState = "close_in_progress"
	StatementClosed                StatementState = "closed"
)

// Statement is a named prepared statement bound to one connection. It is not
// safe for concurrent use by multiple goroutines beyond what Conn itself
// guarantees: every method hands its work to the connection's loop
// goroutine and blocks the caller until that step completes.
type Statement struct {
	conn *Conn

	name       string
	portalName string
	sql        string

	parameterOIDs []oid.Oid
	columns       []ColumnDescriptor

	state  StatementState
	lastTx *TxHandle
}

// Prepare issues Parse followed by Flush for sql, waits for ParseComplete,
// then immediately describes the statement so its parameter types and
// result columns are known before the first Execute. oidHints supplies
// known parameter type OIDs positionally; pass nil to let the backend infer
// them all.
func (c *Conn) Prepare(ctx context.Context, sql string, oidHints []oid.Oid, tx *TxHandle) (*Statement, error) {
	stmt := &Statement{conn: c, sql: sql, state: StatementPrepared}

	w := c.enqueue(func() *waiter {
		c.statementCounter++
		stmt.name = fmt.Sprintf("stmt_%x", c.statementCounter)
		c.statements[stmt.name] = stmt

		return c.prepareStatement(stmt, oidHints, tx)
	})

	_, err := w.Wait(ctx)
	if err != nil {
		return nil, err
	}

	return stmt, nil
}

// prepareStatement sequences Parse and DescribeStatement as two independent
// round trips rather than one combined send: entering StateReady resolves
// whatever waiter is currently in flight, so Describe must not go out until
// Parse's own ParseComplete has actually been observed. Each step is its own
// c.submit, chained by the outer waiter's completion.
func (c *Conn) prepareStatement(stmt *Statement, oidHints []oid.Oid, tx *TxHandle) *waiter {
	outer := newWaiter()

	parsed := c.submit(tx, func() error {
		return c.sendParse(stmt, oidHints)
	})

	parsed.onComplete(func(_ *ResultGroup, err error) {
		if err != nil {
			outer.fail(err)
			return
		}

		stmt.state = StatementDescribeInProgress
		described := c.submit(tx, func() error {
			return c.sendDescribeStatement(stmt)
		})

		described.onComplete(func(result *ResultGroup, err error) {
			if err != nil {
				outer.fail(err)
				return
			}

			r := result.Current()
			stmt.parameterOIDs = r.ParameterOIDs
			stmt.columns = r.Columns
			stmt.state = StatementDescribed
			outer.succeed(result)
		})
	})

	return outer
}

func (c *Conn) sendParse(stmt *Statement, oidHints []oid.Oid) error {
	parse, err := EncodeParse(stmt.name, stmt.sql, oidHints)
	if err != nil {
		return err
	}

	if err := c.writeRaw(parse); err != nil {
		return err
	}
	c.dispatchEvent(EventParseSent, nil)

	return c.writeRaw(mustEncode(EncodeFlush()))
}

func (c *Conn) sendDescribeStatement(stmt *Statement) error {
	describe, err := EncodeDescribe(types.DescribeStatement, stmt.name)
	if err != nil {
		return err
	}

	if err := c.writeRaw(describe); err != nil {
		return err
	}
	c.dispatchEvent(EventDescribeStatementSent, nil)

	return c.writeRaw(mustEncode(EncodeFlush()))
}

// Columns reports the result columns captured at describe time. It returns
// nil before Prepare's waiter has resolved.
func (s *Statement) Columns() []ColumnDescriptor {
	return s.columns
}

// ParameterOIDs reports the parameter type OIDs captured at describe time.
func (s *Statement) ParameterOIDs() []oid.Oid {
	return s.parameterOIDs
}

// Execute (re-)binds the statement to a fresh portal with values as
// parameters, then runs it. If a prior execution left a portal open that a
// transaction end will not auto-close, that portal is closed first.
// batchSize of zero requests all rows; a positive batchSize causes the
// backend to suspend the portal after that many rows, reported back as a
// partial Result with PortalSuspended rather than CommandComplete.
func (s *Statement) Execute(ctx context.Context, tx *TxHandle, values [][]byte, paramFormats, resultFormats []types.FormatCode, batchSize int32) (*ResultGroup, error) {
	c := s.conn

	w := c.enqueue(func() *waiter {
		return c.executeStatement(s, tx, values, paramFormats, resultFormats, batchSize)
	})

	result, err := w.Wait(ctx)
	if err == nil {
		s.state = StatementExecuted
	}

	return result, err
}

// executeStatement sequences the optional stale-portal close, Bind and
// Execute as independent round trips, for the same reason prepareStatement
// splits Parse from Describe: each *_sent event only advances the session
// state machine out of StateReady, so the next send in the sequence cannot
// go out until the previous one's completion event has actually arrived.
func (c *Conn) executeStatement(s *Statement, tx *TxHandle, values [][]byte, paramFormats, resultFormats []types.FormatCode, batchSize int32) *waiter {
	outer := newWaiter()

	bindAndExecute := func() {
		s.state = StatementBindInProgress
		bound := c.submit(tx, func() error {
			return c.sendBind(s, tx, values, paramFormats, resultFormats)
		})

		bound.onComplete(func(_ *ResultGroup, err error) {
			if err != nil {
				outer.fail(err)
				return
			}

			s.state = StatementExecuteInProgress
			executed := c.submit(tx, func() error {
				return c.sendExecute(s, batchSize)
			})

			executed.onComplete(func(result *ResultGroup, err error) {
				if err != nil {
					outer.fail(err)
					return
				}

				outer.succeed(result)
			})
		})
	}

	if s.portalName != "" && s.lastTx == nil {
		s.state = StatementClosePortalInProgress
		closed := c.submit(tx, func() error {
			return c.sendClosePortal(s)
		})

		closed.onComplete(func(_ *ResultGroup, err error) {
			if err != nil {
				outer.fail(err)
				return
			}

			bindAndExecute()
		})

		return outer
	}

	bindAndExecute()
	return outer
}

func (c *Conn) sendClosePortal(s *Statement) error {
	closePortal, err := EncodeClose(types.ClosePortal, s.portalName)
	if err != nil {
		return err
	}
	if err := c.writeRaw(closePortal); err != nil {
		return err
	}
	c.dispatchEvent(EventClosePortalSent, nil)

	return c.writeRaw(mustEncode(EncodeFlush()))
}

func (c *Conn) sendBind(s *Statement, tx *TxHandle, values [][]byte, paramFormats, resultFormats []types.FormatCode) error {
	c.portalCounter++
	s.portalName = fmt.Sprintf("port_%s_%x", statementSuffix(s.name), c.portalCounter)
	s.lastTx = tx

	bind, err := EncodeBind(s.portalName, s.name, paramFormats, values, resultFormats)
	if err != nil {
		return err
	}
	if err := c.writeRaw(bind); err != nil {
		return err
	}
	c.dispatchEvent(EventBindSent, nil)
	s.state = StatementBound

	return c.writeRaw(mustEncode(EncodeFlush()))
}

func (c *Conn) sendExecute(s *Statement, batchSize int32) error {
	execute, err := EncodeExecute(s.portalName, batchSize)
	if err != nil {
		return err
	}
	if err := c.writeRaw(execute); err != nil {
		return err
	}
	c.dispatchEvent(EventExecuteSent, nil)

	return c.writeRaw(mustEncode(EncodeFlush()))
}

// statementSuffix trims a statement's "stmt_" prefix so the generated portal
// name carries only the distinguishing hex suffix.
func statementSuffix(name string) string {
	const prefix = "stmt_"
	if len(name) > len(prefix) && name[:len(prefix)] == prefix {
		return name[len(prefix):]
	}

	return name
}

// Close issues CloseStatement and Flush for the statement; once the
// completion resolves the statement is no longer usable.
func (s *Statement) Close(ctx context.Context) error {
	c := s.conn

	w := c.enqueue(func() *waiter {
		s.state = StatementCloseInProgress
		return c.submit(s.lastTx, func() error {
			return c.sendCloseStatement(s)
		})
	})

	_, err := w.Wait(ctx)
	return err
}

func (c *Conn) sendCloseStatement(s *Statement) error {
	closeMsg, err := EncodeClose(types.CloseStatement, s.name)
	if err != nil {
		return err
	}
	if err := c.writeRaw(closeMsg); err != nil {
		return err
	}
	c.dispatchEvent(EventCloseStatementSent, nil)

	delete(c.statements, s.name)
	s.state = StatementClosed

	return c.writeRaw(mustEncode(EncodeFlush()))
}
