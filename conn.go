package pgwire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	pgerr "github.com/cordeliadb/pgwire/errors"
	"github.com/cordeliadb/pgwire/pkg/buffer"
	"github.com/jackc/pgx/v5/pgtype"
)

// beginQuery, commitQuery, rollbackQuery are the three transaction-control
// statements the engine issues on the caller's behalf. Conn does not cache
// encoded frames for them: each use goes through sendQuery, which encodes
// a fresh Query message every time.
const (
	beginQuery    = "BEGIN"
	commitQuery   = "COMMIT"
	rollbackQuery = "ROLLBACK"
)

// Conn is a single asynchronous connection to a PostgreSQL backend speaking
// protocol v3.0. It owns the framing buffer, the session and transaction
// state machines, the command queue, and the currently accumulating result;
// all of that state is mutated exclusively from the connection's own loop
// goroutine. Callers interact with it only through Execute/Prepare/
// Transaction/Close, each of which hands work to the loop and blocks on the
// returned waiter.
type Conn struct {
	netConn net.Conn
	logger  *slog.Logger
	framing *buffer.FramingBuffer

	state SessionState
	tx    txMachine

	inFlight *waiter
	result   *ResultGroup

	lastError *ErrorResponse

	serverParams map[string]string
	backendPID   uint32
	backendKey   uint32

	user     string
	password string
	database string
	typeMap  *pgtype.Map

	pendingTxBegin   []pendingBegin
	statements       map[string]*Statement
	statementCounter uint64
	portalCounter    uint64

	ops    chan opRequest
	inbox  chan []buffer.Frame
	closed chan struct{}

	connectResult chan error
}

type opRequest struct {
	fn   func() *waiter
	resp chan *waiter
}

// Dial opens a transport connection to address and runs the startup
// handshake. It returns once the backend sends the first ReadyForQuery, or
// fails the returned error if the handshake is rejected or ctx expires
// first.
func Dial(ctx context.Context, address string, opts ...DialOption) (*Conn, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	netConn, err := dialTransport(ctx, address)
	if err != nil {
		return nil, err
	}

	c := &Conn{
		netConn:       netConn,
		logger:        cfg.logger,
		framing:       buffer.NewFramingBuffer(),
		state:         StateStartup,
		serverParams:  map[string]string{},
		user:          cfg.user,
		password:      cfg.password,
		database:      cfg.database,
		typeMap:       cfg.typeMap,
		statements:    map[string]*Statement{},
		ops:           make(chan opRequest),
		inbox:         make(chan []buffer.Frame, 16),
		closed:        make(chan struct{}),
		connectResult: make(chan error, 1),
	}

	go c.readPump()
	go c.loop()

	params := map[string]string{}
	if c.database != "" {
		params["database"] = c.database
	}

	startup, err := EncodeStartupMessage(c.user, params)
	if err != nil {
		return nil, err
	}

	if err := c.writeRaw(startup); err != nil {
		return nil, err
	}

	select {
	case err := <-c.connectResult:
		if err != nil {
			return nil, err
		}
		return c, nil
	case <-ctx.Done():
		c.netConn.Close()
		return nil, ctx.Err()
	}
}

// dialTransport is split out from Dial so tests can swap in a fake
// transport; named with the package's net.Dial in mind, not an existing
// net.Dialer method.
var dialTransport = func(ctx context.Context, address string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "tcp", address)
}

func (c *Conn) writeRaw(payload []byte) error {
	_, err := c.netConn.Write(payload)
	return err
}

// readPump reads raw bytes off the socket and feeds them through the
// framing buffer, handing complete frames to the loop goroutine. It is the
// only goroutine that calls netConn.Read.
func (c *Conn) readPump() {
	buf := make([]byte, 4096)
	for {
		n, err := c.netConn.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			frames := c.framing.Receive(chunk)
			if len(frames) > 0 {
				select {
				case c.inbox <- frames:
				case <-c.closed:
					return
				}
			}

			if err := c.framing.Err(); err != nil {
				c.reportTransportError(err)
				return
			}
		}

		if err != nil {
			c.reportTransportError(err)
			return
		}
	}
}

func (c *Conn) reportTransportError(err error) {
	select {
	case c.inbox <- nil:
	case <-c.closed:
	}
	_ = err
}

// loop is the connection's single thread of progress: it owns every mutable
// field on Conn and is the only goroutine that reads or writes them.
func (c *Conn) loop() {
	for {
		select {
		case req := <-c.ops:
			req.resp <- req.fn()
		case frames, ok := <-c.inbox:
			if !ok {
				return
			}

			for _, frame := range frames {
				c.handleFrame(frame)
			}
		case <-c.closed:
			return
		}
	}
}

// enqueue hands fn to the loop goroutine and returns the waiter fn produces,
// making it safe to call from any goroutine.
func (c *Conn) enqueue(fn func() *waiter) *waiter {
	resp := make(chan *waiter, 1)

	select {
	case c.ops <- opRequest{fn: fn, resp: resp}:
	case <-c.closed:
		w := newWaiter()
		w.fail(errors.New("connection closed"))
		return w
	}

	return <-resp
}

func (c *Conn) handleFrame(frame buffer.Frame) {
	msg, err := DecodeMessage(frame)
	if err != nil {
		c.logger.Error("failed to decode backend message", slog.String("err", err.Error()))
		return
	}

	for _, event := range msg.Events() {
		c.dispatchEvent(event, msg)
	}
}

// dispatchEvent drives one step of the session state machine: it looks up
// the transition for (state, event), applies the message-specific
// accumulation, commits the new state, then runs that state's entry side
// effects.
func (c *Conn) dispatchEvent(event Event, msg Message) {
	next, ok := transition(c.state, event)
	if !ok {
		return
	}

	c.accumulate(event, msg)
	prev := c.state
	c.state = next
	c.onEnter(next, prev)
}

// accumulate applies a decoded message's payload to the in-flight Result,
// independent of the state transition it also causes.
func (c *Conn) accumulate(event Event, msg Message) {
	switch m := msg.(type) {
	case *NoticeResponse:
		if c.result != nil {
			c.result.Current().AddNotice(*m)
		}
	case *ErrorResponse:
		c.lastError = m
	case *RowDescription:
		if c.result != nil {
			c.result.Current().SetColumns(m.Columns)
		}
	case *ParameterDescription:
		if c.result != nil {
			c.result.Current().SetParameterOIDs(m.OIDs)
		}
	case *DataRow:
		if c.result != nil {
			c.result.Current().AppendRow(m.Values)
		}
	case *CommandComplete:
		if c.result != nil {
			c.result.Current().Finish(m.Tag)
		}
		if c.tx.state != TxStartPending || m.Tag == beginQuery {
			c.advanceTxOnCommandComplete()
		}
	case *EmptyQueryResponse:
		if c.result != nil {
			c.result.Current().Finish("")
		}
	case *BackendKeyData:
		c.backendPID = m.PID
		c.backendKey = m.Secret
	case *ParameterStatus:
		c.serverParams[m.Name] = m.Value
	}

	switch event {
	case EventAuthenticationCleartextPassword:
		c.sendPasswordResponse(c.password)
	case EventAuthenticationMD5Password:
		auth := msg.(*AuthenticationRequest)
		c.sendPasswordResponse(HashMD5Password(c.user, c.password, auth.Salt))
	}
}

func (c *Conn) sendPasswordResponse(password string) {
	payload, err := EncodePasswordMessage(password)
	if err != nil {
		return
	}

	_ = c.writeRaw(payload)
}

// onEnter runs the side effects associated with entering next from prev.
// Auth-challenge responses are handled in accumulate, since they react to
// the message itself rather than to the resulting state.
func (c *Conn) onEnter(next, prev SessionState) {
	switch next {
	case StateUnsupportedAuthMethod:
		c.failConnect(errors.New("unsupported authentication method requested by backend"))
	case StateConnectionFailed:
		c.failConnect(c.connectionError())
	case StateReady:
		if prev == StateReceiveServerData {
			c.connectResult <- nil
			return
		}

		c.enterReady()
	case StateQueryFailed, StateParseFailed, StateBindFailed, StateExecuteFailed,
		StateClosePortalFailed, StateCloseStatementFailed:
		c.failCurrentOperation(next)
	}
}

func (c *Conn) connectionError() error {
	if c.lastError != nil {
		return c.lastError.AsError()
	}

	return errors.New("connection failed during startup")
}

func (c *Conn) failConnect(err error) {
	select {
	case c.connectResult <- err:
	default:
	}
}

// enterReady applies the entering-ready side effects: capture the
// in-flight waiter and result, clear in-progress state, drain one queued
// operation, then succeed the captured waiter so the newly dispatched
// command has already begun before its predecessor's continuation runs.
func (c *Conn) enterReady() {
	waiter := c.inFlight
	result := c.result
	c.inFlight = nil
	c.result = nil

	c.drainQueue()

	if waiter != nil {
		waiter.succeed(result)
	}
}

// failCurrentOperation fails the in-flight waiter with the last observed
// ErrorResponse, carrying any partial result accumulated so far, then
// issues the Sync recovery uniformly for every extended-query failure state.
// Parse/Bind/Close failures do not return to ready on their own
// ready_for_query (only query_failed and execute_failed do, per
// session.go's transition table), so those four states are additionally
// driven into syncing via error_reset once Sync has been written; from
// there the backend's ReadyForQuery completes the recovery normally.
func (c *Conn) failCurrentOperation(state SessionState) {
	waiter := c.inFlight
	result := c.result
	c.inFlight = nil

	var err error
	if c.lastError != nil {
		err = c.lastError.AsError()
		c.logger.Warn("operation failed", slog.Any("error", pgerr.Flatten(err)), slog.String("state", string(state)))
	} else {
		err = fmt.Errorf("operation failed in state %s", state)
	}

	if c.tx.state == TxStartPending {
		c.abortTransactionStart(err)
	}

	if waiter != nil {
		waiter.failWithPartial(result, err)
	}

	if state != StateQueryFailed {
		_ = c.writeRaw(mustEncode(EncodeSync()))
	}

	switch state {
	case StateParseFailed, StateBindFailed, StateClosePortalFailed, StateCloseStatementFailed:
		c.dispatchEvent(EventErrorReset, nil)
	}
}

func mustEncode(payload []byte, err error) []byte {
	if err != nil {
		return nil
	}

	return payload
}

// sendQuery dispatches a Simple Query and fires query_sent.
func (c *Conn) sendQuery(sql string) error {
	payload, err := EncodeQuery(sql)
	if err != nil {
		return err
	}

	if err := c.writeRaw(payload); err != nil {
		return err
	}

	c.dispatchEvent(EventQuerySent, nil)
	return nil
}

// Execute runs sql as a Simple Query. sql may contain multiple
// semicolon-separated statements; the returned ResultGroup has one member
// per statement.
func (c *Conn) Execute(ctx context.Context, sql string) (*ResultGroup, error) {
	w := c.enqueue(func() *waiter {
		return c.submit(nil, func() error { return c.sendQuery(sql) })
	})

	return w.Wait(ctx)
}

// ExecuteTx is like Execute but scopes the submission to an open
// transaction's handle, so it runs before that transaction's COMMIT/ROLLBACK
// rather than being deferred until the transaction ends.
func (c *Conn) ExecuteTx(ctx context.Context, tx *TxHandle, sql string) (*ResultGroup, error) {
	w := c.enqueue(func() *waiter {
		return c.submit(tx, func() error { return c.sendQuery(sql) })
	})

	return w.Wait(ctx)
}

// Transaction runs fn inside a BEGIN/COMMIT-or-ROLLBACK bracket. fn receives
// the transaction's handle once BEGIN completes and must use it (via
// ExecuteTx or a Statement bound with that handle) for every statement that
// should run inside the transaction; on fn returning an error, ROLLBACK is
// sent instead of COMMIT. fn runs on the calling goroutine, never on the
// connection's loop goroutine, so it remains free to call Execute/ExecuteTx/
// Prepare without deadlocking against the enqueue it is itself blocking.
func (c *Conn) Transaction(ctx context.Context, fn func(tx *TxHandle) error) error {
	var handle *TxHandle
	started := c.enqueue(func() *waiter {
		handle = c.beginTransaction()
		w := newWaiter()
		c.onTxBegin(handle, func(err error) {
			if err != nil {
				w.fail(err)
				return
			}
			w.succeed(nil)
		})
		return w
	})

	if _, err := started.Wait(ctx); err != nil {
		return err
	}

	if fnErr := fn(handle); fnErr != nil {
		w := c.enqueue(func() *waiter {
			outer := newWaiter()
			c.rollback(handle, outer, fnErr)
			return outer
		})
		_, err := w.Wait(ctx)
		return err
	}

	w := c.enqueue(func() *waiter {
		outer := newWaiter()
		c.commit(handle, outer, nil)
		return outer
	})
	_, err := w.Wait(ctx)
	return err
}

// BackendKeyData returns the process ID and secret key needed to build a
// CancelRequest for this connection, as reported during the handshake.
func (c *Conn) BackendKeyData() (pid, secret uint32) {
	return c.backendPID, c.backendKey
}

// TypeMap returns the pgtype.Map supplied via WithTypeMap, or nil if none
// was configured. The engine itself never uses it; it is held here purely
// as a convenience so callers translating Result rows into native values
// don't need to thread their own map alongside the Conn.
func (c *Conn) TypeMap() *pgtype.Map {
	return c.typeMap
}

// ServerParameter returns a runtime parameter reported via ParameterStatus
// (e.g. "server_version", "TimeZone"), and whether it has been set.
func (c *Conn) ServerParameter(name string) (string, bool) {
	v, ok := c.serverParams[name]
	return v, ok
}

// Close sends Terminate and closes the transport.
func (c *Conn) Close() error {
	select {
	case <-c.closed:
		return nil
	default:
	}

	_ = c.writeRaw(mustEncode(EncodeTerminate()))
	close(c.closed)
	return c.netConn.Close()
}

// Cancel sends a CancelRequest for this connection's backend process on a
// fresh connection to address, per protocol v3.0's out-of-band cancel
// design: there is no in-band way to interrupt an in-flight command.
func Cancel(ctx context.Context, address string, pid, secret uint32) error {
	payload, err := EncodeCancelRequest(pid, secret)
	if err != nil {
		return err
	}

	conn, err := dialTransport(ctx, address)
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = conn.Write(payload)
	return err
}
