package pgwire

// SessionState is the single authoritative state of a connection's protocol
// engine. Exactly one state is active at any moment; it advances only in
// response to a decoded backend message (an Event) or a dispatched send.
type SessionState string

const (
	StateStartup                     SessionState = "startup"
	StateAuthorizing                 SessionState = "authorizing"
	StateReceiveServerData           SessionState = "receive_server_data"
	StateReady                       SessionState = "ready"
	StateQueryInProgress             SessionState = "query_in_progress"
	StateRowsetQueryInProgress       SessionState = "rowset_query_in_progress"
	StateEmptyQueryInProgress        SessionState = "empty_query_in_progress"
	StateParseInProgress             SessionState = "parse_in_progress"
	StateBindInProgress              SessionState = "bind_in_progress"
	StateStatementDescribeInProgress SessionState = "statement_describe_in_progress"
	StatePortalDescribeInProgress    SessionState = "portal_describe_in_progress"
	StateExecuteInProgress           SessionState = "execute_in_progress"
	StateClosePortalInProgress       SessionState = "close_portal_in_progress"
	StateCloseStatementInProgress    SessionState = "close_statement_in_progress"
	StateSyncing                     SessionState = "syncing"
	StateQueryFailed                 SessionState = "query_failed"
	StateParseFailed                 SessionState = "parse_failed"
	StateBindFailed                  SessionState = "bind_failed"
	StateExecuteFailed               SessionState = "execute_failed"
	StateClosePortalFailed           SessionState = "close_portal_failed"
	StateCloseStatementFailed        SessionState = "close_statement_failed"
	StateConnectionFailed            SessionState = "connection_failed"
	StateUnsupportedAuthMethod       SessionState = "unsupported_auth_method"
)

// failStateFor maps an *_in_progress state to the failed state a
// error_response event drives it to.
var failStateFor = map[SessionState]SessionState{
	StateStartup:                  StateConnectionFailed,
	StateAuthorizing:              StateConnectionFailed,
	StateQueryInProgress:          StateQueryFailed,
	StateRowsetQueryInProgress:    StateQueryFailed,
	StateEmptyQueryInProgress:     StateQueryFailed,
	StateParseInProgress:          StateParseFailed,
	StateBindInProgress:           StateBindFailed,
	StateExecuteInProgress:        StateExecuteFailed,
	StateClosePortalInProgress:    StateClosePortalFailed,
	StateCloseStatementInProgress: StateCloseStatementFailed,
}

// sentStateFor maps a *_sent event to the in-progress state it enters;
// every *_sent event is only valid from StateReady.
var sentStateFor = map[Event]SessionState{
	EventQuerySent:             StateQueryInProgress,
	EventParseSent:             StateParseInProgress,
	EventBindSent:              StateBindInProgress,
	EventDescribeStatementSent: StateStatementDescribeInProgress,
	EventDescribePortalSent:    StatePortalDescribeInProgress,
	EventExecuteSent:           StateExecuteInProgress,
	EventClosePortalSent:       StateClosePortalInProgress,
	EventCloseStatementSent:    StateCloseStatementInProgress,
}

func isQueryFamily(s SessionState) bool {
	return s == StateQueryInProgress || s == StateRowsetQueryInProgress
}

func isDescribeFamily(s SessionState) bool {
	return s == StateStatementDescribeInProgress || s == StatePortalDescribeInProgress
}

func isCloseFamily(s SessionState) bool {
	return s == StateClosePortalInProgress || s == StateCloseStatementInProgress
}

func closeFailState(s SessionState) SessionState {
	if s == StateClosePortalInProgress {
		return StateClosePortalFailed
	}

	return StateCloseStatementFailed
}

// transition computes the next state for (state, event), or reports that the
// event has no transition out of state (the event is ignored, not an
// error). This is the pure half of the machine; side effects (fail/succeed
// a waiter, drain the queue, send Sync) are applied by Conn.dispatchEvent.
func transition(state SessionState, event Event) (SessionState, bool) {
	switch event {
	case EventAuthenticationOK:
		if state == StateStartup || state == StateAuthorizing {
			return StateReceiveServerData, true
		}
	case EventAuthenticationCleartextPassword, EventAuthenticationMD5Password:
		if state == StateStartup {
			return StateAuthorizing, true
		}
	case EventAuthenticationKerberosV5, EventAuthenticationSCM, EventAuthenticationGSS,
		EventAuthenticationGSSContinue, EventAuthenticationSSPI:
		if state == StateStartup {
			return StateUnsupportedAuthMethod, true
		}
	case EventBackendKeyData, EventParameterStatus:
		if state == StateReceiveServerData {
			return state, true
		}
	case EventNoticeResponse:
		return state, true
	case EventReadyForQuery:
		switch state {
		case StateReceiveServerData, StateQueryInProgress, StateEmptyQueryInProgress,
			StateQueryFailed, StateSyncing, StateExecuteFailed:
			return StateReady, true
		}
	case EventParseComplete:
		if state == StateParseInProgress {
			return StateReady, true
		}
	case EventBindComplete:
		if state == StateBindInProgress {
			return StateReady, true
		}
	case EventCloseComplete:
		if isCloseFamily(state) {
			return StateReady, true
		}
	case EventParameterDescription:
		if state == StateStatementDescribeInProgress {
			return state, true
		}
	case EventRowDescription:
		if isQueryFamily(state) {
			return StateRowsetQueryInProgress, true
		}
		if isDescribeFamily(state) {
			return StateReady, true
		}
	case EventDataRow:
		if isQueryFamily(state) {
			return StateRowsetQueryInProgress, true
		}
		if state == StateExecuteInProgress {
			return state, true
		}
	case EventNoData:
		if isDescribeFamily(state) {
			return StateReady, true
		}
	case EventPortalSuspended:
		if state == StateExecuteInProgress {
			return state, true
		}
	case EventEmptyQueryResponse:
		if state == StateQueryInProgress {
			return StateEmptyQueryInProgress, true
		}
		if state == StateExecuteInProgress {
			return StateReady, true
		}
	case EventCommandComplete:
		if isQueryFamily(state) {
			return StateQueryInProgress, true
		}
		if state == StateExecuteInProgress {
			return StateReady, true
		}
	case EventErrorResponse:
		if next, ok := failStateFor[state]; ok {
			return next, true
		}
		if isQueryFamily(state) {
			return StateQueryFailed, true
		}
		if isCloseFamily(state) {
			return closeFailState(state), true
		}
	case EventErrorReset:
		if state == StateParseFailed || state == StateBindFailed ||
			state == StateClosePortalFailed || state == StateCloseStatementFailed {
			return StateSyncing, true
		}
	default:
		if next, ok := sentStateFor[event]; ok && state == StateReady {
			return next, true
		}
	}

	return state, false
}
