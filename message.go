package pgwire

import (
	"fmt"

	"github.com/cordeliadb/pgwire/codes"
	pgerr "github.com/cordeliadb/pgwire/errors"
	"github.com/cordeliadb/pgwire/pkg/buffer"
	"github.com/cordeliadb/pgwire/pkg/types"
)

// Event names the session-state-machine transition a decoded message (or a
// dispatched send) triggers. Names follow the snake_case of the message they
// originate from, per the protocol's own class-per-message dispatch style.
type Event string

const (
	EventAuthenticationOK                Event = "authentication_ok"
	EventAuthenticationCleartextPassword Event = "authentication_cleartext_password"
	EventAuthenticationMD5Password       Event = "authentication_md5_password"
	EventAuthenticationKerberosV5        Event = "authentication_kerberos_v5"
	EventAuthenticationSCM               Event = "authentication_scm"
	EventAuthenticationGSS               Event = "authentication_gss"
	EventAuthenticationGSSContinue       Event = "authentication_gss_continue"
	EventAuthenticationSSPI              Event = "authentication_sspi"
	EventBackendKeyData                  Event = "backend_key_data"
	EventParameterStatus                 Event = "parameter_status"
	EventNoticeResponse                  Event = "notice_response"
	EventReadyForQuery                   Event = "ready_for_query"
	EventParseComplete                   Event = "parse_complete"
	EventBindComplete                    Event = "bind_complete"
	EventCloseComplete                   Event = "close_complete"
	EventParameterDescription            Event = "parameter_description"
	EventRowDescription                  Event = "row_description"
	EventDataRow                         Event = "data_row"
	EventNoData                          Event = "no_data"
	EventPortalSuspended                 Event = "portal_suspended"
	EventEmptyQueryResponse              Event = "empty_query_response"
	EventCommandComplete                 Event = "command_complete"
	EventErrorResponse                   Event = "error_response"

	// Events fired by the command queue as it dispatches outbound messages,
	// not decoded from the wire.
	EventQuerySent             Event = "query_sent"
	EventParseSent             Event = "parse_sent"
	EventBindSent              Event = "bind_sent"
	EventDescribeStatementSent Event = "describe_statement_sent"
	EventDescribePortalSent    Event = "describe_portal_sent"
	EventExecuteSent           Event = "execute_sent"
	EventClosePortalSent       Event = "close_portal_sent"
	EventCloseStatementSent    Event = "close_statement_sent"
	EventErrorReset            Event = "error_reset"
)

// Message is any decoded backend payload. Events reports the session-state
// transitions this message fires; most fire exactly one.
type Message interface {
	Events() []Event
}

// NewErrUnknownMessageType is a protocol violation: the backend sent a type
// byte the codec has no decoder for. A conforming server never does this.
func NewErrUnknownMessageType(t byte) error {
	err := fmt.Errorf("unknown server message type: %q", t)
	return pgerr.WithSeverity(pgerr.WithCode(err, codes.ProtocolViolation), pgerr.LevelFatal)
}

type decodeFunc func(payload []byte) (Message, error)

var decoders = map[types.ServerMessage]decodeFunc{
	types.ServerAuth:                 decodeAuthenticationRequest,
	types.ServerBackendKeyData:       decodeBackendKeyData,
	types.ServerParameterStatus:      decodeParameterStatus,
	types.ServerReady:                decodeReadyForQuery,
	types.ServerErrorResponse:        decodeErrorResponse,
	types.ServerNoticeResponse:       decodeNoticeResponse,
	types.ServerParseComplete:        decodeParseComplete,
	types.ServerBindComplete:         decodeBindComplete,
	types.ServerCloseComplete:        decodeCloseComplete,
	types.ServerParameterDescription: decodeParameterDescription,
	types.ServerRowDescription:       decodeRowDescription,
	types.ServerDataRow:              decodeDataRow,
	types.ServerNoData:               decodeNoData,
	types.ServerPortalSuspended:      decodePortalSuspended,
	types.ServerEmptyQuery:           decodeEmptyQueryResponse,
	types.ServerCommandComplete:      decodeCommandComplete,
	types.ServerCopyInResponse:       decodeCopyResponse,
	types.ServerCopyOutResponse:      decodeCopyResponse,
	types.ServerCopyBothResponse:     decodeCopyResponse,
}

// DecodeMessage decodes a single framed backend message. The frame's type
// byte selects the decoder; payloads are parsed field-by-field per the
// protocol's bit-exact layout.
func DecodeMessage(frame buffer.Frame) (Message, error) {
	fn, ok := decoders[types.ServerMessage(frame.Type)]
	if !ok {
		return nil, NewErrUnknownMessageType(frame.Type)
	}

	return fn(frame.Payload)
}
