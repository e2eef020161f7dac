package pgwire

import (
	stderrors "errors"
	"strconv"

	"github.com/cordeliadb/pgwire/codes"
	pgerr "github.com/cordeliadb/pgwire/errors"
	"github.com/cordeliadb/pgwire/pkg/buffer"
)

// Field tags carried inside ErrorResponse/NoticeResponse records.
// https://www.postgresql.org/docs/current/protocol-error-fields.html
const (
	FieldSeverity         byte = 'S'
	FieldCode             byte = 'C'
	FieldMessage          byte = 'M'
	FieldDetail           byte = 'D'
	FieldHint             byte = 'H'
	FieldPosition         byte = 'P'
	FieldInternalPosition byte = 'p'
	FieldInternalQuery    byte = 'q'
	FieldWhere            byte = 'W'
	FieldFile             byte = 'F'
	FieldLine             byte = 'L'
	FieldRoutine          byte = 'R'
)

// fields is the common shape of ErrorResponse and NoticeResponse: a
// terminated series of tag/value records. Unknown tags are preserved
// verbatim, indexed by their raw byte.
type fields map[byte]string

func (f fields) Severity() string { return f[FieldSeverity] }
func (f fields) Code() string     { return f[FieldCode] }
func (f fields) Message() string  { return f[FieldMessage] }
func (f fields) Detail() string   { return f[FieldDetail] }
func (f fields) Hint() string     { return f[FieldHint] }

// Position returns the 1-based byte offset the P field names, or (0, false)
// if absent or unparsable.
func (f fields) Position() (int32, bool) {
	raw, ok := f[FieldPosition]
	if !ok {
		return 0, false
	}

	n, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, false
	}

	return int32(n), true
}

// decodeFields scans field records until the terminating NUL byte, per the
// protocol: "a series of tag/cstring records, terminated by a zero byte".
// Scanning stops on that sentinel byte rather than relying on a read error
// once the payload is exhausted, so any bytes after the sentinel are ignored.
// A payload that ends before its sentinel is rejected: the read error is
// returned and none of the records already read are kept.
func decodeFields(payload []byte) (fields, error) {
	reader := buffer.NewReader(payload)
	result := fields{}

	for {
		tag, err := reader.GetByte()
		if err != nil {
			return nil, err
		}

		if tag == 0 {
			return result, nil
		}

		value, err := reader.GetString()
		if err != nil {
			return nil, err
		}

		result[tag] = value
	}
}

// ErrorResponse reports that the backend could not complete the
// in-progress command.
type ErrorResponse struct {
	fields
}

func (m *ErrorResponse) Events() []Event { return []Event{EventErrorResponse} }

func decodeErrorResponse(payload []byte) (Message, error) {
	f, err := decodeFields(payload)
	if err != nil {
		return nil, err
	}

	return &ErrorResponse{fields: f}, nil
}

// AsError turns a backend ErrorResponse into the decorated error a waiter is
// failed with: code, severity, detail, hint, and position (when present) all
// ride along the error chain, recoverable with errors.GetCode and friends.
func (m *ErrorResponse) AsError() error {
	err := stderrors.New(m.Message())
	err = pgerr.WithCode(err, codes.Code(m.Code()))
	err = pgerr.WithSeverity(err, pgerr.Severity(m.Severity()))

	if detail := m.Detail(); detail != "" {
		err = pgerr.WithDetail(err, detail)
	}

	if hint := m.Hint(); hint != "" {
		err = pgerr.WithHint(err, hint)
	}

	if position, ok := m.Position(); ok {
		err = pgerr.WithPosition(err, position)
	}

	return err
}

// NoticeResponse carries an advisory message that never fails the
// in-progress command (e.g. "NOTICE: implicit sequence created").
type NoticeResponse struct {
	fields
}

func (m *NoticeResponse) Events() []Event { return []Event{EventNoticeResponse} }

func decodeNoticeResponse(payload []byte) (Message, error) {
	f, err := decodeFields(payload)
	if err != nil {
		return nil, err
	}

	return &NoticeResponse{fields: f}, nil
}
