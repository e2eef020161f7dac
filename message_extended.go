package pgwire

import (
	"errors"
	"fmt"

	"github.com/cordeliadb/pgwire/codes"
	pgerr "github.com/cordeliadb/pgwire/errors"
	"github.com/cordeliadb/pgwire/pkg/buffer"
	"github.com/cordeliadb/pgwire/pkg/types"
	"github.com/lib/pq/oid"
)

// NewErrInvalidFormatCode is a client-misuse error: a Bind format code other
// than 0 (text) or 1 (binary).
func NewErrInvalidFormatCode(code types.FormatCode) error {
	err := fmt.Errorf("invalid format code: %d, must be 0 or 1", code)
	return pgerr.WithSeverity(pgerr.WithCode(err, codes.Syntax), pgerr.LevelError)
}

// NewErrFormatCountMismatch is a client-misuse error: a format count that is
// neither 0, 1, nor equal to the value count it applies to.
func NewErrFormatCountMismatch(formats, values int) error {
	err := fmt.Errorf("format count %d does not match value count %d (must be 0, 1, or equal)", formats, values)
	return pgerr.WithSeverity(pgerr.WithCode(err, codes.Syntax), pgerr.LevelError)
}

func validateFormats(formats []types.FormatCode, count int) error {
	if len(formats) != 0 && len(formats) != 1 && len(formats) != count {
		return NewErrFormatCountMismatch(len(formats), count)
	}

	for _, f := range formats {
		if f != types.TextFormat && f != types.BinaryFormat {
			return NewErrInvalidFormatCode(f)
		}
	}

	return nil
}

// EncodeParse encodes a Parse message: name identifies the prepared
// statement (empty string for the unnamed statement), sql is the query
// template, and oids optionally pins the parameter types (an empty slice
// leaves every parameter's type to be inferred by the backend).
func EncodeParse(name, sql string, oids []oid.Oid) ([]byte, error) {
	w := buffer.NewWriter()
	w.Start(types.ClientParse)
	w.AddString(name)
	w.AddNullTerminate()
	w.AddString(sql)
	w.AddNullTerminate()
	w.AddUint16(uint16(len(oids)))
	for _, o := range oids {
		w.AddInt32(int32(o))
	}
	return w.End()
}

// EncodeBind encodes a Bind message binding statement to portal with values
// as parameters. paramFormats and resultFormats each may be empty (default
// to text), a single entry (applies to all), or one entry per value/column.
// A nil entry in values encodes as SQL NULL (wire length -1).
func EncodeBind(portal, statement string, paramFormats []types.FormatCode, values [][]byte, resultFormats []types.FormatCode) ([]byte, error) {
	if err := validateFormats(paramFormats, len(values)); err != nil {
		return nil, err
	}

	w := buffer.NewWriter()
	w.Start(types.ClientBind)
	w.AddString(portal)
	w.AddNullTerminate()
	w.AddString(statement)
	w.AddNullTerminate()

	w.AddUint16(uint16(len(paramFormats)))
	for _, f := range paramFormats {
		w.AddInt16(int16(f))
	}

	w.AddUint16(uint16(len(values)))
	for _, v := range values {
		if v == nil {
			w.AddInt32(-1)
			continue
		}

		w.AddInt32(int32(len(v)))
		w.AddBytes(v)
	}

	// The result-format count is validated against the column count only by
	// the backend (the codec has no column catalog at encode time); only the
	// format values themselves are checked here.
	for _, f := range resultFormats {
		if f != types.TextFormat && f != types.BinaryFormat {
			return nil, NewErrInvalidFormatCode(f)
		}
	}

	w.AddUint16(uint16(len(resultFormats)))
	for _, f := range resultFormats {
		w.AddInt16(int16(f))
	}

	return w.End()
}

// EncodeDescribe encodes a Describe message for either a prepared statement
// or a portal, selected by kind.
func EncodeDescribe(kind types.DescribeMessage, name string) ([]byte, error) {
	w := buffer.NewWriter()
	w.Start(types.ClientDescribe)
	w.AddByte(byte(kind))
	w.AddString(name)
	w.AddNullTerminate()
	return w.End()
}

// EncodeExecute encodes an Execute message against portal. maxRows is the
// row-count limit after which the backend yields PortalSuspended; 0 means
// unlimited.
func EncodeExecute(portal string, maxRows int32) ([]byte, error) {
	w := buffer.NewWriter()
	w.Start(types.ClientExecute)
	w.AddString(portal)
	w.AddNullTerminate()
	w.AddInt32(maxRows)
	return w.End()
}

// EncodeClose encodes a Close message for either a prepared statement or a
// portal, selected by kind.
func EncodeClose(kind types.CloseMessage, name string) ([]byte, error) {
	w := buffer.NewWriter()
	w.Start(types.ClientClose)
	w.AddByte(byte(kind))
	w.AddString(name)
	w.AddNullTerminate()
	return w.End()
}

// EncodeSync encodes the parameterless Sync message that resynchronizes an
// extended-query error state and elicits ReadyForQuery.
func EncodeSync() ([]byte, error) {
	w := buffer.NewWriter()
	w.Start(types.ClientSync)
	return w.End()
}

// EncodeFlush encodes the parameterless Flush message that forces the
// backend to deliver buffered extended-query responses without requiring
// Sync.
func EncodeFlush() ([]byte, error) {
	w := buffer.NewWriter()
	w.Start(types.ClientFlush)
	return w.End()
}

// ParseComplete acknowledges a successful Parse.
type ParseComplete struct{}

func (m *ParseComplete) Events() []Event { return []Event{EventParseComplete} }

func decodeParseComplete(payload []byte) (Message, error) { return &ParseComplete{}, nil }

// BindComplete acknowledges a successful Bind.
type BindComplete struct{}

func (m *BindComplete) Events() []Event { return []Event{EventBindComplete} }

func decodeBindComplete(payload []byte) (Message, error) { return &BindComplete{}, nil }

// CloseComplete acknowledges a successful Close of a statement or portal.
type CloseComplete struct{}

func (m *CloseComplete) Events() []Event { return []Event{EventCloseComplete} }

func decodeCloseComplete(payload []byte) (Message, error) { return &CloseComplete{}, nil }

// NoData reports that a described statement or portal returns no rows.
type NoData struct{}

func (m *NoData) Events() []Event { return []Event{EventNoData} }

func decodeNoData(payload []byte) (Message, error) { return &NoData{}, nil }

// PortalSuspended reports that Execute's row limit was reached before the
// portal was exhausted; a further Execute resumes it.
type PortalSuspended struct{}

func (m *PortalSuspended) Events() []Event { return []Event{EventPortalSuspended} }

func decodePortalSuspended(payload []byte) (Message, error) { return &PortalSuspended{}, nil }

// errUnsupportedCopy marks the Copy response variants as decoded-but-inert:
// the codec recognizes them (the Decoded Message repertoire names them) but
// streaming large objects through COPY is out of scope.
var errUnsupportedCopy = errors.New("copy streaming is not supported")

// CopyResponse decodes CopyInResponse/CopyOutResponse/CopyBothResponse far
// enough to skip them safely; it fires no event, so the session machine
// never has to special-case COPY.
type CopyResponse struct {
	OverallFormat int8
	ColumnFormats []int16
}

func (m *CopyResponse) Events() []Event { return nil }

func decodeCopyResponse(payload []byte) (Message, error) {
	reader := buffer.NewReader(payload)
	format, err := reader.GetByte()
	if err != nil {
		return nil, err
	}

	n, err := reader.GetUint16()
	if err != nil {
		return nil, err
	}

	formats := make([]int16, n)
	for i := range formats {
		f, err := reader.GetInt16()
		if err != nil {
			return nil, err
		}
		formats[i] = f
	}

	return &CopyResponse{OverallFormat: int8(format), ColumnFormats: formats}, nil
}
