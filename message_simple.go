package pgwire

import (
	"regexp"
	"strconv"

	"github.com/cordeliadb/pgwire/pkg/buffer"
	"github.com/cordeliadb/pgwire/pkg/types"
)

// EncodeQuery encodes a Simple Query message. sql may contain multiple
// semicolon-separated statements; the backend replies with one
// (RowDescription?, DataRow…, CommandComplete) group per statement.
func EncodeQuery(sql string) ([]byte, error) {
	w := buffer.NewWriter()
	w.Start(types.ClientSimpleQuery)
	w.AddString(sql)
	w.AddNullTerminate()
	return w.End()
}

// CommandComplete is the backend's report that a command ran to completion,
// carrying a human-readable tag such as "INSERT 0 1" or "SELECT".
type CommandComplete struct {
	Tag string
}

func (m *CommandComplete) Events() []Event { return []Event{EventCommandComplete} }

// tagRowCount extracts the trailing row count from a command tag, if any.
var tagRowCount = regexp.MustCompile(`\s(\d+)$`)

// RowCount parses the trailing integer out of the tag (e.g. "DELETE 10" ->
// 10, "SELECT" -> ok=false). Per the protocol, INSERT tags carry two
// trailing numbers (OID, then row count); the regex is anchored to the end
// of the tag, so it picks the final one.
func (m *CommandComplete) RowCount() (count int64, ok bool) {
	match := tagRowCount.FindStringSubmatch(m.Tag)
	if match == nil {
		return 0, false
	}

	n, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return 0, false
	}

	return n, true
}

func decodeCommandComplete(payload []byte) (Message, error) {
	reader := buffer.NewReader(payload)
	tag, err := reader.GetString()
	if err != nil {
		return nil, err
	}

	return &CommandComplete{Tag: tag}, nil
}

// EmptyQueryResponse is sent instead of CommandComplete when the submitted
// query string contained no statements.
type EmptyQueryResponse struct{}

func (m *EmptyQueryResponse) Events() []Event { return []Event{EventEmptyQueryResponse} }

func decodeEmptyQueryResponse(payload []byte) (Message, error) {
	return &EmptyQueryResponse{}, nil
}
