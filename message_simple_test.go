package pgwire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeQueryByteExact(t *testing.T) {
	out, err := EncodeQuery("select * from people")
	require.NoError(t, err)

	expected := append([]byte{'Q', 0, 0, 0, 0x19}, []byte("select * from people\x00")...)
	assert.Equal(t, expected, out)
}

func TestCommandCompleteRowCount(t *testing.T) {
	cases := []struct {
		tag   string
		count int64
		ok    bool
	}{
		{"DELETE 10", 10, true},
		{"INSERT 0 1", 1, true},
		{"SELECT", 0, false},
		{"BEGIN", 0, false},
	}

	for _, c := range cases {
		cc := &CommandComplete{Tag: c.tag}
		n, ok := cc.RowCount()
		assert.Equal(t, c.ok, ok, "tag %q", c.tag)
		if c.ok {
			assert.Equal(t, c.count, n, "tag %q", c.tag)
		}
	}
}

func TestDecodeCommandComplete(t *testing.T) {
	msg, err := decodeCommandComplete([]byte("SELECT 3\x00"))
	require.NoError(t, err)

	cc := msg.(*CommandComplete)
	assert.Equal(t, "SELECT 3", cc.Tag)
	assert.Equal(t, []Event{EventCommandComplete}, cc.Events())
}

func TestDecodeEmptyQueryResponse(t *testing.T) {
	msg, err := decodeEmptyQueryResponse(nil)
	require.NoError(t, err)
	assert.Equal(t, []Event{EventEmptyQueryResponse}, msg.Events())
}
