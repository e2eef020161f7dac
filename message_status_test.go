package pgwire

import (
	"testing"

	"github.com/cordeliadb/pgwire/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBackendKeyData(t *testing.T) {
	payload := []byte{0, 0, 0x04, 0xD2, 0, 0xBC, 0x61, 0x4E}

	msg, err := decodeBackendKeyData(payload)
	require.NoError(t, err)

	bkd := msg.(*BackendKeyData)
	assert.EqualValues(t, 1234, bkd.PID)
	assert.EqualValues(t, 12345678, bkd.Secret)
}

func TestDecodeParameterStatus(t *testing.T) {
	payload := append([]byte("city\x00"), []byte("Fort Lauderdale\x00")...)

	msg, err := decodeParameterStatus(payload)
	require.NoError(t, err)

	ps := msg.(*ParameterStatus)
	assert.Equal(t, "city", ps.Name)
	assert.Equal(t, "Fort Lauderdale", ps.Value)
}

func TestDecodeReadyForQuery(t *testing.T) {
	msg, err := decodeReadyForQuery([]byte{'I'})
	require.NoError(t, err)

	rfq := msg.(*ReadyForQuery)
	assert.Equal(t, types.TransactionStatus('I'), rfq.Status)
}
