package pgwire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeStartupMessageByteExact(t *testing.T) {
	out, err := EncodeStartupMessage("jim", map[string]string{"database": "inventory"})
	require.NoError(t, err)

	expected := []byte{0, 0, 0, 0x25, 0, 3, 0, 0}
	expected = append(expected, []byte("user\x00jim\x00database\x00inventory\x00")...)
	expected = append(expected, 0)
	assert.Equal(t, expected, out)
}

func TestEncodeStartupMessageUserOnly(t *testing.T) {
	out, err := EncodeStartupMessage("postgres", nil)
	require.NoError(t, err)

	expected := []byte{0, 0, 0, 0x17, 0, 3, 0, 0}
	expected = append(expected, []byte("user\x00postgres\x00")...)
	expected = append(expected, 0)
	assert.Equal(t, expected, out)
}

func TestEncodeCancelRequestByteExact(t *testing.T) {
	out, err := EncodeCancelRequest(1234, 12345678)
	require.NoError(t, err)

	expected := []byte{0, 0, 0, 16}
	expected = append(expected, 0x04, 0xD2, 0x16, 0x2E)
	expected = append(expected, 0, 0, 0x04, 0xD2)
	expected = append(expected, 0, 0xBC, 0x61, 0x4E)
	assert.Equal(t, expected, out)
}

func TestEncodeTerminate(t *testing.T) {
	out, err := EncodeTerminate()
	require.NoError(t, err)
	assert.Equal(t, []byte{'X', 0, 0, 0, 4}, out)
}
