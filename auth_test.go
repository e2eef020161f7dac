package pgwire

import (
	"testing"

	"github.com/cordeliadb/pgwire/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashMD5Password(t *testing.T) {
	hash := HashMD5Password("md5_user", "password", []byte("abcd"))
	assert.Regexp(t, "^md5[0-9a-f]{32}$", hash)

	// Deterministic for the same inputs.
	assert.Equal(t, hash, HashMD5Password("md5_user", "password", []byte("abcd")))

	// Sensitive to the salt, so a replayed digest from one handshake cannot
	// authenticate a different one.
	assert.NotEqual(t, hash, HashMD5Password("md5_user", "password", []byte("wxyz")))
}

func TestDecodeAuthenticationRequestMD5(t *testing.T) {
	payload := []byte{0, 0, 0, 5, 'a', 'b', 'c', 'd'}

	msg, err := decodeAuthenticationRequest(payload)
	require.NoError(t, err)

	auth := msg.(*AuthenticationRequest)
	assert.Equal(t, types.AuthMD5Password, auth.Kind)
	assert.Equal(t, []byte("abcd"), auth.Salt)
	assert.Equal(t, []Event{EventAuthenticationMD5Password}, auth.Events())
}

func TestDecodeAuthenticationRequestOK(t *testing.T) {
	msg, err := decodeAuthenticationRequest([]byte{0, 0, 0, 0})
	require.NoError(t, err)

	auth := msg.(*AuthenticationRequest)
	assert.Equal(t, []Event{EventAuthenticationOK}, auth.Events())
}

func TestEncodePasswordMessageByteExact(t *testing.T) {
	out, err := EncodePasswordMessage("this is a test")
	require.NoError(t, err)

	expected := append([]byte{'p', 0, 0, 0, 0x13}, []byte("this is a test\x00")...)
	assert.Equal(t, expected, out)
}
