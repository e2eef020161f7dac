package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderGetString(t *testing.T) {
	r := NewReader([]byte("hello\x00world"))

	s, err := r.GetString()
	require.NoError(t, err)
	assert.Equal(t, "hello", s)
	assert.Equal(t, []byte("world"), r.Msg)
}

func TestReaderGetStringMissingTerminator(t *testing.T) {
	r := NewReader([]byte("hello"))

	_, err := r.GetString()
	assert.ErrorIs(t, err, ErrMissingNulTerminator)
}

func TestReaderGetInt32NullSentinel(t *testing.T) {
	r := NewReader([]byte{0xFF, 0xFF, 0xFF, 0xFF})

	v, err := r.GetInt32()
	require.NoError(t, err)
	assert.EqualValues(t, -1, v)
}

func TestReaderGetUint16InsufficientData(t *testing.T) {
	r := NewReader([]byte{0x01})

	_, err := r.GetUint16()
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestReaderRowDescriptionFields(t *testing.T) {
	// RowDescription payload for a single "name" column, per the
	// representative byte-exact example.
	payload := []byte{
		0, 1,
		'n', 'a', 'm', 'e', 0,
		0, 0, 0x03, 0xE7,
		0, 1,
		0, 0, 0, 0x17,
		0, 8,
		0xFF, 0xFF, 0xFF, 0xFF,
		0, 0,
	}

	r := NewReader(payload)

	n, err := r.GetUint16()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	name, err := r.GetString()
	require.NoError(t, err)
	assert.Equal(t, "name", name)

	tableOID, err := r.GetInt32()
	require.NoError(t, err)
	assert.EqualValues(t, 999, tableOID)

	attrNum, err := r.GetInt16()
	require.NoError(t, err)
	assert.EqualValues(t, 1, attrNum)

	typeOID, err := r.GetInt32()
	require.NoError(t, err)
	assert.EqualValues(t, 23, typeOID)

	typeLen, err := r.GetInt16()
	require.NoError(t, err)
	assert.EqualValues(t, 8, typeLen)

	typeMod, err := r.GetInt32()
	require.NoError(t, err)
	assert.EqualValues(t, -1, typeMod)

	format, err := r.GetInt16()
	require.NoError(t, err)
	assert.EqualValues(t, 0, format)

	assert.Zero(t, r.Remaining())
}
