package buffer

import (
	"bytes"
	"encoding/binary"
	"unsafe"
)

// Reader provides a convenient cursor over a single decoded message payload.
// It is handed the bytes of one [Frame] at a time by the message codec and
// exposes the Get* helpers used to pull typed fields off the front of the
// remaining, unconsumed payload.
type Reader struct {
	Msg []byte
}

// NewReader constructs a payload cursor over the given message payload. The
// payload is consumed destructively as fields are read off the front.
func NewReader(payload []byte) *Reader {
	return &Reader{Msg: payload}
}

// GetString reads a null-terminated string.
func (reader *Reader) GetString() (string, error) {
	pos := bytes.IndexByte(reader.Msg, 0)
	if pos == -1 {
		return "", NewMissingNulTerminator()
	}

	// Note: this is a conversion from a byte slice to a string which avoids
	// allocation and copying. It is safe because we never reuse the bytes in
	// our read buffer.
	s := reader.Msg[:pos]
	reader.Msg = reader.Msg[pos+1:]
	return *((*string)(unsafe.Pointer(&s))), nil
}

// GetBytes returns the next n bytes of the buffer's contents.
func (reader *Reader) GetBytes(n int) ([]byte, error) {
	if len(reader.Msg) < n {
		return nil, NewInsufficientData(len(reader.Msg))
	}

	v := reader.Msg[:n]
	reader.Msg = reader.Msg[n:]
	return v, nil
}

// GetByte returns the next byte of the buffer's contents.
func (reader *Reader) GetByte() (byte, error) {
	v, err := reader.GetBytes(1)
	if err != nil {
		return 0, err
	}

	return v[0], nil
}

// GetUint16 returns the buffer's contents as a big-endian uint16.
func (reader *Reader) GetUint16() (uint16, error) {
	if len(reader.Msg) < 2 {
		return 0, NewInsufficientData(len(reader.Msg))
	}

	v := binary.BigEndian.Uint16(reader.Msg[:2])
	reader.Msg = reader.Msg[2:]
	return v, nil
}

// GetInt16 returns the buffer's contents as a big-endian, sign-extended int16.
func (reader *Reader) GetInt16() (int16, error) {
	v, err := reader.GetUint16()
	if err != nil {
		return 0, err
	}

	return int16(v), nil
}

// GetUint32 returns the buffer's contents as a big-endian uint32.
func (reader *Reader) GetUint32() (uint32, error) {
	if len(reader.Msg) < 4 {
		return 0, NewInsufficientData(len(reader.Msg))
	}

	v := binary.BigEndian.Uint32(reader.Msg[:4])
	reader.Msg = reader.Msg[4:]
	return v, nil
}

// GetInt32 returns the buffer's contents as a big-endian, sign-extended
// int32. A length field of -1 (0xFFFFFFFF) is the wire encoding for a NULL
// value; it round-trips through this method like any other value, callers
// distinguish NULL by comparing against -1.
func (reader *Reader) GetInt32() (int32, error) {
	v, err := reader.GetUint32()
	if err != nil {
		return 0, err
	}

	return int32(v), nil
}

// Remaining reports how many unconsumed bytes are left in the payload.
func (reader *Reader) Remaining() int {
	return len(reader.Msg)
}
