package buffer

import (
	"bytes"
	"encoding/binary"

	"github.com/cordeliadb/pgwire/pkg/types"
)

// Writer assembles a single outbound protocol message. Start/StartUntyped
// begin a message, the Add* methods append its payload, and End finalizes
// the length prefix and returns the encoded bytes. It is a pure byte
// assembler: it never touches a socket, which is what makes Message Codec
// encode functions byte-exact testable without a live connection.
type Writer struct {
	frame  bytes.Buffer
	putbuf [64]byte
	err    error
	typed  bool
}

// NewWriter constructs an empty message Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Start resets the writer and begins a typed (frontend) message: the type
// byte and a 4-byte length placeholder are reserved up front.
func (writer *Writer) Start(t types.ClientMessage) {
	writer.Reset()
	writer.typed = true
	writer.putbuf[0] = byte(t)
	writer.frame.Write(writer.putbuf[:5])
}

// StartUntyped resets the writer and begins an untyped message (Startup,
// CancelRequest): only the 4-byte length placeholder is reserved; these two
// messages carry no type byte at all.
func (writer *Writer) StartUntyped() {
	writer.Reset()
	writer.typed = false
	writer.frame.Write(writer.putbuf[:4])
}

// AddByte writes the given byte to the writer frame.
func (writer *Writer) AddByte(b byte) {
	if writer.err != nil {
		return
	}

	writer.err = writer.frame.WriteByte(b)
}

// AddInt16 writes the given int16 as big-endian to the writer frame.
func (writer *Writer) AddInt16(i int16) (size int) {
	if writer.err != nil {
		return size
	}

	x := make([]byte, 2)
	binary.BigEndian.PutUint16(x, uint16(i))
	size, writer.err = writer.frame.Write(x)
	return size
}

// AddUint16 writes the given uint16 as big-endian to the writer frame.
func (writer *Writer) AddUint16(i uint16) (size int) {
	return writer.AddInt16(int16(i))
}

// AddInt32 writes the given int32 as big-endian to the writer frame.
func (writer *Writer) AddInt32(i int32) (size int) {
	if writer.err != nil {
		return size
	}

	x := make([]byte, 4)
	binary.BigEndian.PutUint32(x, uint32(i))
	size, writer.err = writer.frame.Write(x)
	return size
}

// AddUint32 writes the given uint32 as big-endian to the writer frame.
func (writer *Writer) AddUint32(i uint32) (size int) {
	return writer.AddInt32(int32(i))
}

// AddBytes writes the given bytes to the writer frame verbatim.
func (writer *Writer) AddBytes(b []byte) (size int) {
	if writer.err != nil {
		return size
	}

	size, writer.err = writer.frame.Write(b)
	return size
}

// AddString writes the given string to the writer frame verbatim (no
// terminator; call AddNullTerminate separately for a C string).
func (writer *Writer) AddString(s string) (size int) {
	if writer.err != nil {
		return size
	}

	size, writer.err = writer.frame.WriteString(s)
	return size
}

// AddNullTerminate writes a single NUL byte, terminating a C string.
func (writer *Writer) AddNullTerminate() {
	if writer.err != nil {
		return
	}

	writer.err = writer.frame.WriteByte(0)
}

// Error returns any error raised while appending to the frame.
func (writer *Writer) Error() error {
	return writer.err
}

// Reset discards the current frame.
func (writer *Writer) Reset() {
	writer.frame.Reset()
	writer.err = nil
}

// End finalizes the length prefix — u32_be(payload_len + 4), the 4 length
// bytes counting themselves — and returns the fully encoded message. For a
// typed message the length excludes the type byte; for an untyped message
// (Start/CancelRequest) it is the length of the whole message.
func (writer *Writer) End() ([]byte, error) {
	if writer.err != nil {
		return nil, writer.err
	}

	out := writer.frame.Bytes()
	if writer.typed {
		binary.BigEndian.PutUint32(out[1:5], uint32(len(out)-1))
	} else {
		binary.BigEndian.PutUint32(out[0:4], uint32(len(out)))
	}

	result := make([]byte, len(out))
	copy(result, out)
	return result, nil
}
