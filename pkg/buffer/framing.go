package buffer

import "encoding/binary"

// Frame is a fully assembled, length-delimited protocol message: a type byte
// (absent for Startup/CancelRequest, see [Frame.Typeless]) plus its payload,
// stripped of the 4-byte length prefix that is only needed while framing.
type Frame struct {
	Type    byte
	Payload []byte
}

// FramingBuffer accumulates inbound bytes, arriving in arbitrarily sized
// chunks from the transport, and yields complete frames as soon as enough
// bytes have arrived. It never looks past a single frame and never blocks:
// Receive returns whatever frames the newly accumulated bytes complete, zero
// or more.
//
// The buffer does not distinguish Startup/CancelRequest messages (which carry
// no type byte) from typed backend messages; callers that need typeless
// framing drive a FramingBuffer through ReceiveUntyped instead.
type FramingBuffer struct {
	buf          []byte
	headerParsed bool
	msgType      byte
	payloadLen   int
	maxSize      int
	err          error
}

// NewFramingBuffer constructs an empty FramingBuffer that rejects frames
// declaring a payload larger than DefaultMaxMessageSize.
func NewFramingBuffer() *FramingBuffer {
	return &FramingBuffer{maxSize: DefaultMaxMessageSize}
}

// NewFramingBufferSize constructs an empty FramingBuffer with a caller-chosen
// maximum payload size. A non-positive size disables the check.
func NewFramingBufferSize(maxSize int) *FramingBuffer {
	return &FramingBuffer{maxSize: maxSize}
}

// Err returns the protocol violation recorded once a frame declared a
// payload bigger than maxSize. Once set, Receive stops assembling frames.
func (f *FramingBuffer) Err() error {
	return f.err
}

// Receive appends chunk to the buffer and returns every frame the buffer can
// now fully assemble, in order. Partial prefixes (fewer than 5 buffered
// bytes) and partial payloads never yield.
func (f *FramingBuffer) Receive(chunk []byte) []Frame {
	if f.err != nil {
		return nil
	}

	if len(chunk) > 0 {
		f.buf = append(f.buf, chunk...)
	}

	var frames []Frame
	for {
		if !f.headerParsed {
			if len(f.buf) < 5 {
				break
			}

			f.msgType = f.buf[0]
			size := binary.BigEndian.Uint32(f.buf[1:5])
			// the 4 length bytes count themselves.
			f.payloadLen = int(size) - 4
			if f.maxSize > 0 && f.payloadLen > f.maxSize {
				f.err = NewMessageSizeExceeded(f.maxSize, f.payloadLen)
				return frames
			}
			f.headerParsed = true
		}

		total := 5 + f.payloadLen
		if len(f.buf) < total {
			break
		}

		payload := make([]byte, f.payloadLen)
		copy(payload, f.buf[5:total])
		frames = append(frames, Frame{Type: f.msgType, Payload: payload})

		if total == len(f.buf) {
			f.buf = nil
		} else {
			f.buf = f.buf[total:]
		}
		f.headerParsed = false
	}

	return frames
}

// Flush returns the raw bytes currently buffered (a type byte plus length
// prefix if a header has been parsed, followed by whatever payload bytes
// have arrived so far) and resets the buffer to empty.
func (f *FramingBuffer) Flush() []byte {
	out := f.buf
	f.buf = nil
	f.headerParsed = false
	return out
}

// ReceiveUntyped behaves like Receive but for the length-only framing used by
// StartupMessage and CancelRequest: no type byte, so the length prefix is the
// first 4 bytes and counts itself.
func (f *FramingBuffer) ReceiveUntyped(chunk []byte) []Frame {
	if len(chunk) > 0 {
		f.buf = append(f.buf, chunk...)
	}

	var frames []Frame
	for {
		if !f.headerParsed {
			if len(f.buf) < 4 {
				break
			}

			size := binary.BigEndian.Uint32(f.buf[0:4])
			f.payloadLen = int(size) - 4
			f.headerParsed = true
		}

		total := 4 + f.payloadLen
		if len(f.buf) < total {
			break
		}

		payload := make([]byte, f.payloadLen)
		copy(payload, f.buf[4:total])
		frames = append(frames, Frame{Payload: payload})

		if total == len(f.buf) {
			f.buf = nil
		} else {
			f.buf = f.buf[total:]
		}
		f.headerParsed = false
	}

	return frames
}

// Typeless reports whether the frame was produced by ReceiveUntyped.
func (fr Frame) Typeless() bool {
	return fr.Type == 0
}
