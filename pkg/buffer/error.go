package buffer

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/cordeliadb/pgwire/codes"
	pgerr "github.com/cordeliadb/pgwire/errors"
)

// ErrMissingNulTerminator is thrown when no NUL terminator is found when
// interpreting a message field as a string.
var ErrMissingNulTerminator = errors.New("NUL terminator not found")

// NewMissingNulTerminator constructs an error wrapping ErrMissingNulTerminator
// with additional metadata. This is a protocol violation: a conforming
// backend never sends an unterminated string.
func NewMissingNulTerminator() error {
	return pgerr.WithSeverity(pgerr.WithCode(ErrMissingNulTerminator, codes.DataCorrupted), pgerr.LevelFatal)
}

// ErrInsufficientData is thrown when a payload has fewer bytes remaining than
// a field's fixed width requires.
var ErrInsufficientData = errors.New("insufficient data")

// NewInsufficientData constructs an error wrapping ErrInsufficientData with
// additional metadata.
func NewInsufficientData(length int) error {
	err := fmt.Errorf("length: %d %w", length, ErrInsufficientData)
	return pgerr.WithSeverity(pgerr.WithCode(err, codes.DataCorrupted), pgerr.LevelFatal)
}

// ErrMessageSizeExceeded is thrown when a frame's declared length is larger
// than the maximum this connection is willing to buffer.
var ErrMessageSizeExceeded = MessageSizeExceeded{Message: "maximum message size exceeded"}

// MessageSizeExceeded carries the offending and maximum sizes alongside the
// sentinel error message.
type MessageSizeExceeded struct {
	Message string
	Size    int
	Max     int
}

func (err MessageSizeExceeded) Error() string {
	return err.Message
}

func (err MessageSizeExceeded) Is(target error) bool {
	return reflect.TypeOf(target) == reflect.TypeOf(err)
}

// NewMessageSizeExceeded constructs an error wrapping MessageSizeExceeded with
// additional metadata.
func NewMessageSizeExceeded(max, size int) error {
	err := MessageSizeExceeded{
		Message: fmt.Sprintf("message size %d, bigger than maximum allowed message size %d", size, max),
		Size:    size,
		Max:     max,
	}

	return pgerr.WithSeverity(pgerr.WithCode(err, codes.ProgramLimitExceeded), pgerr.LevelError)
}

// UnwrapMessageSizeExceeded attempts to unwrap the given error as
// MessageSizeExceeded.
func UnwrapMessageSizeExceeded(err error) (result MessageSizeExceeded, _ bool) {
	return result, errors.As(err, &result)
}

// DefaultMaxMessageSize bounds how large a single frame's declared payload
// may be before Receive rejects it as a protocol violation rather than
// letting a corrupt length field trigger an unbounded allocation.
const DefaultMaxMessageSize = 1 << 24 // 16MiB
