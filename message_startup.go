package pgwire

import (
	"github.com/cordeliadb/pgwire/pkg/buffer"
	"github.com/cordeliadb/pgwire/pkg/types"
)

// protocolVersion30 is the v3.0 protocol version number (3<<16), carried as
// the first 4 bytes of a StartupMessage payload.
const protocolVersion30 = 3 << 16

// cancelRequestCode is the magic value that, in place of a protocol version,
// marks a message on the wire as a CancelRequest rather than a Startup.
const cancelRequestCode = 80877102

// EncodeStartupMessage encodes the untyped StartupMessage that opens every
// connection: protocol version, then a sequence of "name\0value\0" parameter
// pairs terminated by a final NUL. user is required; the rest of params
// (commonly "database") are optional.
func EncodeStartupMessage(user string, params map[string]string) ([]byte, error) {
	w := buffer.NewWriter()
	w.StartUntyped()
	w.AddInt32(protocolVersion30)

	w.AddString("user")
	w.AddNullTerminate()
	w.AddString(user)
	w.AddNullTerminate()

	for name, value := range params {
		w.AddString(name)
		w.AddNullTerminate()
		w.AddString(value)
		w.AddNullTerminate()
	}

	w.AddNullTerminate()
	return w.End()
}

// EncodeCancelRequest encodes the untyped CancelRequest sent on a *separate*
// connection to ask the backend to abort the original connection's
// in-progress command.
func EncodeCancelRequest(pid, secret uint32) ([]byte, error) {
	w := buffer.NewWriter()
	w.StartUntyped()
	w.AddInt32(cancelRequestCode)
	w.AddUint32(pid)
	w.AddUint32(secret)
	return w.End()
}

// EncodeTerminate encodes the parameterless Terminate message that politely
// closes a connection.
func EncodeTerminate() ([]byte, error) {
	w := buffer.NewWriter()
	w.Start(types.ClientTerminate)
	return w.End()
}
