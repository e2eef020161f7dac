package pgwire

import (
	"github.com/cordeliadb/pgwire/pkg/buffer"
	"github.com/cordeliadb/pgwire/pkg/types"
)

// AuthenticationRequest is the backend's 'R' message, naming the
// authentication method it requires before the handshake can continue.
type AuthenticationRequest struct {
	Kind types.AuthType
	Salt []byte // populated only for AuthMD5Password
	Data []byte // populated only for AuthGSSContinue
}

func (m *AuthenticationRequest) Events() []Event {
	switch m.Kind {
	case types.AuthOK:
		return []Event{EventAuthenticationOK}
	case types.AuthCleartextPassword:
		return []Event{EventAuthenticationCleartextPassword}
	case types.AuthMD5Password:
		return []Event{EventAuthenticationMD5Password}
	case types.AuthKerberosV5:
		return []Event{EventAuthenticationKerberosV5}
	case types.AuthSCMCredential:
		return []Event{EventAuthenticationSCM}
	case types.AuthGSS:
		return []Event{EventAuthenticationGSS}
	case types.AuthGSSContinue:
		return []Event{EventAuthenticationGSSContinue}
	case types.AuthSSPI:
		return []Event{EventAuthenticationSSPI}
	default:
		return nil
	}
}

func decodeAuthenticationRequest(payload []byte) (Message, error) {
	reader := buffer.NewReader(payload)
	kind, err := reader.GetUint32()
	if err != nil {
		return nil, err
	}

	msg := &AuthenticationRequest{Kind: types.AuthType(kind)}
	switch msg.Kind {
	case types.AuthMD5Password:
		salt, err := reader.GetBytes(4)
		if err != nil {
			return nil, err
		}

		msg.Salt = append([]byte(nil), salt...)
	case types.AuthGSSContinue:
		msg.Data = append([]byte(nil), reader.Msg...)
	}

	return msg, nil
}

// EncodePasswordMessage encodes the frontend's response to an authentication
// challenge: a cleartext password, or the "md5"-prefixed hex digest computed
// by HashMD5Password for an MD5 challenge.
func EncodePasswordMessage(password string) ([]byte, error) {
	w := buffer.NewWriter()
	w.Start(types.ClientPassword)
	w.AddString(password)
	w.AddNullTerminate()
	return w.End()
}
