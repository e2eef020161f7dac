package types

// AuthType represents the leading int32 carried inside an Authentication
// ('R') message, selecting the authentication method the backend demands.
type AuthType int32

const (
	AuthOK                AuthType = 0
	AuthKerberosV5        AuthType = 2
	AuthCleartextPassword AuthType = 3
	AuthMD5Password       AuthType = 5
	AuthSCMCredential     AuthType = 6
	AuthGSS               AuthType = 7
	AuthGSSContinue       AuthType = 8
	AuthSSPI              AuthType = 9
)

func (t AuthType) String() string {
	switch t {
	case AuthOK:
		return "OK"
	case AuthKerberosV5:
		return "KerberosV5"
	case AuthCleartextPassword:
		return "CleartextPassword"
	case AuthMD5Password:
		return "MD5Password"
	case AuthSCMCredential:
		return "SCMCredential"
	case AuthGSS:
		return "GSS"
	case AuthGSSContinue:
		return "GSSContinue"
	case AuthSSPI:
		return "SSPI"
	default:
		return "Unknown"
	}
}
