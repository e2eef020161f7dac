package pgwire

import (
	"crypto/md5"
	"encoding/hex"
)

// HashMD5Password computes the frontend's response to an MD5 authentication
// challenge: "md5" followed by the hex digest of md5(hex(md5(password+user))
// + salt). The outer hash is reseeded with the salt the backend sent in the
// AuthenticationMD5Password message, so the digest cannot be replayed
// against a different handshake.
func HashMD5Password(user, password string, salt []byte) string {
	inner := md5Hex(password + user)
	outer := md5Hex(inner + string(salt))
	return "md5" + outer
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
