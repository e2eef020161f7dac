package errors

import "github.com/cordeliadb/pgwire/codes"

// Error is the flattened shape of a backend ErrorResponse: its code,
// message, detail, hint, severity and position, decoded out of an error's
// decorator chain. Other fields the wire protocol can carry are not kept.
// See https://www.postgresql.org/docs/current/static/protocol-error-fields.html.
type Error struct {
	Code     codes.Code
	Message  string
	Detail   string
	Hint     string
	Severity Severity
	Position int32
}

// Flatten walks err's decorator chain and collects every field a
// decoded ErrorResponse could have attached, for callers that want a plain
// struct instead of chained errors.Is/As lookups.
func Flatten(err error) Error {
	if err == nil {
		return Error{
			Code:     codes.Internal,
			Message:  "unknown error",
			Severity: LevelFatal,
		}
	}

	return Error{
		Code:     GetCode(err),
		Message:  err.Error(),
		Severity: DefaultSeverity(GetSeverity(err)),
		Detail:   GetDetail(err),
		Hint:     GetHint(err),
		Position: GetPosition(err),
	}
}
