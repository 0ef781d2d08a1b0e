package model

import (
	"errors"
	"fmt"
)

// Denial reason strings. These are the exact reasons surfaced to callers
// and written to the audit trail; tests depend on them.
const (
	ReasonInsufficientPermissions = "insufficient permissions"
	ReasonInvalidCredentials      = "invalid credentials for tier"
	ReasonSignatureMismatch       = "signature mismatch"
	ReasonUnrecognizedCommand     = "unrecognized command"
	ReasonIllegalTransition       = "illegal tier transition"
)

// ErrPersistence marks a failure to durably record an audit entry or
// queued command. It is fatal to the request: the gate must not report
// an allowance it could not record.
var ErrPersistence = errors.New("persistence failure")

// DeniedError surfaces a refusal as an error at boundaries that need one
// (CLI exit codes, middleware). Denials inside the gate are verdict
// values, not errors.
type DeniedError struct {
	Command string
	Reason  string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("command denied: %s", e.Reason)
}

// IsDenied reports whether err is or wraps a DeniedError.
func IsDenied(err error) bool {
	var de *DeniedError
	return errors.As(err, &de)
}
