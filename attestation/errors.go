package attestation

import "errors"

// Kind is a stable category for programmatic error handling.
//
// Verification outcomes are categorical: a caller's blocking decision
// depends on the Kind, not the message text, so Kinds survive wrapping
// and remain stable across versions. Error() strings are for humans
// and may evolve; use errors.As to extract *Error.
type Kind string

const (
	KindValidation    Kind = "Validation"
	KindMalformed     Kind = "Malformed"
	KindSignature     Kind = "Signature"
	KindExpired       Kind = "Expired"
	KindFrameMismatch Kind = "FrameMismatch"
	KindProfile       Kind = "Profile"
	KindCrypto        Kind = "Crypto"
	KindInternal      Kind = "Internal"
)

// Error is the package's structured error type.
//
// RuleID is a stable identifier (e.g. HAP-SIG-401, HAP-VAL-101) naming
// the violated invariant. Message is intended for humans; do not match
// on it.
type Error struct {
	Kind    Kind
	RuleID  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func newError(kind Kind, ruleID, msg string) error {
	return &Error{Kind: kind, RuleID: ruleID, Message: msg}
}

func wrapError(kind Kind, ruleID, msg string, cause error) error {
	if cause == nil {
		return newError(kind, ruleID, msg)
	}
	return &Error{Kind: kind, RuleID: ruleID, Message: msg, Cause: cause}
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// RuleID returns the stable RuleID for a structured error, or "" if unknown.
func RuleID(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.RuleID
}
