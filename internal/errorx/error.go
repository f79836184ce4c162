package errorx

import (
	"errors"
	"fmt"
)

// Code classifies a failure so callers can decide whether a retry makes sense.
type Code int

const (
	// Unauthorized is returned for mutations attempted by a non-owner or non-creator.
	Unauthorized Code = 100001
	// Validation is returned for malformed parameters.
	Validation Code = 100002
	// Precondition is returned when the state does not allow the operation yet (or anymore).
	Precondition Code = 100003
	// InsufficientFunds is returned when attached value, balance or allowance is too low.
	InsufficientFunds Code = 100004
	// Randomness is returned when the oracle failed and the fallback is disabled.
	Randomness Code = 100005
	// NothingToClaim is returned when a claim finds a zero entitlement.
	NothingToClaim Code = 100006
)

var codeNames = map[Code]string{
	Unauthorized:      "unauthorized",
	Validation:        "validation",
	Precondition:      "precondition",
	InsufficientFunds: "insufficient funds",
	Randomness:        "randomness",
	NothingToClaim:    "nothing to claim",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("code(%d)", int(c))
}

type Error struct {
	Code    Code
	Message string
}

func (e Error) Error() string {
	return e.Message
}

// New builds an Error with a formatted message.
func New(code Code, format string, a ...any) Error {
	return Error{Code: code, Message: fmt.Sprintf(format, a...)}
}

// CodeOf returns the code of the first Error in err's chain, or 0.
func CodeOf(err error) Code {
	var e Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}
