package protocol

import "errors"

// ErrProtocolViolation is the root of every malformed-input error. A message
// failing with it is dropped; the session keeps going.
var ErrProtocolViolation = errors.New("protocol violation")

var (
	ErrShortBuffer        = violation("short buffer")
	ErrTraitOverrun       = violation("trait size exceeds remaining bytes")
	ErrUnknownTraitType   = violation("unknown trait type")
	ErrUnknownMessageKind = violation("unknown message kind")
	ErrEmptyFrame         = violation("empty frame")
)

type violationError struct {
	msg string
}

func violation(msg string) error {
	return &violationError{msg: msg}
}

func (e *violationError) Error() string {
	return e.msg
}

func (e *violationError) Unwrap() error {
	return ErrProtocolViolation
}
