package dewberry

import (
	"errors"
	"fmt"
)

// Sentinel errors for the five failure classes. Concrete error types below
// wrap these, so callers can match broadly with errors.Is or pull offsets
// and tag bytes out with errors.As.
//
// All failures are fail-fast: no partial value is ever produced, and the
// encoder or decoder that reported the error must be discarded.
var (
	// ErrUnsupportedValue reports an input the wire format cannot carry:
	// a non-integral number, an invalid Value, or a native container with
	// a non-string map key.
	ErrUnsupportedValue = errors.New("dewberry: unsupported value")

	// ErrOverflow reports a magnitude or length beyond the largest
	// representable form: integers outside the 256-bit range, strings,
	// byte blobs, and element counts longer than MaxLen, or a decoded
	// value that does not fit the width the caller asked for.
	ErrOverflow = errors.New("dewberry: value exceeds representable width")

	// ErrTruncated reports an input that ended before a complete value.
	ErrTruncated = errors.New("dewberry: truncated input")

	// ErrTypeMismatch reports a wire tag incompatible with the requested
	// read.
	ErrTypeMismatch = errors.New("dewberry: type mismatch")

	// ErrUnknownTag reports a tag byte outside the defined table.
	ErrUnknownTag = errors.New("dewberry: unknown tag")
)

// TypeError is the concrete error behind ErrTypeMismatch.
type TypeError struct {
	Offset int  // buffer offset of the offending tag
	Tag    byte // the tag found there
	Want   Kind // the kind the caller requested
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("dewberry: type mismatch at offset %d: tag 0x%02X cannot be read as %s", e.Offset, e.Tag, e.Want)
}

func (e *TypeError) Unwrap() error { return ErrTypeMismatch }

// TruncatedError is the concrete error behind ErrTruncated.
type TruncatedError struct {
	Offset int // offset at which more bytes were required
	Need   int // bytes required from Offset
	Have   int // bytes actually remaining
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("dewberry: truncated input at offset %d: need %d byte(s), have %d", e.Offset, e.Need, e.Have)
}

func (e *TruncatedError) Unwrap() error { return ErrTruncated }

// UnknownTagError is the concrete error behind ErrUnknownTag.
type UnknownTagError struct {
	Offset int
	Tag    byte
}

func (e *UnknownTagError) Error() string {
	return fmt.Sprintf("dewberry: unknown tag 0x%02X at offset %d", e.Tag, e.Offset)
}

func (e *UnknownTagError) Unwrap() error { return ErrUnknownTag }
