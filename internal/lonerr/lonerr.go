// Package lonerr provides the error taxonomy shared by the network, data
// link, and persistence layers. This is a leaf package with no internal
// dependencies, designed to be imported by every layer without causing
// import cycles.
//
// Import graph: lonerr <- queue/ringbuffer/flashhal <- datalink/network/persistence <- core
package lonerr

import (
	"errors"
	"fmt"
)

// Code identifies the class of error that occurred.
type Code int

const (
	// NoMemoryAvailable indicates a fixed-capacity allocation (queue backing
	// store, ring buffer) failed at Reset. Fatal for the owning layer.
	NoMemoryAvailable Code = iota + 1

	// BadAddressType indicates an unrecognized address mode was presented to
	// NWSend, or an unrecognized addrFmt code was decoded on receive.
	BadAddressType

	// InvalidMessageMode indicates a message mode/service type combination
	// that the layer does not support.
	InvalidMessageMode

	// InvalidDomain indicates a domain index outside the configured domain
	// table, an Invalid domain row, or a domain length that fails the
	// encode/decode codec.
	InvalidDomain

	// WritePastEndOfNetBuffer indicates an outgoing NPDU would overflow the
	// configured network output buffer.
	WritePastEndOfNetBuffer

	// WritePastEndOfApplBuffer indicates a decoded APDU would overflow the
	// application buffer it is copied into.
	WritePastEndOfApplBuffer

	// NoBufferAvailable indicates a destination queue is full; the caller
	// should retry on the next scheduler tick without dropping the head.
	NoBufferAvailable

	// PersistentDataFailure indicates a segment failed header/signature/
	// checksum validation, or a deserializer rejected its payload, during
	// Restore.
	PersistentDataFailure

	// StackNotInitialized indicates an operation was attempted before the
	// owning layer completed Reset, or before a required handler was
	// installed.
	StackNotInitialized

	// UnknownPdu indicates a PDU type code that dispatch does not recognize.
	UnknownPdu
)

// String returns a human-readable name for the error code.
func (c Code) String() string {
	switch c {
	case NoMemoryAvailable:
		return "NoMemoryAvailable"
	case BadAddressType:
		return "BadAddressType"
	case InvalidMessageMode:
		return "InvalidMessageMode"
	case InvalidDomain:
		return "InvalidDomain"
	case WritePastEndOfNetBuffer:
		return "WritePastEndOfNetBuffer"
	case WritePastEndOfApplBuffer:
		return "WritePastEndOfApplBuffer"
	case NoBufferAvailable:
		return "NoBufferAvailable"
	case PersistentDataFailure:
		return "PersistentDataFailure"
	case StackNotInitialized:
		return "StackNotInitialized"
	case UnknownPdu:
		return "UnknownPdu"
	default:
		return fmt.Sprintf("Unknown(%d)", c)
	}
}

// Error is the concrete error type carried by every layer. It wraps a Code
// with a short message and, optionally, the cause that triggered it.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap allows errors.Is/errors.As to see through to the cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an *Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates an *Error with the given code and message, wrapping cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Is reports whether err is a *Error carrying the given code. This lets
// call sites write `lonerr.Is(err, lonerr.InvalidDomain)` instead of a type
// assertion plus field comparison.
func Is(err error, code Code) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == code
}
