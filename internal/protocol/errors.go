package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrTransport         = errors.New("protocol: transport failure")
	ErrUnknownMessage    = errors.New("protocol: unknown message")
	ErrProtocolViolation = errors.New("protocol: protocol violation")
	ErrShortPayload      = errors.New("protocol: short payload")
)

// TransportError wraps an I/O failure on the byte stream. It is fatal to the
// operation that observed it.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("protocol: transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// ProtocolViolationError reports a frame that declares more payload than the
// receive buffer can hold.
type ProtocolViolationError struct {
	Declared int
	Limit    int
}

func (e *ProtocolViolationError) Error() string {
	return fmt.Sprintf("protocol: declared payload %d exceeds receive buffer %d", e.Declared, e.Limit)
}

func (e *ProtocolViolationError) Is(target error) bool {
	return target == ErrProtocolViolation
}

// UnknownMessageError names the header key that resolved to no handler.
type UnknownMessageError struct {
	Type    string
	Class   uint8
	Command uint8
}

func (e *UnknownMessageError) Error() string {
	return fmt.Sprintf("protocol: unknown message %s class=%d command=%d", e.Type, e.Class, e.Command)
}

func (e *UnknownMessageError) Is(target error) bool {
	return target == ErrUnknownMessage
}

// IsFatal reports whether err must abort the running wait.
func IsFatal(err error) bool {
	return errors.Is(err, ErrTransport) || errors.Is(err, ErrProtocolViolation)
}
