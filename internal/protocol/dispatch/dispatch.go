// Package dispatch reads one frame at a time from the transport and routes it
// to its registered handler.
package dispatch

import (
	"errors"
	"fmt"
	"io"

	"github.com/danmuck/bglink/internal/observability"
	"github.com/danmuck/bglink/internal/protocol"
	"github.com/danmuck/bglink/internal/protocol/frame"
	"github.com/danmuck/bglink/internal/protocol/registry"
	"github.com/danmuck/bglink/internal/protocol/session"
	"github.com/rs/zerolog"
)

// Outcome describes what one ReadAndDispatch call did.
type Outcome int

const (
	OutcomeIdle Outcome = iota
	OutcomeDispatched
	OutcomeUnknown
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIdle:
		return "idle"
	case OutcomeDispatched:
		return "dispatched"
	case OutcomeUnknown:
		return "unknown"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Resolver looks up the handler for a header key. *registry.Registry
// satisfies it.
type Resolver interface {
	Lookup(key registry.Key) (registry.Entry, bool)
}

// Dispatcher owns the fixed receive buffer. Payloads handed to handlers alias
// it and are overwritten by the next read.
type Dispatcher struct {
	r      io.Reader
	reg    Resolver
	state  *session.State
	buf    []byte
	logger zerolog.Logger
}

func New(r io.Reader, reg Resolver, st *session.State, limits frame.Limits, logger zerolog.Logger) *Dispatcher {
	if r == nil || reg == nil || st == nil {
		panic("dispatch: reader, registry and state are required")
	}
	if limits.MaxPayloadBytes <= 0 {
		limits = frame.DefaultLimits()
	}
	return &Dispatcher{
		r:      r,
		reg:    reg,
		state:  st,
		buf:    make([]byte, limits.MaxPayloadBytes),
		logger: logger.With().Str("component", "dispatch").Logger(),
	}
}

func (d *Dispatcher) State() *session.State {
	return d.state
}

// ReadAndDispatch reads one frame and runs its handler. Reading nothing is
// OutcomeIdle; an unregistered key is logged and reported as OutcomeUnknown.
// Only transport failures and protocol violations return an error.
func (d *Dispatcher) ReadAndDispatch() (Outcome, error) {
	f, err := frame.ReadFrameInto(d.r, d.buf)
	if errors.Is(err, frame.ErrNoData) {
		return OutcomeIdle, nil
	}
	if err != nil {
		op := "read"
		var te *protocol.TransportError
		if errors.As(err, &te) {
			op = te.Op
		} else if errors.Is(err, protocol.ErrProtocolViolation) {
			op = "protocol"
		}
		observability.RecordTransportError(op)
		d.logger.Error().Err(err).Msg("frame read failed")
		return OutcomeFailed, err
	}

	h := f.Header
	entry, ok := d.reg.Lookup(registry.KeyOf(h))
	if !ok {
		unknown := &protocol.UnknownMessageError{Type: h.Type.String(), Class: h.Class, Command: h.Command}
		observability.RecordFrame(h.Type.String(), h.Class, h.Command, OutcomeUnknown.String())
		d.logger.Warn().
			Err(unknown).
			Uint16("len", h.PayloadLen).
			Msg("message not found")
		return OutcomeUnknown, nil
	}

	if err := entry.Handler.Handle(f.Payload, d.state); err != nil {
		observability.RecordHandlerError(entry.Name)
		d.logger.Warn().
			Err(err).
			Str("handler", entry.Name).
			Hex("payload", f.Payload).
			Msg("handler failed")
	}
	observability.RecordFrame(h.Type.String(), h.Class, h.Command, OutcomeDispatched.String())
	d.logger.Debug().
		Str("handler", entry.Name).
		Uint16("len", h.PayloadLen).
		Stringer("flags", d.state.Flags).
		Msg("dispatched")
	return OutcomeDispatched, nil
}
