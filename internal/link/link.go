package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/danmuck/bglink/internal/observability"
	"github.com/danmuck/bglink/internal/protocol"
	"github.com/danmuck/bglink/internal/protocol/dispatch"
	"github.com/danmuck/bglink/internal/protocol/frame"
	"github.com/danmuck/bglink/internal/protocol/session"
	"github.com/rs/zerolog"
)

var (
	ErrWaitTimeout    = errors.New("link: wait timed out")
	ErrWaitInProgress = errors.New("link: wait already in progress")
)

// Phase is the wait state machine.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAwaitingResponse
	PhaseAwaitingEvent
	PhaseFailed
	PhaseSatisfied
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAwaitingResponse:
		return "awaiting_response"
	case PhaseAwaitingEvent:
		return "awaiting_event"
	case PhaseFailed:
		return "failed"
	case PhaseSatisfied:
		return "satisfied"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Dispatcher reads and dispatches one frame per call.
type Dispatcher interface {
	ReadAndDispatch() (dispatch.Outcome, error)
}

// Link couples the outbound writer, the dispatcher and the session it mutates.
type Link struct {
	w      io.Writer
	d      Dispatcher
	state  *session.State
	cfg    session.Config
	limits frame.Limits
	phase  Phase
	logger zerolog.Logger
}

func New(w io.Writer, d Dispatcher, st *session.State, cfg session.Config, logger zerolog.Logger) *Link {
	if w == nil || d == nil || st == nil {
		panic("link: writer, dispatcher and state are required")
	}
	return &Link{
		w:      w,
		d:      d,
		state:  st,
		cfg:    cfg.WithDefaults(),
		limits: frame.DefaultLimits(),
		logger: logger.With().Str("component", "link").Logger(),
	}
}

// Open builds a link over a duplex transport with a dispatcher resolving
// through reg.
func Open(rw io.ReadWriter, reg dispatch.Resolver, st *session.State, cfg session.Config, logger zerolog.Logger) *Link {
	d := dispatch.New(rw, reg, st, frame.DefaultLimits(), logger)
	return New(rw, d, st, cfg, logger)
}

func (l *Link) State() *session.State {
	return l.state
}

func (l *Link) Phase() Phase {
	return l.phase
}

// Arm sets pending flags ahead of a wait.
func (l *Link) Arm(f session.Flag) {
	l.state.Flags.Set(f)
}

// SendCommand arms CommandPending, plus AttClientPending for commands that
// complete with an event, then writes the frame. Arming before the write
// means a response dispatched early is never missed by the following wait.
func (l *Link) SendCommand(cmd protocol.Command) error {
	l.state.Flags.Clear(session.CommandError)
	l.state.Flags.Set(session.CommandPending)
	if cmd.ExpectsEvent {
		l.state.Flags.Clear(session.AttClientError)
		l.state.Flags.Set(session.AttClientPending)
	}
	f := frame.Frame{
		Header:  frame.Header{Type: frame.MessageCommand, Class: cmd.Class, Command: cmd.ID},
		Payload: cmd.Payload,
	}
	l.logger.Debug().
		Str("command", cmd.Name).
		Uint8("class", cmd.Class).
		Uint8("id", cmd.ID).
		Hex("payload", cmd.Payload).
		Msg("send")
	if err := l.SendRaw(f); err != nil {
		l.phase = PhaseFailed
		return fmt.Errorf("send %s: %w", cmd.Name, err)
	}
	return nil
}

// SendRaw writes a frame without touching any flag.
func (l *Link) SendRaw(f frame.Frame) error {
	if err := frame.WriteFrame(l.w, f, l.limits); err != nil {
		if errors.Is(err, protocol.ErrTransport) {
			observability.RecordTransportError("write")
		}
		return err
	}
	return nil
}

// WaitForResponse blocks until the response handler clears CommandPending.
// It returns immediately when the flag is already clear.
func (l *Link) WaitForResponse(ctx context.Context) error {
	return l.wait(ctx, session.CommandPending, PhaseAwaitingResponse, "response")
}

// WaitForEvent blocks until a completion event clears AttClientPending.
func (l *Link) WaitForEvent(ctx context.Context) error {
	return l.wait(ctx, session.AttClientPending, PhaseAwaitingEvent, "event")
}

// Poll dispatches frames until one non-idle frame was handled.
func (l *Link) Poll(ctx context.Context) (dispatch.Outcome, error) {
	idle := 0
	for {
		if err := ctx.Err(); err != nil {
			return dispatch.OutcomeIdle, err
		}
		out, err := l.d.ReadAndDispatch()
		if err != nil {
			return out, err
		}
		if out != dispatch.OutcomeIdle {
			return out, nil
		}
		idle++
		if err := sleep(ctx, session.NextIdleDelay(l.cfg.IdleBackoff, idle)); err != nil {
			return dispatch.OutcomeIdle, err
		}
	}
}

// Drain dispatches frames already waiting on the transport and returns how
// many were handled once a read comes back empty.
func (l *Link) Drain(ctx context.Context) (int, error) {
	n := 0
	for {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		out, err := l.d.ReadAndDispatch()
		if err != nil {
			return n, err
		}
		if out == dispatch.OutcomeIdle {
			return n, nil
		}
		n++
	}
}

func (l *Link) wait(ctx context.Context, flag session.Flag, phase Phase, kind string) error {
	if l.phase == PhaseAwaitingResponse || l.phase == PhaseAwaitingEvent {
		return fmt.Errorf("%w: %s requested during %s", ErrWaitInProgress, kind, l.phase)
	}
	if l.cfg.WaitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.cfg.WaitTimeout)
		defer cancel()
	}

	start := time.Now()
	l.phase = phase
	idle := 0
	for l.state.Flags.Has(flag) {
		if err := ctx.Err(); err != nil {
			return l.fail(kind, start, waitError(kind, err))
		}
		out, err := l.d.ReadAndDispatch()
		if err != nil {
			return l.fail(kind, start, err)
		}
		if out != dispatch.OutcomeIdle {
			idle = 0
			continue
		}
		idle++
		if err := sleep(ctx, session.NextIdleDelay(l.cfg.IdleBackoff, idle)); err != nil {
			return l.fail(kind, start, waitError(kind, err))
		}
	}
	l.phase = PhaseSatisfied
	observability.RecordWait(kind, PhaseSatisfied.String(), time.Since(start))
	return nil
}

func (l *Link) fail(kind string, start time.Time, err error) error {
	l.phase = PhaseFailed
	observability.RecordWait(kind, PhaseFailed.String(), time.Since(start))
	l.logger.Error().
		Err(err).
		Str("wait", kind).
		Stringer("flags", l.state.Flags).
		Msg("wait failed")
	return err
}

func waitError(kind string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %w", ErrWaitTimeout, kind, err)
	}
	return fmt.Errorf("link: %s wait: %w", kind, err)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
