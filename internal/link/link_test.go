package link

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/danmuck/bglink/internal/protocol"
	"github.com/danmuck/bglink/internal/protocol/dispatch"
	"github.com/danmuck/bglink/internal/protocol/frame"
	"github.com/danmuck/bglink/internal/protocol/registry"
	"github.com/danmuck/bglink/internal/protocol/session"
	"github.com/danmuck/bglink/internal/testutil/testlog"
)

// scriptedDispatcher runs one step per ReadAndDispatch call and reports idle
// once the script is exhausted.
type scriptedDispatcher struct {
	st    *session.State
	steps []func(st *session.State) (dispatch.Outcome, error)
	calls int
}

func (s *scriptedDispatcher) ReadAndDispatch() (dispatch.Outcome, error) {
	s.calls++
	if len(s.steps) == 0 {
		return dispatch.OutcomeIdle, nil
	}
	step := s.steps[0]
	s.steps = s.steps[1:]
	return step(s.st)
}

func stepDispatched(st *session.State) (dispatch.Outcome, error) {
	return dispatch.OutcomeDispatched, nil
}

func stepIdle(st *session.State) (dispatch.Outcome, error) {
	return dispatch.OutcomeIdle, nil
}

func clearFlag(f session.Flag) func(*session.State) (dispatch.Outcome, error) {
	return func(st *session.State) (dispatch.Outcome, error) {
		st.Flags.Clear(f)
		return dispatch.OutcomeDispatched, nil
	}
}

type duplex struct {
	io.Reader
	io.Writer
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("port gone")
}

func newScripted(t *testing.T, cfg session.Config, steps ...func(*session.State) (dispatch.Outcome, error)) (*Link, *scriptedDispatcher) {
	t.Helper()
	st := session.New(session.ConnectionParams{}, 0)
	d := &scriptedDispatcher{st: st, steps: steps}
	return New(io.Discard, d, st, cfg, testlog.Start(t)), d
}

func TestWaitForResponseSatisfiedWhenFlagClears(t *testing.T) {
	l, d := newScripted(t, session.DefaultConfig(), stepDispatched, stepIdle, clearFlag(session.CommandPending))
	l.Arm(session.CommandPending)
	if err := l.WaitForResponse(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if d.calls != 3 {
		t.Fatalf("unexpected dispatch calls: %d", d.calls)
	}
	if l.Phase() != PhaseSatisfied {
		t.Fatalf("unexpected phase: %s", l.Phase())
	}
}

func TestWaitForResponseFailsOnFirstTransportError(t *testing.T) {
	boom := &protocol.TransportError{Op: "read payload", Err: io.ErrUnexpectedEOF}
	l, d := newScripted(t, session.DefaultConfig(),
		func(*session.State) (dispatch.Outcome, error) { return dispatch.OutcomeFailed, boom },
		clearFlag(session.CommandPending),
	)
	l.Arm(session.CommandPending)
	err := l.WaitForResponse(context.Background())
	if !errors.Is(err, protocol.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if d.calls != 1 {
		t.Fatalf("wait should stop at the first error, calls=%d", d.calls)
	}
	if !l.State().Flags.Has(session.CommandPending) {
		t.Fatalf("flag should stay set after a failed wait")
	}
	if l.Phase() != PhaseFailed {
		t.Fatalf("unexpected phase: %s", l.Phase())
	}
}

func TestWaitForResponsePreClearedDoesNotRead(t *testing.T) {
	l, d := newScripted(t, session.DefaultConfig(), stepDispatched)
	if err := l.WaitForResponse(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if d.calls != 0 {
		t.Fatalf("pre-cleared wait must not read, calls=%d", d.calls)
	}
}

func TestWaitForEventUsesEventFlag(t *testing.T) {
	l, d := newScripted(t, session.DefaultConfig(),
		clearFlag(session.CommandPending),
		clearFlag(session.AttClientPending),
	)
	l.Arm(session.AttClientPending)
	if err := l.WaitForEvent(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if d.calls != 2 {
		t.Fatalf("unexpected dispatch calls: %d", d.calls)
	}
}

func TestWaitTimeoutOnSilentLink(t *testing.T) {
	cfg := session.DefaultConfig()
	cfg.WaitTimeout = 20 * time.Millisecond
	l, _ := newScripted(t, cfg)
	l.Arm(session.CommandPending)
	err := l.WaitForResponse(context.Background())
	if !errors.Is(err, ErrWaitTimeout) {
		t.Fatalf("expected ErrWaitTimeout, got %v", err)
	}
	if l.Phase() != PhaseFailed {
		t.Fatalf("unexpected phase: %s", l.Phase())
	}
}

func TestWaitHonorsCancelledContext(t *testing.T) {
	l, d := newScripted(t, session.DefaultConfig(), stepDispatched)
	l.Arm(session.CommandPending)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := l.WaitForResponse(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if d.calls != 0 {
		t.Fatalf("cancelled wait must not read, calls=%d", d.calls)
	}
}

func TestNestedWaitIsRejected(t *testing.T) {
	var nested error
	var l *Link
	l, _ = newScripted(t, session.DefaultConfig(), func(st *session.State) (dispatch.Outcome, error) {
		nested = l.WaitForEvent(context.Background())
		st.Flags.Clear(session.CommandPending)
		return dispatch.OutcomeDispatched, nil
	})
	l.Arm(session.CommandPending)
	if err := l.WaitForResponse(context.Background()); err != nil {
		t.Fatalf("outer wait: %v", err)
	}
	if !errors.Is(nested, ErrWaitInProgress) {
		t.Fatalf("expected ErrWaitInProgress, got %v", nested)
	}
}

func TestSendCommandArmsFlagsAndWritesFrame(t *testing.T) {
	log := testlog.Start(t)
	st := session.New(session.ConnectionParams{}, 0)
	st.Flags.Set(session.CommandError | session.AttClientError)
	var out bytes.Buffer
	l := New(&out, &scriptedDispatcher{st: st}, st, session.DefaultConfig(), log)

	cmd := protocol.Command{Name: "attclient_read_by_type", Class: 4, ID: 2, Payload: []byte{0, 1, 0, 0xff, 0xff, 2, 0x00, 0x2a}, ExpectsEvent: true}
	if err := l.SendCommand(cmd); err != nil {
		t.Fatalf("send: %v", err)
	}
	if !st.Flags.Has(session.CommandPending | session.AttClientPending) {
		t.Fatalf("pending flags not armed: %s", st.Flags)
	}
	if st.Flags.Has(session.CommandError) || st.Flags.Has(session.AttClientError) {
		t.Fatalf("stale error flags not cleared: %s", st.Flags)
	}
	f, err := frame.ReadCommandFrame(&out, frame.DefaultLimits())
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if f.Header.Type != frame.MessageCommand || f.Header.Class != 4 || f.Header.Command != 2 || !bytes.Equal(f.Payload, cmd.Payload) {
		t.Fatalf("unexpected frame: %+v", f)
	}
}

func TestSendCommandWriteFailure(t *testing.T) {
	log := testlog.Start(t)
	st := session.New(session.ConnectionParams{}, 0)
	l := New(failingWriter{}, &scriptedDispatcher{st: st}, st, session.DefaultConfig(), log)
	err := l.SendCommand(protocol.Command{Name: "gap_end_procedure", Class: 6, ID: 4})
	if !errors.Is(err, protocol.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if l.Phase() != PhaseFailed {
		t.Fatalf("unexpected phase: %s", l.Phase())
	}
}

func TestOpenConnectScenarioEndToEnd(t *testing.T) {
	log := testlog.Start(t)
	reg := registry.New()
	err := reg.Register(registry.Key{Type: frame.MessageResponse, Class: 0, Command: 0x1D}, "connect",
		registry.HandlerFunc(func(payload []byte, st *session.State) error {
			st.Flags.Clear(session.CommandPending)
			return st.Conn.MarkConnected(payload[0])
		}))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	st := session.New(session.ConnectionParams{}, 0)
	rx := bytes.NewReader([]byte{0x00, 0x03, 0x00, 0x1D, 0x01, 0x02, 0x03})
	var tx bytes.Buffer
	l := Open(duplex{Reader: rx, Writer: &tx}, reg, st, session.DefaultConfig(), log)

	if err := l.SendCommand(protocol.Command{Name: "connect", Class: 0, ID: 0x1D}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := l.WaitForResponse(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if st.Flags.Has(session.CommandPending) || st.Conn.State() != session.ConnConnected {
		t.Fatalf("unexpected state: flags=%s conn=%s", st.Flags, st.Conn.State())
	}
	if tx.Len() != frame.HeaderLen {
		t.Fatalf("unexpected bytes written: %d", tx.Len())
	}
}

func TestPollReturnsAfterFirstFrame(t *testing.T) {
	l, d := newScripted(t, session.DefaultConfig(), stepIdle, stepIdle, stepDispatched, stepDispatched)
	out, err := l.Poll(context.Background())
	if err != nil || out != dispatch.OutcomeDispatched {
		t.Fatalf("poll: outcome=%s err=%v", out, err)
	}
	if d.calls != 3 {
		t.Fatalf("unexpected dispatch calls: %d", d.calls)
	}
}

func TestDrainStopsAtFirstIdleRead(t *testing.T) {
	l, d := newScripted(t, session.DefaultConfig(), stepDispatched, clearFlag(session.ValuePending), stepIdle, stepDispatched)
	n, err := l.Drain(context.Background())
	if err != nil || n != 2 {
		t.Fatalf("drain: n=%d err=%v", n, err)
	}
	if d.calls != 3 {
		t.Fatalf("unexpected dispatch calls: %d", d.calls)
	}
}

func TestDrainReturnsTransportError(t *testing.T) {
	fail := func(*session.State) (dispatch.Outcome, error) {
		return dispatch.OutcomeFailed, &protocol.TransportError{Op: "read", Err: io.ErrUnexpectedEOF}
	}
	l, _ := newScripted(t, session.DefaultConfig(), stepDispatched, fail)
	n, err := l.Drain(context.Background())
	if n != 1 || !errors.Is(err, protocol.ErrTransport) {
		t.Fatalf("drain: n=%d err=%v", n, err)
	}
}
