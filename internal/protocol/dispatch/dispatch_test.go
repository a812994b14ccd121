package dispatch

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/danmuck/bglink/internal/protocol"
	"github.com/danmuck/bglink/internal/protocol/frame"
	"github.com/danmuck/bglink/internal/protocol/registry"
	"github.com/danmuck/bglink/internal/protocol/session"
	"github.com/danmuck/bglink/internal/testutil/testlog"
	"github.com/rs/zerolog"
)

type recordingResolver struct {
	inner   *registry.Registry
	lookups []registry.Key
}

func (r *recordingResolver) Lookup(key registry.Key) (registry.Entry, bool) {
	r.lookups = append(r.lookups, key)
	return r.inner.Lookup(key)
}

func encode(t *testing.T, h frame.Header, payload []byte) []byte {
	t.Helper()
	h.PayloadLen = uint16(len(payload))
	hb := frame.EncodeHeader(h)
	return append(hb[:], payload...)
}

func connectHandler() registry.Handler {
	return registry.HandlerFunc(func(payload []byte, st *session.State) error {
		st.Flags.Clear(session.CommandPending)
		return st.Conn.MarkConnected(payload[0])
	})
}

func TestDispatchConnectScenario(t *testing.T) {
	log := testlog.Start(t)
	reg := registry.New()
	if err := reg.Register(registry.Key{Type: frame.MessageResponse, Class: 0, Command: 0x1D}, "connect", connectHandler()); err != nil {
		t.Fatalf("register: %v", err)
	}
	st := session.New(session.ConnectionParams{}, 0)
	st.Flags.Set(session.CommandPending)

	stream := []byte{0x00, 0x03, 0x00, 0x1D, 0x01, 0x02, 0x03}
	d := New(bytes.NewReader(stream), reg, st, frame.DefaultLimits(), log)
	out, err := d.ReadAndDispatch()
	if err != nil || out != OutcomeDispatched {
		t.Fatalf("dispatch: outcome=%s err=%v", out, err)
	}
	if st.Flags.Has(session.CommandPending) {
		t.Fatalf("command pending should be clear")
	}
	if st.Conn.State() != session.ConnConnected {
		t.Fatalf("unexpected connection state: %s", st.Conn.State())
	}
}

func TestDispatchLooksUpOnceAndPassesExactPayload(t *testing.T) {
	log := testlog.Start(t)
	reg := registry.New()
	key := registry.Key{Type: frame.MessageResponse, Class: 4, Command: 5}
	var calls int
	var got []byte
	err := reg.Register(key, "attribute_write", registry.HandlerFunc(func(payload []byte, _ *session.State) error {
		calls++
		got = append([]byte(nil), payload...)
		return nil
	}))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	res := &recordingResolver{inner: reg}
	payload := []byte{0x00, 0x00, 0x00, 0xde, 0xad}
	stream := encode(t, frame.Header{Type: frame.MessageResponse, Class: 4, Command: 5}, payload)
	stream = append(stream, 0x55, 0x66)

	d := New(iotest.HalfReader(bytes.NewReader(stream)), res, session.New(session.ConnectionParams{}, 0), frame.DefaultLimits(), log)
	if _, err := d.ReadAndDispatch(); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(res.lookups) != 1 || res.lookups[0] != key {
		t.Fatalf("unexpected lookups: %v", res.lookups)
	}
	if calls != 1 || !bytes.Equal(got, payload) {
		t.Fatalf("handler calls=%d payload=% x", calls, got)
	}
}

func TestDispatchUnknownMessageIsNonFatal(t *testing.T) {
	log := testlog.Start(t)
	reg := registry.New()
	if err := reg.Register(registry.Key{Type: frame.MessageResponse, Class: 0, Command: 0x1D}, "connect", connectHandler()); err != nil {
		t.Fatalf("register: %v", err)
	}
	st := session.New(session.ConnectionParams{}, 0)
	st.Flags.Set(session.CommandPending)
	before := st.Flags.Bits()

	stream := encode(t, frame.Header{Type: frame.MessageEvent, Class: 9, Command: 9}, []byte{1, 2})
	stream = append(stream, 0x00, 0x01, 0x00, 0x1D, 0x04)
	d := New(bytes.NewReader(stream), reg, st, frame.DefaultLimits(), log)

	out, err := d.ReadAndDispatch()
	if err != nil || out != OutcomeUnknown {
		t.Fatalf("unknown: outcome=%s err=%v", out, err)
	}
	if st.Flags.Bits() != before || st.Conn.State() != session.ConnInit {
		t.Fatalf("unknown message mutated state: flags=%s conn=%s", st.Flags, st.Conn.State())
	}

	out, err = d.ReadAndDispatch()
	if err != nil || out != OutcomeDispatched {
		t.Fatalf("next frame: outcome=%s err=%v", out, err)
	}
	if h, ok := st.Conn.Handle(); !ok || h != 4 {
		t.Fatalf("unexpected handle=%d ok=%v", h, ok)
	}
}

func TestDispatchIdleOnEmptyStream(t *testing.T) {
	log := testlog.Start(t)
	d := New(bytes.NewReader(nil), registry.New(), session.New(session.ConnectionParams{}, 0), frame.DefaultLimits(), log)
	out, err := d.ReadAndDispatch()
	if err != nil || out != OutcomeIdle {
		t.Fatalf("expected idle, got outcome=%s err=%v", out, err)
	}
}

func TestDispatchPayloadBoundary(t *testing.T) {
	log := testlog.Start(t)
	reg := registry.New()
	key := registry.Key{Type: frame.MessageEvent, Class: 4, Command: 5}
	var n int
	err := reg.Register(key, "big", registry.HandlerFunc(func(payload []byte, _ *session.State) error {
		n = len(payload)
		return nil
	}))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	st := session.New(session.ConnectionParams{}, 0)

	ok := encode(t, frame.Header{Type: frame.MessageEvent, Class: 4, Command: 5}, make([]byte, 256))
	d := New(bytes.NewReader(ok), reg, st, frame.DefaultLimits(), log)
	if _, err := d.ReadAndDispatch(); err != nil || n != 256 {
		t.Fatalf("256 byte payload: n=%d err=%v", n, err)
	}

	tooBig := encode(t, frame.Header{Type: frame.MessageEvent, Class: 4, Command: 5}, make([]byte, 257))
	d = New(bytes.NewReader(tooBig), reg, st, frame.DefaultLimits(), log)
	out, err := d.ReadAndDispatch()
	if !errors.Is(err, protocol.ErrProtocolViolation) || out != OutcomeFailed {
		t.Fatalf("expected protocol violation, got outcome=%s err=%v", out, err)
	}
}

func TestDispatchTruncatedPayloadIsTransportError(t *testing.T) {
	log := testlog.Start(t)
	d := New(bytes.NewReader([]byte{0x00, 0x03, 0x00, 0x1D, 0x01}), registry.New(), session.New(session.ConnectionParams{}, 0), frame.DefaultLimits(), log)
	_, err := d.ReadAndDispatch()
	if !errors.Is(err, protocol.ErrTransport) || !protocol.IsFatal(err) {
		t.Fatalf("expected fatal transport error, got %v", err)
	}
}

func TestDispatchHandlerErrorDoesNotAbort(t *testing.T) {
	log := testlog.Start(t)
	reg := registry.New()
	key := registry.Key{Type: frame.MessageResponse, Class: 3, Command: 7}
	err := reg.Register(key, "bad", registry.HandlerFunc(func([]byte, *session.State) error {
		return protocol.ErrShortPayload
	}))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	stream := encode(t, frame.Header{Type: frame.MessageResponse, Class: 3, Command: 7}, nil)
	d := New(bytes.NewReader(stream), reg, session.New(session.ConnectionParams{}, 0), frame.DefaultLimits(), log)
	out, err := d.ReadAndDispatch()
	if err != nil || out != OutcomeDispatched {
		t.Fatalf("handler error should not abort: outcome=%s err=%v", out, err)
	}
}

func TestDispatchLogNamesHandlerField(t *testing.T) {
	testlog.Start(t)
	var logs bytes.Buffer
	logger := zerolog.New(&logs).Level(zerolog.DebugLevel)
	reg := registry.New()
	key := registry.Key{Type: frame.MessageEvent, Class: 4, Command: 1}
	err := reg.Register(key, "evt_attclient_procedure_completed", registry.HandlerFunc(func([]byte, *session.State) error {
		return protocol.ErrShortPayload
	}))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	stream := encode(t, frame.Header{Type: frame.MessageEvent, Class: 4, Command: 1}, []byte{0x00})
	d := New(bytes.NewReader(stream), reg, session.New(session.ConnectionParams{}, 0), frame.DefaultLimits(), logger)
	if _, err := d.ReadAndDispatch(); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if logs.Len() == 0 {
		t.Fatalf("handler failure was not logged")
	}
	lines := strings.Split(strings.TrimSpace(logs.String()), "\n")
	for _, line := range lines {
		if n := strings.Count(line, `"message":`); n != 1 {
			t.Fatalf("line has %d message keys: %s", n, line)
		}
		var fields map[string]any
		if err := json.Unmarshal([]byte(line), &fields); err != nil {
			t.Fatalf("decode log line: %v", err)
		}
		if fields["handler"] != "evt_attclient_procedure_completed" {
			t.Fatalf("handler field missing: %s", line)
		}
	}
}
