package fakeradio

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/danmuck/bglink/internal/protocol/frame"
)

func TestRadioRepliesToScriptedCommand(t *testing.T) {
	r := New()
	r.On(6, 4, Response(6, 4, 0x00, 0x00))

	cmd := frame.Frame{Header: frame.Header{Type: frame.MessageCommand, Class: 6, Command: 4}}
	if err := frame.WriteFrame(r, cmd, frame.DefaultLimits()); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := frame.ReadFrame(r, frame.DefaultLimits())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Header.Type != frame.MessageResponse || got.Header.Class != 6 || got.Header.Command != 4 {
		t.Fatalf("unexpected header: %+v", got.Header)
	}
	if !bytes.Equal(got.Payload, []byte{0x00, 0x00}) {
		t.Fatalf("payload: %x", got.Payload)
	}
	if cmds := r.Commands(); len(cmds) != 1 || cmds[0].Header.Class != 6 {
		t.Fatalf("commands: %+v", cmds)
	}
}

func TestRadioIdleAndFailure(t *testing.T) {
	r := New()
	buf := make([]byte, 4)
	if n, err := r.Read(buf); n != 0 || err != nil {
		t.Fatalf("idle read: n=%d err=%v", n, err)
	}
	if _, err := frame.ReadFrame(r, frame.DefaultLimits()); !errors.Is(err, frame.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	r.Push(Event(0, 0))
	r.FailReads(io.ErrUnexpectedEOF)
	if _, err := frame.ReadFrame(r, frame.DefaultLimits()); err != nil {
		t.Fatalf("queued frame: %v", err)
	}
	if _, err := r.Read(buf); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected read failure, got %v", err)
	}
}

func TestRadioRejectsResponsesFromHost(t *testing.T) {
	r := New()
	// An event-bit frame written by the host is not a command.
	if _, err := r.Write([]byte{0x80, 0x00, 0x00, 0x00}); err == nil {
		t.Fatalf("expected error for event frame from host")
	}
}
