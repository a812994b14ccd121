// Package fakeradio is an in-memory radio for link tests. Commands written by
// the host are decoded and answered with scripted frames; reads never block
// and return 0, nil when nothing is queued.
package fakeradio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/danmuck/bglink/internal/protocol/frame"
)

// Reply builds the frames the radio sends back for one host command.
type Reply func(cmd frame.Frame) []frame.Frame

type key struct {
	class   uint8
	command uint8
}

// Radio implements io.ReadWriter from the host's point of view.
type Radio struct {
	mu       sync.Mutex
	rx       bytes.Buffer
	replies  map[key]Reply
	commands []frame.Frame
	limits   frame.Limits
	readErr  error
}

func New() *Radio {
	return &Radio{
		replies: make(map[key]Reply),
		limits:  frame.DefaultLimits(),
	}
}

// On answers every (class, command) with the given frames.
func (r *Radio) On(class, command uint8, frames ...frame.Frame) {
	r.OnFunc(class, command, func(frame.Frame) []frame.Frame { return frames })
}

// OnFunc answers (class, command) with whatever fn returns.
func (r *Radio) OnFunc(class, command uint8, fn Reply) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies[key{class, command}] = fn
}

// Push queues unsolicited frames.
func (r *Radio) Push(frames ...frame.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queue(frames)
}

// FailReads makes every later read return err once the queue is drained.
func (r *Radio) FailReads(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readErr = err
}

// Commands returns the host commands received so far.
func (r *Radio) Commands() []frame.Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]frame.Frame(nil), r.commands...)
}

func (r *Radio) Read(b []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rx.Len() == 0 {
		if r.readErr != nil {
			return 0, r.readErr
		}
		return 0, nil
	}
	return r.rx.Read(b)
}

func (r *Radio) Write(b []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	src := bytes.NewReader(b)
	for src.Len() > 0 {
		cmd, err := frame.ReadCommandFrame(src, r.limits)
		if err != nil {
			return len(b) - src.Len(), fmt.Errorf("fakeradio: decode command: %w", err)
		}
		if cmd.Header.Type != frame.MessageCommand {
			return len(b) - src.Len(), errors.New("fakeradio: host sent a non-command frame")
		}
		r.commands = append(r.commands, cmd)
		if fn, ok := r.replies[key{cmd.Header.Class, cmd.Header.Command}]; ok {
			r.queue(fn(cmd))
		}
	}
	return len(b), nil
}

func (r *Radio) queue(frames []frame.Frame) {
	for _, f := range frames {
		if err := frame.WriteFrame(&r.rx, f, r.limits); err != nil {
			panic(fmt.Sprintf("fakeradio: scripted frame: %v", err))
		}
	}
}

// Response builds a device response frame.
func Response(class, command uint8, payload ...byte) frame.Frame {
	return frame.Frame{
		Header:  frame.Header{Type: frame.MessageResponse, Class: class, Command: command},
		Payload: payload,
	}
}

// Event builds a device event frame.
func Event(class, command uint8, payload ...byte) frame.Frame {
	return frame.Frame{
		Header:  frame.Header{Type: frame.MessageEvent, Class: class, Command: command},
		Payload: payload,
	}
}

var _ io.ReadWriter = (*Radio)(nil)
