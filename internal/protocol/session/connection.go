package session

import (
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	ErrInvalidTransition = errors.New("session: invalid connection transition")
	ErrInvalidAddress    = errors.New("session: invalid address")
)

// Address is a 6-byte device address in wire order (least significant byte first).
type Address [6]byte

// ParseAddress parses the display form "00:07:80:6a:f2:8b" into wire order.
func ParseAddress(raw string) (Address, error) {
	var a Address
	clean := strings.NewReplacer(":", "", "-", "").Replace(strings.TrimSpace(raw))
	b, err := hex.DecodeString(clean)
	if err != nil || len(b) != len(a) {
		return Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, raw)
	}
	for i := range a {
		a[i] = b[len(b)-1-i]
	}
	return a, nil
}

// String renders the address in display order.
func (a Address) String() string {
	parts := make([]string, len(a))
	for i := range a {
		parts[i] = hex.EncodeToString([]byte{a[len(a)-1-i]})
	}
	return strings.Join(parts, ":")
}

// ConnState is the connection lifecycle.
type ConnState uint8

const (
	ConnInit ConnState = iota
	ConnFound
	ConnConnecting
	ConnConnected
	ConnDisconnected
)

func (s ConnState) String() string {
	switch s {
	case ConnInit:
		return "init"
	case ConnFound:
		return "found"
	case ConnConnecting:
		return "connecting"
	case ConnConnected:
		return "connected"
	case ConnDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("conn_state(%d)", uint8(s))
	}
}

// The radio may report an already established link on a status query, so
// init and found may move straight to connected.
var connTransitions = map[ConnState][]ConnState{
	ConnInit:         {ConnFound, ConnConnecting, ConnConnected, ConnDisconnected},
	ConnFound:        {ConnConnecting, ConnConnected},
	ConnConnecting:   {ConnConnected, ConnDisconnected, ConnInit},
	ConnConnected:    {ConnDisconnected},
	ConnDisconnected: {ConnConnecting, ConnConnected, ConnInit},
}

// ConnectionParams are the caller-chosen link settings.
type ConnectionParams struct {
	Target      Address
	AddrType    uint8
	IntervalMin uint16
	IntervalMax uint16
	Timeout     uint16
	Latency     uint16
}

// Connection is the connection descriptor. Handle is meaningful only while
// the state is ConnConnected.
type Connection struct {
	ConnectionParams
	state  ConnState
	handle uint8
}

func (c *Connection) State() ConnState {
	return c.state
}

// Handle returns the connection handle and whether it is valid.
func (c *Connection) Handle() (uint8, bool) {
	return c.handle, c.state == ConnConnected
}

// Transition moves the lifecycle to next. Re-entering the current state is a no-op.
func (c *Connection) Transition(next ConnState) error {
	if next == c.state {
		return nil
	}
	if !slices.Contains(connTransitions[c.state], next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.state, next)
	}
	c.state = next
	return nil
}

// MarkConnected records the handle assigned by the radio.
func (c *Connection) MarkConnected(handle uint8) error {
	if err := c.Transition(ConnConnected); err != nil {
		return err
	}
	c.handle = handle
	return nil
}
