package session

import "fmt"

// Attribute value types reported with an attribute value event.
const (
	ValueTypeRead           uint8 = 0
	ValueTypeNotify         uint8 = 1
	ValueTypeIndicate       uint8 = 2
	ValueTypeReadByType     uint8 = 3
	ValueTypeReadBlob       uint8 = 4
	ValueTypeIndicateRspReq uint8 = 5
)

// AttClientState tracks the current attribute-client procedure.
type AttClientState uint8

const (
	AttIdle AttClientState = iota
	AttBusy
	AttCompleted
	AttFailed
)

func (s AttClientState) String() string {
	switch s {
	case AttIdle:
		return "idle"
	case AttBusy:
		return "busy"
	case AttCompleted:
		return "completed"
	case AttFailed:
		return "failed"
	default:
		return fmt.Sprintf("attclient_state(%d)", uint8(s))
	}
}

// AttClient is the attribute-client descriptor. The value buffer is allocated
// once and overwritten by every value-bearing frame.
type AttClient struct {
	State      AttClientState
	Handle     uint16
	ValueType  uint8
	LastResult uint16

	buf []byte
	n   int
}

func newAttClient(capacity int) AttClient {
	return AttClient{buf: make([]byte, capacity)}
}

// SetValue overwrites the value buffer. It reports false when v did not fit
// and was truncated to the buffer capacity.
func (a *AttClient) SetValue(handle uint16, valueType uint8, v []byte) bool {
	a.Handle = handle
	a.ValueType = valueType
	a.n = copy(a.buf, v)
	return a.n == len(v)
}

// Value aliases the buffer; it is valid until the next dispatch.
func (a *AttClient) Value() []byte {
	return a.buf[:a.n]
}

// CopyValue returns a copy of the current value.
func (a *AttClient) CopyValue() []byte {
	out := make([]byte, a.n)
	copy(out, a.buf[:a.n])
	return out
}

func (a *AttClient) Capacity() int {
	return len(a.buf)
}
