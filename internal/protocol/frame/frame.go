package frame

import (
	"errors"
	"fmt"
	"io"

	"github.com/danmuck/bglink/internal/protocol"
)

const (
	HeaderLen = 4

	// MaxEncodableLen is the largest length the 3+8 bit length field can carry.
	MaxEncodableLen = 0x07ff

	flagEvent   uint8 = 0x80
	techShift         = 3
	techMask    uint8 = 0x0f
	lenHighMask uint8 = 0x07
)

// Technology types carried in the header.
const (
	TechBluetoothSmart uint8 = 0
	TechWiFi           uint8 = 1
)

var (
	ErrNoData          = errors.New("frame: no data")
	ErrShortHeader     = errors.New("frame: short header")
	ErrPayloadTooLarge = errors.New("frame: payload too large")
)

// MessageType classifies a frame. Commands and responses share the same wire
// bit; direction decides which one a zero bit means.
type MessageType uint8

const (
	MessageCommand MessageType = iota
	MessageResponse
	MessageEvent
)

func (t MessageType) String() string {
	switch t {
	case MessageCommand:
		return "command"
	case MessageResponse:
		return "response"
	case MessageEvent:
		return "event"
	default:
		return fmt.Sprintf("message(%d)", uint8(t))
	}
}

// Header is the fixed wire header.
type Header struct {
	Type       MessageType
	Technology uint8
	PayloadLen uint16
	Class      uint8
	Command    uint8
}

// Frame is one complete wire message.
type Frame struct {
	Header  Header
	Payload []byte
}

// Limits constrains frame decode/encode memory use.
type Limits struct {
	MaxPayloadBytes int
}

func DefaultLimits() Limits {
	return Limits{MaxPayloadBytes: 256}
}

func EncodeHeader(h Header) [HeaderLen]byte {
	var b [HeaderLen]byte
	if h.Type == MessageEvent {
		b[0] |= flagEvent
	}
	b[0] |= (h.Technology & techMask) << techShift
	b[0] |= uint8(h.PayloadLen>>8) & lenHighMask
	b[1] = uint8(h.PayloadLen)
	b[2] = h.Class
	b[3] = h.Command
	return b
}

// DecodeHeader decodes a device->host header: the clear kind bit is a response.
func DecodeHeader(b [HeaderLen]byte) Header {
	return decodeHeader(b, MessageResponse)
}

// DecodeCommandHeader decodes a host->device header: the clear kind bit is a command.
func DecodeCommandHeader(b [HeaderLen]byte) Header {
	return decodeHeader(b, MessageCommand)
}

func decodeHeader(b [HeaderLen]byte, plain MessageType) Header {
	h := Header{
		Type:       plain,
		Technology: (b[0] >> techShift) & techMask,
		PayloadLen: uint16(b[0]&lenHighMask)<<8 | uint16(b[1]),
		Class:      b[2],
		Command:    b[3],
	}
	if b[0]&flagEvent != 0 {
		h.Type = MessageEvent
	}
	return h
}

// ReadHeader reads one header. A first read that yields nothing (read timeout
// or clean EOF) returns ErrNoData; once a byte has arrived the rest of the
// header is read to completion.
func ReadHeader(r io.Reader) ([HeaderLen]byte, error) {
	var b [HeaderLen]byte
	n, err := r.Read(b[:])
	if n == 0 {
		if err == nil || errors.Is(err, io.EOF) {
			return b, ErrNoData
		}
		return b, &protocol.TransportError{Op: "read header", Err: err}
	}
	if n < HeaderLen {
		if err != nil && !errors.Is(err, io.EOF) {
			return b, &protocol.TransportError{Op: "read header", Err: err}
		}
		if err == nil {
			_, err = io.ReadFull(r, b[n:])
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				err = ErrShortHeader
			}
			return b, &protocol.TransportError{Op: "read header", Err: err}
		}
	}
	return b, nil
}

// ReadFrameInto reads a device->host frame whose payload lands in buf. The
// returned payload aliases buf and is valid until the next read; len(buf) is
// the receive capacity.
func ReadFrameInto(r io.Reader, buf []byte) (Frame, error) {
	return readFrame(r, buf, DecodeHeader)
}

// ReadFrame reads a device->host frame into a fresh buffer.
func ReadFrame(r io.Reader, limits Limits) (Frame, error) {
	return readFrame(r, make([]byte, limits.MaxPayloadBytes), DecodeHeader)
}

// ReadCommandFrame reads a host->device frame, as a radio would.
func ReadCommandFrame(r io.Reader, limits Limits) (Frame, error) {
	return readFrame(r, make([]byte, limits.MaxPayloadBytes), DecodeCommandHeader)
}

func readFrame(r io.Reader, buf []byte, decode func([HeaderLen]byte) Header) (Frame, error) {
	raw, err := ReadHeader(r)
	if err != nil {
		return Frame{}, err
	}
	h := decode(raw)
	if int(h.PayloadLen) > len(buf) {
		return Frame{Header: h}, &protocol.ProtocolViolationError{Declared: int(h.PayloadLen), Limit: len(buf)}
	}
	payload := buf[:h.PayloadLen]
	if h.PayloadLen > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return Frame{Header: h}, &protocol.TransportError{Op: "read payload", Err: err}
		}
	}
	return Frame{Header: h, Payload: payload}, nil
}

// WriteFrame writes header and payload in a single write. PayloadLen is taken
// from the payload.
func WriteFrame(w io.Writer, f Frame, limits Limits) error {
	n := len(f.Payload)
	if n > limits.MaxPayloadBytes || n > MaxEncodableLen {
		return fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, n)
	}
	h := f.Header
	h.PayloadLen = uint16(n)
	hb := EncodeHeader(h)

	out := make([]byte, 0, HeaderLen+n)
	out = append(out, hb[:]...)
	out = append(out, f.Payload...)
	if _, err := w.Write(out); err != nil {
		return &protocol.TransportError{Op: "write", Err: err}
	}
	return nil
}
