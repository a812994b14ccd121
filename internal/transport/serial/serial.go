// Package serial opens the radio's serial port with the framing the BGAPI
// link expects.
package serial

import (
	"errors"
	"fmt"
	"strings"
	"time"

	bugserial "go.bug.st/serial"
)

var ErrInvalidProfile = errors.New("serial: invalid profile")

// Parity names accepted by Profile.
const (
	ParityNone = "none"
	ParityOdd  = "odd"
	ParityEven = "even"
)

// Profile is the line configuration of the port.
type Profile struct {
	Baud        int
	DataBits    int
	Parity      string
	StopBits    int
	RTS         bool
	ReadTimeout time.Duration
}

// DefaultProfile is 57600 8N1 with RTS asserted.
func DefaultProfile() Profile {
	return Profile{
		Baud:        57600,
		DataBits:    8,
		Parity:      ParityNone,
		StopBits:    1,
		RTS:         true,
		ReadTimeout: 100 * time.Millisecond,
	}
}

// Mode converts the profile into the driver's mode.
func (p Profile) Mode() (*bugserial.Mode, error) {
	if p.Baud <= 0 {
		return nil, fmt.Errorf("%w: baud %d", ErrInvalidProfile, p.Baud)
	}
	if p.DataBits < 5 || p.DataBits > 8 {
		return nil, fmt.Errorf("%w: data bits %d", ErrInvalidProfile, p.DataBits)
	}
	mode := &bugserial.Mode{BaudRate: p.Baud, DataBits: p.DataBits}
	switch strings.ToLower(strings.TrimSpace(p.Parity)) {
	case "", ParityNone:
		mode.Parity = bugserial.NoParity
	case ParityOdd:
		mode.Parity = bugserial.OddParity
	case ParityEven:
		mode.Parity = bugserial.EvenParity
	default:
		return nil, fmt.Errorf("%w: parity %q", ErrInvalidProfile, p.Parity)
	}
	switch p.StopBits {
	case 1:
		mode.StopBits = bugserial.OneStopBit
	case 2:
		mode.StopBits = bugserial.TwoStopBits
	default:
		return nil, fmt.Errorf("%w: stop bits %d", ErrInvalidProfile, p.StopBits)
	}
	return mode, nil
}

// Port is an open serial line. A read that times out returns 0, nil, which
// the frame reader reports as no data.
type Port struct {
	name string
	port bugserial.Port
}

// Open opens name with profile p.
func Open(name string, p Profile) (*Port, error) {
	mode, err := p.Mode()
	if err != nil {
		return nil, err
	}
	port, err := bugserial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w", name, err)
	}
	if p.ReadTimeout > 0 {
		if err := port.SetReadTimeout(p.ReadTimeout); err != nil {
			port.Close()
			return nil, fmt.Errorf("serial: set read timeout: %w", err)
		}
	}
	if err := port.SetRTS(p.RTS); err != nil {
		port.Close()
		return nil, fmt.Errorf("serial: set rts: %w", err)
	}
	return &Port{name: name, port: port}, nil
}

func (p *Port) Name() string {
	return p.name
}

func (p *Port) Read(b []byte) (int, error) {
	return p.port.Read(b)
}

func (p *Port) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

// Drain blocks until everything written has been transmitted.
func (p *Port) Drain() error {
	return p.port.Drain()
}

func (p *Port) Close() error {
	return p.port.Close()
}

// Ports lists the serial ports present on the host.
func Ports() ([]string, error) {
	return bugserial.GetPortsList()
}
