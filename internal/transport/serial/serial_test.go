package serial

import (
	"errors"
	"testing"

	bugserial "go.bug.st/serial"
)

func TestDefaultProfileMode(t *testing.T) {
	mode, err := DefaultProfile().Mode()
	if err != nil {
		t.Fatalf("mode: %v", err)
	}
	if mode.BaudRate != 57600 || mode.DataBits != 8 {
		t.Fatalf("unexpected mode: %+v", mode)
	}
	if mode.Parity != bugserial.NoParity || mode.StopBits != bugserial.OneStopBit {
		t.Fatalf("unexpected framing: %+v", mode)
	}
	if !DefaultProfile().RTS {
		t.Fatalf("rts should be asserted by default")
	}
}

func TestProfileModeVariants(t *testing.T) {
	p := DefaultProfile()
	p.Parity = "EVEN"
	p.StopBits = 2
	mode, err := p.Mode()
	if err != nil {
		t.Fatalf("mode: %v", err)
	}
	if mode.Parity != bugserial.EvenParity || mode.StopBits != bugserial.TwoStopBits {
		t.Fatalf("unexpected framing: %+v", mode)
	}
}

func TestProfileModeRejectsInvalid(t *testing.T) {
	cases := map[string]func(*Profile){
		"baud":      func(p *Profile) { p.Baud = 0 },
		"data_bits": func(p *Profile) { p.DataBits = 9 },
		"parity":    func(p *Profile) { p.Parity = "mark" },
		"stop_bits": func(p *Profile) { p.StopBits = 3 },
	}
	for name, mutate := range cases {
		p := DefaultProfile()
		mutate(&p)
		if _, err := p.Mode(); !errors.Is(err, ErrInvalidProfile) {
			t.Errorf("%s: expected ErrInvalidProfile, got %v", name, err)
		}
	}
}

func TestOpenMissingPort(t *testing.T) {
	if _, err := Open("/dev/bglink-does-not-exist", DefaultProfile()); err == nil {
		t.Fatalf("expected error opening missing port")
	}
}
