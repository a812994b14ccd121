package session

import "strings"

// Flag is one independently settable status bit.
type Flag uint16

const (
	AttClientError Flag = 1 << iota
	NotificationPending
	// AttClientPending is set while the caller waits for the event that
	// completes an asynchronous command.
	AttClientPending
	ValuePending
	CommandError
	CommandPending
)

var flagNames = []struct {
	flag Flag
	name string
}{
	{CommandPending, "command_pending"},
	{CommandError, "command_error"},
	{AttClientPending, "attclient_pending"},
	{AttClientError, "attclient_error"},
	{NotificationPending, "notification_pending"},
	{ValuePending, "value_pending"},
}

func (f Flag) String() string {
	return FlagSet{bits: f}.String()
}

// FlagSet is the status bitfield waits and handlers communicate through.
type FlagSet struct {
	bits Flag
}

func (s *FlagSet) Set(f Flag) {
	s.bits |= f
}

func (s *FlagSet) Clear(f Flag) {
	s.bits &^= f
}

// Has reports whether every bit in f is set.
func (s FlagSet) Has(f Flag) bool {
	return f != 0 && s.bits&f == f
}

// Take clears f and reports whether it was set.
func (s *FlagSet) Take(f Flag) bool {
	ok := s.Has(f)
	s.Clear(f)
	return ok
}

func (s *FlagSet) Reset() {
	s.bits = 0
}

func (s FlagSet) Bits() Flag {
	return s.bits
}

func (s FlagSet) String() string {
	if s.bits == 0 {
		return "none"
	}
	parts := make([]string, 0, len(flagNames))
	for _, n := range flagNames {
		if s.bits&n.flag != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}
