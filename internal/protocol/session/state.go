package session

// DiscoveryKind names what a discovery event reported.
type DiscoveryKind string

const (
	DiscoveredGroup       DiscoveryKind = "group"
	DiscoveredInformation DiscoveryKind = "information"
)

// Discovery is one attribute range or descriptor reported by the remote.
type Discovery struct {
	Kind  DiscoveryKind
	Start uint16
	End   uint16
	UUID  []byte
}

// State is the process-wide session: one connection, one attribute client
// and the status flags.
type State struct {
	Conn       Connection
	Att        AttClient
	Flags      FlagSet
	Discovered []Discovery
}

// New builds the session once at startup. valueCap sizes the attribute value
// buffer; non-positive uses the default.
func New(params ConnectionParams, valueCap int) *State {
	if valueCap <= 0 {
		valueCap = DefaultConfig().ValueCapacity
	}
	return &State{
		Conn: Connection{ConnectionParams: params, state: ConnInit},
		Att:  newAttClient(valueCap),
	}
}

// RecordDiscovery appends a discovery, copying the uuid out of the receive buffer.
func (s *State) RecordDiscovery(kind DiscoveryKind, start, end uint16, uuid []byte) {
	s.Discovered = append(s.Discovered, Discovery{
		Kind:  kind,
		Start: start,
		End:   end,
		UUID:  append([]byte(nil), uuid...),
	})
}
