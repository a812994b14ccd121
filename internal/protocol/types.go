package protocol

// Command is one encoded host->device request.
type Command struct {
	Name    string
	Class   uint8
	ID      uint8
	Payload []byte
	// ExpectsEvent marks commands whose real effect arrives as a separate
	// event frame after the response.
	ExpectsEvent bool
}
