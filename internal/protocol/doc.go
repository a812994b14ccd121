// Package protocol owns the link-level contract shared by the frame codec,
// the message registry and the dispatcher.
//
// Ownership boundary:
// - error kinds surfaced to callers (transport, protocol violation, unknown message)
// - outbound command shape
// - little-endian payload field primitives
package protocol
