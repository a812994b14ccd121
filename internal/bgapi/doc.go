// Package bgapi is the message catalog for the BLE112 serial API: class and
// command ids, command encoders and the response/event handlers that update
// the session.
//
// Only the messages the link's callers use are covered. Anything else
// arriving from the radio resolves to no handler and is logged by the
// dispatcher.
package bgapi
