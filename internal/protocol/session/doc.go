// Package session owns the single-connection state the link mutates while
// frames are dispatched.
//
// Ownership boundary:
// - connection descriptor and its lifecycle transitions
// - attribute-client descriptor and the reused value buffer
// - pending/error flag set shared by waits and handlers
// - wait and idle-poll defaults
//
// State is not safe for concurrent use. It is touched only from the goroutine
// that drives the link, and only inside dispatch.
package session
