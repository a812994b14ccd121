// Package link is the upstream surface sequential callers drive: send one
// command, then block until its response or completion event has been
// dispatched.
//
// Waits are strictly serialized. One command is outstanding at a time and a
// new wait is never started before the previous one returned; a wait issued
// from inside a handler fails with ErrWaitInProgress. Frames that arrive
// interleaved (a response and an unrelated event) are dispatched in order
// and may clear or set any flag, so callers arm exactly the flags they wait on.
package link
