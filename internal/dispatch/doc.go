// Package dispatch fans one message out to many recipients.
//
// A Dispatch call is a single-pass, stateless operation: it sends the
// message to every recipient exactly once over the injected Sender,
// waits for all sends to resolve, and returns an aggregate tally.
// Individual delivery failures are absorbed into the tally; they never
// fail the call and are never retried.
package dispatch
