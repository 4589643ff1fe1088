/*
Package controlplane implements the data plane's side of the streaming
configuration subscription: a gRPC server-streaming call that sends one
Node handshake and then receives an unbounded sequence of ConfigSnapshot
messages.

# Two loops

Bootstrap blocks the caller until the first usable snapshot (non-empty
Listeners) arrives, retrying the whole connect-and-stream sequence every 2
seconds on any failure or unusable snapshot. It is meant to be called once,
synchronously, from internal/bootstrap, and it does not give up on its own:
only cancelling its context or killing the process stops it short of
success.

Run is the steady-state background loop: it keeps the stream open, and on
every subsequent snapshot it validates and publishes into a
configstore.Store. On disconnect it reconnects with a 5 second backoff.
Malformed snapshots (failing Validate) are logged and dropped; the
previously published snapshot stays in force. Run is meant to be started
once in its own goroutine after bootstrap succeeds.
*/
package controlplane
