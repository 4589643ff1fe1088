/*
Package bootstrap wires the data plane's components together and owns
process lifecycle: blocking on the first valid config snapshot, materializing
per-listener TLS material, opening the bootstrap snapshot's listeners, and
spawning the control-plane client's background refresh loop.

Run is the single entry point cmd/agwd calls. It never returns until ctx is
cancelled, except on an irrecoverable startup failure: the resources file
cannot be read or parsed, or no listener could be bound and no fallback
installed.
*/
package bootstrap
