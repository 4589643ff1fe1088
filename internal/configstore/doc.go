/*
Package configstore holds the data plane's current ConfigSnapshot behind a
single atomic pointer.

# Architecture

	single writer (control-plane client)          many readers (every request)
	          │                                              │
	          ▼                                              ▼
	   Store.Store(snap)  ───────────►  atomic.Pointer[Snapshot]  ◄─── Store.Load()

Exactly one goroutine ever calls Store: the control-plane client's
background loop (internal/controlplane). Every other goroutine only reads.
atomic.Pointer guarantees a reader observes either the whole old snapshot or
the whole new one — never a torn mix of the two — without taking a lock on
the read path. The old snapshot is not explicitly freed; it simply becomes
unreachable once the last holder drops its reference and the garbage
collector reclaims it, which is enough because nothing here needs
deterministic cleanup (no file handles, no connections) on a superseded
snapshot.
*/
package configstore
