package configstore

import (
	"sync/atomic"

	"github.com/cuemby/agw/internal/gwtypes"
)

// Store holds the current ConfigSnapshot. The zero value is not ready for
// use by readers — call Store at least once (normally from bootstrap)
// before any Load.
type Store struct {
	current atomic.Pointer[gwtypes.ConfigSnapshot]
}

// New returns an empty Store. Load returns nil until the first Store call.
func New() *Store {
	return &Store{}
}

// Load returns the current snapshot. It never blocks and is safe to call
// from any number of goroutines concurrently with each other and with
// Store. The returned pointer is a borrow valid for the lifetime of the
// calling operation; store semantics never mutate a snapshot in place, so
// holding the pointer across suspension points is safe.
func (s *Store) Load() *gwtypes.ConfigSnapshot {
	return s.current.Load()
}

// Store atomically publishes snap as the current snapshot. Only the
// control-plane client should call this; Store is not itself exclusive
// among multiple writers, but the data plane only ever configures one.
// Publishing the same VersionID again is a harmless no-op from every
// reader's perspective (idempotent republish).
func (s *Store) Store(snap *gwtypes.ConfigSnapshot) {
	s.current.Store(snap)
}
