package fastpath

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoaderDisabledAttachIsNoop(t *testing.T) {
	l := New("/sys/fs/cgroup/unused", true)
	require.NoError(t, l.Attach())
	require.False(t, l.attached)

	// Close before Attach (or after a no-op Attach) must not panic.
	l.Close()
}

func TestLoaderCloseWithoutAttachIsSafe(t *testing.T) {
	l := New("/sys/fs/cgroup/unused", false)
	l.Close()
}
