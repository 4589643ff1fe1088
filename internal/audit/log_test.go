package audit

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audit.db")
	l, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestRecordDenyAndRecent(t *testing.T) {
	l := openTestLog(t)

	require.NoError(t, l.RecordDeny("/api/x", "svcA"))
	require.NoError(t, l.RecordDeny("/api/y", "svcB"))

	entries, err := l.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Recent returns reverse chronological order.
	require.Equal(t, "/api/y", entries[0].Path)
	require.Equal(t, OutcomeDeny, entries[0].Outcome)
	require.Equal(t, "/api/x", entries[1].Path)
}

func TestRecordErrorCapturesDetail(t *testing.T) {
	l := openTestLog(t)

	require.NoError(t, l.RecordError("/api/z", "svcA", errors.New("plugin trapped")))

	entries, err := l.Recent(1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, OutcomeError, entries[0].Outcome)
	require.Equal(t, "plugin trapped", entries[0].Detail)
}

func TestRecentRespectsLimit(t *testing.T) {
	l := openTestLog(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, l.RecordDeny("/api/x", "svcA"))
	}

	entries, err := l.Recent(2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}
