package pluginvm

import (
	"path/filepath"
	"testing"

	"github.com/bytecodealliance/wasmtime-go/v25"
	"github.com/stretchr/testify/require"
)

func TestModuleCacheMissingFileErrors(t *testing.T) {
	c := newModuleCache()
	engine := wasmtime.NewEngine()

	_, err := c.get(engine, filepath.Join(t.TempDir(), "missing.wasm"))
	require.Error(t, err)
}

func TestModuleCacheSizeStartsAtZero(t *testing.T) {
	c := newModuleCache()
	require.Equal(t, 0, c.size())
}
