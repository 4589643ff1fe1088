package pluginvm

import (
	"fmt"
	"os"
	"sync"

	"github.com/bytecodealliance/wasmtime-go/v25"
)

// moduleCache maps a plugin's module_path to its compiled wasmtime.Module.
// Reads take the read lock; a miss upgrades to the write lock, compiles,
// and inserts. Entries are never evicted: module paths are a closed set
// named by the config snapshot, and compiling the same path twice would
// only waste cycles, never correct anything.
type moduleCache struct {
	mu      sync.RWMutex
	modules map[string]*wasmtime.Module
}

func newModuleCache() *moduleCache {
	return &moduleCache{modules: make(map[string]*wasmtime.Module)}
}

func (c *moduleCache) get(engine *wasmtime.Engine, path string) (*wasmtime.Module, error) {
	c.mu.RLock()
	m, ok := c.modules[path]
	c.mu.RUnlock()
	if ok {
		return m, nil
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("pluginvm: module %s: %w", path, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.modules[path]; ok {
		return m, nil
	}

	m, err := wasmtime.NewModuleFromFile(engine, path)
	if err != nil {
		return nil, fmt.Errorf("pluginvm: compile %s: %w", path, err)
	}
	c.modules[path] = m
	return m, nil
}

// size reports how many distinct modules have been compiled so far, for
// the agw_plugin_modules_cached gauge.
func (c *moduleCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.modules)
}
