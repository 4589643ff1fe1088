package pluginvm

import (
	"context"
	"fmt"

	"github.com/bytecodealliance/wasmtime-go/v25"
	"github.com/rs/zerolog"

	"github.com/cuemby/agw/internal/gwtypes"
	"github.com/cuemby/agw/internal/resources"
	"github.com/cuemby/agw/pkg/log"
)

// VM compiles, caches, and invokes sandboxed plugin modules. One VM is
// shared by every request; it owns the engine and the module cache, both
// of which are safe for concurrent use.
type VM struct {
	engine    *wasmtime.Engine
	cache     *moduleCache
	resources *resources.Registry
	logger    zerolog.Logger
}

// New builds a VM around reg. reg may be nil if no plugin in the snapshot
// ever calls agw_kv_execute or agw_sql_query; the host functions still
// link, they just report errUnknownPool for every pool name.
func New(reg *resources.Registry) *VM {
	if reg == nil {
		reg = &resources.Registry{}
	}
	return &VM{
		engine:    wasmtime.NewEngine(),
		cache:     newModuleCache(),
		resources: reg,
		logger:    log.WithComponent("pluginvm"),
	}
}

// CachedModuleCount reports how many distinct module paths have been
// compiled, for the agw_plugin_modules_cached gauge.
func (vm *VM) CachedModuleCount() int {
	return vm.cache.size()
}

// Invoke compiles (or reuses) the module at path and calls its on_request
// entry point with headers available through the agw_get_header host call.
// It returns allow=true when on_request returns 0, allow=false on any
// other return value. A non-nil error means the plugin itself is broken
// (missing export, trap, load failure) and the caller must treat it as a
// plugin runtime error (HTTP 500), not a deny.
func (vm *VM) Invoke(ctx context.Context, path string, headers []gwtypes.HeaderPair) (bool, error) {
	module, err := vm.cache.get(vm.engine, path)
	if err != nil {
		return false, err
	}

	headerMap := make(map[string]string, len(headers))
	for _, h := range headers {
		headerMap[h.Name] = h.Value
	}

	hc := &hostContext{
		ctx:       ctx,
		headers:   headerMap,
		resources: vm.resources,
		logger:    vm.logger,
	}

	linker := wasmtime.NewLinker(vm.engine)
	if err := linkHostFunctions(linker, hc); err != nil {
		return false, err
	}

	store := wasmtime.NewStore(vm.engine)

	instance, err := linker.Instantiate(store, module)
	if err != nil {
		return false, fmt.Errorf("pluginvm: instantiate %s: %w", path, err)
	}

	export := instance.GetExport(store, "on_request")
	if export == nil || export.Func() == nil {
		return false, fmt.Errorf("pluginvm: %s does not export on_request", path)
	}

	result, err := export.Func().Call(store)
	if err != nil {
		return false, fmt.Errorf("pluginvm: %s trapped: %w", path, err)
	}

	verdict, ok := result.(int32)
	if !ok {
		return false, fmt.Errorf("pluginvm: %s on_request returned non-i32 %T", path, result)
	}

	return verdict == 0, nil
}
