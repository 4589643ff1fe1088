/*
Package pluginvm runs sandboxed WebAssembly plugin modules on the request
hot path.

A Module is compiled once per filesystem path and cached for the life of
the process (cache.go) — paths come from the config snapshot, a closed set
produced by the control plane, so entries are never evicted. Every
invocation (vm.go) gets its own Store and Instance: plugins carry no state
across requests. Host capabilities (host.go) are linked in fresh for each
invocation, closed over that request's headers and the external-resource
registry, so a plugin can only ever see the request it was invoked for.

Host I/O calls (the key-value and SQL capabilities) run synchronously
within the calling goroutine rather than through wasmtime's native async
call support: the surrounding HTTP server already gives each request its
own goroutine, so a blocking Redis or SQL round trip only parks that one
goroutine, and every other in-flight request keeps making progress on the
Go scheduler. This sidesteps wasmtime-go's lower-level async host-function
ABI entirely.
*/
package pluginvm
