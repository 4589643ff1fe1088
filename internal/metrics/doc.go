// Package metrics exposes Prometheus instrumentation for the data plane:
// config snapshot version, request outcomes, plugin verdicts, the plugin
// module cache size, and kernel fast-path attach state. It is served on a
// loopback-only debug listener, never the data-path listeners themselves.
package metrics
