/*
Package resources implements the external-resource registry: named
key-value and SQL pool handles that plugin host calls (internal/pluginvm)
dial out to.

The registry is built once at startup from a YAML file and never mutated
afterward — there is no hot-reload of resource definitions in this core,
only of routes, clusters, and plugins (internal/configstore). Handles are
safe for concurrent use by many request goroutines; the registry itself
only needs to be safe for concurrent reads, which a plain map satisfies
once construction has finished and no further writes occur.
*/
package resources
