/*
Package gwtypes defines the core data structures shared across the gateway
data plane: the configuration snapshot pushed by the control plane, and the
request-scoped types the proxy engine and plugin VM pass between each other.

# Architecture

A ConfigSnapshot is the unit of configuration the control plane publishes.
It is immutable once built — every field is read-only after construction —
so it can be shared across goroutines without locking:

	ConfigSnapshot
	 ├─ Listeners[]   (consumed once, at bootstrap)
	 ├─ Routes[]      (path_prefix -> cluster_id, ordered plugin chain)
	 └─ Clusters[]    (name -> endpoints)

Routes reference clusters by name and plugins by filesystem path. Cluster
references are validated when a snapshot is decoded off the control-plane
wire (see internal/controlplane), not when it is matched on the request
path; plugin paths are not checked until a plugin is first invoked.
*/
package gwtypes
