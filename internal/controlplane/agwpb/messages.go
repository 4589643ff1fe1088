// Package agwpb defines the wire messages exchanged with the control
// plane's streaming configuration RPC.
//
// These are plain Go structs carried over gRPC with a JSON codec
// (internal/controlplane/codec.go) rather than protoc-generated bindings:
// this environment cannot run protoc, and a hand-authored
// descriptor-backed proto.Message is easy to get subtly wrong without a
// compiler to check it against. The RPC shape (service name, method name,
// streaming direction) mirrors what a real .proto definition for this
// schema would generate — swapping in real generated code later only
// touches this package and codec.go.
package agwpb

// Node is the handshake sent once when opening the config stream.
type Node struct {
	ID      string `json:"id"`
	Region  string `json:"region"`
	Version string `json:"version"`
}

// TLSConfig mirrors gwtypes.TLSConfig on the wire.
type TLSConfig struct {
	CertPEM []byte `json:"cert_pem"`
	KeyPEM  []byte `json:"key_pem"`
}

// Listener mirrors gwtypes.Listener on the wire.
type Listener struct {
	Name    string     `json:"name"`
	Address string     `json:"address"`
	Port    int        `json:"port"`
	TLS     *TLSConfig `json:"tls,omitempty"`
}

// PluginRef mirrors gwtypes.PluginRef on the wire.
type PluginRef struct {
	Name       string `json:"name"`
	ModulePath string `json:"module_path"`
}

// Route mirrors gwtypes.Route on the wire.
type Route struct {
	PathPrefix string      `json:"path_prefix"`
	ClusterID  string      `json:"cluster_id"`
	Plugins    []PluginRef `json:"plugins"`
}

// Endpoint mirrors gwtypes.Endpoint on the wire.
type Endpoint struct {
	Address string `json:"address"`
	Port    int    `json:"port"`
}

// Cluster mirrors gwtypes.Cluster on the wire.
type Cluster struct {
	Name      string     `json:"name"`
	Endpoints []Endpoint `json:"endpoints"`
}

// ConfigSnapshot is the message the control plane streams to the data
// plane, once per configuration change.
type ConfigSnapshot struct {
	VersionID string     `json:"version_id"`
	Listeners []Listener `json:"listeners"`
	Routes    []Route    `json:"routes"`
	Clusters  []Cluster  `json:"clusters"`
}

// StreamConfigServiceName and StreamConfigMethodName identify the
// server-streaming RPC on the control plane: Node in, ConfigSnapshot
// stream out.
const (
	StreamConfigServiceName = "agw.v1.AgwService"
	StreamConfigMethodName  = "StreamConfig"
	StreamConfigFullMethod  = "/" + StreamConfigServiceName + "/" + StreamConfigMethodName
)
