package gwtypes

import "fmt"

// ConfigSnapshot is the immutable, versioned configuration bundle published
// by the control plane. Once constructed it must never be mutated in place —
// the config store (internal/configstore) relies on that to hand out
// lock-free borrows to readers.
type ConfigSnapshot struct {
	VersionID string
	Listeners []Listener
	Routes    []Route
	Clusters  []Cluster
}

// ClusterByName returns the cluster named id, or false if none matches.
func (s *ConfigSnapshot) ClusterByName(id string) (Cluster, bool) {
	for _, c := range s.Clusters {
		if c.Name == id {
			return c, true
		}
	}
	return Cluster{}, false
}

// Validate enforces the snapshot's referential invariant: every route's
// ClusterID must name a cluster present in the same snapshot. It does not
// check that plugin module paths exist on disk — that is a lazy,
// invocation-time failure (see internal/pluginvm), not a bootstrap-time one.
func (s *ConfigSnapshot) Validate() error {
	if len(s.Listeners) == 0 {
		return fmt.Errorf("config snapshot %s: no listeners", s.VersionID)
	}
	for _, r := range s.Routes {
		if _, ok := s.ClusterByName(r.ClusterID); !ok {
			return fmt.Errorf("config snapshot %s: route %q references unknown cluster %q", s.VersionID, r.PathPrefix, r.ClusterID)
		}
	}
	return nil
}

// TLSConfig holds a listener's PEM-encoded certificate and private key as
// received from the control plane.
type TLSConfig struct {
	CertPEM []byte
	KeyPEM  []byte
}

// Listener describes one bind address the bootstrap process should open.
// Listener configuration is consumed once at startup; later snapshots that
// change it do not hot-apply (see Non-goals in the design).
type Listener struct {
	Name    string
	Address string
	Port    int
	TLS     *TLSConfig // nil for plaintext
}

// PluginRef names a single plugin module in a route's chain.
type PluginRef struct {
	Name       string // diagnostics only
	ModulePath string // filesystem path to the compiled wasm module
}

// Route binds a URI path prefix to a cluster and an ordered plugin chain.
type Route struct {
	PathPrefix string
	ClusterID  string
	Plugins    []PluginRef
}

// Endpoint is one upstream instance within a cluster.
type Endpoint struct {
	Address string
	Port    int
}

// Cluster is a named set of upstream endpoints. The proxy engine always
// picks Endpoints[0] — load balancing beyond first-available is out of
// scope for this data plane.
type Cluster struct {
	Name      string
	Endpoints []Endpoint
}

// HeaderPair is a single (lower-cased name, value) entry as handed to a
// plugin's host context. The order of pairs follows iteration over the
// request's http.Header map; it is not the order of the incoming request.
type HeaderPair struct {
	Name  string
	Value string
}
