package controlplane

import (
	"github.com/cuemby/agw/internal/controlplane/agwpb"
	"github.com/cuemby/agw/internal/gwtypes"
)

// fromWire converts a wire ConfigSnapshot into the internal representation
// used by the rest of the data plane. It performs no validation beyond
// shape conversion; callers run Validate separately.
func fromWire(m *agwpb.ConfigSnapshot) *gwtypes.ConfigSnapshot {
	out := &gwtypes.ConfigSnapshot{
		VersionID: m.VersionID,
		Listeners: make([]gwtypes.Listener, 0, len(m.Listeners)),
		Routes:    make([]gwtypes.Route, 0, len(m.Routes)),
		Clusters:  make([]gwtypes.Cluster, 0, len(m.Clusters)),
	}

	for _, l := range m.Listeners {
		var tls *gwtypes.TLSConfig
		if l.TLS != nil {
			tls = &gwtypes.TLSConfig{CertPEM: l.TLS.CertPEM, KeyPEM: l.TLS.KeyPEM}
		}
		out.Listeners = append(out.Listeners, gwtypes.Listener{
			Name:    l.Name,
			Address: l.Address,
			Port:    l.Port,
			TLS:     tls,
		})
	}

	for _, r := range m.Routes {
		plugins := make([]gwtypes.PluginRef, 0, len(r.Plugins))
		for _, p := range r.Plugins {
			plugins = append(plugins, gwtypes.PluginRef{Name: p.Name, ModulePath: p.ModulePath})
		}
		out.Routes = append(out.Routes, gwtypes.Route{
			PathPrefix: r.PathPrefix,
			ClusterID:  r.ClusterID,
			Plugins:    plugins,
		})
	}

	for _, c := range m.Clusters {
		endpoints := make([]gwtypes.Endpoint, 0, len(c.Endpoints))
		for _, e := range c.Endpoints {
			endpoints = append(endpoints, gwtypes.Endpoint{Address: e.Address, Port: e.Port})
		}
		out.Clusters = append(out.Clusters, gwtypes.Cluster{Name: c.Name, Endpoints: endpoints})
	}

	return out
}
