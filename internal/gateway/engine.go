package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/cuemby/agw/internal/audit"
	"github.com/cuemby/agw/internal/configstore"
	"github.com/cuemby/agw/internal/gwtypes"
	"github.com/cuemby/agw/internal/metrics"
	"github.com/cuemby/agw/pkg/log"
)

// PluginInvoker runs one plugin module against a request's header context.
// internal/pluginvm.VM implements this; tests substitute a fake.
type PluginInvoker interface {
	Invoke(ctx context.Context, path string, headers []gwtypes.HeaderPair) (bool, error)
}

// Engine is the per-listener HTTP handler: it implements http.Handler by
// running requestFilter followed, if the response was not already
// written, by upstreamPeer.
type Engine struct {
	store    *configstore.Store
	vm       PluginInvoker
	logger   zerolog.Logger
	auditLog *audit.Log
}

// New builds an Engine reading snapshots from store and running plugins
// through vm.
func New(store *configstore.Store, vm PluginInvoker) *Engine {
	return &Engine{
		store:  store,
		vm:     vm,
		logger: log.WithComponent("gateway"),
	}
}

// SetAuditLog attaches a persistent deny/error verdict log. Optional: a nil
// or never-called auditLog simply means verdicts are not recorded to disk.
func (e *Engine) SetAuditLog(l *audit.Log) {
	e.auditLog = l
}

func (e *Engine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if e.requestFilter(w, r) {
		return
	}
	e.upstreamPeer(w, r)
}

// requestFilter matches the route, runs its plugin chain, and writes an
// error response itself when the request must not be forwarded. It
// returns true when it has already written a response.
func (e *Engine) requestFilter(w http.ResponseWriter, r *http.Request) bool {
	snap := e.store.Load()
	if snap == nil {
		metrics.ObserveRequest(metrics.OutcomeUnavailable)
		http.Error(w, "gateway not ready", http.StatusServiceUnavailable)
		return true
	}

	route, ok := matchRoute(snap, r.URL.Path)
	if !ok {
		metrics.ObserveRequest(metrics.OutcomeNotFound)
		http.Error(w, "not found", http.StatusNotFound)
		return true
	}

	headers := buildHeaderContext(r)

	for _, plugin := range route.Plugins {
		allow, err := e.vm.Invoke(r.Context(), plugin.ModulePath, headers)
		if err != nil {
			e.logger.Error().Err(err).Str("plugin", plugin.Name).Msg("plugin runtime error")
			metrics.ObservePluginVerdict(plugin.Name, metrics.VerdictError)
			metrics.ObserveRequest(metrics.OutcomeError)
			e.recordVerdict(audit.OutcomeError, r.URL.Path, route.ClusterID, err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return true
		}
		if !allow {
			metrics.ObservePluginVerdict(plugin.Name, metrics.VerdictDeny)
			metrics.ObserveRequest(metrics.OutcomeDenied)
			e.recordVerdict(audit.OutcomeDeny, r.URL.Path, route.ClusterID, nil)
			http.Error(w, "forbidden", http.StatusForbidden)
			return true
		}
		metrics.ObservePluginVerdict(plugin.Name, metrics.VerdictAllow)
	}

	return false
}

// upstreamPeer re-matches the route against the (possibly newer) snapshot
// and forwards to the matched cluster's first endpoint.
func (e *Engine) upstreamPeer(w http.ResponseWriter, r *http.Request) {
	snap := e.store.Load()
	if snap == nil {
		metrics.ObserveRequest(metrics.OutcomeUnavailable)
		http.Error(w, "gateway not ready", http.StatusServiceUnavailable)
		return
	}

	route, ok := matchRoute(snap, r.URL.Path)
	if !ok {
		metrics.ObserveRequest(metrics.OutcomeNotFound)
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	cluster, ok := snap.ClusterByName(route.ClusterID)
	if !ok {
		e.logger.Error().Str("cluster_id", route.ClusterID).Msg("route references unknown cluster")
		metrics.ObserveRequest(metrics.OutcomeBadGateway)
		http.Error(w, "bad gateway", http.StatusBadGateway)
		return
	}

	if len(cluster.Endpoints) == 0 {
		metrics.ObserveRequest(metrics.OutcomeUnavailable)
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	endpoint := cluster.Endpoints[0]
	target := &url.URL{Scheme: "http", Host: fmt.Sprintf("%s:%d", endpoint.Address, endpoint.Port)}

	proxy := httputil.NewSingleHostReverseProxy(target)
	director := proxy.Director
	proxy.Director = func(req *http.Request) {
		director(req)
		req.Header.Set("X-Forwarded-For", req.RemoteAddr)
		req.Header.Set("X-Forwarded-Host", r.Host)
	}
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		e.logger.Error().Err(err).Str("upstream", target.Host).Msg("upstream proxy error")
		metrics.ObserveRequest(metrics.OutcomeBadGateway)
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}

	metrics.ObserveRequest(metrics.OutcomeForwarded)
	proxy.ServeHTTP(w, r)
}

// recordVerdict writes to the audit log if one is attached. Logging
// failures are themselves logged but never change the response already
// sent to the client.
func (e *Engine) recordVerdict(outcome audit.Outcome, path, cluster string, cause error) {
	if e.auditLog == nil {
		return
	}
	var err error
	if outcome == audit.OutcomeError {
		err = e.auditLog.RecordError(path, cluster, cause)
	} else {
		err = e.auditLog.RecordDeny(path, cluster)
	}
	if err != nil {
		e.logger.Error().Err(err).Msg("failed to write audit entry")
	}
}

// buildHeaderContext lower-cases every header name and drops any header
// whose value is not valid UTF-8 text, producing the header list the
// plugin sandbox receives. The list's order is that of Go's map iteration
// over r.Header, not the order the headers arrived in.
func buildHeaderContext(r *http.Request) []gwtypes.HeaderPair {
	headers := make([]gwtypes.HeaderPair, 0, len(r.Header))
	for name, values := range r.Header {
		for _, v := range values {
			if !utf8.ValidString(v) {
				continue
			}
			headers = append(headers, gwtypes.HeaderPair{
				Name:  strings.ToLower(name),
				Value: v,
			})
		}
	}
	return headers
}
