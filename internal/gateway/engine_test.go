package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/agw/internal/configstore"
	"github.com/cuemby/agw/internal/gwtypes"
)

// fakeVM is a PluginInvoker test double. It returns an error for failPath,
// denies when denyContains is set and some header value contains it, and
// allows otherwise.
type fakeVM struct {
	denyContains string // deny iff some header value contains this substring
	failPath     string // return an error for this module path
}

func (f *fakeVM) Invoke(ctx context.Context, path string, headers []gwtypes.HeaderPair) (bool, error) {
	if f.failPath != "" && path == f.failPath {
		return false, assertErr
	}
	if f.denyContains == "" {
		return true, nil
	}
	for _, h := range headers {
		if strings.Contains(h.Value, f.denyContains) {
			return false, nil
		}
	}
	return true, nil
}

var assertErr = httpError("plugin exploded")

type httpError string

func (e httpError) Error() string { return string(e) }

func oneListenerOneRoute(plugins []gwtypes.PluginRef) *gwtypes.ConfigSnapshot {
	return &gwtypes.ConfigSnapshot{
		VersionID: "v1",
		Listeners: []gwtypes.Listener{{Name: "http", Address: "0.0.0.0", Port: 8080}},
		Routes: []gwtypes.Route{
			{PathPrefix: "/api", ClusterID: "svcA", Plugins: plugins},
		},
		Clusters: []gwtypes.Cluster{
			{Name: "svcA", Endpoints: []gwtypes.Endpoint{{Address: "10.0.0.1", Port: 9000}}},
		},
	}
}

func newStoreWith(snap *gwtypes.ConfigSnapshot) *configstore.Store {
	s := configstore.New()
	s.Store(snap)
	return s
}

// Scenario 2: no matching route returns 404, no forwarding attempted.
func TestScenarioNoRouteMatch404(t *testing.T) {
	store := newStoreWith(oneListenerOneRoute(nil))
	eng := New(store, &fakeVM{})

	req := httptest.NewRequest(http.MethodGet, "/other", nil)
	rec := httptest.NewRecorder()
	eng.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// Scenario 3: a deny-all plugin on the route causes a 403.
func TestScenarioDenyAllPlugin403(t *testing.T) {
	snap := oneListenerOneRoute([]gwtypes.PluginRef{{Name: "deny-all", ModulePath: "deny-all.wasm"}})
	store := newStoreWith(snap)
	eng := New(store, &fakeVM{denyContains: ""})
	// force deny regardless of headers
	eng.vm = denyAllVM{}

	req := httptest.NewRequest(http.MethodGet, "/api/x", nil)
	rec := httptest.NewRecorder()
	eng.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

type denyAllVM struct{}

func (denyAllVM) Invoke(ctx context.Context, path string, headers []gwtypes.HeaderPair) (bool, error) {
	return false, nil
}

// Scenario 4: plugin denies iff the User-Agent header contains "curl".
func TestScenarioHeaderBasedPluginDecision(t *testing.T) {
	snap := oneListenerOneRoute([]gwtypes.PluginRef{{Name: "ua-gate", ModulePath: "ua-gate.wasm"}})
	store := newStoreWith(snap)
	eng := New(store, &fakeVM{denyContains: "curl"})

	curlReq := httptest.NewRequest(http.MethodGet, "/api/x", nil)
	curlReq.Header.Set("User-Agent", "curl/8.0")
	curlRec := httptest.NewRecorder()
	eng.requestFilter(curlRec, curlReq)
	assert.Equal(t, http.StatusForbidden, curlRec.Code)

	mozillaReq := httptest.NewRequest(http.MethodGet, "/api/x", nil)
	mozillaReq.Header.Set("User-Agent", "Mozilla")
	mozillaRec := httptest.NewRecorder()
	handled := eng.requestFilter(mozillaRec, mozillaReq)
	assert.False(t, handled)
}

// Scenario: a plugin runtime error yields a 500, not a deny.
func TestScenarioPluginRuntimeError500(t *testing.T) {
	snap := oneListenerOneRoute([]gwtypes.PluginRef{{Name: "broken", ModulePath: "broken.wasm"}})
	store := newStoreWith(snap)
	eng := New(store, &fakeVM{failPath: "broken.wasm"})

	req := httptest.NewRequest(http.MethodGet, "/api/x", nil)
	rec := httptest.NewRecorder()
	eng.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

// No cluster match at upstream selection yields 502, even though the
// referential invariant forbids it at publish time (defensive per spec).
func TestUpstreamPeerUnknownClusterIsBadGateway(t *testing.T) {
	snap := &gwtypes.ConfigSnapshot{
		VersionID: "v1",
		Listeners: []gwtypes.Listener{{Name: "http"}},
		Routes:    []gwtypes.Route{{PathPrefix: "/api", ClusterID: "ghost"}},
	}
	store := newStoreWith(snap)
	eng := New(store, &fakeVM{})

	req := httptest.NewRequest(http.MethodGet, "/api/x", nil)
	rec := httptest.NewRecorder()
	eng.upstreamPeer(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

// An empty endpoint list on an otherwise valid cluster yields 503.
func TestUpstreamPeerEmptyEndpointsIsUnavailable(t *testing.T) {
	snap := &gwtypes.ConfigSnapshot{
		VersionID: "v1",
		Listeners: []gwtypes.Listener{{Name: "http"}},
		Routes:    []gwtypes.Route{{PathPrefix: "/api", ClusterID: "svcA"}},
		Clusters:  []gwtypes.Cluster{{Name: "svcA"}},
	}
	store := newStoreWith(snap)
	eng := New(store, &fakeVM{})

	req := httptest.NewRequest(http.MethodGet, "/api/x", nil)
	rec := httptest.NewRecorder()
	eng.upstreamPeer(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

// Scenario 6: mid-stream the control plane re-points a route to a new
// cluster; a request arriving after the publish targets the new cluster.
func TestScenarioSnapshotSwapRetargetsSubsequentRequests(t *testing.T) {
	v1 := &gwtypes.ConfigSnapshot{
		VersionID: "v1",
		Listeners: []gwtypes.Listener{{Name: "http"}},
		Routes:    []gwtypes.Route{{PathPrefix: "/api", ClusterID: "svcA"}},
		Clusters: []gwtypes.Cluster{
			{Name: "svcA", Endpoints: []gwtypes.Endpoint{{Address: "10.0.0.1", Port: 9000}}},
			{Name: "svcB", Endpoints: []gwtypes.Endpoint{{Address: "10.0.0.2", Port: 9100}}},
		},
	}
	store := newStoreWith(v1)

	snap := store.Load()
	require.NotNil(t, snap)
	route, ok := matchRoute(snap, "/api/x")
	require.True(t, ok)
	cluster, ok := snap.ClusterByName(route.ClusterID)
	require.True(t, ok)
	assert.Equal(t, "10.0.0.1", cluster.Endpoints[0].Address)

	v2 := &gwtypes.ConfigSnapshot{
		VersionID: "v2",
		Listeners: v1.Listeners,
		Routes:    []gwtypes.Route{{PathPrefix: "/api", ClusterID: "svcB"}},
		Clusters:  v1.Clusters,
	}
	store.Store(v2)

	snap = store.Load()
	route, ok = matchRoute(snap, "/api/x")
	require.True(t, ok)
	cluster, ok = snap.ClusterByName(route.ClusterID)
	require.True(t, ok)
	assert.Equal(t, "10.0.0.2", cluster.Endpoints[0].Address)
}
