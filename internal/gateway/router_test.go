package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cuemby/agw/internal/gwtypes"
)

func testSnapshot() *gwtypes.ConfigSnapshot {
	return &gwtypes.ConfigSnapshot{
		VersionID: "v1",
		Listeners: []gwtypes.Listener{{Name: "http", Address: "0.0.0.0", Port: 8080}},
		Routes: []gwtypes.Route{
			{PathPrefix: "/api", ClusterID: "svcA"},
			{PathPrefix: "/", ClusterID: "svcDefault"},
		},
		Clusters: []gwtypes.Cluster{
			{Name: "svcA", Endpoints: []gwtypes.Endpoint{{Address: "10.0.0.1", Port: 9000}}},
			{Name: "svcDefault", Endpoints: []gwtypes.Endpoint{{Address: "10.0.0.2", Port: 9001}}},
		},
	}
}

func TestMatchRouteFirstMatchWinsOverLongerLaterPrefix(t *testing.T) {
	snap := testSnapshot()
	// The shorter "/" is declared before the longer "/api".
	snap.Routes = []gwtypes.Route{
		{PathPrefix: "/", ClusterID: "svcDefault"},
		{PathPrefix: "/api", ClusterID: "svcA"},
	}

	route, ok := matchRoute(snap, "/api/x")
	assert.True(t, ok)
	assert.Equal(t, "svcDefault", route.ClusterID)
}

func TestMatchRouteFallsThroughToCatchAll(t *testing.T) {
	snap := testSnapshot()

	route, ok := matchRoute(snap, "/other")
	assert.True(t, ok)
	assert.Equal(t, "svcDefault", route.ClusterID)
}

func TestMatchRouteNoRoutesIsAlwaysMiss(t *testing.T) {
	snap := &gwtypes.ConfigSnapshot{VersionID: "v1", Listeners: []gwtypes.Listener{{Name: "http"}}}

	_, ok := matchRoute(snap, "/anything")
	assert.False(t, ok)
}
