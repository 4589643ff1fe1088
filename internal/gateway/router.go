package gateway

import (
	"strings"

	"github.com/cuemby/agw/internal/gwtypes"
)

// matchRoute returns the first route in snapshot order whose path_prefix
// is a prefix of path. Authoring order is canonical; this is not
// longest-prefix matching, it is first-match-in-declared-order (see
// DESIGN.md's resolution of the two competing descriptions).
func matchRoute(snap *gwtypes.ConfigSnapshot, path string) (*gwtypes.Route, bool) {
	for i := range snap.Routes {
		if strings.HasPrefix(path, snap.Routes[i].PathPrefix) {
			return &snap.Routes[i], true
		}
	}
	return nil, false
}
