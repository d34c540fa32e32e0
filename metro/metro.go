// Package metro groups airports that serve the same catchment area, so a
// trip out of one airport can be matched against a return into a neighbour.
package metro

import (
	"sort"
	"sync"

	"github.com/tbruni/weekendfly/iata"
	"github.com/tbruni/weekendfly/pkg/geo"
	"github.com/tbruni/weekendfly/pkg/logger"
)

// Index resolves which airports sit within a shared metro radius of each
// other. Neighbour sets are computed lazily and cached per code.
type Index struct {
	radiusKm float64

	mu    sync.RWMutex
	cache map[string][]string
}

// New returns an index with the given radius in kilometres. A non-positive
// radius disables grouping entirely.
func New(radiusKm float64) *Index {
	return &Index{
		radiusKm: radiusKm,
		cache:    make(map[string][]string),
	}
}

// RadiusKm returns the configured metro radius.
func (ix *Index) RadiusKm() float64 {
	return ix.radiusKm
}

// Nearby returns every airport within the index radius of code, including
// code itself, sorted alphabetically. Unknown codes and non-positive radii
// resolve to the code alone.
func (ix *Index) Nearby(code string) []string {
	ix.mu.RLock()
	cached, ok := ix.cache[code]
	ix.mu.RUnlock()
	if ok {
		return cached
	}

	nearby := ix.compute(code)

	ix.mu.Lock()
	ix.cache[code] = nearby
	ix.mu.Unlock()
	return nearby
}

// NearbySet returns Nearby as a membership set.
func (ix *Index) NearbySet(code string) map[string]bool {
	codes := ix.Nearby(code)
	set := make(map[string]bool, len(codes))
	for _, c := range codes {
		set[c] = true
	}
	return set
}

// AreNearby reports whether b lies within the index radius of a. A code is
// always near itself.
func (ix *Index) AreNearby(a, b string) bool {
	if a == b {
		return true
	}
	return ix.NearbySet(a)[b]
}

func (ix *Index) compute(code string) []string {
	if ix.radiusKm <= 0 {
		return []string{code}
	}
	origin, ok := iata.Lookup(code)
	if !ok {
		logger.Warn("airport missing from reference table, treating as isolated", "code", code)
		return []string{code}
	}

	nearby := []string{code}
	for _, a := range iata.All() {
		if a.Code == code {
			continue
		}
		if geo.HaversineKm(origin.Lat, origin.Lon, a.Lat, a.Lon) <= ix.radiusKm {
			nearby = append(nearby, a.Code)
		}
	}
	sort.Strings(nearby)
	return nearby
}
