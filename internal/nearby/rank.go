package nearby

import (
	"sort"

	"github.com/AydinDzaki/NusaGo/internal/listing"
	"github.com/AydinDzaki/NusaGo/internal/shared/geo"
)

const DefaultLimit = 6

// Ranked is a listing annotated with its great-circle distance from the
// origin it was ranked against.
type Ranked struct {
	listing.Listing
	DistanceKm float64 `json:"distance_km"`
}

// Rank orders the listings with usable coordinates by distance from origin
// and keeps the closest limit of them. Ties keep their input order. An
// invalid origin or a non-positive limit yields an empty result.
func Rank(origin geo.Point, listings []listing.Listing, limit int) []Ranked {
	if limit <= 0 || !origin.Valid() {
		return []Ranked{}
	}

	ranked := make([]Ranked, 0, len(listings))
	for _, l := range listings {
		if l.Coordinates == nil || !l.Coordinates.Valid() {
			continue
		}
		ranked = append(ranked, Ranked{Listing: l, DistanceKm: geo.Distance(origin, *l.Coordinates)})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].DistanceKm < ranked[j].DistanceKm
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
