// Package roadnet fetches raw road-segment geometries from openstreetmap
// sources (a local .osm.pbf extract or the Overpass API), filtered by a
// bounding box and a set of highway category tags.
package roadnet

import (
	"context"

	"github.com/roadstats/trafficfield/pkg/geo"
)

// RoadSegment is one openstreetmap way (or a piece of one), read-only source
// data for the metric-graph builder.
type RoadSegment struct {
	WayID    int64
	Category string
	Geometry []geo.Coordinate
}

func NewRoadSegment(wayID int64, category string, geometry []geo.Coordinate) RoadSegment {
	return RoadSegment{
		WayID:    wayID,
		Category: category,
		Geometry: geometry,
	}
}

type Source interface {
	// FetchRoads returns all road segments inside bbox whose highway tag is
	// in categories. Returns util.ErrDataUnavailable (wrapped) when nothing
	// matches.
	FetchRoads(ctx context.Context, bbox geo.BoundingBox, categories []string) ([]RoadSegment, error)
}

// https://wiki.openstreetmap.org/wiki/Key:highway
var drivableHighway = map[string]struct{}{
	"motorway":       {},
	"motorway_link":  {},
	"trunk":          {},
	"trunk_link":     {},
	"primary":        {},
	"primary_link":   {},
	"secondary":      {},
	"secondary_link": {},
	"tertiary":       {},
	"tertiary_link":  {},
	"residential":    {},
	"unclassified":   {},
	"living_street":  {},
	"service":        {},
	"road":           {},
}

// DefaultCategories returns the drivable highway vocabulary used when the
// caller passes no explicit filter.
func DefaultCategories() []string {
	cats := make([]string, 0, len(drivableHighway))
	for c := range drivableHighway {
		cats = append(cats, c)
	}
	return cats
}

func categorySet(categories []string) map[string]struct{} {
	if len(categories) == 0 {
		return drivableHighway
	}
	set := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		set[c] = struct{}{}
	}
	return set
}
