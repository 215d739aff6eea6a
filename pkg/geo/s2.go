package geo

import (
	"github.com/golang/geo/s2"
)

// ProjectPointToLineCoord projects snap onto the great-circle segment
// (pointA, pointB) and returns the projected coordinate.
func ProjectPointToLineCoord(pointA Coordinate, pointB Coordinate,
	snap Coordinate) Coordinate {

	pointAS2 := s2.PointFromLatLng(s2.LatLngFromDegrees(pointA.Lat, pointA.Lon))
	pointBS2 := s2.PointFromLatLng(s2.LatLngFromDegrees(pointB.Lat, pointB.Lon))
	snapS2 := s2.PointFromLatLng(s2.LatLngFromDegrees(snap.Lat, snap.Lon))
	projection := s2.Project(snapS2, pointAS2, pointBS2)
	projectLatLng := s2.LatLngFromPoint(projection)
	return NewCoordinate(projectLatLng.Lat.Degrees(), projectLatLng.Lng.Degrees())
}

// PointLinePerpendicularDistance. distance from snap to segment (pointA,
// pointB) in km.
func PointLinePerpendicularDistance(pointA Coordinate, pointB Coordinate,
	snap Coordinate) float64 {
	projectionPoint := ProjectPointToLineCoord(pointA, pointB, snap)

	return CalculateHaversineDistance(snap.GetLat(), snap.GetLon(),
		projectionPoint.GetLat(), projectionPoint.GetLon())
}

// ProjectPointToPolyline projects snap onto every segment of the polyline and
// keeps the nearest. Returns the projected coordinate, the distance from the
// polyline start to the projection (km, along the polyline), and the
// perpendicular snap distance (km).
func ProjectPointToPolyline(coords []Coordinate, snap Coordinate) (Coordinate, float64, float64) {
	bestDist := -1.0
	bestAlong := 0.0
	var bestCoord Coordinate

	traveled := 0.0
	for i := 1; i < len(coords); i++ {
		projected := ProjectPointToLineCoord(coords[i-1], coords[i], snap)
		perp := CalculateHaversineDistance(snap.Lat, snap.Lon, projected.Lat, projected.Lon)
		if bestDist < 0 || perp < bestDist {
			bestDist = perp
			bestCoord = projected
			bestAlong = traveled + CalculateHaversineDistance(coords[i-1].Lat, coords[i-1].Lon,
				projected.Lat, projected.Lon)
		}
		traveled += CalculateHaversineDistance(coords[i-1].Lat, coords[i-1].Lon,
			coords[i].Lat, coords[i].Lon)
	}

	return bestCoord, bestAlong, bestDist
}
