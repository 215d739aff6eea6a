// Package binder projects point observations onto the nearest metric-graph
// edge. Binding never mutates the graph: it returns a new immutable Dataset
// referencing it, so multiple analyses can share one graph without aliasing
// surprises.
package binder

import (
	"math"
	"sort"

	"github.com/roadstats/trafficfield/pkg/dataset"
	"github.com/roadstats/trafficfield/pkg/geo"
	"github.com/roadstats/trafficfield/pkg/metricgraph"
	"github.com/roadstats/trafficfield/pkg/spatialindex"
	"github.com/roadstats/trafficfield/pkg/util"
	"go.uber.org/zap"
)

const (
	// tieEPS two candidate edges closer than this (km) count as equidistant.
	tieEPS = 1e-9
)

// Point is an unbound observation: a coordinate plus named attribute values.
type Point struct {
	Coord  geo.Coordinate
	Values map[string]float64
}

// BoundPoint is a Point projected onto a specific edge at a distance along it.
type BoundPoint struct {
	EdgeID int
	Dist   float64
	Coord  geo.Coordinate // projected coordinate on the edge
}

type Options struct {
	// MaxSnapDistance points farther than this (km) from every edge are
	// dropped and counted, not bound.
	MaxSnapDistance float64
	// SearchRadius spatial index query radius (km). Defaults to
	// MaxSnapDistance when zero.
	SearchRadius float64
}

func DefaultOptions() Options {
	return Options{
		MaxSnapDistance: 0.05, // 50 m
	}
}

// Dataset is an immutable set of bound observations on one graph. All
// "mutators" return a new Dataset.
type Dataset struct {
	graph   *metricgraph.Graph
	points  []BoundPoint
	columns map[string][]float64
	dropped int
}

func (d *Dataset) Graph() *metricgraph.Graph { return d.graph }

func (d *Dataset) Points() []BoundPoint { return d.points }

func (d *Dataset) Len() int { return len(d.points) }

// Dropped reports how many input points were beyond the maximum snap
// distance from every edge.
func (d *Dataset) Dropped() int { return d.dropped }

func (d *Dataset) Column(name string) ([]float64, bool) {
	col, ok := d.columns[name]
	return col, ok
}

func (d *Dataset) ColumnNames() []string {
	names := make([]string, 0, len(d.columns))
	for name := range d.columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Bind projects every point onto its nearest edge and returns a fresh
// dataset (the "clear" mode of rebinding: no residue from prior bindings).
// Equidistant candidate edges tie-break to the lowest edge id.
func Bind(g *metricgraph.Graph, index *spatialindex.Rtree, points []Point,
	opts Options, log *zap.Logger) (*Dataset, error) {

	if opts.MaxSnapDistance <= 0 {
		opts.MaxSnapDistance = DefaultOptions().MaxSnapDistance
	}
	if opts.SearchRadius <= 0 {
		opts.SearchRadius = opts.MaxSnapDistance
	}

	ds := &Dataset{
		graph:   g,
		columns: make(map[string][]float64),
	}

	for _, p := range points {
		bound, ok := snapPoint(g, index, p.Coord, opts)
		if !ok {
			ds.dropped++
			continue
		}
		ds.points = append(ds.points, bound)
		for name, v := range p.Values {
			col, exists := ds.columns[name]
			if !exists {
				col = makeNaN(len(ds.points) - 1)
			}
			ds.columns[name] = append(col, v)
		}
		// keep ragged columns rectangular
		for name, col := range ds.columns {
			if len(col) < len(ds.points) {
				ds.columns[name] = append(col, math.NaN())
			}
		}
	}

	if len(points) > 0 && len(ds.points) == 0 {
		return nil, util.WrapErrorf(nil, util.ErrBindingFailure,
			"no observation within %f km of any edge", opts.MaxSnapDistance)
	}
	if ds.dropped > 0 {
		log.Warn("points beyond max snap distance were dropped",
			zap.Int("dropped", ds.dropped),
			zap.Float64("max_snap_distance_km", opts.MaxSnapDistance))
	}

	return ds, nil
}

// Append returns the union of d and other ("append" mode). Both must be
// bound to the same graph.
func (d *Dataset) Append(other *Dataset) (*Dataset, error) {
	if d.graph != other.graph {
		return nil, util.WrapErrorf(nil, util.ErrDimensionMismatch,
			"cannot append datasets bound to different graphs")
	}

	out := &Dataset{
		graph:   d.graph,
		points:  make([]BoundPoint, 0, len(d.points)+len(other.points)),
		columns: make(map[string][]float64),
		dropped: d.dropped + other.dropped,
	}
	out.points = append(out.points, d.points...)
	out.points = append(out.points, other.points...)

	for name, col := range d.columns {
		merged := make([]float64, 0, len(out.points))
		merged = append(merged, col...)
		if otherCol, ok := other.columns[name]; ok {
			merged = append(merged, otherCol...)
		} else {
			merged = append(merged, makeNaN(len(other.points))...)
		}
		out.columns[name] = merged
	}
	for name, col := range other.columns {
		if _, done := out.columns[name]; done {
			continue
		}
		merged := makeNaN(len(d.points))
		merged = append(merged, col...)
		out.columns[name] = merged
	}

	return out, nil
}

// Derive computes a new column as a pure function of existing columns,
// without re-binding coordinates. Returns a new dataset.
func (d *Dataset) Derive(name string, fn func(row map[string]float64) float64) (*Dataset, error) {
	if _, exists := d.columns[name]; exists {
		return nil, util.WrapErrorf(nil, util.ErrBadParamInput,
			"column %q already exists", name)
	}

	out := d.clone()
	derived := make([]float64, len(d.points))
	row := make(map[string]float64, len(d.columns))
	for i := range d.points {
		for col, vals := range d.columns {
			row[col] = vals[i]
		}
		derived[i] = fn(row)
	}
	out.columns[name] = derived
	return out, nil
}

func (d *Dataset) clone() *Dataset {
	out := &Dataset{
		graph:   d.graph,
		points:  make([]BoundPoint, len(d.points)),
		columns: make(map[string][]float64, len(d.columns)),
		dropped: d.dropped,
	}
	copy(out.points, d.points)
	for name, col := range d.columns {
		cp := make([]float64, len(col))
		copy(cp, col)
		out.columns[name] = cp
	}
	return out
}

func snapPoint(g *metricgraph.Graph, index *spatialindex.Rtree, c geo.Coordinate,
	opts Options) (BoundPoint, bool) {

	candidates := index.SearchWithinRadius(c.Lat, c.Lon, opts.SearchRadius)
	if len(candidates) == 0 {
		return BoundPoint{}, false
	}
	// ascending edge id keeps the equidistant tie-break deterministic
	sort.Ints(candidates)

	best := BoundPoint{EdgeID: -1}
	bestDist := math.Inf(1)
	for _, edgeID := range candidates {
		e := g.GetEdge(edgeID)
		projected, along, perp := geo.ProjectPointToPolyline(e.GetGeometry(), c)
		if perp < bestDist-tieEPS {
			bestDist = perp
			best = BoundPoint{
				EdgeID: edgeID,
				Dist:   clamp(along, 0, e.GetLength()),
				Coord:  projected,
			}
		}
	}

	if best.EdgeID < 0 || bestDist > opts.MaxSnapDistance {
		return BoundPoint{}, false
	}
	return best, true
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func makeNaN(n int) []float64 {
	col := make([]float64, n)
	for i := range col {
		col[i] = math.NaN()
	}
	return col
}

// FromTraffic converts loaded traffic observations into bindable points with
// intensity and log_intensity columns.
func FromTraffic(obs []dataset.TrafficObservation) []Point {
	points := make([]Point, len(obs))
	for i, o := range obs {
		points[i] = Point{
			Coord: o.Coord,
			Values: map[string]float64{
				"intensity":     o.Intensity,
				"log_intensity": o.LogIntensity,
			},
		}
	}
	return points
}

// FromSensors converts sensor locations into bindable points (no attribute
// columns, position only).
func FromSensors(sensors []dataset.SensorLocation) []Point {
	points := make([]Point, len(sensors))
	for i, s := range sensors {
		points[i] = Point{Coord: s.Coord, Values: map[string]float64{}}
	}
	return points
}
