// Package viz renders graphs, bound observations and predicted fields as
// geojson overlays for map viewers. Read-only consumer of the pipeline's
// outputs, nothing here mutates a graph or dataset.
package viz

import (
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/roadstats/trafficfield/pkg/binder"
	"github.com/roadstats/trafficfield/pkg/field"
	"github.com/roadstats/trafficfield/pkg/geo"
	"github.com/roadstats/trafficfield/pkg/metricgraph"
	"github.com/roadstats/trafficfield/pkg/util"
)

// RenderGraph emits one linestring feature per edge and one point feature
// per vertex.
func RenderGraph(g *metricgraph.Graph) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	g.ForEdges(func(e metricgraph.Edge) {
		f := geojson.NewFeature(lineString(e.GetGeometry()))
		f.Properties["edge_id"] = e.GetID()
		f.Properties["length_km"] = util.RoundFloat(e.GetLength(), 6)
		f.Properties["category"] = e.GetCategory()
		fc.Append(f)
	})

	g.ForVertices(func(v metricgraph.Vertex) {
		c := v.GetCoordinate()
		f := geojson.NewFeature(orb.Point{c.Lon, c.Lat})
		f.Properties["vertex_id"] = v.GetID()
		fc.Append(f)
	})

	return fc
}

// RenderObservations emits one point feature per bound observation, colored
// by the named column on a shared scale.
func RenderObservations(ds *binder.Dataset, column string) (*geojson.FeatureCollection, error) {
	values, ok := ds.Column(column)
	if !ok {
		return nil, util.WrapErrorf(nil, util.ErrBadParamInput,
			"column %q not bound", column)
	}

	min, max := minMax(values)
	scale := NewColorScale(min, max)

	fc := geojson.NewFeatureCollection()
	for i, p := range ds.Points() {
		f := geojson.NewFeature(orb.Point{p.Coord.Lon, p.Coord.Lat})
		f.Properties["edge_id"] = p.EdgeID
		f.Properties["dist_km"] = util.RoundFloat(p.Dist, 6)
		f.Properties[column] = values[i]
		f.Properties["marker-color"] = scale.Hex(values[i])
		fc.Append(f)
	}
	return fc, nil
}

// RenderField emits the predicted field at mesh points, colored by the
// posterior mean on a shared scale. Variance, when present, rides along as a
// property.
func RenderField(g *metricgraph.Graph, pred *field.Prediction) *geojson.FeatureCollection {
	min, max := minMax(pred.Mean)
	scale := NewColorScale(min, max)

	fc := geojson.NewFeatureCollection()
	for i, p := range pred.Points {
		c := g.GetEdge(p.EdgeID).PointAt(p.Dist)
		f := geojson.NewFeature(orb.Point{c.Lon, c.Lat})
		f.Properties["edge_id"] = p.EdgeID
		f.Properties["dist_km"] = util.RoundFloat(p.Dist, 6)
		f.Properties["mean"] = pred.Mean[i]
		if pred.Variance != nil {
			f.Properties["variance"] = pred.Variance[i]
		}
		f.Properties["marker-color"] = scale.Hex(pred.Mean[i])
		fc.Append(f)
	}
	return fc
}

// WriteFile marshals a feature collection to a geojson file.
func WriteFile(fc *geojson.FeatureCollection, path string) error {
	data, err := fc.MarshalJSON()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func lineString(coords []geo.Coordinate) orb.LineString {
	ls := make(orb.LineString, len(coords))
	for i, c := range coords {
		ls[i] = orb.Point{c.Lon, c.Lat}
	}
	return ls
}
