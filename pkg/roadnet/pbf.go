package roadnet

import (
	"context"
	"os"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/roadstats/trafficfield/pkg/geo"
	"github.com/roadstats/trafficfield/pkg/util"
	"go.uber.org/zap"
)

// PBFSource reads road features from a local openstreetmap .osm.pbf extract.
type PBFSource struct {
	path string
	log  *zap.Logger
}

func NewPBFSource(path string, log *zap.Logger) *PBFSource {
	return &PBFSource{
		path: path,
		log:  log,
	}
}

type pbfWay struct {
	id       int64
	category string
	nodeIDs  []int64
}

// FetchRoads scans the extract twice: first pass collects matching ways and
// the node ids they reference, second pass resolves node coordinates.
func (s *PBFSource) FetchRoads(ctx context.Context, bbox geo.BoundingBox,
	categories []string) ([]RoadSegment, error) {

	if !bbox.Valid() {
		return nil, util.WrapErrorf(nil, util.ErrBadParamInput,
			"invalid bounding box: %+v", bbox)
	}
	accepted := categorySet(categories)

	ways := make([]pbfWay, 0, 1024)
	wayNodes := make(map[int64]geo.Coordinate)

	err := s.scan(ctx, func(o osm.Object) {
		way, ok := o.(*osm.Way)
		if !ok {
			return
		}
		if len(way.Nodes) < 2 {
			return
		}
		highway := way.Tags.Find("highway")
		if _, ok := accepted[highway]; !ok {
			return
		}
		nodeIDs := make([]int64, len(way.Nodes))
		for i, wn := range way.Nodes {
			nodeIDs[i] = int64(wn.ID)
			wayNodes[int64(wn.ID)] = geo.Coordinate{}
		}
		ways = append(ways, pbfWay{
			id:       int64(way.ID),
			category: highway,
			nodeIDs:  nodeIDs,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("reading openstreetmap extract", zap.String("file", s.path),
		zap.Int("matching_ways", len(ways)))

	err = s.scan(ctx, func(o osm.Object) {
		node, ok := o.(*osm.Node)
		if !ok {
			return
		}
		if _, wanted := wayNodes[int64(node.ID)]; wanted {
			wayNodes[int64(node.ID)] = geo.NewCoordinate(node.Lat, node.Lon)
		}
	})
	if err != nil {
		return nil, err
	}

	segments := make([]RoadSegment, 0, len(ways))
	for _, w := range ways {
		geom := make([]geo.Coordinate, 0, len(w.nodeIDs))
		inside := false
		for _, id := range w.nodeIDs {
			c := wayNodes[id]
			geom = append(geom, c)
			if bbox.Contains(c) {
				inside = true
			}
		}
		if !inside {
			continue
		}
		segments = append(segments, NewRoadSegment(w.id, w.category, geom))
	}

	if len(segments) == 0 {
		return nil, util.WrapErrorf(nil, util.ErrDataUnavailable,
			"no road features matched in %s", s.path)
	}

	return segments, nil
}

func (s *PBFSource) scan(ctx context.Context, fn func(osm.Object)) error {
	f, err := os.Open(s.path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := osmpbf.New(ctx, f, 0)
	defer scanner.Close()

	for scanner.Scan() {
		fn(scanner.Object())
	}
	return scanner.Err()
}
