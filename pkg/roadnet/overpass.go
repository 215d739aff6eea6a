package roadnet

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/roadstats/trafficfield/pkg/geo"
	"github.com/roadstats/trafficfield/pkg/util"
	"github.com/serjvanilla/go-overpass"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const defaultOverpassEndpoint = "https://overpass-api.de/api/interpreter"

type OverpassSource struct {
	client  *overpass.Client
	limiter *rate.Limiter
	log     *zap.Logger
}

// NewOverpassSource builds an Overpass-backed road source. Queries are rate
// limited to one per interval, public Overpass instances throttle heavier use.
func NewOverpassSource(endpoint string, timeout time.Duration, interval time.Duration,
	log *zap.Logger) *OverpassSource {
	if endpoint == "" {
		endpoint = defaultOverpassEndpoint
	}
	httpClient := &http.Client{
		Timeout: timeout,
	}
	client := overpass.NewWithSettings(endpoint, 1, httpClient)
	return &OverpassSource{
		client:  &client,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		log:     log,
	}
}

func (s *OverpassSource) FetchRoads(ctx context.Context, bbox geo.BoundingBox,
	categories []string) ([]RoadSegment, error) {

	if !bbox.Valid() {
		return nil, util.WrapErrorf(nil, util.ErrBadParamInput,
			"invalid bounding box: %+v", bbox)
	}
	if len(categories) == 0 {
		categories = DefaultCategories()
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	bboxClause := fmt.Sprintf("%f,%f,%f,%f", bbox.MinLat, bbox.MinLon, bbox.MaxLat, bbox.MaxLon)
	query := fmt.Sprintf(`
		[out:json];
		(
			way["highway"~"^(%s)$"](%s);
		);
		out body;
		>;
		out skel qt;
	`, strings.Join(categories, "|"), bboxClause)

	s.log.Info("querying overpass for road features",
		zap.String("bbox", bboxClause), zap.Int("categories", len(categories)))

	result, err := s.client.Query(query)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrDataUnavailable,
			"overpass query failed")
	}

	segments := make([]RoadSegment, 0, len(result.Ways))
	for wayID, way := range result.Ways {
		if way == nil || len(way.Nodes) < 2 {
			continue
		}
		geom := make([]geo.Coordinate, 0, len(way.Nodes))
		for _, node := range way.Nodes {
			if node == nil {
				continue
			}
			geom = append(geom, geo.NewCoordinate(node.Lat, node.Lon))
		}
		if len(geom) < 2 {
			continue
		}
		segments = append(segments, NewRoadSegment(wayID, way.Tags["highway"], geom))
	}

	if len(segments) == 0 {
		return nil, util.WrapErrorf(nil, util.ErrDataUnavailable,
			"no road features matched bbox %s", bboxClause)
	}

	s.log.Info("overpass fetch done", zap.Int("segments", len(segments)))
	return segments, nil
}
