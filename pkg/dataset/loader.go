// Package dataset loads the two prepared geojson inputs: traffic sensor
// locations and aggregated traffic measurements. Records are immutable once
// loaded.
package dataset

import (
	"fmt"
	"math"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/roadstats/trafficfield/pkg/geo"
	"github.com/roadstats/trafficfield/pkg/util"
	"go.uber.org/zap"
)

const defaultCRS = "EPSG:4326"

type SensorLocation struct {
	ID    string
	Coord geo.Coordinate
	CRS   string
}

type TrafficObservation struct {
	Coord     geo.Coordinate
	Period    string
	Intensity float64
	// LogIntensity = log(max(1, Intensity)), computed once at load.
	LogIntensity float64
}

// LoadSensors reads sensor point locations from a geojson feature collection.
// Features without point geometry are rejected.
func LoadSensors(path string, log *zap.Logger) ([]SensorLocation, error) {
	fc, err := readFeatureCollection(path)
	if err != nil {
		return nil, err
	}

	sensors := make([]SensorLocation, 0, len(fc.Features))
	for i, f := range fc.Features {
		point, ok := f.Geometry.(orb.Point)
		if !ok {
			return nil, util.WrapErrorf(nil, util.ErrBadParamInput,
				"%s: feature %d has non-point geometry %T", path, i, f.Geometry)
		}
		id := f.Properties.MustString("id", "")
		if id == "" {
			id = fmt.Sprintf("sensor-%d", i)
		}
		sensors = append(sensors, SensorLocation{
			ID:    id,
			Coord: geo.NewCoordinate(point.Lat(), point.Lon()),
			CRS:   defaultCRS,
		})
	}

	log.Info("sensor locations loaded", zap.String("file", path), zap.Int("count", len(sensors)))
	return sensors, nil
}

// LoadTraffic reads aggregated traffic measurements (point, period label,
// intensity per interval) from a geojson feature collection.
func LoadTraffic(path string, log *zap.Logger) ([]TrafficObservation, error) {
	fc, err := readFeatureCollection(path)
	if err != nil {
		return nil, err
	}

	obs := make([]TrafficObservation, 0, len(fc.Features))
	for i, f := range fc.Features {
		point, ok := f.Geometry.(orb.Point)
		if !ok {
			return nil, util.WrapErrorf(nil, util.ErrBadParamInput,
				"%s: feature %d has non-point geometry %T", path, i, f.Geometry)
		}
		intensity := f.Properties.MustFloat64("intensity", math.NaN())
		if math.IsNaN(intensity) {
			return nil, util.WrapErrorf(nil, util.ErrBadParamInput,
				"%s: feature %d missing intensity property", path, i)
		}
		obs = append(obs, TrafficObservation{
			Coord:        geo.NewCoordinate(point.Lat(), point.Lon()),
			Period:       f.Properties.MustString("period", ""),
			Intensity:    intensity,
			LogIntensity: math.Log(math.Max(1, intensity)),
		})
	}

	log.Info("traffic observations loaded", zap.String("file", path), zap.Int("count", len(obs)))
	return obs, nil
}

func readFeatureCollection(path string) (*geojson.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrDataUnavailable, "reading %s", path)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrBadParamInput, "parsing %s", path)
	}
	return fc, nil
}
