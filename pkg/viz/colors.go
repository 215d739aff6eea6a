package viz

import (
	"fmt"
	"math"
)

// viridis anchor colors, interpolated linearly in RGB.
var viridisAnchors = [][3]float64{
	{68, 1, 84},
	{59, 82, 139},
	{33, 145, 140},
	{94, 201, 98},
	{253, 231, 37},
}

// ColorScale maps values in [min, max] onto one shared color ramp. All
// overlays of a continuous attribute in a single render call use the same
// scale so they are visually comparable.
type ColorScale struct {
	min, max float64
}

func NewColorScale(min, max float64) ColorScale {
	return ColorScale{min: min, max: max}
}

func (s ColorScale) Hex(v float64) string {
	t := 0.5
	if s.max > s.min {
		t = (v - s.min) / (s.max - s.min)
	}
	t = math.Min(math.Max(t, 0), 1)

	pos := t * float64(len(viridisAnchors)-1)
	lo := int(math.Floor(pos))
	if lo >= len(viridisAnchors)-1 {
		lo = len(viridisAnchors) - 2
	}
	frac := pos - float64(lo)

	a, b := viridisAnchors[lo], viridisAnchors[lo+1]
	r := int(math.Round(a[0] + frac*(b[0]-a[0])))
	g := int(math.Round(a[1] + frac*(b[1]-a[1])))
	bb := int(math.Round(a[2] + frac*(b[2]-a[2])))
	return fmt.Sprintf("#%02x%02x%02x", r, g, bb)
}

func minMax(values []float64) (float64, float64) {
	min, max := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		min = math.Min(min, v)
		max = math.Max(max, v)
	}
	return min, max
}
