package sampler

import (
	"fmt"

	"golang.org/x/image/draw"
)

// NewInterpolator returns the scaling kernel registered under name.
func NewInterpolator(name string) (draw.Interpolator, error) {
	switch name {
	case "bilinear", "":
		return draw.BiLinear, nil
	case "nearest":
		return draw.NearestNeighbor, nil
	case "approx-bilinear":
		return draw.ApproxBiLinear, nil
	case "catmull-rom":
		return draw.CatmullRom, nil
	default:
		return nil, fmt.Errorf("unknown interpolator: %s", name)
	}
}
