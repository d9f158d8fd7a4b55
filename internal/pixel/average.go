package pixel

import (
	"errors"
	"fmt"
	"image"
)

// ErrOutOfBounds is returned when a region reaches outside the buffer.
var ErrOutOfBounds = errors.New("pixel: region outside buffer bounds")

// EmptyRegionError reports an average requested over zero pixels.
type EmptyRegionError struct {
	Rect image.Rectangle
}

func (e *EmptyRegionError) Error() string {
	return fmt.Sprintf("pixel: empty region %v", e.Rect)
}

// Average returns the per-channel mean of the samples inside r.
//
// Channels are summed first and divided once, rounding half away from zero,
// so 2.5 becomes 3 and 2.49 becomes 2. Materials and target blocks both go
// through this function, which keeps their colors comparable.
func Average(b *Buffer, r image.Rectangle) (Color, error) {
	if r.Empty() {
		return Color{}, &EmptyRegionError{Rect: r}
	}
	if !r.In(b.Bounds()) {
		return Color{}, fmt.Errorf("%w: %v not in %v", ErrOutOfBounds, r, b.Bounds())
	}

	var rSum, gSum, bSum, aSum uint64
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := b.pix[(y*b.width+r.Min.X)*4 : (y*b.width+r.Max.X)*4]
		for i := 0; i < len(row); i += 4 {
			rSum += uint64(row[i])
			gSum += uint64(row[i+1])
			bSum += uint64(row[i+2])
			aSum += uint64(row[i+3])
		}
	}

	n := uint64(r.Dx() * r.Dy())
	return Color{
		R: roundDiv(rSum, n),
		G: roundDiv(gSum, n),
		B: roundDiv(bSum, n),
		A: roundDiv(aSum, n),
	}, nil
}

// AverageAll averages the whole buffer.
func AverageAll(b *Buffer) (Color, error) {
	return Average(b, b.Bounds())
}

func roundDiv(sum, n uint64) uint8 {
	return uint8((sum + n/2) / n)
}
