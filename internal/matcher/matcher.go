// Package matcher finds the material whose averaged color is nearest to a
// target color.
//
// The search is a linear scan: O(M) per block and O(B·M) for a whole mosaic
// of B blocks and M materials, which dominates the pipeline. A spatial index
// over color space (a k-d tree, say) can replace the scan behind Match as
// long as it keeps the tie-break below.
package matcher

import (
	"errors"

	"github.com/ivlev/photomosaic/internal/index"
	"github.com/ivlev/photomosaic/internal/pixel"
)

// ErrEmptyIndex is returned when there is no material to match against.
var ErrEmptyIndex = errors.New("matcher: empty color index")

// Matcher compares colors by squared Euclidean distance over R, G, B and,
// when IncludeAlpha is set, A.
type Matcher struct {
	IncludeAlpha bool
}

// Distance is the sum of squared per-channel differences.
func Distance(a, b pixel.Color, includeAlpha bool) int {
	dr := int(a.R) - int(b.R)
	dg := int(a.G) - int(b.G)
	db := int(a.B) - int(b.B)
	d := dr*dr + dg*dg + db*db
	if includeAlpha {
		da := int(a.A) - int(b.A)
		d += da * da
	}
	return d
}

// Match returns the entry nearest to target and its distance. Ties go to
// the entry that comes first in the index.
func (m Matcher) Match(target pixel.Color, idx *index.Index) (index.Entry, int, error) {
	if idx == nil || idx.Len() == 0 {
		return index.Entry{}, 0, ErrEmptyIndex
	}

	var (
		bestFit     = idx.At(0)
		minDistance = Distance(target, bestFit.Color, m.IncludeAlpha)
	)
	for i := 1; i < idx.Len(); i++ {
		e := idx.At(i)
		d := Distance(target, e.Color, m.IncludeAlpha)
		if d < minDistance {
			bestFit = e
			minDistance = d
		}
	}
	return bestFit, minDistance, nil
}
