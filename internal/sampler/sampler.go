// Package sampler decodes image resources into small fixed-size pixel buffers.
package sampler

import (
	"context"
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/ivlev/photomosaic/internal/pixel"
	"github.com/ivlev/photomosaic/internal/source"
	"github.com/ivlev/photomosaic/internal/system"
)

// DefaultSize is the side of the sampling canvas used for materials.
const DefaultSize = 20

// DecodeError reports a resource that could not be loaded or decoded.
type DecodeError struct {
	ID  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.ID, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

var errEmptyImage = errors.New("image has no pixels")

// Sampler scales images into a Width×Height canvas.
type Sampler struct {
	Width, Height int
	// Interpolator defaults to draw.BiLinear.
	Interpolator draw.Interpolator
	// Canvases defaults to the process-wide pool.
	Canvases *system.CanvasPool
}

// New returns a sampler for a w×h canvas.
func New(w, h int, interp draw.Interpolator) (*Sampler, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("sampler: invalid resolution %dx%d", w, h)
	}
	return &Sampler{Width: w, Height: h, Interpolator: interp}, nil
}

// Sample decodes res and returns its pixels at the sampler's resolution.
// Load and decode failures come back as *DecodeError; a canceled ctx is
// returned as is.
func (s *Sampler) Sample(ctx context.Context, res source.Resource) (*pixel.Buffer, error) {
	img, err := res.Decode(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &DecodeError{ID: res.ID(), Err: err}
	}

	buf, err := s.SampleImage(img)
	if err != nil {
		return nil, &DecodeError{ID: res.ID(), Err: err}
	}
	return buf, nil
}

// SampleImage scales an already decoded image. The largest centered region
// of img with the canvas aspect ratio is drawn so that no side is stretched.
func (s *Sampler) SampleImage(img image.Image) (*pixel.Buffer, error) {
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, errEmptyImage
	}

	get, put := system.GetCanvas, system.PutCanvas
	if s.Canvases != nil {
		get, put = s.Canvases.Get, s.Canvases.Put
	}
	canvas := get(s.Width, s.Height)
	defer put(canvas)

	src := CoverRect(bounds, s.Width, s.Height)
	if src.Size() == canvas.Rect.Size() {
		draw.Draw(canvas, canvas.Rect, img, src.Min, draw.Src)
	} else {
		interp := s.Interpolator
		if interp == nil {
			interp = draw.BiLinear
		}
		interp.Scale(canvas, canvas.Rect, img, src, draw.Src, nil)
	}

	return pixel.NewBuffer(canvas), nil
}

// CoverRect returns the largest rectangle centered in src whose aspect ratio
// is w:h.
func CoverRect(src image.Rectangle, w, h int) image.Rectangle {
	sw, sh := src.Dx(), src.Dy()
	cw, ch := sw, sh
	if sw*h > sh*w {
		cw = (sh*w + h/2) / h
	} else {
		ch = (sw*h + w/2) / w
	}
	if cw < 1 {
		cw = 1
	}
	if ch < 1 {
		ch = 1
	}
	return image.Rect(0, 0, cw, ch).Add(src.Min).Add(image.Pt((sw-cw)/2, (sh-ch)/2))
}
