package pixel

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
)

// Color is a non-premultiplied RGBA sample, one byte per channel.
type Color struct {
	R uint8 `yaml:"r" json:"r"`
	G uint8 `yaml:"g" json:"g"`
	B uint8 `yaml:"b" json:"b"`
	A uint8 `yaml:"a" json:"a"`
}

// RGBA implements color.Color so a Color can be handed straight to a renderer.
func (c Color) RGBA() (r, g, b, a uint32) {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}.RGBA()
}

func (c Color) String() string {
	return fmt.Sprintf("rgba(%d,%d,%d,%d)", c.R, c.G, c.B, c.A)
}

// FromColor converts any color.Color into a non-premultiplied Color.
func FromColor(c color.Color) Color {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return Color{R: n.R, G: n.G, B: n.B, A: n.A}
}

// Buffer is an immutable grid of RGBA samples with its origin at (0, 0).
type Buffer struct {
	width, height int
	pix           []uint8
}

// NewBuffer copies the pixels of img into a new Buffer. The source image is
// not retained, so the caller may reuse it afterwards.
func NewBuffer(img *image.NRGBA) *Buffer {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	pix := make([]uint8, w*h*4)
	for y := 0; y < h; y++ {
		src := img.PixOffset(bounds.Min.X, bounds.Min.Y+y)
		copy(pix[y*w*4:(y+1)*w*4], img.Pix[src:src+w*4])
	}
	return &Buffer{width: w, height: h, pix: pix}
}

// FromImage converts an arbitrary image into a Buffer without scaling.
func FromImage(img image.Image) *Buffer {
	if n, ok := img.(*image.NRGBA); ok {
		return NewBuffer(n)
	}
	bounds := img.Bounds()
	n := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(n, n.Bounds(), img, bounds.Min, draw.Src)
	return NewBuffer(n)
}

func (b *Buffer) Width() int  { return b.width }
func (b *Buffer) Height() int { return b.height }

func (b *Buffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, b.width, b.height)
}

// At returns the sample at (x, y), or the zero Color outside the bounds.
func (b *Buffer) At(x, y int) Color {
	if x < 0 || y < 0 || x >= b.width || y >= b.height {
		return Color{}
	}
	i := (y*b.width + x) * 4
	return Color{R: b.pix[i], G: b.pix[i+1], B: b.pix[i+2], A: b.pix[i+3]}
}
