// Package mosaic holds the records exchanged between the assembler and
// whatever renders the final picture.
package mosaic

import (
	"fmt"
	"image"

	"github.com/ivlev/photomosaic/internal/pixel"
)

// Position identifies one grid cell.
type Position struct {
	Row int `yaml:"row" json:"row"`
	Col int `yaml:"col" json:"col"`
}

// Index returns the row-major ordinal of p in a grid with cols columns.
func (p Position) Index(cols int) int {
	return p.Row*cols + p.Col
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
}

// Block is one cell of the target partition with its averaged color.
type Block struct {
	Position
	Rect  image.Rectangle
	Color pixel.Color
}

// MatchRecord associates a block position with the chosen material.
type MatchRecord struct {
	Position      `yaml:",inline"`
	MaterialID    string      `yaml:"material" json:"material"`
	TargetColor   pixel.Color `yaml:"target_color" json:"target_color"`
	MaterialColor pixel.Color `yaml:"material_color" json:"material_color"`
	Distance      int         `yaml:"distance" json:"distance"`
}

// CellRect returns the pixel rectangle of p when every cell is size×size.
func CellRect(p Position, size int) image.Rectangle {
	return image.Rect(p.Col*size, p.Row*size, (p.Col+1)*size, (p.Row+1)*size)
}
