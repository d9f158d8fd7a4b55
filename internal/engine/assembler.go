package engine

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/image/draw"

	"github.com/ivlev/photomosaic/internal/index"
	"github.com/ivlev/photomosaic/internal/matcher"
	"github.com/ivlev/photomosaic/internal/mosaic"
	"github.com/ivlev/photomosaic/internal/pixel"
	"github.com/ivlev/photomosaic/internal/sampler"
	"github.com/ivlev/photomosaic/internal/source"
)

// DefaultBlockSize is the number of sampled pixels per block side.
const DefaultBlockSize = 8

var (
	ErrEmptyIndex  = matcher.ErrEmptyIndex
	ErrInvalidGrid = errors.New("engine: invalid grid")
)

// Assembler partitions a target into blocks and matches every block.
type Assembler struct {
	Matcher   matcher.Matcher
	BlockSize int
	// Interpolator is used to sample the target; nil means bilinear.
	Interpolator draw.Interpolator
}

// Assemble samples target at (cols·BlockSize)×(rows·BlockSize) and returns one
// record per cell in row-major order. An empty index fails before the target
// is touched; a target that cannot be decoded fails the whole call.
func (a *Assembler) Assemble(ctx context.Context, target source.Resource, cols, rows int, idx *index.Index) ([]mosaic.MatchRecord, error) {
	if err := a.checkGrid(cols, rows); err != nil {
		return nil, err
	}
	if idx == nil || idx.Len() == 0 {
		return nil, ErrEmptyIndex
	}

	s, err := sampler.New(cols*a.BlockSize, rows*a.BlockSize, a.Interpolator)
	if err != nil {
		return nil, err
	}
	buf, err := s.Sample(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("sample target: %w", err)
	}

	return a.AssembleBuffer(ctx, buf, cols, rows, idx)
}

// AssembleBuffer matches an already sampled target.
func (a *Assembler) AssembleBuffer(ctx context.Context, buf *pixel.Buffer, cols, rows int, idx *index.Index) ([]mosaic.MatchRecord, error) {
	if err := a.checkGrid(cols, rows); err != nil {
		return nil, err
	}
	if idx == nil || idx.Len() == 0 {
		return nil, ErrEmptyIndex
	}

	blocks, err := Partition(ctx, buf, cols, rows, a.BlockSize)
	if err != nil {
		return nil, err
	}

	records := make([]mosaic.MatchRecord, 0, len(blocks))
	for _, b := range blocks {
		entry, d, err := a.Matcher.Match(b.Color, idx)
		if err != nil {
			return nil, err
		}
		records = append(records, mosaic.MatchRecord{
			Position:      b.Position,
			MaterialID:    entry.ID,
			TargetColor:   b.Color,
			MaterialColor: entry.Color,
			Distance:      d,
		})
	}
	return records, nil
}

// Partition averages every size×size cell of buf in row-major order. ctx is
// checked once per row.
func Partition(ctx context.Context, buf *pixel.Buffer, cols, rows, size int) ([]mosaic.Block, error) {
	if buf.Width() != cols*size || buf.Height() != rows*size {
		return nil, fmt.Errorf("%w: buffer %dx%d does not hold %dx%d blocks of %d px",
			ErrInvalidGrid, buf.Width(), buf.Height(), cols, rows, size)
	}

	blocks := make([]mosaic.Block, 0, cols*rows)
	for row := 0; row < rows; row++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for col := 0; col < cols; col++ {
			pos := mosaic.Position{Row: row, Col: col}
			rect := mosaic.CellRect(pos, size)
			c, err := pixel.Average(buf, rect)
			if err != nil {
				return nil, err
			}
			blocks = append(blocks, mosaic.Block{Position: pos, Rect: rect, Color: c})
		}
	}
	return blocks, nil
}

func (a *Assembler) checkGrid(cols, rows int) error {
	if cols <= 0 || rows <= 0 || a.BlockSize <= 0 {
		return fmt.Errorf("%w: %dx%d blocks of %d px", ErrInvalidGrid, cols, rows, a.BlockSize)
	}
	return nil
}
