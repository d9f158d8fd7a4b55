package engine

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync/atomic"
	"testing"

	"github.com/ivlev/photomosaic/internal/index"
	"github.com/ivlev/photomosaic/internal/matcher"
	"github.com/ivlev/photomosaic/internal/pixel"
	"github.com/ivlev/photomosaic/internal/sampler"
)

type memResource struct {
	id      string
	img     image.Image
	err     error
	decodes atomic.Int32
}

func (m *memResource) ID() string { return m.id }

func (m *memResource) Decode(ctx context.Context) (image.Image, error) {
	m.decodes.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.img, m.err
}

var (
	black = color.NRGBA{0, 0, 0, 255}
	white = color.NRGBA{255, 255, 255, 255}
	red   = color.NRGBA{255, 0, 0, 255}
	blue  = color.NRGBA{0, 0, 255, 255}
)

// quadrants returns a 2·size square with tl, tr, bl, br quadrants.
func quadrants(size int, tl, tr, bl, br color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 2*size, 2*size))
	for y := 0; y < 2*size; y++ {
		for x := 0; x < 2*size; x++ {
			c := tl
			switch {
			case x >= size && y < size:
				c = tr
			case x < size && y >= size:
				c = bl
			case x >= size && y >= size:
				c = br
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func blackWhiteIndex() *index.Index {
	return index.New(
		index.Entry{ID: "white", Color: pixel.FromColor(white)},
		index.Entry{ID: "black", Color: pixel.FromColor(black)},
	)
}

func TestAssembleCheckerboard(t *testing.T) {
	target := &memResource{id: "target", img: quadrants(4, black, white, red, blue)}
	asm := &Assembler{BlockSize: 4}

	records, err := asm.Assemble(context.Background(), target, 2, 2, blackWhiteIndex())
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	want := []struct {
		row, col int
		material string
		target   color.NRGBA
	}{
		{0, 0, "black", black},
		{0, 1, "white", white},
		{1, 0, "black", red},
		{1, 1, "black", blue},
	}
	if len(records) != len(want) {
		t.Fatalf("Expected %d records, got %d", len(want), len(records))
	}
	for i, w := range want {
		rec := records[i]
		if rec.Row != w.row || rec.Col != w.col {
			t.Errorf("Record %d at %v, expected (%d,%d)", i, rec.Position, w.row, w.col)
		}
		if rec.MaterialID != w.material {
			t.Errorf("Record %d: expected %s, got %s", i, w.material, rec.MaterialID)
		}
		if rec.TargetColor != pixel.FromColor(w.target) {
			t.Errorf("Record %d: expected target %v, got %v", i, w.target, rec.TargetColor)
		}
		if rec.Distance != matcher.Distance(rec.TargetColor, rec.MaterialColor, false) {
			t.Errorf("Record %d: distance %d inconsistent with colors", i, rec.Distance)
		}
	}
}

func TestAssembleCoversGridRowMajor(t *testing.T) {
	target := &memResource{id: "target", img: quadrants(50, black, white, red, blue)}
	asm := &Assembler{BlockSize: 3}

	cols, rows := 7, 5
	records, err := asm.Assemble(context.Background(), target, cols, rows, blackWhiteIndex())
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	if len(records) != cols*rows {
		t.Fatalf("Expected %d records, got %d", cols*rows, len(records))
	}
	seen := make(map[[2]int]bool)
	for i, rec := range records {
		if rec.Index(cols) != i {
			t.Errorf("Record %d has position %v", i, rec.Position)
		}
		key := [2]int{rec.Row, rec.Col}
		if seen[key] {
			t.Errorf("Duplicate position %v", rec.Position)
		}
		seen[key] = true
	}
}

func TestAssembleEmptyIndexFailsFirst(t *testing.T) {
	target := &memResource{id: "target", img: quadrants(4, black, white, red, blue)}
	asm := &Assembler{BlockSize: 4}

	records, err := asm.Assemble(context.Background(), target, 2, 2, index.New())
	if !errors.Is(err, ErrEmptyIndex) {
		t.Fatalf("Expected ErrEmptyIndex, got %v", err)
	}
	if records != nil {
		t.Errorf("Expected no records, got %d", len(records))
	}
	if n := target.decodes.Load(); n != 0 {
		t.Errorf("Target decoded %d times before failing", n)
	}
}

func TestAssembleTargetDecodeError(t *testing.T) {
	target := &memResource{id: "broken.jpg", err: errors.New("corrupt")}
	asm := &Assembler{BlockSize: 4}

	records, err := asm.Assemble(context.Background(), target, 2, 2, blackWhiteIndex())
	var de *sampler.DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("Expected DecodeError, got %v", err)
	}
	if de.ID != "broken.jpg" {
		t.Errorf("Expected ID broken.jpg, got %s", de.ID)
	}
	if len(records) != 0 {
		t.Errorf("Expected zero records, got %d", len(records))
	}
}

func TestAssembleInvalidGrid(t *testing.T) {
	target := &memResource{id: "target", img: quadrants(4, black, white, red, blue)}

	tests := []struct {
		name       string
		cols, rows int
		blockSize  int
	}{
		{"zero cols", 0, 2, 4},
		{"negative rows", 2, -1, 4},
		{"zero block", 2, 2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asm := &Assembler{BlockSize: tt.blockSize}
			_, err := asm.Assemble(context.Background(), target, tt.cols, tt.rows, blackWhiteIndex())
			if !errors.Is(err, ErrInvalidGrid) {
				t.Errorf("Expected ErrInvalidGrid, got %v", err)
			}
		})
	}
}

func TestAssembleCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	buf := pixel.FromImage(quadrants(4, black, white, red, blue))
	asm := &Assembler{BlockSize: 4}
	idx := blackWhiteIndex()

	_, err := asm.AssembleBuffer(ctx, buf, 2, 2, idx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if idx.Len() != 2 {
		t.Error("Index changed by abandoned assembly")
	}
}

func TestPartitionRejectsMismatchedBuffer(t *testing.T) {
	buf := pixel.FromImage(quadrants(4, black, white, red, blue))
	if _, err := Partition(context.Background(), buf, 3, 2, 4); !errors.Is(err, ErrInvalidGrid) {
		t.Errorf("Expected ErrInvalidGrid, got %v", err)
	}
}

func TestDroppedMaterialOnlyChangesItsBlocks(t *testing.T) {
	target := &memResource{id: "target", img: quadrants(4, black, white, red, blue)}
	asm := &Assembler{BlockSize: 4}

	full := index.New(
		index.Entry{ID: "white", Color: pixel.FromColor(white)},
		index.Entry{ID: "black", Color: pixel.FromColor(black)},
		index.Entry{ID: "red", Color: pixel.FromColor(red)},
	)
	before, err := asm.Assemble(context.Background(), target, 2, 2, full)
	if err != nil {
		t.Fatal(err)
	}
	after, err := asm.Assemble(context.Background(), target, 2, 2, full.Without("red"))
	if err != nil {
		t.Fatal(err)
	}

	for i := range before {
		if before[i].MaterialID != "red" && after[i].MaterialID != before[i].MaterialID {
			t.Errorf("Block %v changed from %s to %s", before[i].Position, before[i].MaterialID, after[i].MaterialID)
		}
	}
	if before[2].MaterialID != "red" || after[2].MaterialID != "black" {
		t.Errorf("Red block: expected red then black, got %s then %s", before[2].MaterialID, after[2].MaterialID)
	}
}
