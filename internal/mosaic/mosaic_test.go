package mosaic

import (
	"image"
	"testing"
)

func TestPositionIndex(t *testing.T) {
	tests := []struct {
		pos  Position
		cols int
		want int
	}{
		{Position{0, 0}, 4, 0},
		{Position{0, 3}, 4, 3},
		{Position{1, 0}, 4, 4},
		{Position{2, 1}, 3, 7},
	}

	for _, tt := range tests {
		t.Run(tt.pos.String(), func(t *testing.T) {
			if got := tt.pos.Index(tt.cols); got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestCellRect(t *testing.T) {
	got := CellRect(Position{Row: 1, Col: 2}, 8)
	want := image.Rect(16, 8, 24, 16)
	if got != want {
		t.Errorf("Expected %v, got %v", want, got)
	}
}
