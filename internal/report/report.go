package report

import (
	"fmt"

	"github.com/ivlev/photomosaic/internal/index"
	"github.com/ivlev/photomosaic/internal/mosaic"
)

// Version of the report layout.
const Version = "1.0"

// Report is everything a renderer needs to draw the mosaic.
type Report struct {
	Version      string               `yaml:"version"`
	Target       string               `yaml:"target"`
	Cols         int                  `yaml:"cols"`
	Rows         int                  `yaml:"rows"`
	BlockSize    int                  `yaml:"block_size"`
	SampleWidth  int                  `yaml:"sample_width"`
	SampleHeight int                  `yaml:"sample_height"`
	IncludeAlpha bool                 `yaml:"include_alpha"`
	Records      []mosaic.MatchRecord `yaml:"records"`
	Excluded     []Excluded           `yaml:"excluded,omitempty"`
}

// Excluded names a material left out of the index and why.
type Excluded struct {
	ID     string `yaml:"id" json:"id"`
	Reason string `yaml:"reason" json:"reason"`
}

// Exclusions flattens index exclusions for serialization.
func Exclusions(ex []index.Exclusion) []Excluded {
	out := make([]Excluded, 0, len(ex))
	for _, e := range ex {
		out = append(out, Excluded{ID: e.ID, Reason: e.Err.Error()})
	}
	return out
}

// Verify checks that the records cover the grid exactly once in row-major order.
func (r *Report) Verify() error {
	if want := r.Cols * r.Rows; len(r.Records) != want {
		return fmt.Errorf("report: %d records for a %dx%d grid", len(r.Records), r.Cols, r.Rows)
	}
	for i, rec := range r.Records {
		if rec.Index(r.Cols) != i || rec.Col < 0 || rec.Col >= r.Cols {
			return fmt.Errorf("report: record %d has position %v", i, rec.Position)
		}
	}
	return nil
}
