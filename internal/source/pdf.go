package source

import (
	"context"
	"fmt"
	"image"
	"strconv"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// DefaultDPI keeps rasterized pages small; they are sampled down to a few
// pixels anyway.
const DefaultDPI = 72

const pageSep = "#page="

// PDFPageResource is a single rasterized page of a PDF document.
type PDFPageResource struct {
	Path string
	// Page is zero-based.
	Page int
	DPI  int
}

func (p *PDFPageResource) ID() string {
	return p.Path + pageSep + strconv.Itoa(p.Page+1)
}

// Decode opens its own document handle; go-fitz documents are not safe for
// concurrent rendering.
func (p *PDFPageResource) Decode(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := fitz.New(p.Path)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	dpi := p.DPI
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	img, err := doc.ImageDPI(p.Page, float64(dpi))
	if err != nil {
		return nil, err
	}
	return img, nil
}

// PDFPages returns one resource per page of the document at path.
func PDFPages(path string, dpi int) ([]Resource, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer doc.Close()

	pages := make([]Resource, doc.NumPage())
	for i := range pages {
		pages[i] = &PDFPageResource{Path: path, Page: i, DPI: dpi}
	}
	return pages, nil
}

// parsePageID splits "book.pdf#page=3" into the path and a zero-based page.
func parsePageID(id string) (string, int, bool) {
	i := strings.LastIndex(id, pageSep)
	if i < 0 {
		return "", 0, false
	}
	path := id[:i]
	if !strings.HasSuffix(strings.ToLower(path), ".pdf") {
		return "", 0, false
	}
	n, err := strconv.Atoi(id[i+len(pageSep):])
	if err != nil || n < 1 {
		return "", 0, false
	}
	return path, n - 1, true
}
