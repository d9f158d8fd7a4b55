package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ivlev/photomosaic/internal/system"
)

// Resource is anything that can be resolved to a decoded image.
type Resource interface {
	// ID identifies the resource in match records and diagnostics.
	ID() string
	// Decode blocks until the image is loaded or loading fails.
	Decode(ctx context.Context) (image.Image, error)
}

// ErrUnsupportedType is returned for content that is not JPEG or PNG.
var ErrUnsupportedType = errors.New("unsupported image type")

var acceptedTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
}

// Accepted reports whether mime is one of the image types the pipeline decodes.
func Accepted(mime string) bool {
	return acceptedTypes[strings.ToLower(mime)]
}

// decodeSniffed checks the leading bytes of r before handing it to the decoder.
func decodeSniffed(r io.Reader) (image.Image, error) {
	br := bufio.NewReaderSize(r, 512)
	head, err := br.Peek(512)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, err
	}
	if mime := http.DetectContentType(head); !Accepted(mime) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mime)
	}

	img, _, err := image.Decode(br)
	if err != nil {
		return nil, err
	}
	return img, nil
}

// Resolve maps an identifier to the resource kind that can load it.
func Resolve(id string) Resource {
	if isURL(id) {
		return &URLResource{URL: id}
	}
	if path, page, ok := parsePageID(id); ok {
		return &PDFPageResource{Path: path, Page: page, DPI: DefaultDPI}
	}
	return &FileResource{Path: id}
}

// Expand turns paths into an ordered resource list. Directories contribute
// their image files sorted by name, PDFs contribute one resource per page,
// URLs and plain files contribute themselves. A path that cannot be read
// still contributes one resource, whose Decode reports the failure.
func Expand(paths []string, dpi int) []Resource {
	var out []Resource
	for _, p := range paths {
		if isURL(p) {
			out = append(out, &URLResource{URL: p})
			continue
		}

		fi, err := os.Stat(p)
		if err != nil {
			out = append(out, &FileResource{Path: p})
			continue
		}

		switch {
		case fi.IsDir():
			entries, err := os.ReadDir(p)
			if err != nil {
				out = append(out, &unreadable{id: p, err: err})
				continue
			}
			var names []string
			for _, entry := range entries {
				if !entry.IsDir() && system.IsImageFile(entry.Name()) {
					names = append(names, filepath.Join(p, entry.Name()))
				}
			}
			sort.Strings(names)
			for _, name := range names {
				out = append(out, &FileResource{Path: name})
			}
		case strings.HasSuffix(strings.ToLower(p), ".pdf"):
			pages, err := PDFPages(p, dpi)
			if err != nil {
				out = append(out, &unreadable{id: p, err: err})
				continue
			}
			out = append(out, pages...)
		default:
			out = append(out, &FileResource{Path: p})
		}
	}
	return out
}

// unreadable stands in for a source that failed while being listed.
type unreadable struct {
	id  string
	err error
}

func (u *unreadable) ID() string { return u.id }

func (u *unreadable) Decode(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, u.err
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
