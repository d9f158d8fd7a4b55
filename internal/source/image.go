package source

import (
	"context"
	"fmt"
	"image"
	"mime"
	"net/http"
	"os"
)

// FileResource is a JPEG or PNG on the local filesystem.
type FileResource struct {
	Path string
}

func (f *FileResource) ID() string { return f.Path }

func (f *FileResource) Decode(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return decodeSniffed(file)
}

// URLResource is an image fetched over HTTP.
type URLResource struct {
	URL string
	// Client defaults to http.DefaultClient.
	Client *http.Client
}

func (u *URLResource) ID() string { return u.URL }

func (u *URLResource) Decode(ctx context.Context) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.URL, nil)
	if err != nil {
		return nil, err
	}

	client := u.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	// An explicit non-image Content-Type is rejected early; generic or
	// missing types fall through to sniffing.
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err == nil && mt != "application/octet-stream" && !Accepted(mt) {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mt)
		}
	}

	return decodeSniffed(resp.Body)
}
