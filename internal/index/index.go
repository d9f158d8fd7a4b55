// Package index precomputes the averaged color of every candidate material.
package index

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/photomosaic/internal/cache"
	"github.com/ivlev/photomosaic/internal/logger"
	"github.com/ivlev/photomosaic/internal/pixel"
	"github.com/ivlev/photomosaic/internal/sampler"
	"github.com/ivlev/photomosaic/internal/source"
)

// Entry is one usable material and its representative color.
type Entry struct {
	ID    string      `yaml:"id" json:"id"`
	Color pixel.Color `yaml:"color" json:"color"`
}

// Exclusion records a material dropped during Build.
type Exclusion struct {
	ID  string
	Err error
}

// Index is read-only once built and may be shared between goroutines.
type Index struct {
	entries  []Entry
	excluded []Exclusion
}

// New returns an index holding entries in the given order.
func New(entries ...Entry) *Index {
	return &Index{entries: append([]Entry(nil), entries...)}
}

func (i *Index) Len() int { return len(i.entries) }

// At returns the n-th entry in build order.
func (i *Index) At(n int) Entry { return i.entries[n] }

// LookupAll returns the entries in build order. The slice is a copy.
func (i *Index) LookupAll() []Entry {
	return append([]Entry(nil), i.entries...)
}

// Excluded returns the materials that failed to decode, in input order.
func (i *Index) Excluded() []Exclusion {
	return append([]Exclusion(nil), i.excluded...)
}

// Without returns a new index lacking the entry with the given id.
func (i *Index) Without(id string) *Index {
	out := &Index{excluded: i.excluded}
	for _, e := range i.entries {
		if e.ID != id {
			out.entries = append(out.entries, e)
		}
	}
	return out
}

// ColorCache stores averaged colors between runs.
type ColorCache interface {
	Get(ctx context.Context, k cache.Key) (pixel.Color, bool, error)
	Put(ctx context.Context, k cache.Key, c pixel.Color) error
}

type builder struct {
	workers int
	cache   ColorCache
}

type Option func(*builder)

// WithWorkers bounds the number of materials decoded at once. 1 processes
// them sequentially.
func WithWorkers(n int) Option {
	return func(b *builder) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithCache consults c before sampling and records fresh colors in it.
func WithCache(c ColorCache) Option {
	return func(b *builder) { b.cache = c }
}

type result struct {
	color pixel.Color
	err   error
}

// Build samples and averages every resource with s. Materials that fail to
// decode are excluded and recorded; the entry order always follows the
// input order regardless of worker count. Build itself only fails when ctx
// is done.
func Build(ctx context.Context, s *sampler.Sampler, resources []source.Resource, opts ...Option) (*Index, error) {
	b := builder{workers: 1}
	for _, o := range opts {
		o(&b)
	}
	l := logger.FromContext(ctx)

	results := make([]result, len(resources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)

	for i, res := range resources {
		g.Go(func() error {
			c, err := b.colorOf(gctx, s, res)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				var de *sampler.DecodeError
				if !errors.As(err, &de) {
					err = &sampler.DecodeError{ID: res.ID(), Err: err}
				}
				l.Warn("material excluded", zap.String("id", res.ID()), zap.Error(err))
			}
			results[i] = result{color: c, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	idx := &Index{}
	for i, r := range results {
		if r.err != nil {
			idx.excluded = append(idx.excluded, Exclusion{ID: resources[i].ID(), Err: r.err})
			continue
		}
		idx.entries = append(idx.entries, Entry{ID: resources[i].ID(), Color: r.color})
	}

	l.Info("color index built",
		zap.Int("materials", len(resources)),
		zap.Int("entries", len(idx.entries)),
		zap.Int("excluded", len(idx.excluded)))
	return idx, nil
}

func (b *builder) colorOf(ctx context.Context, s *sampler.Sampler, res source.Resource) (pixel.Color, error) {
	key := cache.Key{ID: res.ID(), Width: s.Width, Height: s.Height}
	if b.cache != nil {
		c, ok, err := b.cache.Get(ctx, key)
		if err != nil {
			logger.FromContext(ctx).Debug("color cache get", zap.String("id", key.ID), zap.Error(err))
		} else if ok {
			return c, nil
		}
	}

	buf, err := s.Sample(ctx, res)
	if err != nil {
		return pixel.Color{}, err
	}
	c, err := pixel.AverageAll(buf)
	if err != nil {
		return pixel.Color{}, err
	}

	if b.cache != nil {
		if err := b.cache.Put(ctx, key, c); err != nil {
			logger.FromContext(ctx).Debug("color cache put", zap.String("id", key.ID), zap.Error(err))
		}
	}
	return c, nil
}
