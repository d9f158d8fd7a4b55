package system

import (
	"image"
	"sync"
)

// CanvasPool hands out *image.NRGBA drawing surfaces grouped by size so the
// sampler does not allocate a fresh canvas for every material.
//
// A leased canvas belongs to exactly one caller until it is returned.
type CanvasPool struct {
	pools map[image.Point]*sync.Pool
	mu    sync.RWMutex
}

var globalPool = NewCanvasPool()

func NewCanvasPool() *CanvasPool {
	return &CanvasPool{pools: make(map[image.Point]*sync.Pool)}
}

// GetCanvas leases a w×h canvas from the process-wide pool.
func GetCanvas(w, h int) *image.NRGBA {
	return globalPool.Get(w, h)
}

// PutCanvas returns a canvas leased with GetCanvas.
func PutCanvas(img *image.NRGBA) {
	globalPool.Put(img)
}

// Get returns a cleared canvas with bounds (0,0)-(w,h).
func (p *CanvasPool) Get(w, h int) *image.NRGBA {
	key := image.Pt(w, h)
	p.mu.RLock()
	pool, exists := p.pools[key]
	p.mu.RUnlock()

	if !exists {
		p.mu.Lock()
		pool, exists = p.pools[key]
		if !exists {
			pool = &sync.Pool{
				New: func() interface{} {
					return image.NewNRGBA(image.Rect(0, 0, w, h))
				},
			}
			p.pools[key] = pool
		}
		p.mu.Unlock()
	}

	img := pool.Get().(*image.NRGBA)
	clear(img.Pix)
	return img
}

func (p *CanvasPool) Put(img *image.NRGBA) {
	if img == nil {
		return
	}
	key := img.Rect.Size()
	p.mu.RLock()
	pool, exists := p.pools[key]
	p.mu.RUnlock()

	if exists {
		pool.Put(img)
	}
}
