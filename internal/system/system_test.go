package system

import (
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFindLatestImage(t *testing.T) {
	dir := t.TempDir()

	files := []string{"a.jpg", "b.PNG", "c.jpeg", "notes.txt"}
	for i, name := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		modTime := time.Now().Add(time.Duration(i) * time.Hour)
		os.Chtimes(path, modTime, modTime)
	}

	latest, err := FindLatestImage(dir)
	if err != nil {
		t.Fatalf("FindLatestImage failed: %v", err)
	}
	// notes.txt is newer but not an image.
	if want := filepath.Join(dir, "c.jpeg"); latest != want {
		t.Errorf("Expected %s, got %s", want, latest)
	}
}

func TestFindLatestImageEmpty(t *testing.T) {
	if _, err := FindLatestImage(t.TempDir()); err == nil {
		t.Error("Expected error for directory without images")
	}
}

func TestDefaultWorkers(t *testing.T) {
	if n := DefaultWorkers(); n < 1 {
		t.Errorf("Expected at least one worker, got %d", n)
	}
}

func TestCanvasPoolReturnsClearedCanvas(t *testing.T) {
	p := NewCanvasPool()

	c := p.Get(4, 3)
	if c.Bounds() != image.Rect(0, 0, 4, 3) {
		t.Fatalf("Unexpected bounds %v", c.Bounds())
	}
	for i := range c.Pix {
		c.Pix[i] = 0xff
	}
	p.Put(c)

	again := p.Get(4, 3)
	for i, v := range again.Pix {
		if v != 0 {
			t.Fatalf("Pix[%d] = %d, canvas not cleared", i, v)
		}
	}

	other := p.Get(2, 2)
	if other.Bounds() != image.Rect(0, 0, 2, 2) {
		t.Errorf("Unexpected bounds %v", other.Bounds())
	}
}
