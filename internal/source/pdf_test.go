package source

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// writePDF writes a document with one empty page per size, in points.
func writePDF(t *testing.T, path string, sizes [][2]int) {
	t.Helper()
	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	kids := ""
	for i := range sizes {
		kids += fmt.Sprintf("%d 0 R ", i+3)
	}
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, len(sizes)))
	for _, s := range sizes {
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %d %d] >>", s[0], s[1]))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestPDFPages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "album.pdf")
	// Square first page, wide second page.
	writePDF(t, path, [][2]int{{72, 72}, {144, 72}})

	res := Expand([]string{path}, DefaultDPI)
	if len(res) != 2 {
		t.Fatalf("Expected 2 pages, got %d", len(res))
	}
	for i, r := range res {
		if want := fmt.Sprintf("%s#page=%d", path, i+1); r.ID() != want {
			t.Errorf("Page %d: expected ID %s, got %s", i, want, r.ID())
		}
	}

	first, err := res[0].Decode(context.Background())
	if err != nil {
		t.Fatalf("Decode page 1 failed: %v", err)
	}
	second, err := res[1].Decode(context.Background())
	if err != nil {
		t.Fatalf("Decode page 2 failed: %v", err)
	}

	b1, b2 := first.Bounds(), second.Bounds()
	t.Logf("page 1: %v, page 2: %v", b1, b2)
	if b1.Empty() || b2.Empty() {
		t.Fatal("Rendered page is empty")
	}
	if b1.Dx() != b1.Dy() {
		t.Errorf("Page 1 should be square, got %v", b1)
	}
	if b2.Dx() <= b2.Dy() {
		t.Errorf("Page 2 should be wide, got %v", b2)
	}
}

func TestPDFPageResolve(t *testing.T) {
	path := filepath.Join(t.TempDir(), "album.pdf")
	writePDF(t, path, [][2]int{{72, 72}, {144, 72}})

	res := Resolve(path + "#page=2")
	img, err := res.Decode(context.Background())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() <= b.Dy() {
		t.Errorf("Expected the wide second page, got %v", b)
	}

	if _, err := Resolve(path + "#page=3").Decode(context.Background()); err == nil {
		t.Error("Expected error for page past the end")
	}
}

func TestPDFPagesOpenError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	os.WriteFile(path, []byte("plain text"), 0644)

	if _, err := PDFPages(path, DefaultDPI); err == nil {
		t.Error("Expected error for broken PDF")
	}
}
