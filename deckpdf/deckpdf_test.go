package deckpdf

import (
	"image"
	"image/color"
	"os"
	"strings"
	"testing"

	"github.com/hazyhaar/snapdeck/store"
)

func testStoreWithImages(t *testing.T, files ...string) *store.Store {
	t.Helper()
	s, err := store.Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	img := image.NewRGBA(image.Rect(0, 0, 16, 9))
	for y := 0; y < 9; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 15), G: uint8(y * 25), B: 128, A: 255})
		}
	}
	for _, f := range files {
		if _, err := s.SavePNG("proj", f, img); err != nil {
			t.Fatalf("SavePNG: %v", err)
		}
		if err := s.AppendCapture("proj", store.Record{ID: f, File: f, URL: "https://x.test", Date: "d"}); err != nil {
			t.Fatalf("AppendCapture: %v", err)
		}
	}
	return s
}

func TestExport(t *testing.T) {
	s := testStoreWithImages(t, "a.png", "b.png")

	path, err := Export(s, "proj", nil)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("exported file: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("exported PDF is empty")
	}
	if !strings.HasSuffix(path, "proj.pdf") {
		t.Errorf("path = %q", path)
	}
}

func TestExportSkipsMissingImages(t *testing.T) {
	s := testStoreWithImages(t, "a.png")
	s.AppendCapture("proj", store.Record{ID: "gone", File: "gone.png", URL: "https://x.test", Date: "d"})

	if _, err := Export(s, "proj", nil); err != nil {
		t.Fatalf("Export with one missing image: %v", err)
	}
}

func TestExportEmptyProject(t *testing.T) {
	s, err := store.Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer s.Close()

	if _, err := Export(s, "empty", nil); err == nil {
		t.Fatal("expected error for project without images")
	}
}

func TestExportURL(t *testing.T) {
	if got := ExportURL("proj"); got != "/exports/proj.pdf" {
		t.Errorf("ExportURL = %q", got)
	}
}
