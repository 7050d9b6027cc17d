package source

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"

	perrors "github.com/ivlev/chatdetect/internal/errors"
)

func writeImages(t *testing.T, dir string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 30, 60))
	img.Set(1, 1, color.Black)

	f, err := os.Create(filepath.Join(dir, "b.png"))
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()

	f, err = os.Create(filepath.Join(dir, "a.bmp"))
	if err != nil {
		t.Fatal(err)
	}
	if err := bmp.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()

	if err := os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("skip me"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestImageSourceDirectory(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir)

	src, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer src.Close()

	if src.PageCount() != 2 {
		t.Fatalf("Expected 2 images, got %d", src.PageCount())
	}
	if src.Name(0) != "a.bmp" || src.Name(1) != "b.png" {
		t.Errorf("Unexpected order: %s, %s", src.Name(0), src.Name(1))
	}

	for i := 0; i < src.PageCount(); i++ {
		w, h, err := src.GetPageDimensions(i)
		if err != nil || w != 30 || h != 60 {
			t.Errorf("Image %d: dimensions %dx%d (%v)", i, w, h, err)
		}
		img, err := src.RenderPage(i, 150)
		if err != nil {
			t.Fatalf("Render %d failed: %v", i, err)
		}
		if img.Bounds().Dx() != 30 {
			t.Errorf("Image %d: unexpected bounds %v", i, img.Bounds())
		}
	}
}

func TestOpenRejectsUnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.tiff")
	if err := os.WriteFile(path, []byte("II*"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Open(path)
	if code, ok := perrors.CodeOf(err); !ok || code != perrors.ErrorUnsupportedFormat {
		t.Errorf("Expected unsupported format error, got %v", err)
	}
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode("upload.png", []byte("definitely not a png"))
	if code, ok := perrors.CodeOf(err); !ok || code != perrors.ErrorDecodeFailed {
		t.Errorf("Expected decode error, got %v", err)
	}
}

func TestEmptyDirectory(t *testing.T) {
	if _, err := Open(t.TempDir()); err == nil {
		t.Error("Expected error for a directory without images")
	}
}

func TestPDFSourceMissingFile(t *testing.T) {
	if _, err := NewFitzPDFSource(filepath.Join(t.TempDir(), "missing.pdf")); err == nil {
		t.Error("Expected error for a missing PDF")
	}
}
