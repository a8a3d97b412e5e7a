package imgio

import (
	"os"
	"path/filepath"
	"testing"

	"pvimage/pkg/imgseq"
)

// TestSaveImageRoundTrip verifies saving and reloading a single image
func TestSaveImageRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	tempDir, err := os.MkdirTemp("", "write-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	buf, err := imgseq.NewUint16Buffer(2, 2, []uint16{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("Failed to create buffer: %v", err)
	}
	img, err := imgseq.NewGrayImage(buf, "orig.png", imgseq.ModalityEL)
	if err != nil {
		t.Fatalf("Failed to create image: %v", err)
	}

	path := filepath.Join(tempDir, "out.png")
	if err := SaveImage(path, img); err != nil {
		t.Fatalf("Failed to save image: %v", err)
	}

	back, err := ReadImage(path, imgseq.ModalityEL)
	if err != nil {
		t.Fatalf("Failed to reload image: %v", err)
	}
	for r := 0; r < 2; r++ {
		for c := 0; c < 2; c++ {
			if back.Data().At(r, c) != img.Data().At(r, c) {
				t.Errorf("Expected sample %v at (%d,%d), got %v",
					img.Data().At(r, c), r, c, back.Data().At(r, c))
			}
		}
	}
}

// TestSaveImagesCellNaming verifies the row/col naming scheme for cell
// images
func TestSaveImagesCellNaming(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	tempDir, err := os.MkdirTemp("", "write-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	buf, err := imgseq.NewUint16Buffer(1, 2, []uint16{1, 2})
	if err != nil {
		t.Fatalf("Failed to create buffer: %v", err)
	}
	cell, err := imgseq.NewCellImage(buf, "foo.png", imgseq.ModalityEL, 2, 5)
	if err != nil {
		t.Fatalf("Failed to create cell image: %v", err)
	}
	plain, err := imgseq.NewGrayImage(buf, "bar.png", imgseq.ModalityEL)
	if err != nil {
		t.Fatalf("Failed to create image: %v", err)
	}

	seq, err := imgseq.NewImageSequence([]imgseq.Image{cell, plain}, false, false)
	if err != nil {
		t.Fatalf("Failed to create sequence: %v", err)
	}
	if err := SaveImages(tempDir, seq, false); err != nil {
		t.Fatalf("Failed to save images: %v", err)
	}

	// Cell images get the row/col suffix, everything else keeps its name
	if _, err := os.Stat(filepath.Join(tempDir, "foo_row02_col05.png")); err != nil {
		t.Errorf("Expected foo_row02_col05.png to exist: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tempDir, "bar.png")); err != nil {
		t.Errorf("Expected bar.png to exist: %v", err)
	}
}

// TestSaveImagesMkdir verifies directory handling
func TestSaveImagesMkdir(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	tempDir, err := os.MkdirTemp("", "write-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	buf, err := imgseq.NewUint16Buffer(1, 1, []uint16{1})
	if err != nil {
		t.Fatalf("Failed to create buffer: %v", err)
	}
	img, err := imgseq.NewGrayImage(buf, "x.png", imgseq.ModalityEL)
	if err != nil {
		t.Fatalf("Failed to create image: %v", err)
	}
	seq, err := imgseq.NewImageSequence([]imgseq.Image{img}, false, false)
	if err != nil {
		t.Fatalf("Failed to create sequence: %v", err)
	}

	// A missing directory is an error unless mkdir is requested
	missing := filepath.Join(tempDir, "missing")
	if err := SaveImages(missing, seq, false); err == nil {
		t.Error("Expected error for missing directory, got nil")
	}
	if err := SaveImages(missing, seq, true); err != nil {
		t.Fatalf("Failed to save with mkdir: %v", err)
	}
	if _, err := os.Stat(filepath.Join(missing, "x.png")); err != nil {
		t.Errorf("Expected x.png to exist: %v", err)
	}
}

// TestSaveImagesProgress verifies the per-file progress callback
func TestSaveImagesProgress(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	tempDir, err := os.MkdirTemp("", "write-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	buf, err := imgseq.NewUint16Buffer(1, 1, []uint16{1})
	if err != nil {
		t.Fatalf("Failed to create buffer: %v", err)
	}
	var imgs []imgseq.Image
	for _, name := range []string{"a.png", "b.png", "c.png"} {
		img, err := imgseq.NewGrayImage(buf, name, imgseq.ModalityEL)
		if err != nil {
			t.Fatalf("Failed to create image: %v", err)
		}
		imgs = append(imgs, img)
	}
	seq, err := imgseq.NewImageSequence(imgs, true, false)
	if err != nil {
		t.Fatalf("Failed to create sequence: %v", err)
	}

	var calls, lastDone, lastTotal int
	err = SaveImagesWithProgress(tempDir, seq, false, func(done, total int) {
		calls++
		lastDone, lastTotal = done, total
	})
	if err != nil {
		t.Fatalf("Failed to save images: %v", err)
	}
	if calls != 3 || lastDone != 3 || lastTotal != 3 {
		t.Errorf("Expected 3 progress calls ending at 3/3, got %d calls at %d/%d", calls, lastDone, lastTotal)
	}
}

// TestSaveImagesWithoutPath verifies the error for images lacking a
// source path
func TestSaveImagesWithoutPath(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	tempDir, err := os.MkdirTemp("", "write-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	buf, err := imgseq.NewUint16Buffer(1, 1, []uint16{1})
	if err != nil {
		t.Fatalf("Failed to create buffer: %v", err)
	}
	img, err := imgseq.NewGrayImage(buf, "", imgseq.ModalityEL)
	if err != nil {
		t.Fatalf("Failed to create image: %v", err)
	}
	seq, err := imgseq.NewImageSequence([]imgseq.Image{img}, false, false)
	if err != nil {
		t.Fatalf("Failed to create sequence: %v", err)
	}

	if err := SaveImages(tempDir, seq, false); err == nil {
		t.Error("Expected error for image without source path, got nil")
	}
}
