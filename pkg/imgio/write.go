package imgio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pvimage/pkg/imgseq"
)

// SaveImage writes a single image to the given path, choosing the format
// by extension.
func SaveImage(path string, img imgseq.Image) error {
	if img == nil {
		return fmt.Errorf("image must not be nil")
	}
	return Encode(path, img.Data())
}

// SaveImages writes every image of a sequence into the directory. File
// names derive from each image's source path; cell images are renamed to
// {stem}_row{RR}_col{CC}{ext} so cells cut from one module do not
// collide. With mkdir set, the directory is created first.
func SaveImages(dir string, seq imgseq.Sequence, mkdir bool) error {
	return SaveImagesWithProgress(dir, seq, mkdir, nil)
}

// SaveImagesWithProgress behaves like SaveImages and reports completion
// after each file.
func SaveImagesWithProgress(dir string, seq imgseq.Sequence, mkdir bool, progress func(done, total int)) error {
	if seq == nil {
		return fmt.Errorf("sequence must not be nil")
	}
	if mkdir {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	} else if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("output directory %s does not exist", dir)
	}

	imgs := seq.Images()
	for i, img := range imgs {
		name, err := targetName(img)
		if err != nil {
			return fmt.Errorf("image %d: %w", i, err)
		}
		if err := Encode(filepath.Join(dir, name), img.Data()); err != nil {
			return fmt.Errorf("failed to save %s: %w", name, err)
		}
		if progress != nil {
			progress(i+1, len(imgs))
		}
	}
	return nil
}

// targetName derives the output file name from the image's source path.
func targetName(img imgseq.Image) (string, error) {
	if img.Path() == "" {
		return "", fmt.Errorf("image has no source path to derive a file name from")
	}
	base := filepath.Base(img.Path())
	if cell, ok := img.(*imgseq.CellImage); ok {
		ext := filepath.Ext(base)
		stem := strings.TrimSuffix(base, ext)
		return fmt.Sprintf("%s_row%02d_col%02d%s", stem, cell.Row(), cell.Col(), ext), nil
	}
	return base, nil
}
