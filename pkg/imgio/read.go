package imgio

import (
	"fmt"
	"log"
	"path/filepath"
	"sort"

	"pvimage/pkg/imgseq"
)

// DefaultPatterns are the file patterns used to discover images when a
// read does not name its own.
var DefaultPatterns = []string{"*.png", "*.tif", "*.tiff", "*.bmp"}

// ReadOptions configures a bulk read of an image directory.
type ReadOptions struct {
	// Modality is assigned to every loaded image.
	Modality imgseq.Modality

	// SameCamera declares that all images share one camera and must
	// therefore agree in shape and sample type. When false, images of
	// different shape or sample type are reconciled before the sequence
	// is built.
	SameCamera bool

	// Cols and Rows give the module cell layout for module reads.
	// Zero leaves the geometry unset.
	Cols int
	Rows int

	// N limits the read to the first N files in lexicographic order.
	// Zero or negative reads everything.
	N int

	// Patterns are the glob patterns used for discovery, relative to
	// the directory. Empty means DefaultPatterns. A file matching more
	// than one pattern is read once per match.
	Patterns []string

	// AllowDifferentDTypes permits mixed sample types in the resulting
	// sequence instead of casting to float64.
	AllowDifferentDTypes bool

	// Progress, when set, is called after each file with the number of
	// files done and the total.
	Progress func(done, total int)
}

// ReadImage loads a single image file.
func ReadImage(path string, modality imgseq.Modality) (*imgseq.GrayImage, error) {
	buf, err := Decode(path)
	if err != nil {
		return nil, err
	}
	return imgseq.NewGrayImage(buf, path, modality)
}

// ReadModuleImage loads a single module image with the given cell layout.
func ReadModuleImage(path string, modality imgseq.Modality, cols, rows int) (*imgseq.ModuleImage, error) {
	buf, err := Decode(path)
	if err != nil {
		return nil, err
	}
	return imgseq.NewModuleImage(buf, path, modality, cols, rows)
}

// ReadPartialModuleImage loads a single image showing cols x rows cells
// of a larger module.
func ReadPartialModuleImage(path string, modality imgseq.Modality, cols, rows int) (*imgseq.PartialModuleImage, error) {
	buf, err := Decode(path)
	if err != nil {
		return nil, err
	}
	return imgseq.NewPartialModuleImage(buf, path, modality, cols, rows, 0, 0)
}

// ReadImages bulk-loads a directory into an image sequence.
func ReadImages(dir string, opts ReadOptions) (*imgseq.ImageSequence, error) {
	imgs, err := readAll(dir, opts, func(buf *imgseq.Buffer, path string) (imgseq.Image, error) {
		return imgseq.NewGrayImage(buf, path, opts.Modality)
	})
	if err != nil {
		return nil, err
	}
	return imgseq.NewImageSequence(imgs, opts.SameCamera, opts.AllowDifferentDTypes)
}

// ReadModuleImages bulk-loads a directory of module images taken with
// the given cell layout.
func ReadModuleImages(dir string, opts ReadOptions) (*imgseq.ModuleImageSequence, error) {
	imgs, err := readAll(dir, opts, func(buf *imgseq.Buffer, path string) (imgseq.Image, error) {
		return imgseq.NewModuleImage(buf, path, opts.Modality, opts.Cols, opts.Rows)
	})
	if err != nil {
		return nil, err
	}
	return imgseq.NewModuleImageSequence(imgs, opts.SameCamera, opts.AllowDifferentDTypes)
}

// ReadPartialModuleImages bulk-loads a directory of partial module views
// sharing one visible cell layout.
func ReadPartialModuleImages(dir string, opts ReadOptions) (*imgseq.ModuleImageSequence, error) {
	imgs, err := readAll(dir, opts, func(buf *imgseq.Buffer, path string) (imgseq.Image, error) {
		return imgseq.NewPartialModuleImage(buf, path, opts.Modality, opts.Cols, opts.Rows, 0, 0)
	})
	if err != nil {
		return nil, err
	}
	return imgseq.NewModuleImageSequence(imgs, opts.SameCamera, opts.AllowDifferentDTypes)
}

// readAll discovers, decodes and wraps all matching files, then
// reconciles heterogeneous results when the images do not share one
// camera. Any decode failure aborts the read.
func readAll(dir string, opts ReadOptions, build func(*imgseq.Buffer, string) (imgseq.Image, error)) ([]imgseq.Image, error) {
	paths, err := discover(dir, opts.Patterns, opts.N)
	if err != nil {
		return nil, err
	}

	imgs := make([]imgseq.Image, 0, len(paths))
	for i, p := range paths {
		buf, err := Decode(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		img, err := build(buf, p)
		if err != nil {
			return nil, fmt.Errorf("failed to wrap %s: %w", p, err)
		}
		imgs = append(imgs, img)
		if opts.Progress != nil {
			opts.Progress(i+1, len(paths))
		}
	}

	if !opts.SameCamera {
		imgs, err = resolveHeterogeneity(imgs)
		if err != nil {
			return nil, err
		}
	}
	return imgs, nil
}

// discover globs the directory with every pattern, concatenates the
// matches, sorts them lexicographically and truncates to the first n
// when n is positive. Duplicate matches from overlapping patterns are
// kept.
func discover(dir string, patterns []string, n int) ([]string, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	var paths []string
	for _, pat := range patterns {
		matches, err := filepath.Glob(filepath.Join(dir, pat))
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pat, err)
		}
		paths = append(paths, matches...)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no files in %s match %v", imgseq.ErrEmptySequence, dir, patterns)
	}
	sort.Strings(paths)
	if n > 0 && n < len(paths) {
		paths = paths[:n]
	}
	return paths, nil
}

// resolveHeterogeneity rebuilds images so they can form one sequence:
// when sample types differ, every image is cast to float64; when shapes
// differ, every image is padded to the elementwise-maximum bounding
// shape on a canvas filled with that image's own minimum value, original
// content anchored at the top-left origin.
func resolveHeterogeneity(imgs []imgseq.Image) ([]imgseq.Image, error) {
	if len(imgs) < 2 {
		return imgs, nil
	}

	sameDType := true
	sameShape := true
	bounding := imgs[0].Shape()
	for _, img := range imgs[1:] {
		if img.DType() != imgs[0].DType() {
			sameDType = false
		}
		s := img.Shape()
		if s != bounding {
			sameShape = false
		}
		if s.Rows > bounding.Rows {
			bounding.Rows = s.Rows
		}
		if s.Cols > bounding.Cols {
			bounding.Cols = s.Cols
		}
	}
	if sameDType && sameShape {
		return imgs, nil
	}
	if !sameShape {
		log.Printf("Warning: images differ in shape, padding every image to %dx%d with its own minimum value", bounding.Rows, bounding.Cols)
	}

	out := make([]imgseq.Image, len(imgs))
	for i, img := range imgs {
		data := img.Data()
		if !sameDType {
			// Value-preserving cast, not a range rescale: a uint16
			// sample 1234 becomes the float 1234.0.
			cast, err := imgseq.NewFloat64Buffer(data.Rows(), data.Cols(), data.Values())
			if err != nil {
				return nil, fmt.Errorf("failed to cast %s: %w", img.Path(), err)
			}
			data = cast
		}
		if !sameShape {
			var err error
			data, err = padToShape(data, bounding)
			if err != nil {
				return nil, fmt.Errorf("failed to pad %s: %w", img.Path(), err)
			}
		}
		rebuilt, err := img.WithData(data)
		if err != nil {
			return nil, fmt.Errorf("failed to rebuild %s: %w", img.Path(), err)
		}
		out[i] = rebuilt
	}
	return out, nil
}

// padToShape pastes the buffer at the origin of a larger canvas filled
// with the buffer's own minimum value.
func padToShape(buf *imgseq.Buffer, shape imgseq.Shape) (*imgseq.Buffer, error) {
	if buf.Rows() == shape.Rows && buf.Cols() == shape.Cols {
		return buf, nil
	}
	if buf.Rows() > shape.Rows || buf.Cols() > shape.Cols {
		return nil, fmt.Errorf("cannot pad %dx%d to smaller %dx%d", buf.Rows(), buf.Cols(), shape.Rows, shape.Cols)
	}

	switch buf.DType() {
	case imgseq.DTypeUint8:
		src, _ := buf.Uint8Pixels()
		fill := uint8(buf.Min())
		dst := make([]uint8, shape.Rows*shape.Cols)
		for i := range dst {
			dst[i] = fill
		}
		for r := 0; r < buf.Rows(); r++ {
			copy(dst[r*shape.Cols:r*shape.Cols+buf.Cols()], src[r*buf.Cols():(r+1)*buf.Cols()])
		}
		return imgseq.NewUint8Buffer(shape.Rows, shape.Cols, dst)
	case imgseq.DTypeUint16:
		src, _ := buf.Uint16Pixels()
		fill := uint16(buf.Min())
		dst := make([]uint16, shape.Rows*shape.Cols)
		for i := range dst {
			dst[i] = fill
		}
		for r := 0; r < buf.Rows(); r++ {
			copy(dst[r*shape.Cols:r*shape.Cols+buf.Cols()], src[r*buf.Cols():(r+1)*buf.Cols()])
		}
		return imgseq.NewUint16Buffer(shape.Rows, shape.Cols, dst)
	case imgseq.DTypeFloat32:
		src, _ := buf.Float32Pixels()
		fill := float32(buf.Min())
		dst := make([]float32, shape.Rows*shape.Cols)
		for i := range dst {
			dst[i] = fill
		}
		for r := 0; r < buf.Rows(); r++ {
			copy(dst[r*shape.Cols:r*shape.Cols+buf.Cols()], src[r*buf.Cols():(r+1)*buf.Cols()])
		}
		return imgseq.NewFloat32Buffer(shape.Rows, shape.Cols, dst)
	default:
		src, _ := buf.Float64Pixels()
		fill := buf.Min()
		dst := make([]float64, shape.Rows*shape.Cols)
		for i := range dst {
			dst[i] = fill
		}
		for r := 0; r < buf.Rows(); r++ {
			copy(dst[r*shape.Cols:r*shape.Cols+buf.Cols()], src[r*buf.Cols():(r+1)*buf.Cols()])
		}
		return imgseq.NewFloat64Buffer(shape.Rows, shape.Cols, dst)
	}
}
