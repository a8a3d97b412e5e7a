package imgseq

import (
	"fmt"
)

// Sequence is the read view shared by all image sequence variants.
type Sequence interface {
	// Images returns copies of all images in order.
	Images() []Image

	// At returns a copy of the image at index i.
	At(i int) Image

	// Len returns the number of images.
	Len() int

	// Modality returns the common modality of all images.
	Modality() Modality

	// DType returns the common sample type. ok is false when the
	// sequence permits mixed sample types.
	DType() (d DType, ok bool)

	// Shape returns the common pixel dimensions. ok is false when the
	// images do not share one camera.
	Shape() (s Shape, ok bool)

	// SameCamera reports whether all images come from the same camera
	// and therefore share one shape.
	SameCamera() bool
}

// ImageSequence is an ordered, immutable collection of images. The
// constructor enforces that the collection is non-empty and uniform in
// modality, uniform in shape when sameCamera is set, and uniform in
// sample type unless explicitly waived.
type ImageSequence struct {
	images               []Image
	sameCamera           bool
	allowDifferentDTypes bool
}

// NewImageSequence validates and builds a sequence over the given images.
// The slice is copied; the images themselves are immutable and shared.
func NewImageSequence(images []Image, sameCamera, allowDifferentDTypes bool) (*ImageSequence, error) {
	if len(images) == 0 {
		return nil, ErrEmptySequence
	}
	for i, img := range images {
		if img == nil {
			return nil, fmt.Errorf("image %d is nil", i)
		}
	}
	if !allowDifferentDTypes {
		want := images[0].DType()
		for i, img := range images[1:] {
			if img.DType() != want {
				return nil, fmt.Errorf("%w: image %d is %s, expected %s", ErrDTypeMismatch, i+1, img.DType(), want)
			}
		}
	}
	if sameCamera {
		want := images[0].Shape()
		for i, img := range images[1:] {
			if img.Shape() != want {
				return nil, fmt.Errorf("%w: image %d is %dx%d, expected %dx%d",
					ErrShapeMismatch, i+1, img.Shape().Rows, img.Shape().Cols, want.Rows, want.Cols)
			}
		}
	}
	want := images[0].Modality()
	for i, img := range images[1:] {
		if img.Modality() != want {
			return nil, fmt.Errorf("%w: image %d is %s, expected %s", ErrModalityMismatch, i+1, img.Modality(), want)
		}
	}
	imgs := make([]Image, len(images))
	copy(imgs, images)
	return &ImageSequence{images: imgs, sameCamera: sameCamera, allowDifferentDTypes: allowDifferentDTypes}, nil
}

// Len returns the number of images.
func (s *ImageSequence) Len() int { return len(s.images) }

// Images returns copies of all images in order.
func (s *ImageSequence) Images() []Image {
	out := make([]Image, len(s.images))
	for i, img := range s.images {
		out[i] = img.clone()
	}
	return out
}

// At returns a copy of the image at index i.
func (s *ImageSequence) At(i int) Image { return s.images[i].clone() }

// Modality returns the common modality of all images.
func (s *ImageSequence) Modality() Modality { return s.images[0].Modality() }

// DType returns the common sample type. ok is false when the sequence
// permits mixed sample types.
func (s *ImageSequence) DType() (DType, bool) {
	if s.allowDifferentDTypes {
		return 0, false
	}
	return s.images[0].DType(), true
}

// Shape returns the common pixel dimensions. ok is false when the images
// do not share one camera.
func (s *ImageSequence) Shape() (Shape, bool) {
	if !s.sameCamera {
		return Shape{}, false
	}
	return s.images[0].Shape(), true
}

// SameCamera reports whether all images share one shape.
func (s *ImageSequence) SameCamera() bool { return s.sameCamera }

// AllowDifferentDTypes reports whether mixed sample types are permitted.
func (s *ImageSequence) AllowDifferentDTypes() bool { return s.allowDifferentDTypes }

// mapImages applies f to every image and collects the results.
func (s *ImageSequence) mapImages(f func(Image) (Image, error)) ([]Image, error) {
	out := make([]Image, len(s.images))
	for i, img := range s.images {
		res, err := f(img)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i, err)
		}
		out[i] = res
	}
	return out, nil
}

func (s *ImageSequence) applyImages(fn func(*Buffer) (*Buffer, error)) ([]Image, error) {
	return s.mapImages(func(img Image) (Image, error) {
		buf, err := fn(img.Data())
		if err != nil {
			return nil, err
		}
		return img.WithData(buf)
	})
}

func (s *ImageSequence) asTypeImages(t DType) []Image {
	out, _ := s.mapImages(func(img Image) (Image, error) { return img.AsType(t), nil })
	return out
}

func (s *ImageSequence) pairwise(other Sequence, op arithOp) ([]Image, error) {
	if other == nil {
		return nil, fmt.Errorf("sequence operand is nil")
	}
	if s.Len() != other.Len() {
		return nil, fmt.Errorf("%w: %d and %d images", ErrLengthMismatch, s.Len(), other.Len())
	}
	out := make([]Image, len(s.images))
	for i, img := range s.images {
		res, err := imageArith(img, other.At(i), op)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i, err)
		}
		out[i] = res
	}
	return out, nil
}

// Apply transforms every image's pixel data with fn and rebuilds the
// sequence, re-running validation on the results.
func (s *ImageSequence) Apply(fn func(*Buffer) (*Buffer, error)) (*ImageSequence, error) {
	imgs, err := s.applyImages(fn)
	if err != nil {
		return nil, err
	}
	return NewImageSequence(imgs, s.sameCamera, s.allowDifferentDTypes)
}

// AsType converts every image to the given sample type.
func (s *ImageSequence) AsType(t DType) (*ImageSequence, error) {
	return NewImageSequence(s.asTypeImages(t), s.sameCamera, s.allowDifferentDTypes)
}

// Add returns the image-by-image sum of two sequences of equal length.
func (s *ImageSequence) Add(other Sequence) (*ImageSequence, error) {
	return s.rebuild(s.pairwise(other, opAdd))
}

// Sub returns the image-by-image difference of two sequences.
func (s *ImageSequence) Sub(other Sequence) (*ImageSequence, error) {
	return s.rebuild(s.pairwise(other, opSub))
}

// Mul returns the image-by-image product of two sequences.
func (s *ImageSequence) Mul(other Sequence) (*ImageSequence, error) {
	return s.rebuild(s.pairwise(other, opMul))
}

// Div returns the image-by-image quotient of two float sequences.
func (s *ImageSequence) Div(other Sequence) (*ImageSequence, error) {
	return s.rebuild(s.pairwise(other, opDiv))
}

// FloorDiv returns the image-by-image floored quotient of two sequences.
func (s *ImageSequence) FloorDiv(other Sequence) (*ImageSequence, error) {
	return s.rebuild(s.pairwise(other, opFloorDiv))
}

// Mod returns the image-by-image remainder of two sequences.
func (s *ImageSequence) Mod(other Sequence) (*ImageSequence, error) {
	return s.rebuild(s.pairwise(other, opMod))
}

// Pow returns the image-by-image power of two sequences.
func (s *ImageSequence) Pow(other Sequence) (*ImageSequence, error) {
	return s.rebuild(s.pairwise(other, opPow))
}

func (s *ImageSequence) rebuild(imgs []Image, err error) (*ImageSequence, error) {
	if err != nil {
		return nil, err
	}
	return NewImageSequence(imgs, s.sameCamera, s.allowDifferentDTypes)
}

// ModuleImageSequence is a sequence of module images sharing one cell
// geometry.
type ModuleImageSequence struct {
	ImageSequence
}

// NewModuleImageSequence validates and builds a sequence of module
// images. All images must carry module geometry and agree on the number
// of cell columns and rows; the base sequence invariants apply on top.
func NewModuleImageSequence(images []Image, sameCamera, allowDifferentDTypes bool) (*ModuleImageSequence, error) {
	// Geometry is checked first so a layout conflict is reported even
	// when a base invariant would also fail.
	for i, img := range images {
		if img == nil {
			return nil, fmt.Errorf("image %d is nil", i)
		}
		if _, ok := img.(ModuleImager); !ok {
			return nil, fmt.Errorf("%w: image %d is %T", ErrNotModuleImage, i, img)
		}
	}
	if len(images) > 0 {
		want := images[0].(ModuleImager)
		for i, img := range images[1:] {
			m := img.(ModuleImager)
			if m.Cols() != want.Cols() {
				return nil, fmt.Errorf("%w: image %d has %d cell columns, expected %d",
					ErrGeometryMismatch, i+1, m.Cols(), want.Cols())
			}
		}
		for i, img := range images[1:] {
			m := img.(ModuleImager)
			if m.Rows() != want.Rows() {
				return nil, fmt.Errorf("%w: image %d has %d cell rows, expected %d",
					ErrGeometryMismatch, i+1, m.Rows(), want.Rows())
			}
		}
	}
	base, err := NewImageSequence(images, sameCamera, allowDifferentDTypes)
	if err != nil {
		return nil, err
	}
	return &ModuleImageSequence{ImageSequence: *base}, nil
}

// Cols returns the common number of cell columns.
func (s *ModuleImageSequence) Cols() int { return s.images[0].(ModuleImager).Cols() }

// Rows returns the common number of cell rows.
func (s *ModuleImageSequence) Rows() int { return s.images[0].(ModuleImager).Rows() }

// Apply transforms every image's pixel data with fn and rebuilds the
// module sequence.
func (s *ModuleImageSequence) Apply(fn func(*Buffer) (*Buffer, error)) (*ModuleImageSequence, error) {
	imgs, err := s.applyImages(fn)
	if err != nil {
		return nil, err
	}
	return NewModuleImageSequence(imgs, s.sameCamera, s.allowDifferentDTypes)
}

// AsType converts every image to the given sample type.
func (s *ModuleImageSequence) AsType(t DType) (*ModuleImageSequence, error) {
	return NewModuleImageSequence(s.asTypeImages(t), s.sameCamera, s.allowDifferentDTypes)
}

// Add returns the image-by-image sum as a module sequence.
func (s *ModuleImageSequence) Add(other Sequence) (*ModuleImageSequence, error) {
	return s.rebuildModule(s.pairwise(other, opAdd))
}

// Sub returns the image-by-image difference as a module sequence.
func (s *ModuleImageSequence) Sub(other Sequence) (*ModuleImageSequence, error) {
	return s.rebuildModule(s.pairwise(other, opSub))
}

// Mul returns the image-by-image product as a module sequence.
func (s *ModuleImageSequence) Mul(other Sequence) (*ModuleImageSequence, error) {
	return s.rebuildModule(s.pairwise(other, opMul))
}

// Div returns the image-by-image quotient as a module sequence.
func (s *ModuleImageSequence) Div(other Sequence) (*ModuleImageSequence, error) {
	return s.rebuildModule(s.pairwise(other, opDiv))
}

// FloorDiv returns the image-by-image floored quotient as a module
// sequence.
func (s *ModuleImageSequence) FloorDiv(other Sequence) (*ModuleImageSequence, error) {
	return s.rebuildModule(s.pairwise(other, opFloorDiv))
}

// Mod returns the image-by-image remainder as a module sequence.
func (s *ModuleImageSequence) Mod(other Sequence) (*ModuleImageSequence, error) {
	return s.rebuildModule(s.pairwise(other, opMod))
}

// Pow returns the image-by-image power as a module sequence.
func (s *ModuleImageSequence) Pow(other Sequence) (*ModuleImageSequence, error) {
	return s.rebuildModule(s.pairwise(other, opPow))
}

func (s *ModuleImageSequence) rebuildModule(imgs []Image, err error) (*ModuleImageSequence, error) {
	if err != nil {
		return nil, err
	}
	return NewModuleImageSequence(imgs, s.sameCamera, s.allowDifferentDTypes)
}

// CellImageSequence is a sequence of cell images. Cells are cut from
// different module regions, so a shared camera shape is never assumed.
type CellImageSequence struct {
	ImageSequence
}

// NewCellImageSequence validates and builds a sequence of cell images.
func NewCellImageSequence(images []Image, allowDifferentDTypes bool) (*CellImageSequence, error) {
	base, err := NewImageSequence(images, false, allowDifferentDTypes)
	if err != nil {
		return nil, err
	}
	return &CellImageSequence{ImageSequence: *base}, nil
}

// Apply transforms every image's pixel data with fn and rebuilds the
// cell sequence.
func (s *CellImageSequence) Apply(fn func(*Buffer) (*Buffer, error)) (*CellImageSequence, error) {
	imgs, err := s.applyImages(fn)
	if err != nil {
		return nil, err
	}
	return NewCellImageSequence(imgs, s.allowDifferentDTypes)
}

// AsType converts every image to the given sample type.
func (s *CellImageSequence) AsType(t DType) (*CellImageSequence, error) {
	return NewCellImageSequence(s.asTypeImages(t), s.allowDifferentDTypes)
}

// Add returns the image-by-image sum as a cell sequence.
func (s *CellImageSequence) Add(other Sequence) (*CellImageSequence, error) {
	return s.rebuildCell(s.pairwise(other, opAdd))
}

// Sub returns the image-by-image difference as a cell sequence.
func (s *CellImageSequence) Sub(other Sequence) (*CellImageSequence, error) {
	return s.rebuildCell(s.pairwise(other, opSub))
}

// Mul returns the image-by-image product as a cell sequence.
func (s *CellImageSequence) Mul(other Sequence) (*CellImageSequence, error) {
	return s.rebuildCell(s.pairwise(other, opMul))
}

// Div returns the image-by-image quotient as a cell sequence.
func (s *CellImageSequence) Div(other Sequence) (*CellImageSequence, error) {
	return s.rebuildCell(s.pairwise(other, opDiv))
}

// FloorDiv returns the image-by-image floored quotient as a cell
// sequence.
func (s *CellImageSequence) FloorDiv(other Sequence) (*CellImageSequence, error) {
	return s.rebuildCell(s.pairwise(other, opFloorDiv))
}

// Mod returns the image-by-image remainder as a cell sequence.
func (s *CellImageSequence) Mod(other Sequence) (*CellImageSequence, error) {
	return s.rebuildCell(s.pairwise(other, opMod))
}

// Pow returns the image-by-image power as a cell sequence.
func (s *CellImageSequence) Pow(other Sequence) (*CellImageSequence, error) {
	return s.rebuildCell(s.pairwise(other, opPow))
}

func (s *CellImageSequence) rebuildCell(imgs []Image, err error) (*CellImageSequence, error) {
	if err != nil {
		return nil, err
	}
	return NewCellImageSequence(imgs, s.allowDifferentDTypes)
}
