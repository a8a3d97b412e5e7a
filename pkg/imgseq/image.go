package imgseq

import (
	"fmt"
	"strings"
)

// Modality identifies the imaging technique that produced an image.
type Modality int

const (
	ModalityUnspecified Modality = iota
	ModalityEL
	ModalityPL
)

// String returns the conventional name of the modality.
func (m Modality) String() string {
	switch m {
	case ModalityEL:
		return "EL"
	case ModalityPL:
		return "PL"
	case ModalityUnspecified:
		return "unspecified"
	default:
		return fmt.Sprintf("Modality(%d)", int(m))
	}
}

// ParseModality converts a configuration string to a Modality.
// The empty string maps to ModalityUnspecified.
func ParseModality(s string) (Modality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "el":
		return ModalityEL, nil
	case "pl":
		return ModalityPL, nil
	case "", "unspecified":
		return ModalityUnspecified, nil
	default:
		return ModalityUnspecified, fmt.Errorf("unknown modality %q", s)
	}
}

// Shape describes image dimensions in pixels.
type Shape struct {
	Rows int
	Cols int
}

// Point is a position in image coordinates. For module grids, X counts
// cell columns and Y counts cell rows before a transform is applied.
type Point struct {
	X, Y float64
}

// Transform maps module coordinates to pixel coordinates. Implementations
// come from calibration code outside this package; images only store and
// hand back the transform.
type Transform interface {
	Apply(pts []Point) []Point
}

// TransformFunc adapts a plain function to the Transform interface.
type TransformFunc func(pts []Point) []Point

// Apply calls f.
func (f TransformFunc) Apply(pts []Point) []Point { return f(pts) }

// Image is a single grayscale measurement image together with its source
// path and modality. Implementations are immutable: Data returns a copy,
// and WithData/AsType build new images. Non-float pixel data is held in
// the canonical unsigned 16-bit representation.
type Image interface {
	// Data returns a copy of the pixel buffer.
	Data() *Buffer

	// Path returns the file the image was loaded from, or "".
	Path() string

	// Modality returns the imaging modality.
	Modality() Modality

	// DType returns the sample type of the pixel data.
	DType() DType

	// Shape returns the pixel dimensions.
	Shape() Shape

	// WithData returns a new image of the same concrete type with the
	// pixel data replaced and all other attributes copied.
	WithData(data *Buffer) (Image, error)

	// AsType returns a new image converted to the given sample type.
	// Integer targets land on the canonical unsigned 16-bit form.
	AsType(t DType) Image

	clone() Image
}

// canonical applies the storage rule for image pixel data: float data is
// kept as is, everything else is rescaled to uint16.
func canonical(data *Buffer) *Buffer {
	if data.DType().IsFloat() || data.DType() == DTypeUint16 {
		return data.Clone()
	}
	return data.Convert(DTypeUint16)
}

// storageType maps a requested conversion target to the type actually
// stored in images.
func storageType(t DType) DType {
	if t.IsFloat() {
		return t
	}
	return DTypeUint16
}

// GrayImage is the base image variant: pixel data, source path, modality.
type GrayImage struct {
	data     *Buffer
	path     string
	modality Modality
}

// NewGrayImage creates an image from a pixel buffer. The buffer is copied;
// non-float samples are rescaled to uint16.
func NewGrayImage(data *Buffer, path string, modality Modality) (*GrayImage, error) {
	if data == nil {
		return nil, fmt.Errorf("image data must not be nil")
	}
	return &GrayImage{data: canonical(data), path: path, modality: modality}, nil
}

// Data returns a copy of the pixel buffer.
func (img *GrayImage) Data() *Buffer { return img.data.Clone() }

// Path returns the file the image was loaded from, or "".
func (img *GrayImage) Path() string { return img.path }

// Modality returns the imaging modality.
func (img *GrayImage) Modality() Modality { return img.modality }

// DType returns the sample type of the pixel data.
func (img *GrayImage) DType() DType { return img.data.DType() }

// Shape returns the pixel dimensions.
func (img *GrayImage) Shape() Shape { return img.data.Shape() }

// WithData returns a new image with the pixel data replaced.
func (img *GrayImage) WithData(data *Buffer) (Image, error) {
	if data == nil {
		return nil, fmt.Errorf("image data must not be nil")
	}
	out := *img
	out.data = canonical(data)
	return &out, nil
}

// AsType returns a new image converted to the given sample type.
func (img *GrayImage) AsType(t DType) Image {
	out := *img
	out.data = img.data.Convert(storageType(t))
	return &out
}

func (img *GrayImage) clone() Image {
	out := *img
	return &out
}

// CellImage is a single solar cell cut out of a module image. Row and Col
// give the zero-based cell position within the source module.
type CellImage struct {
	GrayImage
	row, col int
}

// NewCellImage creates a cell image at the given module position.
func NewCellImage(data *Buffer, path string, modality Modality, row, col int) (*CellImage, error) {
	base, err := NewGrayImage(data, path, modality)
	if err != nil {
		return nil, err
	}
	return &CellImage{GrayImage: *base, row: row, col: col}, nil
}

// Row returns the zero-based cell row within the source module.
func (img *CellImage) Row() int { return img.row }

// Col returns the zero-based cell column within the source module.
func (img *CellImage) Col() int { return img.col }

// WithData returns a new cell image with the pixel data replaced.
func (img *CellImage) WithData(data *Buffer) (Image, error) {
	if data == nil {
		return nil, fmt.Errorf("image data must not be nil")
	}
	out := *img
	out.GrayImage.data = canonical(data)
	return &out, nil
}

// AsType returns a new cell image converted to the given sample type.
func (img *CellImage) AsType(t DType) Image {
	out := *img
	out.GrayImage.data = img.data.Convert(storageType(t))
	return &out
}

func (img *CellImage) clone() Image {
	out := *img
	return &out
}

// ModuleImager is satisfied by images that carry module cell geometry.
type ModuleImager interface {
	Image
	Cols() int
	Rows() int
}

// ModuleImage is an image of a full solar module. Cols and Rows give the
// cell layout; zero means the geometry was not provided.
type ModuleImage struct {
	GrayImage
	cols, rows int
	transform  Transform
}

// NewModuleImage creates a module image with the given cell geometry.
// Pass zero for both cols and rows when the layout is unknown.
func NewModuleImage(data *Buffer, path string, modality Modality, cols, rows int) (*ModuleImage, error) {
	if cols < 0 || rows < 0 {
		return nil, fmt.Errorf("module geometry must not be negative, got %dx%d", cols, rows)
	}
	base, err := NewGrayImage(data, path, modality)
	if err != nil {
		return nil, err
	}
	return &ModuleImage{GrayImage: *base, cols: cols, rows: rows}, nil
}

// Cols returns the number of cell columns, or zero when unset.
func (img *ModuleImage) Cols() int { return img.cols }

// Rows returns the number of cell rows, or zero when unset.
func (img *ModuleImage) Rows() int { return img.rows }

// Transform returns the stored module-to-pixel transform, or nil.
func (img *ModuleImage) Transform() Transform { return img.transform }

// WithTransform returns a new module image with the transform attached.
func (img *ModuleImage) WithTransform(t Transform) *ModuleImage {
	out := *img
	out.transform = t
	return &out
}

// Grid returns the lattice of cell corner points in module coordinates,
// (cols+1)*(rows+1) points grouped by column. The result fails when the
// cell geometry was never set.
func (img *ModuleImage) Grid() ([]Point, error) {
	if img.cols == 0 || img.rows == 0 {
		return nil, fmt.Errorf("%w: cannot compute grid for %q", ErrGridGeometry, img.path)
	}
	pts := make([]Point, 0, (img.cols+1)*(img.rows+1))
	for x := 0; x <= img.cols; x++ {
		for y := 0; y <= img.rows; y++ {
			pts = append(pts, Point{X: float64(x), Y: float64(y)})
		}
	}
	return pts, nil
}

// WithData returns a new module image with the pixel data replaced.
func (img *ModuleImage) WithData(data *Buffer) (Image, error) {
	if data == nil {
		return nil, fmt.Errorf("image data must not be nil")
	}
	out := *img
	out.GrayImage.data = canonical(data)
	return &out, nil
}

// AsType returns a new module image converted to the given sample type.
func (img *ModuleImage) AsType(t DType) Image {
	out := *img
	out.GrayImage.data = img.data.Convert(storageType(t))
	return &out
}

func (img *ModuleImage) clone() Image {
	out := *img
	return &out
}

// PartialModuleImage is an image showing part of a module. Cols and Rows
// describe the visible cell area; FirstCol and FirstRow locate it within
// the full module.
type PartialModuleImage struct {
	ModuleImage
	firstCol, firstRow int
}

// NewPartialModuleImage creates a partial module image covering cols x rows
// cells starting at (firstCol, firstRow).
func NewPartialModuleImage(data *Buffer, path string, modality Modality, cols, rows, firstCol, firstRow int) (*PartialModuleImage, error) {
	base, err := NewModuleImage(data, path, modality, cols, rows)
	if err != nil {
		return nil, err
	}
	return &PartialModuleImage{ModuleImage: *base, firstCol: firstCol, firstRow: firstRow}, nil
}

// FirstCol returns the module column of the first visible cell.
func (img *PartialModuleImage) FirstCol() int { return img.firstCol }

// FirstRow returns the module row of the first visible cell.
func (img *PartialModuleImage) FirstRow() int { return img.firstRow }

// WithData returns a new partial module image with the pixel data replaced.
func (img *PartialModuleImage) WithData(data *Buffer) (Image, error) {
	if data == nil {
		return nil, fmt.Errorf("image data must not be nil")
	}
	out := *img
	out.ModuleImage.GrayImage.data = canonical(data)
	return &out, nil
}

// AsType returns a new partial module image converted to the given
// sample type.
func (img *PartialModuleImage) AsType(t DType) Image {
	out := *img
	out.ModuleImage.GrayImage.data = img.data.Convert(storageType(t))
	return &out
}

func (img *PartialModuleImage) clone() Image {
	out := *img
	return &out
}

func imageArith(a, b Image, op arithOp) (Image, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("arithmetic operand is nil")
	}
	res, err := a.Data().arith(b.Data(), op)
	if err != nil {
		return nil, err
	}
	return a.WithData(res)
}

// Add returns the elementwise sum of two images. The operands must share
// a dtype; the result keeps the left operand's type and attributes.
func Add(a, b Image) (Image, error) { return imageArith(a, b, opAdd) }

// Sub returns the elementwise difference of two images.
func Sub(a, b Image) (Image, error) { return imageArith(a, b, opSub) }

// Mul returns the elementwise product of two images.
func Mul(a, b Image) (Image, error) { return imageArith(a, b, opMul) }

// Div returns the elementwise quotient of two images. Both operands must
// be float typed.
func Div(a, b Image) (Image, error) { return imageArith(a, b, opDiv) }

// FloorDiv returns the elementwise floored quotient of two images.
func FloorDiv(a, b Image) (Image, error) { return imageArith(a, b, opFloorDiv) }

// Mod returns the elementwise remainder of two images.
func Mod(a, b Image) (Image, error) { return imageArith(a, b, opMod) }

// Pow returns the elementwise power of two images.
func Pow(a, b Image) (Image, error) { return imageArith(a, b, opPow) }
