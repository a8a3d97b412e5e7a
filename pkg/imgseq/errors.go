package imgseq

import "errors"

// Validation and arithmetic failures are reported as wrapped sentinel
// errors so callers can branch with errors.Is instead of string matching.
var (
	// ErrEmptySequence indicates a sequence was constructed without images.
	ErrEmptySequence = errors.New("sequence must contain at least one image")

	// ErrDTypeMismatch indicates images with incompatible data types were
	// combined without an explicit waiver.
	ErrDTypeMismatch = errors.New("images have incompatible dtypes")

	// ErrShapeMismatch indicates images with different pixel dimensions
	// were combined where a single shape is required.
	ErrShapeMismatch = errors.New("images have incompatible shapes")

	// ErrModalityMismatch indicates a sequence mixes imaging modalities.
	ErrModalityMismatch = errors.New("images have mixed modalities")

	// ErrGeometryMismatch indicates a module sequence mixes cell layouts.
	ErrGeometryMismatch = errors.New("module images have mixed cell geometries")

	// ErrGridGeometry indicates grid points were requested from a module
	// image whose cell geometry was never set.
	ErrGridGeometry = errors.New("module geometry is not set")

	// ErrNotModuleImage indicates a module sequence was given an image
	// without module geometry.
	ErrNotModuleImage = errors.New("image is not a module image")

	// ErrNotFloat indicates division was attempted on non-float images.
	ErrNotFloat = errors.New("operation requires float images")

	// ErrLengthMismatch indicates pairwise arithmetic between sequences
	// of different lengths.
	ErrLengthMismatch = errors.New("sequences differ in length")
)
