package imgseq

import (
	"errors"
	"testing"
)

func newTestModuleImage(t *testing.T, rows, cols int, pix []uint16, path string, mcols, mrows int) *ModuleImage {
	t.Helper()
	buf, err := NewUint16Buffer(rows, cols, pix)
	if err != nil {
		t.Fatalf("Failed to create buffer: %v", err)
	}
	img, err := NewModuleImage(buf, path, ModalityEL, mcols, mrows)
	if err != nil {
		t.Fatalf("Failed to create module image: %v", err)
	}
	return img
}

// TestNewImageSequenceValidation verifies the construction invariants
func TestNewImageSequenceValidation(t *testing.T) {
	// An empty sequence is invalid
	if _, err := NewImageSequence(nil, false, false); !errors.Is(err, ErrEmptySequence) {
		t.Errorf("Expected ErrEmptySequence, got %v", err)
	}

	a := newTestUint16Image(t, 2, 2, []uint16{1, 2, 3, 4})
	b := newTestUint16Image(t, 2, 2, []uint16{5, 6, 7, 8})

	seq, err := NewImageSequence([]Image{a, b}, true, false)
	if err != nil {
		t.Fatalf("Failed to create sequence: %v", err)
	}
	if seq.Len() != 2 {
		t.Errorf("Expected length 2, got %d", seq.Len())
	}

	// Mixed dtypes are rejected unless explicitly waived
	f := newTestFloat32Image(t, 2, 2, []float32{0, 0, 0, 0})
	if _, err := NewImageSequence([]Image{a, f}, false, false); !errors.Is(err, ErrDTypeMismatch) {
		t.Errorf("Expected ErrDTypeMismatch, got %v", err)
	}
	if _, err := NewImageSequence([]Image{a, f}, false, true); err != nil {
		t.Errorf("Expected waived dtype mix to pass, got %v", err)
	}

	// Mixed shapes are rejected only when the images share a camera
	wide := newTestUint16Image(t, 2, 3, []uint16{1, 2, 3, 4, 5, 6})
	if _, err := NewImageSequence([]Image{a, wide}, true, false); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("Expected ErrShapeMismatch, got %v", err)
	}
	if _, err := NewImageSequence([]Image{a, wide}, false, false); err != nil {
		t.Errorf("Expected mixed shapes without same camera to pass, got %v", err)
	}

	// Modalities must be uniform
	buf, err := NewUint16Buffer(2, 2, []uint16{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("Failed to create buffer: %v", err)
	}
	pl, err := NewGrayImage(buf, "", ModalityPL)
	if err != nil {
		t.Fatalf("Failed to create image: %v", err)
	}
	if _, err := NewImageSequence([]Image{a, pl}, false, false); !errors.Is(err, ErrModalityMismatch) {
		t.Errorf("Expected ErrModalityMismatch, got %v", err)
	}
}

// TestSequenceProperties verifies the derived dtype and shape properties
func TestSequenceProperties(t *testing.T) {
	a := newTestUint16Image(t, 2, 2, []uint16{1, 2, 3, 4})
	b := newTestUint16Image(t, 2, 2, []uint16{5, 6, 7, 8})

	same, err := NewImageSequence([]Image{a, b}, true, false)
	if err != nil {
		t.Fatalf("Failed to create sequence: %v", err)
	}
	if d, ok := same.DType(); !ok || d != DTypeUint16 {
		t.Errorf("Expected common dtype uint16, got %s ok=%v", d, ok)
	}
	if s, ok := same.Shape(); !ok || s != (Shape{Rows: 2, Cols: 2}) {
		t.Errorf("Expected common shape 2x2, got %v ok=%v", s, ok)
	}
	if same.Modality() != ModalityEL {
		t.Errorf("Expected modality EL, got %s", same.Modality())
	}

	// Heterogeneity that is permitted hides the common value
	mixed, err := NewImageSequence([]Image{a, b}, false, true)
	if err != nil {
		t.Fatalf("Failed to create sequence: %v", err)
	}
	if _, ok := mixed.DType(); ok {
		t.Error("Expected no common dtype when mixing is allowed")
	}
	if _, ok := mixed.Shape(); ok {
		t.Error("Expected no common shape without same camera")
	}
	if mixed.SameCamera() {
		t.Error("Expected SameCamera to be false")
	}
}

// TestSequenceCopySemantics verifies that sequences do not alias caller
// slices or hand out shared images
func TestSequenceCopySemantics(t *testing.T) {
	a := newTestUint16Image(t, 1, 2, []uint16{1, 2})
	b := newTestUint16Image(t, 1, 2, []uint16{3, 4})

	imgs := []Image{a, b}
	seq, err := NewImageSequence(imgs, true, false)
	if err != nil {
		t.Fatalf("Failed to create sequence: %v", err)
	}

	// Mutating the input slice must not affect the sequence
	imgs[0] = nil
	if seq.At(0) == nil {
		t.Fatal("Expected sequence to keep its own image slice")
	}
	if got := seq.At(0).Data().At(0, 0); got != 1 {
		t.Errorf("Expected sample 1, got %v", got)
	}

	// Each access returns a fresh image value
	if seq.At(0) == seq.At(1) {
		t.Error("Expected distinct images at distinct indices")
	}
	out := seq.Images()
	if len(out) != 2 {
		t.Fatalf("Expected 2 images, got %d", len(out))
	}
	out[0] = nil
	if seq.At(0) == nil {
		t.Error("Expected Images to return an independent slice")
	}
}

// TestSequenceApply verifies per-image data transformation with
// re-validation
func TestSequenceApply(t *testing.T) {
	a := newTestFloat32Image(t, 1, 2, []float32{0.1, 0.2})
	b := newTestFloat32Image(t, 1, 2, []float32{0.3, 0.4})
	seq, err := NewImageSequence([]Image{a, b}, true, false)
	if err != nil {
		t.Fatalf("Failed to create sequence: %v", err)
	}

	doubled, err := seq.Apply(func(buf *Buffer) (*Buffer, error) {
		return buf.Add(buf)
	})
	if err != nil {
		t.Fatalf("Failed to apply: %v", err)
	}
	if got := doubled.At(0).Data().At(0, 1); got != float64(float32(0.2)+float32(0.2)) {
		t.Errorf("Expected doubled sample, got %v", got)
	}

	// Length and flags carry over
	if doubled.Len() != 2 || !doubled.SameCamera() {
		t.Errorf("Expected length 2 with same camera, got %d %v", doubled.Len(), doubled.SameCamera())
	}
}

// TestSequenceAsType verifies sequence-wide dtype conversion
func TestSequenceAsType(t *testing.T) {
	a := newTestUint16Image(t, 1, 2, []uint16{0, 65535})
	b := newTestUint16Image(t, 1, 2, []uint16{32768, 1})
	seq, err := NewImageSequence([]Image{a, b}, true, false)
	if err != nil {
		t.Fatalf("Failed to create sequence: %v", err)
	}

	fl, err := seq.AsType(DTypeFloat64)
	if err != nil {
		t.Fatalf("Failed to convert sequence: %v", err)
	}
	if d, ok := fl.DType(); !ok || d != DTypeFloat64 {
		t.Errorf("Expected dtype float64, got %s ok=%v", d, ok)
	}
	if got := fl.At(0).Data().At(0, 1); got != 1.0 {
		t.Errorf("Expected converted sample 1.0, got %v", got)
	}
}

// TestSequenceArithmetic verifies pairwise arithmetic between sequences
func TestSequenceArithmetic(t *testing.T) {
	a1 := newTestUint16Image(t, 1, 2, []uint16{10, 20})
	a2 := newTestUint16Image(t, 1, 2, []uint16{30, 40})
	b1 := newTestUint16Image(t, 1, 2, []uint16{1, 2})
	b2 := newTestUint16Image(t, 1, 2, []uint16{3, 4})

	sa, err := NewImageSequence([]Image{a1, a2}, true, false)
	if err != nil {
		t.Fatalf("Failed to create sequence: %v", err)
	}
	sb, err := NewImageSequence([]Image{b1, b2}, true, false)
	if err != nil {
		t.Fatalf("Failed to create sequence: %v", err)
	}

	sum, err := sa.Add(sb)
	if err != nil {
		t.Fatalf("Failed to add sequences: %v", err)
	}
	if got := sum.At(0).Data().At(0, 0); got != 11 {
		t.Errorf("Expected sum 11, got %v", got)
	}
	if got := sum.At(1).Data().At(0, 1); got != 44 {
		t.Errorf("Expected sum 44, got %v", got)
	}

	diff, err := sa.Sub(sb)
	if err != nil {
		t.Fatalf("Failed to subtract sequences: %v", err)
	}
	if got := diff.At(1).Data().At(0, 0); got != 27 {
		t.Errorf("Expected difference 27, got %v", got)
	}

	// Sequences of different length cannot be combined
	single, err := NewImageSequence([]Image{b1}, true, false)
	if err != nil {
		t.Fatalf("Failed to create sequence: %v", err)
	}
	if _, err := sa.Add(single); !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("Expected ErrLengthMismatch, got %v", err)
	}
}

// TestModuleImageSequenceValidation verifies the module geometry
// invariants
func TestModuleImageSequenceValidation(t *testing.T) {
	m1 := newTestModuleImage(t, 2, 2, []uint16{1, 2, 3, 4}, "m1.png", 10, 6)
	m2 := newTestModuleImage(t, 2, 2, []uint16{5, 6, 7, 8}, "m2.png", 10, 6)

	seq, err := NewModuleImageSequence([]Image{m1, m2}, true, false)
	if err != nil {
		t.Fatalf("Failed to create module sequence: %v", err)
	}
	if seq.Cols() != 10 || seq.Rows() != 6 {
		t.Errorf("Expected geometry 10x6, got %dx%d", seq.Cols(), seq.Rows())
	}

	// Plain images cannot join a module sequence
	plain := newTestUint16Image(t, 2, 2, []uint16{1, 2, 3, 4})
	if _, err := NewModuleImageSequence([]Image{m1, plain}, false, false); !errors.Is(err, ErrNotModuleImage) {
		t.Errorf("Expected ErrNotModuleImage, got %v", err)
	}

	// Conflicting cell layouts are rejected
	other := newTestModuleImage(t, 2, 2, []uint16{1, 2, 3, 4}, "m3.png", 9, 6)
	if _, err := NewModuleImageSequence([]Image{m1, other}, false, false); !errors.Is(err, ErrGeometryMismatch) {
		t.Errorf("Expected ErrGeometryMismatch for cols, got %v", err)
	}
	tall := newTestModuleImage(t, 2, 2, []uint16{1, 2, 3, 4}, "m4.png", 10, 7)
	if _, err := NewModuleImageSequence([]Image{m1, tall}, false, false); !errors.Is(err, ErrGeometryMismatch) {
		t.Errorf("Expected ErrGeometryMismatch for rows, got %v", err)
	}

	// An empty module sequence reports the base empty error
	if _, err := NewModuleImageSequence(nil, false, false); !errors.Is(err, ErrEmptySequence) {
		t.Errorf("Expected ErrEmptySequence, got %v", err)
	}

	// Partial module images carry geometry and may join
	buf, err := NewUint16Buffer(2, 2, []uint16{0, 0, 0, 0})
	if err != nil {
		t.Fatalf("Failed to create buffer: %v", err)
	}
	part, err := NewPartialModuleImage(buf, "", ModalityEL, 10, 6, 0, 0)
	if err != nil {
		t.Fatalf("Failed to create partial module image: %v", err)
	}
	if _, err := NewModuleImageSequence([]Image{m1, part}, false, false); err != nil {
		t.Errorf("Expected partial module image to join, got %v", err)
	}
}

// TestModuleSequenceOperationsPreserveVariant verifies that module
// sequences stay module sequences through operations
func TestModuleSequenceOperationsPreserveVariant(t *testing.T) {
	m1 := newTestModuleImage(t, 1, 2, []uint16{2, 4}, "", 2, 3)
	m2 := newTestModuleImage(t, 1, 2, []uint16{6, 8}, "", 2, 3)
	seq, err := NewModuleImageSequence([]Image{m1, m2}, true, false)
	if err != nil {
		t.Fatalf("Failed to create module sequence: %v", err)
	}

	conv, err := seq.AsType(DTypeFloat64)
	if err != nil {
		t.Fatalf("Failed to convert module sequence: %v", err)
	}
	if conv.Cols() != 2 || conv.Rows() != 3 {
		t.Errorf("Expected geometry 2x3 after conversion, got %dx%d", conv.Cols(), conv.Rows())
	}

	sum, err := seq.Add(seq)
	if err != nil {
		t.Fatalf("Failed to add module sequences: %v", err)
	}
	if got := sum.At(0).Data().At(0, 0); got != 4 {
		t.Errorf("Expected sum 4, got %v", got)
	}
	if _, ok := sum.At(0).(*ModuleImage); !ok {
		t.Errorf("Expected *ModuleImage elements, got %T", sum.At(0))
	}

	applied, err := seq.Apply(func(buf *Buffer) (*Buffer, error) {
		return buf.Clone(), nil
	})
	if err != nil {
		t.Fatalf("Failed to apply on module sequence: %v", err)
	}
	if applied.Cols() != 2 {
		t.Errorf("Expected geometry to survive Apply, got %d cell columns", applied.Cols())
	}
}

// TestCellImageSequence verifies that cell sequences never assume one
// camera shape
func TestCellImageSequence(t *testing.T) {
	buf1, err := NewUint16Buffer(2, 2, []uint16{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("Failed to create buffer: %v", err)
	}
	buf2, err := NewUint16Buffer(3, 2, []uint16{1, 2, 3, 4, 5, 6})
	if err != nil {
		t.Fatalf("Failed to create buffer: %v", err)
	}
	c1, err := NewCellImage(buf1, "", ModalityEL, 0, 0)
	if err != nil {
		t.Fatalf("Failed to create cell image: %v", err)
	}
	c2, err := NewCellImage(buf2, "", ModalityEL, 0, 1)
	if err != nil {
		t.Fatalf("Failed to create cell image: %v", err)
	}

	// Differently shaped cells are fine in one sequence
	seq, err := NewCellImageSequence([]Image{c1, c2}, false)
	if err != nil {
		t.Fatalf("Failed to create cell sequence: %v", err)
	}
	if seq.SameCamera() {
		t.Error("Expected cell sequences to never assume one camera")
	}
	if _, ok := seq.Shape(); ok {
		t.Error("Expected no common shape for cell sequences")
	}

	conv, err := seq.AsType(DTypeFloat32)
	if err != nil {
		t.Fatalf("Failed to convert cell sequence: %v", err)
	}
	if _, ok := conv.At(0).(*CellImage); !ok {
		t.Errorf("Expected *CellImage elements, got %T", conv.At(0))
	}
}
