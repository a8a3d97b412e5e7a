package imgseq

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// DType identifies the sample type of a pixel buffer.
type DType int

const (
	DTypeUint8 DType = iota
	DTypeUint16
	DTypeFloat32
	DTypeFloat64
)

// String returns the conventional name of the sample type.
func (d DType) String() string {
	switch d {
	case DTypeUint8:
		return "uint8"
	case DTypeUint16:
		return "uint16"
	case DTypeFloat32:
		return "float32"
	case DTypeFloat64:
		return "float64"
	default:
		return fmt.Sprintf("DType(%d)", int(d))
	}
}

// IsFloat reports whether the sample type is a floating point type.
func (d DType) IsFloat() bool {
	return d == DTypeFloat32 || d == DTypeFloat64
}

// ParseDType converts a configuration string to a DType.
func ParseDType(s string) (DType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "uint8":
		return DTypeUint8, nil
	case "uint16":
		return DTypeUint16, nil
	case "float32":
		return DTypeFloat32, nil
	case "float64":
		return DTypeFloat64, nil
	default:
		return 0, fmt.Errorf("unknown sample type %q", s)
	}
}

// Buffer holds a two-dimensional grayscale pixel array in row-major order.
// Exactly one backing slice is populated, matching the buffer's dtype.
// Buffers are immutable after construction: all accessors copy and all
// operations allocate a new result buffer.
type Buffer struct {
	rows, cols int
	dtype      DType

	u8  []uint8
	u16 []uint16
	f32 []float32
	f64 []float64
}

func checkDims(rows, cols, n int) error {
	if rows <= 0 || cols <= 0 {
		return fmt.Errorf("buffer dimensions must be positive, got %dx%d", rows, cols)
	}
	if rows*cols != n {
		return fmt.Errorf("buffer of %dx%d needs %d samples, got %d", rows, cols, rows*cols, n)
	}
	return nil
}

// NewUint8Buffer creates an 8-bit buffer from row-major samples.
// The samples are copied.
func NewUint8Buffer(rows, cols int, pix []uint8) (*Buffer, error) {
	if err := checkDims(rows, cols, len(pix)); err != nil {
		return nil, err
	}
	b := &Buffer{rows: rows, cols: cols, dtype: DTypeUint8, u8: make([]uint8, len(pix))}
	copy(b.u8, pix)
	return b, nil
}

// NewUint16Buffer creates a 16-bit buffer from row-major samples.
// The samples are copied.
func NewUint16Buffer(rows, cols int, pix []uint16) (*Buffer, error) {
	if err := checkDims(rows, cols, len(pix)); err != nil {
		return nil, err
	}
	b := &Buffer{rows: rows, cols: cols, dtype: DTypeUint16, u16: make([]uint16, len(pix))}
	copy(b.u16, pix)
	return b, nil
}

// NewFloat32Buffer creates a 32-bit float buffer from row-major samples.
// The samples are copied.
func NewFloat32Buffer(rows, cols int, pix []float32) (*Buffer, error) {
	if err := checkDims(rows, cols, len(pix)); err != nil {
		return nil, err
	}
	b := &Buffer{rows: rows, cols: cols, dtype: DTypeFloat32, f32: make([]float32, len(pix))}
	copy(b.f32, pix)
	return b, nil
}

// NewFloat64Buffer creates a 64-bit float buffer from row-major samples.
// The samples are copied.
func NewFloat64Buffer(rows, cols int, pix []float64) (*Buffer, error) {
	if err := checkDims(rows, cols, len(pix)); err != nil {
		return nil, err
	}
	b := &Buffer{rows: rows, cols: cols, dtype: DTypeFloat64, f64: make([]float64, len(pix))}
	copy(b.f64, pix)
	return b, nil
}

// Rows returns the number of pixel rows.
func (b *Buffer) Rows() int { return b.rows }

// Cols returns the number of pixel columns.
func (b *Buffer) Cols() int { return b.cols }

// Len returns the total number of samples.
func (b *Buffer) Len() int { return b.rows * b.cols }

// DType returns the sample type of the buffer.
func (b *Buffer) DType() DType { return b.dtype }

// Shape returns the buffer dimensions in pixels.
func (b *Buffer) Shape() Shape { return Shape{Rows: b.rows, Cols: b.cols} }

// At returns the raw sample at row r, column c as a float64.
// Integer samples are returned unscaled.
func (b *Buffer) At(r, c int) float64 {
	if r < 0 || r >= b.rows || c < 0 || c >= b.cols {
		panic(fmt.Sprintf("imgseq: index (%d,%d) out of range for %dx%d buffer", r, c, b.rows, b.cols))
	}
	i := r*b.cols + c
	switch b.dtype {
	case DTypeUint8:
		return float64(b.u8[i])
	case DTypeUint16:
		return float64(b.u16[i])
	case DTypeFloat32:
		return float64(b.f32[i])
	default:
		return b.f64[i]
	}
}

// Clone returns an independent copy of the buffer.
func (b *Buffer) Clone() *Buffer {
	out := &Buffer{rows: b.rows, cols: b.cols, dtype: b.dtype}
	switch b.dtype {
	case DTypeUint8:
		out.u8 = append([]uint8(nil), b.u8...)
	case DTypeUint16:
		out.u16 = append([]uint16(nil), b.u16...)
	case DTypeFloat32:
		out.f32 = append([]float32(nil), b.f32...)
	default:
		out.f64 = append([]float64(nil), b.f64...)
	}
	return out
}

// Uint8Pixels returns a copy of the samples when the dtype is uint8.
func (b *Buffer) Uint8Pixels() ([]uint8, bool) {
	if b.dtype != DTypeUint8 {
		return nil, false
	}
	return append([]uint8(nil), b.u8...), true
}

// Uint16Pixels returns a copy of the samples when the dtype is uint16.
func (b *Buffer) Uint16Pixels() ([]uint16, bool) {
	if b.dtype != DTypeUint16 {
		return nil, false
	}
	return append([]uint16(nil), b.u16...), true
}

// Float32Pixels returns a copy of the samples when the dtype is float32.
func (b *Buffer) Float32Pixels() ([]float32, bool) {
	if b.dtype != DTypeFloat32 {
		return nil, false
	}
	return append([]float32(nil), b.f32...), true
}

// Float64Pixels returns a copy of the samples when the dtype is float64.
func (b *Buffer) Float64Pixels() ([]float64, bool) {
	if b.dtype != DTypeFloat64 {
		return nil, false
	}
	return append([]float64(nil), b.f64...), true
}

// Values returns all samples as raw float64 values in row-major order.
// Integer samples are not rescaled.
func (b *Buffer) Values() []float64 {
	out := make([]float64, b.Len())
	switch b.dtype {
	case DTypeUint8:
		for i, v := range b.u8 {
			out[i] = float64(v)
		}
	case DTypeUint16:
		for i, v := range b.u16 {
			out[i] = float64(v)
		}
	case DTypeFloat32:
		for i, v := range b.f32 {
			out[i] = float64(v)
		}
	default:
		copy(out, b.f64)
	}
	return out
}

// Min returns the smallest raw sample value as a float64.
func (b *Buffer) Min() float64 {
	if b.dtype == DTypeFloat64 {
		return floats.Min(b.f64)
	}
	min := b.At(0, 0)
	vals := b.Values()
	for _, v := range vals[1:] {
		if v < min {
			min = v
		}
	}
	return min
}

// Max returns the largest raw sample value as a float64.
func (b *Buffer) Max() float64 {
	if b.dtype == DTypeFloat64 {
		return floats.Max(b.f64)
	}
	max := b.At(0, 0)
	vals := b.Values()
	for _, v := range vals[1:] {
		if v > max {
			max = v
		}
	}
	return max
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Convert returns a new buffer with the samples rescaled to the target
// sample type. Integer samples map to the float range [0, 1] by dividing
// by the source maximum; float samples map to integer targets by clamping
// to [0, 1] and scaling to the target maximum. Float-to-float conversion
// casts values unchanged, uint8-to-uint16 multiplies by 257 so full range
// maps to full range.
func (b *Buffer) Convert(to DType) *Buffer {
	if to == b.dtype {
		return b.Clone()
	}
	n := b.Len()
	out := &Buffer{rows: b.rows, cols: b.cols, dtype: to}
	switch to {
	case DTypeFloat64:
		out.f64 = make([]float64, n)
		switch b.dtype {
		case DTypeUint8:
			for i, v := range b.u8 {
				out.f64[i] = float64(v) / 255.0
			}
		case DTypeUint16:
			for i, v := range b.u16 {
				out.f64[i] = float64(v) / 65535.0
			}
		default:
			for i, v := range b.f32 {
				out.f64[i] = float64(v)
			}
		}
	case DTypeFloat32:
		out.f32 = make([]float32, n)
		switch b.dtype {
		case DTypeUint8:
			for i, v := range b.u8 {
				out.f32[i] = float32(float64(v) / 255.0)
			}
		case DTypeUint16:
			for i, v := range b.u16 {
				out.f32[i] = float32(float64(v) / 65535.0)
			}
		default:
			for i, v := range b.f64 {
				out.f32[i] = float32(v)
			}
		}
	case DTypeUint16:
		out.u16 = make([]uint16, n)
		switch b.dtype {
		case DTypeUint8:
			for i, v := range b.u8 {
				out.u16[i] = uint16(v) * 257
			}
		case DTypeFloat32:
			for i, v := range b.f32 {
				out.u16[i] = uint16(math.Round(clamp01(float64(v)) * 65535.0))
			}
		default:
			for i, v := range b.f64 {
				out.u16[i] = uint16(math.Round(clamp01(v) * 65535.0))
			}
		}
	default: // DTypeUint8
		out.u8 = make([]uint8, n)
		switch b.dtype {
		case DTypeUint16:
			for i, v := range b.u16 {
				out.u8[i] = uint8(math.Round(float64(v) / 257.0))
			}
		case DTypeFloat32:
			for i, v := range b.f32 {
				out.u8[i] = uint8(math.Round(clamp01(float64(v)) * 255.0))
			}
		default:
			for i, v := range b.f64 {
				out.u8[i] = uint8(math.Round(clamp01(v) * 255.0))
			}
		}
	}
	return out
}

type arithOp int

const (
	opAdd arithOp = iota
	opSub
	opMul
	opDiv
	opFloorDiv
	opMod
	opPow
)

// Unsigned exponentiation with the operand width's natural wraparound.
func powUint8(base, exp uint8) uint8 {
	var result uint8 = 1
	for exp > 0 {
		if exp&1 == 1 {
			result *= base
		}
		base *= base
		exp >>= 1
	}
	return result
}

func powUint16(base, exp uint16) uint16 {
	var result uint16 = 1
	for exp > 0 {
		if exp&1 == 1 {
			result *= base
		}
		base *= base
		exp >>= 1
	}
	return result
}

// Float remainder with the divisor's sign, matching the convention used
// by scientific array libraries rather than math.Mod's dividend sign.
func floatMod(a, b float64) float64 {
	m := math.Mod(a, b)
	if m != 0 && (m < 0) != (b < 0) {
		m += b
	}
	return m
}

func floatBinary(a, b float64, op arithOp) float64 {
	switch op {
	case opAdd:
		return a + b
	case opSub:
		return a - b
	case opMul:
		return a * b
	case opDiv:
		return a / b
	case opFloorDiv:
		return math.Floor(a / b)
	case opMod:
		return floatMod(a, b)
	default:
		return math.Pow(a, b)
	}
}

func (b *Buffer) arith(other *Buffer, op arithOp) (*Buffer, error) {
	if other == nil {
		return nil, fmt.Errorf("arithmetic operand is nil")
	}
	if op == opDiv {
		if !b.dtype.IsFloat() || !other.dtype.IsFloat() {
			return nil, fmt.Errorf("%w: cannot divide %s by %s", ErrNotFloat, b.dtype, other.dtype)
		}
	} else if b.dtype != other.dtype {
		return nil, fmt.Errorf("%w: %s and %s", ErrDTypeMismatch, b.dtype, other.dtype)
	}
	if b.rows != other.rows || b.cols != other.cols {
		return nil, fmt.Errorf("%w: %dx%d and %dx%d", ErrShapeMismatch, b.rows, b.cols, other.rows, other.cols)
	}
	if op == opDiv && b.dtype != other.dtype {
		// Mixed float precision promotes to float64.
		return b.Convert(DTypeFloat64).arith(other.Convert(DTypeFloat64), opDiv)
	}
	n := b.Len()
	out := &Buffer{rows: b.rows, cols: b.cols, dtype: b.dtype}
	switch b.dtype {
	case DTypeUint8:
		out.u8 = make([]uint8, n)
		for i := range b.u8 {
			x, y := b.u8[i], other.u8[i]
			switch op {
			case opAdd:
				out.u8[i] = x + y
			case opSub:
				out.u8[i] = x - y
			case opMul:
				out.u8[i] = x * y
			case opFloorDiv:
				if y != 0 {
					out.u8[i] = x / y
				}
			case opMod:
				if y != 0 {
					out.u8[i] = x % y
				}
			default:
				out.u8[i] = powUint8(x, y)
			}
		}
	case DTypeUint16:
		out.u16 = make([]uint16, n)
		for i := range b.u16 {
			x, y := b.u16[i], other.u16[i]
			switch op {
			case opAdd:
				out.u16[i] = x + y
			case opSub:
				out.u16[i] = x - y
			case opMul:
				out.u16[i] = x * y
			case opFloorDiv:
				if y != 0 {
					out.u16[i] = x / y
				}
			case opMod:
				if y != 0 {
					out.u16[i] = x % y
				}
			default:
				out.u16[i] = powUint16(x, y)
			}
		}
	case DTypeFloat32:
		out.f32 = make([]float32, n)
		for i := range b.f32 {
			out.f32[i] = float32(floatBinary(float64(b.f32[i]), float64(other.f32[i]), op))
		}
	default:
		out.f64 = make([]float64, n)
		for i := range b.f64 {
			out.f64[i] = floatBinary(b.f64[i], other.f64[i], op)
		}
	}
	return out, nil
}

// Add returns the elementwise sum. Unsigned samples wrap around.
func (b *Buffer) Add(other *Buffer) (*Buffer, error) { return b.arith(other, opAdd) }

// Sub returns the elementwise difference. Unsigned samples wrap around.
func (b *Buffer) Sub(other *Buffer) (*Buffer, error) { return b.arith(other, opSub) }

// Mul returns the elementwise product. Unsigned samples wrap around.
func (b *Buffer) Mul(other *Buffer) (*Buffer, error) { return b.arith(other, opMul) }

// Div returns the elementwise quotient. Both buffers must be float typed.
func (b *Buffer) Div(other *Buffer) (*Buffer, error) { return b.arith(other, opDiv) }

// FloorDiv returns the elementwise floored quotient. Integer division by
// zero yields zero.
func (b *Buffer) FloorDiv(other *Buffer) (*Buffer, error) { return b.arith(other, opFloorDiv) }

// Mod returns the elementwise remainder, taking the divisor's sign for
// float samples. Integer remainder by zero yields zero.
func (b *Buffer) Mod(other *Buffer) (*Buffer, error) { return b.arith(other, opMod) }

// Pow returns the elementwise power. Unsigned samples wrap around.
func (b *Buffer) Pow(other *Buffer) (*Buffer, error) { return b.arith(other, opPow) }
