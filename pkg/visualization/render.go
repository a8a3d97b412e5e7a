package visualization

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sort"

	bildio "github.com/anthonynsimon/bild/imgio"
	"github.com/disintegration/imaging"
	"gonum.org/v1/gonum/stat"

	"pvimage/pkg/imgseq"
)

// Default clip percentiles. Electroluminescence images routinely contain
// a handful of hot pixels, so the display range ignores the extreme tails.
const (
	DefaultClipLow  = 0.001
	DefaultClipHigh = 99.999
)

// Renderer converts measurement images into displayable 8-bit grayscale
// pictures with percentile-based contrast clipping.
type Renderer struct {
	// clipLow and clipHigh are percentiles in [0, 100] bounding the
	// displayed intensity range.
	clipLow  float64
	clipHigh float64

	// maxWidth caps the rendered width in pixels; wider results are
	// downscaled. Zero disables scaling.
	maxWidth int

	// markers enables grid-crossing markers on module images that carry
	// both cell geometry and a coordinate transform.
	markers bool
}

// NewRenderer creates a renderer with the given clip percentiles, width
// cap and marker setting.
func NewRenderer(clipLow, clipHigh float64, maxWidth int, markers bool) *Renderer {
	return &Renderer{
		clipLow:  clipLow,
		clipHigh: clipHigh,
		maxWidth: maxWidth,
		markers:  markers,
	}
}

// gridded is satisfied by module images that can place their cell grid on
// the pixel plane.
type gridded interface {
	imgseq.ModuleImager
	Grid() ([]imgseq.Point, error)
	Transform() imgseq.Transform
}

// Render converts img to an 8-bit grayscale picture. Intensities are
// clipped to the [clipLow, clipHigh] percentile range before scaling,
// grid crossings are marked when enabled and the image supports them,
// and the result is downscaled when wider than the configured cap.
func (r *Renderer) Render(img imgseq.Image) (image.Image, error) {
	if img == nil {
		return nil, fmt.Errorf("cannot render nil image")
	}

	data := img.Data()
	lo, hi := r.clipBounds(data)
	span := hi - lo
	if span <= 0 {
		span = 1
	}

	canvas := image.NewGray(image.Rect(0, 0, data.Cols(), data.Rows()))
	for y := 0; y < data.Rows(); y++ {
		for x := 0; x < data.Cols(); x++ {
			v := (data.At(y, x) - lo) / span
			v = math.Max(0, math.Min(1, v))
			canvas.SetGray(x, y, color.Gray{Y: uint8(v*255 + 0.5)})
		}
	}

	if r.markers {
		if mod, ok := img.(gridded); ok {
			drawCrossings(canvas, mod)
		}
	}

	var rendered image.Image = canvas
	if r.maxWidth > 0 && data.Cols() > r.maxWidth {
		rendered = imaging.Resize(rendered, r.maxWidth, 0, imaging.Lanczos)
	}
	return rendered, nil
}

// clipBounds computes the display range from the configured percentiles.
func (r *Renderer) clipBounds(data *imgseq.Buffer) (float64, float64) {
	values := data.Values()
	sort.Float64s(values)
	lo := stat.Quantile(r.clipLow/100, stat.Empirical, values, nil)
	hi := stat.Quantile(r.clipHigh/100, stat.Empirical, values, nil)
	return lo, hi
}

// drawCrossings marks every grid crossing the image's transform maps into
// pixel coordinates. Images without geometry or transform are left as-is.
func drawCrossings(canvas *image.Gray, img gridded) {
	t := img.Transform()
	if t == nil {
		return
	}
	grid, err := img.Grid()
	if err != nil {
		return
	}
	for _, p := range t.Apply(grid) {
		drawMarker(canvas, int(math.Round(p.X)), int(math.Round(p.Y)))
	}
}

// drawMarker paints a small white cross centred at (x, y), clipped to the
// canvas bounds.
func drawMarker(canvas *image.Gray, x, y int) {
	const arm = 3
	b := canvas.Bounds()
	for d := -arm; d <= arm; d++ {
		if (image.Point{X: x + d, Y: y}).In(b) {
			canvas.SetGray(x+d, y, color.Gray{Y: 255})
		}
		if (image.Point{X: x, Y: y + d}).In(b) {
			canvas.SetGray(x, y+d, color.Gray{Y: 255})
		}
	}
}

// SaveOverview renders the first and last count images of seq into dir as
// PNG files named by sequence position. A count of zero or less renders
// the whole sequence.
func (r *Renderer) SaveOverview(dir string, seq imgseq.Sequence, count int) error {
	if seq == nil || seq.Len() == 0 {
		return fmt.Errorf("%w: nothing to render", imgseq.ErrEmptySequence)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create overview directory: %v", err)
	}

	for _, i := range overviewIndices(seq.Len(), count) {
		rendered, err := r.Render(seq.At(i))
		if err != nil {
			return err
		}

		filename := filepath.Join(dir, fmt.Sprintf("overview_%03d.png", i))
		if err := bildio.Save(filename, rendered, bildio.PNGEncoder()); err != nil {
			return fmt.Errorf("failed to save overview image: %v", err)
		}
	}

	return nil
}

// overviewIndices picks the first and last count positions, collapsing to
// the full range when the ends would overlap.
func overviewIndices(length, count int) []int {
	if count <= 0 || 2*count >= length {
		all := make([]int, length)
		for i := range all {
			all[i] = i
		}
		return all
	}
	idx := make([]int, 0, 2*count)
	for i := 0; i < count; i++ {
		idx = append(idx, i)
	}
	for i := length - count; i < length; i++ {
		idx = append(idx, i)
	}
	return idx
}
