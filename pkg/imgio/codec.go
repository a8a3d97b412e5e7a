package imgio

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"pvimage/pkg/imgseq"
)

// Rec. 709 luminance weights used to collapse color inputs to grayscale.
const (
	lumR = 0.2125
	lumG = 0.7154
	lumB = 0.0721
)

// Decode reads an image file into a pixel buffer. Grayscale files keep
// their native sample type: 8-bit files decode to uint8 samples and
// 16-bit files to uint16 samples, already in native byte order. Color
// files are collapsed to float64 luminance in [0, 1].
//
// PNG, TIFF, BMP and JPEG are supported; the formats register themselves
// through the codec imports.
func Decode(path string) (*imgseq.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return bufferFromImage(img)
}

func bufferFromImage(img image.Image) (*imgseq.Buffer, error) {
	bounds := img.Bounds()
	rows, cols := bounds.Dy(), bounds.Dx()
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("decoded image is empty")
	}

	switch im := img.(type) {
	case *image.Gray:
		pix := make([]uint8, rows*cols)
		for y := 0; y < rows; y++ {
			for x := 0; x < cols; x++ {
				pix[y*cols+x] = im.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y
			}
		}
		return imgseq.NewUint8Buffer(rows, cols, pix)
	case *image.Gray16:
		// Gray16At assembles the stored big-endian bytes into native
		// uint16 samples.
		pix := make([]uint16, rows*cols)
		for y := 0; y < rows; y++ {
			for x := 0; x < cols; x++ {
				pix[y*cols+x] = im.Gray16At(bounds.Min.X+x, bounds.Min.Y+y).Y
			}
		}
		return imgseq.NewUint16Buffer(rows, cols, pix)
	case *image.Paletted:
		// BMP stores 8-bit grayscale as an indexed image with a gray
		// palette; treat it as grayscale data rather than color.
		if grayPalette(im) {
			pix := make([]uint8, rows*cols)
			for y := 0; y < rows; y++ {
				for x := 0; x < cols; x++ {
					r, _, _, _ := im.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
					pix[y*cols+x] = uint8(r >> 8)
				}
			}
			return imgseq.NewUint8Buffer(rows, cols, pix)
		}
		return luminanceBuffer(img, bounds, rows, cols)
	default:
		return luminanceBuffer(img, bounds, rows, cols)
	}
}

func grayPalette(im *image.Paletted) bool {
	for _, c := range im.Palette {
		r, g, b, _ := c.RGBA()
		if r != g || g != b {
			return false
		}
	}
	return true
}

func luminanceBuffer(img image.Image, bounds image.Rectangle, rows, cols int) (*imgseq.Buffer, error) {
	pix := make([]float64, rows*cols)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			lum := lumR*float64(r) + lumG*float64(g) + lumB*float64(b)
			pix[y*cols+x] = lum / 65535.0
		}
	}
	return imgseq.NewFloat64Buffer(rows, cols, pix)
}

// Encode writes a pixel buffer to an image file, choosing the format by
// extension. PNG and TIFF are written as 16-bit grayscale; BMP and JPEG
// only carry 8 bits and narrow the samples accordingly. Float samples
// are quantized to the integer range first.
func Encode(path string, buf *imgseq.Buffer) error {
	if buf == nil {
		return fmt.Errorf("image data must not be nil")
	}

	var img image.Image
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".png", ".tif", ".tiff":
		img = toGray16(buf)
	case ".bmp", ".jpg", ".jpeg":
		img = toGray8(buf)
	default:
		return fmt.Errorf("unsupported image format %q", ext)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	switch ext {
	case ".png":
		err = png.Encode(f, img)
	case ".tif", ".tiff":
		err = tiff.Encode(f, img, nil)
	case ".bmp":
		err = bmp.Encode(f, img)
	default:
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: 90})
	}
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return nil
}

func toGray16(buf *imgseq.Buffer) *image.Gray16 {
	u16 := buf.Convert(imgseq.DTypeUint16)
	img := image.NewGray16(image.Rect(0, 0, u16.Cols(), u16.Rows()))
	pix, _ := u16.Uint16Pixels()
	for y := 0; y < u16.Rows(); y++ {
		for x := 0; x < u16.Cols(); x++ {
			img.SetGray16(x, y, color.Gray16{Y: pix[y*u16.Cols()+x]})
		}
	}
	return img
}

func toGray8(buf *imgseq.Buffer) *image.Gray {
	u8 := buf.Convert(imgseq.DTypeUint8)
	img := image.NewGray(image.Rect(0, 0, u8.Cols(), u8.Rows()))
	pix, _ := u8.Uint8Pixels()
	for y := 0; y < u8.Rows(); y++ {
		for x := 0; x < u8.Cols(); x++ {
			img.SetGray(x, y, color.Gray{Y: pix[y*u8.Cols()+x]})
		}
	}
	return img
}
