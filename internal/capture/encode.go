// encode.go — the external encoder boundary: takes a RawFrame and a format/
// quality pair and produces EncodedFrame bytes. Treated as a black box per
// spec §1 ("screenshot encoding libraries... out of scope"); this file is
// the narrow adapter the rest of the system calls through.
package capture

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"time"

	"github.com/brennhill/screencap-mcp/internal/rcache"
)

// Format is the set of encode targets the dispatcher accepts.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
)

func (f Format) Mime() string {
	if f == FormatJPEG {
		return "image/jpeg"
	}
	return "image/png"
}

// Encoder turns a RawFrame into bytes. Implementations must be safe to call
// from multiple goroutines (each stream session's producer goroutine calls
// it, concurrently across sessions).
type Encoder interface {
	Encode(frame RawFrame, format Format, quality int) (rcache.EncodedFrame, time.Duration, error)
}

// stdEncoder wraps the standard library's image/png and image/jpeg codecs.
type stdEncoder struct{}

// NewEncoder returns the default Encoder.
func NewEncoder() Encoder { return stdEncoder{} }

func (stdEncoder) Encode(frame RawFrame, format Format, quality int) (rcache.EncodedFrame, time.Duration, error) {
	start := time.Now()
	img := frameToImage(frame)

	var buf bytes.Buffer
	var err error
	switch format {
	case FormatJPEG:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: clampQuality(quality)})
	default:
		err = png.Encode(&buf, img)
	}
	elapsed := time.Since(start)
	if err != nil {
		return rcache.EncodedFrame{}, elapsed, &CaptureError{Kind: Transient, Source: "encoder", Err: err}
	}

	return rcache.EncodedFrame{
		Bytes: buf.Bytes(),
		Mime:  format.Mime(),
		Metadata: map[string]any{
			"width":              frame.Width,
			"height":             frame.Height,
			"quality":            quality,
			"format":             string(format),
			"monotonic_capture_ns": frame.MonotonicCaptureNS,
		},
	}, elapsed, nil
}

func clampQuality(q int) int {
	if q < 1 {
		return 1
	}
	if q > 100 {
		return 100
	}
	return q
}

// frameToImage wraps a RawFrame's pixel buffer in an image.Image without
// copying. BGRA buffers are presented via a small adapter since the
// standard library only natively understands RGBA.
func frameToImage(f RawFrame) image.Image {
	rect := image.Rect(0, 0, f.Width, f.Height)
	if f.BGRA {
		return &bgraImage{pix: f.Pix, rect: rect, stride: f.Width * 4}
	}
	return &image.RGBA{Pix: f.Pix, Stride: f.Width * 4, Rect: rect}
}

// bgraImage adapts a BGRA byte buffer (as produced by GPU desktop-duplication
// backends) to image.Image without a full channel-swizzle copy up front;
// swizzling happens lazily per pixel in At().
type bgraImage struct {
	pix    []byte
	rect   image.Rectangle
	stride int
}

func (b *bgraImage) ColorModel() color.Model { return color.RGBAModel }

func (b *bgraImage) Bounds() image.Rectangle { return b.rect }

func (b *bgraImage) At(x, y int) color.Color {
	i := (y-b.rect.Min.Y)*b.stride + (x-b.rect.Min.X)*4
	if i < 0 || i+3 >= len(b.pix) {
		return color.RGBA{}
	}
	blue, green, red, alpha := b.pix[i], b.pix[i+1], b.pix[i+2], b.pix[i+3]
	return color.RGBA{R: red, G: green, B: blue, A: alpha}
}
