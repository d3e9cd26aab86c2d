// region.go — software crop of a RawFrame when the active backend can't
// crop in hardware (spec §4.1 "Region capture").
package capture

import (
	"image"

	"github.com/disintegration/imaging"
)

// Crop returns a new RawFrame containing only the pixels inside region. If
// region is nil, frame is returned unchanged.
func Crop(frame RawFrame, region *Region) RawFrame {
	if region == nil {
		return frame
	}

	src := frameToImage(frame)
	bounds := image.Rect(region.X, region.Y, region.X+region.Width, region.Y+region.Height).Intersect(src.Bounds())
	if bounds.Empty() {
		return frame
	}

	cropped := imaging.Crop(src, bounds)
	rgba := imaging.Clone(cropped) // normalizes to *image.NRGBA with a dense stride

	return RawFrame{
		Pix:                rgba.Pix,
		Width:              rgba.Bounds().Dx(),
		Height:              rgba.Bounds().Dy(),
		BGRA:               false,
		MonotonicCaptureNS: frame.MonotonicCaptureNS,
	}
}
