package rimage

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// Orientation describes how a raw frame must be turned to be upright.
type Orientation struct {
	// Rotate is a clockwise rotation in degrees, a multiple of 90.
	Rotate int
	// Mirror flips the frame horizontally after rotating it.
	Mirror bool
}

// Validate ensures the orientation is one we can apply.
func (o Orientation) Validate() error {
	switch o.Rotate {
	case 0, 90, 180, 270:
		return nil
	default:
		return errors.Errorf("rotation must be one of 0, 90, 180 or 270, got %d", o.Rotate)
	}
}

// IsIdentity returns whether applying the orientation leaves frames unchanged.
func (o Orientation) IsIdentity() bool {
	return o.Rotate == 0 && !o.Mirror
}

// Apply returns img oriented upright. img itself is returned when nothing needs to change.
func (o Orientation) Apply(img image.Image) image.Image {
	if o.IsIdentity() {
		return img
	}
	var out image.Image = img
	// imaging rotates counter-clockwise
	switch o.Rotate {
	case 90:
		out = imaging.Rotate270(out)
	case 180:
		out = imaging.Rotate180(out)
	case 270:
		out = imaging.Rotate90(out)
	}
	if o.Mirror {
		out = imaging.FlipH(out)
	}
	return out
}

// Fit resizes img to exactly width x height when it differs, cropping to keep the aspect ratio.
func Fit(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return img
	}
	return imaging.Fill(img, width, height, imaging.Center, imaging.Linear)
}
