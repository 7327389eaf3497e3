package keypoints

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"
)

// PlotKeypoints draws keypoints on a copy of img.
func PlotKeypoints(img image.Image, kps KeyPoints) image.Image {
	dc := gg.NewContextForImage(img)

	// draw keypoints on image
	dc.SetRGBA(0, 0, 1, 0.5)
	for _, p := range kps {
		dc.DrawCircle(p.X, p.Y, 3.0)
		dc.Fill()
	}
	return dc.Image()
}

// PlotMatchedLines draws a line from every previous keypoint to its matched current keypoint on
// a copy of img, which is expected to be the current frame.
func PlotMatchedLines(img image.Image, prev, curr KeyPoints, c color.Color) image.Image {
	dc := gg.NewContextForImage(img)
	dc.SetColor(c)
	dc.SetLineWidth(2)
	for i := 0; i < len(prev) && i < len(curr); i++ {
		dc.DrawLine(prev[i].X, prev[i].Y, curr[i].X, curr[i].Y)
		dc.Stroke()
		dc.DrawCircle(curr[i].X, curr[i].Y, 2)
		dc.Fill()
	}
	return dc.Image()
}
