package game

import (
	"fmt"
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/golang/geo/r3"

	"go.viam.com/dronechase/game/target"
	"go.viam.com/dronechase/rimage"
	"go.viam.com/dronechase/vision/keypoints"
	"go.viam.com/dronechase/vision/odometry"
)

const hudFontSize = 28

var (
	distanceColor  = color.RGBA{0, 0, 250, 255}
	scoreColor     = color.RGBA{0, 250, 0, 255}
	statusColor    = color.RGBA{250, 250, 250, 255}
	matchColor     = color.RGBA{255, 200, 0, 255}
	crosshairColor = color.RGBA{255, 255, 255, 160}
)

// HUD holds the figures drawn over the video.
type HUD struct {
	// Target is the target position relative to the drone, nil before the first target.
	Target *r3.Vector
	Flying bool
	Score  int
	// Battery is in percent, negative when unknown.
	Battery int
	FPS     float64
}

// Compose draws the target, the matched keypoints of est when given and the HUD over a copy of
// frame.
func Compose(frame image.Image, proj *target.Projection, hud HUD, est *odometry.Estimate) image.Image {
	if est != nil && est.OK {
		frame = keypoints.PlotMatchedLines(frame, est.Prev, est.Curr, matchColor)
	}
	dc := gg.NewContextForImage(frame)
	rimage.DrawCrosshair(dc, 10, crosshairColor)
	if proj != nil {
		rimage.DrawFilledCircle(dc, proj.Center.X, proj.Center.Y, proj.PixelRadius, proj.Color)
	}

	switch {
	case hud.Target != nil:
		p := *hud.Target
		zUp := upDistance(p.Z)
		rimage.DrawStringOutlined(dc, fmt.Sprintf("X - distance: %.2f", p.X), image.Pt(10, 10), distanceColor, hudFontSize)
		rimage.DrawStringOutlined(dc, fmt.Sprintf("Y - distance: %.2f", p.Y), image.Pt(10, 45), distanceColor, hudFontSize)
		rimage.DrawStringOutlined(dc, fmt.Sprintf("Z - distance: %.2f", zUp), image.Pt(10, 80), distanceColor, hudFontSize)
	case hud.Flying:
		rimage.DrawStringOutlined(dc, "Stabilizing...", image.Pt(10, 10), statusColor, hudFontSize)
	default:
		rimage.DrawStringOutlined(dc, "Press e to take off", image.Pt(10, 10), statusColor, hudFontSize)
	}

	right := dc.Width() - 170
	rimage.DrawStringOutlined(dc, fmt.Sprintf("Score: %d", hud.Score), image.Pt(right, 10), scoreColor, hudFontSize)
	battery := "Battery: --"
	if hud.Battery >= 0 {
		battery = fmt.Sprintf("Battery: %d%%", hud.Battery)
	}
	rimage.DrawStringOutlined(dc, battery, image.Pt(right, 45), statusColor, hudFontSize)
	rimage.DrawStringOutlined(dc, fmt.Sprintf("FPS: %.0f", hud.FPS), image.Pt(right, 80), statusColor, hudFontSize)
	return dc.Image()
}

// upDistance flips z so that screen up is positive for the player. 0 - z keeps a level target at
// 0.00 instead of -0.00.
func upDistance(z float64) float64 {
	return 0 - z
}
