// Package rimage contains the frame helpers the game draws and processes video with.
package rimage

import (
	"image"
	"image/color"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	regular *truetype.Font

	facesMu sync.Mutex
	faces   = map[float64]font.Face{}
)

// init sets up the fonts we want to use.
func init() {
	var err error
	regular, err = truetype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
}

// Face returns the face of the regular font at size points. Faces are built once per size and
// shared, so drawing with them is confined to one goroutine at a time.
func Face(size float64) font.Face {
	facesMu.Lock()
	defer facesMu.Unlock()
	face, ok := faces[size]
	if !ok {
		face = truetype.NewFace(regular, &truetype.Options{Size: size})
		faces[size] = face
	}
	return face
}

func drawString(dc *gg.Context, text string, p image.Point, c color.Color) {
	dc.SetColor(c)
	dc.DrawStringWrapped(text, float64(p.X), float64(p.Y), 0, 0, float64(dc.Width()), 1, 0)
}

// DrawStringOutlined writes a string with a dark outline so it stays readable on a bright
// video frame.
func DrawStringOutlined(dc *gg.Context, text string, p image.Point, c color.Color, size float64) {
	const outline = 1
	shadow := color.RGBA{0, 0, 0, 0xc0}
	dc.SetFontFace(Face(size))
	for dy := -outline; dy <= outline; dy++ {
		for dx := -outline; dx <= outline; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			drawString(dc, text, p.Add(image.Point{dx, dy}), shadow)
		}
	}
	drawString(dc, text, p, c)
}

// DrawFilledCircle draws a filled circle centered at (x, y).
func DrawFilledCircle(dc *gg.Context, x, y, radius float64, c color.Color) {
	dc.SetColor(c)
	dc.DrawCircle(x, y, radius)
	dc.Fill()
}

// DrawCrosshair marks the center of the context, where the drone's camera points.
func DrawCrosshair(dc *gg.Context, size float64, c color.Color) {
	cx, cy := float64(dc.Width())/2, float64(dc.Height())/2
	dc.SetColor(c)
	dc.SetLineWidth(1)
	dc.DrawLine(cx-size, cy, cx+size, cy)
	dc.Stroke()
	dc.DrawLine(cx, cy-size, cx, cy+size)
	dc.Stroke()
}
