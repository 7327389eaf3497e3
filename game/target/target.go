// Package target implements the virtual target a player chases with the drone.
//
// A Target lives in drone-relative coordinates: x is lateral, y is forward distance and z is
// vertical, all in centimeters. The game loop moves it opposite to the drone's own motion and
// asks it where to draw itself on the video frame.
package target

import (
	"image/color"
	"math"
	"math/rand"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"

	"go.viam.com/dronechase/utils"
)

// Config describes how targets spawn, how close the drone must get to capture one and how they
// are drawn.
type Config struct {
	YMinCm                  int
	YMaxCm                  int
	CaptureThresholdCm      float64
	CaptureRadiusCm         float64
	MinPixelRadius          float64
	MinProjectionDistanceCm float64
	YawCompensation         YawCompensation
	ScreenWidth             int
	ScreenHeight            int
}

// DefaultConfig returns the configuration the game ships with.
func DefaultConfig() Config {
	return Config{
		YMinCm:                  10,
		YMaxCm:                  60,
		CaptureThresholdCm:      15,
		CaptureRadiusCm:         2,
		MinPixelRadius:          8,
		MinProjectionDistanceCm: 1,
		YawCompensation:         YawVisual,
		ScreenWidth:             DefaultScreenWidth,
		ScreenHeight:            DefaultScreenHeight,
	}
}

// Validate ensures all parts of the config are valid.
func (cfg Config) Validate() error {
	if cfg.YMinCm <= 0 {
		return errors.Errorf("minimum spawn distance must be positive, got %d", cfg.YMinCm)
	}
	if cfg.YMinCm > cfg.YMaxCm {
		return errors.Errorf("minimum spawn distance %d exceeds maximum %d", cfg.YMinCm, cfg.YMaxCm)
	}
	if cfg.CaptureThresholdCm <= 0 {
		return errors.New("capture threshold must be positive")
	}
	if float64(cfg.YMaxCm) < cfg.CaptureThresholdCm {
		return errors.Errorf("maximum spawn distance %d is within the capture threshold %v", cfg.YMaxCm, cfg.CaptureThresholdCm)
	}
	if cfg.MinProjectionDistanceCm <= 0 {
		return errors.New("minimum projection distance must be positive")
	}
	if cfg.ScreenWidth <= 0 || cfg.ScreenHeight <= 0 {
		return errors.Errorf("invalid screen size %dx%d", cfg.ScreenWidth, cfg.ScreenHeight)
	}
	if _, err := ParseYawCompensation(string(cfg.YawCompensation)); err != nil {
		return err
	}
	return nil
}

// A Target is a sphere placed relative to the drone. It is created once per session and then
// relocated in place every time it is captured.
type Target struct {
	cfg Config
	rng *rand.Rand

	position    r3.Vector
	xMax, zMax  int
	pixelRadius float64
	color       color.RGBA
	score       int

	yawVisualAdjustment float64
}

// New returns a target at a random position within the configured spawn bounds. rng supplies
// every random draw the target makes for the rest of its life.
func New(cfg Config, rng *rand.Rand) (*Target, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.YawCompensation == "" {
		cfg.YawCompensation = YawVisual
	}
	t := &Target{cfg: cfg, rng: rng}
	t.relocate()
	return t, nil
}

// maxSpawnDraws bounds the redraws of a position that fell inside the capture box. Past it the
// target spawns at YMaxCm, which Validate keeps outside the box.
const maxSpawnDraws = 100

// relocate draws a new position and color. Positions inside the capture box are redrawn, so a
// target never spawns already captured.
func (t *Target) relocate() {
	t.place(utils.SampleRandomIntRange(t.cfg.YMinCm, t.cfg.YMaxCm, t.rng))
	for draws := 1; t.withinCapture(); draws++ {
		y := t.cfg.YMaxCm
		if draws < maxSpawnDraws {
			y = utils.SampleRandomIntRange(t.cfg.YMinCm, t.cfg.YMaxCm, t.rng)
		}
		t.place(y)
	}
	t.color = randomColor(t.rng)
	t.pixelRadius = t.radiusAt(t.position.Y)
}

// place puts the target at forward distance y and draws x and z within the bounds that keep it
// on screen at that distance.
func (t *Target) place(y int) {
	scale := PixelsPerCm(float64(y), t.cfg.ScreenWidth)
	t.xMax = int(math.Floor(float64(t.cfg.ScreenWidth) / 2 / scale))
	t.zMax = int(math.Floor(float64(t.cfg.ScreenHeight) / 2 / scale))

	x := utils.SampleRandomIntRange(-t.xMax, t.xMax, t.rng)
	z := utils.SampleRandomIntRange(-t.zMax, t.zMax, t.rng)
	t.position = r3.Vector{X: float64(x), Y: float64(y), Z: float64(z)}
}

// randomColor picks a saturated, bright color so the target stands out from the video feed.
func randomColor(rng *rand.Rand) color.RGBA {
	c := colorful.Hsv(rng.Float64()*360, 0.6+0.4*rng.Float64(), 0.7+0.3*rng.Float64())
	r, g, b := c.Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

func (t *Target) pixelsPerCm(y float64) float64 {
	return PixelsPerCm(ClampForward(y, t.cfg.MinProjectionDistanceCm), t.cfg.ScreenWidth)
}

func (t *Target) radiusAt(y float64) float64 {
	return math.Max(t.pixelsPerCm(y)*t.cfg.CaptureRadiusCm, t.cfg.MinPixelRadius)
}

// Update moves the target by d and, when the geometric yaw strategy is configured, re-expresses
// it relative to a drone that has turned by turnDeg. It reports whether the target was captured,
// in which case the score went up by one and the target has already been relocated.
func (t *Target) Update(d r3.Vector, turnDeg float64) bool {
	t.position = t.position.Add(d)
	if t.cfg.YawCompensation == YawGeometric && turnDeg != 0 {
		chord, segment := turnChord(t.position.Y, turnDeg)
		t.position.X -= chord
		t.position.Y -= segment
	}
	t.pixelRadius = t.radiusAt(t.position.Y)

	if !t.withinCapture() {
		return false
	}
	t.score++
	t.relocate()
	return true
}

// withinCapture is strict on every axis: a target exactly at the threshold is not captured.
func (t *Target) withinCapture() bool {
	th := t.cfg.CaptureThresholdCm
	return math.Abs(t.position.X) < th &&
		math.Abs(t.position.Y) < th &&
		math.Abs(t.position.Z) < th
}

// Project maps the target onto the screen. With the visual yaw strategy, turnDeg is folded into
// a horizontal offset that persists across frames.
func (t *Target) Project(turnDeg float64) Projection {
	y := ClampForward(t.position.Y, t.cfg.MinProjectionDistanceCm)
	scale := PixelsPerCm(y, t.cfg.ScreenWidth)
	if t.cfg.YawCompensation == YawVisual && turnDeg != 0 {
		t.yawVisualAdjustment += yawVisualShift(y, scale, turnDeg)
	}
	return Projection{
		Center: r2.Point{
			X: scale*t.position.X + t.yawVisualAdjustment + float64(t.cfg.ScreenWidth)/2,
			Y: scale*t.position.Z + float64(t.cfg.ScreenHeight)/2,
		},
		PixelRadius: t.pixelRadius,
		Color:       t.color,
	}
}

// Position returns the drone-relative position in centimeters.
func (t *Target) Position() r3.Vector {
	return t.position
}

// Bounds returns the lateral and vertical spawn bounds derived at the last relocation.
func (t *Target) Bounds() (xMax, zMax int) {
	return t.xMax, t.zMax
}

// Score returns the number of captures so far.
func (t *Target) Score() int {
	return t.score
}

// Color returns the current fill color.
func (t *Target) Color() color.RGBA {
	return t.color
}

// PixelRadius returns the radius the target was last drawn with.
func (t *Target) PixelRadius() float64 {
	return t.pixelRadius
}

// Config returns the configuration the target was built with.
func (t *Target) Config() Config {
	return t.cfg
}
