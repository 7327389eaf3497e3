package target

import (
	"image/color"
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"go.viam.com/dronechase/utils"
)

// Default screen size of a Tello frame once it has been oriented.
const (
	DefaultScreenWidth  = 960
	DefaultScreenHeight = 720
)

// The Tello camera's horizontal field of view covers (slope*y + intercept) cm at a forward
// distance of y cm. Measured against a tape ruler at several distances.
const (
	viewWidthSlope     = 1.04743
	viewWidthIntercept = 0.334229
)

// PixelsPerCm returns how many screen pixels one centimeter spans at forward distance y.
// The result is only meaningful while the denominator is positive, see ClampForward.
func PixelsPerCm(y float64, screenWidth int) float64 {
	return float64(screenWidth) / (viewWidthSlope*y + viewWidthIntercept)
}

// ClampForward raises y to minY so that PixelsPerCm never divides by zero or flips sign.
func ClampForward(y, minY float64) float64 {
	return math.Max(y, minY)
}

// YawCompensation selects how a yaw turn of the drone is reflected on the target. A target
// applies exactly one of them.
type YawCompensation string

const (
	// YawVisual accumulates a horizontal pixel offset at projection time. The stored position
	// is untouched, so the correction drifts over many turns.
	YawVisual = YawCompensation("visual")
	// YawGeometric re-expresses the world-fixed target in drone coordinates on every update by
	// moving it along the chord of the turn arc.
	YawGeometric = YawCompensation("geometric")
)

// ParseYawCompensation validates a configured compensation name. Empty means YawVisual.
func ParseYawCompensation(s string) (YawCompensation, error) {
	switch YawCompensation(s) {
	case "", YawVisual:
		return YawVisual, nil
	case YawGeometric:
		return YawGeometric, nil
	default:
		return "", errors.Errorf("unknown yaw compensation %q, expected %q or %q", s, YawVisual, YawGeometric)
	}
}

// Projection is where and how large a target is drawn on screen.
type Projection struct {
	Center      r2.Point
	PixelRadius float64
	Color       color.RGBA
}

// turnChord returns the lateral chord and forward segment a world-fixed point at forward
// distance y sweeps through when the drone yaws by turnDeg. A point behind the drone stays
// behind it.
func turnChord(y, turnDeg float64) (chord, segment float64) {
	chord = 2 * y * math.Sin(utils.DegToRad(turnDeg)/2)
	segment = y - math.Copysign(math.Sqrt(utils.Square(y)-utils.Square(chord/2)), y)
	return chord, segment
}

// yawVisualShift returns the horizontal pixel offset added to the visual adjustment for one turn.
func yawVisualShift(y, pxPerCm, turnDeg float64) float64 {
	return y * pxPerCm * (math.Cos(utils.DegToRad(turnDeg)) - 1)
}
