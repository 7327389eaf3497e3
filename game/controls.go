package game

import (
	"time"

	"github.com/golang/geo/r3"

	"go.viam.com/dronechase/components/drone"
	"go.viam.com/dronechase/components/input"
	"go.viam.com/dronechase/config"
	"go.viam.com/dronechase/utils"
	"go.viam.com/dronechase/vision/odometry"
)

// maxTickScale bounds how many nominal ticks of velocity one slow tick may apply.
const maxTickScale = 3

// axis returns speed when pos is held, -speed when only neg is held and 0 otherwise.
func axis(keys input.State, pos, neg input.Control, speed int) int {
	switch {
	case keys.Pressed(pos):
		return speed
	case keys.Pressed(neg):
		return -speed
	default:
		return 0
	}
}

// Velocities returns the stick command for the held keys. Opposite keys do not cancel, the
// right, forward, up and clockwise keys win.
func Velocities(keys input.State, cfg config.ControlsConfig) drone.RCCommand {
	return drone.RCCommand{
		Lateral:  axis(keys, input.KeyRight, input.KeyLeft, cfg.Speed),
		Forward:  axis(keys, input.KeyForward, input.KeyBackward, cfg.Speed),
		Vertical: axis(keys, input.KeyUp, input.KeyDown, cfg.Speed),
		Yaw:      axis(keys, input.KeyYawRight, input.KeyYawLeft, cfg.YawSpeed),
	}.Clamp()
}

// MeasuredMotion converts an image displacement into the motion of the target relative to the
// drone, in cm. Image y grows downwards like the target's z.
func MeasuredMotion(d odometry.Displacement, pixelsPerCm float64) r3.Vector {
	return r3.Vector{X: d.DX / pixelsPerCm, Z: d.DY / pixelsPerCm}
}

// tickScale is the number of nominal ticks dt corresponds to.
func tickScale(dt, period time.Duration) float64 {
	if period <= 0 {
		return 1
	}
	return utils.Clamp(float64(dt)/float64(period), 0, maxTickScale)
}

// CommandedMotion returns the forward motion of the target, in cm, and the turn, in degrees,
// that cmd causes over dt. Flying forward brings the target closer.
func CommandedMotion(cmd drone.RCCommand, cfg config.ControlsConfig, dt, period time.Duration) (forward, turnDeg float64) {
	scale := tickScale(dt, period)
	forward = -float64(cmd.Forward) / cfg.ForwardDivisor * scale
	turnDeg = float64(cmd.Yaw) / cfg.YawDivisor * scale
	return forward, turnDeg
}
