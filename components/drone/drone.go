// Package drone defines the flight controller the game steers.
package drone

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/dronechase/utils"
)

// MaxRC is the largest magnitude of a single RC channel.
const MaxRC = 100

// ErrNoFlightData is returned by Battery before the drone has reported any telemetry.
var ErrNoFlightData = errors.New("no flight data received yet")

// RCCommand holds the four stick channels sent to the drone on every tick, each in
// [-MaxRC, MaxRC]. Positive values move right, up, forward and clockwise.
type RCCommand struct {
	Lateral  int
	Vertical int
	Forward  int
	Yaw      int
}

// Clamp returns the command with every channel limited to [-MaxRC, MaxRC].
func (c RCCommand) Clamp() RCCommand {
	return RCCommand{
		Lateral:  utils.Clamp(c.Lateral, -MaxRC, MaxRC),
		Vertical: utils.Clamp(c.Vertical, -MaxRC, MaxRC),
		Forward:  utils.Clamp(c.Forward, -MaxRC, MaxRC),
		Yaw:      utils.Clamp(c.Yaw, -MaxRC, MaxRC),
	}
}

// IsZero returns whether every channel is centered.
func (c RCCommand) IsZero() bool {
	return c == RCCommand{}
}

// A Drone is a flying camera that takes stick commands.
type Drone interface {
	// TakeOff starts the takeoff sequence.
	TakeOff(ctx context.Context) error

	// Land starts the landing sequence.
	Land(ctx context.Context) error

	// SendRC sets all four stick channels at once.
	SendRC(ctx context.Context, cmd RCCommand) error

	// Flying returns whether the drone reports itself airborne.
	Flying(ctx context.Context) (bool, error)

	// Battery returns the last reported battery charge in percent.
	Battery(ctx context.Context) (int, error)

	Close(ctx context.Context) error
}

// LandIfFlying lands d when it reports itself airborne. Every path that stops the game goes
// through here before closing the drone.
func LandIfFlying(ctx context.Context, d Drone) error {
	flying, err := d.Flying(ctx)
	if err != nil {
		// unknown state, try to land anyway
		return multierr.Combine(err, d.Land(ctx))
	}
	if !flying {
		return nil
	}
	return d.Land(ctx)
}
