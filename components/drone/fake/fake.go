// Package fake implements a fake drone.
package fake

import (
	"context"
	"sync"

	"go.viam.com/dronechase/components/drone"
)

// Drone is a fake drone that records what it was asked to do. It takes off and lands
// instantly.
type Drone struct {
	mu sync.Mutex

	flying  bool
	battery int

	TakeOffCount int
	LandCount    int
	CloseCount   int
	Commands     []drone.RCCommand

	// Errors returned by the corresponding methods when set.
	TakeOffErr error
	LandErr    error
	SendRCErr  error
	FlyingErr  error
	BatteryErr error
}

// NewDrone returns a landed fake drone with a full battery.
func NewDrone() *Drone {
	return &Drone{battery: 100}
}

// NewFlyingDrone returns a fake drone that is already airborne, for playing without hardware.
func NewFlyingDrone() *Drone {
	return &Drone{battery: 100, flying: true}
}

// TakeOff marks the drone as flying.
func (d *Drone) TakeOff(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.TakeOffCount++
	if d.TakeOffErr != nil {
		return d.TakeOffErr
	}
	d.flying = true
	return nil
}

// Land marks the drone as landed.
func (d *Drone) Land(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.LandCount++
	if d.LandErr != nil {
		return d.LandErr
	}
	d.flying = false
	return nil
}

// SendRC records the clamped command.
func (d *Drone) SendRC(ctx context.Context, cmd drone.RCCommand) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.SendRCErr != nil {
		return d.SendRCErr
	}
	d.Commands = append(d.Commands, cmd.Clamp())
	return nil
}

// LastCommand returns the most recent command, or a centered one.
func (d *Drone) LastCommand() drone.RCCommand {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.Commands) == 0 {
		return drone.RCCommand{}
	}
	return d.Commands[len(d.Commands)-1]
}

// Flying returns whether the drone took off and did not land since.
func (d *Drone) Flying(ctx context.Context) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FlyingErr != nil {
		return false, d.FlyingErr
	}
	return d.flying, nil
}

// Battery returns the configured battery charge.
func (d *Drone) Battery(ctx context.Context) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.BatteryErr != nil {
		return 0, d.BatteryErr
	}
	return d.battery, nil
}

// SetBattery sets the charge Battery reports.
func (d *Drone) SetBattery(percent int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.battery = percent
}

// Close does nothing.
func (d *Drone) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.CloseCount++
	return nil
}
