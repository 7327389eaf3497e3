package game

import (
	"time"

	"go.viam.com/dronechase/components/drone"
	"go.viam.com/dronechase/components/input"
	"go.viam.com/dronechase/game/target"
	"go.viam.com/dronechase/utils"
	"go.viam.com/dronechase/vision/odometry"
)

const fpsSamples = 30

// Session is the state of one game. It is owned by the loop and handed to every Tick.
type Session struct {
	// Target is nil until the drone has been airborne for the stabilize delay.
	Target *target.Target
	// Motion is measured drone motion the target has not followed yet.
	Motion Accumulator

	Flying        bool
	AirborneSince time.Time
	// Battery is the last known charge in percent, -1 when unknown.
	Battery int

	Command      drone.RCCommand
	LastEstimate odometry.Estimate
	Ticks        int

	keys       input.State
	frameTimes *utils.RollingAverage
	batteryAt  time.Time
}

// NewSession returns the state of a game that has not started.
func NewSession() *Session {
	return &Session{
		Battery:    -1,
		keys:       input.State{},
		frameTimes: utils.NewRollingAverage(fpsSamples),
	}
}

// Score returns the number of captured targets.
func (s *Session) Score() int {
	if s.Target == nil {
		return 0
	}
	return s.Target.Score()
}

// FPS returns the measured tick rate.
func (s *Session) FPS() float64 {
	return s.frameTimes.Rate()
}

// HUD returns the figures to draw for the current state.
func (s *Session) HUD() HUD {
	hud := HUD{
		Flying:  s.Flying,
		Score:   s.Score(),
		Battery: s.Battery,
		FPS:     s.FPS(),
	}
	if s.Target != nil {
		p := s.Target.Position()
		hud.Target = &p
	}
	return hud
}
