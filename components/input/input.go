// Package input provides the keyboard controls the player flies the drone with.
package input

import (
	"context"
	"time"
)

// EventType represents the type of input event.
type EventType string

// EventType list.
const (
	// Typical key press.
	ButtonPress EventType = "ButtonPress"
	// Key release.
	ButtonRelease EventType = "ButtonRelease"
)

// Control identifies a key of the game.
type Control string

// Controls of the game.
const (
	KeyLeft       Control = "Left"
	KeyRight      Control = "Right"
	KeyForward    Control = "Forward"
	KeyBackward   Control = "Backward"
	KeyUp         Control = "Up"
	KeyDown       Control = "Down"
	KeyYawLeft    Control = "YawLeft"
	KeyYawRight   Control = "YawRight"
	KeyTakeOff    Control = "TakeOff"
	KeyLand       Control = "Land"
	KeyScreenshot Control = "Screenshot"
	KeyBattery    Control = "Battery"
	KeyQuit       Control = "Quit"
)

// Event is the latest state change of a control.
type Event struct {
	Time    time.Time
	Event   EventType
	Control Control
}

// State maps every control that changed at least once to its latest event.
type State map[Control]Event

// Pressed returns whether c is currently held down.
func (s State) Pressed(c Control) bool {
	ev, ok := s[c]
	return ok && ev.Event == ButtonPress
}

// JustPressed returns whether c is down now and was not the same press in prev, for actions
// that fire once per key press.
func (s State) JustPressed(prev State, c Control) bool {
	if !s.Pressed(c) {
		return false
	}
	return !prev.Pressed(c) || !prev[c].Time.Equal(s[c].Time)
}

// Controller is a source of control state that must be polled once per game tick.
type Controller interface {
	// Poll processes pending input and returns the state of every control.
	Poll(ctx context.Context) (State, error)
}
