// Package fake implements a fake display that records frames and replays scripted key states.
package fake

import (
	"context"
	"image"
	"sync"

	"github.com/benbjohnson/clock"

	"go.viam.com/dronechase/components/input"
)

// Display is a fake display.
type Display struct {
	mu sync.Mutex

	clk    clock.Clock
	state  input.State
	polls  int
	frames []image.Image

	// OnPoll, when set, runs at the start of every Poll with the 0 based poll number, e.g. to
	// press keys at a given tick.
	OnPoll func(poll int, d *Display)
	// KeepFrames limits how many shown frames are retained, 0 keeps them all.
	KeepFrames int

	PollErr    error
	ShowErr    error
	CloseCount int
}

// NewDisplay returns a fake display stamping key events with clk.
func NewDisplay(clk clock.Clock) *Display {
	return &Display{clk: clk, state: input.State{}}
}

// Press marks c as held down. Press and Release are meant to be called from OnPoll or
// between polls, never concurrently with Poll.
func (d *Display) Press(c input.Control) {
	d.set(c, input.ButtonPress)
}

// Release marks c as released.
func (d *Display) Release(c input.Control) {
	d.set(c, input.ButtonRelease)
}

// Tap presses c for exactly the next poll.
func (d *Display) Tap(c input.Control) {
	d.Press(c)
	prev := d.OnPoll
	fired := false
	d.OnPoll = func(poll int, d *Display) {
		if prev != nil {
			prev(poll, d)
		}
		if fired {
			d.Release(c)
			d.OnPoll = prev
			return
		}
		fired = true
	}
}

func (d *Display) set(c input.Control, ev input.EventType) {
	d.state[c] = input.Event{Time: d.clk.Now(), Event: ev, Control: c}
}

// Poll returns the scripted key state.
func (d *Display) Poll(ctx context.Context) (input.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.OnPoll != nil {
		d.OnPoll(d.polls, d)
	}
	d.polls++
	if d.PollErr != nil {
		return nil, d.PollErr
	}
	out := make(input.State, len(d.state))
	for c, ev := range d.state {
		out[c] = ev
	}
	return out, nil
}

// Show records img.
func (d *Display) Show(ctx context.Context, img image.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ShowErr != nil {
		return d.ShowErr
	}
	d.frames = append(d.frames, img)
	if d.KeepFrames > 0 && len(d.frames) > d.KeepFrames {
		d.frames = d.frames[len(d.frames)-d.KeepFrames:]
	}
	return nil
}

// Frames returns the recorded frames, oldest first.
func (d *Display) Frames() []image.Image {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]image.Image(nil), d.frames...)
}

// Polls returns how many times Poll was called.
func (d *Display) Polls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.polls
}

// Close counts the call.
func (d *Display) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.CloseCount++
	return nil
}
