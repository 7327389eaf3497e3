package input

import (
	"time"

	"github.com/benbjohnson/clock"
)

// DefaultKeyHold is how long a key counts as held after its last key event.
const DefaultKeyHold = 600 * time.Millisecond

// KeyCodes is the key code convention of an OpenCV window backend.
type KeyCodes int

const (
	// FullKeyCodes are untruncated codes: X11 keysyms for the arrows on GTK, possibly with
	// modifier bits above 0xffff. cv::waitKey returns them when OPENCV_LEGACY_WAITKEY is set.
	FullKeyCodes KeyCodes = iota
	// MaskedKeyCodes are the low byte of the full code, the cv::waitKey default. The arrows then
	// arrive as 81 to 84 and cannot be told apart from 'Q' to 'T'.
	MaskedKeyCodes
)

var (
	characterKeys = map[int]Control{
		'w': KeyUp,
		's': KeyDown,
		'a': KeyYawLeft,
		'd': KeyYawRight,
		'e': KeyTakeOff,
		'q': KeyLand,
		'p': KeyScreenshot,
		'i': KeyBattery,
		'W': KeyUp,
		'S': KeyDown,
		'A': KeyYawLeft,
		'D': KeyYawRight,
		'E': KeyTakeOff,
		'Q': KeyLand,
		'P': KeyScreenshot,
		'I': KeyBattery,
		27:  KeyQuit,
	}
	fullArrowKeys = map[int]Control{
		65361: KeyLeft,
		65362: KeyForward,
		65363: KeyRight,
		65364: KeyBackward,
	}
	maskedArrowKeys = map[int]Control{
		81: KeyLeft,
		82: KeyForward,
		83: KeyRight,
		84: KeyBackward,
	}
)

// Control maps a key code returned by gocv's WaitKey to a control.
func (k KeyCodes) Control(code int) (Control, bool) {
	if code < 0 {
		return "", false
	}
	arrows := fullArrowKeys
	if k == MaskedKeyCodes {
		code &= 0xff
		arrows = maskedArrowKeys
	} else {
		code &= 0xffff
	}
	if c, ok := arrows[code]; ok {
		return c, true
	}
	c, ok := characterKeys[code]
	return c, ok
}

// HoldTracker turns a stream of key events into held keys. Terminal and window toolkits only
// report key repeats, never releases, so a key is considered released once no event for it
// arrived within the hold window.
type HoldTracker struct {
	clk      clock.Clock
	hold     time.Duration
	lastSeen map[Control]time.Time
	state    State
}

// NewHoldTracker returns a HoldTracker releasing keys hold after their last event.
func NewHoldTracker(clk clock.Clock, hold time.Duration) *HoldTracker {
	if hold <= 0 {
		hold = DefaultKeyHold
	}
	return &HoldTracker{
		clk:      clk,
		hold:     hold,
		lastSeen: map[Control]time.Time{},
		state:    State{},
	}
}

// Observe records a key event for c.
func (ht *HoldTracker) Observe(c Control) {
	now := ht.clk.Now()
	ht.lastSeen[c] = now
	if !ht.state.Pressed(c) {
		ht.state[c] = Event{Time: now, Event: ButtonPress, Control: c}
	}
}

// State releases expired keys and returns a copy of the current state.
func (ht *HoldTracker) State() State {
	now := ht.clk.Now()
	for c, seen := range ht.lastSeen {
		if now.Sub(seen) > ht.hold {
			ht.state[c] = Event{Time: now, Event: ButtonRelease, Control: c}
			delete(ht.lastSeen, c)
		}
	}
	out := make(State, len(ht.state))
	for c, ev := range ht.state {
		out[c] = ev
	}
	return out
}
