package input

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"
)

func TestKeyCodesControl(t *testing.T) {
	for _, tc := range []struct {
		name     string
		codes    KeyCodes
		code     int
		expected Control
		ok       bool
	}{
		{"full arrow", FullKeyCodes, 65361, KeyLeft, true},
		{"full arrow with shift", FullKeyCodes, 0x10000 | 65364, KeyBackward, true},
		{"full lower q", FullKeyCodes, 'q', KeyLand, true},
		{"full upper Q lands", FullKeyCodes, 'Q', KeyLand, true},
		{"full upper S descends", FullKeyCodes, 'S', KeyDown, true},
		{"full upper R unmapped", FullKeyCodes, 'R', "", false},
		{"full upper W", FullKeyCodes, 'W', KeyUp, true},
		{"full upper E", FullKeyCodes, 'E', KeyTakeOff, true},
		{"full escape", FullKeyCodes, 27, KeyQuit, true},
		{"masked arrow", MaskedKeyCodes, 82, KeyForward, true},
		{"masked upper A", MaskedKeyCodes, 'A', KeyYawLeft, true},
		{"masked upper P", MaskedKeyCodes, 'P', KeyScreenshot, true},
		{"masked lower i", MaskedKeyCodes, 'i', KeyBattery, true},
		{"unmapped", FullKeyCodes, 'z', "", false},
		{"no key", MaskedKeyCodes, -1, "", false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c, ok := tc.codes.Control(tc.code)
			test.That(t, ok, test.ShouldEqual, tc.ok)
			test.That(t, c, test.ShouldEqual, tc.expected)
		})
	}
}

func TestHoldTracker(t *testing.T) {
	clk := clock.NewMock()
	ht := NewHoldTracker(clk, 500*time.Millisecond)
	test.That(t, ht.State(), test.ShouldBeEmpty)

	start := clk.Now()
	ht.Observe(KeyRight)
	state := ht.State()
	test.That(t, state.Pressed(KeyRight), test.ShouldBeTrue)
	test.That(t, state.Pressed(KeyLeft), test.ShouldBeFalse)
	test.That(t, state[KeyRight].Time, test.ShouldEqual, start)

	// key repeats keep the original press time
	clk.Add(300 * time.Millisecond)
	ht.Observe(KeyRight)
	clk.Add(300 * time.Millisecond)
	state = ht.State()
	test.That(t, state.Pressed(KeyRight), test.ShouldBeTrue)
	test.That(t, state[KeyRight].Time, test.ShouldEqual, start)

	clk.Add(201 * time.Millisecond)
	state = ht.State()
	test.That(t, state.Pressed(KeyRight), test.ShouldBeFalse)
	test.That(t, state[KeyRight].Event, test.ShouldEqual, ButtonRelease)

	// a new press gets a new time
	ht.Observe(KeyRight)
	state = ht.State()
	test.That(t, state.Pressed(KeyRight), test.ShouldBeTrue)
	test.That(t, state[KeyRight].Time.After(start), test.ShouldBeTrue)

	// the returned state is a copy
	state[KeyQuit] = Event{Event: ButtonPress}
	test.That(t, ht.State().Pressed(KeyQuit), test.ShouldBeFalse)
}

func TestJustPressed(t *testing.T) {
	t0 := time.Unix(100, 0)
	t1 := t0.Add(time.Second)
	prev := State{}
	cur := State{KeyTakeOff: {Time: t0, Event: ButtonPress, Control: KeyTakeOff}}
	test.That(t, cur.JustPressed(prev, KeyTakeOff), test.ShouldBeTrue)
	test.That(t, cur.JustPressed(prev, KeyLand), test.ShouldBeFalse)

	// still the same press
	test.That(t, cur.JustPressed(cur, KeyTakeOff), test.ShouldBeFalse)

	again := State{KeyTakeOff: {Time: t1, Event: ButtonPress, Control: KeyTakeOff}}
	test.That(t, again.JustPressed(cur, KeyTakeOff), test.ShouldBeTrue)

	released := State{KeyTakeOff: {Time: t1, Event: ButtonRelease, Control: KeyTakeOff}}
	test.That(t, released.JustPressed(cur, KeyTakeOff), test.ShouldBeFalse)
	test.That(t, cur.JustPressed(released, KeyTakeOff), test.ShouldBeTrue)
}
