package game

import (
	"context"
	"image"
	"image/color"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/zap/zaptest/observer"
	"go.viam.com/test"

	fakecamera "go.viam.com/dronechase/components/camera/fake"
	fakedisplay "go.viam.com/dronechase/components/display/fake"
	fakedrone "go.viam.com/dronechase/components/drone/fake"
	"go.viam.com/dronechase/components/input"
	"go.viam.com/dronechase/config"
	"go.viam.com/dronechase/game/target"
	"go.viam.com/dronechase/logging"
	"go.viam.com/dronechase/rimage"
	"go.viam.com/dronechase/vision/keypoints"
	fakedetector "go.viam.com/dronechase/vision/keypoints/fake"
	"go.viam.com/dronechase/vision/odometry"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	// far enough that small moves never capture
	cfg.Game.YMinCm = 30
	cfg.Game.StabilizeDelay = 0
	cfg.Motion.Matcher = config.MatcherBruteForce
	cfg.Drone.Type = config.DroneTypeFake
	cfg.Screenshots.Dir = t.TempDir()
	return cfg
}

type harness struct {
	game     *Game
	drone    *fakedrone.Drone
	display  *fakedisplay.Display
	detector *fakedetector.Detector
	clk      *clock.Mock
	logs     *observer.ObservedLogs
}

func newHarness(t *testing.T, cfg config.Config, d *fakedrone.Drone, frames ...image.Image) *harness {
	t.Helper()
	logger, logs := logging.NewObservedTestLogger(t)
	clk := clock.NewMock()
	detector := fakedetector.NewShiftingDetector(40, 8, 4)
	matcher := keypoints.NewBruteForceMatcher(keypoints.MatchingConfig{DoCrossCheck: true})
	display := fakedisplay.NewDisplay(clk)
	g, err := New(cfg, Deps{
		Drone:     d,
		Camera:    fakecamera.NewCamera(frames...),
		Estimator: odometry.NewEstimator(detector, matcher, cfg.Motion.KeepFraction, logger),
		Display:   display,
		Clock:     clk,
		Rand:      rand.New(rand.NewSource(1)),
	}, logger)
	test.That(t, err, test.ShouldBeNil)
	return &harness{game: g, drone: d, display: display, detector: detector, clk: clk, logs: logs}
}

func newFrame() image.Image {
	return image.NewRGBA(image.Rect(0, 0, target.DefaultScreenWidth, target.DefaultScreenHeight))
}

func pressed(at time.Time, controls ...input.Control) input.State {
	state := input.State{}
	for _, c := range controls {
		state[c] = input.Event{Time: at, Event: input.ButtonPress, Control: c}
	}
	return state
}

func TestNewRequiresDeps(t *testing.T) {
	logger := logging.NewTestLogger(t)
	cfg := testConfig(t)
	_, err := New(cfg, Deps{}, logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "drone")

	cfg.Game.FrameRateHz = 0
	_, err = New(cfg, Deps{Drone: fakedrone.NewDrone()}, logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "frame_rate_hz")
}

func TestTickFollowsMotion(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, testConfig(t), fakedrone.NewFlyingDrone())
	s := NewSession()
	dt := h.game.period

	_, quit, err := h.game.Tick(ctx, s, newFrame(), dt, input.State{})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, quit, test.ShouldBeFalse)
	test.That(t, s.Flying, test.ShouldBeTrue)
	test.That(t, s.Target, test.ShouldNotBeNil)
	// the first frame only primes the estimator
	test.That(t, s.LastEstimate.OK, test.ShouldBeFalse)
	p0 := s.Target.Position()

	// keypoints move 8px right and 4px down per frame at 4px/cm
	_, _, err = h.game.Tick(ctx, s, newFrame(), dt, input.State{})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.LastEstimate.OK, test.ShouldBeTrue)
	test.That(t, s.LastEstimate.Kept, test.ShouldEqual, 4)
	p1 := s.Target.Position()
	test.That(t, p1.Sub(p0), test.ShouldResemble, r3.Vector{X: 2, Y: 0, Z: 1})
	test.That(t, s.Motion.total, test.ShouldResemble, r3.Vector{})

	_, _, err = h.game.Tick(ctx, s, newFrame(), dt, pressed(h.clk.Now(), input.KeyForward))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Target.Position().Sub(p1), test.ShouldResemble, r3.Vector{X: 2, Y: -1, Z: 1})
	test.That(t, h.drone.LastCommand().Forward, test.ShouldEqual, 20)
	test.That(t, h.detector.Calls(), test.ShouldEqual, 3)
	test.That(t, s.Ticks, test.ShouldEqual, 3)
}

func TestTickWaitsForStabilization(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Game.StabilizeDelay = 2 * time.Second
	h := newHarness(t, cfg, fakedrone.NewDrone())
	s := NewSession()
	dt := h.game.period

	_, _, err := h.game.Tick(ctx, s, newFrame(), dt, pressed(h.clk.Now(), input.KeyRight))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Flying, test.ShouldBeFalse)
	test.That(t, s.Target, test.ShouldBeNil)
	// no stick commands on the ground
	test.That(t, h.drone.Commands, test.ShouldBeEmpty)
	test.That(t, h.detector.Calls(), test.ShouldEqual, 0)

	_, _, err = h.game.Tick(ctx, s, newFrame(), dt, pressed(h.clk.Now(), input.KeyTakeOff))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, h.drone.TakeOffCount, test.ShouldEqual, 1)
	test.That(t, s.Flying, test.ShouldBeTrue)
	test.That(t, s.AirborneSince, test.ShouldEqual, h.clk.Now())
	test.That(t, s.Target, test.ShouldBeNil)

	// holding the key does not take off again
	h.clk.Add(time.Second)
	_, _, err = h.game.Tick(ctx, s, newFrame(), dt, s.keys)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, h.drone.TakeOffCount, test.ShouldEqual, 1)
	test.That(t, s.Target, test.ShouldBeNil)

	h.clk.Add(time.Second)
	_, _, err = h.game.Tick(ctx, s, newFrame(), dt, input.State{})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Target, test.ShouldNotBeNil)
	test.That(t, h.logs.FilterMessage("target placed").Len(), test.ShouldEqual, 1)

	_, _, err = h.game.Tick(ctx, s, newFrame(), dt, pressed(h.clk.Now(), input.KeyLand))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, h.drone.LandCount, test.ShouldEqual, 1)
	test.That(t, s.Flying, test.ShouldBeFalse)
	// the target outlives the landing
	test.That(t, s.Target, test.ShouldNotBeNil)
}

func TestTickCapture(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	// at 15cm every spawn is within the capture box laterally, one step forward captures
	cfg.Game.YMinCm = 15
	cfg.Game.YMaxCm = 15
	h := newHarness(t, cfg, fakedrone.NewFlyingDrone())
	s := NewSession()

	_, _, err := h.game.Tick(ctx, s, newFrame(), h.game.period, pressed(h.clk.Now(), input.KeyForward))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Score(), test.ShouldEqual, 1)
	test.That(t, s.HUD().Score, test.ShouldEqual, 1)
	test.That(t, s.Target.Position().Y, test.ShouldEqual, 15.0)
	test.That(t, h.logs.FilterMessage("target captured").Len(), test.ShouldEqual, 1)
}

func TestTickQuit(t *testing.T) {
	h := newHarness(t, testConfig(t), fakedrone.NewFlyingDrone())
	s := NewSession()
	_, quit, err := h.game.Tick(context.Background(), s, newFrame(), h.game.period, pressed(h.clk.Now(), input.KeyQuit))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, quit, test.ShouldBeTrue)
}

func TestTickScreenshot(t *testing.T) {
	cfg := testConfig(t)
	h := newHarness(t, cfg, fakedrone.NewFlyingDrone())
	s := NewSession()
	_, _, err := h.game.Tick(context.Background(), s, newFrame(), h.game.period, pressed(h.clk.Now(), input.KeyScreenshot))
	test.That(t, err, test.ShouldBeNil)

	for _, prefix := range []string{rimage.ScreenshotRaw, rimage.ScreenshotComposited} {
		_, err := os.Stat(filepath.Join(cfg.Screenshots.Dir, rimage.ScreenshotName(prefix, h.clk.Now())))
		test.That(t, err, test.ShouldBeNil)
	}
	test.That(t, h.logs.FilterMessage("saved screenshot").Len(), test.ShouldEqual, 2)
}

func TestTickBattery(t *testing.T) {
	ctx := context.Background()
	d := fakedrone.NewFlyingDrone()
	h := newHarness(t, testConfig(t), d)
	s := NewSession()
	test.That(t, s.HUD().Battery, test.ShouldEqual, -1)

	d.SetBattery(42)
	_, _, err := h.game.Tick(ctx, s, newFrame(), h.game.period, input.State{})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Battery, test.ShouldEqual, 42)

	// polled periodically
	d.SetBattery(41)
	_, _, err = h.game.Tick(ctx, s, newFrame(), h.game.period, input.State{})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Battery, test.ShouldEqual, 42)

	// or on request
	_, _, err = h.game.Tick(ctx, s, newFrame(), h.game.period, pressed(h.clk.Now(), input.KeyBattery))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Battery, test.ShouldEqual, 41)
	test.That(t, h.logs.FilterMessage("battery").Len(), test.ShouldEqual, 1)

	d.SetBattery(40)
	h.clk.Add(batteryInterval)
	_, _, err = h.game.Tick(ctx, s, newFrame(), h.game.period, input.State{})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Battery, test.ShouldEqual, 40)
}

func TestTickSurvivesDroneErrors(t *testing.T) {
	d := fakedrone.NewFlyingDrone()
	d.SendRCErr = errors.New("radio silence")
	d.BatteryErr = errors.New("no telemetry")
	h := newHarness(t, testConfig(t), d)
	s := NewSession()
	_, quit, err := h.game.Tick(context.Background(), s, newFrame(), h.game.period, pressed(h.clk.Now(), input.KeyRight))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, quit, test.ShouldBeFalse)
	test.That(t, s.Command.Lateral, test.ShouldEqual, 20)
	test.That(t, h.logs.FilterMessage("failed to send stick command").Len(), test.ShouldEqual, 1)
}

func TestCompose(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 960, 720))
	red := color.RGBA{255, 0, 0, 255}
	proj := &target.Projection{Center: r2.Point{X: 480, Y: 360}, PixelRadius: 20, Color: red}
	est := &odometry.Estimate{
		OK:   true,
		Prev: keypoints.KeyPoints{{X: 100, Y: 600}},
		Curr: keypoints.KeyPoints{{X: 200, Y: 600}},
	}
	out := Compose(frame, proj, HUD{Target: &r3.Vector{X: 1, Y: 20, Z: 2}, Battery: -1}, est)

	test.That(t, out.Bounds(), test.ShouldResemble, frame.Bounds())
	r, g, b, _ := out.At(480, 360).RGBA()
	test.That(t, r>>8, test.ShouldEqual, uint32(255))
	test.That(t, g, test.ShouldEqual, uint32(0))
	test.That(t, b, test.ShouldEqual, uint32(0))

	_, _, b, _ = out.At(480, 300).RGBA()
	test.That(t, b, test.ShouldEqual, uint32(0))

	r, _, _, _ = out.At(150, 600).RGBA()
	test.That(t, r, test.ShouldBeGreaterThan, uint32(0))

	// the input frame is left untouched
	r, _, _, _ = frame.At(480, 360).RGBA()
	test.That(t, r, test.ShouldEqual, uint32(0))

	// without a target nothing is drawn at the center but the crosshair
	out = Compose(frame, nil, HUD{Flying: true}, nil)
	r, g, b, _ = out.At(480, 340).RGBA()
	test.That(t, []uint32{r, g, b}, test.ShouldResemble, []uint32{0, 0, 0})
}

func TestRunEndsWithVideo(t *testing.T) {
	cfg := testConfig(t)
	cfg.Game.FrameRateHz = 1000
	d := fakedrone.NewFlyingDrone()
	h := newHarness(t, cfg, d, newFrame(), newFrame(), newFrame())
	h.game.clk = clock.New()

	test.That(t, h.game.Run(context.Background()), test.ShouldBeNil)
	test.That(t, len(h.display.Frames()), test.ShouldEqual, 3)
	test.That(t, d.LandCount, test.ShouldEqual, 1)
	test.That(t, h.logs.FilterMessage("video stream ended").Len(), test.ShouldEqual, 1)
}

func TestRunQuit(t *testing.T) {
	cfg := testConfig(t)
	cfg.Game.FrameRateHz = 1000
	d := fakedrone.NewDrone()
	h := newHarness(t, cfg, d, newFrame())
	h.game.camera.(*fakecamera.Camera).Loop = true
	h.game.clk = clock.New()
	h.display.OnPoll = func(poll int, d *fakedisplay.Display) {
		switch poll {
		case 1:
			d.Press(input.KeyTakeOff)
		case 3:
			d.Press(input.KeyQuit)
		}
	}

	test.That(t, h.game.Run(context.Background()), test.ShouldBeNil)
	test.That(t, len(h.display.Frames()), test.ShouldEqual, 3)
	test.That(t, d.TakeOffCount, test.ShouldEqual, 1)
	test.That(t, d.LandCount, test.ShouldEqual, 1)
}

func TestRunLandsOnFailure(t *testing.T) {
	cfg := testConfig(t)
	d := fakedrone.NewFlyingDrone()
	d.LandErr = errors.New("motors stuck")
	h := newHarness(t, cfg, d, newFrame())
	h.game.clk = clock.New()
	h.display.PollErr = errors.New("window gone")

	err := h.game.Run(context.Background())
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "window gone")
	test.That(t, err.Error(), test.ShouldContainSubstring, "motors stuck")
	test.That(t, d.LandCount, test.ShouldEqual, 1)
}

func TestRunCancelled(t *testing.T) {
	d := fakedrone.NewFlyingDrone()
	h := newHarness(t, testConfig(t), d, newFrame())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	test.That(t, h.game.Run(ctx), test.ShouldBeNil)
	test.That(t, d.LandCount, test.ShouldEqual, 1)
	test.That(t, h.display.Frames(), test.ShouldBeEmpty)
}

func TestRunGroundedDroneStaysDown(t *testing.T) {
	d := fakedrone.NewDrone()
	h := newHarness(t, testConfig(t), d)
	h.game.clk = clock.New()

	test.That(t, h.game.Run(context.Background()), test.ShouldBeNil)
	test.That(t, d.LandCount, test.ShouldEqual, 0)
}
