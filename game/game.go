// Package game runs the target chasing game: it reads the drone's video, follows the drone's
// motion through the frames and the player's stick commands, moves the target accordingly and
// draws it over the video.
package game

import (
	"context"
	"image"
	"math/rand"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/dronechase/components/camera"
	"go.viam.com/dronechase/components/display"
	"go.viam.com/dronechase/components/drone"
	"go.viam.com/dronechase/components/input"
	"go.viam.com/dronechase/config"
	"go.viam.com/dronechase/game/target"
	"go.viam.com/dronechase/logging"
	"go.viam.com/dronechase/rimage"
	"go.viam.com/dronechase/vision/odometry"
)

const (
	batteryInterval = 5 * time.Second
	landTimeout     = 10 * time.Second
)

// Deps are the components a Game drives.
type Deps struct {
	Drone     drone.Drone
	Camera    camera.Camera
	Estimator *odometry.Estimator
	Display   display.Display

	// Clock defaults to the wall clock.
	Clock clock.Clock
	// Rand places targets. When nil it is seeded from the game seed, or from the clock when
	// the seed is 0.
	Rand *rand.Rand
}

// Game composes the drone, its video, the motion estimator and a target.
type Game struct {
	cfg       config.Config
	drone     drone.Drone
	camera    camera.Camera
	estimator *odometry.Estimator
	display   display.Display
	clk       clock.Clock
	rng       *rand.Rand
	period    time.Duration
	logger    logging.Logger
}

// New returns a game over deps.
func New(cfg config.Config, deps Deps, logger logging.Logger) (*Game, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch {
	case deps.Drone == nil:
		return nil, errors.New("game requires a drone")
	case deps.Camera == nil:
		return nil, errors.New("game requires a camera")
	case deps.Estimator == nil:
		return nil, errors.New("game requires a motion estimator")
	case deps.Display == nil:
		return nil, errors.New("game requires a display")
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.New()
	}
	rng := deps.Rand
	if rng == nil {
		seed := cfg.Game.Seed
		if seed == 0 {
			seed = clk.Now().UnixNano()
		}
		logger.Debugw("seeding targets", "seed", seed)
		//nolint:gosec
		rng = rand.New(rand.NewSource(seed))
	}
	return &Game{
		cfg:       cfg,
		drone:     deps.Drone,
		camera:    deps.Camera,
		estimator: deps.Estimator,
		display:   deps.Display,
		clk:       clk,
		rng:       rng,
		period:    NewLimiter(clk, cfg.Game.FrameRateHz).Period(),
		logger:    logger,
	}, nil
}

// Run plays until the player quits, the video ends, ctx is cancelled or a component fails. The
// drone is landed on the way out whenever it reports itself airborne.
func (g *Game) Run(ctx context.Context) (err error) {
	defer func() {
		landCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), landTimeout)
		defer cancel()
		if landErr := drone.LandIfFlying(landCtx, g.drone); landErr != nil {
			err = multierr.Combine(err, errors.Wrap(landErr, "failed to land"))
		}
	}()

	s := NewSession()
	limiter := NewLimiter(g.clk, g.cfg.Game.FrameRateHz)
	for {
		dt, err := limiter.Wait(ctx)
		if err != nil {
			return ignoreCancel(ctx, err)
		}
		frame, err := g.camera.Next(ctx)
		if err != nil {
			if errors.Is(err, camera.ErrEndOfStream) {
				g.logger.Info("video stream ended")
				return nil
			}
			return ignoreCancel(ctx, errors.Wrap(err, "cannot read video"))
		}
		keys, err := g.display.Poll(ctx)
		if err != nil {
			return ignoreCancel(ctx, errors.Wrap(err, "cannot read input"))
		}
		out, quit, err := g.Tick(ctx, s, frame, dt, keys)
		if err != nil {
			return ignoreCancel(ctx, err)
		}
		if quit {
			g.logger.Infow("quitting", "score", s.Score())
			return nil
		}
		if err := g.display.Show(ctx, out); err != nil {
			return ignoreCancel(ctx, errors.Wrap(err, "cannot show frame"))
		}
	}
}

func ignoreCancel(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// Tick advances s by one frame that took dt and returns the frame to show. quit reports that
// the player asked to stop.
func (g *Game) Tick(
	ctx context.Context,
	s *Session,
	frame image.Image,
	dt time.Duration,
	keys input.State,
) (out image.Image, quit bool, err error) {
	prevKeys := s.keys
	s.keys = keys
	s.Ticks++
	s.frameTimes.Add(dt)

	if keys.JustPressed(prevKeys, input.KeyQuit) {
		return frame, true, nil
	}
	g.handleFlightKeys(ctx, s, keys, prevKeys)
	g.updateFlying(ctx, s)
	g.refreshBattery(ctx, s, keys.JustPressed(prevKeys, input.KeyBattery))

	s.LastEstimate = odometry.Estimate{}
	if s.Flying {
		est, err := g.estimator.Process(rimage.MakeGray(frame))
		if err != nil {
			g.logger.Warnw("motion estimation failed", "error", err)
		} else if est.OK {
			s.Motion.Add(MeasuredMotion(est.Displacement, g.cfg.Motion.PixelsPerCm))
		}
		s.LastEstimate = est

		s.Command = Velocities(keys, g.cfg.Controls)
		if err := g.drone.SendRC(ctx, s.Command); err != nil {
			g.logger.Warnw("failed to send stick command", "command", s.Command, "error", err)
		}
	} else {
		s.Command = drone.RCCommand{}
	}

	if s.Target == nil && s.Flying && g.clk.Since(s.AirborneSince) >= g.cfg.Game.StabilizeDelay {
		if s.Target, err = target.New(g.cfg.TargetConfig(), g.rng); err != nil {
			return nil, false, err
		}
		// motion measured while stabilizing is not the player's
		s.Motion.Reset()
		g.logger.Infow("target placed", "position", s.Target.Position())
	}

	var proj *target.Projection
	if s.Target != nil {
		d := s.Motion.Take()
		forward, turnDeg := CommandedMotion(s.Command, g.cfg.Controls, dt, g.period)
		d.Y = forward
		if s.Target.Update(d, turnDeg) {
			g.logger.Infow("target captured", "score", s.Target.Score(), "next", s.Target.Position())
		}
		p := s.Target.Project(turnDeg)
		proj = &p
	}

	var matches *odometry.Estimate
	if g.cfg.Motion.ShowMatches {
		matches = &s.LastEstimate
	}
	out = Compose(frame, proj, s.HUD(), matches)

	if keys.JustPressed(prevKeys, input.KeyScreenshot) {
		g.screenshot(frame, out)
	}
	return out, false, nil
}

func (g *Game) handleFlightKeys(ctx context.Context, s *Session, keys, prevKeys input.State) {
	if keys.JustPressed(prevKeys, input.KeyTakeOff) {
		g.logger.Info("taking off")
		if err := g.drone.TakeOff(ctx); err != nil {
			g.logger.Errorw("failed to take off", "error", err)
		}
	}
	if keys.JustPressed(prevKeys, input.KeyLand) {
		g.logger.Info("landing")
		if err := g.drone.Land(ctx); err != nil {
			g.logger.Errorw("failed to land", "error", err)
		}
	}
}

func (g *Game) updateFlying(ctx context.Context, s *Session) {
	flying, err := g.drone.Flying(ctx)
	if err != nil {
		g.logger.Debugw("cannot read flight state", "error", err)
		return
	}
	switch {
	case flying && !s.Flying:
		s.AirborneSince = g.clk.Now()
		g.logger.Infow("drone airborne", "stabilize_delay", g.cfg.Game.StabilizeDelay)
	case !flying && s.Flying:
		g.logger.Info("drone landed")
		// frames from the ground do not register against frames from the air
		g.estimator.Reset()
		s.Motion.Reset()
	}
	s.Flying = flying
}

func (g *Game) refreshBattery(ctx context.Context, s *Session, requested bool) {
	now := g.clk.Now()
	if !requested && !s.batteryAt.IsZero() && now.Sub(s.batteryAt) < batteryInterval {
		return
	}
	s.batteryAt = now
	percent, err := g.drone.Battery(ctx)
	if err != nil {
		if requested || !errors.Is(err, drone.ErrNoFlightData) {
			g.logger.Warnw("cannot read battery", "error", err)
		}
		return
	}
	s.Battery = percent
	if requested {
		g.logger.Infow("battery", "percent", percent)
	}
}

func (g *Game) screenshot(raw, composited image.Image) {
	now := g.clk.Now()
	for _, shot := range []struct {
		prefix string
		img    image.Image
	}{
		{rimage.ScreenshotRaw, raw},
		{rimage.ScreenshotComposited, composited},
	} {
		path, err := rimage.SaveScreenshot(g.cfg.Screenshots.Dir, shot.prefix, shot.img, now)
		if err != nil {
			g.logger.Errorw("failed to save screenshot", "error", err)
			continue
		}
		g.logger.Infow("saved screenshot", "path", path)
	}
}
