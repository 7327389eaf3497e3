// Package main is the entry point of the drone target chasing game.
package main

import (
	"context"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/dronechase/components/camera"
	"go.viam.com/dronechase/components/camera/ffmpeg"
	"go.viam.com/dronechase/components/camera/videosource"
	"go.viam.com/dronechase/components/display"
	"go.viam.com/dronechase/components/drone"
	fakedrone "go.viam.com/dronechase/components/drone/fake"
	"go.viam.com/dronechase/components/drone/tello"
	"go.viam.com/dronechase/config"
	"go.viam.com/dronechase/game"
	"go.viam.com/dronechase/logging"
	"go.viam.com/dronechase/rimage"
	rutils "go.viam.com/dronechase/utils"
	"go.viam.com/dronechase/vision/keypoints"
	"go.viam.com/dronechase/vision/keypoints/cvorb"
	"go.viam.com/dronechase/vision/odometry"
)

const (
	windowName = "dronechase"
	// fakeVideoSource is the first local webcam, used when flying without a drone.
	fakeVideoSource = "0"
)

var logger = logging.NewLogger("dronechase")

// Arguments for the command.
type Arguments struct {
	ConfigFile string `flag:"0,usage=game config file"`
	Debug      bool   `flag:"debug"`
	Fake       bool   `flag:"fake,usage=play without a drone"`
	Seed       int    `flag:"seed,usage=seed of the target placement"`
}

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

func mainWithArgs(ctx context.Context, args []string, logger logging.Logger) (err error) {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}

	cfg := config.Default()
	if argsParsed.ConfigFile != "" {
		read, err := config.Read(argsParsed.ConfigFile, logger)
		if err != nil {
			return err
		}
		cfg = *read
	}
	if argsParsed.Debug || cfg.Log.Debug {
		logger.SetLevel(logging.DEBUG)
	}
	if argsParsed.Fake {
		cfg.Drone.Type = config.DroneTypeFake
		if cfg.Video.Source == config.VideoSourceTello {
			cfg.Video.Source = fakeVideoSource
		}
	}
	if argsParsed.Seed != 0 {
		cfg.Game.Seed = int64(argsParsed.Seed)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	d, err := newDrone(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, d.Close(context.WithoutCancel(ctx)))
	}()

	cam, err := newCamera(cfg, d, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, cam.Close(context.WithoutCancel(ctx)))
	}()

	estimator := odometry.NewEstimator(
		cvorb.NewDetector(cvorb.ORBConfig{}),
		newMatcher(cfg.Motion),
		cfg.Motion.KeepFraction,
		logger.Sublogger("motion"),
	)
	defer func() {
		err = multierr.Combine(err, estimator.Close())
	}()

	clk := clock.New()
	window := display.NewWindow(windowName, cfg.Video.Width, cfg.Video.Height, clk,
		windowConfig(cfg), logger.Sublogger("display"))
	defer func() {
		err = multierr.Combine(err, window.Close())
	}()

	g, err := game.New(cfg, game.Deps{
		Drone:     d,
		Camera:    cam,
		Estimator: estimator,
		Display:   window,
		Clock:     clk,
	}, logger)
	if err != nil {
		return err
	}
	return g.Run(ctx)
}

func newDrone(ctx context.Context, cfg config.Config, logger logging.Logger) (drone.Drone, error) {
	switch cfg.Drone.Type {
	case config.DroneTypeFake:
		logger.Info("playing without a drone")
		return fakedrone.NewFlyingDrone(), nil
	case config.DroneTypeTello:
		logger.Infow("connecting to tello", "port", cfg.Drone.Port)
		return tello.New(ctx, tello.Config{Port: cfg.Drone.Port}, logger.Sublogger("tello"))
	default:
		return nil, rutils.NewUnknownModelError("drone", cfg.Drone.Type)
	}
}

func newCamera(cfg config.Config, d drone.Drone, logger logging.Logger) (camera.Camera, error) {
	var cam camera.Camera
	if cfg.Video.Source == config.VideoSourceTello {
		td, ok := d.(*tello.Drone)
		if !ok {
			return nil, errors.Wrapf(rutils.NewUnexpectedTypeError(&tello.Drone{}, d), "video source %q", cfg.Video.Source)
		}
		ffcam, err := ffmpeg.NewCamera(ffmpeg.TelloConfig(), logger.Sublogger("video"))
		if err != nil {
			return nil, err
		}
		if err := td.StreamVideo(ffcam); err != nil {
			return nil, multierr.Combine(err, ffcam.Close(context.Background()))
		}
		cam = ffcam
	} else {
		capture, err := videosource.NewCapture(cfg.Video.Source, logger.Sublogger("video"))
		if err != nil {
			return nil, err
		}
		cam = capture
	}
	orientation := rimage.Orientation{Rotate: cfg.Video.Rotate, Mirror: cfg.Video.Mirror}
	oriented, err := camera.NewOriented(cam, orientation, cfg.Video.Width, cfg.Video.Height)
	if err != nil {
		return nil, multierr.Combine(err, cam.Close(context.Background()))
	}
	return oriented, nil
}

func newMatcher(cfg config.MotionConfig) keypoints.Matcher {
	matching := keypoints.MatchingConfig{DoCrossCheck: cfg.CrossCheck, MaxDist: cfg.MaxDistance}
	if cfg.Matcher == config.MatcherBruteForce {
		return keypoints.NewBruteForceMatcher(matching)
	}
	return cvorb.NewMatcher(matching)
}

func windowConfig(cfg config.Config) display.WindowConfig {
	wcfg := display.DefaultWindowConfig()
	wcfg.KeyHold = cfg.Controls.KeyHold
	return wcfg
}
