// Package config defines the structures to configure a game session and the ability to read
// them from a JSON file.
package config

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/dronechase/game/target"
)

// Drone types.
const (
	DroneTypeTello = "tello"
	DroneTypeFake  = "fake"
)

// Matchers usable by the motion estimator.
const (
	MatcherOpenCV     = "opencv"
	MatcherBruteForce = "bruteforce"
)

// VideoSourceTello selects the drone's own video stream.
const VideoSourceTello = "tello"

// Config describes a full game session.
type Config struct {
	ConfigFilePath string `json:"-"`

	Game        GameConfig       `json:"game"`
	Motion      MotionConfig     `json:"motion"`
	Controls    ControlsConfig   `json:"controls"`
	Drone       DroneConfig      `json:"drone"`
	Video       VideoConfig      `json:"video"`
	Screenshots ScreenshotConfig `json:"screenshots"`
	Log         LogConfig        `json:"log"`
}

// GameConfig configures targets and the tick loop.
type GameConfig struct {
	YMinCm                  int           `json:"y_min_cm"`
	YMaxCm                  int           `json:"y_max_cm"`
	CaptureThresholdCm      float64       `json:"capture_threshold_cm"`
	CaptureRadiusCm         float64       `json:"capture_radius_cm"`
	MinPixelRadius          float64       `json:"min_pixel_radius"`
	MinProjectionDistanceCm float64       `json:"min_projection_distance_cm"`
	YawCompensation         string        `json:"yaw_compensation"`
	StabilizeDelay          time.Duration `json:"stabilize_delay"`
	FrameRateHz             float64       `json:"frame_rate_hz"`
	// Seed of the random source placing targets. 0 seeds from the clock.
	Seed int64 `json:"seed"`
}

// MotionConfig configures the frame registration used to follow the drone's motion.
type MotionConfig struct {
	KeepFraction float64 `json:"keep_fraction"`
	PixelsPerCm  float64 `json:"pixels_per_cm"`
	Matcher      string  `json:"matcher"`
	CrossCheck   bool    `json:"cross_check"`
	MaxDistance  int     `json:"max_distance"`
	ShowMatches  bool    `json:"show_matches"`
}

// ControlsConfig configures keyboard flight.
type ControlsConfig struct {
	Speed          int           `json:"speed"`
	YawSpeed       int           `json:"yaw_speed"`
	ForwardDivisor float64       `json:"forward_divisor"`
	YawDivisor     float64       `json:"yaw_divisor"`
	KeyHold        time.Duration `json:"key_hold"`
}

// DroneConfig selects the flight controller.
type DroneConfig struct {
	Type string `json:"type"`
	Port string `json:"port"`
}

// VideoConfig selects where frames come from and how they are oriented.
type VideoConfig struct {
	Source string `json:"source"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Rotate int    `json:"rotate"`
	Mirror bool   `json:"mirror"`
}

// ScreenshotConfig configures where screenshots are written.
type ScreenshotConfig struct {
	Dir string `json:"dir"`
}

// LogConfig configures logging.
type LogConfig struct {
	Debug bool `json:"debug"`
}

// Default returns the configuration used for every field a file leaves out.
func Default() Config {
	tcfg := target.DefaultConfig()
	return Config{
		Game: GameConfig{
			YMinCm:                  tcfg.YMinCm,
			YMaxCm:                  tcfg.YMaxCm,
			CaptureThresholdCm:      tcfg.CaptureThresholdCm,
			CaptureRadiusCm:         tcfg.CaptureRadiusCm,
			MinPixelRadius:          tcfg.MinPixelRadius,
			MinProjectionDistanceCm: tcfg.MinProjectionDistanceCm,
			YawCompensation:         string(tcfg.YawCompensation),
			StabilizeDelay:          2 * time.Second,
			FrameRateHz:             60,
		},
		Motion: MotionConfig{
			KeepFraction: 0.1,
			PixelsPerCm:  4,
			Matcher:      MatcherOpenCV,
			CrossCheck:   true,
		},
		Controls: ControlsConfig{
			Speed:          20,
			YawSpeed:       20,
			ForwardDivisor: 20,
			YawDivisor:     20,
			KeyHold:        600 * time.Millisecond,
		},
		Drone: DroneConfig{
			Type: DroneTypeTello,
			Port: "8888",
		},
		Video: VideoConfig{
			Source: VideoSourceTello,
			Width:  tcfg.ScreenWidth,
			Height: tcfg.ScreenHeight,
		},
		Screenshots: ScreenshotConfig{
			Dir: "./images",
		},
	}
}

// TargetConfig returns the target configuration derived from the game and video sections.
func (c *Config) TargetConfig() target.Config {
	return target.Config{
		YMinCm:                  c.Game.YMinCm,
		YMaxCm:                  c.Game.YMaxCm,
		CaptureThresholdCm:      c.Game.CaptureThresholdCm,
		CaptureRadiusCm:         c.Game.CaptureRadiusCm,
		MinPixelRadius:          c.Game.MinPixelRadius,
		MinProjectionDistanceCm: c.Game.MinProjectionDistanceCm,
		YawCompensation:         target.YawCompensation(c.Game.YawCompensation),
		ScreenWidth:             c.Video.Width,
		ScreenHeight:            c.Video.Height,
	}
}

// Validate ensures all parts of the config are valid.
func (c *Config) Validate() error {
	path := c.ConfigFilePath
	if err := c.Game.Validate(fmt.Sprintf("%s.game", path)); err != nil {
		return err
	}
	if err := c.TargetConfig().Validate(); err != nil {
		return utils.NewConfigValidationError(fmt.Sprintf("%s.game", path), err)
	}
	if err := c.Motion.Validate(fmt.Sprintf("%s.motion", path)); err != nil {
		return err
	}
	if err := c.Controls.Validate(fmt.Sprintf("%s.controls", path)); err != nil {
		return err
	}
	if err := c.Drone.Validate(fmt.Sprintf("%s.drone", path)); err != nil {
		return err
	}
	if err := c.Video.Validate(fmt.Sprintf("%s.video", path)); err != nil {
		return err
	}
	if c.Screenshots.Dir == "" {
		return utils.NewConfigValidationFieldRequiredError(fmt.Sprintf("%s.screenshots", path), "dir")
	}
	return nil
}

// Validate ensures all parts of the config are valid.
func (config *GameConfig) Validate(path string) error {
	if config.StabilizeDelay < 0 {
		return utils.NewConfigValidationError(path, errors.New("stabilize_delay cannot be negative"))
	}
	if config.FrameRateHz <= 0 {
		return utils.NewConfigValidationError(path, errors.New("frame_rate_hz must be positive"))
	}
	if config.MinPixelRadius < 0 {
		return utils.NewConfigValidationError(path, errors.New("min_pixel_radius cannot be negative"))
	}
	if config.CaptureRadiusCm <= 0 {
		return utils.NewConfigValidationError(path, errors.New("capture_radius_cm must be positive"))
	}
	return nil
}

// Validate ensures all parts of the config are valid.
func (config *MotionConfig) Validate(path string) error {
	if config.KeepFraction <= 0 || config.KeepFraction > 1 {
		return utils.NewConfigValidationError(path, errors.Errorf("keep_fraction must be in (0, 1], got %v", config.KeepFraction))
	}
	if config.PixelsPerCm <= 0 {
		return utils.NewConfigValidationError(path, errors.New("pixels_per_cm must be positive"))
	}
	switch config.Matcher {
	case MatcherOpenCV, MatcherBruteForce:
	case "":
		return utils.NewConfigValidationFieldRequiredError(path, "matcher")
	default:
		return utils.NewConfigValidationError(path, errors.Errorf("unknown matcher %q", config.Matcher))
	}
	if config.MaxDistance < 0 {
		return utils.NewConfigValidationError(path, errors.New("max_distance cannot be negative"))
	}
	return nil
}

// Validate ensures all parts of the config are valid.
func (config *ControlsConfig) Validate(path string) error {
	if config.Speed < 1 || config.Speed > 100 {
		return utils.NewConfigValidationError(path, errors.Errorf("speed must be in [1, 100], got %d", config.Speed))
	}
	if config.YawSpeed < 1 || config.YawSpeed > 100 {
		return utils.NewConfigValidationError(path, errors.Errorf("yaw_speed must be in [1, 100], got %d", config.YawSpeed))
	}
	if config.ForwardDivisor <= 0 || config.YawDivisor <= 0 {
		return utils.NewConfigValidationError(path, errors.New("forward_divisor and yaw_divisor must be positive"))
	}
	if config.KeyHold <= 0 {
		return utils.NewConfigValidationError(path, errors.New("key_hold must be positive"))
	}
	return nil
}

// Validate ensures all parts of the config are valid.
func (config *DroneConfig) Validate(path string) error {
	switch config.Type {
	case DroneTypeTello:
		if config.Port == "" {
			return utils.NewConfigValidationFieldRequiredError(path, "port")
		}
	case DroneTypeFake:
	case "":
		return utils.NewConfigValidationFieldRequiredError(path, "type")
	default:
		return utils.NewConfigValidationError(path, errors.Errorf("unknown drone type %q", config.Type))
	}
	return nil
}

// Validate ensures all parts of the config are valid.
func (config *VideoConfig) Validate(path string) error {
	if config.Source == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "source")
	}
	if config.Width <= 0 || config.Height <= 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("invalid frame size %dx%d", config.Width, config.Height))
	}
	switch config.Rotate {
	case 0, 90, 180, 270:
	default:
		return utils.NewConfigValidationError(path, errors.Errorf("rotate must be a multiple of 90 in [0, 270], got %d", config.Rotate))
	}
	return nil
}
