// Package tello implements a drone on top of the DJI Tello driver from gobot.
package tello

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"gobot.io/x/gobot"
	gotello "gobot.io/x/gobot/platforms/dji/tello"
	"go.uber.org/multierr"

	"go.viam.com/dronechase/components/drone"
	"go.viam.com/dronechase/logging"
)

// DefaultPort is the local UDP port the Tello sends its state to.
const DefaultPort = "8888"

// the Tello stops streaming unless video is requested periodically
const videoKeepAlive = 100 * time.Millisecond

// Config configures the connection to the drone.
type Config struct {
	Port string
}

// Drone is a connected Tello.
type Drone struct {
	driver *gotello.Driver
	robot  *gobot.Robot
	logger logging.Logger

	connected chan struct{}

	mu         sync.Mutex
	flightData *gotello.FlightData
	video      io.Writer
	keepAlive  *time.Ticker
	lastRC     drone.RCCommand
}

// New connects to a Tello and starts listening for its telemetry. The robot runs in the
// background until Close.
func New(ctx context.Context, cfg Config, logger logging.Logger) (*Drone, error) {
	if cfg.Port == "" {
		cfg.Port = DefaultPort
	}
	d := &Drone{
		driver:    gotello.NewDriver(cfg.Port),
		logger:    logger,
		connected: make(chan struct{}),
	}

	work := func() {
		var once sync.Once
		if err := d.driver.On(gotello.ConnectedEvent, func(data interface{}) {
			once.Do(func() { close(d.connected) })
			d.logger.Info("connected to drone")
		}); err != nil {
			d.logger.Errorw("cannot listen for connection", "error", err)
		}
		if err := d.driver.On(gotello.FlightDataEvent, func(data interface{}) {
			fd, ok := data.(*gotello.FlightData)
			if !ok {
				return
			}
			d.mu.Lock()
			d.flightData = fd
			d.mu.Unlock()
		}); err != nil {
			d.logger.Errorw("cannot listen for flight data", "error", err)
		}
		if err := d.driver.On(gotello.VideoFrameEvent, func(data interface{}) {
			pkt, ok := data.([]byte)
			if !ok {
				return
			}
			d.mu.Lock()
			w := d.video
			d.mu.Unlock()
			if w == nil {
				return
			}
			if _, err := w.Write(pkt); err != nil {
				d.logger.Debugw("dropping video packet", "error", err)
			}
		}); err != nil {
			d.logger.Errorw("cannot listen for video", "error", err)
		}
	}

	d.robot = gobot.NewRobot("tello",
		[]gobot.Connection{},
		[]gobot.Device{d.driver},
		work,
	)
	if err := d.robot.Start(false); err != nil {
		return nil, errors.Wrap(err, "cannot start drone driver")
	}

	select {
	case <-ctx.Done():
		return nil, multierr.Combine(ctx.Err(), d.robot.Stop())
	case <-d.connected:
	}
	return d, nil
}

// StreamVideo starts the drone's camera and writes every received H.264 packet to w.
func (d *Drone) StreamVideo(w io.Writer) error {
	d.mu.Lock()
	d.video = w
	alreadyStreaming := d.keepAlive != nil
	if !alreadyStreaming {
		d.keepAlive = gobot.Every(videoKeepAlive, func() {
			if err := d.driver.StartVideo(); err != nil {
				d.logger.Debugw("video keep alive failed", "error", err)
			}
		})
	}
	d.mu.Unlock()
	if alreadyStreaming {
		return nil
	}
	return multierr.Combine(
		d.driver.StartVideo(),
		d.driver.SetVideoEncoderRate(gotello.VideoBitRateAuto),
	)
}

// TakeOff implements drone.Drone.
func (d *Drone) TakeOff(ctx context.Context) error {
	d.logger.Info("taking off")
	return d.driver.TakeOff()
}

// Land implements drone.Drone.
func (d *Drone) Land(ctx context.Context) error {
	d.logger.Info("landing")
	return d.driver.Land()
}

// SendRC implements drone.Drone. Only channels that changed since the last call are sent.
func (d *Drone) SendRC(ctx context.Context, cmd drone.RCCommand) error {
	cmd = cmd.Clamp()
	d.mu.Lock()
	last := d.lastRC
	d.lastRC = cmd
	d.mu.Unlock()

	var err error
	if cmd.Lateral != last.Lateral {
		err = multierr.Append(err, signed(cmd.Lateral, d.driver.Right, d.driver.Left))
	}
	if cmd.Vertical != last.Vertical {
		err = multierr.Append(err, signed(cmd.Vertical, d.driver.Up, d.driver.Down))
	}
	if cmd.Forward != last.Forward {
		err = multierr.Append(err, signed(cmd.Forward, d.driver.Forward, d.driver.Backward))
	}
	if cmd.Yaw != last.Yaw {
		err = multierr.Append(err, signed(cmd.Yaw, d.driver.Clockwise, d.driver.CounterClockwise))
	}
	return err
}

// signed drives one stick channel, whose positive and negative halves the driver exposes as
// separate commands taking a magnitude.
func signed(v int, positive, negative func(int) error) error {
	if v >= 0 {
		return positive(v)
	}
	return negative(-v)
}

// Flying implements drone.Drone.
func (d *Drone) Flying(ctx context.Context) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.flightData == nil {
		return false, drone.ErrNoFlightData
	}
	return d.flightData.Flying, nil
}

// Battery implements drone.Drone.
func (d *Drone) Battery(ctx context.Context) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.flightData == nil {
		return 0, drone.ErrNoFlightData
	}
	return int(d.flightData.BatteryPercentage), nil
}

// Close stops the video keep alive and the gobot robot.
func (d *Drone) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.keepAlive != nil {
		d.keepAlive.Stop()
		d.keepAlive = nil
	}
	d.video = nil
	d.mu.Unlock()
	return d.robot.Stop()
}
