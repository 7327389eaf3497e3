// Package videosource implements a camera on top of an OpenCV video capture, reading a webcam,
// a video file or a network stream.
package videosource

import (
	"context"
	"image"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gocv.io/x/gocv"

	"go.viam.com/dronechase/components/camera"
	"go.viam.com/dronechase/logging"
)

// Capture is a camera reading frames from gocv.
type Capture struct {
	mu      sync.Mutex
	source  string
	capture *gocv.VideoCapture
	frame   gocv.Mat
	logger  logging.Logger
}

// NewCapture opens source, which is a device index such as "0" or anything OpenCV can open
// as a file, e.g. a path or an rtsp:// URL.
func NewCapture(source string, logger logging.Logger) (*Capture, error) {
	var (
		capture *gocv.VideoCapture
		err     error
	)
	if deviceID, convErr := strconv.Atoi(source); convErr == nil {
		capture, err = gocv.OpenVideoCapture(deviceID)
	} else {
		capture, err = gocv.VideoCaptureFile(source)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open video source %q", source)
	}
	logger.Infow("opened video source", "source", source)
	return &Capture{
		source:  source,
		capture: capture,
		frame:   gocv.NewMat(),
		logger:  logger,
	}, nil
}

// Next reads the next frame. A failed read ends the stream.
func (c *Capture) Next(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if ok := c.capture.Read(&c.frame); !ok || c.frame.Empty() {
		c.logger.Debugw("cannot read frame", "source", c.source)
		return nil, camera.ErrEndOfStream
	}
	img, err := c.frame.ToImage()
	if err != nil {
		return nil, errors.Wrap(err, "cannot convert frame")
	}
	return img, nil
}

// Close releases the capture.
func (c *Capture) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return multierr.Combine(c.frame.Close(), c.capture.Close())
}
