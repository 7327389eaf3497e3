package display

import (
	"context"
	"image"
	"os"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"go.viam.com/dronechase/components/input"
	"go.viam.com/dronechase/logging"
)

// maxKeysPerPoll bounds how many queued key events one Poll drains.
const maxKeysPerPoll = 8

// legacyWaitKeyEnv makes cv::waitKey return full key codes. OpenCV reads it on the first call.
const legacyWaitKeyEnv = "OPENCV_LEGACY_WAITKEY"

// Window is an OpenCV highgui window. OpenCV requires all window calls to come from the thread
// that created the window, so a Window must only be used by the game loop.
type Window struct {
	name   string
	window *gocv.Window
	codes  input.KeyCodes
	keys   *input.HoldTracker
	logger logging.Logger
}

// NewWindow opens a window with the given title sized width by height.
func NewWindow(name string, width, height int, clk clock.Clock, cfg WindowConfig, logger logging.Logger) *Window {
	if cfg.KeyCodes == input.FullKeyCodes {
		if _, set := os.LookupEnv(legacyWaitKeyEnv); !set {
			if err := os.Setenv(legacyWaitKeyEnv, "1"); err != nil {
				logger.Warnw("cannot request full key codes, arrows and Q to T may be confused", "error", err)
			}
		}
	}
	w := gocv.NewWindow(name)
	w.ResizeWindow(width, height)
	return &Window{
		name:   name,
		window: w,
		codes:  cfg.KeyCodes,
		keys:   input.NewHoldTracker(clk, cfg.KeyHold),
		logger: logger,
	}
}

// Show implements Display.
func (w *Window) Show(ctx context.Context, img image.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return errors.Wrap(err, "cannot convert frame for display")
	}
	defer func() {
		if err := mat.Close(); err != nil {
			w.logger.Debugw("failed to release frame", "error", err)
		}
	}()
	w.window.IMShow(mat)
	return nil
}

// Poll implements input.Controller. It pumps the window's event queue, so it must be called
// once per shown frame for the window to refresh.
func (w *Window) Poll(ctx context.Context) (input.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for i := 0; i < maxKeysPerPoll; i++ {
		code := w.window.WaitKey(1)
		if code < 0 {
			break
		}
		c, ok := w.codes.Control(code)
		if !ok {
			w.logger.Debugw("ignoring key", "code", code)
			continue
		}
		w.keys.Observe(c)
	}
	if !w.window.IsOpen() {
		// closing the window quits the game the same way escape does
		w.keys.Observe(input.KeyQuit)
	}
	return w.keys.State(), nil
}

// Close implements Display.
func (w *Window) Close() error {
	return errors.Wrapf(w.window.Close(), "cannot close window %q", w.name)
}
