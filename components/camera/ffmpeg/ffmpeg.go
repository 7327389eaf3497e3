// Package ffmpeg provides a camera that decodes a video stream with ffmpeg into raw frames.
package ffmpeg

import (
	"context"
	"fmt"
	"image"
	"io"
	"os/exec"
	"sync"

	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"
	viamutils "go.viam.com/utils"

	"go.viam.com/dronechase/components/camera"
	"go.viam.com/dronechase/logging"
)

// SourcePipe makes the camera read its input from Write instead of a file or URL.
const SourcePipe = "pipe:"

// Config is the configuration of an ffmpeg camera.
type Config struct {
	// Source is a file, URL or SourcePipe.
	Source      string
	InputKWArgs map[string]interface{}
	Width       int
	Height      int
}

// TelloConfig returns the configuration decoding the H.264 elementary stream a Tello sends.
func TelloConfig() Config {
	return Config{
		Source: SourcePipe,
		InputKWArgs: map[string]interface{}{
			"f":               "h264",
			"fflags":          "nobuffer",
			"flags":           "low_delay",
			"probesize":       32,
			"analyzeduration": 0,
		},
		Width:  960,
		Height: 720,
	}
}

// Camera runs ffmpeg in the background and keeps the latest decoded frame.
type Camera struct {
	*camera.FrameBuffer
	input *io.PipeWriter

	cancelFunc              func()
	activeBackgroundWorkers sync.WaitGroup
}

// NewCamera starts decoding. With SourcePipe, the encoded stream must be written to the camera.
func NewCamera(cfg Config, logger logging.Logger) (*Camera, error) {
	// make sure ffmpeg is in the path before doing anything else
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, err
	}
	if cfg.Source == "" {
		return nil, errors.New("ffmpeg camera needs a source")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, errors.Errorf("invalid frame size %dx%d", cfg.Width, cfg.Height)
	}

	outArgs := ffmpeg.KwArgs{
		"format":  "rawvideo",
		"pix_fmt": "rgb24",
		"s":       fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
	}

	// instantiate camera with cancellable context that will be applied to all spawned processes
	cancelableCtx, cancel := context.WithCancel(context.Background())
	ffCam := &Camera{FrameBuffer: camera.NewFrameBuffer(), cancelFunc: cancel}

	stream := ffmpeg.Input(cfg.Source, ffmpeg.KwArgs(cfg.InputKWArgs))
	if cfg.Source == SourcePipe {
		encoded, input := io.Pipe()
		ffCam.input = input
		stream = stream.WithInput(encoded)
	}

	// launch thread to run ffmpeg and write raw frames into the pipe
	raw, out := io.Pipe()
	ffCam.activeBackgroundWorkers.Add(1)
	viamutils.ManagedGo(func() {
		stream = stream.Output("pipe:", outArgs)
		stream.Context = cancelableCtx
		err := stream.WithOutput(out).Run()
		if err != nil && cancelableCtx.Err() == nil {
			logger.Errorw("ffmpeg exited", "error", err)
		}
		viamutils.UncheckedError(out.Close())
	}, func() {
		cancel()
		ffCam.activeBackgroundWorkers.Done()
	})

	// launch thread to consume frames from the pipe and store the latest one
	ffCam.activeBackgroundWorkers.Add(1)
	viamutils.ManagedGo(func() {
		frameSize := cfg.Width * cfg.Height * 3
		for {
			buf := make([]byte, frameSize)
			if _, err := io.ReadFull(raw, buf); err != nil {
				if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || cancelableCtx.Err() != nil {
					ffCam.Fail(camera.ErrEndOfStream)
				} else {
					ffCam.Fail(errors.Wrap(err, "cannot read decoded frame"))
				}
				return
			}
			ffCam.Put(rgbToImage(buf, cfg.Width, cfg.Height))
		}
	}, ffCam.activeBackgroundWorkers.Done)

	return ffCam, nil
}

// Write feeds encoded video to ffmpeg when the camera was created with SourcePipe.
func (fc *Camera) Write(p []byte) (int, error) {
	if fc.input == nil {
		return 0, errors.New("camera does not read from a pipe")
	}
	return fc.input.Write(p)
}

// Close stops ffmpeg and waits for the background workers.
func (fc *Camera) Close(ctx context.Context) error {
	fc.cancelFunc()
	var err error
	if fc.input != nil {
		err = fc.input.Close()
	}
	fc.activeBackgroundWorkers.Wait()
	return err
}

// rgbToImage wraps tightly packed rgb24 pixels in an RGBA image.
func rgbToImage(buf []byte, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i, j := 0, 0; i < len(buf); i, j = i+3, j+4 {
		img.Pix[j] = buf[i]
		img.Pix[j+1] = buf[i+1]
		img.Pix[j+2] = buf[i+2]
		img.Pix[j+3] = 0xff
	}
	return img
}
