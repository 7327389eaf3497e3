// Package camera defines the video sources the game reads frames from.
package camera

import (
	"context"
	"image"
	"sync"

	"github.com/pkg/errors"

	"go.viam.com/dronechase/rimage"
)

// ErrEndOfStream is returned once a camera cannot deliver any more frames.
var ErrEndOfStream = errors.New("end of video stream")

// A Camera supplies color frames.
type Camera interface {
	// Next blocks until a frame newer than the previously returned one is available.
	Next(ctx context.Context) (image.Image, error)
	Close(ctx context.Context) error
}

// NewOriented returns a camera delivering frames of cam turned by o and fitted to
// width x height.
func NewOriented(cam Camera, o rimage.Orientation, width, height int) (Camera, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return &orientedCamera{cam: cam, orientation: o, width: width, height: height}, nil
}

type orientedCamera struct {
	cam           Camera
	orientation   rimage.Orientation
	width, height int
}

func (oc *orientedCamera) Next(ctx context.Context) (image.Image, error) {
	img, err := oc.cam.Next(ctx)
	if err != nil {
		return nil, err
	}
	return rimage.Fit(oc.orientation.Apply(img), oc.width, oc.height), nil
}

func (oc *orientedCamera) Close(ctx context.Context) error {
	return oc.cam.Close(ctx)
}

// FrameBuffer holds the latest frame produced by a background decoder and hands each frame
// out at most once.
type FrameBuffer struct {
	mu      sync.Mutex
	latest  image.Image
	seq     uint64
	read    uint64
	err     error
	updated chan struct{}
}

// NewFrameBuffer returns an empty FrameBuffer.
func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{updated: make(chan struct{})}
}

// Put replaces the latest frame, dropping an unread one.
func (fb *FrameBuffer) Put(img image.Image) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if fb.err != nil {
		return
	}
	fb.latest = img
	fb.seq++
	close(fb.updated)
	fb.updated = make(chan struct{})
}

// Fail ends the stream. Next returns err once the frames put before are consumed; a nil err
// ends it with ErrEndOfStream.
func (fb *FrameBuffer) Fail(err error) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if fb.err != nil {
		return
	}
	if err == nil {
		err = ErrEndOfStream
	}
	fb.err = err
	close(fb.updated)
	fb.updated = make(chan struct{})
}

// Next blocks until a frame that was not returned before is available.
func (fb *FrameBuffer) Next(ctx context.Context) (image.Image, error) {
	for {
		fb.mu.Lock()
		if fb.seq > fb.read {
			fb.read = fb.seq
			img := fb.latest
			fb.mu.Unlock()
			return img, nil
		}
		if fb.err != nil {
			err := fb.err
			fb.mu.Unlock()
			return nil, err
		}
		updated := fb.updated
		fb.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-updated:
		}
	}
}
