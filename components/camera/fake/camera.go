// Package fake implements a fake camera.
package fake

import (
	"context"
	"image"
	"sync"

	"go.viam.com/dronechase/components/camera"
)

// Camera is a fake camera that returns the frames it was provided, in order.
type Camera struct {
	mu     sync.Mutex
	frames []image.Image
	next   int

	// Loop restarts from the first frame instead of ending the stream.
	Loop       bool
	CloseCount int
}

// NewCamera returns a camera that delivers frames once each and then reports the end of the
// stream.
func NewCamera(frames ...image.Image) *Camera {
	return &Camera{frames: frames}
}

// Next returns the next frame.
func (c *Camera) Next(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.next >= len(c.frames) {
		if !c.Loop || len(c.frames) == 0 {
			return nil, camera.ErrEndOfStream
		}
		c.next = 0
	}
	img := c.frames[c.next]
	c.next++
	return img, nil
}

// Close counts calls.
func (c *Camera) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CloseCount++
	return nil
}
