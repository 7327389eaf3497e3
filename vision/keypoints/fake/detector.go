// Package fake implements keypoint detectors with scripted output.
package fake

import (
	"encoding/binary"
	"image"
	"sync"

	"go.viam.com/dronechase/vision/keypoints"
)

// Detector returns a scripted set of features per call, ignoring the frame.
type Detector struct {
	mu    sync.Mutex
	next  func(call int) (*keypoints.Features, error)
	calls int

	CloseCount int
}

// NewDetector returns a Detector returning frames in order and nil features once they run out.
func NewDetector(frames ...*keypoints.Features) *Detector {
	return &Detector{next: func(call int) (*keypoints.Features, error) {
		if call >= len(frames) {
			return nil, nil
		}
		return frames[call], nil
	}}
}

// NewShiftingDetector returns a Detector seeing the same n keypoints on every frame, each one
// moved by (dx, dy) pixels from the previous frame. Every keypoint has a distinct descriptor, so
// matching consecutive frames pairs each keypoint with itself.
func NewShiftingDetector(n int, dx, dy float64) *Detector {
	return &Detector{next: func(call int) (*keypoints.Features, error) {
		return ShiftedFeatures(n, float64(call)*dx, float64(call)*dy), nil
	}}
}

// ShiftedFeatures returns n keypoints laid out on a grid and offset by (dx, dy).
func ShiftedFeatures(n int, dx, dy float64) *keypoints.Features {
	f := &keypoints.Features{
		KeyPoints:   make(keypoints.KeyPoints, n),
		Descriptors: make(keypoints.Descriptors, n),
	}
	for i := 0; i < n; i++ {
		f.KeyPoints[i] = keypoints.KeyPoint{
			X:    float64(40+(i%20)*40) + dx,
			Y:    float64(40+(i/20)*40) + dy,
			Size: 31,
		}
		desc := make(keypoints.Descriptor, 4)
		binary.BigEndian.PutUint32(desc, uint32(i))
		f.Descriptors[i] = desc
	}
	return f
}

// Detect returns the next scripted features.
func (d *Detector) Detect(img *image.Gray) (*keypoints.Features, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	call := d.calls
	d.calls++
	return d.next(call)
}

// Calls returns how many frames were detected on.
func (d *Detector) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// Close counts the call.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.CloseCount++
	return nil
}
