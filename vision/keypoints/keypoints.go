// Package keypoints contains keypoint and binary descriptor types shared by feature detectors
// and matchers, a brute force Hamming matcher and helpers to plot matches. The OpenCV backed
// ORB detector lives in the cvorb subpackage.
package keypoints

import "image"

// KeyPoint is a detected feature location in image coordinates together with the diameter of
// its meaningful neighborhood.
type KeyPoint struct {
	X, Y float64
	Size float64
}

// KeyPoints is an ordered set of keypoints.
type KeyPoints []KeyPoint

// Features are the keypoints of one frame and their descriptors. Descriptors[i] describes
// KeyPoints[i].
type Features struct {
	KeyPoints   KeyPoints
	Descriptors Descriptors
}

// Len returns the number of described keypoints.
func (f *Features) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Descriptors)
}

// Detector extracts features from a grayscale frame.
type Detector interface {
	Detect(img *image.Gray) (*Features, error)
	Close() error
}
