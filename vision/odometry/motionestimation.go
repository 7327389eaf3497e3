// Package odometry estimates how the scene moved between consecutive video frames. The game uses
// the estimate as a proxy for the drone's own lateral and vertical motion.
package odometry

import (
	"image"
	"math"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/dronechase/logging"
	"go.viam.com/dronechase/vision/keypoints"
)

// DefaultKeepFraction is the share of best matches used for an estimate.
const DefaultKeepFraction = 0.1

// Displacement is the mean image-space motion of matched features from the previous frame to
// the current one, in pixels. DSize is the mean change of feature size and serves as a depth
// proxy: features grow as the camera approaches them.
type Displacement struct {
	DX, DY float64
	DSize  float64
}

// Estimate is the outcome of registering two frames.
type Estimate struct {
	Displacement
	// OK is false when no reliable estimate could be made; Displacement is then zero.
	OK bool
	// Kept is the number of matches the displacement was averaged over.
	Kept int
	// Prev and Curr are the kept keypoints, Prev[i] matched with Curr[i].
	Prev, Curr keypoints.KeyPoints
}

// EstimateDisplacement matches the current features against the previous ones, keeps the best
// floor(keepFraction*N) of the N matches and averages their motion. Too few features or matches
// yield a zero, not OK estimate.
func EstimateDisplacement(
	prev, curr *keypoints.Features,
	matcher keypoints.Matcher,
	keepFraction float64,
) (Estimate, error) {
	if prev.Len() == 0 || curr.Len() == 0 {
		return Estimate{}, nil
	}
	matches, err := matcher.Match(curr.Descriptors, prev.Descriptors)
	if err != nil {
		return Estimate{}, errors.Wrap(err, "cannot match descriptors")
	}
	// not every Matcher sorts
	matches = keypoints.SortMatches(matches)

	keep := int(math.Floor(keepFraction * float64(len(matches))))
	if keep <= 0 {
		return Estimate{}, nil
	}
	matches = matches[:keep]

	currKps, prevKps, err := keypoints.GetMatchingKeyPoints(matches, curr.KeyPoints, prev.KeyPoints)
	if err != nil {
		return Estimate{}, err
	}
	dxs := make([]float64, keep)
	dys := make([]float64, keep)
	dSizes := make([]float64, keep)
	for i := range matches {
		dxs[i] = currKps[i].X - prevKps[i].X
		dys[i] = currKps[i].Y - prevKps[i].Y
		dSizes[i] = currKps[i].Size - prevKps[i].Size
	}

	est := Estimate{OK: true, Kept: keep, Prev: prevKps, Curr: currKps}
	if est.DX, err = stats.Mean(dxs); err != nil {
		return Estimate{}, err
	}
	if est.DY, err = stats.Mean(dys); err != nil {
		return Estimate{}, err
	}
	if est.DSize, err = stats.Mean(dSizes); err != nil {
		return Estimate{}, err
	}
	return est, nil
}

// Estimator registers every frame against the one before it. It holds exactly one previous
// frame's features.
type Estimator struct {
	detector     keypoints.Detector
	matcher      keypoints.Matcher
	keepFraction float64
	logger       logging.Logger

	prev *keypoints.Features
}

// NewEstimator returns an Estimator. A keepFraction outside (0, 1] falls back to
// DefaultKeepFraction.
func NewEstimator(
	detector keypoints.Detector,
	matcher keypoints.Matcher,
	keepFraction float64,
	logger logging.Logger,
) *Estimator {
	if keepFraction <= 0 || keepFraction > 1 {
		keepFraction = DefaultKeepFraction
	}
	return &Estimator{
		detector:     detector,
		matcher:      matcher,
		keepFraction: keepFraction,
		logger:       logger,
	}
}

// Process detects features on img and estimates the displacement since the previous frame.
func (e *Estimator) Process(img *image.Gray) (Estimate, error) {
	features, err := e.detector.Detect(img)
	if err != nil {
		return Estimate{}, err
	}
	return e.Next(features)
}

// Next estimates the displacement from the stored features to curr, then stores curr. The first
// frame of a session only primes the estimator.
func (e *Estimator) Next(curr *keypoints.Features) (Estimate, error) {
	prev := e.prev
	e.prev = curr
	if prev == nil {
		return Estimate{}, nil
	}
	est, err := EstimateDisplacement(prev, curr, e.matcher, e.keepFraction)
	if err != nil {
		return Estimate{}, err
	}
	if !est.OK {
		e.logger.Debugw("no reliable displacement estimate", "prev_features", prev.Len(), "curr_features", curr.Len())
	}
	return est, nil
}

// Reset forgets the previous frame, e.g. after the video stream stalled.
func (e *Estimator) Reset() {
	e.prev = nil
}

// Close releases the detector and matcher.
func (e *Estimator) Close() error {
	return multierr.Combine(e.detector.Close(), e.matcher.Close())
}
