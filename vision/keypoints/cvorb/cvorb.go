// Package cvorb adapts OpenCV's ORB detector and brute force matcher to the keypoints package.
package cvorb

import (
	"image"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"go.viam.com/dronechase/vision/keypoints"
)

// ORBConfig contains the parameters passed to OpenCV when creating the detector. Zero values
// fall back to OpenCV's defaults.
type ORBConfig struct {
	MaxFeatures   int     `json:"max_features"`
	ScaleFactor   float32 `json:"scale_factor"`
	Levels        int     `json:"n_layers"`
	FastThreshold int     `json:"fast_threshold"`
}

func (cfg ORBConfig) withDefaults() ORBConfig {
	if cfg.MaxFeatures <= 0 {
		cfg.MaxFeatures = 500
	}
	if cfg.ScaleFactor <= 1 {
		cfg.ScaleFactor = 1.2
	}
	if cfg.Levels <= 0 {
		cfg.Levels = 8
	}
	if cfg.FastThreshold <= 0 {
		cfg.FastThreshold = 20
	}
	return cfg
}

// Detector finds ORB keypoints and computes their descriptors.
type Detector struct {
	orb gocv.ORB
}

// NewDetector returns an ORB detector. It must be closed to release the OpenCV object.
func NewDetector(cfg ORBConfig) *Detector {
	cfg = cfg.withDefaults()
	return &Detector{
		orb: gocv.NewORBWithParams(cfg.MaxFeatures, cfg.ScaleFactor, cfg.Levels, 31, 0, 2,
			gocv.ORBScoreTypeHarris, 31, cfg.FastThreshold),
	}
}

// Detect implements keypoints.Detector.
func (d *Detector) Detect(img *image.Gray) (*keypoints.Features, error) {
	mat, err := gocv.ImageGrayToMatGray(img)
	if err != nil {
		return nil, errors.Wrap(err, "cannot convert frame for feature detection")
	}
	defer mat.Close()

	mask := gocv.NewMat()
	defer mask.Close()

	cvKps, desc := d.orb.DetectAndCompute(mat, mask)
	defer desc.Close()

	features := &keypoints.Features{
		KeyPoints:   make(keypoints.KeyPoints, len(cvKps)),
		Descriptors: descriptorsFromMat(desc),
	}
	for i, kp := range cvKps {
		features.KeyPoints[i] = keypoints.KeyPoint{X: kp.X, Y: kp.Y, Size: kp.Size}
	}
	if len(features.Descriptors) != len(features.KeyPoints) {
		return nil, errors.Errorf("got %d descriptors for %d keypoints", len(features.Descriptors), len(features.KeyPoints))
	}
	return features, nil
}

// Close releases the OpenCV detector.
func (d *Detector) Close() error {
	return d.orb.Close()
}

// Matcher is OpenCV's brute force matcher under the Hamming norm.
type Matcher struct {
	bf      gocv.BFMatcher
	maxDist int
}

// NewMatcher returns an OpenCV backed matcher. MaxDist of cfg is applied after matching.
func NewMatcher(cfg keypoints.MatchingConfig) *Matcher {
	return &Matcher{bf: gocv.NewBFMatcherWithParams(gocv.NormHamming, cfg.DoCrossCheck), maxDist: cfg.MaxDist}
}

// Match implements keypoints.Matcher.
func (m *Matcher) Match(query, train keypoints.Descriptors) ([]keypoints.DescriptorMatch, error) {
	if len(query) == 0 || len(train) == 0 {
		return nil, nil
	}
	queryMat, err := descriptorsToMat(query)
	if err != nil {
		return nil, err
	}
	defer queryMat.Close()
	trainMat, err := descriptorsToMat(train)
	if err != nil {
		return nil, err
	}
	defer trainMat.Close()

	cvMatches := m.bf.Match(queryMat, trainMat)
	matches := make([]keypoints.DescriptorMatch, 0, len(cvMatches))
	for _, dm := range cvMatches {
		if m.maxDist > 0 && dm.Distance >= float64(m.maxDist) {
			continue
		}
		matches = append(matches, keypoints.DescriptorMatch{QueryIdx: dm.QueryIdx, TrainIdx: dm.TrainIdx, Distance: dm.Distance})
	}
	return keypoints.SortMatches(matches), nil
}

// Close releases the OpenCV matcher.
func (m *Matcher) Close() error {
	return m.bf.Close()
}

func descriptorsFromMat(desc gocv.Mat) keypoints.Descriptors {
	if desc.Empty() {
		return nil
	}
	rows, cols := desc.Rows(), desc.Cols()
	data := desc.ToBytes()
	out := make(keypoints.Descriptors, rows)
	for i := range out {
		row := make(keypoints.Descriptor, cols)
		copy(row, data[i*cols:(i+1)*cols])
		out[i] = row
	}
	return out
}

func descriptorsToMat(desc keypoints.Descriptors) (gocv.Mat, error) {
	cols := len(desc[0])
	data := make([]byte, 0, len(desc)*cols)
	for i, d := range desc {
		if len(d) != cols {
			return gocv.Mat{}, errors.Errorf("descriptor %d has length %d, expected %d", i, len(d), cols)
		}
		data = append(data, d...)
	}
	return gocv.NewMatFromBytes(len(desc), cols, gocv.MatTypeCV8U, data)
}
