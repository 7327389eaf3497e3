package keypoints

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// MatchingConfig contains the parameters for matching descriptors.
type MatchingConfig struct {
	DoCrossCheck bool `json:"cross_check"`
	// MaxDist drops matches whose distance is not below it. 0 keeps every match.
	MaxDist int `json:"max_distance"`
}

// DescriptorMatch pairs descriptor QueryIdx of the query set with descriptor TrainIdx of the
// train set.
type DescriptorMatch struct {
	QueryIdx int
	TrainIdx int
	Distance float64
}

// Matcher finds, for descriptors of a query frame, their nearest neighbors in a train frame.
// Implementations return matches sorted by ascending distance.
type Matcher interface {
	Match(query, train Descriptors) ([]DescriptorMatch, error)
	Close() error
}

// BruteForceMatcher compares every query descriptor against every train descriptor under the
// Hamming distance.
type BruteForceMatcher struct {
	cfg MatchingConfig
}

// NewBruteForceMatcher returns a BruteForceMatcher using cfg.
func NewBruteForceMatcher(cfg MatchingConfig) *BruteForceMatcher {
	return &BruteForceMatcher{cfg: cfg}
}

// Match implements Matcher.
func (m *BruteForceMatcher) Match(query, train Descriptors) ([]DescriptorMatch, error) {
	return MatchDescriptors(query, train, &m.cfg)
}

// Close implements Matcher.
func (m *BruteForceMatcher) Close() error {
	return nil
}

// MatchDescriptors takes 2 sets of descriptors and performs matching. Matches are returned
// best first.
func MatchDescriptors(desc1, desc2 Descriptors, cfg *MatchingConfig) ([]DescriptorMatch, error) {
	if len(desc1) == 0 || len(desc2) == 0 {
		return nil, nil
	}
	distances, err := DescriptorsHammingDistance(desc1, desc2)
	if err != nil {
		return nil, err
	}
	indices2 := argMinPerRow(distances)
	// mask for valid indices
	keep := make([]bool, len(desc1))
	for i := range keep {
		keep[i] = true
	}
	if cfg.DoCrossCheck {
		// compute argmin per rows on transposed mat
		matches1 := argMinPerRow(transpose(distances))
		for i := range keep {
			if matches1[indices2[i]] != i {
				keep[i] = false
			}
		}
	}
	if cfg.MaxDist > 0 {
		for i := range keep {
			if distances[i][indices2[i]] >= cfg.MaxDist {
				keep[i] = false
			}
		}
	}

	matches := make([]DescriptorMatch, 0, len(desc1))
	for i := range desc1 {
		if keep[i] {
			matches = append(matches, DescriptorMatch{
				QueryIdx: i,
				TrainIdx: indices2[i],
				Distance: float64(distances[i][indices2[i]]),
			})
		}
	}
	return SortMatches(matches), nil
}

// SortMatches returns the matches ordered by ascending distance. Matches of equal distance keep
// their relative order.
func SortMatches(matches []DescriptorMatch) []DescriptorMatch {
	dists := make([]float64, len(matches))
	for i, m := range matches {
		dists[i] = m.Distance
	}
	sortedIndices := make([]int, len(matches))
	floats.ArgsortStable(dists, sortedIndices)

	sorted := make([]DescriptorMatch, len(matches))
	for i, idx := range sortedIndices {
		sorted[i] = matches[idx]
	}
	return sorted
}

// GetMatchingKeyPoints takes the matches and the keypoints and returns the corresponding
// keypoints that are matched, query keypoints first.
func GetMatchingKeyPoints(matches []DescriptorMatch, queryKps, trainKps KeyPoints) (KeyPoints, KeyPoints, error) {
	matchedQuery := make(KeyPoints, len(matches))
	matchedTrain := make(KeyPoints, len(matches))
	for i, match := range matches {
		if match.QueryIdx < 0 || match.QueryIdx >= len(queryKps) {
			return nil, nil, errors.Errorf("match %d references query keypoint %d of %d", i, match.QueryIdx, len(queryKps))
		}
		if match.TrainIdx < 0 || match.TrainIdx >= len(trainKps) {
			return nil, nil, errors.Errorf("match %d references train keypoint %d of %d", i, match.TrainIdx, len(trainKps))
		}
		matchedQuery[i] = queryKps[match.QueryIdx]
		matchedTrain[i] = trainKps[match.TrainIdx]
	}
	return matchedQuery, matchedTrain, nil
}
