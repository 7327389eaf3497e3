package keypoints

import (
	"math/bits"

	"github.com/pkg/errors"
)

// Descriptor is a binary feature descriptor, e.g. the 256 bit rBRIEF string ORB produces.
type Descriptor []byte

// Descriptors is a set of descriptors of equal length.
type Descriptors []Descriptor

// HammingDistance returns the number of differing bits between two descriptors of the same length.
func HammingDistance(d1, d2 Descriptor) (int, error) {
	if len(d1) != len(d2) {
		return 0, errors.Errorf("descriptors must have same length, got %d and %d", len(d1), len(d2))
	}
	dist := 0
	for i := range d1 {
		dist += bits.OnesCount8(d1[i] ^ d2[i])
	}
	return dist, nil
}

// DescriptorsHammingDistance computes the pairwise distances between 2 sets of descriptors. Row i
// holds the distances from desc1[i] to every descriptor in desc2.
func DescriptorsHammingDistance(desc1, desc2 Descriptors) ([][]int, error) {
	distances := make([][]int, len(desc1))
	for i := range desc1 {
		distances[i] = make([]int, len(desc2))
		for j := range desc2 {
			d, err := HammingDistance(desc1[i], desc2[j])
			if err != nil {
				return nil, err
			}
			distances[i][j] = d
		}
	}
	return distances, nil
}

// argMinPerRow returns the column index of the smallest value of each row. Ties go to the
// lowest index.
func argMinPerRow(distances [][]int) []int {
	out := make([]int, len(distances))
	for i, row := range distances {
		best := 0
		for j := 1; j < len(row); j++ {
			if row[j] < row[best] {
				best = j
			}
		}
		out[i] = best
	}
	return out
}

func transpose(distances [][]int) [][]int {
	if len(distances) == 0 {
		return nil
	}
	out := make([][]int, len(distances[0]))
	for j := range out {
		out[j] = make([]int, len(distances))
		for i := range distances {
			out[j][i] = distances[i][j]
		}
	}
	return out
}
