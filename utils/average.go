package utils

import "time"

// RollingAverage keeps the last numSamples durations and reports their mean.
type RollingAverage struct {
	data   []time.Duration
	pos    int
	filled int
}

// NewRollingAverage returns a RollingAverage over numSamples samples.
func NewRollingAverage(numSamples int) *RollingAverage {
	if numSamples < 1 {
		numSamples = 1
	}
	return &RollingAverage{data: make([]time.Duration, numSamples)}
}

// Add records a sample, evicting the oldest one once the window is full.
func (ra *RollingAverage) Add(x time.Duration) {
	ra.data[ra.pos] = x
	ra.pos++
	if ra.pos >= len(ra.data) {
		ra.pos = 0
	}
	if ra.filled < len(ra.data) {
		ra.filled++
	}
}

// Average returns the mean of the recorded samples, or 0 when nothing was recorded.
func (ra *RollingAverage) Average() time.Duration {
	if ra.filled == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range ra.data[:ra.filled] {
		sum += d
	}

	return sum / time.Duration(ra.filled)
}

// Rate returns how many samples of the current average fit in one second, e.g. frames per
// second when the samples are frame durations.
func (ra *RollingAverage) Rate() float64 {
	avg := ra.Average()
	if avg <= 0 {
		return 0
	}
	return float64(time.Second) / float64(avg)
}
