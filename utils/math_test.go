package utils

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"go.viam.com/test"
)

func TestAngleConversion(t *testing.T) {
	test.That(t, DegToRad(180), test.ShouldAlmostEqual, math.Pi)
	test.That(t, DegToRad(-90), test.ShouldAlmostEqual, -math.Pi/2)
}

func TestClamp(t *testing.T) {
	test.That(t, Clamp(120, -100, 100), test.ShouldEqual, 100)
	test.That(t, Clamp(-120, -100, 100), test.ShouldEqual, -100)
	test.That(t, Clamp(20, -100, 100), test.ShouldEqual, 20)
	test.That(t, Clamp(0.2, 1, 5), test.ShouldEqual, 1.0)
	test.That(t, Clamp(7.0, 1, 5), test.ShouldEqual, 5.0)
	test.That(t, Clamp(int64(-3), 0, 3), test.ShouldEqual, int64(0))
}

func TestSampleRandomIntRange(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	seen := map[int]bool{}
	for i := 0; i < 500; i++ {
		v := SampleRandomIntRange(-2, 2, r)
		test.That(t, v, test.ShouldBeBetweenOrEqual, -2, 2)
		seen[v] = true
	}
	// both ends are inclusive
	test.That(t, seen[-2], test.ShouldBeTrue)
	test.That(t, seen[2], test.ShouldBeTrue)

	test.That(t, SampleRandomIntRange(4, 4, r), test.ShouldEqual, 4)
	test.That(t, SampleRandomIntRange(3, 1, r), test.ShouldBeBetweenOrEqual, 1, 3)
}

func TestRollingAverage(t *testing.T) {
	ra := NewRollingAverage(3)
	test.That(t, len(ra.data), test.ShouldEqual, 3)
	test.That(t, ra.Average(), test.ShouldEqual, time.Duration(0))
	test.That(t, ra.Rate(), test.ShouldEqual, 0.0)

	ra.Add(10 * time.Millisecond)
	test.That(t, ra.Average(), test.ShouldEqual, 10*time.Millisecond)
	test.That(t, ra.Rate(), test.ShouldAlmostEqual, 100.0)

	ra.Add(20 * time.Millisecond)
	ra.Add(30 * time.Millisecond)
	test.That(t, ra.Average(), test.ShouldEqual, 20*time.Millisecond)

	// oldest sample (10ms) is evicted
	ra.Add(40 * time.Millisecond)
	test.That(t, ra.Average(), test.ShouldEqual, 30*time.Millisecond)
}
