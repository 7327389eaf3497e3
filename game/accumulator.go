package game

import "github.com/golang/geo/r3"

// Accumulator collects the drone motion measured between ticks, in cm, until the target
// consumes it.
type Accumulator struct {
	total r3.Vector
}

// Add records motion d.
func (a *Accumulator) Add(d r3.Vector) {
	a.total = a.total.Add(d)
}

// Sub removes motion d, typically the part that was just applied to the target.
func (a *Accumulator) Sub(d r3.Vector) {
	a.total = a.total.Sub(d)
}

// Take returns the unconsumed motion and subtracts it.
func (a *Accumulator) Take() r3.Vector {
	d := a.total
	a.Sub(d)
	return d
}

// Reset drops all unconsumed motion.
func (a *Accumulator) Reset() {
	a.total = r3.Vector{}
}
