// Package scoring holds the small table-driven step functions shared by the
// agronomic calculators: each maps one raw variable to a score or a factor.
package scoring

import (
	"math"
	"sort"
)

// MaxImpact bounds every factor impact to [-MaxImpact, MaxImpact].
const MaxImpact = 100.0

// Predicate reports whether a raw value falls into a step.
type Predicate func(x float64) bool

// Step pairs a predicate with the value returned when it matches.
type Step struct {
	When  Predicate
	Value float64
}

// StepTable evaluates its steps in order; the first match wins and Fallback
// is returned when none matches.
type StepTable struct {
	Steps    []Step
	Fallback float64
}

func (t StepTable) Score(x float64) float64 {
	for _, s := range t.Steps {
		if s.When != nil && s.When(x) {
			return s.Value
		}
	}
	return t.Fallback
}

// Impact is Score clamped to the impact range.
func (t StepTable) Impact(x float64) float64 {
	return Clamp(t.Score(x), -MaxImpact, MaxImpact)
}

// Between matches lo <= x <= hi.
func Between(lo, hi float64) Predicate {
	return func(x float64) bool { return x >= lo && x <= hi }
}

// HalfOpen matches lo <= x < hi.
func HalfOpen(lo, hi float64) Predicate {
	return func(x float64) bool { return x >= lo && x < hi }
}

// OpenClosed matches lo < x <= hi.
func OpenClosed(lo, hi float64) Predicate {
	return func(x float64) bool { return x > lo && x <= hi }
}

func AtLeast(v float64) Predicate { return func(x float64) bool { return x >= v } }
func AtMost(v float64) Predicate  { return func(x float64) bool { return x <= v } }
func Above(v float64) Predicate   { return func(x float64) bool { return x > v } }
func Below(v float64) Predicate   { return func(x float64) bool { return x < v } }

// Ladder maps x onto len(Bounds)+1 bands delimited by ascending Bounds.
// A value equal to a bound belongs to the upper band unless EdgeToLower is set.
type Ladder struct {
	Bounds      []float64
	Values      []float64
	EdgeToLower bool
}

func (l Ladder) Value(x float64) float64 {
	if len(l.Values) == 0 {
		return 0
	}
	i := sort.Search(len(l.Bounds), func(i int) bool {
		if l.EdgeToLower {
			return l.Bounds[i] >= x
		}
		return l.Bounds[i] > x
	})
	if i >= len(l.Values) {
		i = len(l.Values) - 1
	}
	return l.Values[i]
}

// Valid reports whether the ladder is well formed.
func (l Ladder) Valid() bool {
	if len(l.Values) != len(l.Bounds)+1 {
		return false
	}
	return sort.Float64sAreSorted(l.Bounds)
}

func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Finite reports whether v is neither NaN nor infinite.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
