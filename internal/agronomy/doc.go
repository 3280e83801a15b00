// Package agronomy is the decision engine of the advisor: an irrigation
// recommender, a moisture trend classifier and a yield predictor. All
// calculators are pure functions of their input and of the read-only Tables
// injected at construction; they perform no I/O.
package agronomy
