package matching

import "fuzzyjoin/internal/records"

// Constraint is the secondary predicate a title match must satisfy.
type Constraint interface {
	Holds(left, right records.Record) bool
}

// RangeConstraint requires the right Value to lie within the left
// [Min, Max] interval, bounds included. Missing, null or non-numeric
// operands fail.
type RangeConstraint struct {
	Min   string
	Max   string
	Value string
}

// Holds implements Constraint.
func (c RangeConstraint) Holds(left, right records.Record) bool {
	value, ok := records.Float(right[c.Value])
	if !ok {
		return false
	}
	lo, ok := records.Float(left[c.Min])
	if !ok {
		return false
	}
	hi, ok := records.Float(left[c.Max])
	if !ok {
		return false
	}
	return lo <= value && value <= hi
}

// NoConstraint accepts every pair.
type NoConstraint struct{}

// Holds implements Constraint.
func (NoConstraint) Holds(records.Record, records.Record) bool { return true }
