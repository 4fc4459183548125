package models

import "fmt"

// TargetType decides how a day's total is compared against a goal.
type TargetType string

const (
	// Minimum goals are met when the day's total is at least the target (water, sleep).
	Minimum TargetType = "min"
	// Maximum goals are met when the day's total stays at or below the target (spend, calories).
	Maximum TargetType = "max"
)

// ParseTargetType converts the "min"/"max" configuration value.
func ParseTargetType(s string) (TargetType, error) {
	switch TargetType(s) {
	case Minimum, Maximum:
		return TargetType(s), nil
	}
	return "", fmt.Errorf("invalid target type %q (want \"min\" or \"max\")", s)
}

// Valid reports whether t is Minimum or Maximum.
func (t TargetType) Valid() bool {
	return t == Minimum || t == Maximum
}

// Reached reports whether daySum satisfies target under t.
func (t TargetType) Reached(daySum, target float64) bool {
	switch t {
	case Minimum:
		return daySum >= target
	case Maximum:
		return daySum <= target
	}
	return false
}
