package common

import "math"

// FloorDiv divides a by b rounding toward negative infinity. b must be positive.
func FloorDiv(a, b int) int {
	q := a / b
	if a%b < 0 {
		q--
	}
	return q
}

// FloorMod returns a mod b normalized into [0, b). b must be positive.
func FloorMod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

// FloorToInt floors f and converts it to an int.
func FloorToInt(f float64) int {
	return int(math.Floor(f))
}

// CeilToInt ceils f and converts it to an int.
func CeilToInt(f float64) int {
	return int(math.Ceil(f))
}
