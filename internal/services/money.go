package services

import "math"

// RoundCurrency rounds a monetary amount half-up to 2 decimal places.
// Commission amounts are always rounded through here so the rounding
// policy stays in one place; amounts are non-negative by contract.
func RoundCurrency(amount float64) float64 {
	return math.Floor(amount*100+0.5) / 100
}
