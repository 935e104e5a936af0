package orchestrator

import "math"

// dbLin converts a decibel value to linear amplitude: 10^(db/20).
func dbLin(db float64) float64 {
	return math.Pow(10, db/20)
}

// linDb converts a linear amplitude value to decibels: 20*log10(lin).
func linDb(lin float64) float64 {
	return 20 * math.Log10(lin)
}
