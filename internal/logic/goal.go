package logic

import "math"

// MLPerKg is the daily water recommendation per kilogram of body weight.
const MLPerKg = 35

// DailyGoalML returns the daily intake goal for a body weight in kg.
// Returns 0 for non-positive weights (no goal).
func DailyGoalML(bodyWeightKg float64) float64 {
	if bodyWeightKg <= 0 {
		return 0
	}
	return math.Round(bodyWeightKg * MLPerKg)
}

// Progress returns cumulative intake as a percentage of goal, capped at 100.
func Progress(cumulativeML, goalML float64) float64 {
	if goalML <= 0 {
		return 0
	}
	p := cumulativeML / goalML * 100
	if p > 100 {
		return 100
	}
	return p
}
