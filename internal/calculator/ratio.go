package calculator

import (
	"math"
	"slices"
)

// ComputeRatios returns each member's share of the common bill given their monthly surplus
// (income minus constrained expenses).
//
// Algorithm:
// - remain = max(surplus, 0): nobody contributes from a deficit
// - if the remains add up to zero, everybody gets 1/n
// - otherwise ratio = remain / Σ remain
//
// The ratios always add up to 1 for a non-empty input.
func ComputeRatios(surpluses []float64) []float64 {
	ratios := make([]float64, len(surpluses))
	if len(surpluses) == 0 {
		return ratios
	}

	remains := make([]float64, len(surpluses))
	total := 0.0
	for i, s := range surpluses {
		if math.IsNaN(s) || math.IsInf(s, 0) || s < 0 {
			s = 0
		}
		remains[i] = s
		total += s
	}

	if total == 0 {
		equal := 1 / float64(len(surpluses))
		for i := range ratios {
			ratios[i] = equal
		}
		return ratios
	}

	if math.IsInf(total, 0) {
		// every remain is finite but their sum is not: divide by the largest one first
		largest := slices.Max(remains)
		total = 0
		for i := range remains {
			remains[i] /= largest
			total += remains[i]
		}
	}

	for i, remain := range remains {
		ratios[i] = remain / total
	}
	return ratios
}
