package calibrate

import (
	"errors"
	"math"
)

// SSE is the sum of squared errors between an observed and a simulated
// series of equal length.
func SSE(observed, simulated []float64) (float64, error) {
	if len(observed) != len(simulated) {
		return 0, errors.New("calibrate: series lengths differ")
	}
	sum := 0.0
	for i := range observed {
		d := observed[i] - simulated[i]
		sum += d * d
	}
	return sum, nil
}

// NashSutcliffe is the Nash-Sutcliffe model efficiency: 1 for a perfect
// fit, 0 for a model no better than the observed mean, negative below
// that. Returns NaN when the observed series has zero variance.
func NashSutcliffe(observed, simulated []float64) (float64, error) {
	sse, err := SSE(observed, simulated)
	if err != nil {
		return 0, err
	}
	if len(observed) == 0 {
		return 0, errors.New("calibrate: empty series")
	}
	mean := 0.0
	for _, v := range observed {
		mean += v
	}
	mean /= float64(len(observed))
	variance := 0.0
	for _, v := range observed {
		d := v - mean
		variance += d * d
	}
	if variance == 0 {
		return math.NaN(), nil
	}
	return 1 - sse/variance, nil
}
