package solver

import (
	"math"
	"testing"
)

func almost(a, b float64) bool {
	return math.Abs(a-b) < 1e-12
}

func TestCoefficientsEuler(t *testing.T) {
	a := Coefficients(1)
	if len(a) != 1 || len(a[0]) != 1 || len(a[0][0]) != 1 {
		t.Fatalf("unexpected table shape: %v", a)
	}
	if !almost(a[0][0][0], 1.0) {
		t.Errorf("method 1 must be the Euler step, got %v", a[0][0])
	}
}

func TestCoefficientsMidpoint(t *testing.T) {
	a := Coefficients(2)

	// Stage 1 advances to the midpoint on the step-start flux.
	if len(a[1][0]) != 1 || !almost(a[1][0][0], 0.5) {
		t.Errorf("method 2 stage 1: got %v, want [0.5]", a[1][0])
	}
	// Stage 2 completes the step on the midpoint flux alone.
	if len(a[1][1]) != 2 || !almost(a[1][1][0], 0.0) || !almost(a[1][1][1], 1.0) {
		t.Errorf("method 2 stage 2: got %v, want [0 1]", a[1][1])
	}
}

func TestCoefficientsThirdOrderClosure(t *testing.T) {
	a := Coefficients(3)

	row := a[2][2]
	want := []float64{0.25, 0.0, 0.75}
	if len(row) != 3 {
		t.Fatalf("method 3 stage 3: got %v", row)
	}
	for i := range want {
		if !almost(row[i], want[i]) {
			t.Errorf("method 3 stage 3: got %v, want %v", row, want)
			break
		}
	}
}

func TestCoefficientsRowSums(t *testing.T) {
	// Integrating a constant flux of 1 over [0, s/m] must yield s/m, so
	// each row sums to its stage fraction and each closing row to 1.
	a := Coefficients(6)
	for m := 1; m <= 6; m++ {
		for s := 1; s <= m; s++ {
			row := a[m-1][s-1]
			if len(row) != s {
				t.Fatalf("method %d stage %d: %d entries, want %d", m, s, len(row), s)
			}
			sum := 0.0
			for _, w := range row {
				sum += w
			}
			if !almost(sum, float64(s)/float64(m)) {
				t.Errorf("method %d stage %d: row sum %f, want %f", m, s, sum, float64(s)/float64(m))
			}
		}
	}
}
