package telemetry

import (
	"math"
	"testing"
)

func TestComputeDistribution(t *testing.T) {
	values := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0}
	mean, std, p10, p50, p90 := ComputeDistribution(values)

	if math.Abs(mean-0.55) > 0.001 {
		t.Errorf("mean = %v, want 0.55", mean)
	}
	if std <= 0 {
		t.Errorf("std = %v, want positive", std)
	}
	// Empirical quantiles return sample values.
	if p10 != 0.1 {
		t.Errorf("p10 = %v, want 0.1", p10)
	}
	if p50 != 0.5 {
		t.Errorf("p50 = %v, want 0.5", p50)
	}
	if p90 != 0.9 {
		t.Errorf("p90 = %v, want 0.9", p90)
	}
}

func TestComputeDistributionEmpty(t *testing.T) {
	mean, std, p10, p50, p90 := ComputeDistribution(nil)
	if mean != 0 || std != 0 || p10 != 0 || p50 != 0 || p90 != 0 {
		t.Error("empty slice should return all zeros")
	}
}

func TestComputeDistributionDoesNotMutateInput(t *testing.T) {
	values := []float64{3, 1, 2}
	ComputeDistribution(values)
	if values[0] != 3 || values[1] != 1 || values[2] != 2 {
		t.Errorf("input mutated: %v", values)
	}
}

func TestComputeDistributionSingleValue(t *testing.T) {
	mean, std, p10, p50, p90 := ComputeDistribution([]float64{7})
	if mean != 7 || p10 != 7 || p50 != 7 || p90 != 7 {
		t.Errorf("single value stats = %v, %v, %v, %v; want all 7", mean, p10, p50, p90)
	}
	if std != 0 {
		t.Errorf("std of single value = %v, want 0", std)
	}
}
