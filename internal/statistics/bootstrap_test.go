package statistics

import (
	"math"
	"testing"
)

func TestBootstrapCI_EmptyValues(t *testing.T) {
	ci := BootstrapCI(nil, 0.95)
	if ci.Mean != 0.0 || ci.Lower != 0.0 || ci.Upper != 0.0 {
		t.Errorf("expected zero CI for empty input, got %+v", ci)
	}
	if ci.NumBootstraps != 0 {
		t.Errorf("expected 0 bootstraps for empty input, got %d", ci.NumBootstraps)
	}
}

func TestBootstrapCI_SingleValue(t *testing.T) {
	ci := BootstrapCI([]float64{412}, 0.95)
	if ci.Mean != 412 || ci.Lower != 412 || ci.Upper != 412 {
		t.Errorf("expected degenerate CI for single value, got %+v", ci)
	}
}

func TestBootstrapCI_IdenticalValues(t *testing.T) {
	ci := BootstrapCIWithSeed([]float64{25, 25, 25, 25}, 0.95, 42)
	if math.Abs(ci.Lower-25) > 1e-9 || math.Abs(ci.Upper-25) > 1e-9 {
		t.Errorf("expected CI [25, 25] for identical values, got [%f, %f]", ci.Lower, ci.Upper)
	}
}

func TestBootstrapCI_RunTimes(t *testing.T) {
	// milliseconds per run of one method
	times := []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}
	ci := BootstrapCIWithSeed(times, 0.95, 42)

	if math.Abs(ci.Mean-55) > 1e-9 {
		t.Errorf("expected mean 55, got %f", ci.Mean)
	}
	if ci.Lower >= ci.Mean {
		t.Errorf("lower bound %f should be < mean %f", ci.Lower, ci.Mean)
	}
	if ci.Upper <= ci.Mean {
		t.Errorf("upper bound %f should be > mean %f", ci.Upper, ci.Mean)
	}
	if ci.Lower < 10 || ci.Upper > 100 {
		t.Errorf("CI should stay within the observed range, got [%f, %f]", ci.Lower, ci.Upper)
	}
	if ci.NumBootstraps != DefaultBootstrapIterations {
		t.Errorf("expected %d bootstraps, got %d", DefaultBootstrapIterations, ci.NumBootstraps)
	}
}

func TestBootstrapCI_Deterministic(t *testing.T) {
	times := []float64{3, 9, 4, 12, 7}
	a := BootstrapCIWithSeed(times, 0.95, 7)
	b := BootstrapCIWithSeed(times, 0.95, 7)
	if a != b {
		t.Errorf("same seed should give the same interval: %+v vs %+v", a, b)
	}
}

func TestBootstrapCI_DifferentConfidenceLevels(t *testing.T) {
	times := []float64{5, 8, 13, 21, 34, 55, 89}
	ci90 := BootstrapCIWithSeed(times, 0.90, 1)
	ci99 := BootstrapCIWithSeed(times, 0.99, 1)

	if ci99.Upper-ci99.Lower < ci90.Upper-ci90.Lower {
		t.Errorf("99%% interval [%f, %f] should not be narrower than 90%% [%f, %f]",
			ci99.Lower, ci99.Upper, ci90.Lower, ci90.Upper)
	}
}
