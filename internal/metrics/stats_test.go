package metrics

import (
	"math"
	"testing"
)

const epsilon = 1e-9

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestDescribe(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	d, err := Describe(values, 7)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}

	checks := []struct {
		name      string
		got, want float64
	}{
		{"mean", d.Mean, 5.5},
		{"median", d.Median, 5.5},
		{"p95", d.P95, 9.5},
		{"min", d.Min, 1},
		{"max", d.Max, 10},
		{"stddev", d.StdDev, math.Sqrt(55.0 / 6.0)},
	}
	for _, c := range checks {
		if !approxEqual(c.got, c.want) {
			t.Errorf("%s = %f, want %f", c.name, c.got, c.want)
		}
	}
	if d.N != 10 {
		t.Errorf("N = %d, want 10", d.N)
	}
	if d.CI.Lower > d.Mean || d.CI.Upper < d.Mean {
		t.Errorf("CI [%f, %f] does not contain mean %f", d.CI.Lower, d.CI.Upper, d.Mean)
	}
}

func TestDescribe_Empty(t *testing.T) {
	d, err := Describe(nil, 1)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if d.N != 0 || d.Mean != 0 {
		t.Errorf("expected zero description, got %+v", d)
	}
}

func TestDescribe_Single(t *testing.T) {
	d, err := Describe([]float64{42}, 1)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if d.Mean != 42 || d.Median != 42 || d.P95 != 42 || d.StdDev != 0 {
		t.Errorf("unexpected description %+v", d)
	}
	if d.CI.Lower != 42 || d.CI.Upper != 42 {
		t.Errorf("CI = [%f, %f], want [42, 42]", d.CI.Lower, d.CI.Upper)
	}
}

func TestDescribe_Deterministic(t *testing.T) {
	values := []float64{12, 40, 7, 19, 33, 25}
	a, _ := Describe(values, 99)
	b, _ := Describe(values, 99)
	if a.CI != b.CI {
		t.Errorf("same seed gave different intervals: %+v vs %+v", a.CI, b.CI)
	}
}
