package metrics

import (
	"github.com/montanaflynn/stats"
	"github.com/ontobench/ontobench/internal/statistics"
)

// Description summarizes a sample of durations or scores.
type Description struct {
	N      int
	Mean   float64
	Median float64
	P95    float64
	StdDev float64
	Min    float64
	Max    float64
	CI     statistics.ConfidenceInterval
}

// Describe computes summary statistics of values and a bootstrap 95%
// interval of the mean drawn with seed. Empty input gives a zero
// Description.
func Describe(values []float64, seed uint64) (Description, error) {
	d := Description{N: len(values)}
	if len(values) == 0 {
		return d, nil
	}

	var err error
	if d.Mean, err = stats.Mean(values); err != nil {
		return d, err
	}
	if d.Median, err = stats.Median(values); err != nil {
		return d, err
	}
	if d.Min, err = stats.Min(values); err != nil {
		return d, err
	}
	if d.Max, err = stats.Max(values); err != nil {
		return d, err
	}
	if len(values) > 1 {
		if d.StdDev, err = stats.StandardDeviationSample(values); err != nil {
			return d, err
		}
	}
	// Percentile needs enough values to interpolate; small samples report
	// the maximum instead.
	if d.P95, err = stats.Percentile(values, 95); err != nil {
		d.P95 = d.Max
	}

	d.CI = statistics.BootstrapCIWithSeed(values, 0.95, seed)
	return d, nil
}
