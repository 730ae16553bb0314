package stattest

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// summarize aggregates per-instrument results into a one-sample two-tailed
// t-test with the benchmark return as the null-hypothesis mean.
//
// Degenerate samples (n <= 1 or zero variance) get t=0, p=1, no
// significance, and a confidence interval collapsed to the mean: no division
// by zero, and no significance claimed where none can exist.
func summarize(results []StatResult, benchmarkReturn float64) StatTestSummary {
	if len(results) == 0 {
		return StatTestSummary{BenchmarkReturn: benchmarkReturn, PValue: 1}
	}

	n := len(results)
	returns := make([]float64, n)
	sharpes := make([]float64, n)
	wins := 0
	for i, r := range results {
		returns[i] = r.ReturnPct
		sharpes[i] = r.SharpeRatio
		if r.BeatBenchmark {
			wins++
		}
	}

	meanReturn := stat.Mean(returns, nil)
	stdReturn := 0.0
	if n > 1 {
		stdReturn = stat.StdDev(returns, nil) // sample standard deviation
	}

	summary := StatTestSummary{
		NStocks:         n,
		MeanReturn:      meanReturn,
		StdReturn:       stdReturn,
		WinRate:         float64(wins) / float64(n),
		MeanSharpe:      stat.Mean(sharpes, nil),
		BenchmarkReturn: benchmarkReturn,
		PValue:          1,
		CILow:           meanReturn,
		CIHigh:          meanReturn,
	}

	if n <= 1 || stdReturn == 0 {
		return summary
	}

	stdErr := stdReturn / math.Sqrt(float64(n))
	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 1)}

	summary.TStatistic = (meanReturn - benchmarkReturn) / stdErr
	summary.PValue = 2 * (1 - tDist.CDF(math.Abs(summary.TStatistic)))
	summary.IsSignificant = summary.PValue < 0.05

	margin := tDist.Quantile(0.975) * stdErr
	summary.CILow = meanReturn - margin
	summary.CIHigh = meanReturn + margin

	return summary
}
