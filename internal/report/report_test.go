package report

import (
	"strings"
	"testing"

	"edgelab/internal/stattest"
)

func TestFormatInt(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-4500, "-4,500"},
	}
	for _, c := range cases {
		if got := FormatInt(c.in); got != c.want {
			t.Errorf("FormatInt(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFormatPct(t *testing.T) {
	if got := FormatPct(0.0525); got != "5.25%" {
		t.Errorf("FormatPct = %q", got)
	}
	if got := FormatPct(-0.1); got != "-10.00%" {
		t.Errorf("FormatPct = %q", got)
	}
}

func TestSummary(t *testing.T) {
	s := stattest.StatTestSummary{
		NStocks:         4,
		MeanReturn:      -0.045,
		StdReturn:       0.083,
		WinRate:         0.25,
		BenchmarkReturn: 0.02,
		TStatistic:      -1.566,
		PValue:          0.215,
		CILow:           -0.177,
		CIHigh:          0.087,
	}

	var b strings.Builder
	Summary(&b, "Cross-Sectional Buy-and-Hold Test", s, "SPY")
	out := b.String()

	for _, want := range []string{
		"CROSS-SECTIONAL BUY-AND-HOLD TEST RESULTS",
		"Sample Size: 4 stocks",
		"Benchmark Return (SPY): 2.00%",
		"Mean Return: -4.50%",
		"Win Rate vs Benchmark: 25.0%",
		"T-statistic: -1.566",
		"P-value: 0.2150",
		"NO STATISTICAL EDGE (p >= 0.05)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q\n%s", want, out)
		}
	}
}

func TestSummaryVerdicts(t *testing.T) {
	var b strings.Builder
	Summary(&b, "t", stattest.StatTestSummary{IsSignificant: true, MeanReturn: 0.1, BenchmarkReturn: 0.02}, "SPY")
	if !strings.Contains(b.String(), "SIGNIFICANT OUTPERFORMANCE") {
		t.Error("expected outperformance verdict")
	}

	b.Reset()
	Summary(&b, "t", stattest.StatTestSummary{IsSignificant: true, MeanReturn: -0.1, BenchmarkReturn: 0.02}, "SPY")
	if !strings.Contains(b.String(), "SIGNIFICANT UNDERPERFORMANCE") {
		t.Error("expected underperformance verdict")
	}
}

func TestLeaders(t *testing.T) {
	results := []stattest.StatResult{
		{Ticker: "MID", ReturnPct: 0.01, Volume: 1000, BeatBenchmark: false},
		{Ticker: "BEST", ReturnPct: 0.10, Volume: 2000, BeatBenchmark: true},
		{Ticker: "WORST", ReturnPct: -0.20, Volume: 3000},
	}

	var b strings.Builder
	Leaders(&b, results, 1)
	out := b.String()

	if !strings.Contains(out, "TOP 1 PERFORMERS") || !strings.Contains(out, "BOTTOM 1 PERFORMERS") {
		t.Fatalf("missing headers:\n%s", out)
	}
	top := out[:strings.Index(out, "BOTTOM")]
	if !strings.Contains(top, "BEST") || strings.Contains(top, "WORST") {
		t.Errorf("top table wrong:\n%s", top)
	}
	bottom := out[strings.Index(out, "BOTTOM"):]
	if !strings.Contains(bottom, "WORST") {
		t.Errorf("bottom table wrong:\n%s", bottom)
	}
}

func TestLeadersEmpty(t *testing.T) {
	var b strings.Builder
	Leaders(&b, nil, 10)
	if b.Len() != 0 {
		t.Errorf("expected no output, got %q", b.String())
	}
}

func TestInsights(t *testing.T) {
	results := []stattest.StatResult{
		{Ticker: "A", ReturnPct: 0.05, TransactionCosts: 5000},
		{Ticker: "B", ReturnPct: -0.15, TransactionCosts: 5000},
		{Ticker: "C", ReturnPct: 0, TransactionCosts: 2000},
	}

	var b strings.Builder
	Insights(&b, results)
	out := b.String()

	for _, want := range []string{
		"Stocks with positive returns: 1/3 (33.3%)",
		"Stocks with negative returns: 1/3 (33.3%)",
		"Best single stock return: 5.00%",
		"Worst single stock return: -15.00%",
		"Average transaction costs per stock: $4000.00",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("insights missing %q\n%s", want, out)
		}
	}
}
