// Package report renders test results for the command line tools.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"edgelab/internal/stattest"
)

// FormatPct formats a fractional return as a signed percentage.
func FormatPct(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

// FormatInt formats an integer with comma separators.
func FormatInt(n int64) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	if len(s) > 3 {
		var b strings.Builder
		start := len(s) % 3
		if start > 0 {
			b.WriteString(s[:start])
		}
		for i := start; i < len(s); i += 3 {
			if b.Len() > 0 {
				b.WriteByte(',')
			}
			b.WriteString(s[i : i+3])
		}
		s = b.String()
	}
	if neg {
		return "-" + s
	}
	return s
}

const rule = "============================================================"

// Summary writes the formatted statistical summary block.
func Summary(w io.Writer, title string, s stattest.StatTestSummary, benchmark string) {
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%s RESULTS\n", strings.ToUpper(title))
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Sample Size: %d stocks\n", s.NStocks)
	fmt.Fprintf(w, "Benchmark Return (%s): %s\n", benchmark, FormatPct(s.BenchmarkReturn))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "PERFORMANCE METRICS:")
	fmt.Fprintf(w, "Mean Return: %s\n", FormatPct(s.MeanReturn))
	fmt.Fprintf(w, "Standard Deviation: %s\n", FormatPct(s.StdReturn))
	fmt.Fprintf(w, "Win Rate vs Benchmark: %.1f%%\n", s.WinRate*100)
	fmt.Fprintf(w, "Mean Sharpe Ratio: %.3f\n", s.MeanSharpe)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "STATISTICAL SIGNIFICANCE TEST:")
	fmt.Fprintln(w, "Null Hypothesis: Mean return = Benchmark return")
	fmt.Fprintf(w, "T-statistic: %.3f\n", s.TStatistic)
	fmt.Fprintf(w, "P-value: %.4f\n", s.PValue)
	fmt.Fprintf(w, "95%% Confidence Interval: [%s, %s]\n", FormatPct(s.CILow), FormatPct(s.CIHigh))
	fmt.Fprintln(w)
	switch {
	case s.IsSignificant && s.MeanReturn > s.BenchmarkReturn:
		fmt.Fprintln(w, "SIGNIFICANT OUTPERFORMANCE (p < 0.05)")
		fmt.Fprintln(w, "The strategy shows a statistically significant edge over the benchmark.")
	case s.IsSignificant:
		fmt.Fprintln(w, "SIGNIFICANT UNDERPERFORMANCE (p < 0.05)")
		fmt.Fprintln(w, "The strategy performs significantly worse than the benchmark.")
	default:
		fmt.Fprintln(w, "NO STATISTICAL EDGE (p >= 0.05)")
		fmt.Fprintln(w, "Cannot reject the null hypothesis; no significant difference from the benchmark.")
	}
	fmt.Fprintln(w, rule)
}

// Leaders writes the top and bottom n performers as aligned tables.
func Leaders(w io.Writer, results []stattest.StatResult, n int) {
	if len(results) == 0 {
		return
	}

	sorted := make([]stattest.StatResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ReturnPct > sorted[j].ReturnPct
	})

	if n > len(sorted) {
		n = len(sorted)
	}

	fmt.Fprintf(w, "\nTOP %d PERFORMERS:\n", n)
	writeTable(w, sorted[:n])

	fmt.Fprintf(w, "\nBOTTOM %d PERFORMERS:\n", n)
	writeTable(w, sorted[len(sorted)-n:])
}

func writeTable(w io.Writer, rows []stattest.StatResult) {
	fmt.Fprintf(w, "%-8s %8s %-9s %12s %9s %9s\n",
		"Ticker", "Return", "Beat", "Volume", "Start $", "End $")
	fmt.Fprintln(w, strings.Repeat("-", 62))
	for _, r := range rows {
		beat := "no"
		if r.BeatBenchmark {
			beat = "yes"
		}
		fmt.Fprintf(w, "%-8s %8s %-9s %12s %9.2f %9.2f\n",
			r.Ticker, FormatPct(r.ReturnPct), beat, FormatInt(r.Volume), r.StartPrice, r.EndPrice)
	}
}

// Insights writes aggregate observations about the individual results.
func Insights(w io.Writer, results []stattest.StatResult) {
	if len(results) == 0 {
		return
	}

	var positive, negative int
	best, worst := results[0].ReturnPct, results[0].ReturnPct
	var totalCosts float64
	for _, r := range results {
		if r.ReturnPct > 0 {
			positive++
		}
		if r.ReturnPct < 0 {
			negative++
		}
		if r.ReturnPct > best {
			best = r.ReturnPct
		}
		if r.ReturnPct < worst {
			worst = r.ReturnPct
		}
		totalCosts += r.TransactionCosts
	}
	total := len(results)

	fmt.Fprintln(w, "\nADDITIONAL INSIGHTS:")
	fmt.Fprintf(w, "Stocks with positive returns: %d/%d (%.1f%%)\n",
		positive, total, float64(positive)/float64(total)*100)
	fmt.Fprintf(w, "Stocks with negative returns: %d/%d (%.1f%%)\n",
		negative, total, float64(negative)/float64(total)*100)
	fmt.Fprintf(w, "Best single stock return: %s\n", FormatPct(best))
	fmt.Fprintf(w, "Worst single stock return: %s\n", FormatPct(worst))
	fmt.Fprintf(w, "Average transaction costs per stock: $%.2f\n", totalCosts/float64(total))
}
