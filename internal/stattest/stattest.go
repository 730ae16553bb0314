// Package stattest runs a trading strategy across many instruments over one
// period and tests whether its mean return is statistically distinguishable
// from a benchmark. It drives the cost-adjusted backtest engine per
// instrument and aggregates the outcomes into a one-sample t-test.
package stattest

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"edgelab/internal/domain"
	"edgelab/internal/engine"
	"edgelab/internal/strategy"
)

// ---------------------------------------------------------------------------
// Collaborator interfaces
// ---------------------------------------------------------------------------

// Downloader fetches the daily flat file for a date and returns its local
// path. Blocking I/O; implementations honor ctx.
type Downloader interface {
	DayFile(ctx context.Context, date time.Time) (string, error)
}

// BarLoader parses a local flat file into bars.
type BarLoader interface {
	LoadFile(path string) ([]domain.Bar, error)
}

// ---------------------------------------------------------------------------
// Result types
// ---------------------------------------------------------------------------

// StatResult is the per-instrument outcome of a cross-sectional test.
type StatResult struct {
	Ticker           string
	ReturnPct        float64
	SharpeRatio      float64 // degenerate proxy: equals the return (two data points)
	StartPrice       float64
	EndPrice         float64
	Volume           int64
	MarketCapProxy   float64 // start close x start volume
	BeatBenchmark    bool
	TransactionCosts float64
}

// StatTestSummary aggregates per-instrument results into a significance test
// against the benchmark return.
type StatTestSummary struct {
	NStocks         int
	MeanReturn      float64
	StdReturn       float64
	WinRate         float64
	MeanSharpe      float64
	BenchmarkReturn float64
	TStatistic      float64
	PValue          float64
	IsSignificant   bool // at 95% confidence
	CILow           float64
	CIHigh          float64
}

// ---------------------------------------------------------------------------
// Tester
// ---------------------------------------------------------------------------

// Config tunes a Tester. Zero values fall back to the defaults below.
type Config struct {
	TransactionCostPct float64 // flat round-trip cost, default 0.05
	Benchmark          string  // reference ticker, default "SPY"
	MinPrice           float64 // selection floor, default 5.0
	MinVolume          int64   // selection floor, default 100000
	PoolSize           int     // liquidity-ranked pool, default 500
	Seed               int64   // sampling seed, default 42
}

func (c Config) withDefaults() Config {
	if c.TransactionCostPct == 0 {
		c.TransactionCostPct = 0.05
	}
	if c.Benchmark == "" {
		c.Benchmark = "SPY"
	}
	if c.MinPrice == 0 {
		c.MinPrice = 5.0
	}
	if c.MinVolume == 0 {
		c.MinVolume = 100000
	}
	if c.PoolSize == 0 {
		c.PoolSize = 500
	}
	if c.Seed == 0 {
		c.Seed = 42
	}
	return c
}

// Tester runs cross-sectional significance tests. Instruments are processed
// sequentially; each backtest builds and discards its own portfolio, so no
// state is shared between them.
type Tester struct {
	downloader Downloader
	loader     BarLoader
	cfg        Config
	selector   Selector
	log        *slog.Logger
}

// NewTester creates a Tester over the given collaborators.
func NewTester(d Downloader, l BarLoader, cfg Config) *Tester {
	cfg = cfg.withDefaults()
	return &Tester{
		downloader: d,
		loader:     l,
		cfg:        cfg,
		selector:   Selector{MinPrice: cfg.MinPrice, MinVolume: cfg.MinVolume, PoolSize: cfg.PoolSize},
		log:        slog.Default().With("component", "stattest"),
	}
}

// RunCrossSectional tests the strategy built by factory across nStocks
// instruments between start and end. The factory is invoked once per
// instrument with the same opts, so every backtest starts from clean
// strategy state. Per-instrument failures are logged and skipped; the
// aggregate covers the instruments that succeeded.
func (t *Tester) RunCrossSectional(
	ctx context.Context,
	factory strategy.Factory,
	opts strategy.Options,
	start, end time.Time,
	nStocks int,
	initialCash float64,
) ([]StatResult, StatTestSummary, error) {
	t.log.Info("downloading day files", "start", start.Format("2006-01-02"), "end", end.Format("2006-01-02"))
	startFile, err := t.downloader.DayFile(ctx, start)
	if err != nil {
		return nil, StatTestSummary{}, fmt.Errorf("downloading start-date file: %w", err)
	}
	endFile, err := t.downloader.DayFile(ctx, end)
	if err != nil {
		return nil, StatTestSummary{}, fmt.Errorf("downloading end-date file: %w", err)
	}

	// One cache per invocation: each file is parsed at most once no matter
	// how many instruments reference it.
	cache := NewCache(t.loader)

	startBars, err := cache.Load(startFile)
	if err != nil {
		return nil, StatTestSummary{}, fmt.Errorf("loading start-date bars: %w", err)
	}

	tickers := t.selector.Select(startBars, nStocks, t.cfg.Seed)
	t.log.Info("selected instruments", "requested", nStocks, "selected", len(tickers))

	benchmarkReturn, err := t.benchmarkReturn(cache, startFile, endFile)
	if err != nil {
		return nil, StatTestSummary{}, err
	}
	t.log.Info("benchmark return", "ticker", t.cfg.Benchmark, "return", benchmarkReturn)

	results := make([]StatResult, 0, len(tickers))
	for i, ticker := range tickers {
		res, err := t.runInstrument(cache, factory, opts, ticker, startFile, endFile, initialCash, benchmarkReturn)
		if err != nil {
			// Degrade per instrument, never abort the whole run.
			t.log.Warn("skipping instrument", "ticker", ticker, "err", err)
			continue
		}
		results = append(results, res)

		if (i+1)%10 == 0 {
			t.log.Info("progress", "completed", i+1, "total", len(tickers))
		}
	}

	summary := summarize(results, benchmarkReturn)
	return results, summary, nil
}

// benchmarkReturn computes (end close - start close) / start close for the
// configured benchmark ticker. A benchmark missing on either date yields
// zero rather than an error.
func (t *Tester) benchmarkReturn(cache *Cache, startFile, endFile string) (float64, error) {
	startBars, err := cache.Ticker(startFile, t.cfg.Benchmark)
	if err != nil {
		return 0, fmt.Errorf("loading benchmark start bars: %w", err)
	}
	endBars, err := cache.Ticker(endFile, t.cfg.Benchmark)
	if err != nil {
		return 0, fmt.Errorf("loading benchmark end bars: %w", err)
	}
	if len(startBars) == 0 || len(endBars) == 0 {
		t.log.Warn("benchmark ticker missing from data", "ticker", t.cfg.Benchmark)
		return 0, nil
	}

	startPrice := startBars[0].Close
	endPrice := endBars[0].Close
	return (endPrice - startPrice) / startPrice, nil
}

// runInstrument backtests one ticker over its two-bar (start, end) series.
func (t *Tester) runInstrument(
	cache *Cache,
	factory strategy.Factory,
	opts strategy.Options,
	ticker string,
	startFile, endFile string,
	initialCash float64,
	benchmarkReturn float64,
) (StatResult, error) {
	bars, err := t.instrumentBars(cache, ticker, startFile, endFile)
	if err != nil {
		return StatResult{}, err
	}
	if len(bars) < 2 {
		return StatResult{}, fmt.Errorf("insufficient data: %d bars", len(bars))
	}

	strat, err := factory(opts)
	if err != nil {
		return StatResult{}, fmt.Errorf("building strategy: %w", err)
	}

	eng, err := engine.NewCostEngine(initialCash, t.cfg.TransactionCostPct)
	if err != nil {
		return StatResult{}, err
	}
	results, err := eng.Run(strat, bars)
	if err != nil {
		return StatResult{}, fmt.Errorf("backtest: %w", err)
	}

	ret := results.TotalReturn()
	return StatResult{
		Ticker:           ticker,
		ReturnPct:        ret,
		SharpeRatio:      ret, // only two data points; the return stands in.
		StartPrice:       bars[0].Close,
		EndPrice:         bars[len(bars)-1].Close,
		Volume:           bars[0].Volume,
		MarketCapProxy:   bars[0].Close * float64(bars[0].Volume),
		BeatBenchmark:    ret > benchmarkReturn,
		TransactionCosts: eng.Costs(results),
	}, nil
}

// instrumentBars builds the chronological series for one ticker from the
// start and end files.
func (t *Tester) instrumentBars(cache *Cache, ticker, startFile, endFile string) ([]domain.Bar, error) {
	startBars, err := cache.Ticker(startFile, ticker)
	if err != nil {
		return nil, err
	}
	endBars, err := cache.Ticker(endFile, ticker)
	if err != nil {
		return nil, err
	}

	bars := make([]domain.Bar, 0, len(startBars)+len(endBars))
	bars = append(bars, startBars...)
	bars = append(bars, endBars...)
	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Timestamp.Before(bars[j].Timestamp)
	})
	return bars, nil
}
