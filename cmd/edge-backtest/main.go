// Single-instrument backtest over locally cached flat files.
//
// Usage:
//
//	go run cmd/edge-backtest/main.go -ticker AAPL -files data/us_stocks_sip/day_aggs/2025-01-02.csv,data/us_stocks_sip/day_aggs/2025-01-31.csv
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"edgelab/internal/config"
	"edgelab/internal/domain"
	"edgelab/internal/engine"
	"edgelab/internal/loader"
	"edgelab/internal/report"
	"edgelab/internal/store"
	"edgelab/internal/strategy"
	"edgelab/internal/strategy/builtins"
	"edgelab/internal/util"
)

func main() {
	var (
		ticker    = flag.String("ticker", "", "ticker to backtest (required)")
		files     = flag.String("files", "", "comma-separated flat file paths in any order (required)")
		stratName = flag.String("strategy", "buy-and-hold", "strategy to run")
		cash      = flag.Float64("cash", 0, "initial cash (0 = config default)")
		costPct   = flag.Float64("cost", -1, "transaction cost fraction (-1 = config default, 0 = cost-free)")
		invest    = flag.Float64("investment", 0, "investment per ticker (0 = initial cash)")
	)
	flag.Parse()

	if *ticker == "" || *files == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfgPath := "config/edgelab.yaml"
	if p := os.Getenv("EDGELAB_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLoggerFormat(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	if *cash == 0 {
		*cash = cfg.Backtest.InitialCash
	}
	if *costPct < 0 {
		*costPct = cfg.Backtest.TransactionCostPct
	}
	if *invest == 0 {
		*invest = *cash
	}

	bars, err := loadTicker(*ticker, strings.Split(*files, ","))
	if err != nil {
		log.Fatalf("loading bars: %v", err)
	}
	if len(bars) == 0 {
		log.Fatalf("no bars for %s in the given files", *ticker)
	}

	registry := strategy.NewRegistry()
	builtins.Register(registry)
	strat, err := registry.Build(*stratName, strategy.Options{"investment_per_ticker": *invest})
	if err != nil {
		log.Fatalf("building strategy: %v", err)
	}

	eng, err := engine.NewCostEngine(*cash, *costPct)
	if err != nil {
		log.Fatalf("creating engine: %v", err)
	}
	results, err := eng.Run(strat, bars)
	if err != nil {
		log.Fatalf("backtest failed: %v", err)
	}

	fmt.Printf("Backtest: %s on %s over %d bars\n", *stratName, *ticker, len(bars))
	fmt.Printf("Initial cash:    $%.2f\n", results.InitialCash)
	fmt.Printf("Final cash:      $%.2f\n", results.FinalCash)
	fmt.Printf("Portfolio value: $%.2f (after %s costs)\n", results.FinalPortfolioValue, report.FormatPct(*costPct))
	fmt.Printf("Total return:    %s\n", report.FormatPct(results.TotalReturn()))
	fmt.Printf("Orders:          %d executed of %d\n", results.ExecutedOrders, results.TotalOrders)
}

// loadTicker parses every file and keeps only the requested ticker's bars,
// sorted chronologically.
func loadTicker(ticker string, paths []string) ([]domain.Bar, error) {
	l := loader.New(loader.WithParquetCache(store.NewParquetCache()))

	var bars []domain.Bar
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		fileBars, err := l.LoadFile(path)
		if err != nil {
			return nil, err
		}
		for _, b := range fileBars {
			if b.Ticker == ticker {
				bars = append(bars, b)
			}
		}
	}

	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Timestamp.Before(bars[j].Timestamp)
	})
	return bars, nil
}
