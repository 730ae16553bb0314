// Cross-sectional significance test: run a strategy over a random sample of
// liquid US stocks between two dates and t-test the mean return against a
// benchmark.
//
// Usage:
//
//	go run cmd/edge-test/main.go -start 2025-01-02 -end 2025-01-31 -n 50
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"edgelab/internal/config"
	"edgelab/internal/gather"
	"edgelab/internal/gather/polygon"
	"edgelab/internal/loader"
	"edgelab/internal/report"
	"edgelab/internal/stattest"
	"edgelab/internal/store"
	"edgelab/internal/strategy"
	"edgelab/internal/strategy/builtins"
	"edgelab/internal/util"
)

func main() {
	var (
		startStr  = flag.String("start", "", "start date YYYY-MM-DD (default: one month before end)")
		endStr    = flag.String("end", "", "end date YYYY-MM-DD (default: latest finished trading day)")
		nStocks   = flag.Int("n", 0, "number of stocks to sample (0 = config default)")
		cash      = flag.Float64("cash", 0, "initial cash per backtest (0 = config default)")
		costPct   = flag.Float64("cost", -1, "transaction cost fraction (-1 = config default)")
		stratName = flag.String("strategy", "buy-and-hold", "strategy to test")
		invest    = flag.Float64("investment", 0, "investment per ticker (0 = initial cash)")
		dbSave    = flag.Bool("db", false, "archive the run in the SQLite database")
		top       = flag.Int("top", 10, "performers to show in each leaders table")
	)
	flag.Parse()

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

	start, end, err := resolveDates(cfg, *startStr, *endStr)
	if err != nil {
		log.Fatalf("resolving dates: %v", err)
	}

	if *nStocks == 0 {
		*nStocks = cfg.StatTest.NStocks
	}
	if *cash == 0 {
		*cash = cfg.Backtest.InitialCash
	}
	if *costPct < 0 {
		*costPct = cfg.Backtest.TransactionCostPct
	}
	if *invest == 0 {
		*invest = *cash
	}

	registry := strategy.NewRegistry()
	builtins.Register(registry)
	factory, ok := registry.Get(*stratName)
	if !ok {
		log.Fatalf("unknown strategy %q (available: %v)", *stratName, registry.List())
	}

	downloader := polygon.New(polygon.Config{
		AccessKey: cfg.Polygon.AccessKey,
		SecretKey: cfg.Polygon.SecretKey,
		Endpoint:  cfg.Polygon.Endpoint,
		Bucket:    cfg.Polygon.Bucket,
		CacheDir:  cfg.Storage.CacheDir,
	})
	barLoader := loader.New(loader.WithParquetCache(store.NewParquetCache()))

	tester := stattest.NewTester(downloader, barLoader, stattest.Config{
		TransactionCostPct: *costPct,
		Benchmark:          cfg.StatTest.Benchmark,
		MinPrice:           cfg.StatTest.MinPrice,
		MinVolume:          cfg.StatTest.MinVolume,
		PoolSize:           cfg.StatTest.PoolSize,
		Seed:               cfg.StatTest.Seed,
	})

	opts := strategy.Options{"investment_per_ticker": *invest}

	fmt.Printf("Testing %s for statistical edge\n", *stratName)
	fmt.Printf("Period: %s to %s\n", start.Format("2006-01-02"), end.Format("2006-01-02"))
	fmt.Printf("Stocks to test: %d\n", *nStocks)
	fmt.Printf("Transaction costs: %s\n", report.FormatPct(*costPct))
	fmt.Printf("Starting capital per test: $%s\n\n", report.FormatInt(int64(*cash)))

	ctx := context.Background()
	results, summary, err := tester.RunCrossSectional(ctx, factory, opts, start, end, *nStocks, *cash)
	if err != nil {
		log.Fatalf("cross-sectional test failed: %v", err)
	}

	title := fmt.Sprintf("Cross-Sectional %s Test", *stratName)
	report.Summary(os.Stdout, title, summary, cfg.StatTest.Benchmark)
	report.Leaders(os.Stdout, results, *top)
	report.Insights(os.Stdout, results)

	if *dbSave {
		archive(ctx, cfg.Storage.SQLitePath, *stratName, start, end, summary, results)
	}
}

// resolveDates fills in missing dates. A missing end date resolves to the
// latest finished trading day via the calendar API; a missing start date
// defaults to one month before the end.
func resolveDates(cfg *config.Config, startStr, endStr string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = time.Parse("2006-01-02", endStr)
		if err != nil {
			return start, end, fmt.Errorf("bad -end: %w", err)
		}
	} else {
		end, err = gather.LatestFinishedTradingDay(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.BaseURL)
		if err != nil {
			return start, end, fmt.Errorf("no -end given and calendar lookup failed: %w", err)
		}
	}

	if startStr != "" {
		start, err = time.Parse("2006-01-02", startStr)
		if err != nil {
			return start, end, fmt.Errorf("bad -start: %w", err)
		}
	} else {
		start = end.AddDate(0, -1, 0)
	}

	if !start.Before(end) {
		return start, end, fmt.Errorf("start %s is not before end %s",
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}
	return start, end, nil
}

func archive(ctx context.Context, dbPath, strat string, start, end time.Time, summary stattest.StatTestSummary, results []stattest.StatResult) {
	db, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		log.Fatalf("opening run archive: %v", err)
	}
	defer db.Close()

	runID, err := db.SaveRun(ctx, store.RunMeta{
		Strategy:  strat,
		StartDate: start,
		EndDate:   end,
	}, summary, results)
	if err != nil {
		log.Fatalf("archiving run: %v", err)
	}
	fmt.Printf("\nRun archived as #%d in %s\n", runID, dbPath)
}
