// Flat file downloader: fetch Polygon daily or minute aggregates into the
// local cache.
//
// Usage:
//
//	go run cmd/edge-download/main.go -start 2025-01-02 -end 2025-01-10
//	go run cmd/edge-download/main.go -date 2025-01-02 -timeframe minute
//	go run cmd/edge-download/main.go -ping
//	go run cmd/edge-download/main.go -list 2025
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"edgelab/internal/config"
	"edgelab/internal/domain"
	"edgelab/internal/gather"
	"edgelab/internal/gather/polygon"
	"edgelab/internal/loader"
	"edgelab/internal/util"
)

func main() {
	var (
		dateStr  = flag.String("date", "", "single date YYYY-MM-DD to fetch")
		startStr = flag.String("start", "", "range start YYYY-MM-DD")
		endStr   = flag.String("end", "", "range end YYYY-MM-DD")
		tfStr    = flag.String("timeframe", "day", "day or minute")
		force    = flag.Bool("force", false, "re-download files that are already cached")
		ping     = flag.Bool("ping", false, "verify credentials and exit")
		listYear = flag.Int("list", 0, "list available dates for a year and exit")
		sample   = flag.Bool("sample", false, "print a few closing prices from each fetched file")
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

	tf := domain.TimeframeDay
	if *tfStr == "minute" {
		tf = domain.TimeframeMinute
	}

	d := polygon.New(polygon.Config{
		AccessKey: cfg.Polygon.AccessKey,
		SecretKey: cfg.Polygon.SecretKey,
		Endpoint:  cfg.Polygon.Endpoint,
		Bucket:    cfg.Polygon.Bucket,
		CacheDir:  cfg.Storage.CacheDir,
		Force:     *force,
	})
	ctx := context.Background()

	switch {
	case *ping:
		if err := d.Ping(ctx); err != nil {
			log.Fatalf("ping failed: %v", err)
		}
		fmt.Println("credentials OK")
		return

	case *listYear != 0:
		dates, err := d.ListDates(ctx, tf, *listYear)
		if err != nil {
			log.Fatalf("listing dates: %v", err)
		}
		for _, date := range dates {
			fmt.Println(date.Format("2006-01-02"))
		}
		return
	}

	days, err := resolveDays(*dateStr, *startStr, *endStr)
	if err != nil {
		log.Fatal(err)
	}

	var fetched, missing int
	for _, day := range days {
		path, err := fetch(ctx, d, tf, day)
		switch {
		case errors.Is(err, polygon.ErrNotFound):
			// Weekends and holidays have no file.
			missing++
			continue
		case err != nil:
			log.Fatalf("fetching %s: %v", day.Format("2006-01-02"), err)
		}
		fetched++
		fmt.Println(path)

		if *sample {
			printSample(path)
		}
	}
	fmt.Printf("fetched %d file(s), %d date(s) had no data\n", fetched, missing)
}

func resolveDays(dateStr, startStr, endStr string) ([]time.Time, error) {
	if dateStr != "" {
		date, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			return nil, fmt.Errorf("bad -date: %w", err)
		}
		return []time.Time{date}, nil
	}
	if startStr == "" || endStr == "" {
		return nil, fmt.Errorf("need -date, or -start and -end")
	}
	start, err := time.Parse("2006-01-02", startStr)
	if err != nil {
		return nil, fmt.Errorf("bad -start: %w", err)
	}
	end, err := time.Parse("2006-01-02", endStr)
	if err != nil {
		return nil, fmt.Errorf("bad -end: %w", err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("end %s before start %s", endStr, startStr)
	}
	return gather.DateRange{Start: start, End: end}.Days(), nil
}

func fetch(ctx context.Context, d *polygon.Downloader, tf domain.Timeframe, day time.Time) (string, error) {
	if tf == domain.TimeframeMinute {
		return d.MinuteFile(ctx, day)
	}
	return d.DayFile(ctx, day)
}

func printSample(path string) {
	bars, err := loader.New().LoadFile(path)
	if err != nil {
		log.Printf("sampling %s: %v", path, err)
		return
	}
	for i, b := range bars {
		if i == 5 {
			break
		}
		fmt.Printf("  %-8s close=%.2f volume=%d\n", b.Ticker, b.Close, b.Volume)
	}
}
