// Package store provides on-disk persistence: a Parquet side-car cache for
// parsed daily CSV files and a SQLite archive of completed test runs.
package store

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/parquet-go/parquet-go"

	"edgelab/internal/domain"
)

// ---------------------------------------------------------------------------
// Parquet record type (on-disk schema)
// ---------------------------------------------------------------------------

// barRecord is the Parquet schema for cached bar data.
type barRecord struct {
	Ticker    string  `parquet:"ticker"`
	Timestamp int64   `parquet:"timestamp"` // Unix ns
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Volume    int64   `parquet:"volume"`
	Timeframe string  `parquet:"timeframe"`
}

// ParquetCache is a side-car cache of parsed CSV files. For a source file at
// p it maintains p+".parquet"; a cache file older than its source is treated
// as a miss. Daily flat files run to hundreds of megabytes of CSV, and the
// Parquet form loads in a fraction of the parse time.
type ParquetCache struct {
	log *slog.Logger
}

// NewParquetCache creates a ParquetCache.
func NewParquetCache() *ParquetCache {
	return &ParquetCache{log: slog.Default().With("component", "parquet-cache")}
}

// sidecarPath returns the cache file path for a source CSV path.
func sidecarPath(csvPath string) string {
	return csvPath + ".parquet"
}

// Load returns the cached bars for csvPath. The second return value is false
// on a miss: no cache file, a cache file staler than the source, or an
// unreadable cache file.
func (c *ParquetCache) Load(csvPath string) ([]domain.Bar, bool) {
	side := sidecarPath(csvPath)

	srcInfo, err := os.Stat(csvPath)
	if err != nil {
		return nil, false
	}
	sideInfo, err := os.Stat(side)
	if err != nil || sideInfo.ModTime().Before(srcInfo.ModTime()) {
		return nil, false
	}

	records, err := parquet.ReadFile[barRecord](side)
	if err != nil {
		c.log.Warn("unreadable cache file, falling back to CSV", "path", side, "err", err)
		return nil, false
	}

	bars := make([]domain.Bar, 0, len(records))
	for _, r := range records {
		bars = append(bars, domain.Bar{
			Ticker:    r.Ticker,
			Timestamp: time.Unix(0, r.Timestamp).UTC(),
			Open:      r.Open,
			High:      r.High,
			Low:       r.Low,
			Close:     r.Close,
			Volume:    r.Volume,
			Timeframe: domain.Timeframe(r.Timeframe),
		})
	}
	return bars, true
}

// Store writes the parsed bars for csvPath to its side-car cache file.
func (c *ParquetCache) Store(csvPath string, bars []domain.Bar) error {
	records := make([]barRecord, 0, len(bars))
	for _, b := range bars {
		records = append(records, barRecord{
			Ticker:    b.Ticker,
			Timestamp: b.Timestamp.UnixNano(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
			Timeframe: string(b.Timeframe),
		})
	}

	side := sidecarPath(csvPath)
	if err := parquet.WriteFile(side, records); err != nil {
		return fmt.Errorf("writing bar cache %s: %w", side, err)
	}
	return nil
}
