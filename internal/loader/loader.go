// Package loader parses Polygon flat files (daily or minute aggregates) into
// validated bars. Parsed files are cached in Parquet side-car files so repeat
// loads of the same flat file skip the CSV parse entirely.
package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"edgelab/internal/domain"
	"edgelab/internal/stattest"
	"edgelab/internal/store"
)

var _ stattest.BarLoader = (*CSVLoader)(nil)

// columns required in a flat file header. Extra columns are ignored.
var requiredColumns = []string{"ticker", "volume", "open", "close", "high", "low", "window_start"}

// CSVLoader reads Polygon flat-file CSVs into bars.
type CSVLoader struct {
	cache *store.ParquetCache // nil disables caching
	log   *slog.Logger
}

// Option configures a CSVLoader.
type Option func(*CSVLoader)

// WithParquetCache enables the Parquet side-car cache.
func WithParquetCache(cache *store.ParquetCache) Option {
	return func(l *CSVLoader) { l.cache = cache }
}

// New creates a CSVLoader.
func New(opts ...Option) *CSVLoader {
	l := &CSVLoader{log: slog.Default().With("component", "loader")}
	for _, o := range opts {
		o(l)
	}
	return l
}

// LoadFile parses the flat file at path and returns its bars sorted by
// timestamp. Malformed rows are logged and skipped rather than failing the
// whole file; a missing required column fails the load.
func (l *CSVLoader) LoadFile(path string) ([]domain.Bar, error) {
	if l.cache != nil {
		if bars, ok := l.cache.Load(path); ok {
			l.log.Debug("cache hit", "path", path, "bars", len(bars))
			return bars, nil
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening flat file %s: %w", path, err)
	}
	defer f.Close()

	bars, err := l.parse(f, DetectTimeframe(path))
	if err != nil {
		return nil, fmt.Errorf("parsing flat file %s: %w", path, err)
	}

	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Timestamp.Before(bars[j].Timestamp)
	})

	if l.cache != nil {
		if err := l.cache.Store(path, bars); err != nil {
			l.log.Warn("failed to write bar cache", "path", path, "err", err)
		}
	}
	return bars, nil
}

func (l *CSVLoader) parse(r io.Reader, tf domain.Timeframe) ([]domain.Bar, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	var (
		bars    []domain.Bar
		skipped int
		line    = 1
	)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			l.log.Warn("skipping malformed row", "line", line, "err", err)
			skipped++
			continue
		}

		bar, err := parseRow(row, cols, tf)
		if err != nil {
			l.log.Warn("skipping malformed row", "line", line, "err", err)
			skipped++
			continue
		}
		bars = append(bars, bar)
	}

	if skipped > 0 {
		l.log.Warn("flat file had malformed rows", "skipped", skipped, "kept", len(bars))
	}
	return bars, nil
}

func parseRow(row []string, cols map[string]int, tf domain.Timeframe) (domain.Bar, error) {
	ticker := strings.TrimSpace(row[cols["ticker"]])
	if ticker == "" {
		return domain.Bar{}, fmt.Errorf("empty ticker")
	}

	open, err := strconv.ParseFloat(row[cols["open"]], 64)
	if err != nil {
		return domain.Bar{}, fmt.Errorf("open: %w", err)
	}
	high, err := strconv.ParseFloat(row[cols["high"]], 64)
	if err != nil {
		return domain.Bar{}, fmt.Errorf("high: %w", err)
	}
	low, err := strconv.ParseFloat(row[cols["low"]], 64)
	if err != nil {
		return domain.Bar{}, fmt.Errorf("low: %w", err)
	}
	closePrice, err := strconv.ParseFloat(row[cols["close"]], 64)
	if err != nil {
		return domain.Bar{}, fmt.Errorf("close: %w", err)
	}
	volume, err := strconv.ParseInt(row[cols["volume"]], 10, 64)
	if err != nil {
		return domain.Bar{}, fmt.Errorf("volume: %w", err)
	}
	windowStart, err := strconv.ParseInt(row[cols["window_start"]], 10, 64)
	if err != nil {
		return domain.Bar{}, fmt.Errorf("window_start: %w", err)
	}

	bar, err := domain.NewBar(ticker, time.Unix(0, windowStart).UTC(), open, high, low, closePrice, volume)
	if err != nil {
		return domain.Bar{}, err
	}
	bar.Timeframe = tf
	return bar, nil
}

// DetectTimeframe infers the bar timeframe from the flat file path. Minute
// files live under a "minute_aggs" directory; everything else is daily.
func DetectTimeframe(path string) domain.Timeframe {
	if strings.Contains(filepath.ToSlash(path), "minute_aggs") {
		return domain.TimeframeMinute
	}
	return domain.TimeframeDay
}

// InferTimeframe inspects the bars themselves: if any single ticker has two
// bars less than a day apart, the series is minute data. Useful when the
// file path carries no hint.
func InferTimeframe(bars []domain.Bar) domain.Timeframe {
	last := make(map[string]time.Time)
	for _, b := range bars {
		if prev, ok := last[b.Ticker]; ok {
			gap := b.Timestamp.Sub(prev)
			if gap < 0 {
				gap = -gap
			}
			if gap > 0 && gap < 24*time.Hour {
				return domain.TimeframeMinute
			}
		}
		last[b.Ticker] = b.Timestamp
	}
	return domain.TimeframeDay
}
