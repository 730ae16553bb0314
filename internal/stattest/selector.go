package stattest

import (
	"math/rand"
	"sort"
	"unicode"

	"edgelab/internal/domain"
)

// Selector picks test instruments from a day of bars: liquid, non-penny
// stocks with plain alphabetic tickers, ranked by a market-cap proxy.
type Selector struct {
	MinPrice  float64
	MinVolume int64
	PoolSize  int
}

// Select filters bars by price, volume, and ticker shape; ranks the
// survivors by close x volume descending; keeps the top PoolSize; and
// samples n of them with a generator seeded by seed. The same seed over the
// same input pool always yields the same selection.
func (s Selector) Select(bars []domain.Bar, n int, seed int64) []string {
	type candidate struct {
		ticker string
		proxy  float64
	}

	var pool []candidate
	for _, bar := range bars {
		if bar.Close < s.MinPrice || bar.Volume < s.MinVolume {
			continue
		}
		if !plainTicker(bar.Ticker) {
			continue
		}
		pool = append(pool, candidate{
			ticker: bar.Ticker,
			proxy:  bar.Close * float64(bar.Volume),
		})
	}

	// Rank by proxy descending; break ties by ticker so the pool order, and
	// with it the seeded sample, is fully deterministic.
	sort.Slice(pool, func(i, j int) bool {
		if pool[i].proxy != pool[j].proxy {
			return pool[i].proxy > pool[j].proxy
		}
		return pool[i].ticker < pool[j].ticker
	})

	if len(pool) > s.PoolSize {
		pool = pool[:s.PoolSize]
	}
	if n > len(pool) {
		n = len(pool)
	}

	rng := rand.New(rand.NewSource(seed))
	selected := make([]string, 0, n)
	for _, idx := range rng.Perm(len(pool))[:n] {
		selected = append(selected, pool[idx].ticker)
	}
	return selected
}

// plainTicker reports whether the ticker is purely alphabetic and at most
// five characters. Filters out warrants, units, and test symbols.
func plainTicker(ticker string) bool {
	if len(ticker) == 0 || len(ticker) > 5 {
		return false
	}
	for _, r := range ticker {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
