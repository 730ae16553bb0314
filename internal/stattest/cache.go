package stattest

import "edgelab/internal/domain"

// Cache memoizes parsed bar files for the lifetime of one test invocation.
// Entries are written once per key and never evicted; a new Cache is built
// per run, so nothing leaks across invocations. Not safe for concurrent use:
// the tester drives it from a single goroutine.
type Cache struct {
	loader BarLoader
	files  map[string][]domain.Bar
}

// NewCache creates a Cache that parses misses through loader.
func NewCache(loader BarLoader) *Cache {
	return &Cache{
		loader: loader,
		files:  make(map[string][]domain.Bar),
	}
}

// Load returns the bars of the file at path, parsing it on first use.
func (c *Cache) Load(path string) ([]domain.Bar, error) {
	if bars, ok := c.files[path]; ok {
		return bars, nil
	}
	bars, err := c.loader.LoadFile(path)
	if err != nil {
		return nil, err
	}
	c.files[path] = bars
	return bars, nil
}

// Ticker returns the bars of one ticker within the file at path.
func (c *Cache) Ticker(path, ticker string) ([]domain.Bar, error) {
	bars, err := c.Load(path)
	if err != nil {
		return nil, err
	}
	var filtered []domain.Bar
	for _, bar := range bars {
		if bar.Ticker == ticker {
			filtered = append(filtered, bar)
		}
	}
	return filtered, nil
}
