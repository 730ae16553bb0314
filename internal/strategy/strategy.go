// Package strategy defines the Strategy interface for trading strategies and
// provides a Registry for managing multiple strategy implementations.
package strategy

import (
	"fmt"
	"sort"

	"edgelab/internal/domain"
)

// Strategy is the interface that all trading strategies must implement.
type Strategy interface {
	// Name returns the unique identifier for this strategy.
	Name() string

	// OnData is called once per bar in chronological order. It returns zero
	// or more orders to execute against that bar.
	OnData(bar domain.Bar) []domain.Order

	// UpdatePosition is called by the engine after each successful fill so
	// the strategy can observe its own post-trade state. A flat position
	// means the ticker was closed out. The strategy's view is informational
	// only; the portfolio remains the system of record.
	UpdatePosition(pos domain.Position)
}

// Options is a named-option map applied uniformly to every strategy instance
// a factory builds (e.g. "investment_per_ticker").
type Options map[string]float64

// Get returns the named option, or def when it is absent.
func (o Options) Get(name string, def float64) float64 {
	if v, ok := o[name]; ok {
		return v
	}
	return def
}

// Factory builds a fresh strategy instance from a set of options. The
// statistical tester calls it once per instrument so every backtest starts
// from clean strategy state.
type Factory func(opts Options) (Strategy, error)

// Registry holds a named collection of strategy factories for lookup and
// enumeration.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty strategy Registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a strategy factory to the registry under the given name.
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// Get retrieves a factory by name. The second return value indicates whether
// the factory was found.
func (r *Registry) Get(name string) (Factory, bool) {
	f, ok := r.factories[name]
	return f, ok
}

// Build looks up the named factory and invokes it with opts.
func (r *Registry) Build(name string, opts Options) (Strategy, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
	return f(opts)
}

// List returns a sorted slice of all registered strategy names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
