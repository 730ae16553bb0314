// Package builtins provides built-in strategy implementations that ship with
// edgelab.
package builtins

import (
	"errors"
	"fmt"

	"edgelab/internal/domain"
	"edgelab/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*BuyAndHold)(nil)

// ErrInvalidInvestment indicates a non-positive per-ticker investment amount.
var ErrInvalidInvestment = errors.New("investment per ticker must be positive")

// DefaultInvestmentPerTicker is the dollar amount allocated to each ticker
// when no option overrides it.
const DefaultInvestmentPerTicker = 10000

// BuyAndHold buys a fixed dollar amount of each ticker on its first bar and
// holds for the rest of the run. It is the simplest possible strategy and
// the reference subject of the cross-sectional edge test.
type BuyAndHold struct {
	strategy.Book

	investmentPerTicker float64
	bought              map[string]bool
}

// NewBuyAndHold creates a BuyAndHold strategy that invests
// investmentPerTicker dollars in each ticker it encounters.
func NewBuyAndHold(investmentPerTicker float64) (*BuyAndHold, error) {
	if investmentPerTicker <= 0 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidInvestment, investmentPerTicker)
	}
	return &BuyAndHold{
		investmentPerTicker: investmentPerTicker,
		bought:              make(map[string]bool),
	}, nil
}

// Name returns "buy-and-hold".
func (s *BuyAndHold) Name() string { return "buy-and-hold" }

// OnData buys once per ticker on its first bar, sizing the order to the
// configured investment at the bar close, then never trades again.
func (s *BuyAndHold) OnData(bar domain.Bar) []domain.Order {
	if s.bought[bar.Ticker] {
		return nil
	}

	quantity := int64(s.investmentPerTicker / bar.Close)
	if quantity <= 0 {
		// One share is already more than the allocation. Leave the ticker
		// unmarked so a cheaper bar could still trigger a buy.
		return nil
	}

	ord, err := strategy.MarketBuy(bar.Ticker, quantity)
	if err != nil {
		return nil
	}

	s.bought[bar.Ticker] = true
	return []domain.Order{ord}
}

// Register installs all built-in strategy factories into the registry.
func Register(r *strategy.Registry) {
	r.Register("buy-and-hold", func(opts strategy.Options) (strategy.Strategy, error) {
		return NewBuyAndHold(opts.Get("investment_per_ticker", DefaultInvestmentPerTicker))
	})
}
