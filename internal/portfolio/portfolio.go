// Package portfolio tracks cash and open positions and executes orders
// against fill prices with average-cost accounting. It is the system of
// record for a backtest run; strategies keep their own informational copy.
package portfolio

import (
	"errors"
	"fmt"

	"edgelab/internal/domain"
)

var (
	// ErrInvalidCash indicates a non-positive starting balance.
	ErrInvalidCash = errors.New("initial cash must be positive")
	// ErrInvalidPrice indicates a non-positive execution price.
	ErrInvalidPrice = errors.New("execution price must be positive")
)

// Portfolio owns cash and a map of ticker to position. One Portfolio is
// built per backtest run and discarded with it. Not safe for concurrent
// use; the engine drives it from a single goroutine.
type Portfolio struct {
	cash        float64
	initialCash float64
	positions   map[string]domain.Position
}

// New creates a Portfolio with the given starting cash.
func New(initialCash float64) (*Portfolio, error) {
	if initialCash <= 0 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidCash, initialCash)
	}
	return &Portfolio{
		cash:        initialCash,
		initialCash: initialCash,
		positions:   make(map[string]domain.Position),
	}, nil
}

// ExecuteOrder fills the order at execPrice. It returns (true, nil) on a
// fill, (false, nil) when a buy is declined for insufficient funds, and a
// non-nil error only for an invalid execution price. Sells always succeed:
// short selling is permitted without margin checks.
func (p *Portfolio) ExecuteOrder(order domain.Order, execPrice float64) (bool, error) {
	if execPrice <= 0 {
		return false, fmt.Errorf("%w: got %v", ErrInvalidPrice, execPrice)
	}

	tradeValue := float64(order.Quantity) * execPrice

	if order.IsBuy() {
		if tradeValue > p.cash {
			// Declined, not an error. State is untouched.
			return false, nil
		}
		p.cash -= tradeValue
		p.applyFill(order.Ticker, order.Quantity, execPrice)
		return true, nil
	}

	p.cash += tradeValue
	p.applyFill(order.Ticker, -order.Quantity, execPrice)
	return true, nil
}

// applyFill adjusts the position for ticker by the signed delta at price.
//
// Average-cost rule: a fill in the same direction as the held quantity
// re-weights the average cost; a fill in the opposite direction leaves the
// average cost at its prior value, even when the position flips sign. A
// resulting quantity of zero removes the entry.
func (p *Portfolio) applyFill(ticker string, delta int64, price float64) {
	cur, held := p.positions[ticker]
	if !held {
		p.positions[ticker] = domain.Position{Ticker: ticker, Quantity: delta, AvgCost: price}
		return
	}

	total := cur.Quantity + delta
	if total == 0 {
		delete(p.positions, ticker)
		return
	}

	avgCost := cur.AvgCost
	if (cur.Quantity > 0) == (delta > 0) {
		avgCost = (float64(cur.Quantity)*cur.AvgCost + float64(delta)*price) / float64(total)
	}

	p.positions[ticker] = domain.Position{Ticker: ticker, Quantity: total, AvgCost: avgCost}
}

// Position returns the held position for ticker. The second return value is
// false when the portfolio is flat in that ticker.
func (p *Portfolio) Position(ticker string) (domain.Position, bool) {
	pos, ok := p.positions[ticker]
	return pos, ok
}

// Positions returns a snapshot copy of all held positions. Mutating the
// returned map does not affect the portfolio.
func (p *Portfolio) Positions() map[string]domain.Position {
	snapshot := make(map[string]domain.Position, len(p.positions))
	for ticker, pos := range p.positions {
		snapshot[ticker] = pos
	}
	return snapshot
}

// Value marks the portfolio to market: cash plus each held quantity times
// its price in prices. Tickers missing from prices are skipped, so their
// holdings contribute nothing.
func (p *Portfolio) Value(prices map[string]float64) float64 {
	total := p.cash
	for ticker, pos := range p.positions {
		if price, ok := prices[ticker]; ok {
			total += float64(pos.Quantity) * price
		}
	}
	return total
}

// Cash returns the current cash balance.
func (p *Portfolio) Cash() float64 { return p.cash }

// InitialCash returns the starting balance. Immutable after construction.
func (p *Portfolio) InitialCash() float64 { return p.initialCash }
