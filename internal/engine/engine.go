// Package engine orchestrates backtest runs: it feeds bars to a strategy in
// chronological order, executes the resulting orders through a portfolio,
// and aggregates the outcome into a Results summary.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"edgelab/internal/domain"
	"edgelab/internal/portfolio"
	"edgelab/internal/strategy"
)

var (
	// ErrInvalidConfig indicates a non-positive initial cash setting.
	ErrInvalidConfig = errors.New("initial cash must be positive")
	// ErrEmptyData indicates a run was attempted with no bars.
	ErrEmptyData = errors.New("bar data cannot be empty")
)

// Results summarizes one backtest run.
type Results struct {
	InitialCash         float64
	FinalCash           float64
	FinalPortfolioValue float64
	TotalOrders         int
	ExecutedOrders      int
	StartDate           time.Time
	EndDate             time.Time
}

// TotalReturn is the fractional return on initial cash.
func (r *Results) TotalReturn() float64 {
	return (r.FinalPortfolioValue - r.InitialCash) / r.InitialCash
}

// ExecutionRate is the fraction of submitted orders that filled. Zero when
// no orders were submitted.
func (r *Results) ExecutionRate() float64 {
	if r.TotalOrders == 0 {
		return 0
	}
	return float64(r.ExecutedOrders) / float64(r.TotalOrders)
}

// Engine runs strategies over bar sequences. One Engine can serve many runs;
// each run builds and discards its own portfolio.
type Engine struct {
	initialCash float64
	log         *slog.Logger
}

// New creates an Engine that starts every run with initialCash.
func New(initialCash float64) (*Engine, error) {
	if initialCash <= 0 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidConfig, initialCash)
	}
	return &Engine{
		initialCash: initialCash,
		log:         slog.Default().With("component", "engine"),
	}, nil
}

// InitialCash returns the configured starting balance.
func (e *Engine) InitialCash() float64 { return e.initialCash }

// Run drives the strategy over bars and returns the aggregated results.
// Bars must already be in non-decreasing timestamp order; the engine does
// not re-sort and takes the first and last element as the period bounds.
// All orders fill at the close of the bar that produced them; a limit price
// on an order is never used as the fill price.
func (e *Engine) Run(strat strategy.Strategy, bars []domain.Bar) (*Results, error) {
	if len(bars) == 0 {
		return nil, ErrEmptyData
	}

	pf, err := portfolio.New(e.initialCash)
	if err != nil {
		return nil, err
	}

	totalOrders := 0
	executedOrders := 0

	for _, bar := range bars {
		orders := strat.OnData(bar)
		totalOrders += len(orders)

		for _, ord := range orders {
			filled, err := pf.ExecuteOrder(ord, bar.Close)
			if err != nil {
				return nil, fmt.Errorf("executing %s %s: %w", ord.Side, ord.Ticker, err)
			}
			if !filled {
				// Declined for insufficient funds. A normal outcome.
				e.log.Debug("order declined", "ticker", ord.Ticker, "quantity", ord.Quantity)
				continue
			}
			executedOrders++

			pos, held := pf.Position(ord.Ticker)
			if !held {
				// Closed out: report a flat position so the strategy forgets it.
				pos = domain.Position{Ticker: ord.Ticker}
			}
			strat.UpdatePosition(pos)
		}
	}

	finalValue := pf.Value(lastClosePrices(bars))

	return &Results{
		InitialCash:         e.initialCash,
		FinalCash:           pf.Cash(),
		FinalPortfolioValue: finalValue,
		TotalOrders:         totalOrders,
		ExecutedOrders:      executedOrders,
		StartDate:           bars[0].Timestamp,
		EndDate:             bars[len(bars)-1].Timestamp,
	}, nil
}

// lastClosePrices maps each ticker to its last-seen close, scanning in
// reverse so the first hit per ticker wins.
func lastClosePrices(bars []domain.Bar) map[string]float64 {
	prices := make(map[string]float64)
	for i := len(bars) - 1; i >= 0; i-- {
		if _, seen := prices[bars[i].Ticker]; !seen {
			prices[bars[i].Ticker] = bars[i].Close
		}
	}
	return prices
}
