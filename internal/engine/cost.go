package engine

import (
	"edgelab/internal/domain"
	"edgelab/internal/strategy"
)

// CostEngine wraps an Engine and deducts a flat percentage transaction cost
// from the final portfolio value. The deduction scales with the capital
// actually deployed (initial cash minus final cash), which is negative for a
// net-short run and then reduces the cost. Cash and order counts are left
// untouched; only the valuation is adjusted.
type CostEngine struct {
	inner   *Engine
	costPct float64
}

// NewCostEngine creates a cost-adjusted engine with the given starting cash
// and round-trip cost percentage (0.05 = 5%).
func NewCostEngine(initialCash, costPct float64) (*CostEngine, error) {
	inner, err := New(initialCash)
	if err != nil {
		return nil, err
	}
	return &CostEngine{inner: inner, costPct: costPct}, nil
}

// CostPct returns the configured cost percentage.
func (e *CostEngine) CostPct() float64 { return e.costPct }

// Run executes the base orchestration and applies the transaction-cost
// deduction to the final portfolio value.
func (e *CostEngine) Run(strat strategy.Strategy, bars []domain.Bar) (*Results, error) {
	results, err := e.inner.Run(strat, bars)
	if err != nil {
		return nil, err
	}
	results.FinalPortfolioValue -= e.Costs(results)
	return results, nil
}

// Costs computes the transaction-cost deduction implied by a run's results:
// deployed capital times the cost percentage.
func (e *CostEngine) Costs(results *Results) float64 {
	totalInvested := results.InitialCash - results.FinalCash
	return totalInvested * e.costPct
}
