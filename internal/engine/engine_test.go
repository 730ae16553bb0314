package engine

import (
	"errors"
	"math"
	"testing"
	"time"

	"edgelab/internal/domain"
	"edgelab/internal/strategy"
)

// scriptedStrategy returns pre-programmed orders keyed by bar index.
type scriptedStrategy struct {
	strategy.Book
	script map[int][]domain.Order
	calls  int
}

func (s *scriptedStrategy) Name() string { return "scripted" }

func (s *scriptedStrategy) OnData(_ domain.Bar) []domain.Order {
	orders := s.script[s.calls]
	s.calls++
	return orders
}

func testBar(t *testing.T, ticker string, day int, closePrice float64) domain.Bar {
	t.Helper()
	ts := time.Date(2025, 1, day, 0, 0, 0, 0, time.UTC)
	b, err := domain.NewBar(ticker, ts, closePrice, closePrice, closePrice, closePrice, 1000)
	if err != nil {
		t.Fatalf("NewBar: %v", err)
	}
	return b
}

func marketOrder(t *testing.T, side domain.OrderSide, ticker string, qty int64) domain.Order {
	t.Helper()
	ord, err := domain.NewMarketOrder(side, ticker, qty)
	if err != nil {
		t.Fatalf("NewMarketOrder: %v", err)
	}
	return ord
}

func TestNewRejectsNonPositiveCash(t *testing.T) {
	for _, cash := range []float64{0, -1} {
		if _, err := New(cash); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("New(%v): want ErrInvalidConfig, got %v", cash, err)
		}
		if _, err := NewCostEngine(cash, 0.05); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("NewCostEngine(%v): want ErrInvalidConfig, got %v", cash, err)
		}
	}
}

func TestRunRejectsEmptyData(t *testing.T) {
	e, _ := New(10000)
	if _, err := e.Run(&scriptedStrategy{}, nil); !errors.Is(err, ErrEmptyData) {
		t.Fatalf("want ErrEmptyData, got %v", err)
	}
}

func TestRunIdleStrategy(t *testing.T) {
	// A strategy that never orders leaves everything at initial cash.
	e, _ := New(10000)
	res, err := e.Run(&scriptedStrategy{}, []domain.Bar{testBar(t, "T", 2, 100)})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.FinalCash != 10000 {
		t.Errorf("FinalCash = %v, want 10000", res.FinalCash)
	}
	if res.FinalPortfolioValue != 10000 {
		t.Errorf("FinalPortfolioValue = %v, want 10000", res.FinalPortfolioValue)
	}
	if res.TotalReturn() != 0 {
		t.Errorf("TotalReturn = %v, want 0", res.TotalReturn())
	}
	if res.TotalOrders != 0 || res.ExecutedOrders != 0 {
		t.Errorf("orders = %d/%d, want 0/0", res.ExecutedOrders, res.TotalOrders)
	}
	if res.ExecutionRate() != 0 {
		t.Errorf("ExecutionRate = %v, want 0 with no orders", res.ExecutionRate())
	}
}

func TestRunRoundTrip(t *testing.T) {
	// Buy 100 on bar 1 at 100, sell 100 on bar 3 at 110: final cash differs
	// from initial by exactly the round-trip price difference times 100.
	s := &scriptedStrategy{script: map[int][]domain.Order{
		0: {marketOrder(t, domain.OrderSideBuy, "TEST", 100)},
		2: {marketOrder(t, domain.OrderSideSell, "TEST", 100)},
	}}
	bars := []domain.Bar{
		testBar(t, "TEST", 2, 100),
		testBar(t, "TEST", 3, 105),
		testBar(t, "TEST", 6, 110),
	}

	e, _ := New(10000)
	res, err := e.Run(s, bars)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.TotalOrders != 2 || res.ExecutedOrders != 2 {
		t.Errorf("orders = %d/%d, want 2/2", res.ExecutedOrders, res.TotalOrders)
	}
	if res.ExecutionRate() != 1 {
		t.Errorf("ExecutionRate = %v, want 1", res.ExecutionRate())
	}
	wantCash := 10000.0 + 100*(110-100)
	if res.FinalCash != wantCash {
		t.Errorf("FinalCash = %v, want %v", res.FinalCash, wantCash)
	}
	if res.FinalPortfolioValue != wantCash {
		t.Errorf("FinalPortfolioValue = %v, want %v (position closed)", res.FinalPortfolioValue, wantCash)
	}
	if !res.StartDate.Equal(bars[0].Timestamp) || !res.EndDate.Equal(bars[2].Timestamp) {
		t.Errorf("period = %v..%v, want bar bounds", res.StartDate, res.EndDate)
	}

	// The sell closed the position, so the strategy's book must be empty.
	if len(s.Positions()) != 0 {
		t.Errorf("strategy book = %v, want empty after close-out", s.Positions())
	}
}

func TestRunDeclinedOrderCountsAsSubmittedOnly(t *testing.T) {
	s := &scriptedStrategy{script: map[int][]domain.Order{
		0: {marketOrder(t, domain.OrderSideBuy, "TEST", 1000)}, // needs 100k, have 10k
	}}
	e, _ := New(10000)
	res, err := e.Run(s, []domain.Bar{testBar(t, "TEST", 2, 100)})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.TotalOrders != 1 || res.ExecutedOrders != 0 {
		t.Errorf("orders = %d/%d, want 1 submitted, 0 executed", res.ExecutedOrders, res.TotalOrders)
	}
	if res.ExecutionRate() != 0 {
		t.Errorf("ExecutionRate = %v, want 0", res.ExecutionRate())
	}
	if res.FinalCash != 10000 {
		t.Errorf("FinalCash = %v, want untouched 10000", res.FinalCash)
	}
}

func TestRunValuesOpenPositionAtLastSeenClose(t *testing.T) {
	s := &scriptedStrategy{script: map[int][]domain.Order{
		0: {marketOrder(t, domain.OrderSideBuy, "AAPL", 50)},
	}}
	bars := []domain.Bar{
		testBar(t, "AAPL", 2, 100),
		testBar(t, "MSFT", 2, 300),
		testBar(t, "AAPL", 3, 120),
	}
	e, _ := New(10000)
	res, err := e.Run(s, bars)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Cash 5000 plus 50 shares at the last AAPL close of 120.
	want := 5000.0 + 50*120
	if res.FinalPortfolioValue != want {
		t.Errorf("FinalPortfolioValue = %v, want %v", res.FinalPortfolioValue, want)
	}
	wantReturn := (want - 10000) / 10000
	if math.Abs(res.TotalReturn()-wantReturn) > 1e-12 {
		t.Errorf("TotalReturn = %v, want %v", res.TotalReturn(), wantReturn)
	}
}

func TestRunLimitOrdersFillAtClose(t *testing.T) {
	// The limit price is carried on the order but the fill happens at the
	// bar close regardless. Preserved model behavior.
	limit, err := domain.NewLimitOrder(domain.OrderSideBuy, "TEST", 10, 50)
	if err != nil {
		t.Fatalf("NewLimitOrder: %v", err)
	}
	s := &scriptedStrategy{script: map[int][]domain.Order{0: {limit}}}

	e, _ := New(10000)
	res, err := e.Run(s, []domain.Bar{testBar(t, "TEST", 2, 100)})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ExecutedOrders != 1 {
		t.Fatalf("executed = %d, want 1", res.ExecutedOrders)
	}
	// Filled at close 100, not the limit 50.
	if res.FinalCash != 10000-10*100 {
		t.Errorf("FinalCash = %v, want %v", res.FinalCash, 10000-10*100.0)
	}
}

func TestLastClosePrices(t *testing.T) {
	bars := []domain.Bar{
		testBar(t, "A", 2, 10),
		testBar(t, "B", 2, 20),
		testBar(t, "A", 3, 11),
	}
	prices := lastClosePrices(bars)
	if prices["A"] != 11 || prices["B"] != 20 {
		t.Errorf("lastClosePrices = %v", prices)
	}
}

func TestCostEngineDeductsFromValuationOnly(t *testing.T) {
	s := &scriptedStrategy{script: map[int][]domain.Order{
		0: {marketOrder(t, domain.OrderSideBuy, "TEST", 50)},
	}}
	bars := []domain.Bar{
		testBar(t, "TEST", 2, 100),
		testBar(t, "TEST", 31, 110),
	}

	ce, err := NewCostEngine(10000, 0.05)
	if err != nil {
		t.Fatalf("NewCostEngine: %v", err)
	}
	res, err := ce.Run(s, bars)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Deployed 5000, costs 250. Unadjusted value: 5000 cash + 50*110.
	wantCosts := 5000 * 0.05
	if got := ce.Costs(res); got != wantCosts {
		t.Errorf("Costs = %v, want %v", got, wantCosts)
	}
	want := 5000.0 + 50*110 - wantCosts
	if res.FinalPortfolioValue != want {
		t.Errorf("FinalPortfolioValue = %v, want %v", res.FinalPortfolioValue, want)
	}
	// Cash and counts unaffected by the deduction.
	if res.FinalCash != 5000 {
		t.Errorf("FinalCash = %v, want 5000", res.FinalCash)
	}
	if res.TotalOrders != 1 || res.ExecutedOrders != 1 {
		t.Errorf("orders = %d/%d, want 1/1", res.ExecutedOrders, res.TotalOrders)
	}
}

func TestCostEngineNetShortReducesCosts(t *testing.T) {
	// A net-short run has negative deployed capital, so the "cost" is a
	// credit to the valuation. Sign-sensitive on purpose.
	s := &scriptedStrategy{script: map[int][]domain.Order{
		0: {marketOrder(t, domain.OrderSideSell, "TEST", 50)},
	}}
	bars := []domain.Bar{testBar(t, "TEST", 2, 100)}

	ce, _ := NewCostEngine(10000, 0.05)
	res, err := ce.Run(s, bars)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := ce.Costs(res); got != (10000-15000)*0.05 {
		t.Errorf("Costs = %v, want %v", got, (10000-15000)*0.05)
	}
}

func TestResultsDerivedMetrics(t *testing.T) {
	r := &Results{InitialCash: 10000, FinalPortfolioValue: 11000, TotalOrders: 4, ExecutedOrders: 3}
	if r.TotalReturn() != 0.1 {
		t.Errorf("TotalReturn = %v, want 0.1", r.TotalReturn())
	}
	if r.ExecutionRate() != 0.75 {
		t.Errorf("ExecutionRate = %v, want 0.75", r.ExecutionRate())
	}
}
