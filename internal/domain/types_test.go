package domain

import (
	"errors"
	"testing"
	"time"
)

func TestNewBarValid(t *testing.T) {
	ts := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	bar, err := NewBar("AAPL", ts, 100, 105, 98, 103, 1_000_000)
	if err != nil {
		t.Fatalf("NewBar: %v", err)
	}
	if bar.Ticker != "AAPL" || bar.Close != 103 || bar.Volume != 1_000_000 {
		t.Errorf("unexpected bar fields: %+v", bar)
	}
	if !bar.Timestamp.Equal(ts) {
		t.Errorf("timestamp = %v, want %v", bar.Timestamp, ts)
	}
}

func TestNewBarFlatSession(t *testing.T) {
	// All four prices equal is a valid degenerate bar.
	if _, err := NewBar("T", time.Now(), 50, 50, 50, 50, 0); err != nil {
		t.Errorf("flat bar should be valid, got %v", err)
	}
}

func TestNewBarInvalidHigh(t *testing.T) {
	// High below the close violates the OHLC relationship.
	_, err := NewBar("AAPL", time.Now(), 100, 101, 98, 102, 1000)
	if !errors.Is(err, ErrInvalidBar) {
		t.Fatalf("want ErrInvalidBar, got %v", err)
	}
}

func TestNewBarInvalidLow(t *testing.T) {
	// Low above the open violates the OHLC relationship.
	_, err := NewBar("AAPL", time.Now(), 97, 105, 98, 103, 1000)
	if !errors.Is(err, ErrInvalidBar) {
		t.Fatalf("want ErrInvalidBar, got %v", err)
	}
}

func TestNewMarketOrder(t *testing.T) {
	ord, err := NewMarketOrder(OrderSideBuy, "TSLA", 10)
	if err != nil {
		t.Fatalf("NewMarketOrder: %v", err)
	}
	if !ord.IsMarket() || !ord.IsBuy() || ord.IsSell() {
		t.Errorf("order predicates wrong: %+v", ord)
	}
	if ord.Price != 0 {
		t.Errorf("market order price = %v, want 0", ord.Price)
	}
}

func TestNewOrderRejectsBadQuantity(t *testing.T) {
	for _, qty := range []int64{0, -5} {
		if _, err := NewMarketOrder(OrderSideSell, "TSLA", qty); !errors.Is(err, ErrInvalidOrder) {
			t.Errorf("quantity %d: want ErrInvalidOrder, got %v", qty, err)
		}
		if _, err := NewLimitOrder(OrderSideBuy, "TSLA", qty, 100); !errors.Is(err, ErrInvalidOrder) {
			t.Errorf("limit quantity %d: want ErrInvalidOrder, got %v", qty, err)
		}
	}
}

func TestNewLimitOrderRejectsBadPrice(t *testing.T) {
	for _, price := range []float64{0, -1.5} {
		if _, err := NewLimitOrder(OrderSideBuy, "TSLA", 10, price); !errors.Is(err, ErrInvalidOrder) {
			t.Errorf("price %v: want ErrInvalidOrder, got %v", price, err)
		}
	}
}

func TestNewLimitOrder(t *testing.T) {
	ord, err := NewLimitOrder(OrderSideSell, "NVDA", 3, 900.5)
	if err != nil {
		t.Fatalf("NewLimitOrder: %v", err)
	}
	if ord.IsMarket() {
		t.Error("limit order reported as market")
	}
	if ord.Price != 900.5 {
		t.Errorf("limit price = %v, want 900.5", ord.Price)
	}
}

func TestPosition(t *testing.T) {
	long, err := NewPosition("AAPL", 100, 150.0)
	if err != nil {
		t.Fatalf("NewPosition: %v", err)
	}
	if !long.IsLong() || long.IsShort() || long.IsFlat() {
		t.Errorf("long position predicates wrong: %+v", long)
	}
	if long.MarketValue() != 15000 {
		t.Errorf("MarketValue = %v, want 15000", long.MarketValue())
	}

	short := Position{Ticker: "AAPL", Quantity: -50, AvgCost: 150.0}
	if !short.IsShort() || short.MarketValue() != -7500 {
		t.Errorf("short position wrong: %+v value %v", short, short.MarketValue())
	}

	flat := Position{Ticker: "AAPL"}
	if !flat.IsFlat() {
		t.Errorf("zero-quantity position should be flat: %+v", flat)
	}
}

func TestNewPositionRejectsNegativeCost(t *testing.T) {
	if _, err := NewPosition("AAPL", 10, -0.01); !errors.Is(err, ErrInvalidPosition) {
		t.Fatalf("want ErrInvalidPosition, got %v", err)
	}
}
