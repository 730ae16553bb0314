// Package domain defines the value objects shared across the backtesting
// system: OHLCV bars, orders, and positions. All three validate their
// invariants at construction; a value that fails validation is never handed
// to the rest of the system.
package domain

import (
	"errors"
	"fmt"
	"time"
)

// ---------------------------------------------------------------------------
// Validation errors
// ---------------------------------------------------------------------------

var (
	// ErrInvalidBar indicates an OHLC relationship violation.
	ErrInvalidBar = errors.New("invalid bar")
	// ErrInvalidOrder indicates a non-positive quantity or limit price.
	ErrInvalidOrder = errors.New("invalid order")
	// ErrInvalidPosition indicates a negative average cost.
	ErrInvalidPosition = errors.New("invalid position")
)

// ---------------------------------------------------------------------------
// Enums
// ---------------------------------------------------------------------------

// Timeframe identifies the aggregation period of a bar.
type Timeframe string

const (
	TimeframeDay    Timeframe = "day"
	TimeframeMinute Timeframe = "minute"
)

// OrderSide is the direction of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderType distinguishes market orders from limit orders.
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// ---------------------------------------------------------------------------
// Bar
// ---------------------------------------------------------------------------

// Bar is a single OHLCV observation for one ticker at one timestamp. Bars
// are produced by the data loader and consumed read-only by the engine and
// strategies.
type Bar struct {
	Ticker    string
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
	Timeframe Timeframe
}

// NewBar constructs a validated Bar. The high must be at least the maximum
// of open, close, and low; the low must be at most the minimum of open,
// close, and high.
func NewBar(ticker string, ts time.Time, open, high, low, closePrice float64, volume int64) (Bar, error) {
	if high < max(open, closePrice, low) {
		return Bar{}, fmt.Errorf("%w: high %v below max of open/close/low for %s", ErrInvalidBar, high, ticker)
	}
	if low > min(open, closePrice, high) {
		return Bar{}, fmt.Errorf("%w: low %v above min of open/close/high for %s", ErrInvalidBar, low, ticker)
	}
	return Bar{
		Ticker:    ticker,
		Timestamp: ts,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
	}, nil
}

// ---------------------------------------------------------------------------
// Order
// ---------------------------------------------------------------------------

// Order is an immutable trade instruction. Market orders carry no price and
// fill at the bar close; the limit price on limit orders is informational
// only in this model.
type Order struct {
	Side     OrderSide
	Type     OrderType
	Ticker   string
	Quantity int64
	Price    float64 // limit price; zero for market orders
}

// NewMarketOrder constructs a validated market order.
func NewMarketOrder(side OrderSide, ticker string, quantity int64) (Order, error) {
	if quantity <= 0 {
		return Order{}, fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidOrder, quantity)
	}
	return Order{Side: side, Type: OrderTypeMarket, Ticker: ticker, Quantity: quantity}, nil
}

// NewLimitOrder constructs a validated limit order.
func NewLimitOrder(side OrderSide, ticker string, quantity int64, price float64) (Order, error) {
	if quantity <= 0 {
		return Order{}, fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidOrder, quantity)
	}
	if price <= 0 {
		return Order{}, fmt.Errorf("%w: limit price must be positive, got %v", ErrInvalidOrder, price)
	}
	return Order{Side: side, Type: OrderTypeLimit, Ticker: ticker, Quantity: quantity, Price: price}, nil
}

// IsMarket reports whether the order fills at the prevailing price.
func (o Order) IsMarket() bool { return o.Type == OrderTypeMarket }

// IsBuy reports whether the order increases exposure.
func (o Order) IsBuy() bool { return o.Side == OrderSideBuy }

// IsSell reports whether the order decreases exposure.
func (o Order) IsSell() bool { return o.Side == OrderSideSell }

// ---------------------------------------------------------------------------
// Position
// ---------------------------------------------------------------------------

// Position is a holding in a single ticker. Quantity is signed: positive is
// long, negative is short. Flat positions are never stored; the owning map
// removes them.
type Position struct {
	Ticker   string
	Quantity int64
	AvgCost  float64
}

// NewPosition constructs a validated Position.
func NewPosition(ticker string, quantity int64, avgCost float64) (Position, error) {
	if avgCost < 0 {
		return Position{}, fmt.Errorf("%w: average cost cannot be negative, got %v", ErrInvalidPosition, avgCost)
	}
	return Position{Ticker: ticker, Quantity: quantity, AvgCost: avgCost}, nil
}

// IsLong reports whether the position holds a positive quantity.
func (p Position) IsLong() bool { return p.Quantity > 0 }

// IsShort reports whether the position holds a negative quantity.
func (p Position) IsShort() bool { return p.Quantity < 0 }

// IsFlat reports whether the position holds nothing.
func (p Position) IsFlat() bool { return p.Quantity == 0 }

// MarketValue values the position at its average cost.
func (p Position) MarketValue() float64 {
	return float64(p.Quantity) * p.AvgCost
}
