package strategy

import "edgelab/internal/domain"

// Order constructors shared by all strategy implementations. They are pure
// helpers over the domain constructors; strategies compose them instead of
// inheriting behavior.

// MarketBuy creates a market buy order.
func MarketBuy(ticker string, quantity int64) (domain.Order, error) {
	return domain.NewMarketOrder(domain.OrderSideBuy, ticker, quantity)
}

// MarketSell creates a market sell order.
func MarketSell(ticker string, quantity int64) (domain.Order, error) {
	return domain.NewMarketOrder(domain.OrderSideSell, ticker, quantity)
}

// LimitBuy creates a limit buy order. Note that in this backtest model the
// limit price is carried but never used as the fill price.
func LimitBuy(ticker string, quantity int64, price float64) (domain.Order, error) {
	return domain.NewLimitOrder(domain.OrderSideBuy, ticker, quantity, price)
}

// LimitSell creates a limit sell order.
func LimitSell(ticker string, quantity int64, price float64) (domain.Order, error) {
	return domain.NewLimitOrder(domain.OrderSideSell, ticker, quantity, price)
}
