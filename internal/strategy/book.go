package strategy

import "edgelab/internal/domain"

// Book is an embeddable position tracker that gives a strategy its own view
// of post-trade state. The engine feeds it through UpdatePosition after each
// fill; a flat position makes the Book forget that ticker. It never diverges
// from the portfolio as long as every fill is reported.
type Book struct {
	positions map[string]domain.Position
}

// UpdatePosition records the latest position for its ticker, or forgets the
// ticker when the position is flat.
func (b *Book) UpdatePosition(pos domain.Position) {
	if pos.IsFlat() {
		delete(b.positions, pos.Ticker)
		return
	}
	if b.positions == nil {
		b.positions = make(map[string]domain.Position)
	}
	b.positions[pos.Ticker] = pos
}

// Position returns the tracked position for ticker, if any.
func (b *Book) Position(ticker string) (domain.Position, bool) {
	pos, ok := b.positions[ticker]
	return pos, ok
}

// Positions returns a snapshot copy of all tracked positions.
func (b *Book) Positions() map[string]domain.Position {
	snapshot := make(map[string]domain.Position, len(b.positions))
	for ticker, pos := range b.positions {
		snapshot[ticker] = pos
	}
	return snapshot
}
